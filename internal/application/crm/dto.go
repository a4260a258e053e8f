package crm

import (
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CompanyDTO is the optional employer of an account's contact.
type CompanyDTO struct {
	Name     string `json:"name"`
	Industry string `json:"industry,omitempty"`
}

// AccountDTO represents an account.
type AccountDTO struct {
	ID          uuid.UUID   `json:"id"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone,omitempty"`
	Status      string      `json:"status"`
	Company     *CompanyDTO `json:"company,omitempty"`
	OwnerID     uuid.UUID   `json:"owner_id"`
	OwnerTeamID *uuid.UUID  `json:"owner_team_id,omitempty"`
	Version     int         `json:"version"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// AccountInput creates or replaces an account's fields. OwnerID is optional
// on create and defaults to the caller.
type AccountInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Company   *CompanyDTO
	Status    string
	OwnerID   *uuid.UUID
	Version   *int
}

// AccountListInput filters an account listing.
type AccountListInput struct {
	shared.Filter
	OwnerID *uuid.UUID
	Status  string
}

// LeadDTO represents a lead.
type LeadDTO struct {
	ID             uuid.UUID       `json:"id"`
	AccountID      uuid.UUID       `json:"account_id"`
	Description    string          `json:"description"`
	Status         string          `json:"status"`
	EstimatedValue decimal.Decimal `json:"estimated_value"`
	Probability    int             `json:"probability"`
	OwnerID        uuid.UUID       `json:"owner_id"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	// SaleID is set on the response of the transition that won the deal.
	SaleID *uuid.UUID `json:"sale_id,omitempty"`
}

// CreateLeadInput opens a lead against an account.
type CreateLeadInput struct {
	AccountID      uuid.UUID
	Description    string
	EstimatedValue decimal.Decimal
	Probability    int
}

// UpdateLeadInput edits the free fields of an open lead.
type UpdateLeadInput struct {
	Description    string
	EstimatedValue decimal.Decimal
	Probability    int
	Version        *int
}

// LeadListInput filters a lead listing.
type LeadListInput struct {
	shared.Filter
	AccountID *uuid.UUID
	Status    string
}

// NoteDTO represents a note.
type NoteDTO struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	NoteDate  time.Time `json:"note_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteInput creates or edits a note. AccountID is ignored on edit.
type NoteInput struct {
	AccountID uuid.UUID
	Content   string
	Type      string
	NoteDate  time.Time
}

// SaleDTO represents an entry of the sales ledger.
type SaleDTO struct {
	ID       uuid.UUID       `json:"id"`
	LeadID   uuid.UUID       `json:"lead_id"`
	OwnerID  uuid.UUID       `json:"owner_id"`
	TeamID   *uuid.UUID      `json:"team_id,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	ClosedAt time.Time       `json:"closed_at"`
}

func toAccountDTO(a *crm.Account) AccountDTO {
	dto := AccountDTO{
		ID:          a.ID,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		Email:       a.Email,
		Phone:       a.Phone,
		Status:      string(a.Status),
		OwnerID:     a.OwnerID,
		OwnerTeamID: a.OwnerTeamID,
		Version:     a.Version,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if a.Company != nil {
		dto.Company = &CompanyDTO{Name: a.Company.Name, Industry: a.Company.Industry}
	}
	return dto
}

func toLeadDTO(l *crm.Lead) LeadDTO {
	return LeadDTO{
		ID:             l.ID,
		AccountID:      l.AccountID,
		Description:    l.Description,
		Status:         l.Status.String(),
		EstimatedValue: l.EstimatedValue,
		Probability:    l.Probability,
		OwnerID:        l.OwnerID,
		Version:        l.Version,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

func toNoteDTO(n *crm.Note) NoteDTO {
	return NoteDTO{
		ID:        n.ID,
		AccountID: n.AccountID,
		AuthorID:  n.AuthorID,
		Content:   n.Content,
		Type:      string(n.Type),
		NoteDate:  n.NoteDate,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func toSaleDTO(s *crm.Sale) SaleDTO {
	return SaleDTO{
		ID:       s.ID,
		LeadID:   s.LeadID,
		OwnerID:  s.OwnerID,
		TeamID:   s.TeamID,
		Amount:   s.Amount,
		ClosedAt: s.ClosedAt,
	}
}

func mapSlice[T, D any](items []T, f func(T) D) []D {
	out := make([]D, len(items))
	for i, item := range items {
		out[i] = f(item)
	}
	return out
}
