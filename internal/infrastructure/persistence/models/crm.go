package models

import (
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountModel maps accounts. OwnerTeamID is filled from users.team_id by
// the repository's join and never written.
type AccountModel struct {
	AggregateModel
	FirstName       string     `gorm:"type:varchar(100);not null"`
	LastName        string     `gorm:"type:varchar(100);not null"`
	Email           string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	Phone           string     `gorm:"type:varchar(50)"`
	Status          string     `gorm:"type:varchar(20);not null;default:ACTIVE"`
	CompanyName     *string    `gorm:"type:varchar(200)"`
	CompanyIndustry *string    `gorm:"type:varchar(100)"`
	OwnerID         uuid.UUID  `gorm:"type:uuid;not null;index"`
	OwnerTeamID     *uuid.UUID `gorm:"->;-:migration;column:owner_team_id"`
}

func (AccountModel) TableName() string { return "accounts" }

func (m *AccountModel) ToDomain() *crm.Account {
	a := &crm.Account{
		BaseAggregateRoot: m.ToAggregateRoot(),
		FirstName:         m.FirstName,
		LastName:          m.LastName,
		Email:             m.Email,
		Phone:             m.Phone,
		Status:            crm.AccountStatus(m.Status),
		OwnerID:           m.OwnerID,
		OwnerTeamID:       m.OwnerTeamID,
	}
	if m.CompanyName != nil {
		a.Company = &crm.Company{Name: *m.CompanyName}
		if m.CompanyIndustry != nil {
			a.Company.Industry = *m.CompanyIndustry
		}
	}
	return a
}

func AccountModelFromDomain(a *crm.Account) *AccountModel {
	m := &AccountModel{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Phone:     a.Phone,
		Status:    string(a.Status),
		OwnerID:   a.OwnerID,
	}
	if a.Company != nil {
		name, industry := a.Company.Name, a.Company.Industry
		m.CompanyName = &name
		m.CompanyIndustry = &industry
	}
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	return m
}

// LeadModel maps leads. Status is stored by name.
type LeadModel struct {
	AggregateModel
	AccountID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Description    string          `gorm:"type:text;not null"`
	Status         string          `gorm:"type:varchar(20);not null;index"`
	EstimatedValue decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0"`
	Probability    int             `gorm:"not null;default:0"`
	OwnerID        uuid.UUID       `gorm:"->;-:migration;column:owner_id"`
	OwnerTeamID    *uuid.UUID      `gorm:"->;-:migration;column:owner_team_id"`
}

func (LeadModel) TableName() string { return "leads" }

func (m *LeadModel) ToDomain() *crm.Lead {
	status, _ := crm.ParseLeadStatus(m.Status)
	return &crm.Lead{
		BaseAggregateRoot: m.ToAggregateRoot(),
		AccountID:         m.AccountID,
		Description:       m.Description,
		Status:            status,
		EstimatedValue:    m.EstimatedValue,
		Probability:       m.Probability,
		OwnerID:           m.OwnerID,
		OwnerTeamID:       m.OwnerTeamID,
	}
}

func LeadModelFromDomain(l *crm.Lead) *LeadModel {
	m := &LeadModel{
		AccountID:      l.AccountID,
		Description:    l.Description,
		Status:         l.Status.String(),
		EstimatedValue: l.EstimatedValue,
		Probability:    l.Probability,
	}
	m.FromDomainAggregateRoot(l.BaseAggregateRoot)
	return m
}

// NoteModel maps notes.
type NoteModel struct {
	BaseModel
	AccountID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	AuthorID    uuid.UUID  `gorm:"type:uuid;not null"`
	Content     string     `gorm:"type:text;not null"`
	Type        string     `gorm:"type:varchar(20);not null"`
	NoteDate    time.Time  `gorm:"not null;index"`
	OwnerID     uuid.UUID  `gorm:"->;-:migration;column:owner_id"`
	OwnerTeamID *uuid.UUID `gorm:"->;-:migration;column:owner_team_id"`
}

func (NoteModel) TableName() string { return "notes" }

func (m *NoteModel) ToDomain() *crm.Note {
	return &crm.Note{
		BaseEntity:  m.BaseModel.ToDomain(),
		AccountID:   m.AccountID,
		AuthorID:    m.AuthorID,
		Content:     m.Content,
		Type:        crm.NoteType(m.Type),
		NoteDate:    m.NoteDate.UTC(),
		OwnerID:     m.OwnerID,
		OwnerTeamID: m.OwnerTeamID,
	}
}

func NoteModelFromDomain(n *crm.Note) *NoteModel {
	m := &NoteModel{
		AccountID: n.AccountID,
		AuthorID:  n.AuthorID,
		Content:   n.Content,
		Type:      string(n.Type),
		NoteDate:  n.NoteDate,
	}
	m.FromDomainBaseEntity(n.BaseEntity)
	return m
}

// SaleModel maps the append-only sales ledger. The unique lead_id index is
// the last line of defence against a lead closing twice.
type SaleModel struct {
	ID       uuid.UUID       `gorm:"type:uuid;primaryKey"`
	LeadID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	OwnerID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_sales_owner_closed,priority:1"`
	TeamID   *uuid.UUID      `gorm:"type:uuid;index:idx_sales_team_closed,priority:1"`
	Amount   decimal.Decimal `gorm:"type:numeric(15,2);not null"`
	ClosedAt time.Time       `gorm:"not null;index:idx_sales_owner_closed,priority:2;index:idx_sales_team_closed,priority:2"`
}

func (SaleModel) TableName() string { return "sales" }

func (m *SaleModel) ToDomain() *crm.Sale {
	return &crm.Sale{
		ID:       m.ID,
		LeadID:   m.LeadID,
		OwnerID:  m.OwnerID,
		TeamID:   m.TeamID,
		Amount:   m.Amount,
		ClosedAt: m.ClosedAt.UTC(),
	}
}

func SaleModelFromDomain(s *crm.Sale) *SaleModel {
	return &SaleModel{
		ID:       s.ID,
		LeadID:   s.LeadID,
		OwnerID:  s.OwnerID,
		TeamID:   s.TeamID,
		Amount:   s.Amount,
		ClosedAt: s.ClosedAt,
	}
}
