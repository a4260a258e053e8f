package handler

import (
	"time"

	appcrm "github.com/crm/backend/internal/application/crm"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CompanyRequest is the optional employer of an account's contact.
type CompanyRequest struct {
	Name     string `json:"name" binding:"required,max=200"`
	Industry string `json:"industry" binding:"max=100"`
}

// AccountRequest creates or replaces an account. Status and owner are
// optional; the owner defaults to the caller on create.
type AccountRequest struct {
	FirstName string          `json:"first_name" binding:"required,max=100" example:"Ada"`
	LastName  string          `json:"last_name" binding:"required,max=100" example:"Lovelace"`
	Email     string          `json:"email" binding:"required,email,max=255" example:"ada@example.com"`
	Phone     string          `json:"phone" binding:"max=50"`
	Company   *CompanyRequest `json:"company"`
	Status    string          `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE SUSPENDED"`
	OwnerID   *uuid.UUID      `json:"owner_id"`
	Version   *int            `json:"version" binding:"omitempty,min=1"`
}

func (r AccountRequest) input() appcrm.AccountInput {
	in := appcrm.AccountInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Status:    r.Status,
		OwnerID:   r.OwnerID,
		Version:   r.Version,
	}
	if r.Company != nil {
		in.Company = &appcrm.CompanyDTO{Name: r.Company.Name, Industry: r.Company.Industry}
	}
	return in
}

// CreateLeadRequest opens a lead against an account.
type CreateLeadRequest struct {
	AccountID      uuid.UUID       `json:"account_id" binding:"required"`
	Description    string          `json:"description" binding:"max=2000"`
	EstimatedValue decimal.Decimal `json:"estimated_value" swaggertype:"string" example:"1500.00"`
	Probability    int             `json:"probability" binding:"min=0,max=100"`
}

// UpdateLeadRequest edits the free fields of an open lead.
type UpdateLeadRequest struct {
	Description    string          `json:"description" binding:"max=2000"`
	EstimatedValue decimal.Decimal `json:"estimated_value" swaggertype:"string" example:"1500.00"`
	Probability    int             `json:"probability" binding:"min=0,max=100"`
	Version        *int            `json:"version" binding:"omitempty,min=1"`
}

// LeadStatusRequest moves a lead through its status machine.
type LeadStatusRequest struct {
	Status string `json:"status" binding:"required" example:"QUALIFICATION"`
}

// NoteRequest creates or edits a note. AccountID is ignored on edit and the
// date defaults to now.
type NoteRequest struct {
	AccountID uuid.UUID  `json:"account_id"`
	Content   string     `json:"content" binding:"required,max=2000"`
	Type      string     `json:"type" binding:"omitempty,oneof=MEETING PHONE_CALL EMAIL FOLLOW_UP GENERAL OTHER"`
	NoteDate  *time.Time `json:"note_date"`
}

func (r NoteRequest) input() appcrm.NoteInput {
	in := appcrm.NoteInput{AccountID: r.AccountID, Content: r.Content, Type: r.Type}
	if r.NoteDate != nil {
		in.NoteDate = *r.NoteDate
	}
	return in
}
