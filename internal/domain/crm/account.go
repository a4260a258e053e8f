package crm

import (
	"net/mail"
	"strings"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AccountStatus is the commercial state of a client.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusInactive  AccountStatus = "INACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
)

// IsValid returns true if s is a known account status
func (s AccountStatus) IsValid() bool {
	switch s {
	case AccountStatusActive, AccountStatusInactive, AccountStatusSuspended:
		return true
	}
	return false
}

// Company is the optional employer of an account's contact person.
type Company struct {
	Name     string
	Industry string
}

// Account is a client record owned by exactly one salesperson.
type Account struct {
	shared.BaseAggregateRoot
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Status    AccountStatus
	Company   *Company
	OwnerID   uuid.UUID

	// OwnerTeamID is the owner's current team, resolved on load.
	OwnerTeamID *uuid.UUID
}

// AccountDetails groups the editable fields of an account.
type AccountDetails struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Company   *Company
}

// NewAccount creates an ACTIVE account owned by ownerID.
func NewAccount(ownerID uuid.UUID, ownerTeamID *uuid.UUID, details AccountDetails) (*Account, error) {
	if ownerID == uuid.Nil {
		return nil, shared.NewValidationError("account owner is required")
	}
	a := &Account{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Status:            AccountStatusActive,
		OwnerID:           ownerID,
		OwnerTeamID:       ownerTeamID,
	}
	if err := a.apply(details); err != nil {
		return nil, err
	}
	return a, nil
}

// Resource returns the ownership metadata the gate needs for this account.
func (a *Account) Resource() access.Resource {
	return access.Owned(access.KindAccount, a.OwnerID, a.OwnerTeamID)
}

// Update replaces the editable fields.
func (a *Account) Update(details AccountDetails) error {
	if err := a.apply(details); err != nil {
		return err
	}
	a.Touch()
	a.IncrementVersion()
	return nil
}

// SetStatus changes the account status.
func (a *Account) SetStatus(status AccountStatus) error {
	if !status.IsValid() {
		return shared.NewValidationError("invalid account status %q", status)
	}
	a.Status = status
	a.Touch()
	a.IncrementVersion()
	return nil
}

// Reassign hands the account to another salesperson.
func (a *Account) Reassign(ownerID uuid.UUID, ownerTeamID *uuid.UUID) error {
	if ownerID == uuid.Nil {
		return shared.NewValidationError("account owner is required")
	}
	a.OwnerID = ownerID
	a.OwnerTeamID = ownerTeamID
	a.Touch()
	a.IncrementVersion()
	return nil
}

// FullName returns "First Last".
func (a *Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

func (a *Account) apply(d AccountDetails) error {
	first := strings.TrimSpace(d.FirstName)
	last := strings.TrimSpace(d.LastName)
	if first == "" || last == "" {
		return shared.NewValidationError("first name and last name are required")
	}
	if len(first) > 100 || len(last) > 100 {
		return shared.NewValidationError("names cannot exceed 100 characters")
	}
	email := strings.ToLower(strings.TrimSpace(d.Email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return shared.NewValidationError("invalid email format")
	}
	if len(d.Phone) > 50 {
		return shared.NewValidationError("phone cannot exceed 50 characters")
	}
	var company *Company
	if d.Company != nil && strings.TrimSpace(d.Company.Name) != "" {
		company = &Company{
			Name:     strings.TrimSpace(d.Company.Name),
			Industry: strings.TrimSpace(d.Company.Industry),
		}
	}

	a.FirstName = first
	a.LastName = last
	a.Email = email
	a.Phone = strings.TrimSpace(d.Phone)
	a.Company = company
	return nil
}
