package crm

import (
	"context"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AccountFilter narrows an account listing.
type AccountFilter struct {
	shared.Filter
	Scope   access.Predicate
	OwnerID *uuid.UUID
	Status  *AccountStatus
}

// AccountRepository persists accounts. FindByID is unscoped; callers run the
// gate on the loaded account.
type AccountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	FindAll(ctx context.Context, filter AccountFilter) ([]*Account, int64, error)
	ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error)
	Create(ctx context.Context, account *Account) error
	// Update fails with shared.ErrConcurrencyConflict if the stored version
	// is not expectedVersion.
	Update(ctx context.Context, account *Account, expectedVersion int) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// LeadFilter narrows a lead listing.
type LeadFilter struct {
	shared.Filter
	Scope     access.Predicate
	AccountID *uuid.UUID
	Status    *LeadStatus
}

// LeadRepository persists leads.
type LeadRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Lead, error)
	FindAll(ctx context.Context, filter LeadFilter) ([]*Lead, int64, error)
	Create(ctx context.Context, lead *Lead) error
	Update(ctx context.Context, lead *Lead, expectedVersion int) error
	Delete(ctx context.Context, id uuid.UUID) error
	// HasClosedLeads reports whether any lead of the account is terminal.
	HasClosedLeads(ctx context.Context, accountID uuid.UUID) (bool, error)

	// ApplyTransition commits a status change as one unit: the lead row is
	// updated only if it is still at expectedVersion, the sale (if any) is
	// inserted and the lead's pending events are written to the outbox.
	// A lost race returns shared.ErrConcurrencyConflict and changes nothing.
	ApplyTransition(ctx context.Context, lead *Lead, expectedVersion int, sale *Sale) error
}

// NoteRepository persists notes.
type NoteRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Note, error)
	// FindByAccount returns the account's notes, newest note date first.
	FindByAccount(ctx context.Context, accountID uuid.UUID) ([]*Note, error)
	Create(ctx context.Context, note *Note) error
	Update(ctx context.Context, note *Note) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SaleFilter narrows a sales ledger listing.
type SaleFilter struct {
	shared.Filter
	Scope access.Predicate
}

// SaleRepository reads the append-only sales ledger. Sales are written only
// by LeadRepository.ApplyTransition.
type SaleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Sale, error)
	FindByLeadID(ctx context.Context, leadID uuid.UUID) (*Sale, error)
	FindAll(ctx context.Context, filter SaleFilter) ([]*Sale, int64, error)
}
