package crm

import (
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxLeadDescription = 2000

// Lead is a sales opportunity against an Account. Its status only moves
// through Transition.
type Lead struct {
	shared.BaseAggregateRoot
	AccountID      uuid.UUID
	Description    string
	Status         LeadStatus
	EstimatedValue decimal.Decimal
	Probability    int

	// OwnerID and OwnerTeamID are resolved through the parent account when
	// the lead is loaded; they are not stored on the lead row.
	OwnerID     uuid.UUID
	OwnerTeamID *uuid.UUID
}

// NewLead creates a lead in status NEW for the given account.
func NewLead(account *Account, description string, estimatedValue decimal.Decimal, probability int) (*Lead, error) {
	if account == nil {
		return nil, ErrAccountNotFound
	}
	if err := validateLeadFields(description, estimatedValue, probability); err != nil {
		return nil, err
	}
	return &Lead{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		AccountID:         account.ID,
		Description:       strings.TrimSpace(description),
		Status:            LeadStatusNew,
		EstimatedValue:    estimatedValue,
		Probability:       probability,
		OwnerID:           account.OwnerID,
		OwnerTeamID:       account.OwnerTeamID,
	}, nil
}

// Resource returns the ownership metadata the gate needs for this lead.
func (l *Lead) Resource() access.Resource {
	return access.Owned(access.KindLead, l.OwnerID, l.OwnerTeamID)
}

// UpdateDetails edits the free fields of an open lead.
func (l *Lead) UpdateDetails(description string, estimatedValue decimal.Decimal, probability int) error {
	if l.Status.IsTerminal() {
		return ErrLeadClosed
	}
	if err := validateLeadFields(description, estimatedValue, probability); err != nil {
		return err
	}
	l.Description = strings.TrimSpace(description)
	l.EstimatedValue = estimatedValue
	l.Probability = probability
	l.Touch()
	l.IncrementVersion()
	return nil
}

// Transition moves the lead to target on behalf of p.
//
// Checks run in a fixed order: authorization, terminal state, target
// validity, no-op. A terminal lead rejects every target, known or not. A
// rejected call leaves the lead untouched. Any non-terminal status may jump
// to any other status. Entering CLOSED_WON returns the Sale that must be
// persisted in the same transaction as the lead; every other transition
// returns a nil Sale.
func (l *Lead) Transition(p access.Principal, target string, now time.Time) (*Sale, error) {
	if d := access.Authorize(p, l.Resource(), access.ActionStatusTransition); !d.Allowed {
		return nil, d.Err()
	}
	if l.Status.IsTerminal() {
		return nil, ErrLeadClosed
	}
	next, err := ParseLeadStatus(target)
	if err != nil {
		return nil, ErrUnknownStatus
	}
	if next == l.Status {
		return nil, ErrSameStatus
	}

	from := l.Status
	l.Status = next
	l.UpdatedAt = now
	l.IncrementVersion()
	l.AddDomainEvent(NewLeadStatusChangedEvent(l, from, p.UserID))

	if next != LeadStatusClosedWon {
		return nil, nil
	}
	sale := NewSale(l, now)
	l.AddDomainEvent(NewLeadClosedWonEvent(l, sale, p.UserID))
	return sale, nil
}

// CanDelete reports whether the lead may be hard-deleted. Closed leads are
// kept as the archive behind their sale or loss.
func (l *Lead) CanDelete() bool {
	return !l.Status.IsTerminal()
}

func validateLeadFields(description string, estimatedValue decimal.Decimal, probability int) error {
	if len(strings.TrimSpace(description)) > maxLeadDescription {
		return shared.NewValidationError("description cannot exceed %d characters", maxLeadDescription)
	}
	if estimatedValue.IsNegative() {
		return shared.NewValidationError("estimated value cannot be negative")
	}
	if probability < 0 || probability > 100 {
		return shared.NewValidationError("probability must be between 0 and 100")
	}
	return nil
}
