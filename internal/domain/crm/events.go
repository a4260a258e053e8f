package crm

import (
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const AggregateTypeLead = "Lead"

const (
	EventTypeLeadStatusChanged = "LeadStatusChanged"
	EventTypeLeadClosedWon     = "LeadClosedWon"
)

// LeadStatusChangedEvent is raised by every applied transition.
type LeadStatusChangedEvent struct {
	shared.BaseDomainEvent
	AccountID  uuid.UUID `json:"account_id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
}

func NewLeadStatusChangedEvent(l *Lead, from LeadStatus, actorID uuid.UUID) *LeadStatusChangedEvent {
	return &LeadStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLeadStatusChanged, AggregateTypeLead, l.ID, actorID),
		AccountID:       l.AccountID,
		OwnerID:         l.OwnerID,
		FromStatus:      from.String(),
		ToStatus:        l.Status.String(),
	}
}

// LeadClosedWonEvent is raised together with the sale it produced.
type LeadClosedWonEvent struct {
	shared.BaseDomainEvent
	SaleID      uuid.UUID       `json:"sale_id"`
	AccountID   uuid.UUID       `json:"account_id"`
	OwnerID     uuid.UUID       `json:"owner_id"`
	TeamID      *uuid.UUID      `json:"team_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func NewLeadClosedWonEvent(l *Lead, sale *Sale, actorID uuid.UUID) *LeadClosedWonEvent {
	ev := &LeadClosedWonEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLeadClosedWon, AggregateTypeLead, l.ID, actorID),
		SaleID:          sale.ID,
		AccountID:       l.AccountID,
		OwnerID:         sale.OwnerID,
		TeamID:          sale.TeamID,
		Amount:          sale.Amount,
		Description:     l.Description,
	}
	ev.Timestamp = sale.ClosedAt
	return ev
}
