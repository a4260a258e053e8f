package crm

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale is an immutable record of a won deal. It exists only as the side
// effect of a lead reaching CLOSED_WON, and sales are never updated or deleted.
type Sale struct {
	ID       uuid.UUID
	LeadID   uuid.UUID
	OwnerID  uuid.UUID
	TeamID   *uuid.UUID
	Amount   decimal.Decimal
	ClosedAt time.Time
}

// NewSale snapshots the lead's estimated value and owner at closing time.
func NewSale(lead *Lead, closedAt time.Time) *Sale {
	var team *uuid.UUID
	if lead.OwnerTeamID != nil {
		t := *lead.OwnerTeamID
		team = &t
	}
	return &Sale{
		ID:       uuid.New(),
		LeadID:   lead.ID,
		OwnerID:  lead.OwnerID,
		TeamID:   team,
		Amount:   lead.EstimatedValue,
		ClosedAt: closedAt.UTC(),
	}
}
