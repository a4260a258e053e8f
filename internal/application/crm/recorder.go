package crm

import (
	"context"

	"github.com/shopspring/decimal"
)

// Recorder receives business measurements from the CRM services. Both the
// Prometheus registry and the OpenTelemetry meter implement it.
type Recorder interface {
	LeadTransitioned(ctx context.Context, from, to string)
	DealWon(ctx context.Context, amount decimal.Decimal)
	ConflictDetected(ctx context.Context, operation string)
}

// Recorders fans every measurement out to each member.
type Recorders []Recorder

func (rs Recorders) LeadTransitioned(ctx context.Context, from, to string) {
	for _, r := range rs {
		r.LeadTransitioned(ctx, from, to)
	}
}

func (rs Recorders) DealWon(ctx context.Context, amount decimal.Decimal) {
	for _, r := range rs {
		r.DealWon(ctx, amount)
	}
}

func (rs Recorders) ConflictDetected(ctx context.Context, operation string) {
	for _, r := range rs {
		r.ConflictDetected(ctx, operation)
	}
}
