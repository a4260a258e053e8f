package telemetry

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when BusinessMetrics is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter is nil")

var (
	attrFromStatus = attribute.Key("from_status")
	attrToStatus   = attribute.Key("to_status")
	attrOperation  = attribute.Key("operation")
)

// BusinessMetrics pushes CRM pipeline counters through the OTel meter.
type BusinessMetrics struct {
	transitions metric.Int64Counter
	dealsWon    metric.Int64Counter
	wonAmount   metric.Float64Counter
	dealSize    metric.Float64Histogram
	conflicts   metric.Int64Counter
}

func NewBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	bm := &BusinessMetrics{}
	var err error
	if bm.transitions, err = meter.Int64Counter("crm_lead_transitions_total",
		metric.WithDescription("Lead status transitions"),
		metric.WithUnit("{transitions}")); err != nil {
		return nil, err
	}
	if bm.dealsWon, err = meter.Int64Counter("crm_deals_won_total",
		metric.WithDescription("Leads closed as won"),
		metric.WithUnit("{deals}")); err != nil {
		return nil, err
	}
	if bm.wonAmount, err = meter.Float64Counter("crm_deals_won_amount_total",
		metric.WithDescription("Sum of closed-won sale amounts")); err != nil {
		return nil, err
	}
	if bm.dealSize, err = meter.Float64Histogram("crm_deal_size",
		metric.WithDescription("Distribution of closed-won sale amounts"),
		metric.WithExplicitBucketBoundaries(100, 1_000, 5_000, 10_000, 50_000, 100_000, 500_000)); err != nil {
		return nil, err
	}
	if bm.conflicts, err = meter.Int64Counter("crm_concurrency_conflicts_total",
		metric.WithDescription("Optimistic lock conflicts"),
		metric.WithUnit("{conflicts}")); err != nil {
		return nil, err
	}
	return bm, nil
}

func (bm *BusinessMetrics) LeadTransitioned(ctx context.Context, from, to string) {
	bm.transitions.Add(ctx, 1, metric.WithAttributes(attrFromStatus.String(from), attrToStatus.String(to)))
}

func (bm *BusinessMetrics) DealWon(ctx context.Context, amount decimal.Decimal) {
	v := amount.InexactFloat64()
	bm.dealsWon.Add(ctx, 1)
	bm.wonAmount.Add(ctx, v)
	bm.dealSize.Record(ctx, v)
}

func (bm *BusinessMetrics) ConflictDetected(ctx context.Context, operation string) {
	bm.conflicts.Add(ctx, 1, metric.WithAttributes(attrOperation.String(operation)))
}
