package report

import (
	"context"
	"fmt"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/report"
	"github.com/crm/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CacheInvalidator drops the cached rankings of the month a deal was won in.
type CacheInvalidator struct {
	reports *ReportService
	logger  *zap.Logger
}

func NewCacheInvalidator(reports *ReportService, logger *zap.Logger) *CacheInvalidator {
	return &CacheInvalidator{reports: reports, logger: logger}
}

func (h *CacheInvalidator) EventTypes() []string {
	return []string{crm.EventTypeLeadClosedWon}
}

func (h *CacheInvalidator) Handle(ctx context.Context, event shared.DomainEvent) error {
	closedAt := event.OccurredAt().UTC()
	period := report.Period{Year: closedAt.Year(), Month: int(closedAt.Month())}
	if err := h.reports.InvalidatePeriod(ctx, period); err != nil {
		return fmt.Errorf("invalidate %s reports: %w", periodLabel(period), err)
	}
	h.logger.Debug("Report cache invalidated", zap.String("period", periodLabel(period)))
	return nil
}
