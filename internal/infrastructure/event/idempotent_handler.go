package event

import (
	"context"

	"github.com/crm/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotentHandler skips events its store has already seen. An event is
// recorded only after the wrapped handler succeeds, so a failed delivery is
// retried by the outbox rather than silently dropped.
type IdempotentHandler struct {
	name    string
	handler shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger
}

// NewIdempotentHandler wraps handler. name keys the store so that two
// handlers of the same event keep separate records.
func NewIdempotentHandler(name string, handler shared.EventHandler, store shared.IdempotencyStore, config shared.IdempotencyConfig, logger *zap.Logger) *IdempotentHandler {
	return &IdempotentHandler{
		name:    name,
		handler: handler,
		store:   store,
		config:  config,
		logger:  logger,
	}
}

func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, event)
	}
	key := h.name + ":" + event.EventID().String()

	seen, err := h.store.IsProcessed(ctx, key)
	if err != nil {
		// Prefer a duplicate over a dropped event.
		h.logger.Warn("idempotency check failed, processing anyway", zap.String("key", key), zap.Error(err))
	} else if seen {
		h.logger.Debug("duplicate event skipped", zap.String("key", key))
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		return err
	}

	if _, err := h.store.MarkProcessed(ctx, key, h.config.TTL); err != nil {
		h.logger.Warn("failed to record processed event", zap.String("key", key), zap.Error(err))
	}
	return nil
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
