package event

import (
	"context"
	"fmt"

	"github.com/crm/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher serializes events into outbox rows on the caller's
// transaction.
type OutboxPublisher struct {
	serializer *EventSerializer
	maxRetries int
}

// OutboxPublisherOption configures an OutboxPublisher.
type OutboxPublisherOption func(*OutboxPublisher)

// WithMaxRetries sets the delivery attempts each new entry gets before it is
// dead-lettered. Non-positive values keep shared.DefaultMaxRetries.
func WithMaxRetries(n int) OutboxPublisherOption {
	return func(p *OutboxPublisher) {
		if n > 0 {
			p.maxRetries = n
		}
	}
}

func NewOutboxPublisher(serializer *EventSerializer, opts ...OutboxPublisherOption) *OutboxPublisher {
	p := &OutboxPublisher{serializer: serializer, maxRetries: shared.DefaultMaxRetries}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SaveEvents implements shared.OutboxEventSaver. txProvider must be the
// *gorm.DB of an open transaction.
func (p *OutboxPublisher) SaveEvents(ctx context.Context, txProvider any, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, ok := txProvider.(*gorm.DB)
	if !ok {
		return fmt.Errorf("txProvider must be a *gorm.DB, got %T", txProvider)
	}

	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, ev := range events {
		payload, err := p.serializer.Serialize(ev)
		if err != nil {
			return fmt.Errorf("serialize %s: %w", ev.EventType(), err)
		}
		entry := shared.NewOutboxEntry(ev, payload)
		entry.MaxRetries = p.maxRetries
		entries = append(entries, entry)
	}
	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}

var _ shared.OutboxEventSaver = (*OutboxPublisher)(nil)
