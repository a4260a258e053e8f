package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed event IDs so that at-least-once
// outbox delivery does not send the same notification twice.
type IdempotencyStore interface {
	// MarkProcessed returns true if the event was newly marked.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig keeps processed IDs for a day.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
