package cache

import (
	"context"
	"time"

	"github.com/crm/backend/internal/domain/shared"
)

// InMemoryIdempotencyStore keeps processed event keys in process memory.
// State is not shared between instances.
type InMemoryIdempotencyStore struct {
	entries *ttlMap
}

func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{entries: newTTLMap(5 * time.Minute)}
}

func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, eventID string, ttl time.Duration) (bool, error) {
	return s.entries.setNX(eventID, nil, ttl), nil
}

func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	_, ok := s.entries.get(eventID)
	return ok, nil
}

// Close stops the janitor. Safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.entries.close()
	return nil
}

// Size returns the number of stored keys, expired or not.
func (s *InMemoryIdempotencyStore) Size() int {
	return s.entries.len()
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
