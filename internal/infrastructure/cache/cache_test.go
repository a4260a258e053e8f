package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestInMemoryIdempotencyStore(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	c := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	store.entries.now = c.now
	ctx := context.Background()

	fresh, err := store.MarkProcessed(ctx, "evt-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = store.MarkProcessed(ctx, "evt-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, fresh)

	seen, err := store.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)

	c.advance(2 * time.Hour)
	seen, err = store.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen, "expired keys are forgotten")

	store.entries.sweep()
	assert.Zero(t, store.Size())
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}

type cachedRow struct {
	Name  string `json:"name"`
	Total string `json:"total"`
}

func TestInMemoryReportCache(t *testing.T) {
	cache := NewInMemoryReportCache()
	defer cache.Close()
	c := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache.entries.now = c.now
	ctx := context.Background()

	var out []cachedRow
	hit, err := cache.Get(ctx, "salespeople:2025-03:all", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	rows := []cachedRow{{Name: "Ada", Total: "1200.00"}}
	require.NoError(t, cache.Set(ctx, "salespeople:2025-03:all", rows, time.Minute))
	require.NoError(t, cache.Set(ctx, "teams:2025-03:all", rows, time.Minute))

	hit, err = cache.Get(ctx, "salespeople:2025-03:all", &out)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, rows, out)

	require.NoError(t, cache.InvalidatePrefix(ctx, "salespeople:"))
	hit, _ = cache.Get(ctx, "salespeople:2025-03:all", &out)
	assert.False(t, hit)
	hit, _ = cache.Get(ctx, "teams:2025-03:all", &out)
	assert.True(t, hit, "other prefixes survive")

	c.advance(2 * time.Minute)
	hit, _ = cache.Get(ctx, "teams:2025-03:all", &out)
	assert.False(t, hit)
}

func TestFactory_FallsBackWithoutRedis(t *testing.T) {
	f := NewFactory(nil, WithLogger(zap.NewNop()))

	store := f.IdempotencyStore()
	defer store.Close()
	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	assert.IsType(t, &InMemoryReportCache{}, f.ReportCache())
}
