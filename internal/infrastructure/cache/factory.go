// Package cache provides the Redis-backed stores used by the event handlers
// and the report service, with in-memory fallbacks for single-instance
// deployments and tests.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Factory hands out stores backed by a shared Redis client, or in-memory
// ones when the client is nil.
type Factory struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// NewFactory creates a factory. client may be nil.
func NewFactory(client redis.UniversalClient, opts ...FactoryOption) *Factory {
	f := &Factory{client: client, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IdempotencyStore returns the store used by IdempotentHandler.
func (f *Factory) IdempotencyStore() shared.IdempotencyStore {
	if f.client == nil {
		f.logger.Warn("Redis disabled, using in-memory idempotency store. " +
			"Duplicate notifications are possible with more than one instance.")
		return NewInMemoryIdempotencyStore()
	}
	return NewRedisIdempotencyStore(f.client, "")
}

// ReportCache returns the cache used by the report service.
func (f *Factory) ReportCache() ReportCache {
	if f.client == nil {
		f.logger.Info("Redis disabled, using in-memory report cache")
		return NewInMemoryReportCache()
	}
	return NewRedisReportCache(f.client, f.logger)
}
