package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	reportKeyPrefix      = "crm:report:"
	defaultScanBatchSize = 100
)

// ReportCache stores JSON-encoded report results.
type ReportCache interface {
	// Get decodes the cached value into dest. It reports false on a miss.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// InvalidatePrefix drops every key starting with prefix.
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// RedisReportCache implements ReportCache on Redis.
type RedisReportCache struct {
	client redis.UniversalClient
	logger *zap.Logger
}

func NewRedisReportCache(client redis.UniversalClient, logger *zap.Logger) *RedisReportCache {
	return &RedisReportCache{client: client, logger: logger}
}

func (c *RedisReportCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, reportKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read report cache: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn("dropping corrupt report cache entry", zap.String("key", key), zap.Error(err))
		_ = c.client.Del(ctx, reportKeyPrefix+key)
		return false, nil
	}
	return true, nil
}

func (c *RedisReportCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return c.client.Set(ctx, reportKeyPrefix+key, data, ttl).Err()
}

func (c *RedisReportCache) InvalidatePrefix(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, reportKeyPrefix+prefix+"*", defaultScanBatchSize).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan report cache: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// InMemoryReportCache implements ReportCache in process memory.
type InMemoryReportCache struct {
	entries *ttlMap
}

func NewInMemoryReportCache() *InMemoryReportCache {
	return &InMemoryReportCache{entries: newTTLMap(time.Minute)}
}

func (c *InMemoryReportCache) Get(_ context.Context, key string, dest any) (bool, error) {
	data, ok := c.entries.get(key)
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *InMemoryReportCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	c.entries.set(key, data, ttl)
	return nil
}

func (c *InMemoryReportCache) InvalidatePrefix(_ context.Context, prefix string) error {
	c.entries.deletePrefix(prefix)
	return nil
}

// Close stops the janitor.
func (c *InMemoryReportCache) Close() error {
	c.entries.close()
	return nil
}

var (
	_ ReportCache = (*RedisReportCache)(nil)
	_ ReportCache = (*InMemoryReportCache)(nil)
)
