package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/roach88/esq/internal/ir"
	"github.com/roach88/esq/internal/logger"
	"github.com/roach88/esq/internal/metrics"
)

// Cache stores encoded responses by key.
type Cache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache is a Cache over a Redis client.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCache creates a cache whose keys are prefixed with prefix.
func NewRedisCache(client redis.UniversalClient, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

type cached struct {
	next    Executor
	cache   Cache
	ttl     time.Duration
	metrics *metrics.Executions
}

// Cached serves plain searches from cache, keyed by the request hash of
// index and document. Cursor requests always reach the cluster. Cache
// failures are logged and fall through to the next executor. m may be nil.
func Cached(next Executor, cache Cache, ttl time.Duration, m *metrics.Executions) Executor {
	return &cached{next: next, cache: cache, ttl: ttl, metrics: m}
}

func (c *cached) Execute(ctx context.Context, req Request) (*Response, error) {
	log := logger.FromContext(ctx)

	key, err := ir.RequestHash(req.Index, req.Document)
	if err != nil {
		return nil, fmt.Errorf("cache key: %w", err)
	}

	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		var resp Response
		if err := json.Unmarshal(data, &resp); err == nil {
			c.record(true)
			return &resp, nil
		}
		log.Warn("cached response is corrupt", zap.String("key", key))
	}
	c.record(false)

	resp, err := c.next.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resp); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return resp, nil
}

func (c *cached) ExecuteWithCursor(ctx context.Context, req Request) (*Response, error) {
	return c.next.ExecuteWithCursor(ctx, req)
}

func (c *cached) ClearCursor(ctx context.Context, scrollID string) error {
	return c.next.ClearCursor(ctx, scrollID)
}

func (c *cached) record(hit bool) {
	if c.metrics != nil {
		c.metrics.CacheResult(hit)
	}
}
