package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/cadis/internal/domain/model"
	"github.com/okian/cadis/pkg/logger"
	"github.com/okian/cadis/pkg/metrics"
)

// Cache is a read-through Redis cache in front of another Store. Redis
// failures are logged and never fail a call the backing store can serve.
type Cache struct {
	next   Store
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
	logger logger.Logger
}

// NewCache wraps next with a Redis cache of run results.
func NewCache(next Store, rdb redis.Cmdable, opts ...CacheOption) *Cache {
	c := &Cache{
		next:   next,
		rdb:    rdb,
		ttl:    defaultCacheTTL,
		prefix: defaultCachePrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("run-cache")
	}
	return c
}

func (c *Cache) key(runID string) string { return c.prefix + runID }

// SaveRun writes through to the backing store and then refreshes the cache.
func (c *Cache) SaveRun(ctx context.Context, result model.RunResult) error {
	if err := c.next.SaveRun(ctx, result); err != nil {
		return err
	}
	c.put(ctx, result)
	return nil
}

// GetRun serves from Redis when it can and fills it on a miss.
func (c *Cache) GetRun(ctx context.Context, runID string) (model.RunResult, error) {
	b, err := c.rdb.Get(ctx, c.key(runID)).Bytes()
	switch {
	case err == nil:
		r, derr := decodeRun(b)
		if derr == nil {
			return r, nil
		}
		c.logger.Warn(ctx, "dropping undecodable cached run", logger.String("runID", runID), logger.Error(derr))
		c.rdb.Del(ctx, c.key(runID))
	case !errors.Is(err, redis.Nil):
		metrics.RecordPersistenceError("redis")
		c.logger.Warn(ctx, "cache read failed", logger.String("runID", runID), logger.Error(err))
	}

	r, err := c.next.GetRun(ctx, runID)
	if err != nil {
		return model.RunResult{}, err
	}
	c.put(ctx, r)
	return r, nil
}

func (c *Cache) put(ctx context.Context, r model.RunResult) {
	b, err := encodeRun(r)
	if err != nil {
		c.logger.Warn(ctx, "cache encode failed", logger.String("runID", r.Report.RunID), logger.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, c.key(r.Report.RunID), b, c.ttl).Err(); err != nil {
		metrics.RecordPersistenceError("redis")
		c.logger.Warn(ctx, "cache write failed", logger.String("runID", r.Report.RunID), logger.Error(err))
	}
}

// SaveSimulation implements Store; simulations are not cached.
func (c *Cache) SaveSimulation(ctx context.Context, result model.SimulationResult) error {
	return c.next.SaveSimulation(ctx, result)
}

// Close closes the backing store. The Redis client is owned by the caller.
func (c *Cache) Close() error {
	return c.next.Close()
}
