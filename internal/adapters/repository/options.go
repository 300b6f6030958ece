package repository

import (
	"time"

	"github.com/okian/cadis/pkg/logger"
)

// Default cache configuration constants.
const (
	defaultCacheTTL    = 10 * time.Minute
	defaultCachePrefix = "cadis:run:"
)

// CacheOption applies a configuration option to the Cache.
type CacheOption func(*Cache)

// WithTTL sets how long a cached run stays in Redis.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithKeyPrefix sets the Redis key prefix for cached runs.
func WithKeyPrefix(prefix string) CacheOption {
	return func(c *Cache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithCacheLogger sets a custom logger for the cache.
func WithCacheLogger(l logger.Logger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}
