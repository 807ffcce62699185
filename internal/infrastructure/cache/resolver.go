// Package cache adds an optional Redis layer in front of compound name
// resolution.  Name-to-CID mappings are immutable upstream, so a generous TTL
// is safe and saves the bulk of repeat lookups.
package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/robotu/molkit/internal/config"
	"github.com/robotu/molkit/internal/infrastructure/logging"
	"github.com/robotu/molkit/pkg/errors"
)

// Resolver is the upstream operation being cached.
type Resolver interface {
	ResolveName(ctx context.Context, name string) (int64, error)
}

// CachedResolver decorates a Resolver with a Redis lookaside cache.  Cache
// failures are never fatal: a Redis outage degrades to direct upstream calls.
type CachedResolver struct {
	next   Resolver
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger logging.Logger
}

// NewCachedResolver builds the caching decorator.  When cfg.Addr is empty the
// upstream resolver is returned unwrapped and Redis is never dialed.
func NewCachedResolver(cfg config.RedisConfig, next Resolver, logger logging.Logger) Resolver {
	if cfg.Addr == "" {
		return next
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "molkit"
	}
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedResolver{
		next: next,
		rdb: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ttl:    ttl,
		prefix: prefix,
		logger: logger.Named("cache"),
	}
}

// ResolveName returns the cached CID when present, otherwise asks the
// upstream resolver and stores the answer.  Only definitive answers are
// cached; transient upstream failures must stay retryable.
func (c *CachedResolver) ResolveName(ctx context.Context, name string) (int64, error) {
	key := c.key(name)

	val, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		cid, perr := strconv.ParseInt(val, 10, 64)
		if perr == nil {
			return cid, nil
		}
		c.logger.Warn("dropping corrupt cache entry", logging.String("key", key))
		c.rdb.Del(ctx, key)
	case err != redis.Nil:
		c.logger.Warn("cache read failed, falling through", logging.Err(err))
	}

	cid, err := c.next.ResolveName(ctx, name)
	if err != nil {
		return 0, err
	}

	if err := c.rdb.Set(ctx, key, strconv.FormatInt(cid, 10), c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", logging.Err(err))
	}
	return cid, nil
}

// Ping verifies Redis connectivity, for startup health reporting.
func (c *CachedResolver) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "redis ping")
	}
	return nil
}

// Close releases the Redis connection pool.
func (c *CachedResolver) Close() error {
	return c.rdb.Close()
}

func (c *CachedResolver) key(name string) string {
	return c.prefix + ":cid:" + strings.ToLower(strings.TrimSpace(name))
}
