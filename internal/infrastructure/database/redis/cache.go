package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
)

// ErrCacheMiss reports an absent key; callers fall through to the loader or
// the database.
var ErrCacheMiss = errors.New(errors.ErrCodeNotFound, "cache miss")

const (
	defaultPrefix = "molprop:"
	defaultTTL    = 15 * time.Minute
)

// Cache is a JSON value cache over Redis.  Lookup results, table previews
// and fingerprint summaries go through here so repeated dashboard requests
// do not recompute them.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	GetOrSet(ctx context.Context, key string, dest any, ttl time.Duration, loader func(ctx context.Context) (any, error)) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Ping(ctx context.Context) error
}

// CacheMetrics receives hit and miss counts per cache name.  Satisfied by
// the prometheus metrics set.
type CacheMetrics interface {
	CacheHit(cache string)
	CacheMiss(cache string)
}

type redisCache struct {
	client     *Client
	rdb        redis.Cmdable
	logger     logging.Logger
	prefix     string
	defaultTTL time.Duration
	metrics    CacheMetrics
	name       string
	group      singleflight.Group
}

// CacheOption customizes a cache instance.
type CacheOption func(*redisCache)

// WithPrefix overrides the key namespace.
func WithPrefix(prefix string) CacheOption {
	return func(c *redisCache) { c.prefix = prefix }
}

// WithDefaultTTL overrides the expiry used when Set is called with ttl <= 0.
func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(c *redisCache) { c.defaultTTL = ttl }
}

// WithMetrics wires hit and miss counters into every read.
func WithMetrics(m CacheMetrics) CacheOption {
	return func(c *redisCache) { c.metrics = m }
}

// NewCache builds a cache over an established client.  The configured
// key prefix and default TTL seed the options.
func NewCache(client *Client, log logging.Logger, opts ...CacheOption) Cache {
	c := &redisCache{
		client:     client,
		rdb:        client.rdb,
		logger:     log.Named("cache"),
		prefix:     defaultPrefix,
		defaultTTL: defaultTTL,
		name:       "redis",
	}
	if client.cfg.KeyPrefix != "" {
		c.prefix = client.cfg.KeyPrefix
	}
	if client.cfg.DefaultTTL > 0 {
		c.defaultTTL = client.cfg.DefaultTTL
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *redisCache) key(k string) string {
	return c.prefix + k
}

// jitterTTL spreads expiries by ±10% so hot keys do not stampede together.
func jitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	jitter := time.Duration(rand.Int63n(int64(ttl)/5+1)) - ttl/10
	return ttl + jitter
}

func (c *redisCache) recordHit() {
	if c.metrics != nil {
		c.metrics.CacheHit(c.name)
	}
}

func (c *redisCache) recordMiss() {
	if c.metrics != nil {
		c.metrics.CacheMiss(c.name)
	}
}

func (c *redisCache) Get(ctx context.Context, key string, dest any) error {
	data, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		c.recordMiss()
		return ErrCacheMiss
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache get failed")
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "cannot decode cached value")
	}
	c.recordHit()
	return nil
}

func (c *redisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "cannot encode cache value")
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if err := c.rdb.Set(ctx, c.key(key), data, jitterTTL(ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache set failed")
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	if err := c.rdb.Del(ctx, full...).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache delete failed")
	}
	return nil
}

func (c *redisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "cache exists failed")
	}
	return n > 0, nil
}

// GetOrSet loads through the cache.  Concurrent misses for the same key
// share one loader call via singleflight.
func (c *redisCache) GetOrSet(ctx context.Context, key string, dest any, ttl time.Duration, loader func(ctx context.Context) (any, error)) error {
	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	} else if !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn("cache read failed, falling through to loader",
			logging.String("key", key), logging.Err(err))
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if setErr := c.Set(ctx, key, v, ttl); setErr != nil {
			c.logger.Warn("cache backfill failed", logging.String("key", key), logging.Err(setErr))
		}
		return v, nil
	})
	if err != nil {
		return err
	}

	// Round-trip through JSON so dest gets the same shape a cache hit
	// would produce.
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "cannot encode loaded value")
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "cannot decode loaded value")
	}
	return nil
}

// DeleteByPrefix removes all keys under prefix using SCAN, returning the
// number deleted.  Used when a run is purged.
func (c *redisCache) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	var deleted int64
	pattern := c.key(prefix) + "*"
	iter := c.rdb.Scan(ctx, 0, pattern, 200).Iterator()
	batch := make([]string, 0, 200)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 200 {
			n, err := c.rdb.Del(ctx, batch...).Result()
			if err != nil {
				return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "cache prefix delete failed")
			}
			deleted += n
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "cache scan failed")
	}
	if len(batch) > 0 {
		n, err := c.rdb.Del(ctx, batch...).Result()
		if err != nil {
			return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "cache prefix delete failed")
		}
		deleted += n
	}
	return deleted, nil
}

func (c *redisCache) Incr(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.Incr(ctx, c.key(key)).Result()
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeCacheError, "cache incr failed")
	}
	return n, nil
}

func (c *redisCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.rdb.Expire(ctx, c.key(key), ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache expire failed")
	}
	return nil
}

func (c *redisCache) Ping(ctx context.Context) error {
	return c.client.HealthCheck(ctx)
}
