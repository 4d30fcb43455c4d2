package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molprop/platform/internal/config"
	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
)

// fakeCmdable serves Get from a map; every other command panics via the
// embedded nil interface.
type fakeCmdable struct {
	redis.Cmdable
	values map[string]string
}

func (f fakeCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	if v, ok := f.values[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

type countingMetrics struct {
	hits   int
	misses int
}

func (m *countingMetrics) CacheHit(string)  { m.hits++ }
func (m *countingMetrics) CacheMiss(string) { m.misses++ }

func TestNewCacheTakesPrefixAndTTLFromConfig(t *testing.T) {
	client := &Client{cfg: config.RedisConfig{KeyPrefix: "mp:", DefaultTTL: time.Minute}}
	c := NewCache(client, logging.NewNopLogger()).(*redisCache)

	assert.Equal(t, "mp:", c.prefix)
	assert.Equal(t, time.Minute, c.defaultTTL)
	assert.Equal(t, "mp:lookup:CCO", c.key("lookup:CCO"))
}

func TestNewCacheDefaults(t *testing.T) {
	c := NewCache(&Client{}, logging.NewNopLogger()).(*redisCache)

	assert.Equal(t, defaultPrefix, c.prefix)
	assert.Equal(t, defaultTTL, c.defaultTTL)
}

func TestNewCacheOptionsWin(t *testing.T) {
	client := &Client{cfg: config.RedisConfig{KeyPrefix: "mp:"}}
	c := NewCache(client, logging.NewNopLogger(),
		WithPrefix("other:"), WithDefaultTTL(time.Second)).(*redisCache)

	assert.Equal(t, "other:", c.prefix)
	assert.Equal(t, time.Second, c.defaultTTL)
}

func TestGetCountsHitsAndMisses(t *testing.T) {
	rec := &countingMetrics{}
	c := NewCache(&Client{}, logging.NewNopLogger(), WithMetrics(rec)).(*redisCache)
	c.rdb = fakeCmdable{values: map[string]string{
		c.key("lookup:CCO"): `{"id":"CPD-001"}`,
	}}

	var hit map[string]string
	require.NoError(t, c.Get(context.Background(), "lookup:CCO", &hit))
	assert.Equal(t, "CPD-001", hit["id"])

	var miss map[string]string
	assert.ErrorIs(t, c.Get(context.Background(), "lookup:absent", &miss), ErrCacheMiss)

	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 1, rec.misses)
}

func TestJitterTTLStaysWithinTenPercent(t *testing.T) {
	base := 10 * time.Minute
	for i := 0; i < 200; i++ {
		got := jitterTTL(base)
		assert.GreaterOrEqual(t, got, base-base/10)
		assert.LessOrEqual(t, got, base+base/10)
	}
}

func TestJitterTTLZeroPassthrough(t *testing.T) {
	assert.Equal(t, time.Duration(0), jitterTTL(0))
}
