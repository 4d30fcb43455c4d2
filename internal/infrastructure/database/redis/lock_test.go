package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/molprop/platform/internal/config"
)

func TestNewRunMutexKeyAndTTL(t *testing.T) {
	client := &Client{cfg: config.RedisConfig{KeyPrefix: "mp:"}}

	m := client.NewRunMutex("run_20250101_120000_1735732800", time.Minute)
	assert.Equal(t, "mp:lock:run_20250101_120000_1735732800", m.key)
	assert.Equal(t, time.Minute, m.ttl)
	assert.NotEmpty(t, m.token)
}

func TestNewRunMutexDefaultTTL(t *testing.T) {
	m := (&Client{}).NewRunMutex("run_x", 0)
	assert.Equal(t, defaultLockTTL, m.ttl)
}

func TestNewRunMutexTokensAreUnique(t *testing.T) {
	c := &Client{}
	a := c.NewRunMutex("run_x", time.Minute)
	b := c.NewRunMutex("run_x", time.Minute)
	assert.NotEqual(t, a.token, b.token)
}
