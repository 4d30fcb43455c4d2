package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/molprop/platform/pkg/errors"
)

// ErrLockNotAcquired reports that another worker already holds the run.
var ErrLockNotAcquired = errors.New(errors.ErrCodeConflict, "lock not acquired")

const (
	lockKeyPrefix   = "lock:"
	defaultLockTTL  = 5 * time.Minute
	lockRetryDelay  = 200 * time.Millisecond
	defaultRetries  = 25
)

// unlockScript deletes the key only when the token still matches, so a
// worker cannot release a lock that expired and was re-acquired elsewhere.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry only for the current holder.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RunMutex serializes workers on a single run directory.  Two jobs for the
// same run racing the toolkit would interleave their logs and outputs.
type RunMutex struct {
	client *Client
	key    string
	token  string
	ttl    time.Duration
}

// NewRunMutex builds a mutex named after the run ID.
func (c *Client) NewRunMutex(runID string, ttl time.Duration) *RunMutex {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RunMutex{
		client: c,
		key:    c.cfg.KeyPrefix + lockKeyPrefix + runID,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// TryLock attempts one non-blocking acquisition.
func (m *RunMutex) TryLock(ctx context.Context) (bool, error) {
	ok, err := m.client.rdb.SetNX(ctx, m.key, m.token, m.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "lock acquire failed")
	}
	return ok, nil
}

// Lock blocks with retries until acquired, the retries run out, or ctx ends.
func (m *RunMutex) Lock(ctx context.Context) error {
	for attempt := 0; attempt <= defaultRetries; attempt++ {
		ok, err := m.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), errors.ErrCodeConflict, "lock wait canceled")
		case <-time.After(lockRetryDelay):
		}
	}
	return ErrLockNotAcquired
}

// Unlock releases the mutex when still held by this owner.
func (m *RunMutex) Unlock(ctx context.Context) error {
	n, err := unlockScript.Run(ctx, m.client.rdb, []string{m.key}, m.token).Int()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "lock release failed")
	}
	if n == 0 {
		return errors.New(errors.ErrCodeConflict, "lock not held by this owner")
	}
	return nil
}

// Extend pushes the expiry forward for long toolkit runs.
func (m *RunMutex) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	n, err := extendScript.Run(ctx, m.client.rdb, []string{m.key}, m.token, ttl.Milliseconds()).Int()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "lock extend failed")
	}
	return n == 1, nil
}
