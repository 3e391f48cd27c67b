// Package coordination provides distributed coordination primitives using Redis.
package coordination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultLockTTL bounds how long a crashed holder can block a partition.
	DefaultLockTTL = 30 * time.Minute

	// DefaultRetryDelay is the delay between acquisition attempts while waiting.
	DefaultRetryDelay = 500 * time.Millisecond
)

var (
	// ErrLockNotAcquired is returned when another holder owns the lock.
	ErrLockNotAcquired = errors.New("lock not acquired")

	// ErrLockNotHeld is returned when releasing a lock that expired or was taken over.
	ErrLockNotHeld = errors.New("lock not held")
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// LockConfig holds configuration for a RedisLocker.
type LockConfig struct {
	TTL        time.Duration // lock time-to-live (default: 30m)
	Wait       time.Duration // how long Acquire keeps retrying; 0 fails fast
	RetryDelay time.Duration // delay between retries (default: 500ms)
	Prefix     string        // key prefix, e.g. "farepipe:lock:"
}

// RedisLocker hands out named single-holder locks.
type RedisLocker struct {
	client *redis.Client
	cfg    LockConfig
}

// NewRedisLocker creates a locker.
func NewRedisLocker(client *redis.Client, cfg LockConfig) *RedisLocker {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultLockTTL
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	return &RedisLocker{client: client, cfg: cfg}
}

// Acquire takes the lock named key. The returned release func deletes it only while
// this holder still owns it.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	redisKey := l.cfg.Prefix + key
	token := uuid.New().String()
	deadline := time.Now().Add(l.cfg.Wait)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.cfg.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}
		if ok {
			break
		}
		if !time.Now().Add(l.cfg.RetryDelay).Before(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockNotAcquired, key)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.cfg.RetryDelay):
		}
	}

	release := func(ctx context.Context) error {
		result, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int()
		if err != nil {
			return fmt.Errorf("failed to release lock: %w", err)
		}
		if result == 0 {
			return ErrLockNotHeld
		}
		return nil
	}
	return release, nil
}
