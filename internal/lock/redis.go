// Package lock serializes ingestions of the same tenant and dataset across
// server instances using Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/intake/internal/config"
	"github.com/JonMunkholm/intake/internal/core"
	"github.com/JonMunkholm/intake/internal/logging"
)

// DefaultTTL is used when a Locker is created with a non-positive TTL.
const DefaultTTL = 5 * time.Minute

// retryInterval is the pause between attempts while the caller's context
// is still alive.
const retryInterval = 100 * time.Millisecond

// Locker implements core.Locker with redislock.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
}

// New wraps an existing Redis client.
func New(rdb redislock.RedisClient, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Locker{client: redislock.New(rdb), ttl: ttl}
}

// Connect opens a Redis client from cfg and verifies it with PING.
// The returned client must be closed by the caller.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 10,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// Lock obtains key, retrying until ctx ends. The returned release func is
// safe to call once; release failures are logged because the TTL frees the
// key anyway.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	opts := &redislock.Options{RetryStrategy: redislock.LinearBackoff(retryInterval)}

	lk, err := l.client.Obtain(ctx, key, l.ttl, opts)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, fmt.Errorf("lock %s: %w", key, core.ErrIngestInProgress)
		}
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}

	return func() {
		if err := lk.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logging.FromContext(ctx).Warn("lock release failed", "key", key, "error", err)
		}
	}, nil
}

var _ core.Locker = (*Locker)(nil)
