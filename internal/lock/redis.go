package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ledger:lock:"

// RedisOptions tunes the redsync mutexes behind a Redis locker.
type RedisOptions struct {
	Expiry      time.Duration
	Tries       int
	RetryDelay  time.Duration
	DriftFactor float64
}

// DefaultRedisOptions returns options suited to short ledger mutations.
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Expiry:      10 * time.Second,
		Tries:       3,
		RetryDelay:  500 * time.Millisecond,
		DriftFactor: 0.01,
	}
}

// Redis is a distributed Locker backed by redsync, for running several
// ledger processes against one store.
type Redis struct {
	rs   *redsync.Redsync
	opts RedisOptions
}

// NewRedis builds a Redis locker on an existing client.
func NewRedis(client redis.UniversalClient, opts RedisOptions) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if opts.Expiry <= 0 || opts.Tries <= 0 {
		return nil, fmt.Errorf("invalid lock options: expiry %s, tries %d", opts.Expiry, opts.Tries)
	}
	pool := goredis.NewPool(client)
	return &Redis{rs: redsync.New(pool), opts: opts}, nil
}

// ConnectRedis opens a client to addr and checks it with a ping.
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	slog.Info("connected to redis", "addr", addr)
	return client, nil
}

func (r *Redis) Lock(ctx context.Context, keys ...string) (Handle, error) {
	keys = Normalize(keys)
	held := make([]*redsync.Mutex, 0, len(keys))

	for _, key := range keys {
		mutex := r.rs.NewMutex(
			redisKeyPrefix+key,
			redsync.WithExpiry(r.opts.Expiry),
			redsync.WithTries(r.opts.Tries),
			redsync.WithRetryDelay(r.opts.RetryDelay),
			redsync.WithDriftFactor(r.opts.DriftFactor),
		)
		if err := mutex.LockContext(ctx); err != nil {
			unlockAll(context.WithoutCancel(ctx), held)
			if ctx.Err() != nil {
				return nil, fmt.Errorf("failed to acquire lock %s: %w", key, ctx.Err())
			}
			slog.Warn("failed to acquire lock", "key", key, "error", err)
			return nil, fmt.Errorf("%w: %s: %v", ErrContention, key, err)
		}
		held = append(held, mutex)
	}
	return &redisHandle{mutexes: held}, nil
}

type redisHandle struct {
	mutexes []*redsync.Mutex
}

func (h *redisHandle) Unlock(ctx context.Context) error {
	return unlockAll(ctx, h.mutexes)
}

func unlockAll(ctx context.Context, mutexes []*redsync.Mutex) error {
	var errs []error
	for i := len(mutexes) - 1; i >= 0; i-- {
		if ok, err := mutexes[i].UnlockContext(ctx); !ok || err != nil {
			if err == nil {
				err = errors.New("lock expired before release")
			}
			slog.Error("failed to release lock", "key", mutexes[i].Name(), "unlock_ok", ok, "error", err)
			errs = append(errs, fmt.Errorf("failed to release lock %s: %w", mutexes[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}
