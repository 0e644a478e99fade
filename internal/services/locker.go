package services

import (
	"context"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisLocker serializes reconciliation of one reference across server and
// worker processes. The database transition stays the source of truth; the
// lock only keeps concurrent reports from racing to the gateway.
type RedisLocker struct {
	rs     *redsync.Redsync
	expiry time.Duration
	log    *zap.Logger
}

func NewRedisLocker(rdb *redis.Client, expiry time.Duration, log *zap.Logger) *RedisLocker {
	if log == nil {
		log = zap.NewNop()
	}
	if expiry <= 0 {
		expiry = time.Minute
	}
	pool := goredis.NewPool(rdb)
	return &RedisLocker{rs: redsync.New(pool), expiry: expiry, log: log}
}

// Acquire blocks until the lock is held, ctx is done or retries run out
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(
		"lock:"+key,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(40),
		redsync.WithRetryDelay(250*time.Millisecond),
	)

	if err := mutex.LockContext(ctx); err != nil {
		return nil, err
	}

	return func() {
		// release even when the caller's context is already cancelled
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if _, err := mutex.UnlockContext(unlockCtx); err != nil {
			l.log.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
