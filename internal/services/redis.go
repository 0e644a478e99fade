package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "ticketing:"

// RedisCache is a read-through JSON cache for public, non-authoritative
// data such as event info. Payment state is never cached.
type RedisCache struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisCacheFromClient(client *redis.Client, log *zap.Logger) *RedisCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisCache{client: client, log: log}
}

// NewRedisCache connects to REDIS_URL and pings it once
func NewRedisCache(redisURL string, log *zap.Logger) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	log.Info("redis connection established", zap.String("addr", opt.Addr))
	return NewRedisCacheFromClient(client, log), nil
}

func (c *RedisCache) set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKeyPrefix+key, data, ttl).Err()
}

// get reports (false, nil) on a miss
func (c *RedisCache) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, cacheKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, dest)
}

// GetOrSet returns the cached value for key or loads it with fn and caches
// it for ttl. Errors from fn are never cached. When redis misbehaves (or the
// cache is nil) the value is loaded from fn directly.
func GetOrSet[T any](c *RedisCache, ctx context.Context, key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	if c == nil {
		return fn()
	}

	var cached T
	hit, err := c.get(ctx, key, &cached)
	if err != nil {
		c.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit && err == nil {
		return cached, nil
	}

	result, err := fn()
	if err != nil {
		return result, err
	}
	if err := c.set(ctx, key, result, ttl); err != nil {
		c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return result, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Client exposes the connection for the reconciliation locker
func (c *RedisCache) Client() *redis.Client {
	return c.client
}
