package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrSetWithoutCache(t *testing.T) {
	calls := 0
	v, err := GetOrSet[int](nil, context.Background(), "event:x", time.Minute, func() (int, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
}

func TestGetOrSetFallsBackWhenRedisIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	cache := NewRedisCacheFromClient(client, nil)
	defer cache.Close()

	v, err := GetOrSet(cache, context.Background(), "event:lagos-live", time.Minute, func() (string, error) {
		return "Lagos Live", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Lagos Live", v)

	_, err = GetOrSet(cache, context.Background(), "event:missing", time.Minute, func() (string, error) {
		return "", ErrEventNotFound
	})
	assert.True(t, errors.Is(err, ErrEventNotFound))
}
