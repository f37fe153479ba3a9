package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const grantPrefix = "fund:last:"

// RedisLimiter shares the cooldown state across instances. The key holds the
// last grant time in unix milliseconds and self-evicts after the cooldown,
// which makes an absent key equivalent to an expired window.
type RedisLimiter struct {
	cache    *redis.Client
	cooldown time.Duration
}

// NewRedisLimiter builds a limiter backed by Redis.
func NewRedisLimiter(cache *redis.Client, cooldown time.Duration) *RedisLimiter {
	return &RedisLimiter{cache: cache, cooldown: cooldown}
}

func (l *RedisLimiter) Allow(ctx context.Context, phone string, now time.Time) (bool, time.Duration, error) {
	raw, err := l.cache.Get(ctx, grantPrefix+phone).Result()
	if errors.Is(err, redis.Nil) {
		return true, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	lastMs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return true, 0, nil
	}
	elapsed := now.Sub(time.UnixMilli(lastMs))
	if elapsed >= l.cooldown {
		return true, 0, nil
	}
	return false, l.cooldown - elapsed, nil
}

func (l *RedisLimiter) MarkGranted(ctx context.Context, phone string, now time.Time) error {
	return l.cache.Set(ctx, grantPrefix+phone, strconv.FormatInt(now.UnixMilli(), 10), l.cooldown).Err()
}
