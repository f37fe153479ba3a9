package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionPrefix = "session:v1:"

// RedisStore shares pending sessions across instances. GETDEL gives the same
// consume-exactly-once guarantee as the in-memory store. Keys expire at twice
// the session TTL as a floor sweep; the consumer still applies the real TTL
// from CreatedAt.
type RedisStore struct {
	cache *redis.Client
	ttl   time.Duration
}

// NewRedisStore builds a store whose keys self-evict after 2×ttl.
func NewRedisStore(cache *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{cache: cache, ttl: ttl}
}

func (s *RedisStore) Set(ctx context.Context, phone string, p Pending) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, sessionPrefix+phone, payload, 2*s.ttl).Err()
}

func (s *RedisStore) GetAndClear(ctx context.Context, phone string) (Pending, bool, error) {
	raw, err := s.cache.GetDel(ctx, sessionPrefix+phone).Result()
	if errors.Is(err, redis.Nil) {
		return Pending{}, false, nil
	}
	if err != nil {
		return Pending{}, false, err
	}
	var p Pending
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Pending{}, false, err
	}
	return p, true, nil
}
