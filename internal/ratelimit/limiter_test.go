package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func limiters(t *testing.T, cooldown time.Duration) map[string]Limiter {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	return map[string]Limiter{
		"memory": NewMemoryLimiter(cooldown),
		"redis":  NewRedisLimiter(cache, cooldown),
	}
}

func TestFirstGrantAllowed(t *testing.T) {
	ctx := context.Background()
	for name, lim := range limiters(t, 24*time.Hour) {
		t.Run(name, func(t *testing.T) {
			ok, wait, err := lim.Allow(ctx, "555", time.Now())
			if err != nil || !ok || wait != 0 {
				t.Fatalf("first grant: ok=%v wait=%v err=%v", ok, wait, err)
			}
		})
	}
}

func TestWindowBoundary(t *testing.T) {
	ctx := context.Background()
	cooldown := 24 * time.Hour
	for name, lim := range limiters(t, cooldown) {
		t.Run(name, func(t *testing.T) {
			granted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			if err := lim.MarkGranted(ctx, "555", granted); err != nil {
				t.Fatalf("mark granted: %v", err)
			}

			// One millisecond before the boundary: still limited.
			ok, wait, err := lim.Allow(ctx, "555", granted.Add(cooldown-time.Millisecond))
			if err != nil {
				t.Fatalf("allow: %v", err)
			}
			if ok {
				t.Fatalf("grant 1ms before the boundary must be limited")
			}
			if wait <= 0 || wait > time.Millisecond {
				t.Fatalf("unexpected remaining wait %v", wait)
			}

			// Exactly at the boundary: allowed.
			ok, _, err = lim.Allow(ctx, "555", granted.Add(cooldown))
			if err != nil || !ok {
				t.Fatalf("grant exactly at the boundary must succeed: ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestPhonesLimitedIndependently(t *testing.T) {
	ctx := context.Background()
	lim := NewMemoryLimiter(24 * time.Hour)
	now := time.Now()
	lim.MarkGranted(ctx, "111", now)

	if ok, _, _ := lim.Allow(ctx, "111", now.Add(time.Hour)); ok {
		t.Fatalf("phone 111 should be limited")
	}
	if ok, _, _ := lim.Allow(ctx, "222", now.Add(time.Hour)); !ok {
		t.Fatalf("phone 222 must not share 111's window")
	}
}

func TestFailedGrantDoesNotConsumeWindow(t *testing.T) {
	ctx := context.Background()
	lim := NewMemoryLimiter(24 * time.Hour)
	now := time.Now()

	// Allow without MarkGranted: a later attempt is still allowed.
	if ok, _, _ := lim.Allow(ctx, "555", now); !ok {
		t.Fatalf("first allow failed")
	}
	if ok, _, _ := lim.Allow(ctx, "555", now.Add(time.Minute)); !ok {
		t.Fatalf("window consumed without a successful grant")
	}
}
