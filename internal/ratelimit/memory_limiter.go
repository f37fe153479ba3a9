package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryLimiter struct {
	cooldown time.Duration

	mu        sync.Mutex
	lastGrant map[string]time.Time
}

// NewMemoryLimiter tracks grants in process memory.
func NewMemoryLimiter(cooldown time.Duration) Limiter {
	return &memoryLimiter{cooldown: cooldown, lastGrant: make(map[string]time.Time)}
}

func (l *memoryLimiter) Allow(_ context.Context, phone string, now time.Time) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	last, ok := l.lastGrant[phone]
	if !ok {
		return true, 0, nil
	}
	elapsed := now.Sub(last)
	if elapsed >= l.cooldown {
		return true, 0, nil
	}
	return false, l.cooldown - elapsed, nil
}

func (l *memoryLimiter) MarkGranted(_ context.Context, phone string, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastGrant[phone] = now
	return nil
}
