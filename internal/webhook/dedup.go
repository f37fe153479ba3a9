package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventFilter suppresses reprocessing of at-least-once webhook deliveries.
// Seen marks the id and reports whether it had already been marked within
// the retention window; the first caller for an id gets false and performs
// the side effects, every later caller within the window gets true.
type EventFilter interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

type memoryFilter struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewMemoryFilter tracks event ids in process memory. Expired ids are
// evicted lazily on access.
func NewMemoryFilter(window time.Duration, now func() time.Time) EventFilter {
	if now == nil {
		now = time.Now
	}
	return &memoryFilter{window: window, now: now, seen: make(map[string]time.Time)}
}

func (f *memoryFilter) Seen(_ context.Context, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	for id, at := range f.seen {
		if now.Sub(at) > f.window {
			delete(f.seen, id)
		}
	}
	if _, ok := f.seen[eventID]; ok {
		return true, nil
	}
	f.seen[eventID] = now
	return false, nil
}

type redisFilter struct {
	rdb    *redis.Client
	window time.Duration
}

// NewRedisFilter tracks event ids in Redis so deduplication holds across
// instances. SetNX makes mark-if-absent a single round trip.
func NewRedisFilter(rdb *redis.Client, window time.Duration) EventFilter {
	return &redisFilter{rdb: rdb, window: window}
}

func (f *redisFilter) Seen(ctx context.Context, eventID string) (bool, error) {
	ok, err := f.rdb.SetNX(ctx, "webhook:event:"+eventID, "1", f.window).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}
