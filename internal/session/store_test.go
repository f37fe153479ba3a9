package session

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pigeon-sms/pigeon/internal/chain"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(cache, 5*time.Minute),
	}
}

func TestSingleConsumption(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			p := Pending{
				Action:     ActionSend,
				SendParams: SendParams{Amount: "5", Asset: "ALGO", To: "9912345678"},
				Chain:      chain.Algorand,
				CreatedAt:  time.Now().UTC().Truncate(time.Second),
			}
			if err := store.Set(ctx, "555", p); err != nil {
				t.Fatalf("set: %v", err)
			}

			got, ok, err := store.GetAndClear(ctx, "555")
			if err != nil || !ok {
				t.Fatalf("first GetAndClear: ok=%v err=%v", ok, err)
			}
			if got.Action != ActionSend || got.SendParams != p.SendParams || got.Chain != chain.Algorand {
				t.Fatalf("unexpected session: %+v", got)
			}

			if _, ok, err := store.GetAndClear(ctx, "555"); err != nil || ok {
				t.Fatalf("second GetAndClear must return none: ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestLastWriteWins(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			first := Pending{Action: ActionOnboard, Chain: chain.Algorand, CreatedAt: time.Now().UTC()}
			second := Pending{Action: ActionExportSecret, Chain: chain.Solana, CreatedAt: time.Now().UTC()}
			if err := store.Set(ctx, "555", first); err != nil {
				t.Fatalf("set: %v", err)
			}
			if err := store.Set(ctx, "555", second); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, ok, _ := store.GetAndClear(ctx, "555")
			if !ok || got.Action != ActionExportSecret {
				t.Fatalf("expected overwriting session, got %+v ok=%v", got, ok)
			}
		})
	}
}

func TestConcurrentConsumersSeeOneSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Set(ctx, "555", Pending{Action: ActionOnboard, Chain: chain.Algorand, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("set: %v", err)
	}

	var wg sync.WaitGroup
	var hits int32
	var mu sync.Mutex
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := store.GetAndClear(ctx, "555"); ok {
				mu.Lock()
				hits++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if hits != 1 {
		t.Fatalf("session consumed %d times, want exactly 1", hits)
	}
}

func TestExpiredIsConsumerDecision(t *testing.T) {
	now := time.Now()
	p := Pending{CreatedAt: now.Add(-6 * time.Minute)}
	if !p.Expired(now, 5*time.Minute) {
		t.Fatalf("session older than TTL must report expired")
	}
	p = Pending{CreatedAt: now.Add(-4 * time.Minute)}
	if p.Expired(now, 5*time.Minute) {
		t.Fatalf("session within TTL must not report expired")
	}
}

func TestDifferentPhonesIndependent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Set(ctx, "111", Pending{Action: ActionOnboard, CreatedAt: time.Now()})
	store.Set(ctx, "222", Pending{Action: ActionSend, CreatedAt: time.Now()})

	if _, ok, _ := store.GetAndClear(ctx, "111"); !ok {
		t.Fatalf("phone 111 session missing")
	}
	if _, ok, _ := store.GetAndClear(ctx, "222"); !ok {
		t.Fatalf("phone 222 session missing")
	}
}
