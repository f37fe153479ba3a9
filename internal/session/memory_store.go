package session

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu      sync.Mutex
	pending map[string]Pending
}

// NewMemoryStore constructs the default per-process store. Sessions are
// intentionally ephemeral; a restart drops them and users restart their
// command.
func NewMemoryStore() Store {
	return &memoryStore{pending: make(map[string]Pending)}
}

func (s *memoryStore) Set(_ context.Context, phone string, p Pending) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[phone] = p
	return nil
}

func (s *memoryStore) GetAndClear(_ context.Context, phone string) (Pending, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[phone]
	if ok {
		delete(s.pending, phone)
	}
	return p, ok, nil
}
