package accounts

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu      sync.RWMutex
	storage map[string]Account
}

// NewMemoryStore constructs an in-memory store for tests and local
// development without a database.
func NewMemoryStore() Store {
	return &memoryStore{storage: make(map[string]Account)}
}

func (s *memoryStore) Find(_ context.Context, phone string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.storage[phone]
	if !ok {
		return Account{}, ErrNotFound
	}
	return account, nil
}

func (s *memoryStore) Insert(_ context.Context, account Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.storage[account.Phone]; exists {
		return ErrExists
	}
	s.storage[account.Phone] = account
	return nil
}

func (s *memoryStore) Update(_ context.Context, account Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.storage[account.Phone]
	if !ok {
		return ErrNotFound
	}
	existing.Address = account.Address
	existing.EncryptedSecret = account.EncryptedSecret
	s.storage[account.Phone] = existing
	return nil
}

func (s *memoryStore) Delete(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.storage[phone]; !ok {
		return ErrNotFound
	}
	delete(s.storage, phone)
	return nil
}
