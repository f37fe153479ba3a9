package accounts

import (
	"context"
	"errors"
)

// ErrNotFound indicates no account exists for the phone on this store's chain.
var ErrNotFound = errors.New("account not found")

// ErrExists indicates an insert collided with an existing record.
var ErrExists = errors.New("account already exists")

// Store persists user records for a single chain, keyed by normalized phone
// number. The production deployment may back this with the on-chain contract
// registry; this repo ships Postgres and in-memory backends behind the same
// boundary.
type Store interface {
	Find(ctx context.Context, phone string) (Account, error)
	Insert(ctx context.Context, account Account) error
	// Update replaces address and encrypted secret; created_at is immutable.
	Update(ctx context.Context, account Account) error
	// Delete removes a record. Admin-gated at the call sites that expose it.
	Delete(ctx context.Context, phone string) error
}
