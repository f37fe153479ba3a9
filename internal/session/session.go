// Package session holds the transient per-phone state of the two-step
// password flow: a command arrives without a password, the dispatcher parks
// it here, and the user's next message consumes it.
package session

import (
	"context"
	"time"

	"github.com/pigeon-sms/pigeon/internal/chain"
)

// Action identifies the deferred operation waiting for a password.
type Action string

const (
	ActionSend         Action = "send"
	ActionOnboard      Action = "onboard"
	ActionExportSecret Action = "export_secret"
)

// SendParams are the already-extracted parameters of a parked send.
type SendParams struct {
	Amount string `json:"amount"`
	Asset  string `json:"asset,omitempty"`
	To     string `json:"to"`
}

// Pending is one parked action. At most one exists per phone; a new one
// overwrites any prior one. It is consumed exactly once, on the next inbound
// message from that phone, valid or not.
type Pending struct {
	Action     Action     `json:"action"`
	SendParams SendParams `json:"send_params,omitempty"`
	Chain      chain.ID   `json:"chain"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Expired reports whether the session is past the TTL at consumption time.
// Expiry is checked by the consumer, not by a background sweep.
func (p Pending) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(p.CreatedAt) > ttl
}

// Store keeps pending sessions keyed by normalized phone. Operations on the
// same phone are linearizable: after Set, exactly one GetAndClear observes
// the session.
type Store interface {
	// Set unconditionally overwrites any existing session for the phone.
	Set(ctx context.Context, phone string, p Pending) error
	// GetAndClear atomically reads and deletes the session. The boolean is
	// false when no session was present.
	GetAndClear(ctx context.Context, phone string) (Pending, bool, error)
}
