// Package ratelimit tracks the per-phone faucet cooldown: one admin-funded
// grant per rolling 24 hours, keyed by last successful grant time.
package ratelimit

import (
	"context"
	"time"
)

// Limiter guards a grant per phone per cooldown window. Allow and
// MarkGranted are separate so a failed grant does not consume the window.
type Limiter interface {
	// Allow reports whether a grant may proceed now. When it may not, the
	// remaining wait is returned. A grant exactly at the window boundary is
	// allowed.
	Allow(ctx context.Context, phone string, now time.Time) (bool, time.Duration, error)
	// MarkGranted records a successful grant at the given time.
	MarkGranted(ctx context.Context, phone string, now time.Time) error
}
