package wallet

import "errors"

// Declared failure kinds. Callers pattern-match with errors.Is; the message
// carries whatever detail lets the user self-correct without exposing
// internal state.
var (
	// ErrValidation covers missing or malformed inputs. No side effects
	// were attempted.
	ErrValidation = errors.New("invalid request")

	// ErrNotOnboarded means no password-protected account exists for the
	// phone on this chain.
	ErrNotOnboarded = errors.New("account not found or not onboarded")

	// ErrLegacyAccount means an address exists without an encrypted secret
	// (pre-password migration). It must never be silently overwritten.
	ErrLegacyAccount = errors.New("account exists from legacy flow; contact support or use a new phone number")

	// ErrWrongPassword covers every authentication failure on a stored
	// wallet: decryption failure and a post-decrypt address mismatch report
	// identically so neither check becomes an oracle.
	ErrWrongPassword = errors.New("wrong password")

	// ErrRecipientNotFound means the recipient is neither a valid native
	// address nor an onboarded phone number.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrInsufficientBalance means the sender cannot cover amount plus
	// fees. The wrapped message states the shortfall.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrRateLimited means the faucet window has not elapsed. The wrapped
	// message states the remaining wait.
	ErrRateLimited = errors.New("rate limited")

	// ErrAdminNotConfigured means the admin signing credential is absent.
	ErrAdminNotConfigured = errors.New("admin wallet not configured on server")

	// ErrAdminInsufficientBalance means the admin account cannot cover the
	// grant plus fee.
	ErrAdminInsufficientBalance = errors.New("admin wallet has insufficient balance")

	// ErrChainQuery wraps RPC failures on read paths.
	ErrChainQuery = errors.New("chain query failed")
)
