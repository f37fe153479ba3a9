package chain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ID names a supported blockchain network.
type ID string

const (
	// Algorand is chain A, the default network.
	Algorand ID = "algorand"
	// Solana is chain B.
	Solana ID = "solana"
)

var (
	// ErrConfirmationTimeout indicates a submitted transaction was not
	// confirmed within the client's bounded wait.
	ErrConfirmationTimeout = errors.New("chain: confirmation timeout")

	// ErrInvalidSecret indicates secret material that does not decode into
	// a keypair for the target chain.
	ErrInvalidSecret = errors.New("chain: invalid secret material")
)

// FromAsset infers the target chain from an asset symbol mentioned in a
// message. Unrecognised assets return false so callers can apply their own
// default.
func FromAsset(asset string) (ID, bool) {
	switch strings.ToUpper(strings.TrimSpace(asset)) {
	case "SOL":
		return Solana, true
	case "ALGO":
		return Algorand, true
	}
	return "", false
}

// Account is a generated or recovered keypair. Secret uses the chain's
// native encoding (25-word mnemonic on Algorand, base58 key on Solana) and
// must never be persisted in the clear.
type Account struct {
	Address string
	Secret  string
}

// TransferRequest describes a signed payment from a user or admin account.
type TransferRequest struct {
	Secret string
	To     string
	Amount uint64
	Note   string
}

// TransferResult reports a confirmed payment.
type TransferResult struct {
	TxID           string
	ConfirmedRound uint64
	ExplorerURL    string
}

// Transaction is one entry of an account's history, newest first.
type Transaction struct {
	ID          string
	Type        string
	Time        time.Time
	Amount      string
	Sender      string
	Receiver    string
	ExplorerURL string
}

// Client is the uniform capability both wallet facades are built on. One
// implementation exists per network; everything chain-specific (addresses,
// signing, fees, explorers) lives behind it.
type Client interface {
	ID() ID
	AssetSymbol() string
	Decimals() int
	// MinFee is the flat network fee budgeted per payment, in base units.
	MinFee() uint64
	// MinBalance is the amount an account must retain after a payment.
	MinBalance() uint64

	GenerateAccount() (Account, error)
	AccountFromSecret(secret string) (Account, error)
	ValidAddress(addr string) bool

	Balance(ctx context.Context, address string) (uint64, error)
	Transfer(ctx context.Context, req TransferRequest) (TransferResult, error)
	Transactions(ctx context.Context, address string, limit int) ([]Transaction, error)
	ExplorerTxURL(txID string) string
}

// ToBaseUnits converts a decimal token amount ("5", "0.25") into base units.
// The amount must be a finite positive number.
func ToBaseUnits(amount string, decimals int) (uint64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, fmt.Errorf("invalid amount %q", amount)
	}
	return uint64(math.Floor(v * math.Pow10(decimals))), nil
}

// FormatAmount renders base units as a decimal token amount.
func FormatAmount(base uint64, decimals int) string {
	return strconv.FormatFloat(float64(base)/math.Pow10(decimals), 'f', -1, 64)
}
