package chain

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryClient is an in-process chain simulator for tests and local
// development. Addresses are derived deterministically from secrets so the
// address-mismatch defense in the wallet facade can be exercised.
type MemoryClient struct {
	id      ID
	symbol  string
	dec     int
	fee     uint64
	reserve uint64

	mu       sync.Mutex
	balances map[string]uint64
	history  map[string][]Transaction
	round    uint64

	// QueryErr and TransferErr, when set, force the corresponding
	// operations to fail. Test hooks.
	QueryErr    error
	TransferErr error
}

// NewMemoryClient builds a simulator presenting as the given network.
func NewMemoryClient(id ID) *MemoryClient {
	c := &MemoryClient{
		id:       id,
		symbol:   "ALGO",
		dec:      6,
		fee:      1000,
		reserve:  100_000,
		balances: make(map[string]uint64),
		history:  make(map[string][]Transaction),
	}
	if id == Solana {
		c.symbol = "SOL"
		c.dec = 9
		c.fee = 5000
		c.reserve = 0
	}
	return c
}

func (c *MemoryClient) ID() ID              { return c.id }
func (c *MemoryClient) AssetSymbol() string { return c.symbol }
func (c *MemoryClient) Decimals() int       { return c.dec }
func (c *MemoryClient) MinFee() uint64      { return c.fee }
func (c *MemoryClient) MinBalance() uint64  { return c.reserve }

func (c *MemoryClient) GenerateAccount() (Account, error) {
	seed := make([]byte, 16)
	if _, err := rand.Read(seed); err != nil {
		return Account{}, err
	}
	secret := hex.EncodeToString(seed)
	return Account{Address: c.deriveAddress(secret), Secret: secret}, nil
}

func (c *MemoryClient) AccountFromSecret(secret string) (Account, error) {
	if secret == "" {
		return Account{}, ErrInvalidSecret
	}
	return Account{Address: c.deriveAddress(secret), Secret: secret}, nil
}

func (c *MemoryClient) ValidAddress(addr string) bool {
	return strings.HasPrefix(addr, "MEM") && len(addr) == 35
}

func (c *MemoryClient) Balance(_ context.Context, address string) (uint64, error) {
	if c.QueryErr != nil {
		return 0, c.QueryErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[address], nil
}

func (c *MemoryClient) Transfer(_ context.Context, req TransferRequest) (TransferResult, error) {
	if c.TransferErr != nil {
		return TransferResult{}, c.TransferErr
	}
	acct, err := c.AccountFromSecret(req.Secret)
	if err != nil {
		return TransferResult{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	total := req.Amount + c.fee
	if c.balances[acct.Address] < total {
		return TransferResult{}, fmt.Errorf("overspend: balance %d below %d", c.balances[acct.Address], total)
	}
	c.balances[acct.Address] -= total
	c.balances[req.To] += req.Amount
	c.round++

	txID := fmt.Sprintf("SIM%06d", c.round)
	tx := Transaction{
		ID:          txID,
		Type:        "pay",
		Time:        time.Now().UTC(),
		Amount:      FormatAmount(req.Amount, c.dec),
		Sender:      acct.Address,
		Receiver:    req.To,
		ExplorerURL: c.ExplorerTxURL(txID),
	}
	c.history[acct.Address] = append([]Transaction{tx}, c.history[acct.Address]...)
	c.history[req.To] = append([]Transaction{tx}, c.history[req.To]...)

	return TransferResult{TxID: txID, ConfirmedRound: c.round, ExplorerURL: tx.ExplorerURL}, nil
}

func (c *MemoryClient) Transactions(_ context.Context, address string, limit int) ([]Transaction, error) {
	if c.QueryErr != nil {
		return nil, c.QueryErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	txs := c.history[address]
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	out := make([]Transaction, len(txs))
	copy(out, txs)
	return out, nil
}

func (c *MemoryClient) ExplorerTxURL(txID string) string {
	return "https://explorer.invalid/tx/" + txID
}

// SetBalance seeds an account balance. Test helper.
func (c *MemoryClient) SetBalance(address string, amount uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[address] = amount
}

func (c *MemoryClient) deriveAddress(secret string) string {
	sum := sha256.Sum256([]byte(string(c.id) + ":" + secret))
	return "MEM" + strings.ToUpper(hex.EncodeToString(sum[:16]))
}
