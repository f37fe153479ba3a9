// Package solana implements the chain.Client capability against a Solana
// JSON-RPC endpoint: keypair generation with base58 secrets, system-program
// transfers with a bounded confirmation poll, and signature-based history.
package solana

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/pigeon-sms/pigeon/internal/chain"
)

const (
	decimals = 9
	// feeLamports approximates the flat per-signature fee.
	feeLamports = 5000

	confirmAttempts = 20
	confirmInterval = 1500 * time.Millisecond
)

// Config carries the RPC endpoint for one Solana cluster.
type Config struct {
	RPCURL       string
	ExplorerBase string
}

// Client wraps the Solana JSON-RPC client.
type Client struct {
	rpc          *rpc.Client
	explorerBase string
	clusterParam string
}

// New builds a client for the configured cluster. Explorer links carry the
// cluster query parameter for testnet and devnet endpoints.
func New(cfg Config) *Client {
	c := &Client{rpc: rpc.New(cfg.RPCURL), explorerBase: cfg.ExplorerBase}
	if c.explorerBase == "" {
		c.explorerBase = "https://explorer.solana.com/tx"
	}
	switch {
	case strings.Contains(cfg.RPCURL, "testnet"):
		c.clusterParam = "?cluster=testnet"
	case strings.Contains(cfg.RPCURL, "devnet"):
		c.clusterParam = "?cluster=devnet"
	}
	return c
}

func (c *Client) ID() chain.ID        { return chain.Solana }
func (c *Client) AssetSymbol() string { return "SOL" }
func (c *Client) Decimals() int       { return decimals }
func (c *Client) MinFee() uint64      { return feeLamports }
func (c *Client) MinBalance() uint64  { return 0 }

func (c *Client) GenerateAccount() (chain.Account, error) {
	w := solana.NewWallet()
	return chain.Account{
		Address: w.PublicKey().String(),
		Secret:  w.PrivateKey.String(),
	}, nil
}

func (c *Client) AccountFromSecret(secret string) (chain.Account, error) {
	key, err := solana.PrivateKeyFromBase58(secret)
	if err != nil {
		return chain.Account{}, chain.ErrInvalidSecret
	}
	return chain.Account{Address: key.PublicKey().String(), Secret: secret}, nil
}

func (c *Client) ValidAddress(addr string) bool {
	pk, err := solana.PublicKeyFromBase58(addr)
	if err != nil {
		return false
	}
	return pk.IsOnCurve()
}

func (c *Client) Balance(ctx context.Context, address string) (uint64, error) {
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("decode address: %w", err)
	}
	res, err := c.rpc.GetBalance(ctx, pk, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return res.Value, nil
}

func (c *Client) Transfer(ctx context.Context, req chain.TransferRequest) (chain.TransferResult, error) {
	key, err := solana.PrivateKeyFromBase58(req.Secret)
	if err != nil {
		return chain.TransferResult{}, chain.ErrInvalidSecret
	}
	to, err := solana.PublicKeyFromBase58(req.To)
	if err != nil {
		return chain.TransferResult{}, fmt.Errorf("decode recipient: %w", err)
	}

	recent, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return chain.TransferResult{}, fmt.Errorf("latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(req.Amount, key.PublicKey(), to).Build(),
		},
		recent.Value.Blockhash,
		solana.TransactionPayer(key.PublicKey()),
	)
	if err != nil {
		return chain.TransferResult{}, fmt.Errorf("build transfer: %w", err)
	}

	if _, err := tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if pub.Equals(key.PublicKey()) {
			return &key
		}
		return nil
	}); err != nil {
		return chain.TransferResult{}, fmt.Errorf("sign transfer: %w", err)
	}

	sig, err := c.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return chain.TransferResult{}, fmt.Errorf("submit transfer: %w", err)
	}

	if err := c.awaitConfirmation(ctx, sig); err != nil {
		return chain.TransferResult{}, err
	}

	return chain.TransferResult{
		TxID:        sig.String(),
		ExplorerURL: c.ExplorerTxURL(sig.String()),
	}, nil
}

// awaitConfirmation polls signature statuses until the transaction reaches
// confirmed commitment or the attempt budget is exhausted.
func (c *Client) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	for attempt := 0; attempt < confirmAttempts; attempt++ {
		res, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		if err == nil && len(res.Value) > 0 && res.Value[0] != nil {
			st := res.Value[0]
			if st.Err != nil {
				return fmt.Errorf("transaction failed on chain: %v", st.Err)
			}
			switch st.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", chain.ErrConfirmationTimeout, ctx.Err())
		case <-time.After(confirmInterval):
		}
	}
	return fmt.Errorf("%w: %s not confirmed after %d polls", chain.ErrConfirmationTimeout, sig, confirmAttempts)
}

func (c *Client) Transactions(ctx context.Context, address string, limit int) ([]chain.Transaction, error) {
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	sigs, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, pk, &rpc.GetSignaturesForAddressOpts{Limit: &limit})
	if err != nil {
		return nil, fmt.Errorf("signatures for address: %w", err)
	}

	out := make([]chain.Transaction, 0, len(sigs))
	for _, s := range sigs {
		rec := chain.Transaction{
			ID:          s.Signature.String(),
			Type:        "transfer",
			Sender:      address,
			ExplorerURL: c.ExplorerTxURL(s.Signature.String()),
		}
		if s.BlockTime != nil {
			rec.Time = s.BlockTime.Time().UTC()
		}
		if s.Err != nil {
			rec.Type = "failed"
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *Client) ExplorerTxURL(txID string) string {
	return c.explorerBase + "/" + txID + c.clusterParam
}
