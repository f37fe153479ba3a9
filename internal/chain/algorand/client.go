// Package algorand implements the chain.Client capability against an algod
// node and an indexer, mirroring the operations the wallet facade needs:
// account generation with 25-word mnemonics, payment submission with a
// bounded confirmation wait, and history lookups.
package algorand

import (
	"context"
	"fmt"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/client/v2/indexer"
	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/mnemonic"
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/pigeon-sms/pigeon/internal/chain"
)

const (
	decimals = 6
	// minFee is the flat network fee in microAlgos.
	minFee = 1000
	// minBalance is the 0.1 ALGO an account must keep above zero.
	minBalance = 100_000
	// confirmationRounds bounds the wait after submitting a transaction.
	confirmationRounds = 10
)

// Config carries the node endpoints for one Algorand network.
type Config struct {
	AlgodURL     string
	AlgodToken   string
	IndexerURL   string
	ExplorerBase string
}

// Client talks to algod for state and submission and to the indexer for
// history.
type Client struct {
	algod        *algod.Client
	indexer      *indexer.Client
	explorerBase string
}

// New connects the client. The indexer is optional; without it only
// Transactions is unavailable.
func New(cfg Config) (*Client, error) {
	ac, err := algod.MakeClient(cfg.AlgodURL, cfg.AlgodToken)
	if err != nil {
		return nil, fmt.Errorf("algod client: %w", err)
	}
	c := &Client{algod: ac, explorerBase: cfg.ExplorerBase}
	if c.explorerBase == "" {
		c.explorerBase = "https://testnet.explorer.perawallet.app/tx"
	}
	if cfg.IndexerURL != "" {
		ic, err := indexer.MakeClient(cfg.IndexerURL, cfg.AlgodToken)
		if err != nil {
			return nil, fmt.Errorf("indexer client: %w", err)
		}
		c.indexer = ic
	}
	return c, nil
}

func (c *Client) ID() chain.ID        { return chain.Algorand }
func (c *Client) AssetSymbol() string { return "ALGO" }
func (c *Client) Decimals() int       { return decimals }
func (c *Client) MinFee() uint64      { return minFee }
func (c *Client) MinBalance() uint64  { return minBalance }

func (c *Client) GenerateAccount() (chain.Account, error) {
	acct := crypto.GenerateAccount()
	mn, err := mnemonic.FromPrivateKey(acct.PrivateKey)
	if err != nil {
		return chain.Account{}, fmt.Errorf("derive mnemonic: %w", err)
	}
	return chain.Account{Address: acct.Address.String(), Secret: mn}, nil
}

func (c *Client) AccountFromSecret(secret string) (chain.Account, error) {
	sk, err := mnemonic.ToPrivateKey(secret)
	if err != nil {
		return chain.Account{}, chain.ErrInvalidSecret
	}
	acct, err := crypto.AccountFromPrivateKey(sk)
	if err != nil {
		return chain.Account{}, chain.ErrInvalidSecret
	}
	return chain.Account{Address: acct.Address.String(), Secret: secret}, nil
}

func (c *Client) ValidAddress(addr string) bool {
	_, err := types.DecodeAddress(addr)
	return err == nil
}

func (c *Client) Balance(ctx context.Context, address string) (uint64, error) {
	info, err := c.algod.AccountInformation(address).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("account information: %w", err)
	}
	return info.Amount, nil
}

func (c *Client) Transfer(ctx context.Context, req chain.TransferRequest) (chain.TransferResult, error) {
	sk, err := mnemonic.ToPrivateKey(req.Secret)
	if err != nil {
		return chain.TransferResult{}, chain.ErrInvalidSecret
	}
	sender, err := crypto.AccountFromPrivateKey(sk)
	if err != nil {
		return chain.TransferResult{}, chain.ErrInvalidSecret
	}

	sp, err := c.algod.SuggestedParams().Do(ctx)
	if err != nil {
		return chain.TransferResult{}, fmt.Errorf("suggested params: %w", err)
	}

	txn, err := transaction.MakePaymentTxn(sender.Address.String(), req.To, req.Amount, []byte(req.Note), "", sp)
	if err != nil {
		return chain.TransferResult{}, fmt.Errorf("build payment: %w", err)
	}
	txID, stx, err := crypto.SignTransaction(sk, txn)
	if err != nil {
		return chain.TransferResult{}, fmt.Errorf("sign payment: %w", err)
	}
	if _, err := c.algod.SendRawTransaction(stx).Do(ctx); err != nil {
		return chain.TransferResult{}, fmt.Errorf("submit payment: %w", err)
	}

	confirmed, err := transaction.WaitForConfirmation(c.algod, txID, confirmationRounds, ctx)
	if err != nil {
		return chain.TransferResult{}, fmt.Errorf("%w: %v", chain.ErrConfirmationTimeout, err)
	}

	return chain.TransferResult{
		TxID:           txID,
		ConfirmedRound: confirmed.ConfirmedRound,
		ExplorerURL:    c.ExplorerTxURL(txID),
	}, nil
}

func (c *Client) Transactions(ctx context.Context, address string, limit int) ([]chain.Transaction, error) {
	if c.indexer == nil {
		return nil, fmt.Errorf("indexer not configured")
	}
	resp, err := c.indexer.LookupAccountTransactions(address).Limit(uint64(limit)).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("lookup transactions: %w", err)
	}

	out := make([]chain.Transaction, 0, len(resp.Transactions))
	for _, tx := range resp.Transactions {
		rec := chain.Transaction{
			ID:          tx.Id,
			Type:        tx.TxType,
			Time:        time.Unix(int64(tx.RoundTime), 0).UTC(),
			Sender:      tx.Sender,
			ExplorerURL: c.ExplorerTxURL(tx.Id),
		}
		switch {
		case tx.PaymentTransaction.Receiver != "":
			rec.Amount = chain.FormatAmount(tx.PaymentTransaction.Amount, decimals)
			rec.Receiver = tx.PaymentTransaction.Receiver
		case tx.AssetTransferTransaction.Receiver != "":
			rec.Amount = chain.FormatAmount(tx.AssetTransferTransaction.Amount, decimals)
			rec.Receiver = tx.AssetTransferTransaction.Receiver
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *Client) ExplorerTxURL(txID string) string {
	return c.explorerBase + "/" + txID
}
