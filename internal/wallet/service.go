package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pigeon-sms/pigeon/internal/accounts"
	"github.com/pigeon-sms/pigeon/internal/chain"
	"github.com/pigeon-sms/pigeon/internal/phone"
	"github.com/pigeon-sms/pigeon/internal/ratelimit"
	"github.com/pigeon-sms/pigeon/internal/vault"
)

const transferNote = "SMS Wallet Transfer"

// Service is the wallet operations facade for one chain. Two instances run
// side by side, one per network, behind the same API; everything
// chain-specific is delegated to the chain.Client.
type Service struct {
	chain       chain.Client
	store       accounts.Store
	limiter     ratelimit.Limiter
	adminSecret string
	fundAmount  uint64
	logger      *slog.Logger
	now         func() time.Time
}

// Config wires a Service.
type Config struct {
	Chain   chain.Client
	Store   accounts.Store
	Limiter ratelimit.Limiter
	// AdminSecret is the privileged signing credential used by Fund.
	// Loaded once, read-only at runtime. Empty means the faucet is off.
	AdminSecret string
	// FundAmount is the faucet grant in base units.
	FundAmount uint64
	Logger     *slog.Logger
	// Now is injectable for rate-limit and created-at determinism in tests.
	Now func() time.Time
}

// NewService builds the facade.
func NewService(cfg Config) *Service {
	s := &Service{
		chain:       cfg.Chain,
		store:       cfg.Store,
		limiter:     cfg.Limiter,
		adminSecret: cfg.AdminSecret,
		fundAmount:  cfg.FundAmount,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Chain exposes the underlying client for reply formatting (asset symbol,
// explorer links).
func (s *Service) Chain() chain.Client { return s.chain }

// AddressResult reports a user's receiving address.
type AddressResult struct {
	Address string
	Phone   string
}

// Address returns the stored address for a phone.
func (s *Service) Address(ctx context.Context, rawPhone string) (AddressResult, error) {
	key, err := s.phoneKey(rawPhone)
	if err != nil {
		return AddressResult{}, err
	}
	acct, err := s.findOnboarded(ctx, key)
	if err != nil {
		return AddressResult{}, err
	}
	return AddressResult{Address: acct.Address, Phone: acct.Phone}, nil
}

// BalanceResult reports spendable funds in decimal token units.
type BalanceResult struct {
	Balance string
	Asset   string
	Address string
}

// Balance queries the chain for the user's balance.
func (s *Service) Balance(ctx context.Context, rawPhone string) (BalanceResult, error) {
	key, err := s.phoneKey(rawPhone)
	if err != nil {
		return BalanceResult{}, err
	}
	acct, err := s.findOnboarded(ctx, key)
	if err != nil {
		return BalanceResult{}, err
	}
	base, err := s.chain.Balance(ctx, acct.Address)
	if err != nil {
		return BalanceResult{}, fmt.Errorf("%w: %v", ErrChainQuery, err)
	}
	return BalanceResult{
		Balance: chain.FormatAmount(base, s.chain.Decimals()),
		Asset:   s.chain.AssetSymbol(),
		Address: acct.Address,
	}, nil
}

// OnboardResult reports the outcome of account creation.
type OnboardResult struct {
	AlreadyOnboarded bool
	Address          string
}

// Onboard creates a wallet for a new phone: generate a keypair, seal its
// secret material under the user's password, persist the record. The
// password and plaintext secret are never stored.
func (s *Service) Onboard(ctx context.Context, rawPhone, password string) (OnboardResult, error) {
	key, err := s.phoneKey(rawPhone)
	if err != nil {
		return OnboardResult{}, err
	}
	if strings.TrimSpace(password) == "" {
		return OnboardResult{}, fmt.Errorf("%w: password is required (it encrypts your wallet)", ErrValidation)
	}

	existing, err := s.store.Find(ctx, key)
	switch {
	case err == nil && existing.HasEncryptedSecret():
		return OnboardResult{AlreadyOnboarded: true, Address: existing.Address}, nil
	case err == nil && existing.Address != "":
		return OnboardResult{}, ErrLegacyAccount
	case err != nil && !errors.Is(err, accounts.ErrNotFound):
		return OnboardResult{}, fmt.Errorf("lookup account: %w", err)
	}

	generated, err := s.chain.GenerateAccount()
	if err != nil {
		return OnboardResult{}, fmt.Errorf("generate account: %w", err)
	}
	blob, err := vault.Encrypt(generated.Secret, password)
	if err != nil {
		return OnboardResult{}, fmt.Errorf("encrypt secret: %w", err)
	}

	record := accounts.Account{
		Phone:           key,
		Chain:           s.chain.ID(),
		Address:         generated.Address,
		EncryptedSecret: blob,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.store.Insert(ctx, record); err != nil {
		return OnboardResult{}, fmt.Errorf("persist account: %w", err)
	}

	s.logger.Info("user onboarded", "chain", s.chain.ID(), "phone", key, "address", generated.Address)
	return OnboardResult{Address: generated.Address}, nil
}

// SendInput carries the parameters of a peer-to-peer transfer.
type SendInput struct {
	Amount string
	Asset  string
	To     string
}

// SendResult reports a confirmed transfer.
type SendResult struct {
	TxID           string
	ConfirmedRound uint64
	ExplorerURL    string
}

// Send moves funds from the user's wallet to a native address or an
// onboarded phone number. The password decrypts the sender's secret; the
// derived address is checked against the stored one before signing, and
// both failure modes report as ErrWrongPassword.
func (s *Service) Send(ctx context.Context, rawPhone, password string, in SendInput) (SendResult, error) {
	key, err := s.phoneKey(rawPhone)
	if err != nil {
		return SendResult{}, err
	}
	if strings.TrimSpace(password) == "" {
		return SendResult{}, fmt.Errorf("%w: password is required to send", ErrValidation)
	}
	if strings.TrimSpace(in.To) == "" {
		return SendResult{}, fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	amount, err := chain.ToBaseUnits(in.Amount, s.chain.Decimals())
	if err != nil {
		return SendResult{}, fmt.Errorf("%w: invalid amount %q", ErrValidation, in.Amount)
	}

	toAddress, err := s.resolveRecipient(ctx, in.To)
	if err != nil {
		return SendResult{}, err
	}

	acct, err := s.findOnboarded(ctx, key)
	if err != nil {
		return SendResult{}, err
	}
	secret, err := s.unlock(acct, password)
	if err != nil {
		return SendResult{}, err
	}

	balance, err := s.chain.Balance(ctx, acct.Address)
	if err != nil {
		return SendResult{}, fmt.Errorf("%w: %v", ErrChainQuery, err)
	}
	required := amount + s.chain.MinFee() + s.chain.MinBalance()
	if balance < required {
		return SendResult{}, fmt.Errorf("%w: required %s %s (includes fees), available %s %s",
			ErrInsufficientBalance,
			chain.FormatAmount(required, s.chain.Decimals()), s.chain.AssetSymbol(),
			chain.FormatAmount(balance, s.chain.Decimals()), s.chain.AssetSymbol())
	}

	res, err := s.chain.Transfer(ctx, chain.TransferRequest{
		Secret: secret,
		To:     toAddress,
		Amount: amount,
		Note:   transferNote,
	})
	if err != nil {
		return SendResult{}, fmt.Errorf("transaction failed: %w", err)
	}

	s.logger.Info("transfer sent", "chain", s.chain.ID(), "phone", key, "tx", res.TxID)
	return SendResult{TxID: res.TxID, ConfirmedRound: res.ConfirmedRound, ExplorerURL: res.ExplorerURL}, nil
}

// Fund grants a fixed testnet amount from the admin wallet, at most once per
// phone per rolling 24 hours.
func (s *Service) Fund(ctx context.Context, rawPhone string) (SendResult, error) {
	key, err := s.phoneKey(rawPhone)
	if err != nil {
		return SendResult{}, err
	}
	if s.adminSecret == "" {
		return SendResult{}, ErrAdminNotConfigured
	}

	now := s.now()
	ok, wait, err := s.limiter.Allow(ctx, key, now)
	if err != nil {
		return SendResult{}, fmt.Errorf("rate limit lookup: %w", err)
	}
	if !ok {
		hours := int((wait + time.Hour - 1) / time.Hour)
		return SendResult{}, fmt.Errorf("%w: you can only be funded once per day, try again in ~%dh", ErrRateLimited, hours)
	}

	acct, err := s.findOnboarded(ctx, key)
	if err != nil {
		return SendResult{}, err
	}

	admin, err := s.chain.AccountFromSecret(s.adminSecret)
	if err != nil {
		return SendResult{}, ErrAdminNotConfigured
	}
	adminBalance, err := s.chain.Balance(ctx, admin.Address)
	if err != nil {
		return SendResult{}, fmt.Errorf("%w: %v", ErrChainQuery, err)
	}
	if adminBalance < s.fundAmount+s.chain.MinFee()+s.chain.MinBalance() {
		return SendResult{}, fmt.Errorf("%w: available %s %s", ErrAdminInsufficientBalance,
			chain.FormatAmount(adminBalance, s.chain.Decimals()), s.chain.AssetSymbol())
	}

	res, err := s.chain.Transfer(ctx, chain.TransferRequest{
		Secret: s.adminSecret,
		To:     acct.Address,
		Amount: s.fundAmount,
		Note:   "PIGEON Fund (TestNet)",
	})
	if err != nil {
		return SendResult{}, fmt.Errorf("fund transaction failed: %w", err)
	}

	if err := s.limiter.MarkGranted(ctx, key, now); err != nil {
		s.logger.Warn("record fund grant", "phone", key, "error", err)
	}

	s.logger.Info("fund granted", "chain", s.chain.ID(), "phone", key, "tx", res.TxID)
	return SendResult{TxID: res.TxID, ConfirmedRound: res.ConfirmedRound, ExplorerURL: res.ExplorerURL}, nil
}

// FundAmount reports the faucet grant in decimal token units.
func (s *Service) FundAmount() string {
	return chain.FormatAmount(s.fundAmount, s.chain.Decimals())
}

// TransactionsResult is a user's recent history, newest first.
type TransactionsResult struct {
	Address      string
	Transactions []chain.Transaction
}

// Transactions lists the user's most recent transactions. An empty history
// is a successful, empty result.
func (s *Service) Transactions(ctx context.Context, rawPhone string, limit int) (TransactionsResult, error) {
	key, err := s.phoneKey(rawPhone)
	if err != nil {
		return TransactionsResult{}, err
	}
	acct, err := s.findOnboarded(ctx, key)
	if err != nil {
		return TransactionsResult{}, err
	}
	txs, err := s.chain.Transactions(ctx, acct.Address, limit)
	if err != nil {
		return TransactionsResult{}, fmt.Errorf("%w: %v", ErrChainQuery, err)
	}
	return TransactionsResult{Address: acct.Address, Transactions: txs}, nil
}

// ExportSecret decrypts and returns the user's recovery secret. The caller
// is responsible for the security warning that accompanies delivery.
func (s *Service) ExportSecret(ctx context.Context, rawPhone, password string) (string, error) {
	key, err := s.phoneKey(rawPhone)
	if err != nil {
		return "", err
	}
	acct, err := s.findOnboarded(ctx, key)
	if err != nil {
		return "", err
	}
	return s.unlock(acct, password)
}

// DeleteAccount removes a user record. Admin-gated at the transport layer.
func (s *Service) DeleteAccount(ctx context.Context, rawPhone string) error {
	key, err := s.phoneKey(rawPhone)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, key); err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return ErrNotOnboarded
		}
		return err
	}
	return nil
}

func (s *Service) phoneKey(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: phone number is required", ErrValidation)
	}
	return phone.Key(raw), nil
}

func (s *Service) findOnboarded(ctx context.Context, key string) (accounts.Account, error) {
	acct, err := s.store.Find(ctx, key)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return accounts.Account{}, ErrNotOnboarded
		}
		return accounts.Account{}, fmt.Errorf("lookup account: %w", err)
	}
	if acct.Address == "" || !acct.HasEncryptedSecret() {
		return accounts.Account{}, ErrNotOnboarded
	}
	return acct, nil
}

// unlock decrypts the stored secret and verifies the derived address still
// matches the record. Decrypt failure and address mismatch are deliberately
// indistinguishable to the caller.
func (s *Service) unlock(acct accounts.Account, password string) (string, error) {
	secret, err := vault.Decrypt(acct.EncryptedSecret, password)
	if err != nil {
		return "", ErrWrongPassword
	}
	derived, err := s.chain.AccountFromSecret(secret)
	if err != nil || derived.Address != acct.Address {
		return "", ErrWrongPassword
	}
	return secret, nil
}

// resolveRecipient accepts a native address as-is, otherwise treats the
// input as a phone number and resolves it through the account store.
func (s *Service) resolveRecipient(ctx context.Context, to string) (string, error) {
	to = strings.TrimSpace(to)
	if s.chain.ValidAddress(to) {
		return to, nil
	}
	acct, err := s.store.Find(ctx, phone.Key(to))
	if err != nil || acct.Address == "" {
		return "", fmt.Errorf("%w: %q is neither a valid address nor an onboarded phone number", ErrRecipientNotFound, to)
	}
	return acct.Address, nil
}
