package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pigeon-sms/pigeon/internal/accounts"
	"github.com/pigeon-sms/pigeon/internal/chain"
	"github.com/pigeon-sms/pigeon/internal/logging"
	"github.com/pigeon-sms/pigeon/internal/ratelimit"
	"github.com/pigeon-sms/pigeon/internal/vault"
)

type fixture struct {
	svc    *Service
	client *chain.MemoryClient
	store  accounts.Store
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := chain.NewMemoryClient(chain.Algorand)
	store := accounts.NewMemoryStore()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	f := &fixture{client: client, store: store, now: now}
	f.svc = NewService(Config{
		Chain:       client,
		Store:       store,
		Limiter:     ratelimit.NewMemoryLimiter(24 * time.Hour),
		AdminSecret: "admin-secret",
		FundAmount:  1_000_000,
		Logger:      logging.Discard(),
		Now:         func() time.Time { return f.now },
	})
	return f
}

// onboard creates a funded wallet and returns its address.
func (f *fixture) onboard(t *testing.T, phone, password string, balance uint64) string {
	t.Helper()
	res, err := f.svc.Onboard(context.Background(), phone, password)
	if err != nil {
		t.Fatalf("onboard %s: %v", phone, err)
	}
	f.client.SetBalance(res.Address, balance)
	return res.Address
}

func TestOnboardAndAddress(t *testing.T) {
	f := newFixture(t)

	addr := f.onboard(t, "+1 (991) 234-5678", "hunter2", 0)

	// The same human number in another format resolves to the same record.
	got, err := f.svc.Address(context.Background(), "9912345678")
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	if got.Address != addr {
		t.Fatalf("address = %q, want %q", got.Address, addr)
	}
}

func TestOnboardIdempotent(t *testing.T) {
	f := newFixture(t)
	addr := f.onboard(t, "5551234", "first-pass", 0)

	res, err := f.svc.Onboard(context.Background(), "5551234", "different-pass")
	if err != nil {
		t.Fatalf("second onboard: %v", err)
	}
	if !res.AlreadyOnboarded {
		t.Fatal("expected AlreadyOnboarded on repeat onboard")
	}
	if res.Address != addr {
		t.Fatalf("repeat onboard address = %q, want original %q", res.Address, addr)
	}
}

func TestOnboardRequiresPassword(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Onboard(context.Background(), "5551234", "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestOnboardLegacyAccount(t *testing.T) {
	f := newFixture(t)
	// A record with an address but no sealed secret predates the vault.
	err := f.store.Insert(context.Background(), accounts.Account{
		Phone:   "5551234",
		Chain:   chain.Algorand,
		Address: "MEMOLD0000000000000000000000000000",
	})
	if err != nil {
		t.Fatalf("seed legacy record: %v", err)
	}
	if _, err := f.svc.Onboard(context.Background(), "5551234", "pw"); !errors.Is(err, ErrLegacyAccount) {
		t.Fatalf("err = %v, want ErrLegacyAccount", err)
	}
}

func TestBalance(t *testing.T) {
	f := newFixture(t)
	f.onboard(t, "5551234", "pw", 2_500_000)

	res, err := f.svc.Balance(context.Background(), "5551234")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if res.Balance != "2.5" {
		t.Fatalf("balance = %q, want 2.5", res.Balance)
	}
	if res.Asset != "ALGO" {
		t.Fatalf("asset = %q, want ALGO", res.Asset)
	}
}

func TestBalanceNotOnboarded(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Balance(context.Background(), "5550000"); !errors.Is(err, ErrNotOnboarded) {
		t.Fatalf("err = %v, want ErrNotOnboarded", err)
	}
}

func TestBalanceChainDown(t *testing.T) {
	f := newFixture(t)
	f.onboard(t, "5551234", "pw", 0)
	f.client.QueryErr = errors.New("node unreachable")

	if _, err := f.svc.Balance(context.Background(), "5551234"); !errors.Is(err, ErrChainQuery) {
		t.Fatalf("err = %v, want ErrChainQuery", err)
	}
}

func TestSendToAddress(t *testing.T) {
	f := newFixture(t)
	sender := f.onboard(t, "5551234", "pw", 5_000_000)
	recipient := f.onboard(t, "5555678", "pw2", 0)

	res, err := f.svc.Send(context.Background(), "5551234", "pw", SendInput{
		Amount: "1.5",
		To:     recipient,
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.TxID == "" || res.ExplorerURL == "" {
		t.Fatalf("incomplete result: %+v", res)
	}

	got, _ := f.client.Balance(context.Background(), recipient)
	if got != 1_500_000 {
		t.Fatalf("recipient balance = %d, want 1500000", got)
	}
	senderBal, _ := f.client.Balance(context.Background(), sender)
	if senderBal != 5_000_000-1_500_000-f.client.MinFee() {
		t.Fatalf("sender balance = %d", senderBal)
	}
}

func TestSendToPhone(t *testing.T) {
	f := newFixture(t)
	f.onboard(t, "5551234", "pw", 5_000_000)
	recipient := f.onboard(t, "+1 (991) 234-5678", "pw2", 0)

	// Recipient given as a phone number in a different format.
	if _, err := f.svc.Send(context.Background(), "5551234", "pw", SendInput{
		Amount: "0.25",
		To:     "991-234-5678",
	}); err != nil {
		t.Fatalf("send to phone: %v", err)
	}
	got, _ := f.client.Balance(context.Background(), recipient)
	if got != 250_000 {
		t.Fatalf("recipient balance = %d, want 250000", got)
	}
}

func TestSendRecipientNotFound(t *testing.T) {
	f := newFixture(t)
	f.onboard(t, "5551234", "pw", 5_000_000)

	_, err := f.svc.Send(context.Background(), "5551234", "pw", SendInput{Amount: "1", To: "5559999"})
	if !errors.Is(err, ErrRecipientNotFound) {
		t.Fatalf("err = %v, want ErrRecipientNotFound", err)
	}
}

func TestSendWrongPassword(t *testing.T) {
	f := newFixture(t)
	f.onboard(t, "5551234", "pw", 5_000_000)
	to := f.onboard(t, "5555678", "pw2", 0)

	_, err := f.svc.Send(context.Background(), "5551234", "nope", SendInput{Amount: "1", To: to})
	if !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("err = %v, want ErrWrongPassword", err)
	}
}

// A record whose sealed secret decrypts fine but no longer derives the stored
// address must fail exactly like a wrong password.
func TestSendAddressMismatchLooksLikeWrongPassword(t *testing.T) {
	f := newFixture(t)
	to := f.onboard(t, "5555678", "pw2", 0)

	blob, err := vault.Encrypt("some-other-secret", "pw")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	seedErr := f.store.Insert(context.Background(), accounts.Account{
		Phone:           "5551234",
		Chain:           chain.Algorand,
		Address:         "MEMAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		EncryptedSecret: blob,
		CreatedAt:       f.now,
	})
	if seedErr != nil {
		t.Fatalf("seed record: %v", seedErr)
	}
	f.client.SetBalance("MEMAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", 5_000_000)

	_, err = f.svc.Send(context.Background(), "5551234", "pw", SendInput{Amount: "1", To: to})
	if !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("err = %v, want ErrWrongPassword", err)
	}
}

func TestSendInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	// 1 ALGO requested, but fee plus the minimum reserve push the
	// requirement past the available 1.05.
	f.onboard(t, "5551234", "pw", 1_050_000)
	to := f.onboard(t, "5555678", "pw2", 0)

	_, err := f.svc.Send(context.Background(), "5551234", "pw", SendInput{Amount: "1", To: to})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestSendInvalidAmount(t *testing.T) {
	f := newFixture(t)
	f.onboard(t, "5551234", "pw", 5_000_000)
	to := f.onboard(t, "5555678", "pw2", 0)

	for _, amount := range []string{"", "abc", "-1", "0"} {
		_, err := f.svc.Send(context.Background(), "5551234", "pw", SendInput{Amount: amount, To: to})
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("amount %q: err = %v, want ErrValidation", amount, err)
		}
	}
}

func TestFund(t *testing.T) {
	f := newFixture(t)
	addr := f.onboard(t, "5551234", "pw", 0)
	admin, _ := f.client.AccountFromSecret("admin-secret")
	f.client.SetBalance(admin.Address, 100_000_000)

	if _, err := f.svc.Fund(context.Background(), "5551234"); err != nil {
		t.Fatalf("fund: %v", err)
	}
	got, _ := f.client.Balance(context.Background(), addr)
	if got != 1_000_000 {
		t.Fatalf("funded balance = %d, want 1000000", got)
	}
}

func TestFundRateLimitBoundary(t *testing.T) {
	f := newFixture(t)
	f.onboard(t, "5551234", "pw", 0)
	admin, _ := f.client.AccountFromSecret("admin-secret")
	f.client.SetBalance(admin.Address, 100_000_000)

	if _, err := f.svc.Fund(context.Background(), "5551234"); err != nil {
		t.Fatalf("first fund: %v", err)
	}

	// One millisecond before the window closes: still limited.
	f.now = f.now.Add(24*time.Hour - time.Millisecond)
	if _, err := f.svc.Fund(context.Background(), "5551234"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}

	// Exactly at the window boundary: allowed again.
	f.now = f.now.Add(time.Millisecond)
	if _, err := f.svc.Fund(context.Background(), "5551234"); err != nil {
		t.Fatalf("fund at boundary: %v", err)
	}
}

// A failed grant must not consume the daily allowance.
func TestFundFailureDoesNotConsumeWindow(t *testing.T) {
	f := newFixture(t)
	f.onboard(t, "5551234", "pw", 0)
	admin, _ := f.client.AccountFromSecret("admin-secret")
	f.client.SetBalance(admin.Address, 100_000_000)

	f.client.TransferErr = errors.New("node flake")
	if _, err := f.svc.Fund(context.Background(), "5551234"); err == nil {
		t.Fatal("expected transfer failure")
	}

	f.client.TransferErr = nil
	if _, err := f.svc.Fund(context.Background(), "5551234"); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestFundAdminNotConfigured(t *testing.T) {
	f := newFixture(t)
	f.svc = NewService(Config{
		Chain:   f.client,
		Store:   f.store,
		Limiter: ratelimit.NewMemoryLimiter(24 * time.Hour),
		Logger:  logging.Discard(),
	})
	f.onboard(t, "5551234", "pw", 0)

	if _, err := f.svc.Fund(context.Background(), "5551234"); !errors.Is(err, ErrAdminNotConfigured) {
		t.Fatalf("err = %v, want ErrAdminNotConfigured", err)
	}
}

func TestFundAdminBroke(t *testing.T) {
	f := newFixture(t)
	f.onboard(t, "5551234", "pw", 0)
	// Admin wallet left unseeded.
	if _, err := f.svc.Fund(context.Background(), "5551234"); !errors.Is(err, ErrAdminInsufficientBalance) {
		t.Fatalf("err = %v, want ErrAdminInsufficientBalance", err)
	}
}

func TestTransactionsEmptyHistory(t *testing.T) {
	f := newFixture(t)
	f.onboard(t, "5551234", "pw", 0)

	res, err := f.svc.Transactions(context.Background(), "5551234", 5)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(res.Transactions) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(res.Transactions))
	}
}

func TestTransactionsAfterSend(t *testing.T) {
	f := newFixture(t)
	f.onboard(t, "5551234", "pw", 5_000_000)
	to := f.onboard(t, "5555678", "pw2", 0)

	if _, err := f.svc.Send(context.Background(), "5551234", "pw", SendInput{Amount: "1", To: to}); err != nil {
		t.Fatalf("send: %v", err)
	}

	res, err := f.svc.Transactions(context.Background(), "5551234", 5)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(res.Transactions) != 1 {
		t.Fatalf("history length = %d, want 1", len(res.Transactions))
	}
	if res.Transactions[0].Receiver != to {
		t.Fatalf("receiver = %q, want %q", res.Transactions[0].Receiver, to)
	}
}

func TestExportSecret(t *testing.T) {
	f := newFixture(t)
	f.onboard(t, "5551234", "pw", 0)

	secret, err := f.svc.ExportSecret(context.Background(), "5551234", "pw")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	derived, err := f.client.AccountFromSecret(secret)
	if err != nil {
		t.Fatalf("derive from exported secret: %v", err)
	}
	got, _ := f.svc.Address(context.Background(), "5551234")
	if derived.Address != got.Address {
		t.Fatal("exported secret does not derive the stored address")
	}

	if _, err := f.svc.ExportSecret(context.Background(), "5551234", "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("err = %v, want ErrWrongPassword", err)
	}
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t)
	f.onboard(t, "5551234", "pw", 0)

	if err := f.svc.DeleteAccount(context.Background(), "5551234"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Address(context.Background(), "5551234"); !errors.Is(err, ErrNotOnboarded) {
		t.Fatalf("err = %v, want ErrNotOnboarded", err)
	}
	if err := f.svc.DeleteAccount(context.Background(), "5551234"); !errors.Is(err, ErrNotOnboarded) {
		t.Fatalf("repeat delete err = %v, want ErrNotOnboarded", err)
	}
}
