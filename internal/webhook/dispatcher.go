package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pigeon-sms/pigeon/internal/chain"
	"github.com/pigeon-sms/pigeon/internal/intent"
	"github.com/pigeon-sms/pigeon/internal/phone"
	"github.com/pigeon-sms/pigeon/internal/session"
	"github.com/pigeon-sms/pigeon/internal/wallet"
)

const historyLimit = 5

// Reply is the outcome of processing one inbound message. ContainedPassword
// marks interactions whose inbound body carried a plaintext password, which
// triggers the delayed security warning.
type Reply struct {
	Text              string
	ContainedPassword bool
}

// Dispatcher is the per-phone command state machine: it consumes any pending
// password session first, otherwise classifies the message and routes the
// intent to the resolved chain's wallet service.
type Dispatcher struct {
	wallets      map[chain.ID]*wallet.Service
	classifier   intent.Classifier
	sessions     session.Store
	sessionTTL   time.Duration
	defaultChain chain.ID
	logger       *slog.Logger
	now          func() time.Time
}

// DispatcherConfig wires a Dispatcher.
type DispatcherConfig struct {
	Wallets    map[chain.ID]*wallet.Service
	Classifier intent.Classifier
	Sessions   session.Store
	SessionTTL time.Duration
	// DefaultChain is used when neither the message nor the asset names
	// one. Empty defaults to Algorand.
	DefaultChain chain.ID
	Logger       *slog.Logger
	Now          func() time.Time
}

// NewDispatcher builds the state machine.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		wallets:      cfg.Wallets,
		classifier:   cfg.Classifier,
		sessions:     cfg.Sessions,
		sessionTTL:   cfg.SessionTTL,
		defaultChain: cfg.DefaultChain,
		logger:       cfg.Logger,
		now:          cfg.Now,
	}
	if d.sessionTTL == 0 {
		d.sessionTTL = 5 * time.Minute
	}
	if d.defaultChain == "" {
		d.defaultChain = chain.Algorand
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// Process handles one sanitized inbound SMS and returns the reply to send.
// It never returns an error: every failure renders as a user-facing reply.
func (d *Dispatcher) Process(ctx context.Context, from, rawMessage string) Reply {
	if d.classifier == nil {
		return Reply{Text: "!!! Server error: AI classifier not configured"}
	}

	key := phone.Key(from)
	message := Sanitize(rawMessage)

	pending, ok, err := d.sessions.GetAndClear(ctx, key)
	if err != nil {
		d.logger.Error("session lookup failed", "phone", key, "error", err)
		return Reply{Text: "!!! Something went wrong. Please try again."}
	}
	if ok {
		return d.resumeSession(ctx, from, message, pending)
	}

	res, err := d.classifier.Classify(ctx, message)
	if err != nil {
		// Classifier trouble must never fail the request.
		d.logger.Warn("intent classification failed", "phone", key, "error", err)
		res = intent.Result{Intent: intent.TypeUnknown, Raw: message}
	}
	d.logger.Info("intent classified", "phone", key, "intent", res.Intent)

	svc := d.resolve(res.Params.Chain)
	symbol := svc.Chain().AssetSymbol()

	switch res.Intent {
	case intent.TypeBalance:
		out, err := svc.Balance(ctx, from)
		if err != nil {
			return Reply{Text: "!!! Balance check failed: " + userMessage(err)}
		}
		return Reply{Text: fmt.Sprintf("$$ Balance: %s %s", out.Balance, out.Asset)}

	case intent.TypeAddress:
		out, err := svc.Address(ctx, from)
		if err != nil {
			return Reply{Text: "!!! Address lookup failed: " + userMessage(err)}
		}
		return Reply{Text: ">> Your address:\n" + out.Address}

	case intent.TypeTransactions:
		out, err := svc.Transactions(ctx, from, historyLimit)
		if err != nil {
			return Reply{Text: "!!! Transaction history failed: " + userMessage(err)}
		}
		return Reply{Text: formatHistory(out, symbol)}

	case intent.TypeFund:
		out, err := svc.Fund(ctx, from)
		if err != nil {
			return Reply{Text: "!!! Fund failed: " + userMessage(err)}
		}
		return Reply{Text: fmt.Sprintf("# Funded %s %s to your wallet!\nTx ID: %s\nConfirmed in round: %d\n# Explorer: %s",
			svc.FundAmount(), symbol, out.TxID, out.ConfirmedRound, out.ExplorerURL)}

	case intent.TypeSend:
		if strings.TrimSpace(res.Params.To) == "" {
			return Reply{Text: fmt.Sprintf("!!! Recipient is required.\nFormat: send [amount] %s to [address/phone]", symbol)}
		}
		params := session.SendParams{Amount: res.Params.Amount, Asset: res.Params.Asset, To: res.Params.To}
		if res.Params.Password != "" {
			return d.executeSend(ctx, svc, from, res.Params.Password, params)
		}
		d.park(ctx, key, session.Pending{
			Action:     session.ActionSend,
			SendParams: params,
			Chain:      svc.Chain().ID(),
			CreatedAt:  d.now(),
		})
		return Reply{Text: fmt.Sprintf("<< Send %s %s to %s\n\n~~ Reply with your password to confirm:",
			params.Amount, symbol, params.To)}

	case intent.TypeOnboard:
		if res.Params.Password != "" {
			return d.executeOnboard(ctx, svc, from, res.Params.Password)
		}
		d.park(ctx, key, session.Pending{
			Action:    session.ActionOnboard,
			Chain:     svc.Chain().ID(),
			CreatedAt: d.now(),
		})
		return Reply{Text: "Let's create your wallet!\n\n~~ Choose a password and reply with it.\n!!! Remember it, it cannot be recovered!"}

	case intent.TypeExportKey:
		if res.Params.Password != "" {
			return d.executeExport(ctx, svc, from, res.Params.Password)
		}
		d.park(ctx, key, session.Pending{
			Action:    session.ActionExportSecret,
			Chain:     svc.Chain().ID(),
			CreatedAt: d.now(),
		})
		return Reply{Text: "*** To export your private key, reply with your password:"}

	default:
		return Reply{Text: helpText(symbol)}
	}
}

// resumeSession runs the deferred action using the whole message body as the
// password. The session was already consumed; whatever happens next, the
// user starts over.
func (d *Dispatcher) resumeSession(ctx context.Context, from, message string, pending session.Pending) Reply {
	if pending.Expired(d.now(), d.sessionTTL) {
		return Reply{Text: "!!! Session expired. Please start your command again."}
	}
	password := strings.TrimSpace(message)
	if password == "" {
		return Reply{Text: "!!! Empty password received. Please start your command again."}
	}

	svc := d.resolve(pending.Chain)
	switch pending.Action {
	case session.ActionOnboard:
		return d.executeOnboard(ctx, svc, from, password)
	case session.ActionSend:
		return d.executeSend(ctx, svc, from, password, pending.SendParams)
	case session.ActionExportSecret:
		return d.executeExport(ctx, svc, from, password)
	}
	return Reply{Text: "!!! Something went wrong with the pending session. Please try again."}
}

func (d *Dispatcher) executeOnboard(ctx context.Context, svc *wallet.Service, from, password string) Reply {
	out, err := svc.Onboard(ctx, from, password)
	if err != nil {
		return Reply{Text: "!!! Onboard failed: " + userMessage(err), ContainedPassword: true}
	}
	if out.AlreadyOnboarded {
		return Reply{Text: "# You are already onboarded!\nAddress: " + out.Address, ContainedPassword: true}
	}
	return Reply{Text: "Welcome! Your wallet has been created.\nAddress: " + out.Address, ContainedPassword: true}
}

func (d *Dispatcher) executeSend(ctx context.Context, svc *wallet.Service, from, password string, params session.SendParams) Reply {
	out, err := svc.Send(ctx, from, password, wallet.SendInput{
		Amount: params.Amount,
		Asset:  params.Asset,
		To:     params.To,
	})
	if err != nil {
		return Reply{Text: "!!! Send failed: " + userMessage(err), ContainedPassword: true}
	}
	return Reply{
		Text: fmt.Sprintf("<< Sent %s %s to %s\nTx ID: %s\nConfirmed in round: %d\n# Explorer: %s",
			params.Amount, svc.Chain().AssetSymbol(), params.To, out.TxID, out.ConfirmedRound, out.ExplorerURL),
		ContainedPassword: true,
	}
}

func (d *Dispatcher) executeExport(ctx context.Context, svc *wallet.Service, from, password string) Reply {
	secret, err := svc.ExportSecret(ctx, from, password)
	if err != nil {
		return Reply{Text: "!!! Export failed: " + userMessage(err), ContainedPassword: true}
	}
	return Reply{
		Text: "# Your recovery phrase:\n\n" + secret +
			"\n\n!!!! NEVER share this with anyone! Delete this message immediately after saving it securely.",
		ContainedPassword: true,
	}
}

// resolve picks the wallet service for a chain, falling back to the default
// when the chain is unset or unwired.
func (d *Dispatcher) resolve(id chain.ID) *wallet.Service {
	if svc, ok := d.wallets[id]; ok {
		return svc
	}
	return d.wallets[d.defaultChain]
}

// park stores a pending session. A storage failure only costs the user a
// retry, so it is logged and the prompt still goes out.
func (d *Dispatcher) park(ctx context.Context, key string, p session.Pending) {
	if err := d.sessions.Set(ctx, key, p); err != nil {
		d.logger.Error("store pending session", "phone", key, "error", err)
	}
}

func formatHistory(out wallet.TransactionsResult, symbol string) string {
	if len(out.Transactions) == 0 {
		return "# No transactions found for your account."
	}
	lines := make([]string, 0, len(out.Transactions))
	for i, tx := range out.Transactions {
		dir := ">Received"
		if tx.Sender == out.Address {
			dir = "<Sent"
		}
		amt := tx.Type
		if tx.Amount != "" {
			amt = tx.Amount + " " + symbol
		}
		lines = append(lines, fmt.Sprintf("%d. %s %s (%s)\n   %s",
			i+1, dir, amt, tx.Time.Format("2006-01-02"), tx.ExplorerURL))
	}
	return fmt.Sprintf("# Last %d transactions:\n\n%s", len(out.Transactions), strings.Join(lines, "\n\n"))
}

func helpText(symbol string) string {
	return fmt.Sprintf(`?? Could not understand your request. Try:
- "balance" to check your %[1]s balance
- "address" to get your wallet address
- "create wallet" to create a new wallet
- "send [amount] %[1]s to [address/phone]" to send %[1]s
- "fund me" to get testnet %[1]s from the admin wallet
- "get pvt key" to export your private key
- "get txn" for your last %[2]d transactions`, symbol, historyLimit)
}

// userMessage renders a wallet failure for SMS. Declared error kinds carry
// self-correction detail already; anything else is shown as-is since the
// facade wraps chain errors with context.
func userMessage(err error) string {
	if err == nil {
		return "Unknown error"
	}
	return err.Error()
}
