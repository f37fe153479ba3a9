package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/pigeon-sms/pigeon/internal/accounts"
	"github.com/pigeon-sms/pigeon/internal/chain"
	"github.com/pigeon-sms/pigeon/internal/chain/algorand"
	"github.com/pigeon-sms/pigeon/internal/chain/solana"
	"github.com/pigeon-sms/pigeon/internal/config"
	"github.com/pigeon-sms/pigeon/internal/intent"
	"github.com/pigeon-sms/pigeon/internal/middleware"
	"github.com/pigeon-sms/pigeon/internal/notify"
	"github.com/pigeon-sms/pigeon/internal/ratelimit"
	"github.com/pigeon-sms/pigeon/internal/session"
	"github.com/pigeon-sms/pigeon/internal/wallet"
	"github.com/pigeon-sms/pigeon/internal/webhook"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. With no database
// or Redis the shared state (accounts, sessions, dedup, rate limits) falls
// back to in-process stores, which only suits a single instance.
func Setup(app *fiber.App, d Deps) error {
	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	// Health
	RegisterHealthRoutes(app, d)

	// Per-chain wallet services
	algoClient, err := algorand.New(algorand.Config{
		AlgodURL:   d.Cfg.AlgodURL,
		AlgodToken: d.Cfg.AlgodToken,
		IndexerURL: d.Cfg.IndexerURL,
	})
	if err != nil {
		return fmt.Errorf("algorand client: %w", err)
	}
	solClient := solana.New(solana.Config{RPCURL: d.Cfg.SolanaRPC})

	services := map[chain.ID]*wallet.Service{
		chain.Algorand: wallet.NewService(wallet.Config{
			Chain:       algoClient,
			Store:       accountStore(d, chain.Algorand),
			Limiter:     limiter(d),
			AdminSecret: d.Cfg.AlgoAdminMnemonic,
			FundAmount:  d.Cfg.AlgoFundAmount,
			Logger:      d.Logger,
		}),
		chain.Solana: wallet.NewService(wallet.Config{
			Chain:       solClient,
			Store:       accountStore(d, chain.Solana),
			Limiter:     limiter(d),
			AdminSecret: d.Cfg.SolanaAdminSecret,
			FundAmount:  d.Cfg.SolFundAmount,
			Logger:      d.Logger,
		}),
	}

	// Inbound SMS pipeline
	var classifier intent.Classifier
	if d.Cfg.GeminiAPIKey != "" {
		classifier = intent.NewGemini(d.Cfg.GeminiAPIKey)
	}
	var notifier notify.Notifier
	if d.Cfg.HTTPSMSAPIKey != "" && d.Cfg.HTTPSMSOwnerPhone != "" {
		notifier = notify.NewHTTPSMS(d.Cfg.HTTPSMSAPIKey, d.Cfg.HTTPSMSOwnerPhone)
	} else {
		d.Logger.Warn("httpSMS not configured, SMS replies are logged only")
		notifier = notify.NewLoggerNotifier(d.Logger)
	}

	dispatcher := webhook.NewDispatcher(webhook.DispatcherConfig{
		Wallets:    services,
		Classifier: classifier,
		Sessions:   sessionStore(d),
		SessionTTL: d.Cfg.SessionTTL,
		Logger:     d.Logger,
	})
	webhookHandler := webhook.NewHandler(webhook.HandlerConfig{
		Dispatcher: dispatcher,
		Filter:     eventFilter(d),
		Validator:  webhook.NewSignatureValidator(d.Cfg.WebhookSigningKey, nil),
		Notifier:   notifier,
		Scheduler:  notify.NewScheduler(d.Logger),
		Logger:     d.Logger,
	})
	RegisterWebhookRoutes(app, webhookHandler)

	// Application API
	walletHandler := wallet.NewHandler(services)
	api := app.Group("/api/v1", middleware.Audit(d.Logger))
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
	RegisterWalletRoutes(api, walletHandler, d.Cfg.AdminAPIKey)

	return nil
}

func accountStore(d Deps, id chain.ID) accounts.Store {
	if d.DB != nil {
		return accounts.NewPostgresStore(d.DB, id)
	}
	return accounts.NewMemoryStore()
}

func sessionStore(d Deps) session.Store {
	if d.Cache != nil {
		return session.NewRedisStore(d.Cache, d.Cfg.SessionTTL)
	}
	return session.NewMemoryStore()
}

func eventFilter(d Deps) webhook.EventFilter {
	if d.Cache != nil {
		return webhook.NewRedisFilter(d.Cache, d.Cfg.DedupWindow)
	}
	return webhook.NewMemoryFilter(d.Cfg.DedupWindow, nil)
}

func limiter(d Deps) ratelimit.Limiter {
	if d.Cache != nil {
		return ratelimit.NewRedisLimiter(d.Cache, d.Cfg.FundCooldown)
	}
	return ratelimit.NewMemoryLimiter(d.Cfg.FundCooldown)
}
