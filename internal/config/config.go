package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName       = "Pigeon"
	defaultAppEnv        = "development"
	defaultPort          = "8080"
	defaultLogLevel      = "info"
	defaultShutdownDelay = 10 * time.Second
	defaultSessionTTL    = 5 * time.Minute
	defaultDedupWindow   = 5 * time.Minute
	defaultFundCooldown  = 24 * time.Hour

	defaultAlgodURL  = "https://testnet-api.algonode.cloud"
	defaultSolanaRPC = "https://api.devnet.solana.com"

	// defaultAlgoFundAmount is 1 ALGO in microalgos.
	defaultAlgoFundAmount = 1_000_000
	// defaultSolFundAmount is 0.1 SOL in lamports.
	defaultSolFundAmount = 100_000_000

	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	ShutdownPeriod time.Duration

	// DatabaseURL and RedisURL are optional in development; without them
	// the service falls back to in-process stores.
	DatabaseURL string
	RedisURL    string

	AlgodURL   string
	AlgodToken string
	IndexerURL string
	SolanaRPC  string

	// Admin signing credentials, one per chain. Empty disables the faucet
	// for that chain.
	AlgoAdminMnemonic string
	SolanaAdminSecret string

	HTTPSMSAPIKey     string
	HTTPSMSOwnerPhone string
	WebhookSigningKey string

	GeminiAPIKey string

	// AdminAPIKey guards destructive account endpoints. Empty leaves them
	// unregistered.
	AdminAPIKey string

	SessionTTL   time.Duration
	DedupWindow  time.Duration
	FundCooldown time.Duration

	// Faucet grants in base units (microalgos / lamports).
	AlgoFundAmount uint64
	SolFundAmount  uint64
}

// Load reads configuration values from the environment and populates a Config
// instance. A .env file in the working directory is applied first when
// present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		ShutdownPeriod: defaultShutdownDelay,

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		AlgodURL:   getEnv("ALGOD_URL", defaultAlgodURL),
		AlgodToken: os.Getenv("ALGOD_TOKEN"),
		IndexerURL: os.Getenv("INDEXER_URL"),
		SolanaRPC:  getEnv("SOLANA_RPC_URL", defaultSolanaRPC),

		AlgoAdminMnemonic: os.Getenv("ALGO_ADMIN_MNEMONIC"),
		SolanaAdminSecret: os.Getenv("SOLANA_ADMIN_PRIVATE_KEY"),

		HTTPSMSAPIKey:     os.Getenv("HTTPSMS_API_KEY"),
		HTTPSMSOwnerPhone: os.Getenv("HTTPSMS_OWNER_PHONE"),
		WebhookSigningKey: os.Getenv("HTTPSMS_WEBHOOK_SIGNING_KEY"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		AdminAPIKey:  os.Getenv("ADMIN_API_KEY"),

		SessionTTL:   defaultSessionTTL,
		DedupWindow:  defaultDedupWindow,
		FundCooldown: defaultFundCooldown,

		AlgoFundAmount: defaultAlgoFundAmount,
		SolFundAmount:  defaultSolFundAmount,
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	var err error
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", cfg.SessionTTL); err != nil {
		return Config{}, err
	}
	if cfg.DedupWindow, err = durationEnv("DEDUP_WINDOW", cfg.DedupWindow); err != nil {
		return Config{}, err
	}
	if cfg.FundCooldown, err = durationEnv("FUND_COOLDOWN", cfg.FundCooldown); err != nil {
		return Config{}, err
	}
	if cfg.AlgoFundAmount, err = uintEnv("ALGO_FUND_AMOUNT", cfg.AlgoFundAmount); err != nil {
		return Config{}, err
	}
	if cfg.SolFundAmount, err = uintEnv("SOL_FUND_AMOUNT", cfg.SolFundAmount); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func uintEnv(key string, fallback uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
