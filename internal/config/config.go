package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/polkiloo/cryptostore/internal/domain/model"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress       string
	DatabaseURI      string
	RedisAddress     string
	KafkaBrokers     []string
	OrderEventsTopic string
	JWTSecret        string
	// AdminLogins register with the admin role.
	AdminLogins      []string
	TokenTTL         time.Duration
	LogLevel         string

	PaymentPollInterval time.Duration
	WorkerPoolSize      int
	PollBatchSize       int
	PaymentTTL          time.Duration
	// ReconcileLease is how long a selected payment stays claimed by one worker.
	ReconcileLease      time.Duration
	ShutdownTimeout     time.Duration

	ExplorerTimeout     time.Duration
	ExplorerRPS         float64
	TipCacheTTL         time.Duration
	BitcoinExplorerURL  string
	EthereumExplorerURL string
	EthereumAPIKey      string
	CardanoExplorerURL  string
	CardanoProjectID    string

	// Wallets holds the store receive address per provider.
	Wallets map[model.Provider]string
	// ConfirmationThresholds is the only place settlement depth is defined.
	ConfirmationThresholds model.ConfirmationThresholds
}

const (
	defaultRunAddress          = ":8080"
	defaultJWTSecret           = "change-me-in-production"
	defaultTokenTTL            = 24 * time.Hour
	defaultLogLevel            = "info"
	defaultOrderEventsTopic    = "order-events"
	defaultPaymentPollInterval = 30 * time.Second
	defaultWorkerPoolSize      = 4
	defaultPollBatchSize       = 32
	defaultPaymentTTL          = 2 * time.Hour
	defaultReconcileLease      = 2 * time.Minute
	defaultShutdownTimeout     = 10 * time.Second
	defaultExplorerTimeout     = 10 * time.Second
	defaultExplorerRPS         = 5
	defaultTipCacheTTL         = 15 * time.Second
	defaultBitcoinExplorerURL  = "https://blockstream.info/api"
	defaultEthereumExplorerURL = "https://api.etherscan.io/api"
	defaultCardanoExplorerURL  = "https://cardano-mainnet.blockfrost.io/api/v0"
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:          getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:         getString(lookup, "DATABASE_URI", ""),
		RedisAddress:        getString(lookup, "REDIS_ADDRESS", ""),
		OrderEventsTopic:    getString(lookup, "ORDER_EVENTS_TOPIC", defaultOrderEventsTopic),
		JWTSecret:           getString(lookup, "JWT_SECRET", defaultJWTSecret),
		TokenTTL:            getDuration(lookup, "TOKEN_TTL", defaultTokenTTL),
		LogLevel:            getString(lookup, "LOG_LEVEL", defaultLogLevel),
		PaymentPollInterval: getDuration(lookup, "PAYMENT_POLL_INTERVAL", defaultPaymentPollInterval),
		WorkerPoolSize:      getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		PollBatchSize:       getInt(lookup, "POLL_BATCH_SIZE", defaultPollBatchSize),
		PaymentTTL:          getDuration(lookup, "PAYMENT_TTL", defaultPaymentTTL),
		ReconcileLease:      getDuration(lookup, "RECONCILE_LEASE", defaultReconcileLease),
		ShutdownTimeout:     getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		ExplorerTimeout:     getDuration(lookup, "EXPLORER_TIMEOUT", defaultExplorerTimeout),
		ExplorerRPS:         getFloat(lookup, "EXPLORER_RPS", defaultExplorerRPS),
		TipCacheTTL:         getDuration(lookup, "TIP_CACHE_TTL", defaultTipCacheTTL),
		BitcoinExplorerURL:  getString(lookup, "BITCOIN_EXPLORER_URL", defaultBitcoinExplorerURL),
		EthereumExplorerURL: getString(lookup, "ETHEREUM_EXPLORER_URL", defaultEthereumExplorerURL),
		EthereumAPIKey:      getString(lookup, "ETHEREUM_API_KEY", ""),
		CardanoExplorerURL:  getString(lookup, "CARDANO_EXPLORER_URL", defaultCardanoExplorerURL),
		CardanoProjectID:    getString(lookup, "CARDANO_PROJECT_ID", ""),
	}

	fs := flag.NewFlagSet("cryptostore", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		pollIntervalStr    = cfg.PaymentPollInterval.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
		kafkaBrokersStr    = getString(lookup, "KAFKA_BROKERS", "")
		thresholdsStr      = getString(lookup, "CONFIRMATION_THRESHOLDS", "")
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.RedisAddress, "redis", cfg.RedisAddress, "Redis address for cache tags")
	fs.StringVar(&kafkaBrokersStr, "kafka-brokers", kafkaBrokersStr, "Comma separated Kafka brokers")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "Secret for signing auth tokens")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent payment workers")
	fs.StringVar(&pollIntervalStr, "poll-interval", pollIntervalStr, "Interval between explorer polls")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.IntVar(&cfg.PollBatchSize, "poll-batch", cfg.PollBatchSize, "Maximum payments per polling batch")
	fs.StringVar(&thresholdsStr, "confirmations", thresholdsStr, "Per provider confirmation thresholds, e.g. bitcoin=1,ethereum=12")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.PaymentPollInterval, err = time.ParseDuration(pollIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid poll interval: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if cfg.ConfirmationThresholds, err = parseThresholds(thresholdsStr); err != nil {
		return nil, fmt.Errorf("invalid confirmation thresholds: %w", err)
	}

	cfg.KafkaBrokers = splitList(kafkaBrokersStr)
	cfg.AdminLogins = splitList(getString(lookup, "ADMIN_LOGINS", ""))
	cfg.Wallets = map[model.Provider]string{
		model.ProviderBitcoin:  getString(lookup, "BITCOIN_WALLET", ""),
		model.ProviderEthereum: getString(lookup, "ETHEREUM_WALLET", ""),
		model.ProviderCardano:  getString(lookup, "CARDANO_WALLET", ""),
	}

	if secretFile, ok := lookup("JWT_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read jwt secret file: %w", err)
		}
		cfg.JWTSecret = strings.TrimSpace(string(content))
	}

	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}

	if cfg.PollBatchSize <= 0 {
		cfg.PollBatchSize = defaultPollBatchSize
	}

	if cfg.PaymentPollInterval <= 0 {
		cfg.PaymentPollInterval = defaultPaymentPollInterval
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.PaymentTTL <= 0 {
		cfg.PaymentTTL = defaultPaymentTTL
	}

	if cfg.ReconcileLease <= 0 {
		cfg.ReconcileLease = defaultReconcileLease
	}

	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}

	if cfg.ExplorerTimeout <= 0 {
		cfg.ExplorerTimeout = defaultExplorerTimeout
	}

	if cfg.ExplorerRPS <= 0 {
		cfg.ExplorerRPS = defaultExplorerRPS
	}

	if cfg.TipCacheTTL <= 0 {
		cfg.TipCacheTTL = defaultTipCacheTTL
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	return cfg, nil
}

// parseThresholds overlays "provider=n" pairs onto the default thresholds.
func parseThresholds(raw string) (model.ConfirmationThresholds, error) {
	thresholds := model.DefaultConfirmationThresholds()
	for _, pair := range splitList(raw) {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("malformed pair %q", pair)
		}
		provider, ok := model.ParseProvider(strings.ToLower(strings.TrimSpace(name)))
		if !ok {
			return nil, fmt.Errorf("unknown provider %q", name)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("threshold for %s must be a positive integer", provider)
		}
		thresholds[provider] = n
	}
	return thresholds, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(lookup envLookup, key string, def float64) float64 {
	if v, ok := lookup(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
