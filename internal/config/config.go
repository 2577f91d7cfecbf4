package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers understood by the storage module.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress    string
	StorageDriver string
	DatabaseURI   string
	SQLitePath    string

	GatewayBaseURL        string
	GatewayConsumerKey    string
	GatewayConsumerSecret string
	GatewayShortcode      string
	GatewayPasskey        string
	GatewayRateLimit      float64
	CallbackURL           string

	OperatorEmail     string
	CatalogPath       string
	AdminLogin        string
	AdminPasswordHash string
	AuthSecret        string

	KafkaBrokers      []string
	NotificationTopic string

	RecoveryPollInterval time.Duration
	RecoveryBatchSize    int
	RecoveryWorkers      int
	RecoveryMaxAttempts  int
	RecoveryBaseBackoff  time.Duration
	RecoveryMaxBackoff   time.Duration
	RecoveryLeaseTTL     time.Duration

	ShutdownTimeout time.Duration
	LogLevel        string
}

// Args carries command line arguments into the fx graph.
type Args []string

const (
	defaultRunAddress           = ":8080"
	defaultStorageDriver        = DriverPostgres
	defaultAuthSecret           = "change-me-in-production"
	defaultGatewayRateLimit     = 5
	defaultNotificationTopic    = "storepay.notifications"
	defaultRecoveryPollInterval = 30 * time.Second
	defaultRecoveryBatchSize    = 20
	defaultRecoveryWorkers      = 2
	defaultRecoveryMaxAttempts  = 5
	defaultRecoveryBaseBackoff  = 30 * time.Second
	defaultRecoveryMaxBackoff   = 30 * time.Minute
	defaultRecoveryLeaseTTL     = 2 * time.Minute
	defaultShutdownTimeout      = 10 * time.Second
	defaultLogLevel             = "info"
	defaultEnvFile              = ".env"
)

// Load reads an optional dotenv file, then parses configuration from flags and environment variables.
// Variables already present in the environment win over the dotenv file.
func Load(args Args) (*Config, error) {
	envFile := defaultEnvFile
	if v, ok := os.LookupEnv("ENV_FILE"); ok && v != "" {
		envFile = v
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", envFile, err)
	}
	return load(args, os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:            getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		StorageDriver:         getString(lookup, "STORAGE_DRIVER", defaultStorageDriver),
		DatabaseURI:           getString(lookup, "DATABASE_URI", ""),
		SQLitePath:            getString(lookup, "SQLITE_PATH", ""),
		GatewayBaseURL:        getString(lookup, "GATEWAY_BASE_URL", ""),
		GatewayConsumerKey:    getString(lookup, "GATEWAY_CONSUMER_KEY", ""),
		GatewayConsumerSecret: getString(lookup, "GATEWAY_CONSUMER_SECRET", ""),
		GatewayShortcode:      getString(lookup, "GATEWAY_SHORTCODE", ""),
		GatewayPasskey:        getString(lookup, "GATEWAY_PASSKEY", ""),
		GatewayRateLimit:      getFloat(lookup, "GATEWAY_RATE_LIMIT", defaultGatewayRateLimit),
		CallbackURL:           getString(lookup, "CALLBACK_URL", ""),
		OperatorEmail:         getString(lookup, "OPERATOR_EMAIL", ""),
		CatalogPath:           getString(lookup, "CATALOG_PATH", ""),
		AdminLogin:            getString(lookup, "ADMIN_LOGIN", ""),
		AdminPasswordHash:     getString(lookup, "ADMIN_PASSWORD_HASH", ""),
		AuthSecret:            getString(lookup, "AUTH_SECRET", defaultAuthSecret),
		KafkaBrokers:          splitList(getString(lookup, "KAFKA_BROKERS", "")),
		NotificationTopic:     getString(lookup, "NOTIFICATION_TOPIC", defaultNotificationTopic),
		RecoveryPollInterval:  getDuration(lookup, "RECOVERY_POLL_INTERVAL", defaultRecoveryPollInterval),
		RecoveryBatchSize:     getInt(lookup, "RECOVERY_BATCH_SIZE", defaultRecoveryBatchSize),
		RecoveryWorkers:       getInt(lookup, "RECOVERY_WORKERS", defaultRecoveryWorkers),
		RecoveryMaxAttempts:   getInt(lookup, "RECOVERY_MAX_ATTEMPTS", defaultRecoveryMaxAttempts),
		RecoveryBaseBackoff:   getDuration(lookup, "RECOVERY_BASE_BACKOFF", defaultRecoveryBaseBackoff),
		RecoveryMaxBackoff:    getDuration(lookup, "RECOVERY_MAX_BACKOFF", defaultRecoveryMaxBackoff),
		RecoveryLeaseTTL:      getDuration(lookup, "RECOVERY_LEASE_TTL", defaultRecoveryLeaseTTL),
		ShutdownTimeout:       getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		LogLevel:              getString(lookup, "LOG_LEVEL", defaultLogLevel),
	}

	fs := flag.NewFlagSet("storepay", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		pollIntervalStr    = cfg.RecoveryPollInterval.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.StorageDriver, "storage", cfg.StorageDriver, "Storage driver: postgres or sqlite")
	fs.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "SQLite database file")
	fs.StringVar(&cfg.GatewayBaseURL, "gateway-url", cfg.GatewayBaseURL, "Payment gateway base URL")
	fs.StringVar(&cfg.CallbackURL, "callback-url", cfg.CallbackURL, "Public base URL the gateway calls back")
	fs.StringVar(&cfg.OperatorEmail, "operator-email", cfg.OperatorEmail, "Operator alert address")
	fs.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "Product catalog JSON file")
	fs.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "Secret for signing admin tokens")
	fs.IntVar(&cfg.RecoveryWorkers, "recovery-workers", cfg.RecoveryWorkers, "Number of concurrent recovery workers")
	fs.IntVar(&cfg.RecoveryBatchSize, "recovery-batch", cfg.RecoveryBatchSize, "Maximum recovery jobs per drain pass")
	fs.StringVar(&pollIntervalStr, "poll-interval", pollIntervalStr, "Interval between recovery drains")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.RecoveryPollInterval, err = time.ParseDuration(pollIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid poll interval: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if secretFile, ok := lookup("AUTH_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read auth secret file: %w", err)
		}
		cfg.AuthSecret = strings.TrimSpace(string(content))
	}

	normalize(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func normalize(cfg *Config) {
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	cfg.GatewayBaseURL = strings.TrimRight(cfg.GatewayBaseURL, "/")
	cfg.CallbackURL = strings.TrimRight(cfg.CallbackURL, "/")

	if cfg.GatewayRateLimit <= 0 {
		cfg.GatewayRateLimit = defaultGatewayRateLimit
	}
	if cfg.RecoveryPollInterval <= 0 {
		cfg.RecoveryPollInterval = defaultRecoveryPollInterval
	}
	if cfg.RecoveryBatchSize <= 0 {
		cfg.RecoveryBatchSize = defaultRecoveryBatchSize
	}
	if cfg.RecoveryWorkers <= 0 {
		cfg.RecoveryWorkers = defaultRecoveryWorkers
	}
	if cfg.RecoveryMaxAttempts <= 0 {
		cfg.RecoveryMaxAttempts = defaultRecoveryMaxAttempts
	}
	if cfg.RecoveryBaseBackoff <= 0 {
		cfg.RecoveryBaseBackoff = defaultRecoveryBaseBackoff
	}
	if cfg.RecoveryMaxBackoff <= 0 {
		cfg.RecoveryMaxBackoff = defaultRecoveryMaxBackoff
	}
	if cfg.RecoveryMaxBackoff < cfg.RecoveryBaseBackoff {
		cfg.RecoveryMaxBackoff = cfg.RecoveryBaseBackoff
	}
	if cfg.RecoveryLeaseTTL <= 0 {
		cfg.RecoveryLeaseTTL = defaultRecoveryLeaseTTL
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.NotificationTopic == "" {
		cfg.NotificationTopic = defaultNotificationTopic
	}
}

func validate(cfg *Config) error {
	switch cfg.StorageDriver {
	case DriverPostgres:
		if cfg.DatabaseURI == "" {
			return fmt.Errorf("database URI must be provided")
		}
	case DriverSQLite:
		if cfg.SQLitePath == "" {
			return fmt.Errorf("sqlite path must be provided")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	if cfg.GatewayBaseURL == "" {
		return fmt.Errorf("gateway base URL must be provided")
	}
	if cfg.CallbackURL == "" {
		return fmt.Errorf("callback URL must be provided")
	}
	if cfg.OperatorEmail == "" {
		return fmt.Errorf("operator email must be provided")
	}
	return nil
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
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
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

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
