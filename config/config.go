package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"finengine/database"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// HTTP configuration
	HTTPAddr           string
	CORSAllowedOrigins []string

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated)
	NATSEnabled bool

	// Withdrawal configuration
	WithdrawalChargeRate decimal.Decimal // Fraction of the amount kept as charge
	MinWithdrawalAmount  int64

	// Spin configuration
	DailySpinLimit int     // Spins per user per UTC day, 0 means unlimited
	SpinRandomSeed *uint64 // Seeds a reproducible PCG source when set

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // console, otlp or none
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Logging
	LogLevel string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// HTTP
		HTTPAddr:           getEnvWithDefault("HTTP_ADDR", ":8080"),
		CORSAllowedOrigins: splitList(getEnvWithDefault("CORS_ALLOWED_ORIGINS", "*")),

		// NATS
		NATSServers: getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),
		NATSEnabled: os.Getenv("NATS_ENABLED") == "true",

		// Withdrawals
		WithdrawalChargeRate: decimal.RequireFromString("0.001"),
		MinWithdrawalAmount:  10000,

		// Spins
		DailySpinLimit: 3,

		// OpenTelemetry
		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "finengine"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "console"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317"),
		OTelExportIntervalMillis: 30000,

		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if rate := os.Getenv("WITHDRAWAL_CHARGE_RATE"); rate != "" {
		parsed, err := decimal.NewFromString(rate)
		if err != nil {
			return nil, fmt.Errorf("invalid WITHDRAWAL_CHARGE_RATE %q: %w", rate, err)
		}
		if parsed.IsNegative() || parsed.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("WITHDRAWAL_CHARGE_RATE must be in [0, 1), got %s", rate)
		}
		config.WithdrawalChargeRate = parsed
	}
	if minAmount := os.Getenv("MIN_WITHDRAWAL_AMOUNT"); minAmount != "" {
		parsed, err := strconv.ParseInt(minAmount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid MIN_WITHDRAWAL_AMOUNT %q: %w", minAmount, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("MIN_WITHDRAWAL_AMOUNT must be positive, got %d", parsed)
		}
		config.MinWithdrawalAmount = parsed
	}
	if limit := os.Getenv("DAILY_SPIN_LIMIT"); limit != "" {
		parsed, err := strconv.Atoi(limit)
		if err != nil {
			return nil, fmt.Errorf("invalid DAILY_SPIN_LIMIT %q: %w", limit, err)
		}
		if parsed < 0 {
			return nil, fmt.Errorf("DAILY_SPIN_LIMIT cannot be negative, got %d", parsed)
		}
		config.DailySpinLimit = parsed
	}
	if seed := os.Getenv("SPIN_RANDOM_SEED"); seed != "" {
		parsed, err := strconv.ParseUint(seed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SPIN_RANDOM_SEED %q: %w", seed, err)
		}
		config.SpinRandomSeed = &parsed
	}
	if interval := os.Getenv("OTEL_EXPORT_INTERVAL_MS"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil && parsed > 0 {
			config.OTelExportIntervalMillis = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:              "test",
		HTTPAddr:                 ":0",
		CORSAllowedOrigins:       []string{"*"},
		WithdrawalChargeRate:     decimal.RequireFromString("0.001"),
		MinWithdrawalAmount:      10000,
		DailySpinLimit:           3,
		OTelServiceName:          "finengine-test",
		OTelExporterType:         "none",
		OTelExportIntervalMillis: 30000,
		LogLevel:                 "debug",
	}
}
