package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	solanago "github.com/gagliardetto/solana-go"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Solana configuration
	SolanaRPCURL string
	Network      string // "devnet" or "mainnet", reported on the info surfaces

	// Wallet behavior
	HistoryLimit           int
	ConfirmationTimeout    time.Duration
	BalanceRefreshInterval time.Duration

	// Service wallet configuration (optional). When both are set, the
	// server also exposes the fixed sender/recipient demo surface under
	// /api/wallet/info, /api/transaction/send, /api/transaction/history.
	SenderPrivateKey   string
	RecipientPublicKey string
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Solana configuration
	cfg.SolanaRPCURL = getEnvOrDefault("SOLANA_RPC_URL", "https://api.devnet.solana.com")
	cfg.Network = getEnvOrDefault("SOLANA_NETWORK", "devnet")
	if cfg.Network != "devnet" && cfg.Network != "mainnet" {
		errs = append(errs, fmt.Errorf("SOLANA_NETWORK must be 'devnet' or 'mainnet', got %q", cfg.Network))
	}

	// Wallet behavior
	historyLimit, err := parseInt("HISTORY_LIMIT", 10)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.HistoryLimit = historyLimit
	}

	confirmationTimeout, err := parseDuration("CONFIRMATION_TIMEOUT", "60s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ConfirmationTimeout = confirmationTimeout
	}

	refreshInterval, err := parseDuration("BALANCE_REFRESH_INTERVAL", "30s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.BalanceRefreshInterval = refreshInterval
	}

	// Service wallet (optional)
	cfg.SenderPrivateKey = os.Getenv("SENDER_PRIVATE_KEY")
	cfg.RecipientPublicKey = os.Getenv("RECIPIENT_PUBLIC_KEY")

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}

	if c.HistoryLimit < 1 || c.HistoryLimit > 100 {
		errs = append(errs, fmt.Errorf("HistoryLimit must be between 1 and 100, got %d", c.HistoryLimit))
	}

	if c.ConfirmationTimeout <= 0 {
		errs = append(errs, fmt.Errorf("ConfirmationTimeout must be positive"))
	}

	if c.BalanceRefreshInterval < time.Second {
		errs = append(errs, fmt.Errorf("BalanceRefreshInterval must be at least 1 second"))
	}

	// The service wallet surface needs both keys or neither.
	if (c.SenderPrivateKey == "") != (c.RecipientPublicKey == "") {
		errs = append(errs, fmt.Errorf("SENDER_PRIVATE_KEY and RECIPIENT_PUBLIC_KEY must be set together"))
	}

	if c.SenderPrivateKey != "" {
		if key, err := solanago.PrivateKeyFromBase58(c.SenderPrivateKey); err != nil {
			errs = append(errs, fmt.Errorf("SENDER_PRIVATE_KEY is not valid base58: %w", err))
		} else if len(key) != 64 {
			errs = append(errs, fmt.Errorf("SENDER_PRIVATE_KEY must decode to 64 bytes, got %d", len(key)))
		}
	}

	if c.RecipientPublicKey != "" {
		if _, err := solanago.PublicKeyFromBase58(c.RecipientPublicKey); err != nil {
			errs = append(errs, fmt.Errorf("RECIPIENT_PUBLIC_KEY is not a valid address: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%v", errs)
	}

	return nil
}

// ServiceWalletEnabled reports whether the fixed sender/recipient demo
// surface should be registered.
func (c *Config) ServiceWalletEnabled() bool {
	return c.SenderPrivateKey != "" && c.RecipientPublicKey != ""
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
