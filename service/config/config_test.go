package config

import (
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		ServerAddr:             ":8080",
		LogLevel:               "info",
		SolanaRPCURL:           "https://api.devnet.solana.com",
		Network:                "devnet",
		HistoryLimit:           10,
		ConfirmationTimeout:    60 * time.Second,
		BalanceRefreshInterval: 30 * time.Second,
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"SERVER_ADDR", "LOG_LEVEL", "SOLANA_RPC_URL", "SOLANA_NETWORK",
		"HISTORY_LIMIT", "CONFIRMATION_TIMEOUT", "BALANCE_REFRESH_INTERVAL",
		"SENDER_PRIVATE_KEY", "RECIPIENT_PUBLIC_KEY",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "https://api.devnet.solana.com", cfg.SolanaRPCURL)
	assert.Equal(t, "devnet", cfg.Network)
	assert.Equal(t, 10, cfg.HistoryLimit)
	assert.Equal(t, 60*time.Second, cfg.ConfirmationTimeout)
	assert.Equal(t, 30*time.Second, cfg.BalanceRefreshInterval)
	assert.False(t, cfg.ServiceWalletEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("HISTORY_LIMIT", "25")
	t.Setenv("CONFIRMATION_TIMEOUT", "90s")
	t.Setenv("SENDER_PRIVATE_KEY", "")
	t.Setenv("RECIPIENT_PUBLIC_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, 25, cfg.HistoryLimit)
	assert.Equal(t, 90*time.Second, cfg.ConfirmationTimeout)
}

func TestLoad_InvalidNetwork(t *testing.T) {
	t.Setenv("SOLANA_NETWORK", "testnet")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOLANA_NETWORK")
}

func TestLoad_InvalidHistoryLimit(t *testing.T) {
	t.Setenv("SOLANA_NETWORK", "devnet")
	t.Setenv("HISTORY_LIMIT", "not-a-number")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HISTORY_LIMIT")
}

func TestValidate_HistoryLimitBounds(t *testing.T) {
	for _, limit := range []int{0, -1, 101} {
		cfg := validConfig()
		cfg.HistoryLimit = limit
		assert.Error(t, cfg.Validate(), "limit %d should be rejected", limit)
	}

	for _, limit := range []int{1, 10, 100} {
		cfg := validConfig()
		cfg.HistoryLimit = limit
		assert.NoError(t, cfg.Validate(), "limit %d should be accepted", limit)
	}
}

func TestValidate_ServiceWalletKeysTogether(t *testing.T) {
	sender := solanago.NewWallet().PrivateKey

	cfg := validConfig()
	cfg.SenderPrivateKey = sender.String()
	require.Error(t, cfg.Validate(), "sender without recipient should be rejected")

	cfg = validConfig()
	cfg.RecipientPublicKey = sender.PublicKey().String()
	require.Error(t, cfg.Validate(), "recipient without sender should be rejected")

	cfg = validConfig()
	cfg.SenderPrivateKey = sender.String()
	cfg.RecipientPublicKey = solanago.NewWallet().PrivateKey.PublicKey().String()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.ServiceWalletEnabled())
}

func TestValidate_BadServiceWalletKeys(t *testing.T) {
	cfg := validConfig()
	cfg.SenderPrivateKey = "garbage!!!"
	cfg.RecipientPublicKey = solanago.NewWallet().PrivateKey.PublicKey().String()
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.SenderPrivateKey = solanago.NewWallet().PrivateKey.String()
	cfg.RecipientPublicKey = "also-garbage!!!"
	require.Error(t, cfg.Validate())
}
