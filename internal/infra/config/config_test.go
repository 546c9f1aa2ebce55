package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.App.HTTPAddr)
	assert.Equal(t, "https://public-api.birdeye.so", cfg.Birdeye.BaseURL)
	assert.Equal(t, 3, cfg.Birdeye.MaxRetries)
	assert.Equal(t, 20.0, cfg.Alerts.MarketCapChangePct)
	assert.Equal(t, time.Hour, cfg.Alerts.Cooldown)
	assert.Equal(t, 24*time.Hour, cfg.Alerts.NewTokenWindow)
	assert.Equal(t, 100, cfg.Embeddings.BatchSize)
	assert.Equal(t, "pgvector", cfg.Embeddings.Backend)
}

func TestLoadConfigEnvAliases(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/alpha")
	t.Setenv("BIRDEYE_API_KEY", "be-key")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")
	t.Setenv("ALERTS_COOLDOWN", "30m")
	t.Setenv("API_READ_TOKEN", "reader")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/alpha", cfg.Database.DSN)
	assert.Equal(t, "be-key", cfg.Birdeye.APIKey)
	assert.Equal(t, int64(-100123), cfg.Telegram.DefaultChatID)
	assert.Equal(t, 30*time.Minute, cfg.Alerts.Cooldown)
	assert.Equal(t, "reader", cfg.App.ReadToken)
}

func TestLoadConfigFlagsOverride(t *testing.T) {
	fs := Flags()
	require.NoError(t, fs.Parse([]string{"--embeddings.backend=pinecone", "--app.http_addr=:9090"}))

	cfg, err := LoadConfig(fs)
	require.NoError(t, err)
	assert.Equal(t, "pinecone", cfg.Embeddings.Backend)
	assert.Equal(t, ":9090", cfg.App.HTTPAddr)
}

func TestValidate(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	require.Error(t, ValidateDatabase(cfg))
	require.Error(t, ValidateServe(cfg))

	cfg.Database.DSN = "postgres://localhost/alpha"
	cfg.Telegram.BotToken = "123:abc"
	require.NoError(t, ValidateDatabase(cfg))
	require.NoError(t, ValidateServe(cfg))

	cfg.Alerts.MarketCapChangePct = 0
	require.Error(t, ValidateAlerts(cfg))
}
