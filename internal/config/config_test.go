package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesTemplatesAndAppliesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	// Missing files are replaced by templates so the next run is editable.
	assert.FileExists(t, filepath.Join(dir, "config.toml"))
	assert.FileExists(t, filepath.Join(dir, "credentials.toml"))

	assert.Equal(t, "paper", cfg.Trading.Mode)
	assert.Equal(t, "SOL_USDT", cfg.Trading.Symbol)
	assert.Equal(t, 60, cfg.Trading.IntervalSeconds)
	assert.Equal(t, 120, cfg.Trading.CandleCount)
	assert.Equal(t, "default", cfg.Bot.AccountID)
	assert.False(t, cfg.Bot.Enabled)
	assert.Equal(t, 5, cfg.Bot.Leverage)
	assert.Equal(t, 0.05, cfg.Bot.MaxDailyLossPct)
	assert.True(t, cfg.IsPaperMode())
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[trading]
mode = "live"
symbol = "BTC_USDT"
interval_seconds = 30

[bot]
enabled = true
leverage = 20
risk_per_trade_pct = 0.02
max_daily_loss_pct = 0.03
account_balance = 5000.0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "live", cfg.Trading.Mode)
	assert.Equal(t, "BTC_USDT", cfg.Trading.Symbol)
	assert.Equal(t, 30, cfg.Trading.IntervalSeconds)
	assert.True(t, cfg.Bot.Enabled)
	assert.Equal(t, 20, cfg.Bot.Leverage)
	assert.Equal(t, 0.02, cfg.Bot.RiskPerTradePct)
	assert.False(t, cfg.IsPaperMode())
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MEXC_API_KEY", "env-key")
	t.Setenv("MEXC_API_SECRET", "env-secret")
	t.Setenv("MEXC_SYMBOL", "ETH_USDT")
	t.Setenv("TRADING_MODE", "live")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Credentials.MEXC.APIKey)
	assert.Equal(t, "env-secret", cfg.Credentials.MEXC.APISecret)
	assert.Equal(t, "ETH_USDT", cfg.Trading.Symbol)
	assert.Equal(t, "live", cfg.Trading.Mode)
}

func TestValidateRejectsOutOfRangeValues(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Trading: TradingConfig{Mode: "paper", Symbol: "SOL_USDT", IntervalSeconds: 60},
			Bot: BotConfig{
				Leverage:        10,
				RiskPerTradePct: 0.01,
				StopLossPct:     0.002,
				TakeProfitPct:   0.004,
				MaxDailyLossPct: 0.05,
				AccountBalance:  1000,
			},
		}
	}

	assert.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Trading.Mode = "dry-run" }},
		{"empty symbol", func(c *Config) { c.Trading.Symbol = "" }},
		{"zero interval", func(c *Config) { c.Trading.IntervalSeconds = 0 }},
		{"leverage too low", func(c *Config) { c.Bot.Leverage = 0 }},
		{"leverage too high", func(c *Config) { c.Bot.Leverage = 200 }},
		{"negative risk", func(c *Config) { c.Bot.RiskPerTradePct = -0.01 }},
		{"stop above one", func(c *Config) { c.Bot.StopLossPct = 1.5 }},
		{"zero daily limit", func(c *Config) { c.Bot.MaxDailyLossPct = 0 }},
		{"zero balance", func(c *Config) { c.Bot.AccountBalance = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestBotSettingsConversion(t *testing.T) {
	bot := BotConfig{
		AccountID:       "default",
		Enabled:         true,
		Leverage:        10,
		RiskPerTradePct: 0.01,
		MaxDailyLossPct: 0.05,
		AccountBalance:  1000,
	}

	settings := bot.Settings()
	assert.Equal(t, "default", settings.AccountID)
	assert.True(t, settings.Enabled)
	assert.Equal(t, 10, settings.Leverage)
	assert.Equal(t, 1000.0, settings.AccountBalance)
}
