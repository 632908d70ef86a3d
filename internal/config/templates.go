package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# MEXC Trader Configuration

[trading]
# Trading mode: "live" or "paper"
mode = "paper"
# Futures contract symbol
symbol = "SOL_USDT"
# Seconds between evaluation ticks
interval_seconds = 60
# Candle interval fetched for the signal engine
candle_interval = "Min1"
# Number of candles fetched per tick
candle_count = 120

[bot]
# Account identifier used for persistence keys
account_id = "default"
# Master switch; the bot is a no-op while disabled
enabled = false
# Leverage applied to entries
leverage = 5
# Fraction of account balance risked per trade (0.01 = 1%)
risk_per_trade_pct = 0.01
# Stop-loss distance as a fraction of price; 0 uses the signal's suggestion
stop_loss_pct = 0.0
# Take-profit distance as a fraction of price; 0 uses the signal's suggestion
take_profit_pct = 0.0
# Daily realized-loss ceiling as a fraction of balance
max_daily_loss_pct = 0.05
# Account balance used for sizing
account_balance = 1000.0

[server]
# Status API listen address
addr = ":8090"
`

const credentialsTemplate = `# MEXC Trader Credentials
# Keep this file private. Values may also come from MEXC_API_KEY and
# MEXC_API_SECRET environment variables.

[mexc]
api_key = ""
api_secret = ""
base_url = "https://contract.mexc.com/api"
`

func createTemplateConfig(configDir string) error {
	return writeTemplate(configDir, "config.toml", configTemplate, 0644)
}

func createTemplateCredentials(configDir string) error {
	return writeTemplate(configDir, "credentials.toml", credentialsTemplate, 0600)
}

func writeTemplate(configDir, name, content string, perm os.FileMode) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	path := filepath.Join(configDir, name)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
