// Package config provides configuration management for the trading bot.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"mexc-trader/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Trading     TradingConfig `mapstructure:"trading"`
	Bot         BotConfig     `mapstructure:"bot"`
	Server      ServerConfig  `mapstructure:"server"`
	Credentials Credentials   `mapstructure:"-"` // Loaded separately
}

// TradingConfig holds exchange and scheduling configuration.
type TradingConfig struct {
	Mode            string `mapstructure:"mode"`   // "live", "paper"
	Symbol          string `mapstructure:"symbol"` // e.g. SOL_USDT
	IntervalSeconds int    `mapstructure:"interval_seconds"`
	CandleInterval  string `mapstructure:"candle_interval"` // e.g. Min1
	CandleCount     int    `mapstructure:"candle_count"`
}

// BotConfig holds the per-account risk settings applied on each tick.
type BotConfig struct {
	AccountID       string  `mapstructure:"account_id"`
	Enabled         bool    `mapstructure:"enabled"`
	Leverage        int     `mapstructure:"leverage"`
	RiskPerTradePct float64 `mapstructure:"risk_per_trade_pct"`
	StopLossPct     float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct   float64 `mapstructure:"take_profit_pct"`
	MaxDailyLossPct float64 `mapstructure:"max_daily_loss_pct"`
	AccountBalance  float64 `mapstructure:"account_balance"`
}

// Settings converts the bot section into the account settings seeded into
// the store on first run.
func (b BotConfig) Settings() models.AccountSettings {
	return models.AccountSettings{
		AccountID:       b.AccountID,
		Enabled:         b.Enabled,
		Leverage:        b.Leverage,
		RiskPerTradePct: b.RiskPerTradePct,
		StopLossPct:     b.StopLossPct,
		TakeProfitPct:   b.TakeProfitPct,
		MaxDailyLossPct: b.MaxDailyLossPct,
		AccountBalance:  b.AccountBalance,
	}
}

// ServerConfig holds the status API configuration.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Credentials holds exchange API credentials. They are treated as opaque
// strings; storage and encryption live outside this program.
type Credentials struct {
	MEXC MEXCCredentials `mapstructure:"mexc"`
}

// MEXCCredentials holds MEXC futures API credentials.
type MEXCCredentials struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	BaseURL   string `mapstructure:"base_url"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/mexc-trader"
	}
	return filepath.Join(home, ".config", "mexc-trader")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("trading.mode", "paper")
	v.SetDefault("trading.symbol", "SOL_USDT")
	v.SetDefault("trading.interval_seconds", 60)
	v.SetDefault("trading.candle_interval", "Min1")
	v.SetDefault("trading.candle_count", 120)
	v.SetDefault("bot.account_id", "default")
	v.SetDefault("bot.enabled", false)
	v.SetDefault("bot.leverage", 5)
	v.SetDefault("bot.risk_per_trade_pct", 0.01)
	v.SetDefault("bot.stop_loss_pct", 0.0)
	v.SetDefault("bot.take_profit_pct", 0.0)
	v.SetDefault("bot.max_daily_loss_pct", 0.05)
	v.SetDefault("bot.account_balance", 1000.0)
	v.SetDefault("server.addr", ":8090")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := createTemplateConfig(configDir); err != nil {
				return err
			}
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("mexc.base_url", "https://contract.mexc.com/api")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := createTemplateCredentials(configDir); err != nil {
				return err
			}
			return v.Unmarshal(creds)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MEXC_API_KEY"); v != "" {
		cfg.Credentials.MEXC.APIKey = v
	}
	if v := os.Getenv("MEXC_API_SECRET"); v != "" {
		cfg.Credentials.MEXC.APISecret = v
	}
	if v := os.Getenv("MEXC_BASE_URL"); v != "" {
		cfg.Credentials.MEXC.BaseURL = v
	}
	if v := os.Getenv("MEXC_SYMBOL"); v != "" {
		cfg.Trading.Symbol = v
	}
	if v := os.Getenv("TRADING_MODE"); v != "" {
		cfg.Trading.Mode = v
	}
}

// Validate validates the configuration. This is the settings boundary: the
// core trusts the values it receives from here.
func (c *Config) Validate() error {
	if c.Trading.Mode != "" && c.Trading.Mode != "live" && c.Trading.Mode != "paper" {
		return fmt.Errorf("invalid trading mode: %s (must be 'live' or 'paper')", c.Trading.Mode)
	}
	if c.Trading.Symbol == "" {
		return fmt.Errorf("trading symbol must be set")
	}
	if c.Trading.IntervalSeconds <= 0 {
		return fmt.Errorf("interval_seconds must be positive")
	}
	if c.Bot.Leverage < 1 || c.Bot.Leverage > 125 {
		return fmt.Errorf("leverage must be between 1 and 125")
	}
	if c.Bot.RiskPerTradePct < 0 || c.Bot.RiskPerTradePct > 1 {
		return fmt.Errorf("risk_per_trade_pct must be between 0 and 1")
	}
	if c.Bot.StopLossPct < 0 || c.Bot.StopLossPct > 1 {
		return fmt.Errorf("stop_loss_pct must be between 0 and 1")
	}
	if c.Bot.TakeProfitPct < 0 || c.Bot.TakeProfitPct > 1 {
		return fmt.Errorf("take_profit_pct must be between 0 and 1")
	}
	if c.Bot.MaxDailyLossPct <= 0 || c.Bot.MaxDailyLossPct > 1 {
		return fmt.Errorf("max_daily_loss_pct must be between 0 and 1")
	}
	if c.Bot.AccountBalance <= 0 {
		return fmt.Errorf("account_balance must be positive")
	}
	return nil
}

// IsPaperMode returns true if paper trading mode is enabled.
func (c *Config) IsPaperMode() bool {
	return c.Trading.Mode == "paper"
}
