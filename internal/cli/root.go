// Package cli provides the command-line interface for the trading bot.
package cli

import (
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mexc-trader/internal/broker"
	"mexc-trader/internal/config"
	"mexc-trader/internal/logging"
	"mexc-trader/internal/models"
	"mexc-trader/internal/store"
	"mexc-trader/internal/trading"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-06-01"
)

// App holds the application dependencies.
type App struct {
	Config       *config.Config
	Logger       zerolog.Logger
	Broker       broker.Broker
	Store        store.Store
	Orchestrator *trading.Orchestrator
	Status       *trading.StatusBuilder
}

// Defaults returns the account settings seeded from configuration.
func (a *App) Defaults() models.AccountSettings {
	return a.Config.Bot.Settings()
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	mexc := broker.NewMEXCBroker(broker.MEXCConfig{
		BaseURL:        cfg.Credentials.MEXC.BaseURL,
		Symbol:         cfg.Trading.Symbol,
		CandleInterval: cfg.Trading.CandleInterval,
		APIKey:         cfg.Credentials.MEXC.APIKey,
		APISecret:      cfg.Credentials.MEXC.APISecret,
	})
	if cfg.IsPaperMode() {
		app.Broker = broker.NewPaperBroker(mexc)
		logger.Debug().Msg("paper broker initialized")
	} else {
		app.Broker = mexc
		logger.Debug().Msg("MEXC broker initialized")
	}

	dbPath := filepath.Join(config.DefaultConfigDir(), "trader.db")
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, some features may be unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", dbPath).Msg("SQLite store initialized")
	}

	if app.Store != nil {
		app.Orchestrator = trading.NewOrchestrator(app.Broker, app.Store, app.Defaults(), cfg.Trading.CandleCount, logger)
		app.Status = trading.NewStatusBuilder(app.Broker, app.Store, app.Defaults(), cfg.Trading.CandleCount)
	}

	rootCmd := &cobra.Command{
		Use:   "mexc-trader",
		Short: "MEXC Futures Bot - deterministic leveraged futures trading",
		Long: `MEXC Futures Bot is an automated trading bot for MEXC perpetual futures.

It evaluates a deterministic multi-indicator strategy each tick, sizes
positions from a fixed risk fraction of account balance, and enforces a
daily loss limit with a single open position at a time.

Use 'mexc-trader help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/mexc-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addBotCommands(rootCmd, app)
	addMonitoringCommands(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("MEXC Futures Bot v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Trading Configuration")
	output.Printf("  Mode:       %s\n", cfg.Trading.Mode)
	output.Printf("  Symbol:     %s\n", cfg.Trading.Symbol)
	output.Printf("  Interval:   %ds\n", cfg.Trading.IntervalSeconds)
	output.Println()

	output.Bold("Bot Configuration")
	output.Printf("  Enabled:          %t\n", cfg.Bot.Enabled)
	output.Printf("  Leverage:         %dx\n", cfg.Bot.Leverage)
	output.Printf("  Risk per trade:   %.2f%%\n", cfg.Bot.RiskPerTradePct*100)
	output.Printf("  Max daily loss:   %.2f%%\n", cfg.Bot.MaxDailyLossPct*100)
	output.Printf("  Account balance:  %.2f\n", cfg.Bot.AccountBalance)
	output.Println()

	output.Bold("Server Configuration")
	output.Printf("  Addr:  %s\n", cfg.Server.Addr)
	output.Println()

	if cfg.Credentials.MEXC.APIKey != "" {
		output.Success("MEXC credentials configured")
	} else {
		output.Warning("MEXC credentials not configured (market data only)")
	}
}
