package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mexc-trader/internal/server"
)

// addMonitoringCommands adds the status, trades, logs, and serve commands.
func addMonitoringCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newStatusCmd(app))
	rootCmd.AddCommand(newTradesCmd(app))
	rootCmd.AddCommand(newLogsCmd(app))
	rootCmd.AddCommand(newServeCmd(app))
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current bot status snapshot",
		Long:  "Fetch market data and persisted state and print the derived status snapshot.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Status == nil {
				return fmt.Errorf("store not initialized, status unavailable")
			}

			snapshot, err := app.Status.Build(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(snapshot)
			}

			output.Bold("Bot Status")
			if snapshot.BotEnabled {
				output.Success("  Enabled")
			} else {
				output.Warning("  Disabled")
			}
			output.Printf("  Price:      %.4f\n", snapshot.Price)
			output.Printf("  Signal:     %s (confidence %.0f)\n", snapshot.Signal.Action, snapshot.Signal.Confidence)
			for _, reason := range snapshot.Signal.Reasons {
				output.Dim("    - %s", reason)
			}
			output.Println()

			output.Bold("Risk")
			output.Printf("  Risk/trade:  %.2f%%\n", snapshot.Risk.RiskPerTradePct*100)
			output.Printf("  Leverage:    %dx\n", snapshot.Risk.Leverage)
			output.Printf("  Daily loss:  %.2f%% of %.2f%% limit\n",
				snapshot.Risk.DailyLossPct*100, snapshot.Risk.MaxDailyLossPct*100)
			output.Printf("  Next qty:    %.3f (stop %.2f%%, target %.2f%%)\n",
				snapshot.Risk.Quantity, snapshot.Risk.StopLossPct*100, snapshot.Risk.TakeProfitPct*100)
			output.Println()

			if snapshot.OpenPosition != nil {
				p := snapshot.OpenPosition
				output.Bold("Open Position")
				output.Printf("  %s %.3f @ %.4f (%dx)\n", p.Side, p.Quantity, p.EntryPrice, p.Leverage)
				output.Printf("  Stop %.4f / Target %.4f\n", p.StopLoss, p.TakeProfit)
				if p.UnrealizedPnL >= 0 {
					output.Success("  Unrealized PnL: %.4f", p.UnrealizedPnL)
				} else {
					output.Error("  Unrealized PnL: %.4f", p.UnrealizedPnL)
				}
			} else {
				output.Dim("No open position")
			}
			return nil
		},
	}
}

func newTradesCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List recent trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store not initialized, trades unavailable")
			}

			trades, err := app.Store.ListRecentPositions(cmd.Context(), app.Defaults().AccountID, limit)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(trades)
			}

			if len(trades) == 0 {
				output.Dim("No trades recorded")
				return nil
			}
			output.Bold("Recent Trades")
			for _, t := range trades {
				line := fmt.Sprintf("  %s  %-4s %.3f @ %.4f", t.OpenedAt.Format("2006-01-02 15:04"), t.Side, t.Quantity, t.EntryPrice)
				if t.Status == "CLOSED" && t.PnL != nil {
					line += fmt.Sprintf("  pnl %.4f", *t.PnL)
					if *t.PnL >= 0 {
						output.Success("%s", line)
					} else {
						output.Error("%s", line)
					}
				} else {
					output.Info("%s  OPEN", line)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of trades to show")
	return cmd
}

func newLogsCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent strategy log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store not initialized, logs unavailable")
			}

			logs, err := app.Store.ListRecentLogs(cmd.Context(), app.Defaults().AccountID, limit)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(logs)
			}

			if len(logs) == 0 {
				output.Dim("No log entries")
				return nil
			}
			for _, entry := range logs {
				ts := entry.CreatedAt.Format("2006-01-02 15:04:05")
				switch entry.Level {
				case "error":
					output.Error("%s  %s", ts, entry.Message)
				case "warn":
					output.Warning("%s  %s", ts, entry.Message)
				default:
					output.Printf("%s  %s\n", ts, entry.Message)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 30, "maximum number of entries to show")
	return cmd
}

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only status API",
		Long:  "Serve /api/status, /api/trades, /healthz and /metrics over HTTP until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Status == nil || app.Store == nil {
				return fmt.Errorf("store not initialized, cannot serve")
			}

			listenAddr := addr
			if listenAddr == "" {
				listenAddr = app.Config.Server.Addr
			}
			if listenAddr == "" {
				listenAddr = ":8080"
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(listenAddr, app.Status, app.Store, app.Defaults().AccountID, app.Logger)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: from config)")
	return cmd
}
