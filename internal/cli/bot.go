package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mexc-trader/internal/trading"
)

// addBotCommands adds the tick and run commands.
func addBotCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newTickCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
}

func newTickCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run a single evaluation tick",
		Long:  "Fetch market data, evaluate the strategy once, and act on the result.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Orchestrator == nil {
				return fmt.Errorf("store not initialized, cannot run ticks")
			}

			result := app.Orchestrator.Tick(cmd.Context())
			if output.IsJSON() {
				return output.JSON(tickResultView(result))
			}
			printTickResult(output, result)
			return result.Err
		},
	}
}

func newRunCmd(app *App) *cobra.Command {
	var intervalSeconds int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bot loop until interrupted",
		Long: `Run evaluation ticks on a fixed interval until SIGINT or SIGTERM.

Ticks never overlap: if one tick runs past the interval, the next fires
after it completes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Orchestrator == nil {
				return fmt.Errorf("store not initialized, cannot run ticks")
			}

			interval := intervalSeconds
			if interval <= 0 {
				interval = app.Config.Trading.IntervalSeconds
			}
			if interval <= 0 {
				interval = 60
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			output.Info("Bot loop started (interval %ds, symbol %s, mode %s)",
				interval, app.Config.Trading.Symbol, app.Config.Trading.Mode)

			ticker := time.NewTicker(time.Duration(interval) * time.Second)
			defer ticker.Stop()

			// First tick immediately, then on the interval.
			runOnce(ctx, app, output)
			for {
				select {
				case <-ctx.Done():
					output.Info("Bot loop stopped")
					return nil
				case <-ticker.C:
					runOnce(ctx, app, output)
				}
			}
		},
	}

	cmd.Flags().IntVar(&intervalSeconds, "interval", 0, "tick interval in seconds (default: from config)")
	return cmd
}

func runOnce(ctx context.Context, app *App, output *Output) {
	if ctx.Err() != nil {
		return
	}
	result := app.Orchestrator.Tick(ctx)
	printTickResult(output, result)
}

// tickResultView flattens a tick result for JSON output.
func tickResultView(result trading.TickResult) map[string]interface{} {
	view := map[string]interface{}{
		"outcome": string(result.Outcome),
		"price":   result.Price,
	}
	if result.Signal != nil {
		view["signal"] = result.Signal
	}
	if len(result.Reasons) > 0 {
		view["reasons"] = result.Reasons
	}
	if result.Position != nil {
		view["position"] = result.Position
	}
	if result.Err != nil {
		view["error"] = result.Err.Error()
	}
	return view
}

func printTickResult(output *Output, result trading.TickResult) {
	ts := time.Now().Format("15:04:05")
	switch result.Outcome {
	case trading.TickNoop:
		output.Dim("[%s] bot disabled, nothing to do", ts)
	case trading.TickHold:
		output.Printf("[%s] holding", ts)
		if result.Signal != nil {
			output.Printf(" (%s, confidence %.0f)", result.Signal.Action, result.Signal.Confidence)
		}
		output.Println()
	case trading.TickBlocked:
		output.Warning("[%s] entry blocked: %v", ts, result.Reasons)
	case trading.TickEntered:
		p := result.Position
		output.Success("[%s] entered %s %.3f @ %.4f (stop %.4f, target %.4f)",
			ts, p.Side, p.Quantity, p.EntryPrice, p.StopLoss, p.TakeProfit)
	case trading.TickExited:
		p := result.Position
		pnl := 0.0
		if p.PnL != nil {
			pnl = *p.PnL
		}
		if pnl >= 0 {
			output.Success("[%s] exited %s @ %.4f, pnl %.4f", ts, p.Side, result.Price, pnl)
		} else {
			output.Error("[%s] exited %s @ %.4f, pnl %.4f", ts, p.Side, result.Price, pnl)
		}
	case trading.TickError:
		output.Error("[%s] tick failed: %v", ts, result.Err)
	}
}
