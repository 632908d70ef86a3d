package trading

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mexc-trader/internal/broker"
	apperrors "mexc-trader/internal/errors"
	"mexc-trader/internal/logging"
	"mexc-trader/internal/metrics"
	"mexc-trader/internal/models"
	"mexc-trader/internal/risk"
	"mexc-trader/internal/store"
	"mexc-trader/internal/strategy"
)

// TickOutcome classifies what one tick did. Every tick ends in exactly one
// outcome, and every outcome is logged.
type TickOutcome string

const (
	TickNoop    TickOutcome = "noop"    // bot disabled
	TickHold    TickOutcome = "hold"    // open position kept
	TickBlocked TickOutcome = "blocked" // entry blocked by the risk gate
	TickEntered TickOutcome = "entered" // new position opened
	TickExited  TickOutcome = "exited"  // open position closed
	TickError   TickOutcome = "error"   // tick aborted, state unchanged
)

// TickResult is the explicit outcome of one tick. State flows in through the
// store and back out through this value; the orchestrator itself holds no
// mutable position state between ticks.
type TickResult struct {
	Outcome  TickOutcome
	Price    float64
	Signal   *models.StrategySignal
	Reasons  []string
	Position *models.Position
	Err      error
}

// Orchestrator runs the per-tick pipeline: fetch, signal, exit or
// gate+entry, persist. The caller must serialize ticks for one account;
// concurrent ticks would race on the open-position invariant.
type Orchestrator struct {
	broker      broker.Broker
	store       store.Store
	defaults    models.AccountSettings
	candleCount int
	logger      zerolog.Logger
}

// NewOrchestrator creates a new tick orchestrator.
func NewOrchestrator(b broker.Broker, s store.Store, defaults models.AccountSettings, candleCount int, logger zerolog.Logger) *Orchestrator {
	if candleCount <= 0 {
		candleCount = 120
	}
	return &Orchestrator{
		broker:      b,
		store:       s,
		defaults:    defaults,
		candleCount: candleCount,
		logger:      logging.WithAccount(logger, defaults.AccountID),
	}
}

// marketState holds the independent reads gathered at the start of a tick.
type marketState struct {
	candles   []models.Candle
	orderbook models.OrderBookSnapshot
	price     float64
	open      *models.Position
	dailyLoss float64
}

// Tick runs one evaluation. It performs at most one mutating action: an
// entry, or an exit, never both. On any failure the tick aborts with state
// unchanged; the next tick re-evaluates from persisted state.
func (o *Orchestrator) Tick(ctx context.Context) TickResult {
	settings, err := o.store.GetOrCreateSettings(ctx, o.defaults)
	if err != nil {
		return o.fail(ctx, o.defaults.AccountID, "", apperrors.NewConfigError("settings", "loading account settings", err))
	}

	if !settings.Enabled {
		result := TickResult{Outcome: TickNoop, Reasons: []string{"bot disabled"}}
		o.finish(result)
		return result
	}

	state, err := o.gather(ctx, settings.AccountID)
	if err != nil {
		return o.fail(ctx, settings.AccountID, "", err)
	}
	metrics.LastPrice.Set(state.price)
	metrics.DailyLossFraction.Set(state.dailyLoss)

	signal := strategy.Evaluate(state.candles, state.orderbook)
	metrics.Signals.WithLabelValues(string(signal.Action)).Inc()
	logging.LogSignal(o.logger, string(signal.Action), signal.Confidence, signal.Reasons)

	if state.open != nil {
		// One action per tick: with a position open only the exit path
		// runs, and a fresh entry waits for the next tick after a close.
		return o.evaluateExit(ctx, settings, state, signal)
	}
	return o.evaluateEntry(ctx, settings, state, signal)
}

// gather runs the independent read-only fetches in parallel. The first
// error wins and aborts the tick.
func (o *Orchestrator) gather(ctx context.Context, accountID string) (marketState, error) {
	var (
		state    marketState
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)

	record := func(err error) {
		mu.Lock()
		if firstErr == nil && err != nil {
			firstErr = err
		}
		mu.Unlock()
	}

	wg.Add(5)
	go func() {
		defer wg.Done()
		candles, err := o.broker.FetchCandles(ctx, o.candleCount)
		if err != nil {
			record(apperrors.NewMarketDataError("kline", accountID, err))
			return
		}
		state.candles = candles
	}()
	go func() {
		defer wg.Done()
		orderbook, err := o.broker.FetchOrderBook(ctx)
		if err != nil {
			record(apperrors.NewMarketDataError("depth", accountID, err))
			return
		}
		state.orderbook = orderbook
	}()
	go func() {
		defer wg.Done()
		price, err := o.broker.FetchPrice(ctx)
		if err != nil {
			record(apperrors.NewMarketDataError("ticker", accountID, err))
			return
		}
		state.price = price
	}()
	go func() {
		defer wg.Done()
		open, err := o.store.GetOpenPosition(ctx, accountID)
		if err != nil {
			record(apperrors.Wrap(err, "loading open position"))
			return
		}
		state.open = open
	}()
	go func() {
		defer wg.Done()
		dailyLoss, err := o.store.GetTodayLossFraction(ctx, accountID)
		if err != nil {
			record(apperrors.Wrap(err, "loading daily loss"))
			return
		}
		state.dailyLoss = dailyLoss
	}()
	wg.Wait()

	return state, firstErr
}

func (o *Orchestrator) evaluateExit(ctx context.Context, settings models.AccountSettings, state marketState, signal models.StrategySignal) TickResult {
	open := state.open
	decision := EvaluateExit(open, state.price, signal.Confidence)
	if !decision.ShouldExit {
		result := TickResult{
			Outcome:  TickHold,
			Price:    state.price,
			Signal:   &signal,
			Position: open,
		}
		o.finish(result)
		return result
	}

	closeSide := open.Side.Opposite()
	if _, err := o.broker.PlaceExitOrder(ctx, closeSide, open.Quantity); err != nil {
		// No optimistic update: the position stays OPEN and the next
		// tick re-evaluates the unchanged persisted state.
		return o.fail(ctx, settings.AccountID, open.ID,
			apperrors.NewExecutionError("exit", string(closeSide), open.Quantity, err))
	}
	metrics.Orders.WithLabelValues("exit", string(closeSide)).Inc()
	logging.LogOrder(logging.WithPosition(o.logger, open.ID), "exit", string(closeSide), open.Quantity, state.price)

	pnl := RealizedPnL(open, state.price)
	now := time.Now().UTC()
	if err := o.store.RecordExit(ctx, open.ID, state.price, pnl, now); err != nil {
		return o.fail(ctx, settings.AccountID, open.ID, apperrors.Wrap(err, "recording exit"))
	}

	if fraction := LossFraction(pnl, settings.AccountBalance); fraction > 0 {
		if err := o.store.IncrementTodayLoss(ctx, settings.AccountID, fraction); err != nil {
			return o.fail(ctx, settings.AccountID, open.ID, apperrors.Wrap(err, "incrementing daily loss"))
		}
		metrics.DailyLossFraction.Set(state.dailyLoss + fraction)
	}

	o.appendLog(ctx, settings.AccountID, "info",
		"Closed "+string(open.Side)+" via "+string(decision.Reason),
		map[string]interface{}{"price": state.price, "pnl": pnl})

	closed := *open
	closed.Status = models.PositionClosed
	closed.ExitPrice = &state.price
	closed.PnL = &pnl
	closed.ClosedAt = &now

	result := TickResult{
		Outcome:  TickExited,
		Price:    state.price,
		Signal:   &signal,
		Reasons:  []string{string(decision.Reason)},
		Position: &closed,
	}
	o.finish(result)
	return result
}

func (o *Orchestrator) evaluateEntry(ctx context.Context, settings models.AccountSettings, state marketState, signal models.StrategySignal) TickResult {
	envelope := risk.BuildEnvelope(settings, state.price, signal)
	gate := risk.EvaluateGate(envelope, 0, state.dailyLoss, signal)
	if gate.Blocked {
		o.appendLog(ctx, settings.AccountID, "warn", "Trade blocked",
			map[string]interface{}{"reasons": gate.Reasons})
		result := TickResult{
			Outcome: TickBlocked,
			Price:   state.price,
			Signal:  &signal,
			Reasons: gate.Reasons,
		}
		o.finish(result)
		return result
	}

	side := models.OrderSide(signal.Action)
	quantity := math.Round(envelope.Quantity*1000) / 1000
	stopPrice := risk.StopPrice(side, state.price, envelope.StopLossPct)
	targetPrice := risk.TargetPrice(side, state.price, envelope.TakeProfitPct)

	if _, err := o.broker.PlaceEntryOrder(ctx, side, quantity, settings.Leverage, stopPrice, targetPrice); err != nil {
		return o.fail(ctx, settings.AccountID, "",
			apperrors.NewExecutionError("entry", string(side), quantity, err))
	}
	metrics.Orders.WithLabelValues("entry", string(side)).Inc()
	logging.LogOrder(o.logger, "entry", string(side), quantity, state.price)

	position := &models.Position{
		AccountID:  settings.AccountID,
		Side:       side,
		EntryPrice: state.price,
		Quantity:   quantity,
		Leverage:   settings.Leverage,
		StopLoss:   stopPrice,
		TakeProfit: targetPrice,
		Confidence: signal.Confidence,
		Reason:     strings.Join(signal.Reasons, " | "),
		Status:     models.PositionOpen,
		OpenedAt:   time.Now().UTC(),
	}
	if err := o.store.RecordEntry(ctx, position); err != nil {
		return o.fail(ctx, settings.AccountID, position.ID, apperrors.Wrap(err, "recording entry"))
	}

	o.appendLog(ctx, settings.AccountID, "info",
		"Entered "+string(side),
		map[string]interface{}{
			"price":      state.price,
			"quantity":   quantity,
			"confidence": signal.Confidence,
			"metrics":    signal.Metrics,
		})

	result := TickResult{
		Outcome:  TickEntered,
		Price:    state.price,
		Signal:   &signal,
		Position: position,
	}
	o.finish(result)
	return result
}

// appendLog writes a strategy log entry. The sink is fire-and-forget from
// the core's perspective; a write failure never aborts the tick.
func (o *Orchestrator) appendLog(ctx context.Context, accountID, level, message string, payload interface{}) {
	if err := o.store.AppendLog(ctx, accountID, level, message, payload); err != nil {
		o.logger.Warn().Err(err).Msg("Failed to append strategy log")
	}
}

func (o *Orchestrator) fail(ctx context.Context, accountID, positionID string, err error) TickResult {
	logger := o.logger
	if positionID != "" {
		logger = logging.WithPosition(logger, positionID)
	}
	logging.LogTick(logger, string(TickError), nil, err)
	metrics.Ticks.WithLabelValues(string(TickError)).Inc()

	if accountID != "" {
		o.appendLog(ctx, accountID, "error", "Bot execution failed",
			map[string]interface{}{"message": err.Error()})
	}
	return TickResult{Outcome: TickError, Err: err}
}

func (o *Orchestrator) finish(result TickResult) {
	logging.LogTick(o.logger, string(result.Outcome), result.Reasons, nil)
	metrics.Ticks.WithLabelValues(string(result.Outcome)).Inc()
}
