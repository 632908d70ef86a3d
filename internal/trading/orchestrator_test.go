package trading

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mexc-trader/internal/broker"
	"mexc-trader/internal/models"
)

// fakeBroker is a scriptable Broker for orchestrator tests.
type fakeBroker struct {
	candles   []models.Candle
	orderbook models.OrderBookSnapshot
	price     float64

	entryErr error
	exitErr  error

	entryCalls int
	exitCalls  int
	lastSide   models.OrderSide
	lastQty    float64
}

func (f *fakeBroker) FetchCandles(ctx context.Context, count int) ([]models.Candle, error) {
	return f.candles, nil
}

func (f *fakeBroker) FetchOrderBook(ctx context.Context) (models.OrderBookSnapshot, error) {
	return f.orderbook, nil
}

func (f *fakeBroker) FetchPrice(ctx context.Context) (float64, error) {
	return f.price, nil
}

func (f *fakeBroker) PlaceEntryOrder(ctx context.Context, side models.OrderSide, quantity float64, leverage int, stopPrice, targetPrice float64) (*broker.OrderResult, error) {
	f.entryCalls++
	f.lastSide = side
	f.lastQty = quantity
	if f.entryErr != nil {
		return nil, f.entryErr
	}
	return &broker.OrderResult{OrderID: "order-entry", Status: "FILLED"}, nil
}

func (f *fakeBroker) PlaceExitOrder(ctx context.Context, side models.OrderSide, quantity float64) (*broker.OrderResult, error) {
	f.exitCalls++
	f.lastSide = side
	f.lastQty = quantity
	if f.exitErr != nil {
		return nil, f.exitErr
	}
	return &broker.OrderResult{OrderID: "order-exit", Status: "FILLED"}, nil
}

// fakeStore is an in-memory Store for orchestrator tests.
type fakeStore struct {
	settings  models.AccountSettings
	open      *models.Position
	closed    []models.Position
	dailyLoss float64
	logs      []string

	exitCalls int
}

func newFakeStore(settings models.AccountSettings) *fakeStore {
	return &fakeStore{settings: settings}
}

func (f *fakeStore) GetOrCreateSettings(ctx context.Context, defaults models.AccountSettings) (models.AccountSettings, error) {
	return f.settings, nil
}

func (f *fakeStore) SaveSettings(ctx context.Context, settings models.AccountSettings) error {
	f.settings = settings
	return nil
}

func (f *fakeStore) GetOpenPosition(ctx context.Context, accountID string) (*models.Position, error) {
	return f.open, nil
}

func (f *fakeStore) RecordEntry(ctx context.Context, position *models.Position) error {
	if f.open != nil {
		return errors.New("open position already exists")
	}
	if position.ID == "" {
		position.ID = fmt.Sprintf("pos-%d", len(f.closed)+1)
	}
	f.open = position
	return nil
}

func (f *fakeStore) RecordExit(ctx context.Context, positionID string, exitPrice, pnl float64, closedAt time.Time) error {
	f.exitCalls++
	if f.open == nil || f.open.ID != positionID {
		return errors.New("position not found")
	}
	closed := *f.open
	closed.Status = models.PositionClosed
	closed.ExitPrice = &exitPrice
	closed.PnL = &pnl
	closed.ClosedAt = &closedAt
	f.closed = append(f.closed, closed)
	f.open = nil
	return nil
}

func (f *fakeStore) ListRecentPositions(ctx context.Context, accountID string, limit int) ([]models.Position, error) {
	return f.closed, nil
}

func (f *fakeStore) GetTodayLossFraction(ctx context.Context, accountID string) (float64, error) {
	return f.dailyLoss, nil
}

func (f *fakeStore) IncrementTodayLoss(ctx context.Context, accountID string, fraction float64) error {
	if fraction > 0 {
		f.dailyLoss += fraction
	}
	return nil
}

func (f *fakeStore) AppendLog(ctx context.Context, accountID, level, message string, payload interface{}) error {
	f.logs = append(f.logs, message)
	return nil
}

func (f *fakeStore) ListRecentLogs(ctx context.Context, accountID string, limit int) ([]models.StrategyLog, error) {
	return nil, nil
}

func (f *fakeStore) Close() error { return nil }

func testSettings() models.AccountSettings {
	return models.AccountSettings{
		AccountID:       "default",
		Enabled:         true,
		Leverage:        10,
		RiskPerTradePct: 0.01,
		StopLossPct:     0.002,
		TakeProfitPct:   0.004,
		MaxDailyLossPct: 0.05,
		AccountBalance:  1000,
	}
}

// uptrendBroker returns market data that produces a high-confidence BUY.
func uptrendBroker(price float64) *fakeBroker {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + 0.5*float64(i)
	}
	candles := make([]models.Candle, len(closes))
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		candles[i] = models.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open:      c, High: c + 0.1, Low: c - 0.1, Close: c,
			Volume: 1000,
		}
	}
	return &fakeBroker{
		candles:   candles,
		orderbook: models.OrderBookSnapshot{BidNotional: 70_000, AskNotional: 30_000},
		price:     price,
	}
}

func newTestOrchestrator(b *fakeBroker, s *fakeStore) *Orchestrator {
	return NewOrchestrator(b, s, testSettings(), 120, zerolog.Nop())
}

func TestTickDisabledBot(t *testing.T) {
	settings := testSettings()
	settings.Enabled = false
	b := uptrendBroker(100)
	s := newFakeStore(settings)

	result := newTestOrchestrator(b, s).Tick(context.Background())

	if result.Outcome != TickNoop {
		t.Fatalf("outcome = %s, want noop", result.Outcome)
	}
	if b.entryCalls != 0 || b.exitCalls != 0 {
		t.Error("disabled bot must not place orders")
	}
}

func TestTickEntersOnStrongSignal(t *testing.T) {
	b := uptrendBroker(100)
	s := newFakeStore(testSettings())

	result := newTestOrchestrator(b, s).Tick(context.Background())

	if result.Outcome != TickEntered {
		t.Fatalf("outcome = %s, want entered (reasons %v, err %v)", result.Outcome, result.Reasons, result.Err)
	}
	if b.entryCalls != 1 {
		t.Fatalf("entry calls = %d, want 1", b.entryCalls)
	}
	if b.lastSide != models.OrderSideBuy {
		t.Errorf("side = %s, want BUY", b.lastSide)
	}
	// quantity = (1000*0.01 / (0.002*100)) * 10 = 500
	if b.lastQty != 500 {
		t.Errorf("quantity = %v, want 500", b.lastQty)
	}
	if s.open == nil {
		t.Fatal("entry not persisted")
	}
	if s.open.StopLoss >= 100 || s.open.TakeProfit <= 100 {
		t.Errorf("long stops inverted: stop %.4f, target %.4f", s.open.StopLoss, s.open.TakeProfit)
	}
}

func TestTickBlockedByDailyLoss(t *testing.T) {
	b := uptrendBroker(100)
	s := newFakeStore(testSettings())
	s.dailyLoss = 0.05 // at the limit

	result := newTestOrchestrator(b, s).Tick(context.Background())

	if result.Outcome != TickBlocked {
		t.Fatalf("outcome = %s, want blocked", result.Outcome)
	}
	if b.entryCalls != 0 {
		t.Error("blocked tick must not place orders")
	}
	if len(result.Reasons) == 0 {
		t.Error("blocked tick must carry reasons")
	}
}

func TestTickHoldsOpenPosition(t *testing.T) {
	b := uptrendBroker(159)
	s := newFakeStore(testSettings())
	s.open = &models.Position{
		ID: "pos-1", AccountID: "default",
		Side: models.OrderSideBuy, EntryPrice: 155, Quantity: 5, Leverage: 10,
		StopLoss: 150, TakeProfit: 170, Status: models.PositionOpen,
	}

	result := newTestOrchestrator(b, s).Tick(context.Background())

	if result.Outcome != TickHold {
		t.Fatalf("outcome = %s, want hold", result.Outcome)
	}
	if b.entryCalls != 0 || b.exitCalls != 0 {
		t.Error("holding tick must not place orders")
	}
	if s.open == nil {
		t.Error("position must remain open")
	}
}

func TestTickExitsOnStopAndTracksLoss(t *testing.T) {
	// Price has fallen through the stop of an open long.
	b := uptrendBroker(149)
	s := newFakeStore(testSettings())
	s.open = &models.Position{
		ID: "pos-1", AccountID: "default",
		Side: models.OrderSideBuy, EntryPrice: 155, Quantity: 5, Leverage: 10,
		StopLoss: 150, TakeProfit: 170, Status: models.PositionOpen,
	}

	result := newTestOrchestrator(b, s).Tick(context.Background())

	if result.Outcome != TickExited {
		t.Fatalf("outcome = %s, want exited (err %v)", result.Outcome, result.Err)
	}
	if b.exitCalls != 1 {
		t.Fatalf("exit calls = %d, want 1", b.exitCalls)
	}
	if b.lastSide != models.OrderSideSell {
		t.Errorf("close side = %s, want SELL", b.lastSide)
	}
	if len(result.Reasons) != 1 || result.Reasons[0] != "stop" {
		t.Errorf("reasons = %v, want [stop]", result.Reasons)
	}
	if s.open != nil {
		t.Error("position must be closed")
	}
	if result.Position == nil || result.Position.PnL == nil {
		t.Fatal("result must carry the closed position with pnl")
	}
	// pnl = (149-155)*5 = -30; loss fraction = 30/1000
	if *result.Position.PnL != -30 {
		t.Errorf("pnl = %v, want -30", *result.Position.PnL)
	}
	if s.dailyLoss != 0.03 {
		t.Errorf("daily loss = %v, want 0.03", s.dailyLoss)
	}
	// One action per tick: no entry follows in the same tick even though
	// the signal still says BUY.
	if b.entryCalls != 0 {
		t.Error("exit tick must not also enter")
	}
}

func TestTickExitOrderFailureLeavesStateUnchanged(t *testing.T) {
	b := uptrendBroker(149)
	b.exitErr = errors.New("exchange rejected")
	s := newFakeStore(testSettings())
	s.open = &models.Position{
		ID: "pos-1", AccountID: "default",
		Side: models.OrderSideBuy, EntryPrice: 155, Quantity: 5, Leverage: 10,
		StopLoss: 150, TakeProfit: 170, Status: models.PositionOpen,
	}

	result := newTestOrchestrator(b, s).Tick(context.Background())

	if result.Outcome != TickError {
		t.Fatalf("outcome = %s, want error", result.Outcome)
	}
	if s.open == nil {
		t.Error("failed exit must not close the position")
	}
	if s.exitCalls != 0 {
		t.Error("failed exit must not record a transition")
	}
	if s.dailyLoss != 0 {
		t.Error("failed exit must not touch the daily loss")
	}
}

func TestTickEntryOrderFailureRecordsNothing(t *testing.T) {
	b := uptrendBroker(100)
	b.entryErr = errors.New("exchange rejected")
	s := newFakeStore(testSettings())

	result := newTestOrchestrator(b, s).Tick(context.Background())

	if result.Outcome != TickError {
		t.Fatalf("outcome = %s, want error", result.Outcome)
	}
	if s.open != nil {
		t.Error("failed entry must not persist a position")
	}
}

func TestTickExitsOnConfidenceDecay(t *testing.T) {
	// Flat market: signal confidence drops to zero while a long is open
	// with neither stop nor target touched.
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100
	}
	candles := make([]models.Candle, len(closes))
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		candles[i] = models.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open:      c, High: c + 0.1, Low: c - 0.1, Close: c,
			Volume: 1000,
		}
	}
	b := &fakeBroker{
		candles:   candles,
		orderbook: models.OrderBookSnapshot{BidNotional: 50_000, AskNotional: 50_000},
		price:     100,
	}
	s := newFakeStore(testSettings())
	s.open = &models.Position{
		ID: "pos-1", AccountID: "default",
		Side: models.OrderSideBuy, EntryPrice: 99.5, Quantity: 5, Leverage: 10,
		StopLoss: 95, TakeProfit: 105, Status: models.PositionOpen,
	}

	result := newTestOrchestrator(b, s).Tick(context.Background())

	if result.Outcome != TickExited {
		t.Fatalf("outcome = %s, want exited", result.Outcome)
	}
	if len(result.Reasons) != 1 || result.Reasons[0] != "confidence" {
		t.Errorf("reasons = %v, want [confidence]", result.Reasons)
	}
	// The exit was profitable, so the daily loss stays untouched.
	if s.dailyLoss != 0 {
		t.Errorf("daily loss = %v, want 0", s.dailyLoss)
	}
}
