package trading

import (
	"context"
	"time"

	"mexc-trader/internal/broker"
	apperrors "mexc-trader/internal/errors"
	"mexc-trader/internal/models"
	"mexc-trader/internal/risk"
	"mexc-trader/internal/store"
	"mexc-trader/internal/strategy"
)

// recentTradeCount is how many closed trades the status snapshot carries.
const recentTradeCount = 12

// StatusBuilder assembles the read-only status snapshot for dashboards. It
// shares the orchestrator's ports but never places orders or writes state.
type StatusBuilder struct {
	market      broker.MarketData
	store       store.Store
	defaults    models.AccountSettings
	candleCount int
}

// NewStatusBuilder creates a new status builder.
func NewStatusBuilder(market broker.MarketData, s store.Store, defaults models.AccountSettings, candleCount int) *StatusBuilder {
	if candleCount <= 0 {
		candleCount = 120
	}
	return &StatusBuilder{
		market:      market,
		store:       s,
		defaults:    defaults,
		candleCount: candleCount,
	}
}

// Build fetches market data and persisted state and derives the snapshot.
func (b *StatusBuilder) Build(ctx context.Context) (*models.BotStatus, error) {
	settings, err := b.store.GetOrCreateSettings(ctx, b.defaults)
	if err != nil {
		return nil, apperrors.Wrap(err, "loading settings")
	}

	candles, err := b.market.FetchCandles(ctx, b.candleCount)
	if err != nil {
		return nil, apperrors.NewMarketDataError("kline", settings.AccountID, err)
	}
	orderbook, err := b.market.FetchOrderBook(ctx)
	if err != nil {
		return nil, apperrors.NewMarketDataError("depth", settings.AccountID, err)
	}
	price, err := b.market.FetchPrice(ctx)
	if err != nil {
		return nil, apperrors.NewMarketDataError("ticker", settings.AccountID, err)
	}

	open, err := b.store.GetOpenPosition(ctx, settings.AccountID)
	if err != nil {
		return nil, apperrors.Wrap(err, "loading open position")
	}
	dailyLoss, err := b.store.GetTodayLossFraction(ctx, settings.AccountID)
	if err != nil {
		return nil, apperrors.Wrap(err, "loading daily loss")
	}
	recent, err := b.store.ListRecentPositions(ctx, settings.AccountID, recentTradeCount)
	if err != nil {
		return nil, apperrors.Wrap(err, "loading recent trades")
	}

	signal := strategy.Evaluate(candles, orderbook)
	envelope := risk.BuildEnvelope(settings, price, signal)

	status := &models.BotStatus{
		Timestamp:    time.Now().UTC(),
		Price:        price,
		Signal:       signal,
		RecentTrades: recent,
		BotEnabled:   settings.Enabled,
		Risk: models.RiskView{
			RiskPerTradePct: settings.RiskPerTradePct,
			Leverage:        settings.Leverage,
			DailyLossPct:    dailyLoss,
			MaxDailyLossPct: settings.MaxDailyLossPct,
			Quantity:        envelope.Quantity,
			StopLossPct:     envelope.StopLossPct,
			TakeProfitPct:   envelope.TakeProfitPct,
		},
	}

	if open != nil {
		status.OpenPosition = &models.OpenPositionView{
			Side:          models.SideView(open.Side),
			EntryPrice:    open.EntryPrice,
			Quantity:      open.Quantity,
			Leverage:      open.Leverage,
			StopLoss:      open.StopLoss,
			TakeProfit:    open.TakeProfit,
			UnrealizedPnL: open.UnrealizedPnL(price),
		}
	}

	return status, nil
}
