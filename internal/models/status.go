package models

import "time"

// OpenPositionView is the dashboard projection of the currently open
// position, including mark-to-market PnL at the snapshot price.
type OpenPositionView struct {
	Side          string  `json:"side"` // LONG or SHORT
	EntryPrice    float64 `json:"entryPrice"`
	Quantity      float64 `json:"quantity"`
	Leverage      int     `json:"leverage"`
	StopLoss      float64 `json:"stopLoss"`
	TakeProfit    float64 `json:"takeProfit"`
	UnrealizedPnL float64 `json:"unrealizedPnl"`
}

// RiskView summarises the active risk envelope and daily-loss state.
type RiskView struct {
	RiskPerTradePct float64 `json:"riskPerTradePct"`
	Leverage        int     `json:"leverage"`
	DailyLossPct    float64 `json:"dailyLossPct"`
	MaxDailyLossPct float64 `json:"maxDailyLossPct"`
	Quantity        float64 `json:"quantity"`
	StopLossPct     float64 `json:"stopLossPct"`
	TakeProfitPct   float64 `json:"takeProfitPct"`
}

// BotStatus is the read-only status snapshot exposed to dashboards. All
// fields are derived projections; serving it has no side effects.
type BotStatus struct {
	Timestamp    time.Time         `json:"timestamp"`
	Price        float64           `json:"price"`
	Signal       StrategySignal    `json:"signal"`
	OpenPosition *OpenPositionView `json:"openPosition,omitempty"`
	RecentTrades []Position        `json:"recentTrades"`
	Risk         RiskView          `json:"risk"`
	BotEnabled   bool              `json:"botEnabled"`
}

// SideView maps an order side to the LONG/SHORT vocabulary the dashboard
// uses for positions.
func SideView(side OrderSide) string {
	if side == OrderSideSell {
		return "SHORT"
	}
	return "LONG"
}
