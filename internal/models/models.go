// Package models provides domain models for the trading bot.
package models

import (
	"time"
)

// OrderSide represents the side of an order or position.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// DirectionSign returns +1 for a long position and -1 for a short position.
func (s OrderSide) DirectionSign() float64 {
	if s == OrderSideSell {
		return -1
	}
	return 1
}

// Opposite returns the closing side for a position opened on this side.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// PositionStatus represents the lifecycle state of a position.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

// ExitReason identifies why an open position was closed.
type ExitReason string

const (
	ExitStop       ExitReason = "stop"
	ExitTarget     ExitReason = "target"
	ExitConfidence ExitReason = "confidence"
)

// Candle represents OHLCV data for a time period, ordered oldest to newest.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// OrderBookSnapshot holds the aggregated notional value on each side of the
// book, summed over a fixed depth.
type OrderBookSnapshot struct {
	BidNotional float64 `json:"bidNotional"`
	AskNotional float64 `json:"askNotional"`
}

// Position represents a single leveraged trade from entry to exit.
// At most one OPEN position may exist per account at any time.
type Position struct {
	ID         string         `json:"id"`
	AccountID  string         `json:"accountId"`
	Side       OrderSide      `json:"side"`
	EntryPrice float64        `json:"entryPrice"`
	Quantity   float64        `json:"quantity"`
	Leverage   int            `json:"leverage"`
	StopLoss   float64        `json:"stopLoss"`
	TakeProfit float64        `json:"takeProfit"`
	Confidence float64        `json:"confidence"`
	Reason     string         `json:"reason"`
	Status     PositionStatus `json:"status"`
	OpenedAt   time.Time      `json:"openedAt"`
	ExitPrice  *float64       `json:"exitPrice,omitempty"`
	PnL        *float64       `json:"pnl,omitempty"`
	ClosedAt   *time.Time     `json:"closedAt,omitempty"`
}

// IsOpen reports whether the position is still open.
func (p *Position) IsOpen() bool {
	return p.Status == PositionOpen
}

// UnrealizedPnL returns the mark-to-market PnL at the given price.
func (p *Position) UnrealizedPnL(price float64) float64 {
	return (price - p.EntryPrice) * p.Quantity * p.Side.DirectionSign()
}

// AccountSettings holds per-account bot configuration as loaded from the
// settings boundary. Range validation happens there, not in the core.
type AccountSettings struct {
	AccountID       string  `json:"accountId"`
	Enabled         bool    `json:"enabled"`
	Leverage        int     `json:"leverage"`
	RiskPerTradePct float64 `json:"riskPerTradePct"`
	StopLossPct     float64 `json:"stopLossPct"`
	TakeProfitPct   float64 `json:"takeProfitPct"`
	MaxDailyLossPct float64 `json:"maxDailyLossPct"`
	AccountBalance  float64 `json:"accountBalance"`
}

// DailyLossRecord accumulates realized loss for one UTC day as a fraction of
// account balance. The value never decreases within a day; a new day starts
// a fresh record.
type DailyLossRecord struct {
	AccountID    string  `json:"accountId"`
	Date         string  `json:"date"` // UTC day key, YYYY-MM-DD
	LossFraction float64 `json:"lossFraction"`
}

// StrategyLog is one structured log entry produced by the bot core.
type StrategyLog struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Payload   string    `json:"payload,omitempty"` // JSON-encoded structured payload
	CreatedAt time.Time `json:"createdAt"`
}
