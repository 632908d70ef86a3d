// Package broker provides exchange integration interfaces and implementations.
package broker

import (
	"context"

	"mexc-trader/internal/models"
)

// MarketData defines the read-only market data port. All methods are
// side-effect-free and safe to call concurrently within a tick.
type MarketData interface {
	FetchCandles(ctx context.Context, count int) ([]models.Candle, error)
	FetchOrderBook(ctx context.Context) (models.OrderBookSnapshot, error)
	FetchPrice(ctx context.Context) (float64, error)
}

// Execution defines the order placement port. Failures must be
// distinguishable from success: a nil error means the exchange accepted the
// order.
type Execution interface {
	PlaceEntryOrder(ctx context.Context, side models.OrderSide, quantity float64, leverage int, stopPrice, targetPrice float64) (*OrderResult, error)
	PlaceExitOrder(ctx context.Context, side models.OrderSide, quantity float64) (*OrderResult, error)
}

// Broker combines market data and execution for one exchange connection.
type Broker interface {
	MarketData
	Execution
}

// OrderResult represents the result of an order placement.
type OrderResult struct {
	OrderID string
	Status  string
	Message string
}
