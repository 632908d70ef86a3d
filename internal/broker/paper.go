package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mexc-trader/internal/models"
)

// PaperBroker implements the Broker interface for paper trading. Market data
// comes from a real data source; order placement is simulated and always
// fills at the requested quantity.
type PaperBroker struct {
	data MarketData

	mu           sync.Mutex
	orderCounter int
}

// NewPaperBroker creates a new paper trading broker backed by the given
// market data source.
func NewPaperBroker(data MarketData) *PaperBroker {
	return &PaperBroker{data: data}
}

// FetchCandles fetches candles from the data source.
func (p *PaperBroker) FetchCandles(ctx context.Context, count int) ([]models.Candle, error) {
	if p.data == nil {
		return nil, fmt.Errorf("no market data source configured")
	}
	return p.data.FetchCandles(ctx, count)
}

// FetchOrderBook fetches the order book from the data source.
func (p *PaperBroker) FetchOrderBook(ctx context.Context) (models.OrderBookSnapshot, error) {
	if p.data == nil {
		return models.OrderBookSnapshot{}, fmt.Errorf("no market data source configured")
	}
	return p.data.FetchOrderBook(ctx)
}

// FetchPrice fetches the current price from the data source.
func (p *PaperBroker) FetchPrice(ctx context.Context) (float64, error) {
	if p.data == nil {
		return 0, fmt.Errorf("no market data source configured")
	}
	return p.data.FetchPrice(ctx)
}

// PlaceEntryOrder simulates an entry order.
func (p *PaperBroker) PlaceEntryOrder(ctx context.Context, side models.OrderSide, quantity float64, leverage int, stopPrice, targetPrice float64) (*OrderResult, error) {
	return p.fill(), nil
}

// PlaceExitOrder simulates an exit order.
func (p *PaperBroker) PlaceExitOrder(ctx context.Context, side models.OrderSide, quantity float64) (*OrderResult, error) {
	return p.fill(), nil
}

func (p *PaperBroker) fill() *OrderResult {
	p.mu.Lock()
	p.orderCounter++
	id := fmt.Sprintf("PAPER_%d_%d", time.Now().Unix(), p.orderCounter)
	p.mu.Unlock()

	return &OrderResult{
		OrderID: id,
		Status:  "FILLED",
		Message: "paper fill",
	}
}
