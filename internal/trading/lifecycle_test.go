package trading

import (
	"testing"

	"mexc-trader/internal/models"
)

func longPosition() *models.Position {
	return &models.Position{
		ID:         "pos-1",
		AccountID:  "default",
		Side:       models.OrderSideBuy,
		EntryPrice: 100,
		Quantity:   5,
		Leverage:   10,
		StopLoss:   98,
		TakeProfit: 103,
		Status:     models.PositionOpen,
	}
}

func shortPosition() *models.Position {
	p := longPosition()
	p.Side = models.OrderSideSell
	p.StopLoss = 102
	p.TakeProfit = 97
	return p
}

func TestEvaluateExit(t *testing.T) {
	tests := []struct {
		name       string
		position   *models.Position
		price      float64
		confidence float64
		wantExit   bool
		wantReason models.ExitReason
	}{
		{"long holds between stops", longPosition(), 100.5, 60, false, ""},
		{"long stop triggers", longPosition(), 97.9, 60, true, models.ExitStop},
		{"long stop triggers at exact price", longPosition(), 98, 60, true, models.ExitStop},
		{"long target triggers", longPosition(), 103.2, 60, true, models.ExitTarget},
		{"long confidence decay triggers", longPosition(), 100.5, 39, true, models.ExitConfidence},
		{"confidence at threshold holds", longPosition(), 100.5, 40, false, ""},
		{"short stop triggers", shortPosition(), 102.5, 60, true, models.ExitStop},
		{"short target triggers", shortPosition(), 96.8, 60, true, models.ExitTarget},
		{"short holds between stops", shortPosition(), 99.5, 60, false, ""},
		// Stop takes precedence even when confidence has also decayed.
		{"stop outranks confidence", longPosition(), 97.5, 10, true, models.ExitStop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := EvaluateExit(tt.position, tt.price, tt.confidence)
			if decision.ShouldExit != tt.wantExit {
				t.Fatalf("ShouldExit = %v, want %v", decision.ShouldExit, tt.wantExit)
			}
			if decision.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", decision.Reason, tt.wantReason)
			}
		})
	}
}

func TestRealizedPnL(t *testing.T) {
	long := longPosition()
	if got := RealizedPnL(long, 102); got != 10 {
		t.Errorf("long profit = %v, want 10", got)
	}
	if got := RealizedPnL(long, 98); got != -10 {
		t.Errorf("long loss = %v, want -10", got)
	}

	short := shortPosition()
	if got := RealizedPnL(short, 98); got != 10 {
		t.Errorf("short profit = %v, want 10", got)
	}
	if got := RealizedPnL(short, 102); got != -10 {
		t.Errorf("short loss = %v, want -10", got)
	}
}

func TestLossFraction(t *testing.T) {
	if got := LossFraction(-10, 1000); got != 0.01 {
		t.Errorf("loss fraction = %v, want 0.01", got)
	}
	if got := LossFraction(10, 1000); got != 0 {
		t.Errorf("profit should contribute zero, got %v", got)
	}
	if got := LossFraction(0, 1000); got != 0 {
		t.Errorf("breakeven should contribute zero, got %v", got)
	}
	if got := LossFraction(-10, 0); got != 0 {
		t.Errorf("zero balance should contribute zero, got %v", got)
	}
}
