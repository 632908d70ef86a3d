// Package trading ties the signal engine, risk checks and exchange ports
// together into the per-tick position lifecycle.
package trading

import (
	"mexc-trader/internal/models"
	"mexc-trader/internal/risk"
)

// ExitDecision is the outcome of evaluating an open position against the
// current price and signal.
type ExitDecision struct {
	ShouldExit bool
	Reason     models.ExitReason
}

// EvaluateExit decides whether an open position must be closed. Checks run
// in fixed precedence: stop trigger, then target trigger, then confidence
// decay. The first true condition supplies the recorded reason even when
// several hold at once.
func EvaluateExit(position *models.Position, price, signalConfidence float64) ExitDecision {
	long := position.Side == models.OrderSideBuy

	stopTriggered := (long && price <= position.StopLoss) ||
		(!long && price >= position.StopLoss)
	if stopTriggered {
		return ExitDecision{ShouldExit: true, Reason: models.ExitStop}
	}

	targetTriggered := (long && price >= position.TakeProfit) ||
		(!long && price <= position.TakeProfit)
	if targetTriggered {
		return ExitDecision{ShouldExit: true, Reason: models.ExitTarget}
	}

	if signalConfidence < risk.ConfidenceThreshold {
		return ExitDecision{ShouldExit: true, Reason: models.ExitConfidence}
	}

	return ExitDecision{}
}

// RealizedPnL computes the realized profit or loss for closing the position
// at the given exit price.
func RealizedPnL(position *models.Position, exitPrice float64) float64 {
	return (exitPrice - position.EntryPrice) * position.Quantity * position.Side.DirectionSign()
}

// LossFraction converts a realized PnL into the daily-loss increment: the
// absolute loss as a fraction of account balance, zero for profits.
func LossFraction(pnl, accountBalance float64) float64 {
	if pnl >= 0 || accountBalance <= 0 {
		return 0
	}
	return -pnl / accountBalance
}
