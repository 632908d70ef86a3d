// Package risk turns a signal into a bounded order envelope and decides
// whether the trade may proceed. Both functions are pure: the settings
// boundary has already validated ranges, so inputs are trusted here.
package risk

import (
	"math"

	"mexc-trader/internal/models"
)

// stopFloor prevents a division blow-up when the stop distance is tiny.
const stopFloor = 0.001

// takeProfitFloor is the fallback take-profit distance.
const takeProfitFloor = 0.003

// BuildEnvelope computes the sizing envelope for one candidate trade.
// Quantity ties position size to a fixed fraction of account risk: leverage
// changes exposure, not capital at risk. A zero configured stop or target
// falls back to the signal's suggested value.
func BuildEnvelope(settings models.AccountSettings, price float64, signal models.StrategySignal) models.RiskEnvelope {
	stopLossPct := settings.StopLossPct
	if stopLossPct == 0 {
		stopLossPct = signal.SuggestedStopLossPct
	}
	stopLossPct = math.Abs(stopLossPct)

	takeProfitPct := settings.TakeProfitPct
	if takeProfitPct == 0 {
		takeProfitPct = signal.SuggestedTakeProfitPct
	}
	takeProfitPct = math.Abs(takeProfitPct)
	if takeProfitPct == 0 {
		takeProfitPct = takeProfitFloor
	}

	riskAmount := settings.AccountBalance * settings.RiskPerTradePct
	stopValue := math.Max(stopLossPct, stopFloor)

	var quantity float64
	if price > 0 {
		quantity = (riskAmount / (stopValue * price)) * float64(settings.Leverage)
	}

	return models.RiskEnvelope{
		AccountBalance:   settings.AccountBalance,
		RiskPerTradePct:  settings.RiskPerTradePct,
		Leverage:         settings.Leverage,
		MaxDailyLossPct:  settings.MaxDailyLossPct,
		RiskAmount:       riskAmount,
		PositionNotional: quantity * price,
		Quantity:         quantity,
		StopLossPct:      stopLossPct,
		TakeProfitPct:    takeProfitPct,
	}
}

// StopPrice returns the absolute stop price for an entry at the given price,
// direction-aware.
func StopPrice(side models.OrderSide, price, stopLossPct float64) float64 {
	if side == models.OrderSideBuy {
		return price * (1 - stopLossPct)
	}
	return price * (1 + stopLossPct)
}

// TargetPrice returns the absolute take-profit price for an entry at the
// given price, direction-aware.
func TargetPrice(side models.OrderSide, price, takeProfitPct float64) float64 {
	if side == models.OrderSideBuy {
		return price * (1 + takeProfitPct)
	}
	return price * (1 - takeProfitPct)
}
