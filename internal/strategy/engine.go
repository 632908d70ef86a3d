// Package strategy implements the deterministic signal engine. Evaluate is a
// pure function: identical candles and order book always produce the same
// signal, and nothing here touches the outside world.
package strategy

import (
	"fmt"
	"math"

	"mexc-trader/internal/models"
)

// EMA window lengths for the trend stack.
const (
	fastPeriod   = 20
	mediumPeriod = 50
	slowPeriod   = 100
)

// Scoring thresholds and weights. The stop and take-profit constants are
// intentionally fixed rather than volatility-derived; the values are part of
// the reference behavior and must stay reproducible.
const (
	momentumTargetMin  = 0.2
	momentumTargetMax  = 0.4
	volumeTargetMin    = 1.2
	volumeTargetMax    = 1.5
	orderbookThreshold = 55.0
	slopeThreshold     = 0.08

	trendWeight    = 25.0
	slopeWeight    = 15.0
	volumeWeight   = 15.0
	momentumWeight = 20.0
	bookWeight     = 15.0

	actionThreshold   = 45.0
	holdConfidenceCap = 30.0

	buyStopLossPct    = 0.0015
	buyTakeProfitPct  = 0.0035
	sellStopLossPct   = 0.001
	sellTakeProfitPct = 0.0025
)

// recentBars is the window for the volume and volatility deltas.
const recentBars = 6

// computeEMA runs the recursive smoothing formula seeded by the first
// sample. Short series degrade gracefully: the EMA is computed over whatever
// is available, and an empty series yields zero.
func computeEMA(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	multiplier := 2.0 / float64(period+1)
	ema := values[0]
	for _, v := range values[1:] {
		ema = (v-ema)*multiplier + ema
	}
	return ema
}

// slope returns the relative change between the first and last value of a
// series, as a percentage.
func slope(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	first := series[0]
	last := series[len(series)-1]
	if first == 0 {
		return 0
	}
	return ((last - first) / first) * 100
}

// momentum returns the percentage change between the last two values.
func momentum(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	last := series[len(series)-1]
	prev := series[len(series)-2]
	if prev == 0 {
		return 0
	}
	return ((last - prev) / prev) * 100
}

// Evaluate converts recent candles and an order-book snapshot into a
// directional signal with a confidence score. Candles are expected oldest to
// newest; 100 or more are recommended so the slow EMA window is fully
// populated.
func Evaluate(candles []models.Candle, orderbook models.OrderBookSnapshot) models.StrategySignal {
	closes := closePrices(candles)
	vols := volumes(candles)

	ema20 := computeEMA(closes, fastPeriod)
	ema50 := computeEMA(closes, mediumPeriod)
	ema100 := computeEMA(closes, slowPeriod)

	ema20Slope := slope(tail(closes, fastPeriod))

	var volumeDeltaPct float64
	if len(vols) > 0 {
		avgVolume := mean(vols)
		lastVolume := sum(tail(vols, recentBars))
		scaled := (avgVolume * recentBars) / float64(len(vols))
		if scaled != 0 {
			volumeDeltaPct = (lastVolume / scaled) * 100
		}
	}

	var volatilityDeltaPct float64
	if len(closes) > 0 && closes[len(closes)-1] != 0 {
		recentHigh := highest(tail(highPrices(candles), recentBars))
		recentLow := lowest(tail(lowPrices(candles), recentBars))
		volatilityDeltaPct = ((recentHigh - recentLow) / closes[len(closes)-1]) * 100
	}

	priceMomentumPct := momentum(tail(closes, 3))

	totalBook := orderbook.BidNotional + orderbook.AskNotional
	orderbookImbalancePct := 50.0
	if totalBook != 0 {
		orderbookImbalancePct = (orderbook.BidNotional / totalBook) * 100
	}

	bullish := ema20 > ema50 && ema50 > ema100 && ema20Slope > 0
	bearish := ema20 < ema50 && ema50 < ema100 && ema20Slope < 0

	var buyScore float64
	if bullish {
		buyScore += trendWeight
	}
	if ema20Slope > slopeThreshold {
		buyScore += slopeWeight
	}
	if volumeDeltaPct >= volumeTargetMin*100 && volumeDeltaPct <= volumeTargetMax*100 {
		buyScore += volumeWeight
	}
	if priceMomentumPct >= momentumTargetMin && priceMomentumPct <= momentumTargetMax {
		buyScore += momentumWeight
	}
	if orderbookImbalancePct > orderbookThreshold {
		buyScore += bookWeight
	}

	var sellScore float64
	if bearish {
		sellScore += trendWeight
	}
	if ema20Slope < -slopeThreshold {
		sellScore += slopeWeight
	}
	if volumeDeltaPct >= volumeTargetMin*100 && volumeDeltaPct <= volumeTargetMax*100 {
		sellScore += volumeWeight
	}
	if priceMomentumPct <= -momentumTargetMin && priceMomentumPct >= -momentumTargetMax {
		sellScore += momentumWeight
	}
	if orderbookImbalancePct < 100-orderbookThreshold {
		sellScore += bookWeight
	}

	action := models.ActionHold
	confidence := math.Max(buyScore, sellScore)
	var reasons []string

	switch {
	case buyScore > sellScore && buyScore >= actionThreshold:
		action = models.ActionBuy
		reasons = append(reasons,
			"Trend alignment across EMAs",
			fmt.Sprintf("OB buy pressure %.1f%%", orderbookImbalancePct))
	case sellScore > buyScore && sellScore >= actionThreshold:
		action = models.ActionSell
		reasons = append(reasons,
			"Bearish EMA stack",
			fmt.Sprintf("OB sell pressure %.1f%%", 100-orderbookImbalancePct))
	default:
		confidence = math.Min(confidence, holdConfidenceCap)
		reasons = append(reasons, "Conditions not aligned")
	}

	stopLossPct := sellStopLossPct
	takeProfitPct := sellTakeProfitPct
	if action == models.ActionBuy {
		stopLossPct = buyStopLossPct
		takeProfitPct = buyTakeProfitPct
	}

	return models.StrategySignal{
		Action:     action,
		Confidence: math.Min(math.Round(confidence), 100),
		Reasons:    reasons,
		Metrics: models.SignalMetrics{
			EMA20:                 ema20,
			EMA50:                 ema50,
			EMA100:                ema100,
			EMA20Slope:            ema20Slope,
			VolumeDeltaPct:        volumeDeltaPct,
			VolatilityDeltaPct:    volatilityDeltaPct,
			OrderbookImbalancePct: orderbookImbalancePct,
			PriceMomentumPct:      priceMomentumPct,
		},
		SuggestedStopLossPct:   stopLossPct,
		SuggestedTakeProfitPct: takeProfitPct,
	}
}
