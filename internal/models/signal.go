package models

// SignalAction is the directional call produced by the signal engine.
type SignalAction string

const (
	ActionBuy  SignalAction = "BUY"
	ActionSell SignalAction = "SELL"
	ActionHold SignalAction = "HOLD"
)

// SignalMetrics carries the diagnostic values behind a signal. Field names
// match the wire format the dashboard consumes.
type SignalMetrics struct {
	EMA20                 float64 `json:"ema20"`
	EMA50                 float64 `json:"ema50"`
	EMA100                float64 `json:"ema100"`
	EMA20Slope            float64 `json:"ema20Slope"`
	VolumeDeltaPct        float64 `json:"volumeDeltaPct"`
	VolatilityDeltaPct    float64 `json:"volatilityDeltaPct"`
	OrderbookImbalancePct float64 `json:"orderbookImbalancePct"`
	PriceMomentumPct      float64 `json:"priceMomentumPct"`
}

// StrategySignal is the output of one signal evaluation. It is created fresh
// each tick and never mutated.
type StrategySignal struct {
	Action                 SignalAction  `json:"action"`
	Confidence             float64       `json:"confidence"` // 0..100
	Reasons                []string      `json:"reasons"`
	Metrics                SignalMetrics `json:"metrics"`
	SuggestedStopLossPct   float64       `json:"suggestedStopLossPct"`
	SuggestedTakeProfitPct float64       `json:"suggestedTakeProfitPct"`
}

// RiskEnvelope is the sizing, stop and target bundle derived from account
// risk settings for one candidate trade. Quantity and notional are derived
// values, recomputed fresh each tick.
type RiskEnvelope struct {
	AccountBalance   float64 `json:"accountBalance"`
	RiskPerTradePct  float64 `json:"riskPerTradePct"`
	Leverage         int     `json:"leverage"`
	MaxDailyLossPct  float64 `json:"maxDailyLossPct"`
	RiskAmount       float64 `json:"riskAmount"`
	PositionNotional float64 `json:"positionNotional"`
	Quantity         float64 `json:"quantity"`
	StopLossPct      float64 `json:"stopLossPct"`
	TakeProfitPct    float64 `json:"takeProfitPct"`
}
