package risk

import "mexc-trader/internal/models"

// ConfidenceThreshold is the minimum signal confidence for entering or
// staying in a trade.
const ConfidenceThreshold = 40.0

// GateResult is the outcome of a risk gate evaluation. Blocked is true iff
// Reasons is non-empty.
type GateResult struct {
	Blocked bool     `json:"blocked"`
	Reasons []string `json:"reasons"`
}

// EvaluateGate decides whether a candidate entry may proceed. Every
// applicable reason is collected; the checks do not short-circuit, so the
// reasons list length equals the number of true conditions.
func EvaluateGate(envelope models.RiskEnvelope, openPositionCount int, dailyLossPct float64, signal models.StrategySignal) GateResult {
	var reasons []string

	if openPositionCount > 0 {
		reasons = append(reasons, "An open position already exists")
	}
	if dailyLossPct >= envelope.MaxDailyLossPct {
		reasons = append(reasons, "Daily loss limit reached")
	}
	if signal.Confidence < ConfidenceThreshold || signal.Action == models.ActionHold {
		reasons = append(reasons, "Signal confidence below execution threshold")
	}

	return GateResult{
		Blocked: len(reasons) > 0,
		Reasons: reasons,
	}
}
