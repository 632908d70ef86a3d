// Package metrics exposes Prometheus counters and gauges the bot updates
// during operation. Registered on the default registry and served at
// /metrics by the status server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Ticks counts evaluation ticks split by outcome
	// (noop|hold|blocked|entered|exited|error).
	Ticks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_ticks_total",
			Help: "Evaluation ticks by outcome",
		},
		[]string{"outcome"},
	)

	// Orders counts orders placed, split by kind (entry|exit) and side.
	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_orders_total",
			Help: "Orders placed by kind and side",
		},
		[]string{"kind", "side"},
	)

	// Signals counts signal evaluations by action.
	Signals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_signals_total",
			Help: "Signal evaluations by action",
		},
		[]string{"action"},
	)

	// DailyLossFraction reports the current UTC day's realized loss as a
	// fraction of account balance.
	DailyLossFraction = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_daily_loss_fraction",
			Help: "Realized loss for the current UTC day as a fraction of balance",
		},
	)

	// LastPrice reports the most recently fetched market price.
	LastPrice = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_last_price",
			Help: "Most recently fetched market price",
		},
	)
)

func init() {
	prometheus.MustRegister(
		Ticks,
		Orders,
		Signals,
		DailyLossFraction,
		LastPrice,
	)
}
