package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ActionsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gosignal_actions_emitted_total",
			Help: "Total number of non-hold actions emitted (by strategy and kind).",
		},
		[]string{"strategy", "kind"},
	)

	ActionsSuppressed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gosignal_actions_suppressed_total",
			Help: "Candidate actions dropped by the position gate (by strategy and reason).",
		},
		[]string{"strategy", "reason"},
	)

	RegimeTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gosignal_regime_transitions_total",
			Help: "Regime changes observed by the tracker (by strategy and new regime).",
		},
		[]string{"strategy", "regime"},
	)

	WarmupTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gosignal_warmup_ticks_total",
			Help: "Ticks skipped because a referenced indicator was still warming up.",
		},
		[]string{"strategy"},
	)

	BacktestRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gosignal_backtest_runs_total",
			Help: "Completed backtest replays (by strategy).",
		},
		[]string{"strategy"},
	)

	FinalEquity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gosignal_backtest_final_equity",
			Help: "Quote-currency equity at the end of the last replay.",
		},
		[]string{"strategy"},
	)
)

func init() {
	prometheus.MustRegister(ActionsEmitted, ActionsSuppressed, RegimeTransitions,
		WarmupTicks, BacktestRuns, FinalEquity)
}
