// Package metrics exposes the Prometheus counters and gauges the service
// updates during operation, served at /metrics in Prometheus text
// exposition format.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// IngestPolls counts every Ingestor poll cycle outcome.
	// outcome: success|retry|skip|duplicate_discard
	IngestPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_ingest_polls_total",
			Help: "Ingestor poll cycles by outcome.",
		},
		[]string{"outcome"},
	)

	// StrategyEvents counts events emitted by the Strategy Engine.
	// kind: BUY|SELL
	StrategyEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_strategy_events_total",
			Help: "Trade events emitted by the strategy engine.",
		},
		[]string{"kind"},
	)

	// Capital is the strategy engine's current capital snapshot.
	Capital = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signal_capital_usd",
			Help: "Current strategy capital in USD.",
		},
	)

	// RouterPublications counts scheduled/trade publications by kind and
	// outcome (published|suppressed_dedupe|failed).
	RouterPublications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_router_publications_total",
			Help: "Router publication attempts by event kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	// ChartRenders counts chart render attempts by outcome.
	ChartRenders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_chart_renders_total",
			Help: "Chart render attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// QueryCommands counts chat command invocations by command name.
	QueryCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_query_commands_total",
			Help: "Chat command invocations by command.",
		},
		[]string{"command"},
	)
)

func init() {
	prometheus.MustRegister(IngestPolls, StrategyEvents, Capital, RouterPublications, ChartRenders, QueryCommands)
}
