package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Dispatcher metrics
	MessagesHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerbot_messages_handled_total",
			Help: "Total number of chat messages handled",
		},
		[]string{"outcome"}, // outcome: dispatched|parse_error|ignored
	)

	// Ledger metrics
	LedgerOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerbot_ledger_operations_total",
			Help: "Total number of ledger operations",
		},
		[]string{"op", "outcome"}, // op: open|increase|close
	)

	// Quote provider metrics
	QuoteLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerbot_quote_lookups_total",
			Help: "Total number of quote lookups",
		},
		[]string{"outcome"}, // outcome: success|unavailable
	)

	// Refresh cycle metrics
	RefreshCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerbot_refresh_cycles_total",
			Help: "Total number of mark refresh cycles",
		},
		[]string{"outcome"}, // outcome: success|error
	)

	RefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledgerbot_refresh_duration_seconds",
			Help:    "Mark refresh cycle duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	RefreshPositions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerbot_refresh_positions_total",
			Help: "Positions touched by refresh cycles",
		},
		[]string{"outcome"}, // outcome: refreshed|skipped
	)

	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerbot_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledgerbot_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)
)

func init() {
	prometheus.MustRegister(
		MessagesHandled,
		LedgerOps,
		QuoteLookups,
		RefreshCycles,
		RefreshDuration,
		RefreshPositions,
		WorkerExecutions,
		WorkerLastRun,
	)
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
