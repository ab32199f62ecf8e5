// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Lifecycle metrics
	PollCyclesTotal      *prometheus.CounterVec
	PollCycleDuration    prometheus.Histogram
	SignalTransitions    *prometheus.CounterVec
	TransitionConflicts  prometheus.Counter
	SignalErrors         *prometheus.CounterVec
	SignalsByStatus      *prometheus.GaugeVec

	// Simulator metrics
	TradesSimulated prometheus.Counter

	// Market data metrics
	PriceFetchLatency *prometheus.HistogramVec
	PriceFetchErrors  *prometheus.CounterVec

	// Outbox metrics
	OutboxPendingDepth   prometheus.Gauge
	OutboxDelivered      prometheus.Counter
	OutboxDeliveryErrors prometheus.Counter

	// Reporting metrics
	ReportsGenerated prometheus.Counter

	// Health metrics
	LastSuccessfulPoll prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "kinkong"
	}

	return &Metrics{
		// Lifecycle metrics
		PollCyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "poll_cycles_total",
			Help:      "Total number of poll cycles by status",
		}, []string{"status"}),
		PollCycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "poll_cycle_duration_seconds",
			Help:      "Poll cycle duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		SignalTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "signal_transitions_total",
			Help:      "Total number of signal status transitions",
		}, []string{"from", "to"}),
		TransitionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "transition_conflicts_total",
			Help:      "Total number of transitions lost to concurrent updates",
		}),
		SignalErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "signal_errors_total",
			Help:      "Total number of per-signal processing errors by stage",
		}, []string{"stage"}),
		SignalsByStatus: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "signals_by_status",
			Help:      "Number of signals seen in the last cycle by status",
		}, []string{"status"}),

		// Simulator metrics
		TradesSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulator",
			Name:      "trades_simulated_total",
			Help:      "Total number of trades simulated",
		}),

		// Market data metrics
		PriceFetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "fetch_latency_seconds",
			Help:      "Price fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		PriceFetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "fetch_errors_total",
			Help:      "Total number of price fetch errors",
		}, []string{"source"}),

		// Outbox metrics
		OutboxPendingDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "pending_depth",
			Help:      "Number of undelivered outbox events at the last drain",
		}),
		OutboxDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "delivered_total",
			Help:      "Total number of outbox events delivered",
		}),
		OutboxDeliveryErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "delivery_errors_total",
			Help:      "Total number of outbox delivery failures",
		}),

		// Reporting metrics
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "reports_generated_total",
			Help:      "Total number of performance reports generated",
		}),

		// Health metrics
		LastSuccessfulPoll: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_poll_timestamp",
			Help:      "Unix timestamp of last successful poll cycle",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTransition increments the transition counter.
func RecordTransition(from, to string) {
	DefaultMetrics.SignalTransitions.WithLabelValues(from, to).Inc()
}

// RecordTransitionConflict increments the conflict counter.
func RecordTransitionConflict() {
	DefaultMetrics.TransitionConflicts.Inc()
}

// RecordSignalError records a per-signal processing error.
func RecordSignalError(stage string) {
	DefaultMetrics.SignalErrors.WithLabelValues(stage).Inc()
}

// RecordTradeSimulated increments the simulated trades counter.
func RecordTradeSimulated() {
	DefaultMetrics.TradesSimulated.Inc()
}

// RecordPriceFetchError records a price fetch failure.
func RecordPriceFetchError(source string) {
	DefaultMetrics.PriceFetchErrors.WithLabelValues(source).Inc()
}
