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
	// Ingestion metrics
	SalesEventsStored    prometheus.Counter
	SnapshotsStored      prometheus.Counter
	EventValidationError *prometheus.CounterVec

	// Pipeline metrics
	PipelineRunsTotal prometheus.Counter
	PipelineErrors    prometheus.Counter
	PipelineDuration  prometheus.Histogram
	ItemsAnalyzed     prometheus.Gauge
	FactRowsDropped   prometheus.Counter

	// Outcome metrics
	SignalsEmitted  *prometheus.CounterVec
	DecisionsIssued *prometheus.CounterVec
	VerdictsIssued  *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "stockpulse"
	}

	return &Metrics{
		// Ingestion metrics
		SalesEventsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "sales_events_stored_total",
			Help:      "Total number of sales events stored",
		}),
		SnapshotsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "snapshots_stored_total",
			Help:      "Total number of inventory snapshots stored",
		}),
		EventValidationError: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "event_validation_errors_total",
			Help:      "Total number of rejected sales events by reason",
		}, []string{"reason"}),

		// Pipeline metrics
		PipelineRunsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs",
		}),
		PipelineErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "errors_total",
			Help:      "Total number of failed pipeline runs",
		}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		ItemsAnalyzed: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "items_analyzed",
			Help:      "Number of inventory items analyzed by the latest run",
		}),
		FactRowsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "fact_rows_dropped_total",
			Help:      "Total number of fact rows dropped for missing required fields",
		}),

		// Outcome metrics
		SignalsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "signals_emitted_total",
			Help:      "Total number of signals emitted by type",
		}, []string{"type"}),
		DecisionsIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "decisions_issued_total",
			Help:      "Total number of decisions issued by type",
		}, []string{"type"}),
		VerdictsIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "verdicts_issued_total",
			Help:      "Total number of verdicts issued by type",
		}, []string{"type"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventStored increments the sales events stored counter.
func RecordEventStored() {
	DefaultMetrics.SalesEventsStored.Inc()
}

// RecordSnapshotStored increments the snapshots stored counter.
func RecordSnapshotStored() {
	DefaultMetrics.SnapshotsStored.Inc()
}

// RecordValidationError records a rejected sales event.
func RecordValidationError(reason string) {
	DefaultMetrics.EventValidationError.WithLabelValues(reason).Inc()
}

// RecordPipelineRun records one pipeline run.
func RecordPipelineRun(durationSeconds float64, err error) {
	DefaultMetrics.PipelineRunsTotal.Inc()
	DefaultMetrics.PipelineDuration.Observe(durationSeconds)
	if err != nil {
		DefaultMetrics.PipelineErrors.Inc()
	}
}

// RecordSignal records one emitted signal.
func RecordSignal(signalType string) {
	DefaultMetrics.SignalsEmitted.WithLabelValues(signalType).Inc()
}

// RecordDecision records one issued decision.
func RecordDecision(decisionType string) {
	DefaultMetrics.DecisionsIssued.WithLabelValues(decisionType).Inc()
}

// RecordVerdict records one issued verdict.
func RecordVerdict(verdictType string) {
	DefaultMetrics.VerdictsIssued.WithLabelValues(verdictType).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
