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
	// Sync metrics
	SyncRunsTotal   *prometheus.CounterVec
	SyncErrors      *prometheus.CounterVec
	SwapsFetched    prometheus.Counter
	SwapsSynced     *prometheus.CounterVec
	LastWatermark   prometheus.Gauge
	StageDuration   *prometheus.HistogramVec
	UpstreamLatency *prometheus.HistogramVec

	// Export metrics
	ExportRunsTotal *prometheus.CounterVec
	SwapsExported   prometheus.Counter
	LastExportedSeq prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulSync   prometheus.Gauge
	LastSuccessfulExport prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pulsex_swap_sync"
	}

	return &Metrics{
		// Sync metrics
		SyncRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Total number of sync invocations by status",
		}, []string{"status"}),
		SyncErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "errors_total",
			Help:      "Total number of failed sync invocations by error kind",
		}, []string{"kind"}),
		SwapsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "swaps_fetched_total",
			Help:      "Total number of swaps returned by the subgraph",
		}),
		SwapsSynced: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "swaps_synced_total",
			Help:      "Total number of swaps upserted by type",
		}, []string{"type"}),
		LastWatermark: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "watermark_timestamp",
			Help:      "Watermark resolved by the most recent sync invocation",
		}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "stage_duration_seconds",
			Help:      "Sync stage duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		UpstreamLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "subgraph",
			Name:      "request_latency_seconds",
			Help:      "Subgraph request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),

		// Export metrics
		ExportRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "runs_total",
			Help:      "Total number of export invocations by status",
		}, []string{"status"}),
		SwapsExported: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "swaps_exported_total",
			Help:      "Total number of swaps copied to the analytics mirror",
		}),
		LastExportedSeq: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "last_seq_id",
			Help:      "Highest seq_id copied to the analytics mirror",
		}),

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
		LastSuccessfulSync: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_sync_timestamp",
			Help:      "Unix timestamp of last successful sync",
		}),
		LastSuccessfulExport: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_export_timestamp",
			Help:      "Unix timestamp of last successful export",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSyncSuccess records a completed sync invocation.
func RecordSyncSuccess(watermark int64, buys, sells int, unixNow int64) {
	DefaultMetrics.SyncRunsTotal.WithLabelValues("success").Inc()
	DefaultMetrics.LastWatermark.Set(float64(watermark))
	DefaultMetrics.SwapsSynced.WithLabelValues("BUY").Add(float64(buys))
	DefaultMetrics.SwapsSynced.WithLabelValues("SELL").Add(float64(sells))
	DefaultMetrics.LastSuccessfulSync.Set(float64(unixNow))
}

// RecordSyncFailure records a failed sync invocation by error kind.
func RecordSyncFailure(kind string) {
	DefaultMetrics.SyncRunsTotal.WithLabelValues("failure").Inc()
	DefaultMetrics.SyncErrors.WithLabelValues(kind).Inc()
}

// RecordFetched adds n to the fetched swaps counter.
func RecordFetched(n int) {
	DefaultMetrics.SwapsFetched.Add(float64(n))
}

// RecordStage records the duration of one sync stage.
func RecordStage(stage string, seconds float64) {
	DefaultMetrics.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordUpstreamLatency records subgraph request latency.
func RecordUpstreamLatency(status string, seconds float64) {
	DefaultMetrics.UpstreamLatency.WithLabelValues(status).Observe(seconds)
}

// RecordExport records an export invocation.
func RecordExport(status string, exported int, lastSeq int64, unixNow int64) {
	DefaultMetrics.ExportRunsTotal.WithLabelValues(status).Inc()
	if status != "success" {
		return
	}
	DefaultMetrics.SwapsExported.Add(float64(exported))
	if lastSeq > 0 {
		DefaultMetrics.LastExportedSeq.Set(float64(lastSeq))
	}
	DefaultMetrics.LastSuccessfulExport.Set(float64(unixNow))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
