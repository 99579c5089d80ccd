package worker

import (
	"channelmirror/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics provides Prometheus metrics for the refresh and download
// workers. It embeds the standard ConfigMetrics for configuration monitoring
// and adds metrics for refresh cycle and download claim tracking.
//
// Embedded metrics (from ConfigMetrics):
//   - worker_config_load_timestamp: Unix timestamp of last configuration load
//   - worker_config_validation_errors_total: Total validation errors by field
//   - worker_config_fallbacks_total: Total fallback operations by field
//   - worker_config_fallback_active: 1 if any fallback active, 0 otherwise
//
// Worker-specific metrics:
//   - worker_refresh_cycle_runs_total: Total refresh cycles by status (success/failure/skipped)
//   - worker_refresh_cycle_duration_seconds: Duration histogram of refresh cycle execution
//   - worker_refresh_cycle_episodes_discovered_total: Total new episodes discovered per cycle
//   - worker_refresh_cycle_last_success_timestamp: Unix timestamp of last successful refresh cycle
//   - worker_download_claims_total: Total queue item claims attempted by outcome
type WorkerMetrics struct {
	// Embedded configuration metrics
	*config.ConfigMetrics

	// RefreshCycleRunsTotal counts refresh cycles by status.
	// Type: Counter
	// Labels: status (success, failure, skipped)
	RefreshCycleRunsTotal *prometheus.CounterVec

	// RefreshCycleDurationSeconds measures the duration of a refresh cycle.
	// Type: Histogram
	// Buckets: 1s, 5s, 30s, 1m, 5m, 15m, 30m
	RefreshCycleDurationSeconds prometheus.Histogram

	// RefreshCycleEpisodesDiscoveredTotal counts new episodes discovered
	// across all channels in a cycle.
	// Type: Counter
	RefreshCycleEpisodesDiscoveredTotal prometheus.Counter

	// RefreshCycleLastSuccessTimestamp records the Unix timestamp of the
	// last refresh cycle that completed without a fatal error.
	// Type: Gauge
	RefreshCycleLastSuccessTimestamp prometheus.Gauge

	// DownloadClaimsTotal counts queue item claim attempts by outcome.
	// Type: Counter
	// Labels: outcome (claimed, empty, conflict)
	DownloadClaimsTotal *prometheus.CounterVec
}

// NewWorkerMetrics creates a new WorkerMetrics instance with all metrics initialized.
// Metrics are created but not registered with Prometheus. Call MustRegister() to register.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		RefreshCycleRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_refresh_cycle_runs_total",
			Help: "Total number of refresh cycles by status (success/failure/skipped)",
		}, []string{"status"}),

		RefreshCycleDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_refresh_cycle_duration_seconds",
			Help:    "Duration of a refresh cycle in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}),

		RefreshCycleEpisodesDiscoveredTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_refresh_cycle_episodes_discovered_total",
			Help: "Total number of new episodes discovered across all refresh cycles",
		}),

		RefreshCycleLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_refresh_cycle_last_success_timestamp",
			Help: "Unix timestamp of the last refresh cycle that completed without a fatal error",
		}),

		DownloadClaimsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_download_claims_total",
			Help: "Total queue item claim attempts by outcome (claimed/empty/conflict)",
		}, []string{"outcome"}),
	}
}

// MustRegister is a no-op method for API compatibility.
// Metrics are automatically registered via promauto when created in NewWorkerMetrics.
func (m *WorkerMetrics) MustRegister() {
	// No-op: metrics are auto-registered via promauto
}

// RecordRefreshCycleRun increments the refresh cycle counter for the given status.
func (m *WorkerMetrics) RecordRefreshCycleRun(status string) {
	m.RefreshCycleRunsTotal.WithLabelValues(status).Inc()
}

// RecordRefreshCycleDuration observes the duration of a refresh cycle, in seconds.
func (m *WorkerMetrics) RecordRefreshCycleDuration(seconds float64) {
	m.RefreshCycleDurationSeconds.Observe(seconds)
}

// RecordEpisodesDiscovered adds the number of episodes discovered to the total counter.
func (m *WorkerMetrics) RecordEpisodesDiscovered(count int) {
	m.RefreshCycleEpisodesDiscoveredTotal.Add(float64(count))
}

// RecordRefreshCycleSuccess records the current time as the last successful refresh cycle.
func (m *WorkerMetrics) RecordRefreshCycleSuccess() {
	m.RefreshCycleLastSuccessTimestamp.SetToCurrentTime()
}

// RecordDownloadClaim increments the download claim counter for the given outcome.
func (m *WorkerMetrics) RecordDownloadClaim(outcome string) {
	m.DownloadClaimsTotal.WithLabelValues(outcome).Inc()
}
