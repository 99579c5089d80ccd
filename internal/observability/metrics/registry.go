// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track HTTP request patterns and performance
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestSize measures HTTP request body size in bytes
	HTTPRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// HTTPResponseSize measures HTTP response body size in bytes
	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// ActiveConnections tracks the number of active HTTP connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)
)

// Business metrics track application-specific operations
var (
	// EpisodesTotal tracks total number of episodes in database
	EpisodesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "episodes_total",
			Help: "Total number of episodes in the database",
		},
	)

	// ChannelsTotal tracks total number of channels in database
	ChannelsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "channels_total",
			Help: "Total number of channels in the database",
		},
	)

	// EpisodesDiscoveredTotal counts episodes discovered from each channel
	EpisodesDiscoveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "episodes_discovered_total",
			Help: "Total number of episodes discovered from channels",
		},
		[]string{"channel_id"},
	)

	// PipelineRunsTotal counts pipeline runs by terminal status
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of download pipeline runs",
		},
		[]string{"status"},
	)

	// PipelineRunDuration measures time to run one episode through the pipeline
	PipelineRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_run_duration_seconds",
			Help:    "Time taken to fetch, transcode, and store one episode",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	// RefreshDuration measures time to refresh a channel
	RefreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "refresh_duration_seconds",
			Help:    "Time taken to refresh a channel",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"channel_id"},
	)

	// RefreshErrors counts errors during channel refresh
	RefreshErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refresh_errors_total",
			Help: "Total number of channel refresh errors",
		},
		[]string{"channel_id", "error_kind"},
	)

	// QueueDepth tracks the number of queue items by status
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Number of queue items by status",
		},
		[]string{"status"},
	)

	// RetentionDeletionsTotal counts episodes deleted by retention
	RetentionDeletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_deletions_total",
			Help: "Total number of episodes deleted by retention",
		},
		[]string{"channel_id"},
	)

	// DiskBytesFree tracks free bytes on the downloads volume
	DiskBytesFree = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "disk_bytes_free",
			Help: "Free bytes on the downloads volume",
		},
	)
)

// Database metrics track database performance
var (
	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	// DBConnectionsActive tracks active database connections
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// RecordHTTPRequest records an HTTP request with its metadata
func RecordHTTPRequest(method, path, status string, duration time.Duration, requestSize, responseSize int) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())

	if requestSize > 0 {
		HTTPRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	}
	if responseSize > 0 {
		HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
	}
}

// RecordOperationDuration records the duration of a named operation
func RecordOperationDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
