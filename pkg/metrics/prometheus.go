// Package metrics provides Prometheus metrics for the routine recorder service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultSampleInterval = 10 * time.Second

// defaultLatencyBuckets are in milliseconds.
var defaultLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000} //nolint:gochecknoglobals // bucket layout

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	latencyBuckets   []float64
	enabled          bool
	sampleInterval   time.Duration
	registry         prometheus.Registerer

	// Core business metrics
	submissionsRecorded *prometheus.CounterVec
	submissionsDeleted  prometheus.Counter
	submissionsDup      prometheus.Counter
	routinesReplaced    *prometheus.CounterVec
	usersCreated        prometheus.Counter
	rosterSize          prometheus.Gauge

	// Store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// Cache refresh
	cacheRefreshes       prometheus.Counter
	cacheRefreshPartial  prometheus.Counter
	cacheRefreshDuration prometheus.Histogram
	cacheUsers           prometheus.Gauge
	cacheLastRefreshUnix prometheus.Gauge
	refreshWorkerActive  prometheus.Gauge
	refreshFetchLatency  prometheus.Histogram
	refreshFetchErrors   prometheus.Counter

	// Suggestions
	suggestRequests *prometheus.CounterVec
	suggestLatency  prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "routine",
		subsystem:        "recorder",
		latencyBuckets:   defaultLatencyBuckets,
		enabled:          true,
		sampleInterval:   defaultSampleInterval,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// Enabled reports whether recording is switched on.
func (m *Manager) Enabled() bool { return m.enabled }

// SampleInterval is how often process gauges should be sampled.
func (m *Manager) SampleInterval() time.Duration { return m.sampleInterval }

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for all metric definitions
	auto := promauto.With(m.registry)

	m.submissionsRecorded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_recorded_total",
		Help:      "Submissions saved, by event and completeness",
	}, []string{"event", "complete"})

	m.submissionsDeleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_deleted_total",
		Help:      "Submissions deleted",
	})

	m.submissionsDup = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_duplicate_total",
		Help:      "Submission requests rejected by idempotency key",
	})

	m.routinesReplaced = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "routines_replaced_total",
		Help:      "Routine edits, by event",
	}, []string{"event"})

	m.usersCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "users_created_total",
		Help:      "User records created lazily on first access",
	})

	m.rosterSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "roster_size",
		Help:      "Configured roster size",
	})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_latency_milliseconds",
		Help:      "Store operation latency in milliseconds",
		Buckets:   m.latencyBuckets,
	}, []string{"op"})

	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_errors_total",
		Help:      "Store operation failures",
	}, []string{"op"})

	m.cacheRefreshes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_refreshes_total",
		Help:      "Full cache refreshes",
	})

	m.cacheRefreshPartial = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_refresh_partial_total",
		Help:      "Refreshes that omitted at least one user",
	})

	m.cacheRefreshDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_refresh_duration_milliseconds",
		Help:      "Duration of a full cache refresh in milliseconds",
		Buckets:   m.latencyBuckets,
	})

	m.cacheUsers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_users",
		Help:      "Users present in the current cache snapshot",
	})

	m.cacheLastRefreshUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_last_refresh_unix",
		Help:      "Unix timestamp of the last completed refresh",
	})

	m.refreshWorkerActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_worker_active_count",
		Help:      "Fetch workers currently loading a user",
	})

	m.refreshFetchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_fetch_latency_milliseconds",
		Help:      "Per-user fetch latency during refresh in milliseconds",
		Buckets:   m.latencyBuckets,
	})

	m.refreshFetchErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_fetch_errors_total",
		Help:      "Per-user fetch failures during refresh",
	})

	m.suggestRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "suggest_requests_total",
		Help:      "Suggestion requests by outcome (ok, empty, failed)",
	}, []string{"outcome"})

	m.suggestLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "suggest_latency_milliseconds",
		Help:      "Suggestion collaborator round trip in milliseconds",
		Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_endpoint_total",
		Help:      "Total number of errors by endpoint",
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// RecordSubmission counts a saved submission.
func RecordSubmission(event string, complete bool) {
	if !globalManager.enabled {
		return
	}
	globalManager.submissionsRecorded.WithLabelValues(event, boolLabel(complete)).Inc()
}

// RecordSubmissionDeleted counts a deleted submission.
func RecordSubmissionDeleted() {
	if !globalManager.enabled {
		return
	}
	globalManager.submissionsDeleted.Inc()
}

// RecordSubmissionDuplicate counts a request rejected as a replay.
func RecordSubmissionDuplicate() {
	if !globalManager.enabled {
		return
	}
	globalManager.submissionsDup.Inc()
}

// RecordRoutineReplaced counts a routine edit.
func RecordRoutineReplaced(event string) {
	if !globalManager.enabled {
		return
	}
	globalManager.routinesReplaced.WithLabelValues(event).Inc()
}

// RecordUserCreated counts a lazily created user record.
func RecordUserCreated() {
	if !globalManager.enabled {
		return
	}
	globalManager.usersCreated.Inc()
}

// UpdateRosterSize sets the roster size gauge.
func UpdateRosterSize(n int) {
	globalManager.rosterSize.Set(float64(n))
}

// RecordStoreLatency records a store operation latency.
func RecordStoreLatency(op string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(op string) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeErrors.WithLabelValues(op).Inc()
}

// RecordCacheRefresh records a completed refresh.
func RecordCacheRefresh(durationMs float64, users int, partial bool) {
	if !globalManager.enabled {
		return
	}
	globalManager.cacheRefreshes.Inc()
	globalManager.cacheRefreshDuration.Observe(durationMs)
	globalManager.cacheUsers.Set(float64(users))
	globalManager.cacheLastRefreshUnix.Set(float64(time.Now().Unix()))
	if partial {
		globalManager.cacheRefreshPartial.Inc()
	}
}

// UpdateRefreshWorkerActive sets the number of busy fetch workers.
func UpdateRefreshWorkerActive(n int) {
	globalManager.refreshWorkerActive.Set(float64(n))
}

// RecordRefreshFetch records a single per-user fetch.
func RecordRefreshFetch(latencyMs float64, failed bool) {
	if !globalManager.enabled {
		return
	}
	globalManager.refreshFetchLatency.Observe(latencyMs)
	if failed {
		globalManager.refreshFetchErrors.Inc()
	}
}

// RecordSuggestion records a suggestion request outcome.
func RecordSuggestion(outcome string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.suggestRequests.WithLabelValues(outcome).Inc()
	if latencyMs > 0 {
		globalManager.suggestLatency.Observe(latencyMs)
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// SetEnabled switches recording on or off for the global manager.
func SetEnabled(enabled bool) {
	globalManager.enabled = enabled
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// SampleInterval returns the sampling period of the global manager.
func SampleInterval() time.Duration {
	return globalManager.sampleInterval
}
