// Package metrics provides Prometheus metrics for the woundsim training
// backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every metric the service records.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	scoreBuckets     []float64
	registry         prometheus.Registerer

	// Session lifecycle
	sessionsStarted   prometheus.Counter
	sessionsCompleted prometheus.Counter
	sessionCount      prometheus.Gauge

	// Stage evaluation
	stageSubmissions *prometheus.CounterVec
	stageScore       *prometheus.HistogramVec
	verdictsReceived *prometheus.CounterVec

	// Collaborators
	retrievalFailures prometheus.Counter
	retrievalLatency  prometheus.Histogram

	// Session store
	storeUpdateLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	duplicateSubmits    prometheus.Counter
	dedupeSize          prometheus.Gauge

	// Audit pipeline
	auditQueueSize prometheus.Gauge
	auditExports   prometheus.Counter
	auditDropped   prometheus.Counter
	workerCount    prometheus.Gauge

	// System
	systemMemoryBytes prometheus.Gauge
	systemGoroutines  prometheus.Gauge
	systemGCPauseMs   prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid the default Go collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "woundsim",
		subsystem:        "training",
		histogramBuckets: prometheus.DefBuckets,
		scoreBuckets:     []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // metric registration is one long block
	auto := promauto.With(m.registry)

	m.sessionsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_started_total",
		Help:      "Total number of training sessions started",
	})

	m.sessionsCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_completed_total",
		Help:      "Total number of sessions that reached the terminal stage",
	})

	m.sessionCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "session_count",
		Help:      "Number of sessions tracked by the store",
	})

	m.stageSubmissions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stage_submissions_total",
		Help:      "Stage submissions by stage and outcome",
	}, []string{"stage", "status"})

	m.stageScore = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stage_score",
		Help:      "Distribution of aggregate stage scores",
		Buckets:   m.scoreBuckets,
	}, []string{"stage"})

	m.verdictsReceived = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "verdicts_received_total",
		Help:      "Evaluator verdicts received, by agent identifier",
	}, []string{"agent"})

	m.retrievalFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "retrieval_failures_total",
		Help:      "Retrieval calls that failed and degraded to empty context",
	})

	m.retrievalLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "retrieval_latency_milliseconds",
		Help:      "Histogram of retrieval latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.storeUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_update_latency_milliseconds",
		Help:      "Histogram of session store append+advance latency",
		Buckets:   m.histogramBuckets,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration by endpoint, method and status code",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"endpoint", "method", "status_code"})

	m.duplicateSubmits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duplicate_submissions_total",
		Help:      "Stage submissions acknowledged as duplicates",
	})

	m.dedupeSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dedupe_size",
		Help:      "Number of submission IDs tracked by the dedupe cache",
	})

	m.auditQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audit_queue_size",
		Help:      "Current size of the audit export queue",
	})

	m.auditExports = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audit_exports_total",
		Help:      "Stage results exported to the audit log",
	})

	m.auditDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audit_dropped_total",
		Help:      "Audit records dropped because the export queue was full",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audit_worker_count",
		Help:      "Number of audit export workers",
	})

	m.systemMemoryBytes = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current allocated heap memory in bytes",
	})

	m.systemGoroutines = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})

	m.systemGCPauseMs = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_milliseconds",
		Help:      "Average GC pause time in milliseconds",
	})
}

// RecordSessionStarted increments the sessions started counter.
func RecordSessionStarted() {
	globalManager.sessionsStarted.Inc()
}

// RecordSessionCompleted increments the sessions completed counter.
func RecordSessionCompleted() {
	globalManager.sessionsCompleted.Inc()
}

// UpdateSessionCount sets the tracked session gauge.
func UpdateSessionCount(count int) {
	globalManager.sessionCount.Set(float64(count))
}

// RecordStageSubmission counts one stage submission outcome.
func RecordStageSubmission(stage, status string) {
	globalManager.stageSubmissions.WithLabelValues(stage, status).Inc()
}

// RecordStageScore observes an aggregate stage score.
func RecordStageScore(stage string, score float64) {
	globalManager.stageScore.WithLabelValues(stage).Observe(score)
}

// RecordVerdict counts one received evaluator verdict.
func RecordVerdict(agent string) {
	globalManager.verdictsReceived.WithLabelValues(agent).Inc()
}

// RecordRetrievalFailure increments the degraded-retrieval counter.
func RecordRetrievalFailure() {
	globalManager.retrievalFailures.Inc()
}

// RecordRetrievalLatency records retrieval latency in milliseconds.
func RecordRetrievalLatency(latencyMs float64) {
	globalManager.retrievalLatency.Observe(latencyMs)
}

// RecordStoreUpdateLatency records append+advance latency in milliseconds.
func RecordStoreUpdateLatency(latencyMs float64) {
	globalManager.storeUpdateLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordDuplicateSubmission counts a duplicate stage submission ack.
func RecordDuplicateSubmission() {
	globalManager.duplicateSubmits.Inc()
}

// UpdateDedupeSize sets the dedupe cache size gauge.
func UpdateDedupeSize(size int64) {
	globalManager.dedupeSize.Set(float64(size))
}

// UpdateAuditQueueSize sets the audit queue size gauge.
func UpdateAuditQueueSize(size int) {
	globalManager.auditQueueSize.Set(float64(size))
}

// RecordAuditExport counts one exported audit record.
func RecordAuditExport() {
	globalManager.auditExports.Inc()
}

// RecordAuditDropped counts one dropped audit record.
func RecordAuditDropped() {
	globalManager.auditDropped.Inc()
}

// UpdateWorkerCount sets the audit worker gauge.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateSystemMemoryUsage sets the allocated heap gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryBytes.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutines.Set(float64(count))
}

// RecordSystemGCPauseTime sets the average GC pause gauge.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseMs.Set(pauseMs)
}

// GetRegistry returns the registry all metrics are registered on, for
// serving via promhttp.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
