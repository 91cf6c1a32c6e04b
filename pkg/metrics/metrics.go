// Package metrics provides Prometheus metrics for the learning engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus metric exposed by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Event pipeline
	eventsConsumed  prometheus.Counter
	eventsSkipped   *prometheus.CounterVec
	eventsDropped   prometheus.Counter
	masteryUpdates  prometheus.Counter
	updateLatency   prometheus.Histogram
	consumerErrors  prometheus.Counter
	conflictRetries prometheus.Counter

	// Queue health
	queueDepth         prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueErrors prometheus.Counter
	consumerCount      prometheus.Gauge

	// Read side
	recommendations  *prometheus.CounterVec
	reportsGenerated prometheus.Counter
	reportJobsFailed prometheus.Counter

	// Repository
	repositoryLatency *prometheus.HistogramVec

	// Text-completion oracle
	oracleRequests *prometheus.CounterVec
	oracleLatency  prometheus.Histogram

	// HTTP boundary
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry avoids the default Go runtime collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers all metrics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "sage",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.register()
	return m
}

func (m *Manager) register() {
	auto := promauto.With(m.registry)

	m.eventsConsumed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "events_consumed_total",
		Help: "Interaction events fetched from the queue",
	})
	m.eventsSkipped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "events_skipped_total",
		Help: "Events skipped without a mastery update, by reason",
	}, []string{"reason"})
	m.eventsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "events_dropped_total",
		Help: "Events dropped after exhausting persistence retries",
	})
	m.masteryUpdates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "mastery_updates_total",
		Help: "Successful competence map updates",
	})
	m.updateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "mastery_update_latency_milliseconds",
		Help:    "Latency of a single apply-attempt cycle",
		Buckets: m.histogramBuckets,
	})
	m.consumerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "consumer_errors_total",
		Help: "Per-event consumer failures (contained, loop continues)",
	})
	m.conflictRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "profile_conflict_retries_total",
		Help: "Optimistic transaction conflicts retried on profile writes",
	})

	m.queueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_depth",
		Help: "Events currently buffered in the queue",
	})
	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_capacity",
		Help: "Configured queue capacity",
	})
	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_enqueue_errors_total",
		Help: "Failed enqueue attempts (backpressure or closed queue)",
	})
	m.consumerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "consumer_count",
		Help: "Running consumer goroutines",
	})

	m.recommendations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "recommendations_total",
		Help: "Recommendation requests, by outcome",
	}, []string{"outcome"})
	m.reportsGenerated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "reports_generated_total",
		Help: "Learner reports generated and persisted",
	})
	m.reportJobsFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "report_jobs_failed_total",
		Help: "Background report jobs that failed",
	})

	m.repositoryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "repository_latency_milliseconds",
		Help:    "Repository operation latency, by operation",
		Buckets: m.histogramBuckets,
	}, []string{"op"})

	m.oracleRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "oracle_requests_total",
		Help: "Text-completion oracle calls, by outcome",
	}, []string{"outcome"})
	m.oracleLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "oracle_latency_milliseconds",
		Help:    "Text-completion oracle call latency",
		Buckets: m.histogramBuckets,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "HTTP requests, by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request latency, by endpoint, method and status",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})
}

// Package-level helpers against the global manager.

func RecordEventConsumed()             { globalManager.eventsConsumed.Inc() }
func RecordEventSkipped(reason string) { globalManager.eventsSkipped.WithLabelValues(reason).Inc() }
func RecordEventDropped()              { globalManager.eventsDropped.Inc() }
func RecordMasteryUpdate()             { globalManager.masteryUpdates.Inc() }
func RecordUpdateLatency(ms float64)   { globalManager.updateLatency.Observe(ms) }
func RecordConsumerError()             { globalManager.consumerErrors.Inc() }
func RecordConflictRetry()             { globalManager.conflictRetries.Inc() }

func UpdateQueueDepth(n int)      { globalManager.queueDepth.Set(float64(n)) }
func UpdateQueueCapacity(n int)   { globalManager.queueCapacity.Set(float64(n)) }
func RecordQueueEnqueueError()    { globalManager.queueEnqueueErrors.Inc() }
func UpdateConsumerCount(n int)   { globalManager.consumerCount.Set(float64(n)) }

func RecordRecommendation(outcome string) {
	globalManager.recommendations.WithLabelValues(outcome).Inc()
}
func RecordReportGenerated()  { globalManager.reportsGenerated.Inc() }
func RecordReportJobFailed()  { globalManager.reportJobsFailed.Inc() }

func RecordRepositoryLatency(op string, ms float64) {
	globalManager.repositoryLatency.WithLabelValues(op).Observe(ms)
}

func RecordOracleRequest(outcome string) {
	globalManager.oracleRequests.WithLabelValues(outcome).Inc()
}
func RecordOracleLatency(ms float64) { globalManager.oracleLatency.Observe(ms) }

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, status string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(ms)
}

// GetRegistry exposes the custom registry for the /metrics handler.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
