// Package metrics provides Prometheus metrics for the commentsense pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Pipeline
	eventsReceived   prometheus.Counter
	eventsSkipped    *prometheus.CounterVec
	eventsProcessed  prometheus.Counter
	eventsFailed     *prometheus.CounterVec
	eventsDuplicate  prometheus.Counter
	pipelineLatency  prometheus.Histogram
	sourceLanguages  *prometheus.CounterVec
	sentimentLabels  *prometheus.CounterVec
	notificationsOut *prometheus.CounterVec
	ticketsAnnotated prometheus.Counter

	// External collaborators
	dependencyLatency *prometheus.HistogramVec
	dependencyErrors  *prometheus.CounterVec
	sinkErrors        *prometheus.CounterVec

	// Server mode
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	workerCount   prometheus.Gauge
	queueRejected *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "commentsense",
		subsystem:        "pipeline",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)

	m.eventsReceived = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_received_total",
		Help:      "Total number of ticket events handed to the processor",
	})
	m.eventsSkipped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_skipped_total",
		Help:      "Events ignored before any external call, by reason",
	}, []string{"reason"})
	m.eventsProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_processed_total",
		Help:      "Events that ran the whole pipeline without error",
	})
	m.eventsFailed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_failed_total",
		Help:      "Events whose pipeline stopped on an error, by failing step",
	}, []string{"step"})
	m.eventsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_duplicate_total",
		Help:      "Duplicate event deliveries acknowledged without processing",
	})
	m.pipelineLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "latency_milliseconds",
		Help:      "End-to-end pipeline latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.sourceLanguages = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "source_languages_total",
		Help:      "Detected source language of translated comments",
	}, []string{"language"})
	m.sentimentLabels = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sentiment_labels_total",
		Help:      "Sentiment labels assigned to comments",
	}, []string{"label"})
	m.notificationsOut = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notifications_total",
		Help:      "SMS notifications attempted, by result",
	}, []string{"result"})
	m.ticketsAnnotated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tickets_annotated_total",
		Help:      "Tickets updated with a translated private comment",
	})

	m.dependencyLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dependency_latency_milliseconds",
		Help:      "Latency of calls to external services in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"dependency"})
	m.dependencyErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dependency_errors_total",
		Help:      "Failed calls to external services",
	}, []string{"dependency"})
	m.sinkErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sink_errors_total",
		Help:      "Failures writing outcomes to the ledger or the outcome topic",
	}, []string{"sink"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current number of events waiting for a worker",
	})
	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum number of queued events",
	})
	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Number of pipeline workers",
	})
	m.queueRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_rejected_total",
		Help:      "Events refused by the queue, by reason",
	}, []string{"reason"})

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
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// RecordEventReceived increments the received events counter.
func RecordEventReceived() { globalManager.eventsReceived.Inc() }

// RecordEventSkipped counts an event dropped by validation.
func RecordEventSkipped(reason string) { globalManager.eventsSkipped.WithLabelValues(reason).Inc() }

// RecordEventProcessed counts a fully successful pipeline run.
func RecordEventProcessed() { globalManager.eventsProcessed.Inc() }

// RecordEventFailed counts a pipeline run that stopped at step.
func RecordEventFailed(step string) { globalManager.eventsFailed.WithLabelValues(step).Inc() }

// RecordEventDuplicate increments the duplicate events counter.
func RecordEventDuplicate() { globalManager.eventsDuplicate.Inc() }

// RecordPipelineLatency records end-to-end latency in milliseconds.
func RecordPipelineLatency(latencyMs float64) { globalManager.pipelineLatency.Observe(latencyMs) }

// RecordSourceLanguage counts the detected language of a comment.
func RecordSourceLanguage(lang string) { globalManager.sourceLanguages.WithLabelValues(lang).Inc() }

// RecordSentiment counts an assigned sentiment label.
func RecordSentiment(label string) { globalManager.sentimentLabels.WithLabelValues(label).Inc() }

// RecordNotification counts an SMS attempt.
func RecordNotification(err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	globalManager.notificationsOut.WithLabelValues(result).Inc()
}

// RecordTicketAnnotated counts a successful ticket update.
func RecordTicketAnnotated() { globalManager.ticketsAnnotated.Inc() }

// RecordDependencyCall records latency of one external call and counts failures.
func RecordDependencyCall(dependency string, latencyMs float64, err error) {
	globalManager.dependencyLatency.WithLabelValues(dependency).Observe(latencyMs)
	if err != nil {
		globalManager.dependencyErrors.WithLabelValues(dependency).Inc()
	}
}

// RecordSinkError counts a failed ledger or publisher write.
func RecordSinkError(sink string) { globalManager.sinkErrors.WithLabelValues(sink).Inc() }

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordQueueRejected counts an event refused by the queue.
func RecordQueueRejected(reason string) { globalManager.queueRejected.WithLabelValues(reason).Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
