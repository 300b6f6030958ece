// Package metrics provides Prometheus metrics for the CADIS intelligence engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector the engine exposes.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Run pipeline
	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	stageDuration    *prometheus.HistogramVec
	recordsSeen      prometheus.Counter
	recordsExcluded  *prometheus.CounterVec
	sourceTimeouts   *prometheus.CounterVec
	sourceErrors     *prometheus.CounterVec
	insightsEmitted  *prometheus.CounterVec
	templatesSkipped prometheus.Counter
	scenarioSelected *prometheus.CounterVec

	// Simulator
	simulationsTotal   prometheus.Counter
	simulationErrors   prometheus.Counter
	simulationTimeSave prometheus.Histogram

	// Run queue
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueEnqueued     prometheus.Counter
	queueRejected     *prometheus.CounterVec
	duplicateRequests prometheus.Counter
	workerActiveCount prometheus.Gauge
	workerRunLatency  prometheus.Histogram
	workerErrors      prometheus.Counter
	persistenceErrors *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton manager backing the package-level recorders

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry without default Go collectors

func init() { //nolint:gochecknoinits // metrics must exist before any recorder is called
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cadis",
		subsystem:        "engine",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.runsTotal = m.counterVec("runs_total", "Analysis runs by final state", "state")
	m.runDuration = m.histogram("run_duration_milliseconds", "End-to-end analysis run duration in milliseconds", m.histogramBuckets)
	m.stageDuration = m.histogramVec("stage_duration_milliseconds", "Duration of each run stage in milliseconds", "stage")
	m.recordsSeen = m.counter("records_seen_total", "Raw records handed to the normalizer")
	m.recordsExcluded = m.counterVec("records_excluded_total", "Raw records excluded by the normalizer", "reason")
	m.sourceTimeouts = m.counterVec("source_timeouts_total", "Record source fetches that exceeded the timeout", "source")
	m.sourceErrors = m.counterVec("source_errors_total", "Record source fetches that failed", "source")
	m.insightsEmitted = m.counterVec("insights_emitted_total", "Insights produced by the synthesizer", "impact")
	m.templatesSkipped = m.counter("templates_skipped_total", "Insight templates skipped because their precondition did not hold")
	m.scenarioSelected = m.counterVec("scenario_selected_total", "Scenarios selected by the classifier", "scenario")

	m.simulationsTotal = m.counter("simulations_total", "Counterfactual simulations executed")
	m.simulationErrors = m.counter("simulation_errors_total", "Counterfactual simulations rejected")
	m.simulationTimeSave = m.histogram("simulation_time_saved_minutes", "Projected minutes saved per simulation",
		[]float64{0, 15, 30, 45, 60, 90, 120, 240})

	m.queueSize = m.gauge("run_queue_size", "Run requests waiting in the queue")
	m.queueCapacity = m.gauge("run_queue_capacity", "Maximum run queue capacity")
	m.queueEnqueued = m.counter("run_queue_enqueued_total", "Run requests accepted by the queue")
	m.queueRejected = m.counterVec("run_queue_rejected_total", "Run requests rejected by the queue", "reason")
	m.duplicateRequests = m.counter("run_requests_duplicate_total", "Run requests rejected as duplicates")
	m.workerActiveCount = m.gauge("worker_active_count", "Run workers currently started")
	m.workerRunLatency = m.histogram("worker_run_latency_milliseconds", "Time a worker spends on one queued run", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Queued runs that ended in an error")
	m.persistenceErrors = m.counterVec("persistence_errors_total", "Failures writing runs or simulations to a store", "store")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordRun counts a finished run and its duration.
func RecordRun(state string, durationMs float64) {
	globalManager.runsTotal.WithLabelValues(state).Inc()
	globalManager.runDuration.Observe(durationMs)
}

// RecordStageDuration observes how long one run stage took.
func RecordStageDuration(stage string, durationMs float64) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(durationMs)
}

// RecordRecordsSeen adds n to the raw record counter.
func RecordRecordsSeen(n int) {
	globalManager.recordsSeen.Add(float64(n))
}

// RecordRecordsExcluded adds n records excluded for reason.
func RecordRecordsExcluded(reason string, n int) {
	if n <= 0 {
		return
	}
	globalManager.recordsExcluded.WithLabelValues(reason).Add(float64(n))
}

// RecordSourceTimeout counts one timed out source fetch.
func RecordSourceTimeout(source string) {
	globalManager.sourceTimeouts.WithLabelValues(source).Inc()
}

// RecordSourceError counts one failed source fetch.
func RecordSourceError(source string) {
	globalManager.sourceErrors.WithLabelValues(source).Inc()
}

// RecordInsight counts one emitted insight.
func RecordInsight(impact string) {
	globalManager.insightsEmitted.WithLabelValues(impact).Inc()
}

// RecordTemplatesSkipped adds n skipped templates.
func RecordTemplatesSkipped(n int) {
	globalManager.templatesSkipped.Add(float64(n))
}

// RecordScenario counts one classifier decision.
func RecordScenario(id string) {
	globalManager.scenarioSelected.WithLabelValues(id).Inc()
}

// RecordSimulation counts a simulation and its projected savings.
func RecordSimulation(timeSavedMinutes int) {
	globalManager.simulationsTotal.Inc()
	globalManager.simulationTimeSave.Observe(float64(timeSavedMinutes))
}

// RecordSimulationError counts a rejected simulation.
func RecordSimulationError() {
	globalManager.simulationErrors.Inc()
}

// UpdateQueueSize sets the current run queue depth.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the run queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted run request.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueRejected counts a run request the queue refused.
func RecordQueueRejected(reason string) {
	globalManager.queueRejected.WithLabelValues(reason).Inc()
}

// RecordDuplicateRequest counts a run request rejected as a duplicate.
func RecordDuplicateRequest() {
	globalManager.duplicateRequests.Inc()
}

// UpdateWorkerActiveCount sets the number of started run workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerRunLatency observes the time a worker spent on a run.
func RecordWorkerRunLatency(latencyMs float64) {
	globalManager.workerRunLatency.Observe(latencyMs)
}

// RecordWorkerError counts a queued run that failed.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordPersistenceError counts a store write failure.
func RecordPersistenceError(store string) {
	globalManager.persistenceErrors.WithLabelValues(store).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
