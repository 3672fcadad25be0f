// Package metrics provides Prometheus metrics for the matchreel engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values shared by callers.
const (
	ModeImmediate = "immediate"
	ModeDebounced = "debounced"

	ResultOK    = "ok"
	ResultError = "error"
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Timeline
	storeEvents   *prometheus.GaugeVec
	sessionsOpen  prometheus.Gauge
	sessionOps    *prometheus.CounterVec
	binnedEvents  *prometheus.GaugeVec
	selectionSize *prometheus.GaugeVec

	// Persistence
	saves              *prometheus.CounterVec
	saveDuration       prometheus.Histogram
	savesCoalesced     prometheus.Counter
	debounceReschedule prometheus.Counter
	saveQueueDepth     prometheus.Gauge

	// Rendering
	renders        *prometheus.CounterVec
	renderDuration prometheus.Histogram
	renderBytes    prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "matchreel",
		subsystem:        "annotations",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	m.storeEvents = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "store_events",
		Help: "Events held by each timeline store",
	}, []string{"store"})
	m.sessionsOpen = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sessions_open",
		Help: "Annotation sessions currently open",
	})
	m.sessionOps = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "session_operations_total",
		Help: "Editor operations by name and result",
	}, []string{"op", "result"})
	m.binnedEvents = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "binned_events",
		Help: "Soft-deleted events per game",
	}, []string{"game"})
	m.selectionSize = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "selection_size",
		Help: "Selected events per game and flow",
	}, []string{"game", "flow"})

	m.saves = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "saves_total",
		Help: "Full-list saves sent to the Game API by trigger mode and result",
	}, []string{"mode", "result"})
	m.saveDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "save_duration_milliseconds",
		Help:    "Game API save latency in milliseconds",
		Buckets: m.histogramBuckets,
	})
	m.savesCoalesced = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "saves_coalesced_total",
		Help: "Save triggers folded into a round that was already queued",
	})
	m.debounceReschedule = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "debounce_reschedules_total",
		Help: "Padding changes that pushed back a pending autosave",
	})
	m.saveQueueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "save_queue_depth",
		Help: "Save tickets waiting for the next round",
	})

	m.renders = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "renders_total",
		Help: "Clip render dispatches by result",
	}, []string{"result"})
	m.renderDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "render_duration_milliseconds",
		Help:    "Render service latency in milliseconds",
		Buckets: m.histogramBuckets,
	})
	m.renderBytes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "render_bytes_total",
		Help: "Bytes of rendered clips received",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "errors_by_component_total",
		Help: "Errors by component and type",
	}, []string{"component", "error_type"})
	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "errors_by_endpoint_total",
		Help: "HTTP errors by endpoint, method and type",
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "system_memory_usage_bytes",
		Help: "System memory usage in bytes",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "system_goroutine_count",
		Help: "Number of goroutines",
	})
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "system_gc_pause_time_milliseconds",
		Help:    "GC pause time in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// UpdateStoreEvents sets the event count of a timeline store.
func UpdateStoreEvents(store string, count int) {
	globalManager.storeEvents.WithLabelValues(store).Set(float64(count))
}

// DeleteStore drops the gauge series of a closed store.
func DeleteStore(store string) {
	globalManager.storeEvents.DeleteLabelValues(store)
}

// UpdateSessionsOpen sets the number of open sessions.
func UpdateSessionsOpen(count int) {
	globalManager.sessionsOpen.Set(float64(count))
}

// RecordSessionOp counts an editor operation.
func RecordSessionOp(op, result string) {
	globalManager.sessionOps.WithLabelValues(op, result).Inc()
}

// UpdateBinned sets the number of binned events for a game.
func UpdateBinned(game string, count int) {
	globalManager.binnedEvents.WithLabelValues(game).Set(float64(count))
}

// UpdateSelectionSize sets the size of a selection flow for a game.
func UpdateSelectionSize(game, flow string, count int) {
	globalManager.selectionSize.WithLabelValues(game, flow).Set(float64(count))
}

// DeleteGame drops every per-game series.
func DeleteGame(game string) {
	globalManager.binnedEvents.DeleteLabelValues(game)
	globalManager.selectionSize.DeletePartialMatch(prometheus.Labels{"game": game})
}

// RecordSave counts a save round.
func RecordSave(mode, result string) {
	globalManager.saves.WithLabelValues(mode, result).Inc()
}

// RecordSaveDuration records Game API save latency in milliseconds.
func RecordSaveDuration(latencyMs float64) {
	globalManager.saveDuration.Observe(latencyMs)
}

// RecordSaveCoalesced counts a trigger folded into an already queued round.
func RecordSaveCoalesced() {
	globalManager.savesCoalesced.Inc()
}

// RecordDebounceReschedule counts a pushed-back autosave.
func RecordDebounceReschedule() {
	globalManager.debounceReschedule.Inc()
}

// UpdateSaveQueueDepth sets the number of waiting save tickets.
func UpdateSaveQueueDepth(depth int) {
	globalManager.saveQueueDepth.Set(float64(depth))
}

// RecordRender counts a render dispatch.
func RecordRender(result string) {
	globalManager.renders.WithLabelValues(result).Inc()
}

// RecordRenderDuration records render latency in milliseconds.
func RecordRenderDuration(latencyMs float64) {
	globalManager.renderDuration.Observe(latencyMs)
}

// RecordRenderBytes adds the size of a received artifact.
func RecordRenderBytes(n int) {
	globalManager.renderBytes.Add(float64(n))
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent increments the error counter for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint increments the error counter for an HTTP endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage updates system memory usage.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount updates the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
