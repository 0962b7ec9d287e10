// Package metrics exposes Prometheus collectors for dataset writes,
// persistence, imports, suggestions and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "okrboard"

// Metrics owns a private registry so several instances can coexist in tests.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	writesTotal        *prometheus.CounterVec
	writeDuration      *prometheus.HistogramVec
	persistFailures    *prometheus.CounterVec
	versionOps         *prometheus.CounterVec
	importsTotal       *prometheus.CounterVec
	suggestionRequests *prometheus.CounterVec
	breakerState       *prometheus.GaugeVec
	activeSessions     prometheus.Gauge
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		writesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_writes_total",
			Help:      "Dataset mutations by action and outcome.",
		}, []string{"action", "status"}),
		writeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_write_duration_seconds",
			Help:      "Time spent applying a mutation and recomputing progress.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"action"}),
		persistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Persistence calls that returned an error.",
		}, []string{"operation"}),
		versionOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "version_operations_total",
			Help:      "Version saves and deletes by outcome.",
		}, []string{"operation", "status"}),
		importsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Spreadsheet imports by mode and outcome.",
		}, []string{"mode", "status"}),
		suggestionRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestion_requests_total",
			Help:      "Text generation requests by kind and outcome.",
		}, []string{"kind", "status"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}, []string{"name"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Signed-in tenant sessions currently open.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		m.writesTotal,
		m.writeDuration,
		m.persistFailures,
		m.versionOps,
		m.importsTotal,
		m.suggestionRequests,
		m.breakerState,
		m.activeSessions,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordWrite(action string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.writesTotal.WithLabelValues(action, status(err)).Inc()
	m.writeDuration.WithLabelValues(action).Observe(d.Seconds())
}

func (m *Metrics) RecordPersistFailure(operation string) {
	if m == nil {
		return
	}
	m.persistFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) RecordVersionOp(operation string, err error) {
	if m == nil {
		return
	}
	m.versionOps.WithLabelValues(operation, status(err)).Inc()
}

func (m *Metrics) RecordImport(mode string, err error) {
	if m == nil {
		return
	}
	m.importsTotal.WithLabelValues(mode, status(err)).Inc()
}

func (m *Metrics) RecordSuggestion(kind string, err error) {
	if m == nil {
		return
	}
	m.suggestionRequests.WithLabelValues(kind, status(err)).Inc()
}

// SetBreakerState records a circuit breaker transition.
func (m *Metrics) SetBreakerState(name string, state float64) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(state)
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

func (m *Metrics) RecordHTTP(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
