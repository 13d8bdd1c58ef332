// Package telemetry exposes Prometheus collectors for the deal engine.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "deal_engine"

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry           *prometheus.Registry
	valuations         *prometheus.CounterVec
	analyses           *prometheus.CounterVec
	collaboratorErrors *prometheus.CounterVec
	scenarioOps        *prometheus.CounterVec
	analysisDuration   prometheus.Histogram
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// NewMetrics registers the collectors on a private registry so several
// servers can coexist in one process.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		valuations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "valuations_total",
			Help:      "Valuation computations by driver and outcome.",
		}, []string{"driver", "outcome"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Opportunity analyses by outcome.",
		}, []string{"outcome"}),
		collaboratorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_errors_total",
			Help:      "Failed collaborator calls by fault kind.",
		}, []string{"kind"}),
		scenarioOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenario_operations_total",
			Help:      "Scenario list, save and delete operations by outcome.",
		}, []string{"op", "outcome"}),
		analysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Histogram of opportunity analysis durations.",
			Buckets:   prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.valuations,
		m.analyses,
		m.collaboratorErrors,
		m.scenarioOps,
		m.analysisDuration,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}

func (m *Metrics) Valuation(driver string, ok bool) {
	if m == nil {
		return
	}
	m.valuations.WithLabelValues(driver, outcome(ok)).Inc()
}

func (m *Metrics) Analysis(d time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(outcome(ok)).Inc()
	m.analysisDuration.Observe(d.Seconds())
}

func (m *Metrics) CollaboratorError(kind string) {
	if m == nil {
		return
	}
	m.collaboratorErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) ScenarioOp(op string, ok bool) {
	if m == nil {
		return
	}
	m.scenarioOps.WithLabelValues(op, outcome(ok)).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler counts and times requests to route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		m.httpRequests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
