package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "regit"

// Metrics holds the application collectors on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	decisions       *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	auditDropped    prometheus.Counter
}

// NewMetrics creates the collectors and registers them with a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorization_decisions_total",
			Help:      "Authorization decisions by operation and outcome.",
		}, []string{"operation", "decision"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		auditDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_events_dropped_total",
			Help:      "Audit events dropped because the buffer was full.",
		}),
	}
}

// RecordDecision counts one authorization decision. Safe on nil.
func (m *Metrics) RecordDecision(operation, decision string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(operation, decision).Inc()
}

// RecordRequest counts one HTTP request and observes its latency. Safe on nil.
func (m *Metrics) RecordRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordAuditDropped counts an audit event lost to back-pressure. Safe on nil.
func (m *Metrics) RecordAuditDropped() {
	if m == nil {
		return
	}
	m.auditDropped.Inc()
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
