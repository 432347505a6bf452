package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the authorization engine
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization decision metrics
	DecisionsTotal   *prometheus.CounterVec
	DecisionDuration *prometheus.HistogramVec

	// Invitation lifecycle metrics
	InvitationsTotal *prometheus.CounterVec

	// Storage metrics
	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec
	StorageErrorsTotal       *prometheus.CounterVec

	// Audit sink metrics
	AuditEventsTotal         *prometheus.CounterVec
	AuditAppendFailuresTotal prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "canopy_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_authz_decisions_total",
				Help: "Authorization decisions by request kind, outcome and reason",
			},
			[]string{"kind", "outcome", "reason"},
		),
		DecisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "canopy_authz_decision_duration_seconds",
				Help:    "Authorization decision evaluation time in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"kind"},
		),

		InvitationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_invitations_total",
				Help: "Invitation lifecycle events by transition",
			},
			[]string{"transition"},
		),

		StorageOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_storage_operations_total",
				Help: "Total storage operations by store and operation",
			},
			[]string{"store", "operation"},
		),
		StorageOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "canopy_storage_operation_duration_seconds",
				Help:    "Storage operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"store", "operation"},
		),
		StorageErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_storage_errors_total",
				Help: "Total storage errors by store and operation",
			},
			[]string{"store", "operation"},
		),

		AuditEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_audit_events_total",
				Help: "Audit events appended by event type and status",
			},
			[]string{"event_type", "status"},
		),
		AuditAppendFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "canopy_audit_append_failures_total",
				Help: "Audit events that could not be appended to any sink",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DecisionsTotal,
		m.DecisionDuration,
		m.InvitationsTotal,
		m.StorageOperationsTotal,
		m.StorageOperationDuration,
		m.StorageErrorsTotal,
		m.AuditEventsTotal,
		m.AuditAppendFailuresTotal,
	)

	return m
}

// ObserveDecision records one authorization decision.
func (m *Metrics) ObserveDecision(kind string, allowed bool, reason string, duration time.Duration) {
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	m.DecisionsTotal.WithLabelValues(kind, outcome, reason).Inc()
	m.DecisionDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveStorageOperation records one storage call. A nil err means the call
// succeeded; lookup misses are not storage errors and must be passed as nil.
func (m *Metrics) ObserveStorageOperation(store, operation string, duration time.Duration, err error) {
	m.StorageOperationsTotal.WithLabelValues(store, operation).Inc()
	m.StorageOperationDuration.WithLabelValues(store, operation).Observe(duration.Seconds())
	if err != nil {
		m.StorageErrorsTotal.WithLabelValues(store, operation).Inc()
	}
}

// ObserveHTTPRequest records one HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
