package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors shared across the application.
type Metrics struct {
	AuthOperations  *prometheus.CounterVec
	AuthDuration    *prometheus.HistogramVec
	SessionState    *prometheus.CounterVec
	ProfilesCreated prometheus.Counter
	ActiveSessions  prometheus.Gauge
	ChatStreams     *prometheus.CounterVec
	ChatChunks      prometheus.Counter
	HTTPLatency     *prometheus.HistogramVec
	AuditDropped    *prometheus.CounterVec
	AuditBreaker    *prometheus.GaugeVec
	RateLimited     *prometheus.CounterVec
}

// New creates and registers all collectors on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers collectors on reg. Tests pass a fresh registry to avoid
// duplicate registration panics.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AuthOperations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_auth_operations_total",
			Help: "Session coordinator operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		AuthDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_auth_operation_duration_seconds",
			Help:    "Latency of session coordinator operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		SessionState: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_session_transitions_total",
			Help: "Session state transitions by target state",
		}, []string{"state"}),
		ProfilesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "portal_profiles_created_total",
			Help: "Profile documents created",
		}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "portal_active_coordinators",
			Help: "Live per-client session coordinators",
		}),
		ChatStreams: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_chat_streams_total",
			Help: "Chat stream requests by outcome",
		}, []string{"outcome"}),
		ChatChunks: f.NewCounter(prometheus.CounterOpts{
			Name: "portal_chat_chunks_total",
			Help: "Text chunks streamed to chat clients",
		}),
		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		AuditDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_audit_dropped_total",
			Help: "Audit events a sink skipped because its circuit breaker was open",
		}, []string{"sink"}),
		AuditBreaker: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "portal_audit_breaker_open",
			Help: "Audit sink circuit breaker state (0=closed, 1=open)",
		}, []string{"sink"}),
		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_rate_limited_total",
			Help: "Requests rejected by the per-IP rate limiter",
		}, []string{"class"}),
	}
}

// ObserveAuth records one coordinator operation.
func (m *Metrics) ObserveAuth(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AuthOperations.WithLabelValues(operation, outcome).Inc()
	m.AuthDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveTransition counts a session state transition.
func (m *Metrics) ObserveTransition(state string) {
	if m == nil {
		return
	}
	m.SessionState.WithLabelValues(state).Inc()
}

// IncrementProfilesCreated increments the profile counter by 1.
func (m *Metrics) IncrementProfilesCreated() {
	if m == nil {
		return
	}
	m.ProfilesCreated.Inc()
}

// SetActiveSessions reports the number of live coordinators.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

// ObserveChatStream counts a chat request by outcome and the chunks it streamed.
func (m *Metrics) ObserveChatStream(outcome string, chunks int) {
	if m == nil {
		return
	}
	m.ChatStreams.WithLabelValues(outcome).Inc()
	m.ChatChunks.Add(float64(chunks))
}

// IncAuditDropped counts an event skipped by an open breaker.
func (m *Metrics) IncAuditDropped(sink string) {
	if m == nil {
		return
	}
	m.AuditDropped.WithLabelValues(sink).Inc()
}

func (m *Metrics) SetAuditBreakerOpen(sink string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.AuditBreaker.WithLabelValues(sink).Set(v)
}

func (m *Metrics) IncRateLimited(class string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(class).Inc()
}
