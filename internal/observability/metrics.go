package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors of the bot on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	errors      *prometheus.CounterVec
	transitions *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
	degraded    *prometheus.CounterVec
}

// NewMetrics registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketbot_http_requests_total",
			Help: "HTTP requests served by path, method and status",
		}, []string{"path", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ticketbot_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketbot_errors_total",
			Help: "Errors surfaced to callers by origin and code",
		}, []string{"origin", "code"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketbot_ticket_transitions_total",
			Help: "Ticket lifecycle transitions by event and ticket type",
		}, []string{"event", "type"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketbot_ticket_conflicts_total",
			Help: "Operations lost to a concurrent trigger, by operation",
		}, []string{"operation"}),
		degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketbot_transcript_degraded_total",
			Help: "Best-effort transcript steps that failed, by stage",
		}, []string{"stage"}),
	}
	m.registry.MustRegister(m.requests, m.latency, m.errors, m.transitions, m.conflicts, m.degraded)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(origin, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(origin, code).Inc()
}

// RecordTransition counts a successful lifecycle transition.
func (m *Metrics) RecordTransition(event, ticketType string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(event, ticketType).Inc()
}

// RecordConflict counts an operation that lost a race.
func (m *Metrics) RecordConflict(operation string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(operation).Inc()
}

// RecordDegraded counts a best-effort transcript failure.
func (m *Metrics) RecordDegraded(stage string) {
	if m == nil {
		return
	}
	m.degraded.WithLabelValues(stage).Inc()
}
