// Package metrics exposes Prometheus counters for ticket issuance,
// registrations and notifications, served at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultOK          = "ok"
	ResultNotFound    = "not_found"
	ResultAlreadyUsed = "already_used"
	ResultInvalid     = "invalid"
	ResultError       = "error"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	reg *prometheus.Registry

	TicketsIssued   prometheus.Counter
	EventsCreated   prometheus.Counter
	Registrations   *prometheus.CounterVec
	Notifications   *prometheus.CounterVec
	ArtifactCleanup *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		TicketsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickets_issued_total",
			Help: "Tickets minted by event creation and quota increases.",
		}),
		EventsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "events_created_total",
			Help: "Events created.",
		}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "registrations_total",
			Help: "Ticket claim attempts by result.",
		}, []string{"result"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Registration confirmations by result.",
		}, []string{"result"}),
		ArtifactCleanup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artifact_cleanup_total",
			Help: "Best-effort artifact removals by result.",
		}, []string{"result"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.TicketsIssued, m.EventsCreated, m.Registrations,
		m.Notifications, m.ArtifactCleanup, m.HTTPDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Result returns ResultOK for nil and ResultError otherwise.
func Result(err error) string {
	if err == nil {
		return ResultOK
	}
	return ResultError
}

// Registry exposes the underlying registry for gathering in tests and
// custom exporters.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }
