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

// Metrics exposes the service's Prometheus collectors. A nil *Metrics is
// usable everywhere recording happens, so tests can skip wiring it.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests      *prometheus.CounterVec
	HTTPErrors        *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	TicketTransitions *prometheus.CounterVec
	SlaBreaches       prometheus.Counter
	ScanRuns          prometheus.Counter
	ScanDuration      prometheus.Histogram
}

// NewMetrics initializes collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "maintenance_http_requests_total",
			Help: "HTTP requests by path, method and status.",
		}, []string{"path", "method", "status"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "maintenance_http_errors_total",
			Help: "HTTP error responses by path, method and error code.",
		}, []string{"path", "method", "code"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "maintenance_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		TicketTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "maintenance_ticket_transitions_total",
			Help: "Ticket status transitions by edge.",
		}, []string{"from", "to"}),
		SlaBreaches: factory.NewCounter(prometheus.CounterOpts{
			Name: "maintenance_sla_breaches_total",
			Help: "Newly detected SLA resolution breaches.",
		}),
		ScanRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "maintenance_sla_scan_runs_total",
			Help: "Completed SLA scanner passes.",
		}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "maintenance_sla_scan_duration_seconds",
			Help:    "SLA scanner pass duration.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// RecordRequest increments request counters.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.HTTPErrors.WithLabelValues(path, method, code).Inc()
}

// Handler returns the scrape endpoint handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
