// Package metrics exposes Prometheus instruments for the HTTP API, the alert
// scanner and sale mutations. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bountytracker"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	alerts       *prometheus.GaugeVec
	alertAmount  *prometheus.GaugeVec
	diagnostics  *prometheus.CounterVec
	scans        *prometheus.CounterVec
	mutations    *prometheus.CounterVec
	publishes    *prometheus.CounterVec
	exports      *prometheus.CounterVec
	rateLimited  prometheus.Counter
}

// New builds a private registry with the process and Go collectors plus
// the application instruments.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 7},
		}, []string{"method", "route"}),
		alerts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alerts",
			Help:      "Bounty alerts in the last scan by status.",
		}, []string{"status"}),
		alertAmount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unpaid_bounty_amount",
			Help:      "Unpaid bounty amount by due bucket (overdue, soon_due).",
		}, []string{"bucket"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_diagnostics_total",
			Help:      "Sales skipped by the alert classifier, by reason.",
		}, []string{"kind"}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_scans_total",
			Help:      "Alert scans by result.",
		}, []string{"result"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_mutations_total",
			Help:      "Successful sale mutations by operation.",
		}, []string{"operation"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "AMQP publishes by message kind and result.",
		}, []string{"kind", "result"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheet_exports_total",
			Help:      "Export snapshot writes by result.",
		}, []string{"result"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Mutating requests rejected by the rate limiter.",
		}),
	}

	reg.MustRegister(
		m.httpRequests, m.httpDuration,
		m.alerts, m.alertAmount, m.diagnostics, m.scans,
		m.mutations, m.publishes, m.exports, m.rateLimited,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the exposition format for GET /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTP matches trace.Observer.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// SetAlertCounts replaces the per-status alert gauges.
func (m *Metrics) SetAlertCounts(counts map[string]int) {
	if m == nil {
		return
	}
	m.alerts.Reset()
	for status, n := range counts {
		m.alerts.WithLabelValues(status).Set(float64(n))
	}
}

// SetUnpaidAmount records the unpaid total of a due bucket in currency units.
func (m *Metrics) SetUnpaidAmount(bucket string, amount float64) {
	if m == nil {
		return
	}
	m.alertAmount.WithLabelValues(bucket).Set(amount)
}

func (m *Metrics) AddDiagnostics(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.diagnostics.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) RecordScan(err error) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) RecordMutation(operation string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(operation).Inc()
}

func (m *Metrics) RecordPublish(kind string, err error) {
	if m == nil {
		return
	}
	m.publishes.WithLabelValues(kind, result(err)).Inc()
}

func (m *Metrics) RecordExport(err error) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
