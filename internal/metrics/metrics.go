// Package metrics exposes the service's prometheus collectors.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "solution_builder"

// Default buckets
var (
	DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultSaveDurationBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
)

// Metrics holds all application metrics
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SessionsActive      prometheus.Gauge
	SessionsExpired     prometheus.Counter
	WizardEventsTotal   *prometheus.CounterVec
	SavesTotal          *prometheus.CounterVec
	SaveDuration        *prometheus.HistogramVec
}

// New registers all metrics on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "route", "status_code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration",
			Buckets:   DefaultHTTPDurationBuckets,
		}, []string{"method", "route"}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Wizard sessions currently held in memory",
		}),
		SessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_expired_total",
			Help:      "Wizard sessions removed by the cleaner",
		}),
		WizardEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wizard_events_total",
			Help:      "Wizard events applied",
		}, []string{"type", "result"}),
		SavesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Client solution saves",
		}, []string{"mode", "result"}),
		SaveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "save_duration_seconds",
			Help:      "Client solution save duration",
			Buckets:   DefaultSaveDurationBuckets,
		}, []string{"mode"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SessionsActive,
		m.SessionsExpired,
		m.WizardEventsTotal,
		m.SavesTotal,
		m.SaveDuration,
	)

	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records a served request
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// SetActiveSessions records the number of live sessions
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(n))
}

// SessionExpired counts a session removed by the cleaner
func (m *Metrics) SessionExpired() {
	if m == nil {
		return
	}
	m.SessionsExpired.Inc()
}

// WizardEvent counts an applied wizard event
func (m *Metrics) WizardEvent(eventType string, err error) {
	if m == nil {
		return
	}
	m.WizardEventsTotal.WithLabelValues(eventType, result(err)).Inc()
}

// Save records a save attempt
func (m *Metrics) Save(mode string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.SavesTotal.WithLabelValues(mode, result(err)).Inc()
	m.SaveDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
