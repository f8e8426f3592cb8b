package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the Prometheus collectors exported on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// flow: register | login | password_reset; outcome: success | <error class>
	AuthAttemptsTotal *prometheus.CounterVec
	RateLimitDenied   *prometheus.CounterVec
	RateLimitSwept    *prometheus.CounterVec
	ResetDelivery     *prometheus.CounterVec
}

// New creates and registers all collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokequest_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pokequest_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokequest_auth_attempts_total",
				Help: "Authentication flow attempts by outcome",
			},
			[]string{"flow", "outcome"},
		),
		RateLimitDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokequest_ratelimit_denied_total",
				Help: "Requests rejected by a rate limiter",
			},
			[]string{"limiter"},
		),
		RateLimitSwept: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokequest_ratelimit_swept_total",
				Help: "Expired rate limit records removed by the sweep",
			},
			[]string{"limiter"},
		),
		ResetDelivery: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokequest_password_reset_delivery_total",
				Help: "Password reset email delivery by result",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthAttemptsTotal,
		m.RateLimitDenied,
		m.RateLimitSwept,
		m.ResetDelivery,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// AuthOutcome is nil-safe so services can run without metrics in tests.
func (m *Metrics) AuthOutcome(flow, outcome string) {
	if m == nil {
		return
	}
	m.AuthAttemptsTotal.WithLabelValues(flow, outcome).Inc()
}

func (m *Metrics) Denied(limiter string) {
	if m == nil {
		return
	}
	m.RateLimitDenied.WithLabelValues(limiter).Inc()
}

func (m *Metrics) Swept(limiter string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RateLimitSwept.WithLabelValues(limiter).Add(float64(n))
}

func (m *Metrics) Delivery(result string) {
	if m == nil {
		return
	}
	m.ResetDelivery.WithLabelValues(result).Inc()
}
