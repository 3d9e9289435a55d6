package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the blog
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Domain metrics
	PostsCreated  prometheus.Counter
	LoginAttempts *prometheus.CounterVec
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_http_requests_total",
				Help: "Total number of HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quill_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"route", "method"},
		),

		PostsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "quill_posts_created_total",
				Help: "Total number of posts created",
			},
		),

		LoginAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_login_attempts_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
	}

	m.registry.MustRegister(
		m.Requests,
		m.RequestDuration,
		m.PostsCreated,
		m.LoginAttempts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
