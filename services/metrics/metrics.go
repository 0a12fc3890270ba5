// Package metrics exposes the app's prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all the app metrics. It is safe for concurrent use.
type Registry struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	AnswersGradedTotal   *prometheus.CounterVec
	ConnectionOpsTotal   *prometheus.CounterVec
	ConnectAttemptsTotal *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cyberlab_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	r.HTTPRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cyberlab_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	r.HTTPRequestsInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cyberlab_http_requests_in_flight",
			Help: "Number of HTTP requests being served",
		},
	)

	r.AnswersGradedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cyberlab_answers_graded_total",
			Help: "Total number of graded answers",
		},
		[]string{"verdict", "stage"}, // verdict: correct, incorrect
	)
	r.ConnectionOpsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cyberlab_connection_operations_total",
			Help: "Total number of lab connection mutations",
		},
		[]string{"operation"}, // create, toggle, delete
	)
	r.ConnectAttemptsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cyberlab_device_connect_attempts_total",
			Help: "Total number of student device connect attempts",
		},
		[]string{"outcome"}, // allowed, no_session, unreachable, no_url
	)
	return r
}

// Handler serves the metrics in the prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Gatherer is used by tests to read metric values.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

func (r *Registry) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusStr := strconv.Itoa(status)
	r.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, statusStr).Observe(duration.Seconds())
}

func (r *Registry) RecordAnswerGraded(correct bool, stage string) {
	verdict := "incorrect"
	if correct {
		verdict = "correct"
	}
	r.AnswersGradedTotal.WithLabelValues(verdict, stage).Inc()
}

func (r *Registry) RecordConnectionOp(op string) {
	r.ConnectionOpsTotal.WithLabelValues(op).Inc()
}

func (r *Registry) RecordConnectAttempt(outcome string) {
	r.ConnectAttemptsTotal.WithLabelValues(outcome).Inc()
}
