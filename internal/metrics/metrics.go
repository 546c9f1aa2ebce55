// Package metrics exposes Prometheus collectors for provider calls, routes, alerts and embeddings.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	providerRequestsTotal      *prometheus.CounterVec
	providerRequestDuration    *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	alertsSentTotal            *prometheus.CounterVec
	tweetsEmbeddedTotal        prometheus.Counter
	jobRunsTotal               *prometheus.CounterVec

	once sync.Once
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		providerRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_requests_total",
				Help: "Outbound provider API calls, labeled by provider and status code.",
			},
			[]string{"provider", "code"},
		)

		providerRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "provider_request_duration_seconds",
				Help:    "Latency of outbound provider API calls.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"provider"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Inbound HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Inbound HTTP latency, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30},
			},
			[]string{"method", "route"},
		)

		alertsSentTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alerts_sent_total",
				Help: "Token alerts delivered, labeled by alert type.",
			},
			[]string{"type"},
		)

		tweetsEmbeddedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tweets_embedded_total",
				Help: "Tweets embedded and stored in the vector index.",
			},
		)

		jobRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "job_runs_total",
				Help: "Scheduled job runs, labeled by job and status.",
			},
			[]string{"job", "status"},
		)
	})
}

// Handler returns the promhttp handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveProvider records one outbound call. code is 0 for transport failures.
func ObserveProvider(provider string, code int, duration time.Duration) {
	if providerRequestsTotal == nil {
		return
	}
	providerRequestsTotal.WithLabelValues(provider, strconv.Itoa(code)).Inc()
	providerRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

func ObserveAlert(alertType string) {
	if alertsSentTotal == nil {
		return
	}
	alertsSentTotal.WithLabelValues(alertType).Inc()
}

func AddTweetsEmbedded(n int) {
	if tweetsEmbeddedTotal == nil || n <= 0 {
		return
	}
	tweetsEmbeddedTotal.Add(float64(n))
}

// ObserveJob counts a job run; status is "ok" or "error".
func ObserveJob(job string, err error) {
	if jobRunsTotal == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	jobRunsTotal.WithLabelValues(job, status).Inc()
}

// Middleware is a chi middleware that records inbound request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		ObserveHTTPRequest(r.Method, route, ww.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
