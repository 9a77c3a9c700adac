package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "callscore"

// Metrics holds the Prometheus collectors for HTTP and pipeline activity.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestsInProgress prometheus.Gauge
	RequestDuration    *prometheus.HistogramVec

	RunsQueued       prometheus.Counter
	RunsRunning      prometheus.Gauge
	RunsCompleted    *prometheus.CounterVec
	RunsRejected     prometheus.Counter
	EvaluationErrors prometheus.Counter
	DegradedReplies  prometheus.Counter
	StageDuration    *prometheus.HistogramVec
	WeightedScore    prometheus.Histogram

	EventsPublished *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates and registers all collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		RequestsInProgress: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_progress",
			Help:      "HTTP requests currently being served",
		}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),

		RunsQueued: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_queued_total",
			Help:      "Pipeline runs accepted by the worker pool",
		}),
		RunsRunning: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_running",
			Help:      "Pipeline runs currently executing",
		}),
		RunsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Pipeline runs finished by outcome",
		}, []string{"outcome"}),
		RunsRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_rejected_total",
			Help:      "Pipeline runs rejected because the queue was full",
		}),
		EvaluationErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluation_errors_total",
			Help:      "Evaluation calls that failed at the transport level",
		}),
		DegradedReplies: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_replies_total",
			Help:      "Evaluation replies that could not be parsed",
		}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Latency of each pipeline stage",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		WeightedScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weighted_score",
			Help:      "Distribution of recomputed weighted scores",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),

		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Run events published by topic and status",
		}, []string{"topic", "status"}),
	}
}

// ObserveStage records how long a pipeline stage took.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordPublish counts one event publish attempt.
func (m *Metrics) RecordPublish(topic string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.EventsPublished.WithLabelValues(topic, status).Inc()
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.RequestsInProgress.Inc()
			defer m.RequestsInProgress.Dec()

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			route := routePattern(r)
			m.RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(wrapped.statusCode)).Inc()
			m.RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}

// MetricsHandler exposes the default registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// routePattern keeps label cardinality bounded by using the chi pattern.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
