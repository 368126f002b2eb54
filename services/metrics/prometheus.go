// Package metricsvc collects the Prometheus metrics of the API.
package metricsvc

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records the API metrics into its own registry.
type Collector struct {
	registry        *prometheus.Registry
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	sessionsCreated prometheus.Counter
	feedbackCreated *prometheus.CounterVec
	aiRequests      *prometheus.CounterVec
}

// NewCollector creates a Collector. With `withRuntime`, Go runtime and process metrics are exported too.
func NewCollector(withRuntime bool) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studypal_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studypal_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studypal_study_sessions_created_total",
			Help: "Study sessions logged.",
		}),
		feedbackCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studypal_feedback_created_total",
			Help: "Feedback received by priority.",
		}, []string{"priority"}),
		aiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studypal_ai_requests_total",
			Help: "AI assistant requests by kind (chat, study_plan) and outcome (ok, error).",
		}, []string{"kind", "outcome"}),
	}

	c.registry.MustRegister(c.httpRequests, c.httpDuration, c.sessionsCreated, c.feedbackCreated, c.aiRequests)
	if withRuntime {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return c
}

func (c *Collector) RecordRequest(method, route string, status int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (c *Collector) RecordSessionCreated() {
	c.sessionsCreated.Inc()
}

func (c *Collector) RecordFeedback(priority string) {
	c.feedbackCreated.WithLabelValues(priority).Inc()
}

func (c *Collector) RecordAI(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.aiRequests.WithLabelValues(kind, outcome).Inc()
}

// Handler serves the metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry, mostly for tests.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}
