package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Calculations       *prometheus.CounterVec
	ValidationFailures prometheus.Counter
	ScenariosSaved     prometheus.Counter
	ReportsRendered    *prometheus.CounterVec
	RateLimited        prometheus.Counter
	RequestDuration    *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers the collectors on reg. Pass prometheus.NewRegistry()
// in tests to keep them isolated.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Calculations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "roi_calculations_total",
			Help: "Calculations performed, by outcome",
		}, []string{"outcome"}),
		ValidationFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "roi_validation_failures_total",
			Help: "Requests rejected by input validation",
		}),
		ScenariosSaved: f.NewCounter(prometheus.CounterOpts{
			Name: "roi_scenarios_saved_total",
			Help: "Scenarios created or replaced",
		}),
		ReportsRendered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "roi_reports_rendered_total",
			Help: "Reports rendered, by outcome",
		}, []string{"outcome"}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "roi_rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter",
		}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roi_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		gatherer: reg,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.RequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
