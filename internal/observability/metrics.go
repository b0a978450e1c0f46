package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce         sync.Once
	apiRequestsTotal     *prometheus.CounterVec
	apiLatencySeconds    *prometheus.HistogramVec
	apiErrorsTotal       *prometheus.CounterVec
	gradeEventsTotal     *prometheus.CounterVec
	liveFeedClients      prometheus.Gauge
	gradeCacheLookups    *prometheus.CounterVec
	progressCacheLookups *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grader_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 15.0, 30.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		gradeEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_grade_events_total",
			Help: "Grade events delivered to live feed subscribers, by origin.",
		}, []string{"origin"})

		liveFeedClients = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "grader_live_feed_clients",
			Help: "Number of connected live grade feed clients.",
		})

		gradeCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_grade_cache_lookups_total",
			Help: "Rubric result cache lookups by outcome.",
		}, []string{"outcome"})

		progressCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_progress_cache_lookups_total",
			Help: "Student progress cache lookups by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			gradeEventsTotal,
			liveFeedClients,
			gradeCacheLookups,
			progressCacheLookups,
		)
	})
}

// MetricsHandler serves the default registry, which also holds the embedding and
// evaluator collectors. A failing collector does not hide the others.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	}))
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// GradeEvents exposes the counter for delivered grade events.
func GradeEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return gradeEventsTotal
}

// LiveFeedClients exposes the gauge of connected live feed clients.
func LiveFeedClients() prometheus.Gauge {
	RegisterMetrics()
	return liveFeedClients
}

// GradeCacheLookups exposes the rubric result cache counter.
func GradeCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return gradeCacheLookups
}

// ProgressCacheLookups exposes the progress cache counter.
func ProgressCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return progressCacheLookups
}
