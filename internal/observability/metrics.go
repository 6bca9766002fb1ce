package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	workflowStagesTotal   *prometheus.CounterVec
	workflowStageDuration *prometheus.HistogramVec
	promptCacheTotal      *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "essay_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "essay_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "essay_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		workflowStagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "essay_workflow_stage_total",
			Help: "Grading workflow stage executions by outcome.",
		}, []string{"stage", "outcome"})

		workflowStageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "essay_workflow_stage_duration_seconds",
			Help:    "Duration of grading workflow stages including model calls.",
			Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"stage"})

		promptCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "essay_prompt_cache_total",
			Help: "Default prompt cache lookups by result.",
		}, []string{"result"})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, workflowStagesTotal, workflowStageDuration, promptCacheTotal)
	})
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

// WorkflowStages counts workflow stage outcomes.
func WorkflowStages() *prometheus.CounterVec {
	RegisterMetrics()
	return workflowStagesTotal
}

// WorkflowStageDuration observes workflow stage latency.
func WorkflowStageDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return workflowStageDuration
}

// PromptCache counts default prompt cache hits and misses.
func PromptCache() *prometheus.CounterVec {
	RegisterMetrics()
	return promptCacheTotal
}

// MetricsHandler serves the Prometheus scrape endpoint through fiber.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
}
