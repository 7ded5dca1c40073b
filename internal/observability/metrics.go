package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	apiRequestsTotal        *prometheus.CounterVec
	apiLatencySeconds       *prometheus.HistogramVec
	apiErrorsTotal          *prometheus.CounterVec
	screeningOutcomesTotal  *prometheus.CounterVec
	screeningPipelineSecond *prometheus.HistogramVec
	eventPublishFailures    *prometheus.CounterVec
	reportCacheTotal        *prometheus.CounterVec
	imageRejectedTotal      *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors shared by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pcos_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pcos_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pcos_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		screeningOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pcos_screening_outcomes_total",
			Help: "Screening pipeline results by variant and stage reached.",
		}, []string{"variant", "outcome"})

		screeningPipelineSecond = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pcos_screening_pipeline_seconds",
			Help:    "End to end duration of the screening pipeline.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"variant"})

		eventPublishFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pcos_event_publish_failures_total",
			Help: "Domain events that could not be published.",
		}, []string{"subject"})

		reportCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pcos_report_cache_total",
			Help: "Report cache lookups by result.",
		}, []string{"result"})

		imageRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pcos_image_uploads_rejected_total",
			Help: "Ultrasound uploads rejected before inference.",
		}, []string{"reason"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			screeningOutcomesTotal,
			screeningPipelineSecond,
			eventPublishFailures,
			reportCacheTotal,
			imageRejectedTotal,
		)
	})
}

// APIRequests exposes the request counter.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the request latency histogram.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the error response counter.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// ScreeningOutcomes counts pipeline runs by variant and outcome.
func ScreeningOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return screeningOutcomesTotal
}

// ScreeningPipelineDuration observes full pipeline durations.
func ScreeningPipelineDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return screeningPipelineSecond
}

// EventPublishFailures counts events dropped by the publisher.
func EventPublishFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return eventPublishFailures
}

// ReportCache counts report cache hits and misses.
func ReportCache() *prometheus.CounterVec {
	RegisterMetrics()
	return reportCacheTotal
}

// ImageUploadsRejected counts refused ultrasound uploads by reason.
func ImageUploadsRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return imageRejectedTotal
}
