package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	apiRequestsTotal  *prometheus.CounterVec
	apiLatencySeconds *prometheus.HistogramVec
	apiErrorsTotal    *prometheus.CounterVec

	pipelineRunsTotal    *prometheus.CounterVec
	pipelineStageSeconds *prometheus.HistogramVec
	ocrRequestsTotal     *prometheus.CounterVec
	ocrCacheTotal        *prometheus.CounterVec

	uploadRequestsTotal *prometheus.CounterVec
	uploadRejectedTotal *prometheus.CounterVec
	dispatchTotal       *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API and the evaluation pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		pipelineRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluation_pipeline_runs_total",
			Help: "Answer-sheet evaluation runs by outcome.",
		}, []string{"outcome"})

		pipelineStageSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "evaluation_pipeline_stage_seconds",
			Help:    "Duration of each evaluation pipeline stage.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"stage"})

		ocrRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluation_text_acquisitions_total",
			Help: "Text acquisitions by document role and strategy.",
		}, []string{"role", "strategy"})

		ocrCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluation_ocr_cache_total",
			Help: "OCR cache lookups by result.",
		}, []string{"result"})

		uploadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submission_uploads_total",
			Help: "Accepted submission uploads by document role and MIME type.",
		}, []string{"role", "mime"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submission_uploads_rejected_total",
			Help: "Rejected submission uploads by reason.",
		}, []string{"reason"})

		dispatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluation_dispatch_total",
			Help: "Asynchronous evaluation dispatches by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			pipelineRunsTotal, pipelineStageSeconds, ocrRequestsTotal, ocrCacheTotal,
			uploadRequestsTotal, uploadRejectedTotal, dispatchTotal,
		)
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

// PipelineRuns counts pipeline runs by outcome.
func PipelineRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return pipelineRunsTotal
}

// PipelineStageDuration observes per-stage latency.
func PipelineStageDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return pipelineStageSeconds
}

// TextAcquisitions counts acquisitions per strategy.
func TextAcquisitions() *prometheus.CounterVec {
	RegisterMetrics()
	return ocrRequestsTotal
}

// OCRCache counts cache hits and misses.
func OCRCache() *prometheus.CounterVec {
	RegisterMetrics()
	return ocrCacheTotal
}

// UploadRequests counts accepted uploads.
func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequestsTotal
}

// UploadRejected counts rejected uploads.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// Dispatches counts asynchronous evaluation dispatches.
func Dispatches() *prometheus.CounterVec {
	RegisterMetrics()
	return dispatchTotal
}
