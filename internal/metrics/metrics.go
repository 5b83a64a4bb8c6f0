package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "How many HTTP requests processed, partitioned by status code and HTTP method",
	}, []string{"code", "method", "url"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "http_request_duration_seconds",
		Help: "The HTTP request latencies in seconds",
	}, []string{"code", "method", "url"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Intercepted shell requests, partitioned by policy and how they were served",
	}, []string{"policy", "result"})

	CacheWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_write_failures_total",
		Help: "Cache writes that failed and were swallowed",
	})

	UploadOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upload_outcomes_total",
		Help: "Upstream analysis calls, partitioned by outcome",
	}, []string{"outcome"})

	UploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "upload_duration_seconds",
		Help:    "Latency of upstream analysis calls",
		Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
	})

	PreprocessResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "preprocess_total",
		Help: "Image preprocessing runs, partitioned by result (encoded or passthrough)",
	}, []string{"result"})
)

// RegisterQueueDepth exposes the event queue depth. It is registered at
// runtime because the queue is optional.
func RegisterQueueDepth(depth func() float64) error {
	return prometheus.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "analysis_queue_depth",
		Help: "Analysis events waiting to be recorded, -1 when the queue cannot be inspected",
	}, depth))
}
