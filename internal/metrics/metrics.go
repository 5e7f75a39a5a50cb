package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annotation_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "annotation_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Compositing pipeline metrics
	PipelineJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annotation_pipeline_jobs_total",
			Help: "Total number of compositing pipeline runs",
		},
		[]string{"status"},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "annotation_pipeline_stage_duration_seconds",
			Help:    "Duration of each compositing pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~2.5m
		},
		[]string{"stage"},
	)

	PipelineStageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annotation_pipeline_stage_failures_total",
			Help: "Total number of stage failures by error kind",
		},
		[]string{"stage", "kind"},
	)

	AnnotationsPerJob = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "annotation_pipeline_annotations_per_job",
			Help:    "Number of annotations burned in per compositing run",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
		},
	)

	JobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "annotation_pipeline_jobs_in_progress",
			Help: "Number of compositing runs currently executing",
		},
	)

	// Async queue metrics
	QueueJobsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "annotation_queue_jobs_published_total",
			Help: "Total number of annotation jobs published to the queue",
		},
	)

	QueueJobsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annotation_queue_jobs_consumed_total",
			Help: "Total number of annotation jobs consumed by workers",
		},
		[]string{"status"},
	)

	// Asset metrics
	FetchedAssetBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "annotation_fetched_asset_size_bytes",
			Help:    "Size of fetched source assets in bytes",
			Buckets: prometheus.ExponentialBuckets(1024*1024, 2, 12), // 1MB to 2GB
		},
	)

	PublishedAssetBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "annotation_published_asset_size_bytes",
			Help:    "Size of published composited assets in bytes",
			Buckets: prometheus.ExponentialBuckets(1024*1024, 2, 12),
		},
	)
)
