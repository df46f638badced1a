package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics captures Prometheus collectors for the services.
type Metrics struct {
	// HTTP API surface.
	HTTPRequestTotal           *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec
	HTTPRequestNon2xxTotal     *prometheus.CounterVec
	LinkCreateSuccess          prometheus.Counter
	LinkCreateFailure          prometheus.Counter
	LinkListSuccess            prometheus.Counter
	LinkListFailure            prometheus.Counter
	UploadSuccess              prometheus.Counter
	UploadRejected             prometheus.Counter
	UploadFailure              prometheus.Counter
	ReadinessFailure           prometheus.Counter

	// Ingestion worker surface.
	JobsProcessed  prometheus.Counter
	JobsFailed     prometheus.Counter
	PersistLatency prometheus.Histogram

	// Extraction pipeline.
	FetchLatency        prometheus.Histogram
	FetchAttempts       prometheus.Histogram
	ParseLatency        prometheus.Histogram
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
	ExtractionsDegraded *prometheus.CounterVec
	FileParses          *prometheus.CounterVec

	// Language detection.
	LangDetect       *prometheus.CounterVec
	LangDetectErrors prometheus.Counter
}

// NewMetrics registers service metrics.
func NewMetrics() *Metrics {
	const namespace = "readitlater"
	return &Metrics{
		HTTPRequestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		HTTPRequestDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "code"}),
		HTTPRequestNon2xxTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_non_2xx_total",
			Help:      "Number of HTTP requests that returned a non-2xx status.",
		}, []string{"route", "code"}),
		LinkCreateSuccess: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_create_success_total",
			Help:      "Number of links stored successfully.",
		}),
		LinkCreateFailure: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_create_failure_total",
			Help:      "Number of link submissions that failed.",
		}),
		LinkListSuccess: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_list_success_total",
			Help:      "Number of successful link listings.",
		}),
		LinkListFailure: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_list_failure_total",
			Help:      "Number of failed link listings.",
		}),
		UploadSuccess: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_success_total",
			Help:      "Number of document uploads ingested successfully.",
		}),
		UploadRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_rejected_total",
			Help:      "Number of uploads rejected by the file-type gate.",
		}),
		UploadFailure: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_failure_total",
			Help:      "Number of uploads that failed after passing the gate.",
		}),
		ReadinessFailure: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readiness_failure_total",
			Help:      "Number of failed readiness checks.",
		}),
		JobsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_processed_total",
			Help:      "Number of link ingestion jobs successfully processed.",
		}),
		JobsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_failed_total",
			Help:      "Number of link ingestion jobs that failed.",
		}),
		PersistLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "persist_duration_seconds",
			Help:      "Time spent storing extraction results.",
			Buckets:   prometheus.DefBuckets,
		}),
		FetchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time spent fetching URLs, including retries.",
			Buckets:   prometheus.DefBuckets,
		}),
		FetchAttempts: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_attempts",
			Help:      "HTTP attempts made per fetch call.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
		ParseLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_duration_seconds",
			Help:      "Time spent parsing fetched or uploaded content.",
			Buckets:   prometheus.DefBuckets,
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_cache_hits_total",
			Help:      "Number of extractions served from the result cache.",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_cache_misses_total",
			Help:      "Number of extractions that bypassed or missed the cache.",
		}),
		ExtractionsDegraded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_degraded_total",
			Help:      "Number of extractions that fell back to minimal metadata, by stage.",
		}, []string{"stage"}),
		FileParses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_parses_total",
			Help:      "Number of uploaded-file parses by category and outcome.",
		}, []string{"category", "outcome"}),
		LangDetect: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lang_detect_total",
			Help:      "Number of successful language detections grouped by ISO code.",
		}, []string{"lang"}),
		LangDetectErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lang_detect_errors_total",
			Help:      "Number of language detection attempts that failed reliability checks.",
		}),
	}
}
