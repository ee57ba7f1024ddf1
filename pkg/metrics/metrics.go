package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quadtree_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quadtree_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Compression pipeline metrics
	CompressionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quadtree_compressions_total",
			Help: "Total number of image compressions",
		},
		[]string{"status"}, // success, error
	)

	CompressionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quadtree_compression_duration_seconds",
			Help:    "Compression duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"mode"}, // measure mode: estimate, encode, zstd, ...
	)

	CompressionBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quadtree_compression_bytes",
			Help:    "Compression input/output bytes",
			Buckets: []float64{1024, 10240, 102400, 512000, 1048576, 5242880, 10485760},
		},
		[]string{"direction"}, // input, output
	)

	TreeNodes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quadtree_tree_nodes",
			Help:    "Node count of final quadtrees",
			Buckets: prometheus.ExponentialBuckets(1, 4, 12),
		},
	)

	TreeDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quadtree_tree_depth",
			Help:    "Depth of final quadtrees",
			Buckets: prometheus.LinearBuckets(1, 1, 16),
		},
	)

	// Threshold search metrics
	SearchTrials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quadtree_search_trials_total",
			Help: "Total number of threshold trial evaluations",
		},
		[]string{"status"}, // ok, error
	)

	SearchRounds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quadtree_search_rounds",
			Help:    "Refinement rounds per threshold search",
			Buckets: prometheus.LinearBuckets(0, 5, 6),
		},
	)

	SearchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quadtree_search_outcomes_total",
			Help: "Threshold search results by status",
		},
		[]string{"status"}, // converged, best_effort, unattainable
	)

	TrialPoolQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quadtree_trial_pool_queue_size",
			Help: "Current number of trials waiting in the worker pool queue",
		},
	)

	// Rate limiting metrics
	RateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quadtree_rate_limit_exceeded_total",
			Help: "Total number of requests rejected due to rate limiting",
		},
		[]string{"ip_prefix"},
	)

	// Concurrency metrics
	ConcurrentRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quadtree_concurrent_requests",
			Help: "Current number of compressions being processed",
		},
	)

	ConcurrencyLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quadtree_concurrency_limit_exceeded_total",
			Help: "Total number of requests rejected due to concurrency limit",
		},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, duration float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordCompression records a finished compression
func RecordCompression(status, mode string, duration float64, inputBytes, outputBytes int64) {
	CompressionsTotal.WithLabelValues(status).Inc()
	CompressionDuration.WithLabelValues(mode).Observe(duration)
	if status != "success" {
		return
	}
	CompressionBytes.WithLabelValues("input").Observe(float64(inputBytes))
	CompressionBytes.WithLabelValues("output").Observe(float64(outputBytes))
}

// RecordTree records the shape of a final tree
func RecordTree(nodes, depth int) {
	TreeNodes.Observe(float64(nodes))
	TreeDepth.Observe(float64(depth))
}

// RecordTrial records one threshold trial
func RecordTrial(ok bool) {
	if ok {
		SearchTrials.WithLabelValues("ok").Inc()
		return
	}
	SearchTrials.WithLabelValues("error").Inc()
}

// RecordSearch records the outcome of a threshold search
func RecordSearch(status string, rounds int) {
	SearchOutcomes.WithLabelValues(status).Inc()
	SearchRounds.Observe(float64(rounds))
}

// UpdateTrialQueue updates the trial pool queue gauge
func UpdateTrialQueue(queued int) {
	TrialPoolQueueSize.Set(float64(queued))
}

// RecordRateLimitExceeded records a rate limit rejection
func RecordRateLimitExceeded(ipPrefix string) {
	RateLimitExceeded.WithLabelValues(ipPrefix).Inc()
}

// UpdateConcurrency updates concurrent request gauge
func UpdateConcurrency(count int) {
	ConcurrentRequests.Set(float64(count))
}

// RecordConcurrencyLimitExceeded records a concurrency limit rejection
func RecordConcurrencyLimitExceeded() {
	ConcurrencyLimitExceeded.Inc()
}
