package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_review_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_review_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_review_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_review_websocket_clients",
			Help: "Number of connected player websocket clients",
		},
	)
)

// Player metrics
var (
	PlayerCurrentSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_review_player_current_seconds",
			Help: "Current playback position in seconds",
		},
	)

	PlayerPlayback = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_review_player_playback",
			Help: "Current playback state (1 for the active state)",
		},
		[]string{"state"}, // "stop", "forward", "reverse"
	)

	PlayerTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_review_player_ticks_total",
			Help: "Total number of player ticks",
		},
	)

	PlayerTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_review_player_tick_duration_seconds",
			Help:    "Time spent in a single player tick",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
		},
	)

	PlayerSeeksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_review_player_seeks_total",
			Help: "Total number of seeks",
		},
	)

	TimelineOpensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_review_timeline_opens_total",
			Help: "Total number of timeline open attempts",
		},
		[]string{"status"}, // "success", "error"
	)

	TimelineReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_review_timeline_reloads_total",
			Help: "Total number of timeline reloads triggered by file changes",
		},
		[]string{"status"},
	)
)

// Frame cache metrics
var (
	FrameCacheBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_review_frame_cache_bytes",
			Help: "Bytes held by the frame cache",
		},
		[]string{"kind"}, // "video", "audio"
	)

	FrameCacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_review_frame_cache_entries",
			Help: "Number of entries in the frame cache",
		},
		[]string{"kind"},
	)

	FrameCacheBudgetBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_review_frame_cache_budget_bytes",
			Help: "Configured byte budget of the frame cache (0 = unlimited)",
		},
		[]string{"kind"},
	)

	FrameCacheEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_review_frame_cache_evictions_total",
			Help: "Total number of frame cache evictions",
		},
		[]string{"kind", "reason"}, // reason: "window", "budget", "rejected", "clear"
	)

	FrameCacheDuplicateInsertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_review_frame_cache_duplicate_inserts_total",
			Help: "Total number of inserts ignored because the slot was already cached",
		},
		[]string{"kind"},
	)
)

// Populator metrics
var (
	PopulatorRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_review_populator_requests_total",
			Help: "Total number of populator requests by outcome",
		},
		[]string{"kind", "outcome"}, // "issued", "completed", "cancelled", "discarded", "failed"
	)

	PopulatorPending = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_review_populator_pending",
			Help: "Number of requests currently in flight",
		},
		[]string{"kind"},
	)

	PopulatorThrottledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_review_populator_throttled_total",
			Help: "Total number of updates that skipped issuing because of memory pressure",
		},
		[]string{"kind"},
	)
)

// Media I/O metrics
var (
	IORequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_review_io_request_duration_seconds",
			Help:    "Duration of media read requests",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"kind"}, // "video", "audio", "info"
	)

	IOErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_review_io_errors_total",
			Help: "Total number of media read errors",
		},
		[]string{"reader"}, // "pattern", "image", "ffmpeg"
	)

	IOQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_review_io_queue_depth",
			Help: "Number of media read requests waiting for a worker",
		},
	)

	IOReadersOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_review_io_readers_open",
			Help: "Number of open media readers",
		},
	)

	IOProcessesRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_review_io_processes_running",
			Help: "Number of ffmpeg processes currently running",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_review_thumbnail_generations_total",
			Help: "Total number of thumbnail system generations",
		},
		[]string{"kind", "status"}, // kind: "info", "thumbnail", "waveform"
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_review_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail system generation duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"kind"},
	)

	ThumbnailCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_review_thumbnail_cache_hits_total",
			Help: "Total number of thumbnail cache hits",
		},
		[]string{"kind"},
	)

	ThumbnailCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_review_thumbnail_cache_misses_total",
			Help: "Total number of thumbnail cache misses",
		},
		[]string{"kind"},
	)

	ThumbnailCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_review_thumbnail_cache_size_bytes",
			Help: "Total size of the thumbnail cache in bytes",
		},
	)

	ThumbnailCacheCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_review_thumbnail_cache_count",
			Help: "Number of entries in the thumbnail cache",
		},
	)

	ThumbnailQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_review_thumbnail_queue_depth",
			Help: "Number of thumbnail requests waiting per loop",
		},
		[]string{"kind"},
	)

	ThumbnailRequestsCancelled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_review_thumbnail_requests_cancelled_total",
			Help: "Total number of cancelled thumbnail requests",
		},
		[]string{"kind"},
	)

	ThumbnailImageDecodeByFormat = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_review_thumbnail_image_decode_total",
			Help: "Total number of image decodes by format and decoder",
		},
		[]string{"format", "decoder"}, // decoder: "vips", "imaging"
	)
)

// Filesystem metrics
var (
	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_review_filesystem_stale_errors_total",
			Help: "Total number of stale file handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_review_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_review_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_review_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations including retries",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"operation", "volume"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_review_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_review_memory_paused",
			Help: "Whether cache population is paused due to memory pressure (1 = paused)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_review_memory_gc_pauses_total",
			Help: "Total number of times processing was paused for GC",
		},
	)

	GoMemAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_review_go_memalloc_bytes",
			Help: "Bytes of allocated heap objects",
		},
	)

	GoGoroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_review_go_goroutines",
			Help: "Number of goroutines",
		},
	)
)

// Application info
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_review_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)
