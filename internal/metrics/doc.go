// Package metrics provides Prometheus instrumentation for the media-review server.
//
// All metrics are registered with the default registry through promauto and
// are prefixed with "media_review_" to avoid naming collisions with other
// applications.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of total requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//   - WebSocketClients: Gauge of connected player websocket clients
//
// ## Player Metrics
//
//   - PlayerCurrentSeconds: Gauge of the current playback position
//   - PlayerPlayback: Gauge per state (stop/forward/reverse), 1 for the active one
//   - PlayerTicksTotal, PlayerTickDuration: tick count and cost
//   - PlayerSeeksTotal: Counter of seeks
//   - TimelineOpensTotal, TimelineReloadsTotal: timeline loads by status
//
// ## Frame Cache and Populator Metrics
//
// Labelled by cache kind (video/audio):
//   - FrameCacheBytes, FrameCacheEntries, FrameCacheBudgetBytes
//   - FrameCacheEvictionsTotal: by reason (window/budget/rejected/clear)
//   - FrameCacheDuplicateInsertsTotal
//   - PopulatorRequestsTotal: by outcome (issued/completed/cancelled/discarded/failed)
//   - PopulatorPending, PopulatorThrottledTotal
//
// [CacheObserver] wraps these for a single kind so the cache and populator
// packages do not repeat label values.
//
// ## Media I/O Metrics
//
//   - IORequestDuration: Histogram by request kind (video/audio/info)
//   - IOErrorsTotal: Counter by reader (pattern/image/ffmpeg)
//   - IOQueueDepth, IOReadersOpen, IOProcessesRunning
//
// ## Thumbnail Metrics
//
// Labelled by loop kind (info/thumbnail/waveform):
//   - ThumbnailGenerationsTotal, ThumbnailGenerationDuration
//   - ThumbnailCacheHits, ThumbnailCacheMisses
//   - ThumbnailQueueDepth, ThumbnailRequestsCancelled
//   - ThumbnailCacheSize, ThumbnailCacheCount
//   - ThumbnailImageDecodeByFormat: by format and decoder (vips/imaging)
//
// ## Memory Metrics
//
//   - GoMemAllocBytes, GoGoroutines: sampled by the collector
//   - MemoryUsageRatio, MemoryPaused, MemoryGCPauses: written by the memory monitor
//
// # Usage
//
// Mount promhttp.Handler() on the metrics endpoint:
//
//	mux.Handle("/metrics", promhttp.Handler())
//
// Call [InitializeMetrics] once at startup so every labelled series exists
// from the first scrape.
//
// # Collector
//
// [Collector] periodically samples a [StatsProvider] (the review session)
// and the Go runtime:
//
//	collector := metrics.NewCollector(session, 15*time.Second)
//	collector.Start()
//	defer collector.Stop()
package metrics
