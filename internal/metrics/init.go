package metrics

// Label values shared by the cache, populator and thumbnail metrics.
var (
	CacheKinds     = []string{"video", "audio"}
	ThumbnailKinds = []string{"info", "thumbnail", "waveform"}
	PlaybackStates = []string{"stop", "forward", "reverse"}
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	// --- Player ---
	for _, state := range PlaybackStates {
		PlayerPlayback.WithLabelValues(state)
	}
	for _, status := range []string{"success", "error"} {
		TimelineOpensTotal.WithLabelValues(status)
		TimelineReloadsTotal.WithLabelValues(status)
	}

	// --- Frame caches and populators (per cache kind) ---
	for _, kind := range CacheKinds {
		FrameCacheBytes.WithLabelValues(kind)
		FrameCacheEntries.WithLabelValues(kind)
		FrameCacheBudgetBytes.WithLabelValues(kind)
		FrameCacheDuplicateInsertsTotal.WithLabelValues(kind)
		for _, reason := range []string{"window", "budget", "rejected", "clear"} {
			FrameCacheEvictionsTotal.WithLabelValues(kind, reason)
		}

		PopulatorPending.WithLabelValues(kind)
		PopulatorThrottledTotal.WithLabelValues(kind)
		for _, outcome := range []string{"issued", "completed", "cancelled", "discarded", "failed"} {
			PopulatorRequestsTotal.WithLabelValues(kind, outcome)
		}
	}

	// --- Media I/O ---
	for _, kind := range []string{"video", "audio", "info"} {
		IORequestDuration.WithLabelValues(kind)
	}
	for _, reader := range []string{"pattern", "image", "ffmpeg"} {
		IOErrorsTotal.WithLabelValues(reader)
	}

	// --- Thumbnail system (per loop) ---
	for _, kind := range ThumbnailKinds {
		ThumbnailGenerationDuration.WithLabelValues(kind)
		ThumbnailCacheHits.WithLabelValues(kind)
		ThumbnailCacheMisses.WithLabelValues(kind)
		ThumbnailQueueDepth.WithLabelValues(kind)
		ThumbnailRequestsCancelled.WithLabelValues(kind)
		for _, status := range []string{"success", "error", "canceled"} {
			ThumbnailGenerationsTotal.WithLabelValues(kind, status)
		}
	}

	// --- Thumbnail image decode by format ---
	for _, format := range []string{"jpeg", "png", "gif", "webp", "bmp", "tiff", "heic", "avif", "unknown"} {
		ThumbnailImageDecodeByFormat.WithLabelValues(format, "vips")
		ThumbnailImageDecodeByFormat.WithLabelValues(format, "imaging")
	}
}
