package metrics

import (
	"runtime"
	"sync"
	"time"

	"media-review/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current statistics of the review session
type Stats struct {
	TimelineLoaded   bool
	CurrentSeconds   float64
	Playback         string
	VideoCacheBytes  int64
	VideoCacheCount  int
	AudioCacheBytes  int64
	AudioCacheCount  int
	ThumbnailBytes   int64
	ThumbnailEntries int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection. It is safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	collectRuntimeMetrics()

	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	if stats.TimelineLoaded {
		PlayerCurrentSeconds.Set(stats.CurrentSeconds)
		SetPlayback(stats.Playback)
	}
	FrameCacheBytes.WithLabelValues("video").Set(float64(stats.VideoCacheBytes))
	FrameCacheEntries.WithLabelValues("video").Set(float64(stats.VideoCacheCount))
	FrameCacheBytes.WithLabelValues("audio").Set(float64(stats.AudioCacheBytes))
	FrameCacheEntries.WithLabelValues("audio").Set(float64(stats.AudioCacheCount))
	ThumbnailCacheSize.Set(float64(stats.ThumbnailBytes))
	ThumbnailCacheCount.Set(float64(stats.ThumbnailEntries))

	logging.Debug("Metrics collected: video=%d entries, audio=%d entries, thumbnails=%d entries",
		stats.VideoCacheCount, stats.AudioCacheCount, stats.ThumbnailEntries)
}

func collectRuntimeMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	GoMemAllocBytes.Set(float64(m.Alloc))
	GoGoroutines.Set(float64(runtime.NumGoroutine()))
}
