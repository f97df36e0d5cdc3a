package memory

import (
	"math"
	"runtime"
	"sync"
	"time"

	"media-review/internal/logging"
	"media-review/internal/metrics"
)

// Config sets the watermarks of a Monitor.
type Config struct {
	// MemoryLimitBytes overrides the limit; 0 uses GOMEMLIMIT.
	MemoryLimitBytes int64

	// HighWaterMark is the usage fraction above which populators stop
	// issuing new requests.
	HighWaterMark float64

	// CriticalWaterMark is the usage fraction that forces a GC and pauses
	// the thumbnail loops until usage drops below HighWaterMark.
	CriticalWaterMark float64

	CheckInterval time.Duration
}

// DefaultConfig throttles at 70% of the limit and pauses at 85%.
func DefaultConfig() Config {
	return Config{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     time.Second,
	}
}

// Monitor samples heap usage and provides backpressure signals to the
// frame cache populators and the thumbnail loops. A nil *Monitor never
// throttles.
type Monitor struct {
	cfg   Config
	limit int64

	done     chan struct{}
	stopOnce sync.Once

	mu     sync.RWMutex
	alloc  uint64
	paused bool
	resume chan struct{} // closed when a pause ends
}

// NewMonitor returns a stopped monitor. Without a limit from cfg or
// GOMEMLIMIT the monitor never throttles.
func NewMonitor(cfg Config) *Monitor {
	limit := cfg.MemoryLimitBytes
	if limit == 0 {
		limit = CurrentLimit()
	}
	if limit > 0 {
		logging.Info("Memory monitor limit: %s (throttle at %.0f%%, pause at %.0f%%)",
			FormatBytes(limit), cfg.HighWaterMark*100, cfg.CriticalWaterMark*100)
	} else {
		logging.Warn("Memory monitor: no memory limit configured, backpressure disabled")
	}
	return &Monitor{
		cfg:    cfg,
		limit:  limit,
		done:   make(chan struct{}),
		resume: make(chan struct{}),
	}
}

// Start launches the sampling goroutine.
func (m *Monitor) Start() {
	if m == nil || m.limit <= 0 {
		return
	}
	go m.run()
}

// Stop ends sampling and releases goroutines blocked in WaitIfPaused. It
// may be called more than once.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() { close(m.done) })
}

func (m *Monitor) run() {
	t := time.NewTicker(m.cfg.CheckInterval)
	defer t.Stop()
	var ms runtime.MemStats
	for {
		select {
		case <-m.done:
			return
		case <-t.C:
			runtime.ReadMemStats(&ms)
			m.observe(ms.Alloc)
		}
	}
}

// observe records a heap sample. Crossing the critical mark pauses; the
// pause lasts until usage falls below the high mark.
func (m *Monitor) observe(alloc uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.alloc = alloc
	if m.limit <= 0 {
		return
	}
	usage := m.usageLocked()
	metrics.MemoryUsageRatio.Set(usage)

	switch {
	case !m.paused && usage >= m.cfg.CriticalWaterMark:
		logging.Warn("Memory critical (%.1f%% of limit, %s), pausing cache population",
			usage*100, FormatBytes(clampInt64(alloc)))
		m.paused = true
		metrics.MemoryPaused.Set(1)
		metrics.MemoryGCPauses.Inc()
		go runtime.GC()
	case m.paused && usage < m.cfg.HighWaterMark:
		logging.Info("Memory recovered (%.1f%% of limit), resuming cache population", usage*100)
		m.paused = false
		metrics.MemoryPaused.Set(0)
		close(m.resume)
		m.resume = make(chan struct{})
	}
}

func (m *Monitor) usageLocked() float64 {
	if m.limit <= 0 {
		return 0
	}
	return float64(m.alloc) / float64(m.limit)
}

// WaitIfPaused blocks while memory usage is critical. It returns false if
// the monitor was stopped while waiting.
func (m *Monitor) WaitIfPaused() bool {
	if m == nil {
		return true
	}
	m.mu.RLock()
	paused, resume := m.paused, m.resume
	m.mu.RUnlock()
	if !paused {
		return true
	}

	select {
	case <-resume:
		return true
	case <-m.done:
		return false
	}
}

// ShouldThrottle reports whether usage is above the high water mark or the
// monitor is paused. Populators skip issuing new requests while it is true.
func (m *Monitor) ShouldThrottle() bool {
	if m == nil || m.limit <= 0 {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused || m.usageLocked() >= m.cfg.HighWaterMark
}

// IsPaused reports whether usage crossed the critical mark and has not yet
// recovered.
func (m *Monitor) IsPaused() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

// GetStats returns the last heap sample, the limit and their ratio.
func (m *Monitor) GetStats() (alloc, limit int64, usage float64) {
	if m == nil {
		return 0, 0, 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clampInt64(m.alloc), m.limit, m.usageLocked()
}

func clampInt64(v uint64) int64 {
	return int64(min(v, math.MaxInt64))
}
