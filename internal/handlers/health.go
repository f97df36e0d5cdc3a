package handlers

import (
	"net/http"
	"runtime"
	"time"

	"media-review/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusIdle     = "idle"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Ready    bool   `json:"ready"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Timeline string `json:"timeline,omitempty"`
	Playback string `json:"playback,omitempty"`

	// Cache summary
	VideoCacheBytes     int64   `json:"videoCacheBytes"`
	AudioCacheBytes     int64   `json:"audioCacheBytes"`
	ThumbnailCacheBytes int64   `json:"thumbnailCacheBytes"`
	ThumbnailCachePct   float64 `json:"thumbnailCachePercentage"`

	// Heap samples from the memory monitor; zero without a limit.
	MemoryAlloc  int64   `json:"memoryAlloc"`
	MemoryLimit  int64   `json:"memoryLimit"`
	MemoryUsage  float64 `json:"memoryUsage"`
	MemoryPaused bool    `json:"memoryPaused"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service. A server without
// an open timeline is idle but healthy; a player whose loop has exited is
// degraded.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:              statusIdle,
		Version:             startup.Version,
		Uptime:              time.Since(h.started).Round(time.Second).String(),
		ThumbnailCacheBytes: h.thumbs.Size(),
		ThumbnailCachePct:   h.thumbs.Percentage(),
		GoVersion:           runtime.Version(),
		NumCPU:              runtime.NumCPU(),
		NumGoroutine:        runtime.NumGoroutine(),
		MemoryPaused:        h.memory.IsPaused(),
	}
	response.MemoryAlloc, response.MemoryLimit, response.MemoryUsage = h.memory.GetStats()

	code := http.StatusOK
	if p := h.session.Player(); p != nil {
		stats := h.session.GetStats()
		response.Ready = true
		response.Status = statusHealthy
		response.Timeline = p.Timeline().Name
		response.Playback = stats.Playback
		response.VideoCacheBytes = stats.VideoCacheBytes
		response.AudioCacheBytes = stats.AudioCacheBytes

		select {
		case <-p.Done():
			response.Ready = false
			response.Status = statusDegraded
			code = http.StatusServiceUnavailable
		default:
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when a timeline is open and playing.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	ready := false
	if p := h.session.Player(); p != nil {
		select {
		case <-p.Done():
		default:
			ready = true
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if ready {
		w.WriteHeader(http.StatusOK)
		writeJSON(w, map[string]string{
			"status": "ready",
		})
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{
			"status": "not_ready",
		})
	}
}
