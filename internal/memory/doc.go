// Package memory configures Go's runtime memory limit in containerized
// environments and turns heap pressure into backpressure for the frame
// caches.
//
// # Configuration
//
// Call [ConfigureFromEnv] early in main, before the caches start filling:
//
//	func main() {
//	    memory.ConfigureFromEnv()
//	    // ...
//	}
//
// # Environment Variables
//
//   - GOMEMLIMIT: Standard Go environment variable. If set, takes precedence
//     over all other configuration. Accepts values like "400MiB" or "1GiB".
//
//   - MEMORY_LIMIT: Container memory limit in bytes, typically set via the
//     Kubernetes Downward API:
//
//     env:
//     - name: MEMORY_LIMIT
//     valueFrom:
//     resourceFieldRef:
//     resource: limits.memory
//
//   - Without MEMORY_LIMIT the cgroup limit is read from memory.max
//     (v2) or memory.limit_in_bytes (v1). An unlimited cgroup leaves
//     GOMEMLIMIT unset.
//
//   - MEMORY_RATIO: Fraction of the container limit to use for Go heap (default
//     0.85). Lower it when many ffmpeg readers run at once, since their
//     memory is outside the Go heap.
//
// # Cache budgets
//
// When VIDEO_CACHE_MB is not set, the server sizes the video frame cache
// with [CacheBudget] as half of GOMEMLIMIT, falling back to 1 GiB when no
// limit is known.
//
// # Memory Monitoring
//
// [Monitor] samples heap allocation on an interval. Above the high water
// mark [Monitor.ShouldThrottle] reports true and the cache populators stop
// issuing new requests (pending ones still complete). At the critical mark
// the monitor forces a GC and pauses until usage falls back below the high
// water mark:
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//
//	populator.Options{Throttle: monitor.ShouldThrottle}
//
// A nil *Monitor is valid and never throttles.
//
// # References
//
//   - Go 1.19 Release Notes (GOMEMLIMIT): https://go.dev/doc/go1.19
//   - GC Guide: https://go.dev/doc/gc-guide
package memory
