package memory

import (
	"fmt"
	"math"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"media-review/internal/logging"
)

const (
	// DefaultMemoryRatio is the percentage of container memory to use for Go heap.
	// The rest is left for ffmpeg/ffprobe processes, libvips and goroutine stacks.
	DefaultMemoryRatio = 0.85

	// DefaultVideoCacheShare is the fraction of GOMEMLIMIT given to the video
	// frame cache when no explicit budget is configured.
	DefaultVideoCacheShare = 0.5

	// DefaultVideoCacheBytes is the video frame cache budget used when no
	// memory limit is known.
	DefaultVideoCacheBytes int64 = 1024 * 1024 * 1024
)

// Sources of the memory limit, in order of precedence.
const (
	SourceGoMemLimit  = "GOMEMLIMIT"
	SourceMemoryLimit = "MEMORY_LIMIT"
	SourceCgroup      = "cgroup"
	SourceNone        = "none"
)

// cgroupLimitFiles are read in order when MEMORY_LIMIT is unset: cgroup v2
// first, then v1.
var cgroupLimitFiles = []string{
	"/sys/fs/cgroup/memory.max",
	"/sys/fs/cgroup/memory/memory.limit_in_bytes",
}

// cgroupUnlimited is the v1 "no limit" value rounded to the page size;
// anything at or above it is treated as unlimited.
const cgroupUnlimited = 1 << 62

// ConfigResult describes how GOMEMLIMIT was configured.
type ConfigResult struct {
	Configured bool
	// Source is one of the Source constants.
	Source string
	// ContainerLimit is the detected limit in bytes, 0 if none.
	ContainerLimit int64
	// GoMemLimit is the resulting runtime limit in bytes, 0 if none.
	GoMemLimit int64
	// Ratio is the share of ContainerLimit given to the Go runtime.
	Ratio float64
}

// ConfigureFromEnv sets GOMEMLIMIT from the container memory limit. Call it
// first thing in main, before the frame caches size their budgets.
//
// An explicit GOMEMLIMIT wins. Otherwise the limit comes from MEMORY_LIMIT
// (bytes, e.g. from the Kubernetes Downward API) or the cgroup, and
// MEMORY_RATIO (default 0.85) of it goes to the Go heap. The rest is left
// for ffmpeg processes and libvips.
func ConfigureFromEnv() ConfigResult {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		logging.Info("GOMEMLIMIT set via environment: %s", env)
		limit := CurrentLimit()
		return ConfigResult{Configured: limit > 0, Source: SourceGoMemLimit, GoMemLimit: limit}
	}

	limit, source := containerLimit()
	if limit <= 0 {
		logging.Debug("No container memory limit found, GOMEMLIMIT not configured")
		return ConfigResult{Source: SourceNone}
	}

	ratio := memoryRatio()
	goMemLimit := int64(float64(limit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s %s limit)",
		FormatBytes(goMemLimit), ratio*100, FormatBytes(limit), source)

	return ConfigResult{
		Configured:     true,
		Source:         source,
		ContainerLimit: limit,
		GoMemLimit:     goMemLimit,
		Ratio:          ratio,
	}
}

// containerLimit returns the memory limit from MEMORY_LIMIT or the cgroup.
func containerLimit() (int64, string) {
	if s := os.Getenv("MEMORY_LIMIT"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n <= 0 {
			logging.Warn("Invalid MEMORY_LIMIT %q, ignoring", s)
			return 0, SourceNone
		}
		return n, SourceMemoryLimit
	}
	for _, path := range cgroupLimitFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		s := strings.TrimSpace(string(data))
		if s == "max" {
			return 0, SourceNone
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n <= 0 || n >= cgroupUnlimited {
			return 0, SourceNone
		}
		return n, SourceCgroup
	}
	return 0, SourceNone
}

func memoryRatio() float64 {
	s := os.Getenv("MEMORY_RATIO")
	if s == "" {
		return DefaultMemoryRatio
	}
	r, err := strconv.ParseFloat(s, 64)
	if err != nil || r <= 0 || r > 1 {
		logging.Warn("MEMORY_RATIO %q must be in (0, 1], using %.2f", s, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return r
}

// CurrentLimit returns the runtime memory limit, or 0 when none is set.
func CurrentLimit() int64 {
	limit := debug.SetMemoryLimit(-1)
	if limit <= 0 || limit == math.MaxInt64 {
		return 0
	}
	return limit
}

// CacheBudget returns share of limit, or fallback when limit is unknown.
func CacheBudget(limit int64, share float64, fallback int64) int64 {
	if limit <= 0 || share <= 0 {
		return fallback
	}
	if share > 1 {
		share = 1
	}
	return int64(float64(limit) * share)
}

// FormatBytes formats b with binary units, e.g. "1.5 GiB".
func FormatBytes(b int64) string {
	units := []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}
	v := float64(b)
	i := 0
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", b)
	}
	return fmt.Sprintf("%.1f %s", v, units[i])
}
