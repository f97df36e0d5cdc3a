package workers

import (
	"os"
	"runtime"
	"strconv"
)

// Environment variables that override the computed pool sizes.
const (
	DecodeWorkersEnv    = "DECODE_WORKERS"
	ThumbnailWorkersEnv = "THUMBNAIL_WORKERS"
)

// Per-CPU multipliers. Decoding mixes ffmpeg pipe reads with pixel
// conversion; thumbnails are dominated by resizing.
const (
	decodePerCPU    = 1.5
	thumbnailPerCPU = 1.0
)

// Count returns multiplier workers per usable CPU, at least one and at most
// limit (0 means no cap). GOMAXPROCS reflects the container CPU limit.
func Count(multiplier float64, limit int) int {
	return capAt(max(1, int(float64(runtime.GOMAXPROCS(0))*multiplier)), limit)
}

// Override returns the positive integer stored in envVar.
func Override(envVar string) (int, bool) {
	n, err := strconv.Atoi(os.Getenv(envVar))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// ForDecode sizes the media I/O request system. DECODE_WORKERS overrides
// the computed size.
func ForDecode(limit int) int {
	return sized(DecodeWorkersEnv, decodePerCPU, limit)
}

// ForThumbnails sizes each thumbnail system loop. THUMBNAIL_WORKERS
// overrides the computed size.
func ForThumbnails(limit int) int {
	return sized(ThumbnailWorkersEnv, thumbnailPerCPU, limit)
}

func sized(envVar string, multiplier float64, limit int) int {
	if n, ok := Override(envVar); ok {
		return capAt(n, limit)
	}
	return Count(multiplier, limit)
}

func capAt(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}
