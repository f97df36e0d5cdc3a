package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"

	"media-review/internal/logging"
)

var (
	vipsMu      sync.Mutex
	vipsStarted bool
)

// vipsLogging maps the application log level to a vips level and a handler
// that forwards vips messages to the application log.
func vipsLogging(level logging.LogLevel) (vips.LogLevel, func(string, vips.LogLevel, string)) {
	forward := func(min vips.LogLevel) func(string, vips.LogLevel, string) {
		return func(domain string, l vips.LogLevel, msg string) {
			if l > min {
				return
			}
			switch l {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			default:
				logging.Debug("[%s] %s", domain, msg)
			}
		}
	}
	// vips levels grow more verbose as the value increases.
	switch level {
	case logging.LevelDebug:
		return vips.LogLevelInfo, forward(vips.LogLevelDebug)
	case logging.LevelWarn:
		return vips.LogLevelError, forward(vips.LogLevelError)
	case logging.LevelError:
		return vips.LogLevelCritical, forward(vips.LogLevelCritical)
	default:
		return vips.LogLevelWarning, forward(vips.LogLevelWarning)
	}
}

// InitVips starts libvips for still image thumbnails. It is safe to call
// more than once. Without it thumbnails decode through imaging.
func InitVips() {
	vipsMu.Lock()
	defer vipsMu.Unlock()
	if vipsStarted {
		return
	}

	level, handler := vipsLogging(logging.GetLevel())
	vips.LoggingSettings(handler, level)

	// One image at a time with a small operation cache keeps memory flat.
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})
	vipsStarted = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
}

// ShutdownVips releases libvips.
func ShutdownVips() {
	vipsMu.Lock()
	defer vipsMu.Unlock()
	if vipsStarted {
		vips.Shutdown()
		vipsStarted = false
		logging.Info("libvips shutdown complete")
	}
}

// VipsAvailable reports whether InitVips has run.
func VipsAvailable() bool {
	vipsMu.Lock()
	defer vipsMu.Unlock()
	return vipsStarted
}

// loadWithVips decodes path shrunk to height rows. vips shrinks JPEGs while
// decoding, so large stills never exist at full size in memory.
func loadWithVips(path string, height int) (*image.NRGBA, error) {
	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	w, h := ref.Width(), ref.Height()
	if h == 0 {
		return nil, fmt.Errorf("vips loaded empty image %s", filepath.Base(path))
	}
	width := max(1, w*height/h)
	logging.Debug("Vips loaded %s: %dx%d, shrinking to %dx%d", filepath.Base(path), w, h, width, height)

	if err := ref.Thumbnail(width, height, vips.InterestingNone); err != nil {
		return nil, fmt.Errorf("vips resize failed: %w", err)
	}
	buf, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("failed to decode vips output: %w", err)
	}
	return imaging.Clone(img), nil
}
