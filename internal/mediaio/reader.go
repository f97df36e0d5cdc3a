package mediaio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"media-review/internal/mediatypes"
	"media-review/internal/metrics"
	"media-review/internal/otime"
	"media-review/internal/timeline"
)

// Reader decodes one media source. Implementations must be safe for
// concurrent use: the System calls them from several workers.
type Reader interface {
	Info(ctx context.Context) (Info, error)
	ReadVideo(ctx context.Context, t otime.RationalTime, opts Options) (*VideoFrame, error)
	ReadAudio(ctx context.Context, rng otime.TimeRange, opts Options) (*AudioBlock, error)
	Close() error
}

// Opener opens a Reader for a media path.
type Opener func(path string) (Reader, error)

// DefaultOpener chooses a reader from the path.
func DefaultOpener(path string) (Reader, error) {
	switch {
	case strings.HasPrefix(path, timeline.PatternScheme):
		return NewPatternReader(path)
	case mediatypes.IsStillImage(path):
		return NewImageReader(path), nil
	case mediatypes.IsMediaFile(path):
		return NewFFmpegReader(path), nil
	}
	return nil, fmt.Errorf("unsupported media %q", path)
}

// readerName labels I/O error metrics.
func readerName(r Reader) string {
	switch r.(type) {
	case *PatternReader:
		return "pattern"
	case *ImageReader:
		return "image"
	default:
		return "ffmpeg"
	}
}

func countError(r Reader, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		metrics.IOErrorsTotal.WithLabelValues(readerName(r)).Inc()
	}
}
