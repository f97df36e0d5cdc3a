package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"media-review/internal/future"
	"media-review/internal/logging"
	"media-review/internal/mediaio"
	"media-review/internal/memory"
	"media-review/internal/metrics"
	"media-review/internal/otime"
	"media-review/internal/workers"
)

const (
	kindInfo      = "info"
	kindThumbnail = "thumbnail"
	kindWaveform  = "waveform"
)

var (
	// ErrClosed fails requests made after Close.
	ErrClosed = errors.New("thumbnail: closed")

	// ErrInvalidSize is returned for non-positive thumbnail or waveform sizes.
	ErrInvalidSize = errors.New("thumbnail: invalid size")
)

// DefaultMaxSize bounds the cache when Options.MaxSize is zero.
const DefaultMaxSize = 256 << 20

// Request identifies one submitted request. The ID is what CancelRequests
// takes; the Future carries the result.
type Request[T any] struct {
	ID     uuid.UUID
	Future *future.Future[T]
}

// Options configure a System.
type Options struct {
	// MaxSize bounds the cache in bytes.
	MaxSize int64

	InfoWorkers      int
	ThumbnailWorkers int
	WaveformWorkers  int

	// Opener opens readers; nil uses mediaio.DefaultOpener.
	Opener mediaio.Opener

	// Memory pauses the loops while usage is critical. Nil never pauses.
	Memory *memory.Monitor
}

// DefaultOptions sizes the thumbnail loop from THUMBNAIL_WORKERS and runs
// one worker each for info and waveforms.
func DefaultOptions() Options {
	return Options{
		MaxSize:          DefaultMaxSize,
		InfoWorkers:      1,
		ThumbnailWorkers: workers.ForThumbnails(4),
		WaveformWorkers:  1,
	}
}

// System owns the cache and the three request loops.
type System struct {
	ctx    context.Context
	cancel context.CancelFunc

	cache  *lru
	render renderer
	loops  map[string]*loop
	closed atomic.Bool
}

// New starts the request loops.
func New(opts Options) *System {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Opener == nil {
		opts.Opener = mediaio.DefaultOpener
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &System{
		ctx:    ctx,
		cancel: cancel,
		cache:  newLRU(opts.MaxSize),
		render: renderer{open: opts.Opener},
		loops: map[string]*loop{
			kindInfo:      newLoop(kindInfo, opts.InfoWorkers, opts.Memory.WaitIfPaused),
			kindThumbnail: newLoop(kindThumbnail, opts.ThumbnailWorkers, opts.Memory.WaitIfPaused),
			kindWaveform:  newLoop(kindWaveform, opts.WaveformWorkers, opts.Memory.WaitIfPaused),
		},
	}
	s.publish()
	logging.Info("Thumbnail system started (cache %s)", memory.FormatBytes(opts.MaxSize))
	return s
}

// submit serves key from the cache or queues gen on the loop for kind.
func submit[T any](s *System, kind, key string, gen func(ctx context.Context) (T, int64, error)) Request[T] {
	id := uuid.New()
	if s.closed.Load() {
		return Request[T]{ID: id, Future: future.Rejected[T](ErrClosed)}
	}
	if v, ok := s.cache.get(key); ok {
		metrics.ThumbnailCacheHits.WithLabelValues(kind).Inc()
		return Request[T]{ID: id, Future: future.Resolved(v.(T))}
	}
	metrics.ThumbnailCacheMisses.WithLabelValues(kind).Inc()

	ctx, cancel := context.WithCancel(s.ctx)
	f := future.NewWithCancel[T](cancel)
	j := &job{
		id:      id,
		pending: f.IsPending,
		cancel:  f.Cancel,
		run: func() {
			start := time.Now()
			v, size, err := gen(ctx)
			metrics.ThumbnailGenerationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
			switch {
			case err == nil:
				if s.cache.put(key, v, size) {
					s.publish()
				}
				f.Resolve(v)
				metrics.ThumbnailGenerationsTotal.WithLabelValues(kind, "success").Inc()
			case ctx.Err() != nil || errors.Is(err, context.Canceled):
				f.Cancel()
				metrics.ThumbnailGenerationsTotal.WithLabelValues(kind, "canceled").Inc()
			default:
				logging.Debug("Thumbnail %s request failed: %v", kind, err)
				f.Fail(err)
				metrics.ThumbnailGenerationsTotal.WithLabelValues(kind, "error").Inc()
			}
		},
	}
	if !s.loops[kind].push(j) {
		cancel()
		return Request[T]{ID: id, Future: future.Rejected[T](ErrClosed)}
	}
	return Request[T]{ID: id, Future: f}
}

// GetInfo requests the stream information of path.
func (s *System) GetInfo(path string, opts mediaio.Options) Request[mediaio.Info] {
	return submit(s, kindInfo, infoKey(path, opts), func(ctx context.Context) (mediaio.Info, int64, error) {
		info, err := s.render.info(ctx, path)
		return info, info.SizeBytes(), err
	})
}

// GetThumbnail requests the frame of path at t scaled to height rows.
func (s *System) GetThumbnail(path string, height int, t otime.RationalTime, opts mediaio.Options) Request[*image.NRGBA] {
	if height <= 0 {
		return Request[*image.NRGBA]{ID: uuid.New(), Future: future.Rejected[*image.NRGBA](fmt.Errorf("%w: height %d", ErrInvalidSize, height))}
	}
	return submit(s, kindThumbnail, thumbnailKey(path, height, t, opts), func(ctx context.Context) (*image.NRGBA, int64, error) {
		img, err := s.render.thumbnail(ctx, path, height, t, opts)
		if err != nil {
			return nil, 0, err
		}
		return img, int64(len(img.Pix)), nil
	})
}

// GetWaveform requests a size.X column mesh of the audio of path over rng.
func (s *System) GetWaveform(path string, size image.Point, rng otime.TimeRange, opts mediaio.Options) Request[*Waveform] {
	if size.X <= 0 || size.Y <= 0 {
		return Request[*Waveform]{ID: uuid.New(), Future: future.Rejected[*Waveform](fmt.Errorf("%w: %v", ErrInvalidSize, size))}
	}
	return submit(s, kindWaveform, waveformKey(path, size, rng, opts), func(ctx context.Context) (*Waveform, int64, error) {
		w, err := s.render.waveform(ctx, path, size, rng, opts)
		return w, w.SizeBytes(), err
	})
}

// CancelRequests drops queued requests and cancels running ones. Unknown or
// finished IDs are ignored. It returns the number of requests cancelled.
func (s *System) CancelRequests(ids ...uuid.UUID) int {
	if len(ids) == 0 {
		return 0
	}
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	n := 0
	for _, l := range s.loops {
		n += l.cancel(set)
	}
	return n
}

// Size returns the bytes held by the cache.
func (s *System) Size() int64 {
	size, _, _ := s.cache.stats()
	return size
}

// MaxSize returns the cache bound in bytes.
func (s *System) MaxSize() int64 {
	_, maxSize, _ := s.cache.stats()
	return maxSize
}

// Len returns the number of cached results.
func (s *System) Len() int {
	_, _, n := s.cache.stats()
	return n
}

// Percentage returns the cache usage as a percentage of MaxSize.
func (s *System) Percentage() float64 {
	size, maxSize, _ := s.cache.stats()
	if maxSize <= 0 {
		return 0
	}
	return float64(size) / float64(maxSize) * 100
}

// SetMaxSize changes the bound, evicting least recently used entries.
func (s *System) SetMaxSize(n int64) {
	s.cache.setMaxSize(n)
	s.publish()
}

// Clear empties the cache. Pending requests are not affected.
func (s *System) Clear() {
	s.cache.clear()
	s.publish()
}

// Queued returns the number of requests of each kind waiting for a worker.
func (s *System) Queued() map[string]int {
	out := make(map[string]int, len(s.loops))
	for kind, l := range s.loops {
		out[kind] = l.queued()
	}
	return out
}

// Close cancels every request and stops the loops.
func (s *System) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.cancel()
	for _, l := range s.loops {
		l.close()
	}
	logging.Debug("Thumbnail system stopped")
}

func (s *System) publish() {
	size, _, n := s.cache.stats()
	metrics.ThumbnailCacheSize.Set(float64(size))
	metrics.ThumbnailCacheCount.Set(float64(n))
}
