package mediaio

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"

	"media-review/internal/future"
	"media-review/internal/logging"
	"media-review/internal/metrics"
	"media-review/internal/otime"
	"media-review/internal/timeline"
)

// Handle is an opened timeline: the timeline plus one reader per distinct
// media path. It is immutable until Close.
type Handle struct {
	timeline *timeline.Timeline
	system   *System
	readers  map[string]Reader
	opts     Options
	closed   atomic.Bool
}

// OpenHandle opens a reader for every media path of tl. If any reader fails
// to open, the ones already opened are closed and no handle is returned.
func OpenHandle(ctx context.Context, tl *timeline.Timeline, open Opener, system *System, opts Options) (*Handle, error) {
	if open == nil {
		open = DefaultOpener
	}
	h := &Handle{
		timeline: tl,
		system:   system,
		readers:  make(map[string]Reader),
		opts:     opts,
	}
	for _, path := range tl.MediaPaths() {
		if err := ctx.Err(); err != nil {
			h.closeReaders()
			return nil, err
		}
		r, err := open(path)
		if err != nil {
			h.closeReaders()
			return nil, fmt.Errorf("open media %s: %w", path, err)
		}
		h.readers[path] = r
		metrics.IOReadersOpen.Inc()
	}
	logging.Debug("Opened timeline %q with %d readers", tl.Name, len(h.readers))
	return h, nil
}

// Timeline returns the timeline the handle was opened with.
func (h *Handle) Timeline() *timeline.Timeline { return h.timeline }

// Reader returns the reader for a media path of the timeline.
func (h *Handle) Reader(path string) (Reader, bool) {
	r, ok := h.readers[path]
	return r, ok
}

// Info queries the reader of a media path.
func (h *Handle) Info(ctx context.Context, path string) (Info, error) {
	r, ok := h.readers[path]
	if !ok {
		return Info{}, fmt.Errorf("media %s is not part of the timeline", path)
	}
	return r.Info(ctx)
}

// RequestVideo asynchronously reads every video layer at t.
func (h *Handle) RequestVideo(t otime.RationalTime) *future.Future[*VideoData] {
	if h.closed.Load() {
		return future.Rejected[*VideoData](ErrClosed)
	}
	return Submit(h.system, "video", func(ctx context.Context) (*VideoData, error) {
		return h.readVideo(ctx, t)
	})
}

// RequestAudio asynchronously reads every audio layer over rng.
func (h *Handle) RequestAudio(rng otime.TimeRange) *future.Future[*AudioData] {
	if h.closed.Load() {
		return future.Rejected[*AudioData](ErrClosed)
	}
	return Submit(h.system, "audio", func(ctx context.Context) (*AudioData, error) {
		return h.readAudio(ctx, rng)
	})
}

func (h *Handle) readVideo(ctx context.Context, t otime.RationalTime) (*VideoData, error) {
	tl := h.timeline
	data := &VideoData{Time: t}
	for _, ti := range tl.TrackIndexes(timeline.Video) {
		layer := VideoLayer{Track: ti}
		if tr, ok := tl.TransitionAt(ti, t); ok {
			a, err := h.readItem(ctx, ti, tr.From, t)
			if err != nil {
				return nil, err
			}
			b, err := h.readItem(ctx, ti, tr.To, t)
			if err != nil {
				return nil, err
			}
			layer.Image, layer.ImageB = a, b
			layer.Transition = tr.Name
			layer.TransitionValue = tr.Value(t)
		} else if ii, ok := tl.ItemAt(ti, t); ok {
			img, err := h.readItem(ctx, ti, ii, t)
			if err != nil {
				return nil, err
			}
			layer.Image = img
		}
		data.Layers = append(data.Layers, layer)
	}
	return data, nil
}

// readItem reads the frame of a clip at timeline time t. Gaps read nothing.
func (h *Handle) readItem(ctx context.Context, track, item int, t otime.RationalTime) (*image.NRGBA, error) {
	it := h.timeline.Tracks[track].Items[item]
	if it.Kind != timeline.ClipItem {
		return nil, nil
	}
	r := h.readers[it.MediaPath]
	frame, err := r.ReadVideo(ctx, h.timeline.SourceTime(track, item, t), h.opts)
	countError(r, err)
	if err != nil {
		return nil, fmt.Errorf("read %s at %v: %w", it.MediaPath, t, err)
	}
	return frame.Image, nil
}

func (h *Handle) readAudio(ctx context.Context, rng otime.TimeRange) (*AudioData, error) {
	tl := h.timeline
	sampleRate := h.opts.Int(OptionSampleRate, DefaultSampleRate)
	channels := h.opts.Int(OptionChannels, DefaultChannels)

	spans := tl.Spans(timeline.Audio, rng)
	data := &AudioData{Range: rng}
	for _, ti := range tl.TrackIndexes(timeline.Audio) {
		block := NewAudioBlock(rng, sampleRate, channels)
		for _, span := range spans {
			if span.Track != ti {
				continue
			}
			r := h.readers[span.MediaPath]
			src, err := r.ReadAudio(ctx, span.Source, h.opts)
			countError(r, err)
			if err != nil {
				return nil, fmt.Errorf("read %s over %v: %w", span.MediaPath, span.Source, err)
			}
			offset := int(span.Range.Start.Sub(rng.Start).Seconds()*float64(sampleRate)+0.5) * channels
			mix(block.Samples[min(offset, len(block.Samples)):], src.Samples)
		}
		data.Layers = append(data.Layers, AudioLayer{Track: ti, Block: block})
	}
	return data, nil
}

func mix(dst, src []float32) {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] += src[i]
	}
}

// Close closes every reader. Requests already queued fail or are cancelled
// by their readers; new requests are rejected.
func (h *Handle) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	return h.closeReaders()
}

func (h *Handle) closeReaders() error {
	var errs []error
	for path, r := range h.readers {
		if err := r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", path, err))
		}
		metrics.IOReadersOpen.Dec()
	}
	return errors.Join(errs...)
}

// Slot holds the current handle. Swap publishes a new handle atomically and
// returns the previous one for the caller to close.
type Slot struct {
	p atomic.Pointer[Handle]
}

// Load returns the current handle, or nil.
func (s *Slot) Load() *Handle { return s.p.Load() }

// Swap installs h and returns the previous handle.
func (s *Slot) Swap(h *Handle) *Handle { return s.p.Swap(h) }
