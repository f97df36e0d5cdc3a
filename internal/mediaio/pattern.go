package mediaio

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"

	"media-review/internal/otime"
	"media-review/internal/timeline"
)

// PatternReader generates frames and a sine tone instead of decoding a file.
//
//	pattern:bars?width=640&height=360&rate=24&seconds=60&tone=440
//
// Supported patterns are bars, ramp and checker. delay=<duration> slows
// every read and fail=<frame>,<frame> makes reads of those frames fail.
type PatternReader struct {
	uri     string
	name    string
	width   int
	height  int
	rate    float64
	seconds float64
	tone    float64
	delay   time.Duration
	fail    map[int64]bool
	base    *image.NRGBA
	closed  atomic.Bool
}

var barColors = []color.NRGBA{
	{192, 192, 192, 255},
	{192, 192, 0, 255},
	{0, 192, 192, 255},
	{0, 192, 0, 255},
	{192, 0, 192, 255},
	{192, 0, 0, 255},
	{0, 0, 192, 255},
}

// NewPatternReader parses a pattern: URI.
func NewPatternReader(uri string) (*PatternReader, error) {
	rest := strings.TrimPrefix(uri, timeline.PatternScheme)
	name, rawQuery, _ := strings.Cut(rest, "?")
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", uri, err)
	}

	r := &PatternReader{
		uri:     uri,
		name:    name,
		width:   queryInt(q, "width", 320),
		height:  queryInt(q, "height", 180),
		rate:    queryFloat(q, "rate", 24),
		seconds: queryFloat(q, "seconds", 3600),
		tone:    queryFloat(q, "tone", 440),
		fail:    make(map[int64]bool),
	}
	if d := q.Get("delay"); d != "" {
		if r.delay, err = time.ParseDuration(d); err != nil {
			return nil, fmt.Errorf("parse %s delay: %w", uri, err)
		}
	}
	for _, f := range strings.Split(q.Get("fail"), ",") {
		if n, err := strconv.ParseInt(f, 10, 64); err == nil {
			r.fail[n] = true
		}
	}

	switch name {
	case "bars", "":
		r.base = barsImage(r.width, r.height)
	case "ramp":
		r.base = rampImage(r.width, r.height)
	case "checker":
		r.base = checkerImage(r.width, r.height)
	default:
		return nil, fmt.Errorf("unknown pattern %q", name)
	}
	return r, nil
}

func queryInt(q url.Values, key string, def int) int {
	if n, err := strconv.Atoi(q.Get(key)); err == nil && n > 0 {
		return n
	}
	return def
}

func queryFloat(q url.Values, key string, def float64) float64 {
	if f, err := strconv.ParseFloat(q.Get(key), 64); err == nil && f > 0 {
		return f
	}
	return def
}

func barsImage(w, h int) *image.NRGBA {
	img := imaging.New(w, h, color.NRGBA{0, 0, 0, 255})
	bw := (w + len(barColors) - 1) / len(barColors)
	for i, c := range barColors {
		img = imaging.Paste(img, imaging.New(bw, h, c), image.Pt(i*bw, 0))
	}
	return img
}

func rampImage(w, h int) *image.NRGBA {
	img := imaging.New(w, h, color.NRGBA{0, 0, 0, 255})
	for x := 0; x < w; x++ {
		v := uint8(x * 255 / max(w-1, 1))
		for y := 0; y < h; y++ {
			img.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
		}
	}
	return img
}

func checkerImage(w, h int) *image.NRGBA {
	const cell = 16
	img := imaging.New(w, h, color.NRGBA{32, 32, 32, 255})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.SetNRGBA(x, y, color.NRGBA{224, 224, 224, 255})
			}
		}
	}
	return img
}

func (r *PatternReader) wait(ctx context.Context) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if r.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(r.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *PatternReader) timeRange() otime.TimeRange {
	return otime.NewRange(otime.New(0, r.rate), otime.FromSeconds(r.seconds, r.rate))
}

// Info reports the generated dimensions and duration.
func (r *PatternReader) Info(_ context.Context) (Info, error) {
	if r.closed.Load() {
		return Info{}, ErrClosed
	}
	rng := r.timeRange()
	return Info{
		Path:  r.uri,
		Video: &VideoInfo{Width: r.width, Height: r.height, Codec: "pattern", Range: rng},
		Audio: &AudioInfo{Channels: DefaultChannels, SampleRate: DefaultSampleRate, Codec: "sine", Range: rng},
	}, nil
}

// ReadVideo returns the pattern with a marker whose position encodes the
// frame number.
func (r *PatternReader) ReadVideo(ctx context.Context, t otime.RationalTime, _ Options) (*VideoFrame, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	frame := t.Frame(r.rate)
	if r.fail[frame] {
		return nil, fmt.Errorf("pattern frame %d: injected failure", frame)
	}

	img := imaging.Clone(r.base)
	markerH := max(r.height/8, 1)
	x := int(((frame % int64(r.width)) + int64(r.width)) % int64(r.width))
	img = imaging.Paste(img, imaging.New(1, markerH, color.NRGBA{255, 255, 255, 255}), image.Pt(x, r.height-markerH))

	return &VideoFrame{Time: t.Rescale(r.rate).Floor(), Image: img}, nil
}

// ReadAudio returns a sine tone. Samples are computed from their absolute
// index so adjacent blocks join without discontinuity.
func (r *PatternReader) ReadAudio(ctx context.Context, rng otime.TimeRange, opts Options) (*AudioBlock, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	sampleRate := opts.Int(OptionSampleRate, DefaultSampleRate)
	channels := opts.Int(OptionChannels, DefaultChannels)

	block := NewAudioBlock(rng, sampleRate, channels)
	first := int64(math.Round(rng.Start.Seconds() * float64(sampleRate)))
	step := 2 * math.Pi * r.tone / float64(sampleRate)
	for i := 0; i < block.Frames(); i++ {
		v := float32(0.25 * math.Sin(step*float64(first+int64(i))))
		for c := 0; c < channels; c++ {
			block.Samples[i*channels+c] = v
		}
	}
	return block, nil
}

// Close marks the reader closed.
func (r *PatternReader) Close() error {
	r.closed.Store(true)
	return nil
}
