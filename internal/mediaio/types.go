package mediaio

import (
	"errors"
	"image"
	"sort"
	"strconv"
	"strings"

	"media-review/internal/otime"
)

// ErrClosed is returned for requests made after a System or Handle closed.
var ErrClosed = errors.New("mediaio: closed")

// Default audio layout for blocks handed to the audio cache.
const (
	DefaultSampleRate = 48000
	DefaultChannels   = 2
)

// Options are reader hints. Unknown keys are ignored.
type Options map[string]string

// Option keys understood by the bundled readers.
const (
	OptionSampleRate = "audio.sampleRate"
	OptionChannels   = "audio.channels"
	OptionThreads    = "ffmpeg.threads"
	OptionMaxHeight  = "video.maxHeight"
)

// Int returns the integer value of key, or def.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// Key returns a stable string form of the options for use in cache keys.
func (o Options) Key() string {
	if len(o) == 0 {
		return ""
	}
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(o[k])
	}
	return b.String()
}

// VideoInfo describes the video stream of a file.
type VideoInfo struct {
	Width  int             `json:"width"`
	Height int             `json:"height"`
	Codec  string          `json:"codec,omitempty"`
	Range  otime.TimeRange `json:"range"`
}

// AudioInfo describes the audio stream of a file.
type AudioInfo struct {
	Channels   int             `json:"channels"`
	SampleRate int             `json:"sampleRate"`
	Codec      string          `json:"codec,omitempty"`
	Range      otime.TimeRange `json:"range"`
}

// Info is what a reader knows about its media.
type Info struct {
	Path  string     `json:"path"`
	Video *VideoInfo `json:"video,omitempty"`
	Audio *AudioInfo `json:"audio,omitempty"`
}

// SizeBytes approximates the memory held by an Info.
func (i Info) SizeBytes() int64 {
	return int64(len(i.Path)) + 256
}

// VideoFrame is one decoded image.
type VideoFrame struct {
	Time  otime.RationalTime
	Image *image.NRGBA
}

// SizeBytes returns the pixel storage held by the frame.
func (f *VideoFrame) SizeBytes() int64 {
	if f == nil || f.Image == nil {
		return 0
	}
	return int64(len(f.Image.Pix))
}

// AudioBlock is interleaved float32 PCM covering Range.
type AudioBlock struct {
	Range      otime.TimeRange
	SampleRate int
	Channels   int
	Samples    []float32
}

// NewAudioBlock returns a silent block covering rng.
func NewAudioBlock(rng otime.TimeRange, sampleRate, channels int) *AudioBlock {
	n := int(rng.Duration.Seconds()*float64(sampleRate)+0.5) * channels
	return &AudioBlock{
		Range:      rng,
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    make([]float32, n),
	}
}

// Frames returns the number of sample frames in the block.
func (b *AudioBlock) Frames() int {
	if b == nil || b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// SizeBytes returns the sample storage held by the block.
func (b *AudioBlock) SizeBytes() int64 {
	if b == nil {
		return 0
	}
	return int64(len(b.Samples)) * 4
}

// VideoLayer is the content of one video track at a time. Image is nil over
// a gap. During a transition Image is the outgoing item, ImageB the incoming
// one, and TransitionValue runs from 0 to 1 across the overlap.
type VideoLayer struct {
	Track           int
	Image           *image.NRGBA
	ImageB          *image.NRGBA
	Transition      string
	TransitionValue float64
}

// VideoData is every video layer at one timeline time.
type VideoData struct {
	Time   otime.RationalTime
	Layers []VideoLayer
}

// SizeBytes returns the pixel storage across all layers.
func (d *VideoData) SizeBytes() int64 {
	if d == nil {
		return 0
	}
	var n int64
	for _, l := range d.Layers {
		if l.Image != nil {
			n += int64(len(l.Image.Pix))
		}
		if l.ImageB != nil {
			n += int64(len(l.ImageB.Pix))
		}
	}
	return n
}

// AudioLayer is the content of one audio track over a range.
type AudioLayer struct {
	Track int
	Block *AudioBlock
}

// AudioData is every audio layer over one range.
type AudioData struct {
	Range  otime.TimeRange
	Layers []AudioLayer
}

// SizeBytes returns the sample storage across all layers.
func (d *AudioData) SizeBytes() int64 {
	if d == nil {
		return 0
	}
	var n int64
	for _, l := range d.Layers {
		n += l.Block.SizeBytes()
	}
	return n
}
