package mediaio

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"media-review/internal/logging"
	"media-review/internal/metrics"
	"media-review/internal/otime"
)

// FFmpegReader decodes files by running ffmpeg and ffprobe. Every read is
// its own process; Close kills any that are still running.
type FFmpegReader struct {
	path string

	infoMu   sync.Mutex
	infoDone bool
	info     Info
	infoErr  error

	processMu sync.Mutex
	processes map[int]*exec.Cmd
	nextID    int
	closed    bool
}

// NewFFmpegReader returns a reader for path. Nothing runs until the first
// request.
func NewFFmpegReader(path string) *FFmpegReader {
	return &FFmpegReader{path: path, processes: make(map[int]*exec.Cmd)}
}

type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		SampleRate   string `json:"sample_rate"`
		Channels     int    `json:"channels"`
		StartTime    string `json:"start_time"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// parseRate parses ffprobe's "num/den" rates.
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

func parseSeconds(values ...string) float64 {
	for _, v := range values {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return 0
}

// Info runs ffprobe once and caches the result. A probe interrupted by ctx
// is not cached.
func (r *FFmpegReader) Info(ctx context.Context) (Info, error) {
	r.infoMu.Lock()
	defer r.infoMu.Unlock()

	if r.infoDone {
		return r.info, r.infoErr
	}
	info, err := r.probe(ctx)
	if err != nil && ctx.Err() != nil {
		return Info{}, err
	}
	r.info, r.infoErr, r.infoDone = info, err, true
	return info, err
}

func (r *FFmpegReader) probe(ctx context.Context) (Info, error) {
	out, err := r.run(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		r.path,
	)
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe error: %w", err)
	}

	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return Info{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := Info{Path: r.path}
	for _, s := range probe.Streams {
		seconds := parseSeconds(s.Duration, probe.Format.Duration)
		switch s.CodecType {
		case "video":
			if info.Video != nil {
				continue
			}
			rate := parseRate(s.AvgFrameRate)
			if rate <= 0 {
				rate = 24
			}
			start := otime.FromSeconds(parseSeconds(s.StartTime), rate).Round()
			info.Video = &VideoInfo{
				Width:  s.Width,
				Height: s.Height,
				Codec:  s.CodecName,
				Range:  otime.NewRange(start, otime.FromSeconds(seconds, rate).Round()),
			}
		case "audio":
			if info.Audio != nil {
				continue
			}
			sr, _ := strconv.Atoi(s.SampleRate)
			if sr <= 0 {
				sr = DefaultSampleRate
			}
			info.Audio = &AudioInfo{
				Channels:   s.Channels,
				SampleRate: sr,
				Codec:      s.CodecName,
				Range:      otime.NewRange(otime.New(0, float64(sr)), otime.FromSeconds(seconds, float64(sr))),
			}
		}
	}
	if info.Video == nil && info.Audio == nil {
		return Info{}, fmt.Errorf("%s has no video or audio streams", r.path)
	}
	return info, nil
}

// ReadVideo extracts one RGBA frame at t, scaled down to the
// video.maxHeight option when set.
func (r *FFmpegReader) ReadVideo(ctx context.Context, t otime.RationalTime, opts Options) (*VideoFrame, error) {
	info, err := r.Info(ctx)
	if err != nil {
		return nil, err
	}
	if info.Video == nil {
		return nil, fmt.Errorf("%s has no video stream", r.path)
	}

	w, h := info.Video.Width, info.Video.Height
	args := []string{
		"-v", "error",
		"-ss", formatSeconds(t.Seconds()),
		"-i", r.path,
		"-frames:v", "1",
		"-threads", strconv.Itoa(opts.Int(OptionThreads, 1)),
	}
	if mh := opts.Int(OptionMaxHeight, 0); mh > 0 && mh < h {
		w = max(w*mh/h/2*2, 2)
		h = mh
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", w, h))
	}
	args = append(args, "-f", "rawvideo", "-pix_fmt", "rgba", "-")

	out, err := r.run(ctx, "ffmpeg", args...)
	if err != nil {
		return nil, err
	}
	if len(out) < w*h*4 {
		return nil, fmt.Errorf("ffmpeg produced %d bytes for a %dx%d frame at %v", len(out), w, h, t)
	}

	img := &image.NRGBA{
		Pix:    out[:w*h*4],
		Stride: w * 4,
		Rect:   image.Rect(0, 0, w, h),
	}
	return &VideoFrame{Time: t, Image: img}, nil
}

// ReadAudio decodes rng as interleaved float32 samples resampled to the
// requested layout.
func (r *FFmpegReader) ReadAudio(ctx context.Context, rng otime.TimeRange, opts Options) (*AudioBlock, error) {
	info, err := r.Info(ctx)
	if err != nil {
		return nil, err
	}
	if info.Audio == nil {
		return nil, ErrNoAudio
	}

	sampleRate := opts.Int(OptionSampleRate, DefaultSampleRate)
	channels := opts.Int(OptionChannels, DefaultChannels)

	out, err := r.run(ctx, "ffmpeg",
		"-v", "error",
		"-ss", formatSeconds(rng.Start.Seconds()),
		"-t", formatSeconds(rng.Duration.Seconds()),
		"-i", r.path,
		"-vn",
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(sampleRate),
		"-f", "f32le",
		"-",
	)
	if err != nil {
		return nil, err
	}

	block := NewAudioBlock(rng, sampleRate, channels)
	n := min(len(out)/4, len(block.Samples))
	for i := 0; i < n; i++ {
		block.Samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(out[i*4:]))
	}
	return block, nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(math.Max(s, 0), 'f', 6, 64)
}

// run executes a tracked subprocess and returns its stdout.
func (r *FFmpegReader) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.processMu.Lock()
	if r.closed {
		r.processMu.Unlock()
		return nil, ErrClosed
	}
	if err := cmd.Start(); err != nil {
		r.processMu.Unlock()
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}
	id := r.nextID
	r.nextID++
	r.processes[id] = cmd
	r.processMu.Unlock()
	metrics.IOProcessesRunning.Inc()

	err := cmd.Wait()

	r.processMu.Lock()
	delete(r.processes, id)
	r.processMu.Unlock()
	metrics.IOProcessesRunning.Dec()

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s error: %w - %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Close kills every running process and rejects later reads.
func (r *FFmpegReader) Close() error {
	r.processMu.Lock()
	defer r.processMu.Unlock()

	r.closed = true
	for _, cmd := range r.processes {
		if cmd.Process != nil {
			logging.Debug("Killing ffmpeg process for: %s", r.path)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill ffmpeg process for %s: %v", r.path, err)
			}
		}
	}
	return nil
}
