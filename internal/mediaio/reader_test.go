package mediaio

import (
	"context"
	"errors"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"media-review/internal/otime"
)

func TestPatternReaderVideo(t *testing.T) {
	r, err := NewPatternReader("pattern:checker?width=32&height=16&rate=25&fail=7")
	if err != nil {
		t.Fatalf("NewPatternReader: %v", err)
	}
	defer r.Close()

	f, err := r.ReadVideo(context.Background(), otime.New(5, 25), nil)
	if err != nil {
		t.Fatalf("ReadVideo: %v", err)
	}
	if b := f.Image.Bounds(); b.Dx() != 32 || b.Dy() != 16 {
		t.Errorf("bounds = %v, want 32x16", b)
	}
	// The frame marker sits in the bottom row at x = frame.
	if c := f.Image.NRGBAAt(5, 15); c != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("marker pixel = %v, want white", c)
	}
	if f.SizeBytes() != 32*16*4 {
		t.Errorf("SizeBytes = %d", f.SizeBytes())
	}

	if _, err := r.ReadVideo(context.Background(), otime.New(7, 25), nil); err == nil {
		t.Error("frame 7 should fail")
	}
}

func TestPatternReaderAudioIsContinuous(t *testing.T) {
	r, err := NewPatternReader("pattern:bars?tone=100")
	if err != nil {
		t.Fatalf("NewPatternReader: %v", err)
	}
	opts := Options{OptionSampleRate: "1000", OptionChannels: "2"}

	whole, err := r.ReadAudio(context.Background(), otime.NewRange(otime.New(0, 1), otime.New(1, 1)), opts)
	if err != nil {
		t.Fatalf("ReadAudio: %v", err)
	}
	tail, err := r.ReadAudio(context.Background(), otime.NewRange(otime.New(500, 1000), otime.New(500, 1000)), opts)
	if err != nil {
		t.Fatalf("ReadAudio: %v", err)
	}
	if whole.Frames() != 1000 || tail.Frames() != 500 {
		t.Fatalf("frames = %d, %d", whole.Frames(), tail.Frames())
	}
	for i := range tail.Samples {
		if tail.Samples[i] != whole.Samples[1000+i] {
			t.Fatalf("sample %d differs: %v vs %v", i, tail.Samples[i], whole.Samples[1000+i])
		}
	}
}

func TestPatternReaderErrors(t *testing.T) {
	if _, err := NewPatternReader("pattern:plasma"); err == nil {
		t.Error("unknown pattern should fail")
	}
	if _, err := NewPatternReader("pattern:bars?delay=soon"); err == nil {
		t.Error("bad delay should fail")
	}

	r, err := NewPatternReader("pattern:bars?delay=1h")
	if err != nil {
		t.Fatalf("NewPatternReader: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.ReadVideo(ctx, otime.New(0, 24), nil); !errors.Is(err, context.Canceled) {
		t.Errorf("ReadVideo with cancelled ctx = %v", err)
	}
	r.Close()
	if _, err := r.Info(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Info after close = %v, want ErrClosed", err)
	}
}

func TestImageReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "still.png")
	if err := imaging.Save(imaging.New(40, 20, color.NRGBA{10, 20, 30, 255}), path); err != nil {
		t.Fatalf("save: %v", err)
	}

	r := NewImageReader(path)
	defer r.Close()

	info, err := r.Info(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Video == nil || info.Video.Width != 40 || info.Video.Height != 20 {
		t.Errorf("Info = %+v", info.Video)
	}
	a, err := r.ReadVideo(context.Background(), otime.New(0, 24), nil)
	if err != nil {
		t.Fatalf("ReadVideo: %v", err)
	}
	b, err := r.ReadVideo(context.Background(), otime.New(100, 24), nil)
	if err != nil {
		t.Fatalf("ReadVideo: %v", err)
	}
	if a.Image != b.Image {
		t.Error("a still image should return the same frame at every time")
	}
	if _, err := r.ReadAudio(context.Background(), otime.NewRange(otime.New(0, 1), otime.New(1, 1)), nil); !errors.Is(err, ErrNoAudio) {
		t.Errorf("ReadAudio = %v, want ErrNoAudio", err)
	}
}

func TestDefaultOpener(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"pattern:bars", "pattern", false},
		{"/media/still.JPG", "image", false},
		{"/media/shot.mov", "ffmpeg", false},
		{"/media/mix.wav", "ffmpeg", false},
		{"/media/notes.txt", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			r, err := DefaultOpener(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && readerName(r) != tt.want {
				t.Errorf("reader = %s, want %s", readerName(r), tt.want)
			}
		})
	}
}

func TestOptions(t *testing.T) {
	o := Options{OptionSampleRate: "44100", OptionChannels: "x", OptionMaxHeight: "720"}
	if got := o.Int(OptionSampleRate, 1); got != 44100 {
		t.Errorf("Int(sampleRate) = %d", got)
	}
	if got := o.Int(OptionChannels, 2); got != 2 {
		t.Errorf("Int(channels) = %d, want fallback 2", got)
	}
	if got, want := o.Key(), "audio.channels=x;audio.sampleRate=44100;video.maxHeight=720"; got != want {
		t.Errorf("Key = %q, want %q", got, want)
	}
	if (Options{}).Key() != "" {
		t.Error("empty options should have an empty key")
	}
}

func TestFFprobeParsing(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"24/1", 24},
		{"30000/1001", 30000.0 / 1001},
		{"25", 25},
		{"0/0", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := parseRate(tt.in); got != tt.want {
			t.Errorf("parseRate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if got := parseSeconds("N/A", "", "12.5"); got != 12.5 {
		t.Errorf("parseSeconds = %v, want 12.5", got)
	}
}
