package thumbnail

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"

	"media-review/internal/logging"
	"media-review/internal/otime"
)

func TestStillThumbnailWithoutVips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "still.png")
	if err := imaging.Save(imaging.New(120, 60, color.NRGBA{200, 0, 0, 255}), path); err != nil {
		t.Fatal(err)
	}
	if VipsAvailable() {
		t.Skip("libvips is running in this process")
	}

	s := newTestSystem(t, 1<<20)
	img, err := wait(t, s.GetThumbnail(path, 30, otime.New(0, 24), nil))
	if err != nil {
		t.Fatalf("GetThumbnail: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 60 || b.Dy() != 30 {
		t.Errorf("size = %v, want 60x30", b.Size())
	}
	if c := img.NRGBAAt(30, 15); c.R < 190 || c.G > 10 {
		t.Errorf("pixel = %v, want red", c)
	}
}

func TestDetectFormat(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "a.png")
	if err := imaging.Save(imaging.New(2, 2, color.Black), png); err != nil {
		t.Fatal(err)
	}
	jpg := filepath.Join(dir, "a.jpg")
	if err := imaging.Save(imaging.New(2, 2, color.Black), jpg); err != nil {
		t.Fatal(err)
	}
	webp := filepath.Join(dir, "a.webp")
	if err := os.WriteFile(webp, []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), 0o644); err != nil {
		t.Fatal(err)
	}
	text := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(text, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		want string
	}{
		{png, "png"},
		{jpg, "jpeg"},
		{webp, "webp"},
		{text, "unknown"},
		{filepath.Join(dir, "missing"), "unknown"},
	}
	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			if got := detectFormat(tt.path); got != tt.want {
				t.Errorf("detectFormat = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVipsLogging(t *testing.T) {
	tests := []struct {
		level logging.LogLevel
		want  vips.LogLevel
	}{
		{logging.LevelDebug, vips.LogLevelInfo},
		{logging.LevelInfo, vips.LogLevelWarning},
		{logging.LevelWarn, vips.LogLevelError},
		{logging.LevelError, vips.LogLevelCritical},
	}
	for _, tt := range tests {
		got, handler := vipsLogging(tt.level)
		if got != tt.want {
			t.Errorf("vipsLogging(%v) = %v, want %v", tt.level, got, tt.want)
		}
		if handler == nil {
			t.Errorf("vipsLogging(%v) has no handler", tt.level)
		}
	}
}
