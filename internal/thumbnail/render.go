package thumbnail

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"media-review/internal/filesystem"
	"media-review/internal/logging"
	"media-review/internal/mediaio"
	"media-review/internal/mediatypes"
	"media-review/internal/metrics"
	"media-review/internal/otime"
)

// Waveform is a min/max mesh of an audio range with one column per pixel
// of Size.X. Values are mixed across channels and lie in [-1, 1].
type Waveform struct {
	Size  image.Point     `json:"size"`
	Range otime.TimeRange `json:"range"`
	Min   []float32       `json:"min"`
	Max   []float32       `json:"max"`
}

// SizeBytes approximates the memory held by the mesh.
func (w *Waveform) SizeBytes() int64 {
	if w == nil {
		return 0
	}
	return int64(len(w.Min)+len(w.Max))*4 + 64
}

// Image draws the mesh as vertical strokes on a transparent background.
func (w *Waveform) Image(c color.Color) *image.NRGBA {
	img := imaging.New(w.Size.X, w.Size.Y, color.Transparent)
	mid := float32(w.Size.Y-1) / 2
	for x := range w.Min {
		top := int(mid - w.Max[x]*mid)
		bottom := int(mid - w.Min[x]*mid)
		for y := top; y <= bottom; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// buildWaveform reduces a block to size.X columns.
func buildWaveform(b *mediaio.AudioBlock, size image.Point, rng otime.TimeRange) *Waveform {
	w := &Waveform{
		Size:  size,
		Range: rng,
		Min:   make([]float32, size.X),
		Max:   make([]float32, size.X),
	}
	frames := b.Frames()
	if frames == 0 {
		return w
	}
	for col := 0; col < size.X; col++ {
		start := col * frames / size.X
		end := min(frames, max(start+1, (col+1)*frames/size.X))
		lo, hi := float32(1), float32(-1)
		for i := start * b.Channels; i < end*b.Channels; i++ {
			s := max(-1, min(1, b.Samples[i]))
			lo = min(lo, s)
			hi = max(hi, s)
		}
		if lo > hi {
			lo, hi = 0, 0
		}
		w.Min[col], w.Max[col] = lo, hi
	}
	return w
}

type renderer struct {
	open mediaio.Opener
}

func (r renderer) reader(path string) (mediaio.Reader, error) {
	rd, err := r.open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return rd, nil
}

func (r renderer) info(ctx context.Context, path string) (mediaio.Info, error) {
	rd, err := r.reader(path)
	if err != nil {
		return mediaio.Info{}, err
	}
	defer rd.Close()
	return rd.Info(ctx)
}

// thumbnail scales the frame at t to height rows. Stills go through vips
// when it is running and fall back to the reader otherwise.
func (r renderer) thumbnail(ctx context.Context, path string, height int, t otime.RationalTime, opts mediaio.Options) (*image.NRGBA, error) {
	still := mediatypes.IsStillImage(path)
	if still && VipsAvailable() {
		img, err := loadWithVips(path, height)
		if err == nil {
			metrics.ThumbnailImageDecodeByFormat.WithLabelValues(detectFormat(path), "vips").Inc()
			return img, nil
		}
		logging.Debug("Vips failed for %s, falling back to imaging: %v", path, err)
	}

	rd, err := r.reader(path)
	if err != nil {
		return nil, err
	}
	defer rd.Close()

	frame, err := rd.ReadVideo(ctx, t, opts)
	if err != nil {
		return nil, err
	}
	if still {
		metrics.ThumbnailImageDecodeByFormat.WithLabelValues(detectFormat(path), "imaging").Inc()
	}
	return imaging.Resize(frame.Image, 0, height, imaging.Lanczos), nil
}

func (r renderer) waveform(ctx context.Context, path string, size image.Point, rng otime.TimeRange, opts mediaio.Options) (*Waveform, error) {
	rd, err := r.reader(path)
	if err != nil {
		return nil, err
	}
	defer rd.Close()

	b, err := rd.ReadAudio(ctx, rng, opts)
	if err != nil {
		return nil, err
	}
	return buildWaveform(b, size, rng), nil
}

// detectFormat sniffs the container of a still image for metric labels.
func detectFormat(path string) string {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return "unknown"
	}
	defer f.Close()

	h := make([]byte, 12)
	n, _ := f.Read(h)
	h = h[:n]

	switch {
	case len(h) >= 3 && h[0] == 0xFF && h[1] == 0xD8 && h[2] == 0xFF:
		return "jpeg"
	case len(h) >= 4 && h[0] == 0x89 && h[1] == 'P' && h[2] == 'N' && h[3] == 'G':
		return "png"
	case len(h) >= 4 && string(h[:4]) == "GIF8":
		return "gif"
	case len(h) >= 12 && string(h[:4]) == "RIFF" && string(h[8:12]) == "WEBP":
		return "webp"
	case len(h) >= 2 && h[0] == 'B' && h[1] == 'M':
		return "bmp"
	case len(h) >= 4 && (string(h[:4]) == "II*\x00" || string(h[:4]) == "MM\x00*"):
		return "tiff"
	case len(h) >= 12 && string(h[4:8]) == "ftyp":
		switch string(h[8:12]) {
		case "heic", "heix", "hevc", "hevx", "mif1", "msf1":
			return "heic"
		case "avif", "avis":
			return "avif"
		}
	}
	return "unknown"
}
