package mediaio

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support

	"media-review/internal/filesystem"
	"media-review/internal/logging"
	"media-review/internal/otime"
)

// MaxImageDimension bounds the decoded size of still images. Larger
// images are downscaled once at load.
const MaxImageDimension = 4096

// ErrNoAudio is returned by readers of media without an audio stream.
var ErrNoAudio = errors.New("media has no audio")

// ImageReader serves a still image as a video that holds the same frame
// at every time. The image is decoded on first use.
type ImageReader struct {
	path   string
	once   sync.Once
	img    *image.NRGBA
	err    error
	closed atomic.Bool
}

// NewImageReader returns a reader for the still image at path.
func NewImageReader(path string) *ImageReader {
	return &ImageReader{path: path}
}

func (r *ImageReader) load() (*image.NRGBA, error) {
	r.once.Do(func() {
		f, err := filesystem.OpenWithRetry(r.path, filesystem.DefaultRetryConfig())
		if err != nil {
			r.err = err
			return
		}
		defer f.Close()

		img, err := imaging.Decode(f, imaging.AutoOrientation(true))
		if err != nil {
			r.err = fmt.Errorf("decode image %s: %w", r.path, err)
			return
		}
		b := img.Bounds()
		if b.Dx() > MaxImageDimension || b.Dy() > MaxImageDimension {
			logging.Info("Constraining large image %s from %dx%d", r.path, b.Dx(), b.Dy())
			img = imaging.Fit(img, MaxImageDimension, MaxImageDimension, imaging.Lanczos)
		}
		r.img = imaging.Clone(img)
	})
	return r.img, r.err
}

// Info reports the image dimensions without decoding pixels.
func (r *ImageReader) Info(_ context.Context) (Info, error) {
	if r.closed.Load() {
		return Info{}, ErrClosed
	}
	f, err := filesystem.OpenWithRetry(r.path, filesystem.DefaultRetryConfig())
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Info{}, fmt.Errorf("read image header %s: %w", r.path, err)
	}
	return Info{
		Path: r.path,
		Video: &VideoInfo{
			Width:  cfg.Width,
			Height: cfg.Height,
			Codec:  format,
			Range:  otime.NewRange(otime.New(0, 24), otime.New(1, 24)),
		},
	}, nil
}

// ReadVideo returns the decoded image for any time.
func (r *ImageReader) ReadVideo(ctx context.Context, t otime.RationalTime, _ Options) (*VideoFrame, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := r.load()
	if err != nil {
		return nil, err
	}
	return &VideoFrame{Time: t, Image: img}, nil
}

// ReadAudio always fails: still images carry no audio.
func (r *ImageReader) ReadAudio(context.Context, otime.TimeRange, Options) (*AudioBlock, error) {
	return nil, ErrNoAudio
}

// Close marks the reader closed.
func (r *ImageReader) Close() error {
	r.closed.Store(true)
	return nil
}
