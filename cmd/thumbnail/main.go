package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/term"

	"media-review/internal/otime"
	"media-review/internal/thumbnail"
)

const (
	// Default timeout for rendering one frame
	defaultTimeout = 30 * time.Second
	// timeRate is the resolution of the -time flag
	timeRate = 1000
)

var errTerminal = errors.New("refusing to write image data to a terminal")

type options struct {
	path    string
	height  int
	seconds float64
	format  string
	output  string
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		printUsage()
		os.Exit(2)
	}

	// Create a context that cancels on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("thumbnail", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&opts.height, "height", 128, "thumbnail height in pixels")
	fs.Float64Var(&opts.seconds, "time", 1.5, "time in seconds")
	fs.StringVar(&opts.format, "format", "png", "output format (png or jpeg)")
	fs.StringVar(&opts.output, "o", "-", "output file")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() != 1 {
		return options{}, errors.New("expected exactly one media path")
	}
	opts.path = fs.Arg(0)
	if opts.height <= 0 {
		return options{}, fmt.Errorf("invalid height: %d", opts.height)
	}
	if opts.seconds < 0 {
		return options{}, fmt.Errorf("invalid time: %g", opts.seconds)
	}
	if _, err := imageFormat(opts.format); err != nil {
		return options{}, err
	}
	return opts, nil
}

func imageFormat(name string) (imaging.Format, error) {
	switch strings.ToLower(name) {
	case "png":
		return imaging.PNG, nil
	case "jpg", "jpeg":
		return imaging.JPEG, nil
	default:
		return 0, fmt.Errorf("unsupported format: %s", name)
	}
}

// run renders the frame and writes it to opts.output, or to stdout when the
// output is "-".
func run(ctx context.Context, opts options, stdout *os.File) error {
	format, err := imageFormat(opts.format)
	if err != nil {
		return err
	}
	if opts.output == "-" && term.IsTerminal(int(stdout.Fd())) {
		return errTerminal
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	thumbnail.InitVips()
	defer thumbnail.ShutdownVips()

	sysOpts := thumbnail.DefaultOptions()
	sysOpts.ThumbnailWorkers = 1
	thumbs := thumbnail.New(sysOpts)
	defer thumbs.Close()

	t := otime.FromSeconds(opts.seconds, timeRate)
	img, err := thumbs.GetThumbnail(opts.path, opts.height, t, nil).Future.Wait(ctx)
	if err != nil {
		return fmt.Errorf("render %s: %w", opts.path, err)
	}

	var w io.Writer = stdout
	if opts.output != "-" {
		f, err := os.Create(opts.output)
		if err != nil {
			return err
		}
		defer func() {
			if err := f.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close %s: %v\n", opts.output, err)
			}
		}()
		w = f
	}
	return imaging.Encode(w, img, format, imaging.JPEGQuality(85))
}

func printUsage() {
	fmt.Println("Media Review Thumbnail Renderer")
	fmt.Println("")
	fmt.Println("Usage: thumbnail [flags] <path>")
	fmt.Println("")
	fmt.Println("Flags:")
	fmt.Println("  -height  Thumbnail height in pixels (default 128)")
	fmt.Println("  -time    Time in seconds (default 1.5)")
	fmt.Println("  -format  png or jpeg (default png)")
	fmt.Println("  -o       Output file, - for stdout (default -)")
}
