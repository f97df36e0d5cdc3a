package thumbnail

import (
	"crypto/md5"
	"fmt"
	"image"

	"media-review/internal/mediaio"
	"media-review/internal/otime"
)

// cacheKey hashes the request parts into a fixed-length key.
func cacheKey(kind, path string, parts string, opts mediaio.Options) string {
	sum := md5.Sum([]byte(kind + "\x00" + path + "\x00" + parts + "\x00" + opts.Key()))
	return fmt.Sprintf("%s-%x", kind, sum)
}

func infoKey(path string, opts mediaio.Options) string {
	return cacheKey(kindInfo, path, "", opts)
}

func thumbnailKey(path string, height int, t otime.RationalTime, opts mediaio.Options) string {
	return cacheKey(kindThumbnail, path, fmt.Sprintf("%d@%g", height, t.Seconds()), opts)
}

func waveformKey(path string, size image.Point, rng otime.TimeRange, opts mediaio.Options) string {
	return cacheKey(kindWaveform, path,
		fmt.Sprintf("%dx%d@%g+%g", size.X, size.Y, rng.Start.Seconds(), rng.Duration.Seconds()), opts)
}
