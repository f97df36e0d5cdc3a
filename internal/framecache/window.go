package framecache

import (
	"errors"
	"fmt"
	"math"
	"time"

	"media-review/internal/otime"
)

// ErrInvalidWindow is returned by Window.Validate.
var ErrInvalidWindow = errors.New("invalid cache window")

// Window is the span of time kept cached around the current time.
type Window struct {
	ReadAhead  time.Duration `json:"readAhead"`
	ReadBehind time.Duration `json:"readBehind"`
}

// Validate rejects negative durations.
func (w Window) Validate() error {
	if w.ReadAhead < 0 || w.ReadBehind < 0 {
		return fmt.Errorf("%w: ahead %v, behind %v", ErrInvalidWindow, w.ReadAhead, w.ReadBehind)
	}
	return nil
}

// Range returns the whole frames within [current-ReadBehind,
// current+ReadAhead], clamped to bounds, at the rate of bounds.
func (w Window) Range(current otime.RationalTime, bounds otime.TimeRange) otime.TimeRange {
	rate := bounds.Rate()
	cur := current.Rescale(rate).Value
	first := math.Ceil(cur - w.ReadBehind.Seconds()*rate - 1e-6)
	last := math.Floor(cur + w.ReadAhead.Seconds()*rate + 1e-6)
	if last < first {
		last = first
	}
	rng := otime.RangeFromStartEndInclusive(otime.New(first, rate), otime.New(last, rate))
	return bounds.ClampRange(rng)
}

// Info is a snapshot of both caches for display.
type Info struct {
	VideoPercentageUsed float64           `json:"videoPercentageUsed"`
	CachedVideoRanges   []otime.TimeRange `json:"cachedVideoRanges"`
	CachedAudioRanges   []otime.TimeRange `json:"cachedAudioRanges"`
}

// Equal reports whether two snapshots show the same coverage.
func (i Info) Equal(o Info) bool {
	return i.VideoPercentageUsed == o.VideoPercentageUsed &&
		RangesEqual(i.CachedVideoRanges, o.CachedVideoRanges) &&
		RangesEqual(i.CachedAudioRanges, o.CachedAudioRanges)
}

// RangesEqual compares two range lists element by element.
func RangesEqual(a, b []otime.TimeRange) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
