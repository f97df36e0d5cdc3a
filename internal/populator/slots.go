package populator

import (
	"math"

	"media-review/internal/otime"
	"media-review/internal/timeline"
)

// SlotFunc lists the cacheable slots that intersect a wanted range.
type SlotFunc func(wanted otime.TimeRange) []otime.TimeRange

// TimelineSlots divides the timeline into slots of the given size, aligned
// to its start, and returns those that intersect wanted and overlap a clip
// on a track of kind. Slots over gaps are never requested.
func TimelineSlots(tl *timeline.Timeline, kind timeline.Kind, size otime.RationalTime) SlotFunc {
	rate := tl.Rate
	bounds := tl.Range().Rescale(rate)
	step := size.Rescale(rate).Value
	if step <= 0 {
		step = 1
	}
	origin := bounds.Start.Value

	return func(wanted otime.TimeRange) []otime.TimeRange {
		spans := tl.Spans(kind, wanted)
		if len(spans) == 0 {
			return nil
		}
		w := wanted.Rescale(rate)
		end := w.End().Value

		var out []otime.TimeRange
		for n := math.Floor((w.Start.Value-origin)/step + 1e-6); origin+n*step < end-1e-6; n++ {
			s, ok := bounds.Intersect(otime.NewRange(otime.New(origin+n*step, rate), otime.New(step, rate)))
			if !ok {
				continue
			}
			for _, span := range spans {
				if span.Range.Intersects(s) {
					out = append(out, s)
					break
				}
			}
		}
		return out
	}
}

// distance is how far slot is from current in frames at the slot's rate.
// A slot containing current is at distance zero.
func distance(slot otime.TimeRange, current otime.RationalTime) float64 {
	cur := current.Rescale(slot.Rate()).Value
	switch {
	case slot.Contains(current):
		return 0
	case slot.Start.Value > cur:
		return slot.Start.Value - cur
	default:
		return cur - slot.EndInclusive().Value
	}
}
