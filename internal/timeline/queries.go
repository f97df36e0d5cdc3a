package timeline

import (
	"sort"

	"media-review/internal/otime"
)

// Span is the part of a clip that intersects a queried range.
type Span struct {
	Track     int
	Item      int
	MediaPath string

	// Range is in timeline time; Source is the matching media time.
	Range  otime.TimeRange
	Source otime.TimeRange
}

// Transition describes a transition on a track.
type Transition struct {
	Track int
	Item  int
	Name  string

	// Range is the overlap region around the cut.
	Range otime.TimeRange

	// From and To are the item indexes of the outgoing and incoming items.
	From, To int
}

// Value returns the blend position of t inside the transition, from 0 at
// the start of the overlap to 1 at its end.
func (tr Transition) Value(t otime.RationalTime) float64 {
	d := tr.Range.Duration.Value
	if d <= 0 {
		return 0
	}
	v := t.Rescale(tr.Range.Rate()).Sub(tr.Range.Start).Value / d
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Range returns the timeline's extent, starting at GlobalStart.
func (t *Timeline) Range() otime.TimeRange {
	return otime.NewRange(t.GlobalStart, t.duration)
}

// Duration returns the length of the longest track.
func (t *Timeline) Duration() otime.RationalTime { return t.duration }

// TimeRangeOf returns the track time of an item.
func (t *Timeline) TimeRangeOf(track, item int) (otime.TimeRange, bool) {
	if track < 0 || track >= len(t.ranges) || item < 0 || item >= len(t.ranges[track]) {
		return otime.TimeRange{}, false
	}
	return t.ranges[track][item], true
}

// ItemAt returns the index of the clip or gap under time on track.
func (t *Timeline) ItemAt(track int, time otime.RationalTime) (int, bool) {
	if track < 0 || track >= len(t.ranges) {
		return 0, false
	}
	ranges := t.ranges[track]
	items := t.Tracks[track].Items
	for i, r := range ranges {
		if items[i].Kind == TransitionItem {
			continue
		}
		if r.Contains(time) {
			return i, true
		}
	}
	return 0, false
}

// TimeRangeAt returns the range of the clip under time on the first track
// of kind that has one.
func (t *Timeline) TimeRangeAt(kind Kind, time otime.RationalTime) (otime.TimeRange, bool) {
	for ti, track := range t.Tracks {
		if track.Kind != kind {
			continue
		}
		if ii, ok := t.ItemAt(ti, time); ok && track.Items[ii].Kind == ClipItem {
			return t.ranges[ti][ii], true
		}
	}
	return otime.TimeRange{}, false
}

// AvailableRange returns the media extent of an item, if known.
func (t *Timeline) AvailableRange(track, item int) (otime.TimeRange, bool) {
	if track < 0 || track >= len(t.Tracks) || item < 0 || item >= len(t.Tracks[track].Items) {
		return otime.TimeRange{}, false
	}
	ar := t.Tracks[track].Items[item].AvailableRange
	if ar == nil {
		return otime.TimeRange{}, false
	}
	return *ar, true
}

// SourceTime maps a timeline time to the media time of an item. Times
// before or after the item, as read by transitions, extrapolate from its
// trimmed range and are clamped to the available range when one is set.
func (t *Timeline) SourceTime(track, item int, time otime.RationalTime) otime.RationalTime {
	it := t.Tracks[track].Items[item]
	r := t.ranges[track][item]
	offset := time.Sub(r.Start)
	src := it.SourceRange.Start.Add(offset)
	if it.AvailableRange != nil && !it.AvailableRange.IsEmpty() {
		src = it.AvailableRange.ClampTime(src)
	}
	return src
}

// Spans returns every clip on tracks of kind that intersects rng, ordered by
// start time and then track.
func (t *Timeline) Spans(kind Kind, rng otime.TimeRange) []Span {
	var out []Span
	for ti, track := range t.Tracks {
		if track.Kind != kind {
			continue
		}
		for ii, it := range track.Items {
			if it.Kind != ClipItem {
				continue
			}
			r, ok := t.ranges[ti][ii].Intersect(rng)
			if !ok {
				continue
			}
			start := t.SourceTime(ti, ii, r.Start)
			out = append(out, Span{
				Track:     ti,
				Item:      ii,
				MediaPath: it.MediaPath,
				Range:     r,
				Source:    otime.NewRange(start, r.Duration.Rescale(start.Rate)),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Range.Start.Compare(out[j].Range.Start); c != 0 {
			return c < 0
		}
		return out[i].Track < out[j].Track
	})
	return out
}

// TransitionAt returns the transition whose overlap contains time on track.
func (t *Timeline) TransitionAt(track int, time otime.RationalTime) (Transition, bool) {
	if track < 0 || track >= len(t.Tracks) {
		return Transition{}, false
	}
	for ii, it := range t.Tracks[track].Items {
		if it.Kind != TransitionItem {
			continue
		}
		r := t.ranges[track][ii]
		if r.Contains(time) {
			return Transition{
				Track: track,
				Item:  ii,
				Name:  it.Name,
				Range: r,
				From:  ii - 1,
				To:    ii + 1,
			}, true
		}
	}
	return Transition{}, false
}

// TrackIndexes returns the indexes of the tracks of kind, in order.
func (t *Timeline) TrackIndexes(kind Kind) []int {
	var out []int
	for i, track := range t.Tracks {
		if track.Kind == kind {
			out = append(out, i)
		}
	}
	return out
}

// VideoTrackCount returns the number of video tracks.
func (t *Timeline) VideoTrackCount() int { return len(t.TrackIndexes(Video)) }

// MediaPaths returns every distinct clip media path in order of appearance.
func (t *Timeline) MediaPaths() []string {
	seen := make(map[string]bool)
	var out []string
	for _, track := range t.Tracks {
		for _, it := range track.Items {
			if it.Kind != ClipItem || seen[it.MediaPath] {
				continue
			}
			seen[it.MediaPath] = true
			out = append(out, it.MediaPath)
		}
	}
	return out
}
