package timeline

import (
	"errors"

	"media-review/internal/otime"
)

// ErrInvalidTimeline is wrapped by every validation and load error.
var ErrInvalidTimeline = errors.New("invalid timeline")

// Kind is the media kind of a track.
type Kind string

const (
	Video Kind = "video"
	Audio Kind = "audio"
)

// ItemKind distinguishes the entries of a track.
type ItemKind string

const (
	ClipItem       ItemKind = "clip"
	GapItem        ItemKind = "gap"
	TransitionItem ItemKind = "transition"
)

// Item is one entry of a track.
type Item struct {
	Kind ItemKind `json:"kind"`
	Name string   `json:"name,omitempty"`

	// MediaPath is the file (or pattern: URI) a clip reads from.
	MediaPath string `json:"media,omitempty"`

	// SourceRange is the trimmed range of the media used by a clip, or the
	// duration of a gap.
	SourceRange otime.TimeRange `json:"sourceRange"`

	// AvailableRange is the full extent of the media, when known.
	AvailableRange *otime.TimeRange `json:"availableRange,omitempty"`

	// InOffset and OutOffset are the overlap of a transition into the
	// outgoing and incoming items.
	InOffset  otime.RationalTime `json:"inOffset"`
	OutOffset otime.RationalTime `json:"outOffset"`
}

// Duration returns the track time the item occupies.
func (i Item) Duration() otime.RationalTime {
	if i.Kind == TransitionItem {
		return otime.RationalTime{Rate: i.SourceRange.Rate()}
	}
	return i.SourceRange.Duration
}

// Track is a named sequence of items of one kind.
type Track struct {
	Name  string `json:"name,omitempty"`
	Kind  Kind   `json:"kind"`
	Items []Item `json:"items"`
}

// Timeline is an immutable set of tracks over a global time axis.
type Timeline struct {
	Name        string             `json:"name,omitempty"`
	Rate        float64            `json:"rate"`
	GlobalStart otime.RationalTime `json:"globalStart"`
	Tracks      []Track            `json:"tracks"`

	// ranges[track][item] is the track time of each item. Transitions hold
	// their overlap region around the cut.
	ranges   [][]otime.TimeRange
	duration otime.RationalTime
}

// New validates tracks and lays them out. The returned Timeline owns tracks.
func New(name string, rate float64, tracks ...Track) (*Timeline, error) {
	t := &Timeline{
		Name:        name,
		Rate:        rate,
		GlobalStart: otime.New(0, rate),
		Tracks:      tracks,
	}
	if err := t.build(); err != nil {
		return nil, err
	}
	return t, nil
}

// NewClip returns a clip item reading sourceRange of path.
func NewClip(name, path string, sourceRange otime.TimeRange) Item {
	return Item{Kind: ClipItem, Name: name, MediaPath: path, SourceRange: sourceRange}
}

// NewGap returns a gap of the given duration.
func NewGap(duration otime.RationalTime) Item {
	return Item{
		Kind:        GapItem,
		SourceRange: otime.NewRange(otime.RationalTime{Rate: duration.Rate}, duration),
	}
}

// NewTransition returns a transition overlapping its neighbours by in and out.
func NewTransition(name string, in, out otime.RationalTime) Item {
	return Item{
		Kind:        TransitionItem,
		Name:        name,
		SourceRange: otime.TimeRange{Start: otime.RationalTime{Rate: in.Rate}, Duration: otime.RationalTime{Rate: in.Rate}},
		InOffset:    in,
		OutOffset:   out,
	}
}

// build normalizes rates, validates and computes the layout.
func (t *Timeline) build() error {
	if t.GlobalStart.Rate <= 0 {
		t.GlobalStart = otime.New(t.GlobalStart.Value, t.Rate)
	}
	for ti := range t.Tracks {
		items := t.Tracks[ti].Items
		for ii := range items {
			normalizeItem(&items[ii], t.Rate)
		}
	}
	if err := t.Validate(); err != nil {
		return err
	}
	t.layout()
	return nil
}

func normalizeItem(it *Item, rate float64) {
	fix := func(v *otime.RationalTime, def float64) {
		if v.Rate <= 0 {
			v.Rate = def
		}
	}
	fix(&it.SourceRange.Start, rate)
	fix(&it.SourceRange.Duration, it.SourceRange.Start.Rate)
	fix(&it.InOffset, rate)
	fix(&it.OutOffset, rate)
	if it.AvailableRange != nil {
		fix(&it.AvailableRange.Start, it.SourceRange.Start.Rate)
		fix(&it.AvailableRange.Duration, it.AvailableRange.Start.Rate)
	}
}

func (t *Timeline) layout() {
	t.ranges = make([][]otime.TimeRange, len(t.Tracks))
	t.duration = otime.RationalTime{Rate: t.Rate}
	for ti, track := range t.Tracks {
		ranges := make([]otime.TimeRange, len(track.Items))
		cursor := t.GlobalStart
		for ii, it := range track.Items {
			if it.Kind == TransitionItem {
				start := cursor.Sub(it.InOffset)
				ranges[ii] = otime.RangeFromStartEnd(start, cursor.Add(it.OutOffset))
				continue
			}
			d := it.Duration().Rescale(t.Rate)
			ranges[ii] = otime.NewRange(cursor, d)
			cursor = cursor.Add(d)
		}
		t.ranges[ti] = ranges
		if d := cursor.Sub(t.GlobalStart); d.After(t.duration) {
			t.duration = d
		}
	}
}
