package timeline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"media-review/internal/otime"
)

func frames(n float64) otime.RationalTime { return otime.New(n, 24) }

func rng(start, dur float64) otime.TimeRange {
	return otime.NewRange(frames(start), frames(dur))
}

func testTimeline(t *testing.T) *Timeline {
	t.Helper()
	tl, err := New("test", 24,
		Track{Kind: Video, Items: []Item{
			NewClip("A", "pattern:bars", rng(0, 48)),
			NewTransition("dissolve", frames(6), frames(6)),
			NewClip("B", "b.mov", rng(100, 48)),
			NewGap(frames(24)),
		}},
		Track{Kind: Audio, Items: []Item{
			NewClip("mix", "mix.wav", rng(0, 96)),
		}},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tl
}

func TestLayout(t *testing.T) {
	tl := testTimeline(t)

	if !tl.Range().Equal(rng(0, 120)) {
		t.Errorf("Range = %v, want [0,120)", tl.Range())
	}

	tests := []struct {
		track, item int
		want        otime.TimeRange
	}{
		{0, 0, rng(0, 48)},
		{0, 1, rng(42, 12)},
		{0, 2, rng(48, 48)},
		{0, 3, rng(96, 24)},
		{1, 0, rng(0, 96)},
	}
	for _, tt := range tests {
		got, ok := tl.TimeRangeOf(tt.track, tt.item)
		if !ok || !got.Equal(tt.want) {
			t.Errorf("TimeRangeOf(%d, %d) = %v, want %v", tt.track, tt.item, got, tt.want)
		}
	}
	if _, ok := tl.TimeRangeOf(5, 0); ok {
		t.Error("TimeRangeOf out of range should fail")
	}
}

func TestTimeRangeAt(t *testing.T) {
	tl := testTimeline(t)

	got, ok := tl.TimeRangeAt(Video, frames(50))
	if !ok || !got.Equal(rng(48, 48)) {
		t.Errorf("TimeRangeAt(50) = %v, %v", got, ok)
	}
	if _, ok := tl.TimeRangeAt(Video, frames(100)); ok {
		t.Error("gap should not report a clip")
	}
	if _, ok := tl.TimeRangeAt(Audio, frames(100)); ok {
		t.Error("time past the audio clip should not report a clip")
	}
}

func TestSpansMapToSource(t *testing.T) {
	tl := testTimeline(t)

	spans := tl.Spans(Video, rng(40, 70))
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2: %+v", len(spans), spans)
	}
	if !spans[0].Range.Equal(rng(40, 8)) || !spans[0].Source.Equal(rng(40, 8)) {
		t.Errorf("first span = %+v", spans[0])
	}
	if spans[1].MediaPath != "b.mov" {
		t.Errorf("second span media = %q", spans[1].MediaPath)
	}
	if !spans[1].Range.Equal(rng(48, 48)) || !spans[1].Source.Equal(rng(100, 48)) {
		t.Errorf("second span = %+v", spans[1])
	}
}

func TestSourceTimeClampsToAvailableRange(t *testing.T) {
	avail := rng(95, 60)
	b := NewClip("B", "b.mov", rng(100, 48))
	b.AvailableRange = &avail
	tl, err := New("t", 24, Track{Kind: Video, Items: []Item{
		NewClip("A", "a.mov", rng(0, 48)),
		NewTransition("x", frames(10), frames(4)),
		b,
	}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Transition pre-roll reads B before its cut: 100 - 10 clamps to 95.
	if got := tl.SourceTime(0, 2, frames(38)); !got.Equal(frames(95)) {
		t.Errorf("SourceTime = %v, want 95", got)
	}
	if got := tl.SourceTime(0, 2, frames(44)); !got.Equal(frames(96)) {
		t.Errorf("SourceTime = %v, want 96", got)
	}
}

func TestTransitionAt(t *testing.T) {
	tl := testTimeline(t)

	tr, ok := tl.TransitionAt(0, frames(45))
	if !ok {
		t.Fatal("expected a transition at 45")
	}
	if tr.From != 0 || tr.To != 2 {
		t.Errorf("From/To = %d/%d, want 0/2", tr.From, tr.To)
	}
	if v := tr.Value(frames(48)); v != 0.5 {
		t.Errorf("Value at cut = %v, want 0.5", v)
	}
	if _, ok := tl.TransitionAt(0, frames(30)); ok {
		t.Error("no transition at 30")
	}
}

func TestMediaPathsAndCounts(t *testing.T) {
	tl := testTimeline(t)

	got := tl.MediaPaths()
	want := []string{"pattern:bars", "b.mov", "mix.wav"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("MediaPaths = %v, want %v", got, want)
	}
	if tl.VideoTrackCount() != 1 {
		t.Errorf("VideoTrackCount = %d, want 1", tl.VideoTrackCount())
	}
}

func TestValidate(t *testing.T) {
	clip := NewClip("A", "a.mov", rng(0, 24))
	tests := []struct {
		name   string
		rate   float64
		tracks []Track
	}{
		{"zero rate", 0, []Track{{Kind: Video, Items: []Item{clip}}}},
		{"no tracks", 24, nil},
		{"empty", 24, []Track{{Kind: Video}}},
		{"unknown kind", 24, []Track{{Kind: "subtitle", Items: []Item{clip}}}},
		{"clip without media", 24, []Track{{Kind: Video, Items: []Item{NewClip("x", "", rng(0, 24))}}}},
		{"negative duration", 24, []Track{{Kind: Video, Items: []Item{NewClip("x", "a", rng(0, -1))}}}},
		{"transition at edge", 24, []Track{{Kind: Video, Items: []Item{
			NewTransition("t", frames(2), frames(2)), clip,
		}}}},
		{"transition too long", 24, []Track{{Kind: Video, Items: []Item{
			clip, NewTransition("t", frames(30), frames(2)), clip,
		}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("x", tt.rate, tt.tracks...)
			if !errors.Is(err, ErrInvalidTimeline) {
				t.Errorf("New() error = %v, want ErrInvalidTimeline", err)
			}
		})
	}
}

const testDocument = `{
  "name": "reel",
  "rate": 24,
  "tracks": [
    {"kind": "video", "items": [
      {"kind": "clip", "name": "A", "media": "shots/a.mov",
       "sourceRange": {"start": {"value": 0, "rate": 24}, "duration": {"value": 24, "rate": 24}}},
      {"kind": "clip", "name": "P", "media": "pattern:ramp",
       "sourceRange": {"start": {"value": 0, "rate": 24}, "duration": {"value": 1, "rate": 1}}}
    ]}
  ]
}`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reel.json")
	if err := os.WriteFile(path, []byte(testDocument), 0o600); err != nil {
		t.Fatal(err)
	}

	tl, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tl.Name != "reel" {
		t.Errorf("Name = %q", tl.Name)
	}
	if got := tl.Tracks[0].Items[0].MediaPath; got != filepath.Join(dir, "shots/a.mov") {
		t.Errorf("relative path not resolved: %q", got)
	}
	if got := tl.Tracks[0].Items[1].MediaPath; got != "pattern:ramp" {
		t.Errorf("pattern path changed: %q", got)
	}
	if !tl.Range().Equal(rng(0, 48)) {
		t.Errorf("Range = %v, want [0,48)", tl.Range())
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", "{"},
		{"unknown field", `{"rate": 24, "bogus": 1}`},
		{"no tracks", `{"rate": 24, "tracks": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.doc)); !errors.Is(err, ErrInvalidTimeline) {
				t.Errorf("Parse() error = %v, want ErrInvalidTimeline", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil || errors.Is(err, ErrInvalidTimeline) {
		t.Errorf("Load(missing) error = %v, want a filesystem error", err)
	}
}
