package populator

import (
	"errors"
	"testing"

	"media-review/internal/framecache"
	"media-review/internal/future"
	"media-review/internal/logging"
	"media-review/internal/otime"
	"media-review/internal/timeline"
)

func sec(v float64) otime.RationalTime { return otime.New(v, 1) }

func span(start, end float64) otime.TimeRange {
	return otime.RangeFromStartEnd(sec(start), sec(end))
}

// everySecond lists one-second slots over the whole wanted range.
func everySecond(wanted otime.TimeRange) []otime.TimeRange {
	var out []otime.TimeRange
	for s := wanted.Start.Value; s < wanted.End().Value; s++ {
		out = append(out, otime.NewRange(sec(s), sec(1)))
	}
	return out
}

type recorder struct {
	order   []float64
	futures map[float64]*future.Future[int]
}

func newRecorder() *recorder {
	return &recorder{futures: make(map[float64]*future.Future[int])}
}

func (r *recorder) request(slot otime.TimeRange) *future.Future[int] {
	f := future.New[int]()
	r.order = append(r.order, slot.Start.Value)
	r.futures[slot.Start.Value] = f
	return f
}

func newTestPopulator(r *recorder, opts Options) (*Populator[int], *framecache.Cache[int]) {
	cache := framecache.New[int](1, 0, nil)
	p := New(cache, r.request, everySecond, func(int) int64 { return 1 }, opts)
	return p, cache
}

func TestNoDuplicateRequests(t *testing.T) {
	r := newRecorder()
	p, _ := newTestPopulator(r, Options{})

	wanted := span(0, 5)
	p.Update(wanted, sec(0))
	p.Update(wanted, sec(1))
	p.Update(span(0, 6), sec(2))

	seen := make(map[float64]int)
	for _, s := range r.order {
		seen[s]++
	}
	for s, n := range seen {
		if n != 1 {
			t.Errorf("slot %v requested %d times", s, n)
		}
	}
	if len(seen) != 6 {
		t.Errorf("requested %d slots, want 6", len(seen))
	}
	if got := len(p.PendingSlots()); got != 6 {
		t.Errorf("pending = %d, want 6", got)
	}
}

func TestClosestFirst(t *testing.T) {
	r := newRecorder()
	p, _ := newTestPopulator(r, Options{MaxPending: 5})

	p.Update(span(7, 14), sec(10))

	want := []float64{10, 11, 9, 12, 8}
	if len(r.order) != len(want) {
		t.Fatalf("order = %v, want %v", r.order, want)
	}
	for i := range want {
		if r.order[i] != want[i] {
			t.Fatalf("order = %v, want %v", r.order, want)
		}
	}
}

func TestCompletionInsertsIntoCache(t *testing.T) {
	r := newRecorder()
	p, cache := newTestPopulator(r, Options{})

	p.Update(span(0, 3), sec(0))
	r.futures[1].Resolve(41)
	p.Update(span(0, 3), sec(0))

	e, ok := cache.Get(sec(1))
	if !ok || e.Payload != 41 {
		t.Fatalf("cache entry = %v, %v", e, ok)
	}
	if p.Stats().Completed != 1 {
		t.Errorf("stats = %+v", p.Stats())
	}
}

func TestStaleCompletionDiscarded(t *testing.T) {
	t.Run("resolved before the next update", func(t *testing.T) {
		r := newRecorder()
		p, cache := newTestPopulator(r, Options{})

		p.Update(span(0, 10), sec(0))
		r.futures[5].Resolve(5)
		p.Update(span(20, 30), sec(20))

		if cache.Contains(sec(5)) {
			t.Error("stale completion was inserted")
		}
		if p.Stats().Discarded != 1 {
			t.Errorf("stats = %+v", p.Stats())
		}
	})

	t.Run("resolved after cancellation", func(t *testing.T) {
		r := newRecorder()
		p, cache := newTestPopulator(r, Options{})

		p.Update(span(0, 10), sec(0))
		p.Update(span(20, 30), sec(20))
		if r.futures[5].State() != future.Canceled {
			t.Fatalf("slot 5 state = %v, want canceled", r.futures[5].State())
		}
		r.futures[5].Resolve(5)
		p.Update(span(20, 30), sec(20))

		if cache.Contains(sec(5)) {
			t.Error("cancelled request was inserted")
		}
		if got := p.Stats().Cancelled; got != 10 {
			t.Errorf("cancelled = %d, want 10", got)
		}
	})
}

func TestFailureRecordedOnce(t *testing.T) {
	r := newRecorder()
	p, _ := newTestPopulator(r, Options{})

	p.Update(span(0, 2), sec(0))
	r.futures[1].Fail(errors.New("corrupt frame"))
	p.Update(span(0, 2), sec(0))
	p.Update(span(0, 2), sec(0))

	if n := count(r.order, 1); n != 1 {
		t.Fatalf("failed slot requested %d times before ClearFailed", n)
	}
	if p.FailedSlots() != 1 || p.Stats().Failed != 1 {
		t.Errorf("failed = %d, stats = %+v", p.FailedSlots(), p.Stats())
	}

	p.ClearFailed()
	p.Update(span(0, 2), sec(0))
	if n := count(r.order, 1); n != 2 {
		t.Errorf("slot requested %d times after ClearFailed, want 2", n)
	}
}

func count(order []float64, v float64) int {
	n := 0
	for _, s := range order {
		if s == v {
			n++
		}
	}
	return n
}

// resolveAll completes every outstanding request with its slot start.
func (r *recorder) resolveAll() {
	for s, f := range r.futures {
		if f.State() == future.Pending {
			f.Resolve(int(s))
		}
	}
}

func TestBudgetSmallerThanWindow(t *testing.T) {
	r := newRecorder()
	cache := framecache.New[int](1, 3, nil)
	p := New(cache, r.request, everySecond, func(int) int64 { return 1 }, Options{})

	for range 10 {
		p.Update(span(0, 5), sec(0))
		r.resolveAll()
	}

	for _, s := range []float64{0, 1, 2, 3, 4} {
		if n := count(r.order, s); n != 1 {
			t.Errorf("slot %v requested %d times with the playhead parked", s, n)
		}
	}
	for _, s := range []float64{0, 1, 2} {
		if !cache.Contains(sec(s)) {
			t.Errorf("slot %v not cached", s)
		}
	}
	if st := p.Stats(); st.Completed != 3 || st.Discarded != 2 {
		t.Errorf("stats = %+v, want 3 completed and 2 discarded", st)
	}

	// Once the playhead moves next to them the far slots fit again.
	p.Update(span(0, 5), sec(4))
	if count(r.order, 3) != 2 || count(r.order, 4) != 2 {
		t.Errorf("order = %v, want slots 3 and 4 requested again", r.order)
	}
}

func TestCancelForgetsWarnings(t *testing.T) {
	r := newRecorder()
	p, _ := newTestPopulator(r, Options{})
	other, _ := newTestPopulator(newRecorder(), Options{})
	if p.prefix == other.prefix {
		t.Fatalf("populators share warning prefix %q", p.prefix)
	}

	p.Update(span(0, 2), sec(0))
	r.futures[1].Fail(errors.New("corrupt frame"))
	p.Update(span(0, 2), sec(0))

	key := p.prefix + "1"
	if logging.WarnOnce(key, "again") {
		t.Fatal("failure was not recorded under the populator prefix")
	}
	p.Cancel()
	if !logging.WarnOnce(key, "after cancel") {
		t.Error("Cancel did not forget the populator's warnings")
	}
	logging.ForgetOnce(p.prefix)
}

func TestThrottleAndMaxPending(t *testing.T) {
	r := newRecorder()
	throttled := true
	p, _ := newTestPopulator(r, Options{MaxPending: 2, Throttle: func() bool { return throttled }})

	p.Update(span(0, 10), sec(0))
	if len(r.order) != 0 {
		t.Fatalf("issued %d requests while throttled", len(r.order))
	}

	throttled = false
	p.Update(span(0, 10), sec(0))
	if len(r.order) != 2 {
		t.Fatalf("issued %d requests, want MaxPending 2", len(r.order))
	}

	r.futures[0].Resolve(0)
	p.Update(span(0, 10), sec(0))
	if len(r.order) != 3 || r.order[2] != 2 {
		t.Errorf("order = %v, want a third request for slot 2", r.order)
	}
}

func TestCancel(t *testing.T) {
	r := newRecorder()
	p, _ := newTestPopulator(r, Options{})
	p.Update(span(0, 3), sec(0))
	p.Cancel()

	for s, f := range r.futures {
		if f.State() != future.Canceled {
			t.Errorf("slot %v state = %v", s, f.State())
		}
	}
	if p.Stats().Pending != 0 {
		t.Errorf("pending = %d after Cancel", p.Stats().Pending)
	}
}

func TestTimelineSlots(t *testing.T) {
	fr := func(v float64) otime.RationalTime { return otime.New(v, 24) }
	tl, err := timeline.New("slots", 24,
		timeline.Track{Kind: timeline.Video, Items: []timeline.Item{
			timeline.NewClip("a", "pattern:bars", otime.NewRange(fr(0), fr(24))),
			timeline.NewGap(fr(24)),
			timeline.NewClip("b", "pattern:ramp", otime.NewRange(fr(0), fr(24))),
		}},
		timeline.Track{Kind: timeline.Audio, Items: []timeline.Item{
			timeline.NewClip("tone", "pattern:bars", otime.NewRange(fr(0), fr(36))),
		}},
	)
	if err != nil {
		t.Fatalf("timeline.New: %v", err)
	}

	video := TimelineSlots(tl, timeline.Video, fr(1))(otime.RangeFromStartEnd(fr(20), fr(52)))
	if len(video) != 8 {
		t.Fatalf("video slots = %v, want frames 20-23 and 48-51", video)
	}
	if !video[3].Start.Equal(fr(23)) || !video[4].Start.Equal(fr(48)) {
		t.Errorf("video slots skip the wrong frames: %v", video)
	}

	audio := TimelineSlots(tl, timeline.Audio, otime.New(1, 1))(otime.RangeFromStartEnd(fr(0), fr(72)))
	if len(audio) != 2 {
		t.Fatalf("audio slots = %v, want 2", audio)
	}
	if !audio[1].Equal(otime.RangeFromStartEnd(fr(24), fr(48))) {
		t.Errorf("second audio slot = %v", audio[1])
	}
}
