package mediaio

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"media-review/internal/future"
	"media-review/internal/otime"
	"media-review/internal/timeline"
)

func frames(n float64) otime.RationalTime { return otime.New(n, 24) }

func rng(start, dur float64) otime.TimeRange {
	return otime.NewRange(frames(start), frames(dur))
}

type countingReader struct {
	Reader
	closed *atomic.Int32
}

func (r countingReader) Close() error {
	r.closed.Add(1)
	return r.Reader.Close()
}

func testTimeline(t *testing.T) *timeline.Timeline {
	t.Helper()
	tl, err := timeline.New("handle", 24,
		timeline.Track{Kind: timeline.Video, Items: []timeline.Item{
			timeline.NewClip("A", "pattern:bars?width=64&height=36", rng(0, 24)),
			timeline.NewTransition("dissolve", frames(4), frames(4)),
			timeline.NewClip("B", "pattern:ramp?width=64&height=36", rng(0, 24)),
			timeline.NewGap(frames(24)),
		}},
		timeline.Track{Kind: timeline.Audio, Items: []timeline.Item{
			timeline.NewGap(frames(12)),
			timeline.NewClip("tone", "pattern:bars?width=8&height=8", rng(0, 60)),
		}},
	)
	if err != nil {
		t.Fatalf("timeline.New: %v", err)
	}
	return tl
}

func TestOpenHandleAllOrNothing(t *testing.T) {
	tl := testTimeline(t)
	var closed atomic.Int32
	calls := 0
	opener := func(path string) (Reader, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("corrupt")
		}
		r, err := DefaultOpener(path)
		if err != nil {
			return nil, err
		}
		return countingReader{Reader: r, closed: &closed}, nil
	}

	s := NewSystem(1)
	defer s.Close()

	h, err := OpenHandle(context.Background(), tl, opener, s, nil)
	if err == nil || h != nil {
		t.Fatalf("OpenHandle = %v, %v; want error and no handle", h, err)
	}
	if closed.Load() != 1 {
		t.Errorf("closed %d readers, want 1", closed.Load())
	}
}

func TestRequestVideoLayers(t *testing.T) {
	s := NewSystem(2)
	defer s.Close()

	h, err := OpenHandle(context.Background(), testTimeline(t), nil, s, nil)
	if err != nil {
		t.Fatalf("OpenHandle: %v", err)
	}
	defer h.Close()

	tests := []struct {
		name           string
		at             float64
		wantImage      bool
		wantTransition bool
		wantValue      float64
	}{
		{"clip", 10, true, false, 0},
		{"transition at cut", 24, true, true, 0.5},
		{"gap", 60, false, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := h.RequestVideo(frames(tt.at))
			waitFuture(t, f)
			st, data, err := f.Poll()
			if st != future.Ready {
				t.Fatalf("state = %v, err = %v", st, err)
			}
			if len(data.Layers) != 1 {
				t.Fatalf("got %d layers, want 1", len(data.Layers))
			}
			l := data.Layers[0]
			if (l.Image != nil) != tt.wantImage {
				t.Errorf("image present = %v, want %v", l.Image != nil, tt.wantImage)
			}
			if (l.ImageB != nil) != tt.wantTransition {
				t.Errorf("imageB present = %v, want %v", l.ImageB != nil, tt.wantTransition)
			}
			if l.TransitionValue != tt.wantValue {
				t.Errorf("transition value = %v, want %v", l.TransitionValue, tt.wantValue)
			}
		})
	}
}

func TestRequestAudioPlacesClipAfterGap(t *testing.T) {
	s := NewSystem(1)
	defer s.Close()

	h, err := OpenHandle(context.Background(), testTimeline(t), nil, s, Options{OptionSampleRate: "4800", OptionChannels: "1"})
	if err != nil {
		t.Fatalf("OpenHandle: %v", err)
	}
	defer h.Close()

	f := h.RequestAudio(rng(0, 24))
	waitFuture(t, f)
	st, data, err := f.Poll()
	if st != future.Ready {
		t.Fatalf("state = %v, err = %v", st, err)
	}
	if len(data.Layers) != 1 {
		t.Fatalf("got %d layers, want 1", len(data.Layers))
	}
	samples := data.Layers[0].Block.Samples
	if len(samples) != 4800 {
		t.Fatalf("got %d samples, want 4800", len(samples))
	}
	for i := 0; i < 2400; i++ {
		if samples[i] != 0 {
			t.Fatalf("sample %d in the gap = %v, want silence", i, samples[i])
		}
	}
	var loud bool
	for _, v := range samples[2400:] {
		if v != 0 {
			loud = true
			break
		}
	}
	if !loud {
		t.Error("clip half of the block is silent")
	}
}

func TestClosedHandleRejects(t *testing.T) {
	s := NewSystem(1)
	defer s.Close()

	h, err := OpenHandle(context.Background(), testTimeline(t), nil, s, nil)
	if err != nil {
		t.Fatalf("OpenHandle: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, _, err := h.RequestVideo(frames(0)).Poll(); !errors.Is(err, ErrClosed) {
		t.Errorf("RequestVideo after close error = %v, want ErrClosed", err)
	}
	if err := h.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestSlotSwap(t *testing.T) {
	var slot Slot
	if slot.Load() != nil {
		t.Fatal("empty slot should hold nil")
	}
	a, b := &Handle{}, &Handle{}
	if prev := slot.Swap(a); prev != nil {
		t.Errorf("first swap returned %v", prev)
	}
	if prev := slot.Swap(b); prev != a {
		t.Error("second swap should return the first handle")
	}
	if slot.Load() != b {
		t.Error("Load should return the latest handle")
	}
}
