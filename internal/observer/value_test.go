package observer

import (
	"slices"
	"testing"
)

func TestValueObserveDeliversCurrent(t *testing.T) {
	v := NewValue(3)
	var got []int
	sub := v.Observe(func(x int) { got = append(got, x) })
	defer sub.Close()

	if !slices.Equal(got, []int{3}) {
		t.Fatalf("initial delivery = %v, want [3]", got)
	}
}

func TestValueSetIfChanged(t *testing.T) {
	v := NewValue("stop")
	var got []string
	v.Observe(func(s string) { got = append(got, s) })

	if v.SetIfChanged("stop") {
		t.Error("SetIfChanged reported a change for the same value")
	}
	if !v.SetIfChanged("forward") {
		t.Error("SetIfChanged did not report a change")
	}
	v.Set("forward")

	want := []string{"stop", "forward", "forward"}
	if !slices.Equal(got, want) {
		t.Errorf("deliveries = %v, want %v", got, want)
	}
	if v.Get() != "forward" {
		t.Errorf("Get = %q", v.Get())
	}
}

func TestValueUnsubscribe(t *testing.T) {
	v := NewValue(0)
	calls := 0
	sub := v.Observe(func(int) { calls++ })
	other := v.Observe(func(int) {})

	sub.Close()
	sub.Close()
	v.Set(1)

	if calls != 1 {
		t.Errorf("calls = %d, want 1 (initial only)", calls)
	}
	if v.Subscribers() != 1 {
		t.Errorf("Subscribers = %d, want 1", v.Subscribers())
	}
	other.Close()
}

func TestValueFuncEquality(t *testing.T) {
	v := NewValueFunc([]int{1, 2}, slices.Equal[[]int])
	changes := 0
	v.Observe(func([]int) { changes++ })

	v.SetIfChanged([]int{1, 2})
	v.SetIfChanged([]int{1, 2, 3})

	if changes != 2 {
		t.Errorf("changes = %d, want 2", changes)
	}
}
