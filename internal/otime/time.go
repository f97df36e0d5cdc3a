package otime

import (
	"fmt"
	"math"
)

// epsilon absorbs float drift when snapping values to whole frames.
const epsilon = 1e-6

// RationalTime is a point in time expressed as a value at a rate.
type RationalTime struct {
	Value float64 `json:"value"`
	Rate  float64 `json:"rate"`
}

// New returns a RationalTime of value units at rate units per second.
func New(value, rate float64) RationalTime {
	return RationalTime{Value: value, Rate: rate}
}

// FromSeconds converts seconds to a RationalTime at rate.
func FromSeconds(seconds, rate float64) RationalTime {
	return RationalTime{Value: seconds * rate, Rate: rate}
}

// FromFrame returns the time of a whole frame at rate.
func FromFrame(frame int64, rate float64) RationalTime {
	return RationalTime{Value: float64(frame), Rate: rate}
}

// IsValid reports whether the time has a positive rate and finite value.
func (t RationalTime) IsValid() bool {
	return t.Rate > 0 && !math.IsNaN(t.Value) && !math.IsInf(t.Value, 0)
}

// Seconds returns the time in seconds. Invalid times are zero.
func (t RationalTime) Seconds() float64 {
	if t.Rate <= 0 {
		return 0
	}
	return t.Value / t.Rate
}

// Rescale converts the time to another rate.
func (t RationalTime) Rescale(rate float64) RationalTime {
	if t.Rate == rate {
		return t
	}
	if t.Rate <= 0 {
		return RationalTime{Rate: rate}
	}
	return RationalTime{Value: t.Value * rate / t.Rate, Rate: rate}
}

// Add returns t+o at t's rate (o's rate when t has none).
func (t RationalTime) Add(o RationalTime) RationalTime {
	if t.Rate <= 0 {
		return o
	}
	return RationalTime{Value: t.Value + o.Rescale(t.Rate).Value, Rate: t.Rate}
}

// Sub returns t-o at t's rate.
func (t RationalTime) Sub(o RationalTime) RationalTime {
	if t.Rate <= 0 {
		r := o.Rate
		return RationalTime{Value: -o.Value, Rate: r}
	}
	return RationalTime{Value: t.Value - o.Rescale(t.Rate).Value, Rate: t.Rate}
}

// Compare returns -1, 0 or +1. Values within a millionth of a frame at the
// finer of the two rates are equal.
func (t RationalTime) Compare(o RationalTime) int {
	rate := math.Max(t.Rate, o.Rate)
	if rate <= 0 {
		return 0
	}
	a := t.Rescale(rate).Value
	b := o.Rescale(rate).Value
	switch {
	case a < b-epsilon:
		return -1
	case a > b+epsilon:
		return 1
	default:
		return 0
	}
}

// Equal reports whether both times refer to the same instant.
func (t RationalTime) Equal(o RationalTime) bool { return t.Compare(o) == 0 }

// Before reports whether t is strictly earlier than o.
func (t RationalTime) Before(o RationalTime) bool { return t.Compare(o) < 0 }

// After reports whether t is strictly later than o.
func (t RationalTime) After(o RationalTime) bool { return t.Compare(o) > 0 }

// Floor snaps the time down to a whole frame at its own rate.
func (t RationalTime) Floor() RationalTime {
	return RationalTime{Value: math.Floor(t.Value + epsilon), Rate: t.Rate}
}

// Round snaps the time to the nearest whole frame at its own rate.
func (t RationalTime) Round() RationalTime {
	return RationalTime{Value: math.Round(t.Value), Rate: t.Rate}
}

// Frame returns the whole frame index containing t at rate.
func (t RationalTime) Frame(rate float64) int64 {
	return int64(math.Floor(t.Rescale(rate).Value + epsilon))
}

// Abs returns the time with a non-negative value.
func (t RationalTime) Abs() RationalTime {
	return RationalTime{Value: math.Abs(t.Value), Rate: t.Rate}
}

func (t RationalTime) String() string {
	return fmt.Sprintf("%g@%g", t.Value, t.Rate)
}

// Min returns the earlier of a and b.
func Min(a, b RationalTime) RationalTime {
	if b.Before(a) {
		return b
	}
	return a
}

// Max returns the later of a and b.
func Max(a, b RationalTime) RationalTime {
	if b.After(a) {
		return b
	}
	return a
}
