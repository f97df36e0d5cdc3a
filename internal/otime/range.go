package otime

import "fmt"

// TimeRange covers the half-open interval [Start, Start+Duration).
type TimeRange struct {
	Start    RationalTime `json:"start"`
	Duration RationalTime `json:"duration"`
}

// NewRange returns a range from a start time and a duration.
func NewRange(start, duration RationalTime) TimeRange {
	return TimeRange{Start: start, Duration: duration.Rescale(start.Rate)}
}

// RangeFromStartEnd returns the range [start, end).
func RangeFromStartEnd(start, end RationalTime) TimeRange {
	return TimeRange{Start: start, Duration: end.Rescale(start.Rate).Sub(start)}
}

// RangeFromStartEndInclusive returns the range whose last frame is end.
func RangeFromStartEndInclusive(start, end RationalTime) TimeRange {
	d := end.Rescale(start.Rate).Sub(start)
	d.Value++
	return TimeRange{Start: start, Duration: d}
}

// Rate is the rate of the range start.
func (r TimeRange) Rate() float64 { return r.Start.Rate }

// End returns the first instant after the range.
func (r TimeRange) End() RationalTime { return r.Start.Add(r.Duration) }

// EndInclusive returns the start of the last whole frame in the range.
func (r TimeRange) EndInclusive() RationalTime {
	if r.Duration.Rescale(r.Rate()).Value < 1 {
		return r.Start
	}
	e := r.End()
	e.Value--
	return e
}

// IsEmpty reports whether the range has no duration.
func (r TimeRange) IsEmpty() bool {
	return r.Duration.Value <= epsilon
}

// Contains reports whether t lies in [Start, End).
func (r TimeRange) Contains(t RationalTime) bool {
	return !t.Before(r.Start) && t.Before(r.End())
}

// ContainsRange reports whether o lies entirely inside r.
func (r TimeRange) ContainsRange(o TimeRange) bool {
	return !o.Start.Before(r.Start) && !o.End().After(r.End())
}

// Intersects reports whether the two ranges share any instant.
func (r TimeRange) Intersects(o TimeRange) bool {
	if r.IsEmpty() || o.IsEmpty() {
		return false
	}
	return r.Start.Before(o.End()) && o.Start.Before(r.End())
}

// Intersect returns the overlap of r and o at r's rate.
func (r TimeRange) Intersect(o TimeRange) (TimeRange, bool) {
	if !r.Intersects(o) {
		return TimeRange{Start: r.Start, Duration: RationalTime{Rate: r.Rate()}}, false
	}
	start := Max(r.Start, o.Start).Rescale(r.Rate())
	end := Min(r.End(), o.End())
	return RangeFromStartEnd(start, end), true
}

// ClampTime limits t to the frames of the range.
func (r TimeRange) ClampTime(t RationalTime) RationalTime {
	if t.Before(r.Start) {
		return r.Start.Rescale(t.Rate)
	}
	if last := r.EndInclusive(); t.After(last) {
		return last.Rescale(t.Rate)
	}
	return t
}

// ClampRange limits o to r. A disjoint range collapses to an empty range at
// the nearest edge of r.
func (r TimeRange) ClampRange(o TimeRange) TimeRange {
	if c, ok := r.Intersect(o); ok {
		return c
	}
	start := r.Start
	if !o.Start.Before(r.End()) {
		start = r.End()
	}
	return TimeRange{Start: start, Duration: RationalTime{Rate: start.Rate}}
}

// Extend returns the smallest range covering both r and o.
func (r TimeRange) Extend(o TimeRange) TimeRange {
	if r.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return r
	}
	return RangeFromStartEnd(Min(r.Start, o.Start).Rescale(r.Rate()), Max(r.End(), o.End()))
}

// Rescale converts start and duration to rate.
func (r TimeRange) Rescale(rate float64) TimeRange {
	return TimeRange{Start: r.Start.Rescale(rate), Duration: r.Duration.Rescale(rate)}
}

// Equal reports whether both ranges cover the same interval.
func (r TimeRange) Equal(o TimeRange) bool {
	return r.Start.Equal(o.Start) && r.End().Equal(o.End())
}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start, r.End())
}

// Merge joins ranges that touch or overlap. The input must be sorted by
// start time; the result is built in a single pass.
func Merge(ranges []TimeRange) []TimeRange {
	if len(ranges) == 0 {
		return nil
	}
	out := make([]TimeRange, 0, len(ranges))
	cur := ranges[0]
	for _, r := range ranges[1:] {
		if !r.Start.After(cur.End()) {
			if r.End().After(cur.End()) {
				cur = RangeFromStartEnd(cur.Start, r.End())
			}
			continue
		}
		out = append(out, cur)
		cur = r
	}
	return append(out, cur)
}
