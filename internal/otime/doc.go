// Package otime provides frame-accurate rational time values and half-open
// time ranges.
//
// A RationalTime is a (value, rate) pair: 48 at rate 24 is two seconds. All
// cache keys and comparisons in the player are expressed with these types so
// that clips with different source frame rates stay frame-exact once
// rescaled to the timeline rate.
//
// A TimeRange is a start time plus a duration and covers [Start, Start+Duration).
// EndInclusive returns the last whole frame inside the range, which is how
// in/out points are presented to users.
package otime
