// Package player is the playback state machine of an open timeline.
//
// A [Player] owns the current time, playback direction, loop mode, speed,
// in/out range and audio settings, plus the video and audio frame caches
// and their populators. Every change is published through observer values.
//
// State is owned by one goroutine. [Player.Run] ticks on a fixed period
// and executes commands sent with [Player.Do]; observers are only invoked
// from that goroutine. Tests and single-threaded callers may instead call
// the setters and [Player.Tick] directly, with a fake clock in [Options].
//
// Each tick advances the current time by speed times the elapsed wall
// time, applies the loop mode at the in/out points, then recomputes the
// cache windows and runs both populators. Decode errors never stop the
// tick; a missing frame shows up as a nil current video.
package player
