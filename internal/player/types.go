package player

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSpeed is returned by SetSpeed for zero, negative or
	// non-finite values.
	ErrInvalidSpeed = errors.New("speed must be a positive finite number")

	// ErrInvalidVideoLayer is returned by SetVideoLayer for an index
	// without a video track.
	ErrInvalidVideoLayer = errors.New("video layer out of range")

	// ErrStopped is returned by Do once the run loop has exited.
	ErrStopped = errors.New("player is not running")
)

// Playback is the playback direction.
type Playback int

const (
	Stop Playback = iota
	Forward
	Reverse
)

var playbackNames = []string{"stop", "forward", "reverse"}

func (p Playback) String() string {
	if p < 0 || int(p) >= len(playbackNames) {
		return fmt.Sprintf("Playback(%d)", int(p))
	}
	return playbackNames[p]
}

// ParsePlayback parses the String form of a Playback.
func ParsePlayback(s string) (Playback, error) {
	i, err := parseName(playbackNames, s, "playback")
	return Playback(i), err
}

func (p Playback) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Playback) UnmarshalText(b []byte) error {
	v, err := ParsePlayback(string(b))
	if err == nil {
		*p = v
	}
	return err
}

// Loop is what happens when playback reaches the in or out point.
type Loop int

const (
	// LoopRepeat wraps to the opposite end of the in/out range.
	LoopRepeat Loop = iota
	// Once stops at the end.
	Once
	// PingPong reverses direction.
	PingPong
)

var loopNames = []string{"loop", "once", "ping-pong"}

func (l Loop) String() string {
	if l < 0 || int(l) >= len(loopNames) {
		return fmt.Sprintf("Loop(%d)", int(l))
	}
	return loopNames[l]
}

// ParseLoop parses the String form of a Loop.
func ParseLoop(s string) (Loop, error) {
	i, err := parseName(loopNames, s, "loop")
	return Loop(i), err
}

func (l Loop) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *Loop) UnmarshalText(b []byte) error {
	v, err := ParseLoop(string(b))
	if err == nil {
		*l = v
	}
	return err
}

// TimeAction is a transport command relative to the current time or the
// in/out range.
type TimeAction int

const (
	ActionStart TimeAction = iota
	ActionEnd
	ActionFramePrev
	ActionFramePrevX10
	ActionFramePrevX100
	ActionFrameNext
	ActionFrameNextX10
	ActionFrameNextX100
	ActionJumpBack1s
	ActionJumpForward1s
	ActionJumpBack10s
	ActionJumpForward10s
)

var actionNames = []string{
	"start",
	"end",
	"frame-prev",
	"frame-prev-x10",
	"frame-prev-x100",
	"frame-next",
	"frame-next-x10",
	"frame-next-x100",
	"jump-back-1s",
	"jump-forward-1s",
	"jump-back-10s",
	"jump-forward-10s",
}

func (a TimeAction) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return fmt.Sprintf("TimeAction(%d)", int(a))
	}
	return actionNames[a]
}

// ParseTimeAction parses the String form of a TimeAction.
func ParseTimeAction(s string) (TimeAction, error) {
	i, err := parseName(actionNames, s, "time action")
	return TimeAction(i), err
}

func (a TimeAction) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *TimeAction) UnmarshalText(b []byte) error {
	v, err := ParseTimeAction(string(b))
	if err == nil {
		*a = v
	}
	return err
}

func parseName(names []string, s, what string) (int, error) {
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", what, s)
}
