package player

import (
	"fmt"
	"time"

	"media-review/internal/framecache"
)

// DefaultTickInterval is the period of the run loop.
const DefaultTickInterval = 10 * time.Millisecond

// CacheOptions size the frame caches.
type CacheOptions struct {
	Video framecache.Window `json:"video"`
	Audio framecache.Window `json:"audio"`

	// Byte budgets. Zero means unbounded.
	VideoBudget int64 `json:"videoBudget"`
	AudioBudget int64 `json:"audioBudget"`

	// Requests in flight per cache. Zero means unbounded.
	MaxVideoRequests int `json:"maxVideoRequests"`
	MaxAudioRequests int `json:"maxAudioRequests"`
}

// DefaultCacheOptions reads four seconds ahead; audio keeps a wider window
// behind so reversing does not start on silence.
func DefaultCacheOptions() CacheOptions {
	return CacheOptions{
		Video:            framecache.Window{ReadAhead: 4 * time.Second, ReadBehind: 500 * time.Millisecond},
		Audio:            framecache.Window{ReadAhead: 4 * time.Second, ReadBehind: time.Second},
		VideoBudget:      1 << 30,
		AudioBudget:      128 << 20,
		MaxVideoRequests: 16,
		MaxAudioRequests: 4,
	}
}

// Validate checks both windows and rejects negative limits.
func (o CacheOptions) Validate() error {
	if err := o.Video.Validate(); err != nil {
		return fmt.Errorf("video: %w", err)
	}
	if err := o.Audio.Validate(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	if o.VideoBudget < 0 || o.AudioBudget < 0 {
		return fmt.Errorf("cache budgets must not be negative")
	}
	if o.MaxVideoRequests < 0 || o.MaxAudioRequests < 0 {
		return fmt.Errorf("request limits must not be negative")
	}
	return nil
}

// Options configure a Player.
type Options struct {
	TickInterval time.Duration
	Cache        CacheOptions

	// Throttle pauses new cache requests while it returns true; see
	// memory.Monitor.ShouldThrottle.
	Throttle func() bool

	// Clock returns the wall time used to advance playback. Defaults to
	// time.Now.
	Clock func() time.Time
}

// DefaultOptions returns the options used by the review server.
func DefaultOptions() Options {
	return Options{
		TickInterval: DefaultTickInterval,
		Cache:        DefaultCacheOptions(),
	}
}
