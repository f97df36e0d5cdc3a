package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"media-review/internal/logging"
	"media-review/internal/mediaio"
	"media-review/internal/metrics"
	"media-review/internal/observer"
	"media-review/internal/player"
	"media-review/internal/timeline"
)

// ErrNoTimeline is returned when an operation needs an open timeline.
var ErrNoTimeline = errors.New("no timeline is open")

// Options configure a Session.
type Options struct {
	Player player.Options

	// Workers sizes the I/O system.
	Workers int

	// Reader options passed to every read, e.g. audio sample rate.
	Reader mediaio.Options

	// Opener opens readers; nil uses mediaio.DefaultOpener.
	Opener mediaio.Opener
}

type current struct {
	player *player.Player
	path   string
	cancel context.CancelFunc
}

// stop ends the run loop, then releases the player's caches and readers.
func (c *current) stop() {
	c.cancel()
	<-c.player.Done()
	if err := c.player.Close(); err != nil {
		logging.Warn("Closing timeline %s: %v", c.path, err)
	}
}

// Session is the single authority for the open timeline.
type Session struct {
	opts   Options
	system *mediaio.System

	// mu serializes Open and Close; readers use cur and handle.
	mu      sync.Mutex
	cur     atomic.Pointer[current]
	handle  mediaio.Slot
	players *observer.Value[*player.Player]
	closed  bool
}

// New starts the I/O system. No timeline is open until Open.
func New(opts Options) *Session {
	return &Session{
		opts:    opts,
		system:  mediaio.NewSystem(opts.Workers),
		players: observer.NewValue[*player.Player](nil),
	}
}

// Open loads the timeline at path and makes it current.
func (s *Session) Open(ctx context.Context, path string) error {
	tl, err := timeline.Load(path)
	if err != nil {
		metrics.TimelineOpensTotal.WithLabelValues("error").Inc()
		return err
	}
	return s.open(ctx, tl, path, nil)
}

// OpenTimeline makes an already built timeline current. path is only used
// for logging and reloads and may be empty.
func (s *Session) OpenTimeline(ctx context.Context, tl *timeline.Timeline, path string) error {
	if err := tl.Validate(); err != nil {
		metrics.TimelineOpensTotal.WithLabelValues("error").Inc()
		return err
	}
	return s.open(ctx, tl, path, nil)
}

func (s *Session) open(ctx context.Context, tl *timeline.Timeline, path string, carry *player.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return mediaio.ErrClosed
	}

	h, err := mediaio.OpenHandle(ctx, tl, s.opts.Opener, s.system, s.opts.Reader)
	if err != nil {
		metrics.TimelineOpensTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("open timeline %q: %w", tl.Name, err)
	}
	p, err := player.New(h, s.opts.Player)
	if err != nil {
		h.Close()
		metrics.TimelineOpensTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("open timeline %q: %w", tl.Name, err)
	}
	if carry != nil {
		restore(p, *carry)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	go p.Run(runCtx)

	prev := s.cur.Swap(&current{player: p, path: path, cancel: cancel})
	s.handle.Swap(h)
	s.players.Set(p)
	if prev != nil {
		prev.stop()
	}

	metrics.TimelineOpensTotal.WithLabelValues("success").Inc()
	logging.Info("Opened timeline %q (%s, %v at %g fps, %d tracks)",
		tl.Name, path, tl.Duration(), tl.Rate, len(tl.Tracks))
	return nil
}

// restore applies the transport state of a replaced player. The playhead
// and in/out range are clamped to the new timeline.
func restore(p *player.Player, st player.State) {
	p.SetLoop(st.Loop)
	if err := p.SetSpeed(st.Speed); err != nil {
		logging.Debug("Not restoring speed: %v", err)
	}
	p.SetInOutRange(st.InOutRange)
	p.Seek(st.CurrentTime)
	if err := p.SetVideoLayer(st.VideoLayer); err != nil {
		logging.Debug("Not restoring video layer: %v", err)
	}
	p.SetVolume(st.Volume)
	p.SetMute(st.Mute)
	p.SetAudioOffset(st.AudioOffset)
	p.SetPlayback(st.Playback)
}

// Reload reopens the current timeline file, keeping the transport state.
// On failure the current player is left running.
func (s *Session) Reload(ctx context.Context) error {
	c := s.cur.Load()
	if c == nil || c.path == "" {
		return ErrNoTimeline
	}
	tl, err := timeline.Load(c.path)
	if err != nil {
		metrics.TimelineReloadsTotal.WithLabelValues("error").Inc()
		return err
	}
	st := c.player.State()
	if err := s.open(ctx, tl, c.path, &st); err != nil {
		metrics.TimelineReloadsTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.TimelineReloadsTotal.WithLabelValues("success").Inc()
	return nil
}

// Player returns the current player, or nil when nothing is open.
func (s *Session) Player() *player.Player {
	if c := s.cur.Load(); c != nil {
		return c.player
	}
	return nil
}

// Handle returns the current timeline handle, or nil.
func (s *Session) Handle() *mediaio.Handle { return s.handle.Load() }

// Path returns the file of the current timeline.
func (s *Session) Path() string {
	if c := s.cur.Load(); c != nil {
		return c.path
	}
	return ""
}

// Do runs fn on the current player's loop goroutine.
func (s *Session) Do(ctx context.Context, fn func(*player.Player)) error {
	p := s.Player()
	if p == nil {
		return ErrNoTimeline
	}
	return p.Do(ctx, fn)
}

// ObserveCurrent calls fn with the current player and again after every
// Open or Close. fn receives nil when no timeline is open.
func (s *Session) ObserveCurrent(fn func(*player.Player)) *observer.Subscription {
	return s.players.Observe(fn)
}

// GetStats reports the current player for the metrics collector.
func (s *Session) GetStats() metrics.Stats {
	p := s.Player()
	if p == nil {
		return metrics.Stats{}
	}
	video, audio := p.Stats()
	return metrics.Stats{
		TimelineLoaded:  true,
		CurrentSeconds:  p.CurrentTime().Seconds(),
		Playback:        p.Playback().String(),
		VideoCacheBytes: video.Bytes,
		VideoCacheCount: video.Entries,
		AudioCacheBytes: audio.Bytes,
		AudioCacheCount: audio.Entries,
	}
}

// Close stops the current player and the I/O system.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	if prev := s.cur.Swap(nil); prev != nil {
		s.handle.Swap(nil)
		s.players.Set(nil)
		prev.stop()
	}
	s.system.Close()
}
