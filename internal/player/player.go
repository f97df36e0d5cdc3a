package player

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"media-review/internal/framecache"
	"media-review/internal/future"
	"media-review/internal/logging"
	"media-review/internal/mediaio"
	"media-review/internal/metrics"
	"media-review/internal/observer"
	"media-review/internal/otime"
	"media-review/internal/populator"
	"media-review/internal/timeline"
)

// State is a snapshot of the playback settings.
type State struct {
	CurrentTime otime.RationalTime `json:"currentTime"`
	Playback    Playback           `json:"playback"`
	Loop        Loop               `json:"loop"`
	Speed       float64            `json:"speed"`
	InOutRange  otime.TimeRange    `json:"inOutRange"`
	VideoLayer  int                `json:"videoLayer"`
	Volume      float64            `json:"volume"`
	Mute        bool               `json:"mute"`
	AudioOffset float64            `json:"audioOffset"`
}

// Player plays one open timeline.
type Player struct {
	handle *mediaio.Handle
	tl     *timeline.Timeline
	rate   float64
	opts   Options
	now    func() time.Time

	// pos is the exact playhead in frames at the timeline rate; the
	// published current time is pos snapped down to a whole frame.
	pos      float64
	lastTick time.Time

	currentTime  *observer.Value[otime.RationalTime]
	playback     *observer.Value[Playback]
	loop         *observer.Value[Loop]
	speed        *observer.Value[float64]
	inOutRange   *observer.Value[otime.TimeRange]
	videoLayer   *observer.Value[int]
	volume       *observer.Value[float64]
	mute         *observer.Value[bool]
	audioOffset  *observer.Value[float64]
	cacheOptions *observer.Value[CacheOptions]
	cacheInfo    *observer.Value[framecache.Info]
	cachedVideo  *observer.Value[[]otime.TimeRange]
	cachedAudio  *observer.Value[[]otime.TimeRange]
	currentVideo *observer.Value[*mediaio.VideoData]
	currentAudio *observer.Value[*mediaio.AudioData]

	videoCache *framecache.Cache[*mediaio.VideoData]
	audioCache *framecache.Cache[*mediaio.AudioData]
	videoPop   *populator.Populator[*mediaio.VideoData]
	audioPop   *populator.Populator[*mediaio.AudioData]

	commands chan func(*Player)
	done     chan struct{}
	closed   atomic.Bool
}

// New builds a player for an open handle. The player takes ownership of
// the handle and closes it in Close.
func New(handle *mediaio.Handle, opts Options) (*Player, error) {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if err := opts.Cache.Validate(); err != nil {
		return nil, fmt.Errorf("cache options: %w", err)
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	tl := handle.Timeline()
	bounds := tl.Range()
	p := &Player{
		handle:   handle,
		tl:       tl,
		rate:     tl.Rate,
		opts:     opts,
		now:      now,
		pos:      bounds.Start.Value,
		commands: make(chan func(*Player)),
		done:     make(chan struct{}),

		currentTime:  observer.NewValue(bounds.Start),
		playback:     observer.NewValue(Stop),
		loop:         observer.NewValue(LoopRepeat),
		speed:        observer.NewValue(1.0),
		inOutRange:   observer.NewValueFunc(bounds, otime.TimeRange.Equal),
		videoLayer:   observer.NewValue(0),
		volume:       observer.NewValue(1.0),
		mute:         observer.NewValue(false),
		audioOffset:  observer.NewValue(0.0),
		cacheOptions: observer.NewValue(opts.Cache),
		cacheInfo:    observer.NewValueFunc(framecache.Info{}, framecache.Info.Equal),
		cachedVideo:  observer.NewValueFunc[[]otime.TimeRange](nil, framecache.RangesEqual),
		cachedAudio:  observer.NewValueFunc[[]otime.TimeRange](nil, framecache.RangesEqual),
		currentVideo: observer.NewValue[*mediaio.VideoData](nil),
		currentAudio: observer.NewValue[*mediaio.AudioData](nil),
	}

	p.videoCache = framecache.New[*mediaio.VideoData](p.rate, opts.Cache.VideoBudget, metrics.NewCacheObserver("video"))
	p.audioCache = framecache.New[*mediaio.AudioData](p.rate, opts.Cache.AudioBudget, metrics.NewCacheObserver("audio"))

	p.videoPop = populator.New(p.videoCache,
		func(slot otime.TimeRange) *future.Future[*mediaio.VideoData] { return handle.RequestVideo(slot.Start) },
		populator.TimelineSlots(tl, timeline.Video, otime.New(1, p.rate)),
		(*mediaio.VideoData).SizeBytes,
		populator.Options{
			Name:       tl.Name + " video",
			MaxPending: opts.Cache.MaxVideoRequests,
			Throttle:   opts.Throttle,
			Observer:   metrics.NewCacheObserver("video"),
		})
	p.audioPop = populator.New(p.audioCache,
		handle.RequestAudio,
		populator.TimelineSlots(tl, timeline.Audio, otime.New(1, 1)),
		(*mediaio.AudioData).SizeBytes,
		populator.Options{
			Name:       tl.Name + " audio",
			MaxPending: opts.Cache.MaxAudioRequests,
			Throttle:   opts.Throttle,
			Observer:   metrics.NewCacheObserver("audio"),
		})

	metrics.SetPlayback(Stop.String())
	metrics.PlayerCurrentSeconds.Set(bounds.Start.Seconds())
	return p, nil
}

// Timeline returns the timeline being played.
func (p *Player) Timeline() *timeline.Timeline { return p.tl }

// Handle returns the open timeline handle.
func (p *Player) Handle() *mediaio.Handle { return p.handle }

func (p *Player) publishTime() {
	t := otime.New(math.Floor(p.pos+1e-6), p.rate)
	if p.currentTime.SetIfChanged(t) {
		metrics.PlayerCurrentSeconds.Set(t.Seconds())
	}
}

// SetPlayback starts, reverses or stops playback. With loop mode Once,
// starting forward at the out point restarts from the in point, and
// starting in reverse at the in point restarts from the out point.
func (p *Player) SetPlayback(pb Playback) {
	if pb == p.playback.Get() {
		return
	}
	if pb != Stop && p.loop.Get() == Once {
		io := p.inOutRange.Get()
		switch {
		case pb == Forward && p.pos >= io.EndInclusive().Value:
			p.pos = io.Start.Value
		case pb == Reverse && p.pos <= io.Start.Value:
			p.pos = io.EndInclusive().Value
		}
	}
	if pb == Stop {
		p.pos = math.Floor(p.pos + 1e-6)
	}
	p.lastTick = p.now()
	p.setPlayback(pb)
	p.publishTime()
}

func (p *Player) setPlayback(pb Playback) {
	p.playback.Set(pb)
	metrics.SetPlayback(pb.String())
}

// SetLoop sets the loop mode.
func (p *Player) SetLoop(l Loop) { p.loop.SetIfChanged(l) }

// SetSpeed sets the playback speed multiplier. It does not change the
// playback direction; use SetPlayback(Stop) to stop.
func (p *Player) SetSpeed(v float64) error {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, v)
	}
	p.speed.SetIfChanged(v)
	return nil
}

// Seek moves to t, clamped to the timeline and snapped to the nearest
// frame. Seeking never fails.
func (p *Player) Seek(t otime.RationalTime) {
	t = p.tl.Range().ClampTime(t.Rescale(p.rate)).Round()
	if t.Value == p.pos {
		return
	}
	p.pos = t.Value
	p.lastTick = p.now()
	p.publishTime()
	p.videoPop.ClearFailed()
	p.audioPop.ClearFailed()
	metrics.PlayerSeeksTotal.Inc()
}

// TimeAction performs a transport command. Frame steps and jumps stop
// playback first.
func (p *Player) TimeAction(a TimeAction) {
	switch a {
	case ActionStart:
		p.Seek(p.inOutRange.Get().Start)
	case ActionEnd:
		p.Seek(p.inOutRange.Get().EndInclusive())
	case ActionFramePrev:
		p.step(-1)
	case ActionFramePrevX10:
		p.step(-10)
	case ActionFramePrevX100:
		p.step(-100)
	case ActionFrameNext:
		p.step(1)
	case ActionFrameNextX10:
		p.step(10)
	case ActionFrameNextX100:
		p.step(100)
	case ActionJumpBack1s:
		p.step(-p.rate)
	case ActionJumpForward1s:
		p.step(p.rate)
	case ActionJumpBack10s:
		p.step(-10 * p.rate)
	case ActionJumpForward10s:
		p.step(10 * p.rate)
	default:
		logging.Warn("Ignoring unknown time action %d", int(a))
	}
}

func (p *Player) step(frames float64) {
	p.SetPlayback(Stop)
	p.Seek(p.currentTime.Get().Add(otime.New(frames, p.rate)))
}

// SetInOutRange limits playback to rng, clamped to the timeline. An empty
// or disjoint range resets to the whole timeline.
func (p *Player) SetInOutRange(rng otime.TimeRange) {
	bounds := p.tl.Range()
	c := bounds.ClampRange(rng.Rescale(p.rate))
	if c.IsEmpty() {
		c = bounds
	}
	p.inOutRange.SetIfChanged(c)
}

// SetInPoint moves the in point to the current time.
func (p *Player) SetInPoint() {
	io := p.inOutRange.Get()
	cur := p.currentTime.Get()
	p.SetInOutRange(otime.RangeFromStartEndInclusive(cur, otime.Max(cur, io.EndInclusive())))
}

// SetOutPoint moves the out point to the current time.
func (p *Player) SetOutPoint() {
	io := p.inOutRange.Get()
	cur := p.currentTime.Get()
	p.SetInOutRange(otime.RangeFromStartEndInclusive(otime.Min(cur, io.Start), cur))
}

// ResetInPoint moves the in point back to the timeline start.
func (p *Player) ResetInPoint() {
	io := p.inOutRange.Get()
	p.SetInOutRange(otime.RangeFromStartEnd(p.tl.Range().Start, io.End()))
}

// ResetOutPoint moves the out point back to the timeline end.
func (p *Player) ResetOutPoint() {
	io := p.inOutRange.Get()
	p.SetInOutRange(otime.RangeFromStartEnd(io.Start, p.tl.Range().End()))
}

// SetVideoLayer selects which video track is shown.
func (p *Player) SetVideoLayer(i int) error {
	if n := p.tl.VideoTrackCount(); i < 0 || (i >= n && !(n == 0 && i == 0)) {
		return fmt.Errorf("%w: %d of %d", ErrInvalidVideoLayer, i, n)
	}
	p.videoLayer.SetIfChanged(i)
	return nil
}

// SetVolume sets the volume, clamped to [0, 1].
func (p *Player) SetVolume(v float64) {
	if math.IsNaN(v) {
		return
	}
	p.volume.SetIfChanged(math.Min(math.Max(v, 0), 1))
}

// SetMute mutes or unmutes audio.
func (p *Player) SetMute(m bool) { p.mute.SetIfChanged(m) }

// SetAudioOffset delays audio by seconds (negative plays it early). The
// audio cache window follows the shifted time.
func (p *Player) SetAudioOffset(seconds float64) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return
	}
	p.audioOffset.SetIfChanged(seconds)
}

// SetCacheOptions resizes the caches. Failed slots are forgotten so they
// are tried again under the new window.
func (p *Player) SetCacheOptions(o CacheOptions) error {
	if err := o.Validate(); err != nil {
		return err
	}
	cur := p.currentTime.Get()
	p.videoCache.SetBudget(o.VideoBudget, cur)
	p.audioCache.SetBudget(o.AudioBudget, p.audioTime(cur))
	p.videoPop.SetMaxPending(o.MaxVideoRequests)
	p.audioPop.SetMaxPending(o.MaxAudioRequests)
	p.videoPop.ClearFailed()
	p.audioPop.ClearFailed()
	p.cacheOptions.SetIfChanged(o)
	return nil
}

// audioTime is the media time of the audio heard at timeline time t.
func (p *Player) audioTime(t otime.RationalTime) otime.RationalTime {
	return t.Sub(otime.FromSeconds(p.audioOffset.Get(), p.rate))
}

// CurrentTime returns the current frame time.
func (p *Player) CurrentTime() otime.RationalTime { return p.currentTime.Get() }

// Playback returns the playback direction.
func (p *Player) Playback() Playback { return p.playback.Get() }

// Loop returns the loop mode.
func (p *Player) Loop() Loop { return p.loop.Get() }

// Speed returns the speed multiplier.
func (p *Player) Speed() float64 { return p.speed.Get() }

// InOutRange returns the playback range.
func (p *Player) InOutRange() otime.TimeRange { return p.inOutRange.Get() }

// VideoLayer returns the selected video track index.
func (p *Player) VideoLayer() int { return p.videoLayer.Get() }

// CacheOptions returns the current cache sizing.
func (p *Player) CacheOptions() CacheOptions { return p.cacheOptions.Get() }

// CacheInfo returns the latest cache snapshot.
func (p *Player) CacheInfo() framecache.Info { return p.cacheInfo.Get() }

// CurrentVideo returns the cached frame at the current time, or nil when
// none is available yet.
func (p *Player) CurrentVideo() *mediaio.VideoData { return p.currentVideo.Get() }

// State returns a snapshot of all playback settings.
func (p *Player) State() State {
	return State{
		CurrentTime: p.currentTime.Get(),
		Playback:    p.playback.Get(),
		Loop:        p.loop.Get(),
		Speed:       p.speed.Get(),
		InOutRange:  p.inOutRange.Get(),
		VideoLayer:  p.videoLayer.Get(),
		Volume:      p.volume.Get(),
		Mute:        p.mute.Get(),
		AudioOffset: p.audioOffset.Get(),
	}
}
