package player

import (
	"context"
	"math"
	"time"

	"media-review/internal/framecache"
	"media-review/internal/logging"
	"media-review/internal/metrics"
	"media-review/internal/populator"
)

// Tick advances playback by the wall time since the previous tick and
// updates the caches. It never blocks on I/O.
func (p *Player) Tick() {
	started := time.Now()

	if pb := p.playback.Get(); pb != Stop {
		now := p.now()
		if !p.lastTick.IsZero() {
			p.advance(now.Sub(p.lastTick).Seconds(), pb)
		}
		p.lastTick = now
	}
	p.updateCaches()

	metrics.PlayerTicksTotal.Inc()
	metrics.PlayerTickDuration.Observe(time.Since(started).Seconds())
}

// advance moves the playhead and applies the loop mode when it passes the
// in or out point.
func (p *Player) advance(elapsed float64, pb Playback) {
	if elapsed <= 0 {
		return
	}
	delta := p.speed.Get() * elapsed * p.rate
	io := p.inOutRange.Get()
	in, out, end := io.Start.Value, io.EndInclusive().Value, io.End().Value
	length := end - in

	pos := p.pos
	switch pb {
	case Forward:
		pos += delta
		if pos >= end {
			switch p.loop.Get() {
			case Once:
				pos = out
				p.setPlayback(Stop)
			case LoopRepeat:
				pos = in + math.Mod(pos-in, length)
			case PingPong:
				pos = out
				p.setPlayback(Reverse)
			}
		}
	case Reverse:
		pos -= delta
		if pos < in {
			switch p.loop.Get() {
			case Once:
				pos = in
				p.setPlayback(Stop)
			case LoopRepeat:
				if pos = end - math.Mod(in-pos, length); pos >= end {
					pos = in
				}
			case PingPong:
				pos = in
				p.setPlayback(Forward)
			}
		}
	}
	p.pos = pos
	p.publishTime()
}

// updateCaches recomputes both windows and runs the populators, then
// publishes the cache snapshots and the frames at the current time.
func (p *Player) updateCaches() {
	bounds := p.tl.Range()
	opts := p.cacheOptions.Get()

	cur := p.currentTime.Get()
	p.videoPop.Update(opts.Video.Range(cur, bounds), cur)

	audioCur := p.audioTime(cur)
	p.audioPop.Update(opts.Audio.Range(audioCur, bounds), audioCur)

	video := p.videoCache.Snapshot()
	audio := p.audioCache.Snapshot()
	p.cachedVideo.SetIfChanged(video)
	p.cachedAudio.SetIfChanged(audio)
	p.cacheInfo.SetIfChanged(framecache.Info{
		VideoPercentageUsed: p.videoCache.PercentageUsed(),
		CachedVideoRanges:   video,
		CachedAudioRanges:   audio,
	})

	if e, ok := p.videoCache.Get(cur); ok {
		p.currentVideo.SetIfChanged(e.Payload)
	} else {
		p.currentVideo.SetIfChanged(nil)
	}
	if e, ok := p.audioCache.Get(audioCur); ok {
		p.currentAudio.SetIfChanged(e.Payload)
	} else {
		p.currentAudio.SetIfChanged(nil)
	}
}

// Run ticks every Options.TickInterval and executes commands from Do until
// ctx is done. It must be called at most once.
func (p *Player) Run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.opts.TickInterval)
	defer ticker.Stop()

	logging.Debug("Player for %q running, tick %v", p.tl.Name, p.opts.TickInterval)
	for {
		select {
		case <-ctx.Done():
			logging.Debug("Player for %q stopped", p.tl.Name)
			return
		case fn := <-p.commands:
			fn(p)
		case <-ticker.C:
			p.Tick()
		}
	}
}

// Do runs fn on the Run goroutine and waits for it to finish.
func (p *Player) Do(ctx context.Context, fn func(*Player)) error {
	finished := make(chan struct{})
	cmd := func(p *Player) {
		defer close(finished)
		fn(p)
	}
	select {
	case p.commands <- cmd:
	case <-p.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-p.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when Run returns.
func (p *Player) Done() <-chan struct{} { return p.done }

// Close cancels pending reads, empties the caches and closes the handle.
// Call it after Run has returned.
func (p *Player) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.videoPop.Cancel()
	p.audioPop.Cancel()
	p.videoCache.Clear()
	p.audioCache.Clear()
	p.currentVideo.Set(nil)
	p.currentAudio.Set(nil)
	return p.handle.Close()
}

// CacheStats describes one frame cache and its populator.
type CacheStats struct {
	Bytes     int64           `json:"bytes"`
	Entries   int             `json:"entries"`
	Budget    int64           `json:"budget"`
	Populator populator.Stats `json:"populator"`
}

// Stats returns video and audio cache statistics.
func (p *Player) Stats() (video, audio CacheStats) {
	video = CacheStats{
		Bytes:     p.videoCache.Size(),
		Entries:   p.videoCache.Len(),
		Budget:    p.videoCache.Budget(),
		Populator: p.videoPop.Stats(),
	}
	audio = CacheStats{
		Bytes:     p.audioCache.Size(),
		Entries:   p.audioCache.Len(),
		Budget:    p.audioCache.Budget(),
		Populator: p.audioPop.Stats(),
	}
	return video, audio
}
