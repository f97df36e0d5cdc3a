package player

import (
	"media-review/internal/framecache"
	"media-review/internal/mediaio"
	"media-review/internal/observer"
	"media-review/internal/otime"
)

// Each Observe method calls fn with the current value, then again on every
// change, until the returned subscription is closed.

// ObserveCurrentTime delivers the playhead time, once per frame while playing.
func (p *Player) ObserveCurrentTime(fn func(otime.RationalTime)) *observer.Subscription {
	return p.currentTime.Observe(fn)
}

// ObservePlayback delivers the playback state.
func (p *Player) ObservePlayback(fn func(Playback)) *observer.Subscription {
	return p.playback.Observe(fn)
}

// ObserveLoop delivers the loop mode.
func (p *Player) ObserveLoop(fn func(Loop)) *observer.Subscription {
	return p.loop.Observe(fn)
}

// ObserveSpeed delivers the playback speed multiplier.
func (p *Player) ObserveSpeed(fn func(float64)) *observer.Subscription {
	return p.speed.Observe(fn)
}

// ObserveInOutRange delivers the in/out playback range.
func (p *Player) ObserveInOutRange(fn func(otime.TimeRange)) *observer.Subscription {
	return p.inOutRange.Observe(fn)
}

// ObserveVideoLayer delivers the index of the displayed video track.
func (p *Player) ObserveVideoLayer(fn func(int)) *observer.Subscription {
	return p.videoLayer.Observe(fn)
}

// ObserveVolume delivers the audio volume.
func (p *Player) ObserveVolume(fn func(float64)) *observer.Subscription {
	return p.volume.Observe(fn)
}

// ObserveMute delivers the mute flag.
func (p *Player) ObserveMute(fn func(bool)) *observer.Subscription {
	return p.mute.Observe(fn)
}

// ObserveAudioOffset delivers the audio offset in seconds.
func (p *Player) ObserveAudioOffset(fn func(float64)) *observer.Subscription {
	return p.audioOffset.Observe(fn)
}

// ObserveCacheOptions delivers the cache options in effect.
func (p *Player) ObserveCacheOptions(fn func(CacheOptions)) *observer.Subscription {
	return p.cacheOptions.Observe(fn)
}

// ObserveCacheInfo delivers video cache usage and the cached ranges.
func (p *Player) ObserveCacheInfo(fn func(framecache.Info)) *observer.Subscription {
	return p.cacheInfo.Observe(fn)
}

// ObserveCachedVideoFrames delivers the merged cached video ranges.
func (p *Player) ObserveCachedVideoFrames(fn func([]otime.TimeRange)) *observer.Subscription {
	return p.cachedVideo.Observe(fn)
}

// ObserveCachedAudioFrames delivers the merged cached audio ranges.
func (p *Player) ObserveCachedAudioFrames(fn func([]otime.TimeRange)) *observer.Subscription {
	return p.cachedAudio.Observe(fn)
}

// ObserveCurrentVideo delivers the cached frame at the current time; nil
// means no frame is available there yet.
func (p *Player) ObserveCurrentVideo(fn func(*mediaio.VideoData)) *observer.Subscription {
	return p.currentVideo.Observe(fn)
}

// ObserveCurrentAudio delivers the cached audio block at the current audio
// time, or nil.
func (p *Player) ObserveCurrentAudio(fn func(*mediaio.AudioData)) *observer.Subscription {
	return p.currentAudio.Observe(fn)
}
