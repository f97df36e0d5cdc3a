package handlers

import (
	"context"
	"math"
	"net/http"

	"media-review/internal/framecache"
	"media-review/internal/otime"
	"media-review/internal/player"
	"media-review/internal/session"
)

// TimelineInfo describes the open timeline.
type TimelineInfo struct {
	Name        string             `json:"name"`
	Path        string             `json:"path"`
	Rate        float64            `json:"rate"`
	Duration    otime.RationalTime `json:"duration"`
	Range       otime.TimeRange    `json:"range"`
	VideoTracks int                `json:"videoTracks"`
}

// PlayerResponse is the full observable state of the current player.
type PlayerResponse struct {
	Timeline TimelineInfo    `json:"timeline"`
	State    player.State    `json:"state"`
	Cache    framecache.Info `json:"cache"`
}

func (h *Handlers) playerResponse(p *player.Player) PlayerResponse {
	tl := p.Timeline()
	return PlayerResponse{
		Timeline: TimelineInfo{
			Name:        tl.Name,
			Path:        h.session.Path(),
			Rate:        tl.Rate,
			Duration:    tl.Duration(),
			Range:       tl.Range(),
			VideoTracks: tl.VideoTrackCount(),
		},
		State: p.State(),
		Cache: p.CacheInfo(),
	}
}

// GetPlayer returns the timeline, transport state and cache coverage.
func (h *Handlers) GetPlayer(w http.ResponseWriter, r *http.Request) {
	p := h.session.Player()
	if p == nil {
		writeError(w, r, session.ErrNoTimeline)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, h.playerResponse(p))
}

// run executes fn on the player loop. On failure the error has already
// been written and the returned player is nil.
func (h *Handlers) run(w http.ResponseWriter, r *http.Request, fn func(*player.Player) error) *player.Player {
	ctx, cancel := context.WithTimeout(r.Context(), h.commandTimeout)
	defer cancel()

	var (
		cmdErr error
		cur    *player.Player
	)
	err := h.session.Do(ctx, func(p *player.Player) {
		cmdErr = fn(p)
		cur = p
	})
	if err == nil {
		err = cmdErr
	}
	if err != nil {
		writeError(w, r, err)
		return nil
	}
	return cur
}

// command runs fn on the player loop and answers with the resulting state.
func (h *Handlers) command(w http.ResponseWriter, r *http.Request, fn func(*player.Player) error) {
	if p := h.run(w, r, fn); p != nil {
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, h.playerResponse(p))
	}
}

// timeRequest addresses a point on the timeline. Exactly one of the forms
// is used; seconds and frames count from the timeline's global start.
type timeRequest struct {
	Time    *otime.RationalTime `json:"time,omitempty"`
	Seconds *float64            `json:"seconds,omitempty"`
	Frame   *int64              `json:"frame,omitempty"`
}

func (t timeRequest) resolve(p *player.Player) (otime.RationalTime, error) {
	rng := p.Timeline().Range()
	rate := p.Timeline().Rate
	switch {
	case t.Time != nil:
		if !t.Time.IsValid() {
			return otime.RationalTime{}, errBadRequest("time must have a positive rate and finite value")
		}
		return *t.Time, nil
	case t.Seconds != nil:
		if math.IsNaN(*t.Seconds) || math.IsInf(*t.Seconds, 0) {
			return otime.RationalTime{}, errBadRequest("seconds must be finite")
		}
		return rng.Start.Add(otime.FromSeconds(*t.Seconds, rate)), nil
	case t.Frame != nil:
		return rng.Start.Add(otime.FromFrame(*t.Frame, rate)), nil
	default:
		return otime.RationalTime{}, errBadRequest("one of time, seconds or frame is required")
	}
}

// Seek moves the playhead.
func (h *Handlers) Seek(w http.ResponseWriter, r *http.Request) {
	var req timeRequest
	if err := decodeJSON(r, w, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.command(w, r, func(p *player.Player) error {
		t, err := req.resolve(p)
		if err != nil {
			return err
		}
		p.Seek(t)
		return nil
	})
}

// SetPlayback starts, stops or reverses playback.
func (h *Handlers) SetPlayback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Playback player.Playback `json:"playback"`
	}
	if err := decodeJSON(r, w, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.command(w, r, func(p *player.Player) error {
		p.SetPlayback(req.Playback)
		return nil
	})
}

// SetLoop changes what happens at the in/out boundaries.
func (h *Handlers) SetLoop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Loop player.Loop `json:"loop"`
	}
	if err := decodeJSON(r, w, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.command(w, r, func(p *player.Player) error {
		p.SetLoop(req.Loop)
		return nil
	})
}

// SetSpeed changes the playback speed multiplier.
func (h *Handlers) SetSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := decodeJSON(r, w, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.command(w, r, func(p *player.Player) error {
		return p.SetSpeed(req.Speed)
	})
}

// In/out point edits accepted by SetInOut.
const (
	inOutSetIn    = "set-in"
	inOutSetOut   = "set-out"
	inOutResetIn  = "reset-in"
	inOutResetOut = "reset-out"
	inOutReset    = "reset"
)

// SetInOut edits the in/out range, either with an explicit inclusive
// start/end pair or with one of the point edits relative to the playhead.
func (h *Handlers) SetInOut(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Edit  string       `json:"edit,omitempty"`
		Start *timeRequest `json:"start,omitempty"`
		End   *timeRequest `json:"end,omitempty"`
	}
	if err := decodeJSON(r, w, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Edit == "" && (req.Start == nil || req.End == nil) {
		writeError(w, r, errBadRequest("either edit or both start and end are required"))
		return
	}
	h.command(w, r, func(p *player.Player) error {
		switch req.Edit {
		case inOutSetIn:
			p.SetInPoint()
		case inOutSetOut:
			p.SetOutPoint()
		case inOutResetIn:
			p.ResetInPoint()
		case inOutResetOut:
			p.ResetOutPoint()
		case inOutReset:
			p.SetInOutRange(p.Timeline().Range())
		case "":
			start, err := req.Start.resolve(p)
			if err != nil {
				return err
			}
			end, err := req.End.resolve(p)
			if err != nil {
				return err
			}
			if end.Before(start) {
				return errBadRequest("end is before start")
			}
			p.SetInOutRange(otime.RangeFromStartEndInclusive(start, end))
		default:
			return errBadRequest("unknown in/out edit " + req.Edit)
		}
		return nil
	})
}

// TimeAction runs a transport action such as frame-next or jump-back-1s.
func (h *Handlers) TimeAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action player.TimeAction `json:"action"`
	}
	if err := decodeJSON(r, w, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.command(w, r, func(p *player.Player) error {
		p.TimeAction(req.Action)
		return nil
	})
}

// SetVideoLayer selects the displayed video track.
func (h *Handlers) SetVideoLayer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Layer int `json:"layer"`
	}
	if err := decodeJSON(r, w, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.command(w, r, func(p *player.Player) error {
		return p.SetVideoLayer(req.Layer)
	})
}

// SetVolume sets the volume in [0, 1].
func (h *Handlers) SetVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Volume float64 `json:"volume"`
	}
	if err := decodeJSON(r, w, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.command(w, r, func(p *player.Player) error {
		p.SetVolume(req.Volume)
		return nil
	})
}

// SetMute mutes or unmutes audio.
func (h *Handlers) SetMute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mute bool `json:"mute"`
	}
	if err := decodeJSON(r, w, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.command(w, r, func(p *player.Player) error {
		p.SetMute(req.Mute)
		return nil
	})
}

// SetAudioOffset shifts audio against video.
func (h *Handlers) SetAudioOffset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds float64 `json:"seconds"`
	}
	if err := decodeJSON(r, w, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.command(w, r, func(p *player.Player) error {
		p.SetAudioOffset(req.Seconds)
		return nil
	})
}
