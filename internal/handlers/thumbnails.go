package handlers

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"net/http"
	"strconv"

	"github.com/disintegration/imaging"

	"media-review/internal/future"
	"media-review/internal/logging"
	"media-review/internal/otime"
	"media-review/internal/thumbnail"
)

const (
	// thumbnailTimeRate is the resolution of the time query parameter.
	thumbnailTimeRate = 1000

	defaultThumbnailHeight = 128
	maxThumbnailHeight     = 2160

	defaultWaveformWidth  = 512
	defaultWaveformHeight = 64
	maxWaveformWidth      = 8192
)

var waveformColor = color.NRGBA{R: 0x8f, G: 0xd1, B: 0x8f, A: 0xff}

// awaitRequest waits for a thumbnail system request. When the client goes
// away the request is cancelled so a queued job never runs for nobody.
func awaitRequest[T any](ctx context.Context, thumbs *thumbnail.System, req thumbnail.Request[T]) (T, error) {
	v, err := req.Future.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		if n := thumbs.CancelRequests(req.ID); n > 0 {
			logging.Debug("Cancelled thumbnail request %s", req.ID)
		}
	}
	return v, err
}

func queryFloat(r *http.Request, name string, def float64) (float64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errBadRequest("invalid " + name + ": " + s)
	}
	return v, nil
}

func queryInt(r *http.Request, name string, def, maxValue int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return 0, errBadRequest("invalid " + name + ": " + s)
	}
	if v > maxValue {
		v = maxValue
	}
	return v, nil
}

func queryPath(r *http.Request) (string, error) {
	path := r.URL.Query().Get("path")
	if path == "" {
		return "", errBadRequest("path is required")
	}
	return path, nil
}

// writeImage encodes img as PNG or, with format=jpeg, as JPEG.
func writeImage(w http.ResponseWriter, r *http.Request, img image.Image) {
	format, contentType := imaging.PNG, "image/png"
	switch r.URL.Query().Get("format") {
	case "", "png":
	case "jpeg", "jpg":
		format, contentType = imaging.JPEG, "image/jpeg"
	default:
		writeError(w, r, errBadRequest("format must be png or jpeg"))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	if err := imaging.Encode(w, img, format, imaging.JPEGQuality(85)); err != nil {
		logging.Error("failed to encode %s: %v", contentType, err)
	}
}

// GetThumbnail renders the frame of path at time seconds, scaled to height
// rows.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	path, err := queryPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	height, err := queryInt(r, "height", defaultThumbnailHeight, maxThumbnailHeight)
	if err != nil {
		writeError(w, r, err)
		return
	}
	seconds, err := queryFloat(r, "time", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	req := h.thumbs.GetThumbnail(path, height, otime.FromSeconds(seconds, thumbnailTimeRate), nil)
	img, err := awaitRequest(r.Context(), h.thumbs, req)
	if err != nil {
		writeThumbnailError(w, r, err)
		return
	}
	writeImage(w, r, img)
}

// GetInfo returns the stream information of path.
func (h *Handlers) GetInfo(w http.ResponseWriter, r *http.Request) {
	path, err := queryPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	info, err := awaitRequest(r.Context(), h.thumbs, h.thumbs.GetInfo(path, nil))
	if err != nil {
		writeThumbnailError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, info)
}

// GetWaveform renders the audio of path between start and start+duration
// seconds. With format=json the min/max mesh is returned instead of an
// image.
func (h *Handlers) GetWaveform(w http.ResponseWriter, r *http.Request) {
	path, err := queryPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	width, err := queryInt(r, "width", defaultWaveformWidth, maxWaveformWidth)
	if err != nil {
		writeError(w, r, err)
		return
	}
	height, err := queryInt(r, "height", defaultWaveformHeight, maxThumbnailHeight)
	if err != nil {
		writeError(w, r, err)
		return
	}
	start, err := queryFloat(r, "start", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	duration, err := queryFloat(r, "duration", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if duration <= 0 {
		writeError(w, r, errBadRequest("duration must be positive"))
		return
	}

	rng := otime.NewRange(otime.FromSeconds(start, thumbnailTimeRate), otime.FromSeconds(duration, thumbnailTimeRate))
	req := h.thumbs.GetWaveform(path, image.Pt(width, height), rng, nil)
	wf, err := awaitRequest(r.Context(), h.thumbs, req)
	if err != nil {
		writeThumbnailError(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "json" {
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, wf)
		return
	}
	writeImage(w, r, wf.Image(waveformColor))
}

// writeThumbnailError reports a failed thumbnail system request. Requests
// whose client has gone are not answered.
func writeThumbnailError(w http.ResponseWriter, r *http.Request, err error) {
	if r.Context().Err() != nil {
		return
	}
	if errors.Is(err, future.ErrCanceled) {
		writeJSONError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeError(w, r, err)
}
