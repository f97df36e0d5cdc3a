package handlers

import (
	"context"
	"net/http"
	"path/filepath"
)

// OpenTimeline replaces the current timeline with the file at path. On
// failure the previous timeline keeps playing.
func (h *Handlers) OpenTimeline(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := decodeJSON(r, w, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Path == "" {
		writeError(w, r, errBadRequest("path is required"))
		return
	}
	path, err := filepath.Abs(req.Path)
	if err != nil {
		writeError(w, r, errBadRequest(err.Error()))
		return
	}

	// Opening outlives the request so a dropped client cannot leave a
	// half-opened handle behind.
	if err := h.session.Open(context.WithoutCancel(r.Context()), path); err != nil {
		writeError(w, r, err)
		return
	}
	h.GetPlayer(w, r)
}

// ReloadTimeline reopens the current timeline file, keeping the transport
// state.
func (h *Handlers) ReloadTimeline(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Reload(context.WithoutCancel(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	h.GetPlayer(w, r)
}
