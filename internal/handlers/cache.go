package handlers

import (
	"net/http"

	"media-review/internal/framecache"
	"media-review/internal/player"
)

// ThumbnailCacheStats describes the thumbnail/info LRU.
type ThumbnailCacheStats struct {
	Bytes      int64          `json:"bytes"`
	MaxBytes   int64          `json:"maxBytes"`
	Entries    int            `json:"entries"`
	Percentage float64        `json:"percentage"`
	Queued     map[string]int `json:"queued"`
}

// CacheResponse reports every cache the server holds.
type CacheResponse struct {
	Options    *player.CacheOptions `json:"options,omitempty"`
	Info       *framecache.Info     `json:"info,omitempty"`
	Video      *player.CacheStats   `json:"video,omitempty"`
	Audio      *player.CacheStats   `json:"audio,omitempty"`
	Thumbnails ThumbnailCacheStats  `json:"thumbnails"`
}

func (h *Handlers) cacheResponse() CacheResponse {
	resp := CacheResponse{
		Thumbnails: ThumbnailCacheStats{
			Bytes:      h.thumbs.Size(),
			MaxBytes:   h.thumbs.MaxSize(),
			Entries:    h.thumbs.Len(),
			Percentage: h.thumbs.Percentage(),
			Queued:     h.thumbs.Queued(),
		},
	}
	if p := h.session.Player(); p != nil {
		opts := p.CacheOptions()
		info := p.CacheInfo()
		video, audio := p.Stats()
		resp.Options = &opts
		resp.Info = &info
		resp.Video = &video
		resp.Audio = &audio
	}
	return resp
}

// GetCache returns frame cache and thumbnail cache statistics. The frame
// cache fields are omitted when no timeline is open.
func (h *Handlers) GetCache(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, h.cacheResponse())
}

// SetCacheOptions replaces the frame cache windows and budgets.
func (h *Handlers) SetCacheOptions(w http.ResponseWriter, r *http.Request) {
	var opts player.CacheOptions
	if err := decodeJSON(r, w, &opts); err != nil {
		writeError(w, r, err)
		return
	}
	if err := opts.Validate(); err != nil {
		writeError(w, r, errBadRequest(err.Error()))
		return
	}
	p := h.run(w, r, func(p *player.Player) error { return p.SetCacheOptions(opts) })
	if p == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.cacheResponse())
}

// ClearThumbnails empties the thumbnail/info cache.
func (h *Handlers) ClearThumbnails(w http.ResponseWriter, _ *http.Request) {
	h.thumbs.Clear()
	writeJSONStatus(w, "cleared")
}
