package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

func TestGetCache(t *testing.T) {
	t.Run("without timeline", func(t *testing.T) {
		h := newTestHandlers(t, 0)
		w := serve(h.GetCache, http.MethodGet, "/api/cache", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		resp := decodeBody[CacheResponse](t, w)
		if resp.Options != nil || resp.Video != nil {
			t.Errorf("frame cache fields should be omitted: %+v", resp)
		}
		if resp.Thumbnails.MaxBytes != 1<<20 {
			t.Errorf("thumbnail max = %d", resp.Thumbnails.MaxBytes)
		}
		if _, ok := resp.Thumbnails.Queued["thumbnail"]; !ok {
			t.Errorf("queued = %v", resp.Thumbnails.Queued)
		}
	})

	t.Run("with timeline", func(t *testing.T) {
		h := newTestHandlers(t, 24)
		resp := decodeBody[CacheResponse](t, serve(h.GetCache, http.MethodGet, "/api/cache", ""))
		if resp.Options == nil || resp.Info == nil || resp.Video == nil || resp.Audio == nil {
			t.Fatalf("missing frame cache fields: %+v", resp)
		}
		if resp.Video.Budget != resp.Options.VideoBudget {
			t.Errorf("video budget %d, options %d", resp.Video.Budget, resp.Options.VideoBudget)
		}
	})
}

func TestSetCacheOptions(t *testing.T) {
	h := newTestHandlers(t, 24)

	body := `{"video": {"readAhead": 2000000000, "readBehind": 0},
	          "audio": {"readAhead": 0, "readBehind": 0},
	          "videoBudget": 4096, "audioBudget": 0,
	          "maxVideoRequests": 2, "maxAudioRequests": 1}`
	w := serve(h.SetCacheOptions, http.MethodPut, "/api/cache", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	resp := decodeBody[CacheResponse](t, w)
	if resp.Options.VideoBudget != 4096 || resp.Options.MaxVideoRequests != 2 {
		t.Errorf("options = %+v", resp.Options)
	}
	if resp.Video.Budget != 4096 {
		t.Errorf("cache budget = %d, want 4096", resp.Video.Budget)
	}

	bad := `{"video": {"readAhead": -1, "readBehind": 0}, "audio": {"readAhead": 0, "readBehind": 0}}`
	if w := serve(h.SetCacheOptions, http.MethodPut, "/api/cache", bad); w.Code != http.StatusBadRequest {
		t.Errorf("negative window status = %d, want 400", w.Code)
	}

	idle := newTestHandlers(t, 0)
	if w := serve(idle.SetCacheOptions, http.MethodPut, "/api/cache", body); w.Code != http.StatusConflict {
		t.Errorf("no timeline status = %d, want 409", w.Code)
	}
}

func TestClearThumbnails(t *testing.T) {
	h := newTestHandlers(t, 0)
	serve(h.GetThumbnail, http.MethodGet, "/api/thumbnail?path=pattern:bars&height=8", "")
	if h.thumbs.Len() == 0 {
		t.Fatal("thumbnail was not cached")
	}
	w := serve(h.ClearThumbnails, http.MethodDelete, "/api/cache/thumbnails", "")
	if w.Code != http.StatusOK || h.thumbs.Len() != 0 {
		t.Errorf("status %d, %d entries left", w.Code, h.thumbs.Len())
	}
}

func TestOpenTimeline(t *testing.T) {
	h := newTestHandlers(t, 24)
	dir := t.TempDir()
	next := filepath.Join(dir, "next.json")
	writeTimeline(t, next, 72)

	w := serve(h.OpenTimeline, http.MethodPost, "/api/timeline", `{"path": "`+next+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	resp := decodeBody[PlayerResponse](t, w)
	if resp.Timeline.Name != "next" || resp.Timeline.Duration.Value != 72 {
		t.Errorf("timeline = %+v", resp.Timeline)
	}

	invalid := filepath.Join(dir, "invalid.json")
	if err := os.WriteFile(invalid, []byte(`{"rate": 0, "tracks": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing file", `{"path": "` + filepath.Join(dir, "gone.json") + `"}`, http.StatusNotFound},
		{"invalid timeline", `{"path": "` + invalid + `"}`, http.StatusBadRequest},
		{"no path", `{}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := serve(h.OpenTimeline, http.MethodPost, "/api/timeline", tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body)
			}
			if h.session.Player().Timeline().Name != "next" {
				t.Error("failed open replaced the current timeline")
			}
		})
	}
}

func TestReloadTimeline(t *testing.T) {
	idle := newTestHandlers(t, 0)
	if w := serve(idle.ReloadTimeline, http.MethodPost, "/api/timeline/reload", ""); w.Code != http.StatusConflict {
		t.Errorf("status without timeline = %d, want 409", w.Code)
	}

	h := newTestHandlers(t, 24)
	serve(h.Seek, http.MethodPost, "/api/player/seek", `{"frame": 20}`)
	writeTimeline(t, h.session.Path(), 12)

	w := serve(h.ReloadTimeline, http.MethodPost, "/api/timeline/reload", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	resp := decodeBody[PlayerResponse](t, w)
	if resp.Timeline.Duration.Value != 12 {
		t.Errorf("duration = %v, want 12", resp.Timeline.Duration)
	}
	if resp.State.CurrentTime.Value != 11 {
		t.Errorf("current = %v, want clamped to 11", resp.State.CurrentTime)
	}
}
