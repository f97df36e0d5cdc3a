package startup

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"media-review/internal/memory"
)

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		envValue string
		def      bool
		want     bool
	}{
		{"", true, true},
		{"", false, false},
		{"true", false, true},
		{"1", false, true},
		{"T", false, true},
		{"false", true, false},
		{"0", true, false},
		{"FALSE", true, false},
		{"yes", false, false},
		{"no", true, true},
		{"   ", true, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q default %v", tt.envValue, tt.def), func(t *testing.T) {
			t.Setenv("WATCH_TIMELINE_TEST", tt.envValue)
			if got := getEnvBool("WATCH_TIMELINE_TEST", tt.def); got != tt.want {
				t.Errorf("getEnvBool = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     int
	}{
		{"Returns default when empty", "", 7},
		{"Parses value", "42", 42},
		{"Zero is allowed", "0", 0},
		{"Negative falls back", "-3", 7},
		{"Garbage falls back", "lots", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.envValue)
			if got := getEnvInt("TEST_INT", 7); got != tt.want {
				t.Errorf("getEnvInt = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     time.Duration
	}{
		{"Returns default when empty", "", time.Second},
		{"Parses value", "250ms", 250 * time.Millisecond},
		{"Negative falls back", "-1s", time.Second},
		{"Missing unit falls back", "10", time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.envValue)
			if got := getEnvDuration("TEST_DURATION", time.Second); got != tt.want {
				t.Errorf("getEnvDuration = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reel.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TIMELINE", path)
	t.Setenv("PORT", "9000")
	t.Setenv("TICK_INTERVAL", "20ms")
	t.Setenv("READ_AHEAD", "2s")
	t.Setenv("VIDEO_CACHE_MB", "64")
	t.Setenv("MAX_AUDIO_REQUESTS", "2")
	t.Setenv("WATCH_TIMELINE", "true")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if config.Timeline != path || !config.WatchTimeline || config.Port != "9000" {
		t.Errorf("config = %+v", config)
	}
	if config.TickInterval != 20*time.Millisecond {
		t.Errorf("TickInterval = %v", config.TickInterval)
	}

	opts := config.CacheOptions()
	if opts.Video.ReadAhead != 2*time.Second || opts.Audio.ReadAhead != 2*time.Second {
		t.Errorf("read ahead = %v/%v, want 2s", opts.Video.ReadAhead, opts.Audio.ReadAhead)
	}
	if opts.Audio.ReadBehind != time.Second {
		t.Errorf("audio read behind = %v, want default 1s", opts.Audio.ReadBehind)
	}
	if opts.VideoBudget != 64<<20 || opts.MaxAudioRequests != 2 {
		t.Errorf("cache options = %+v", opts)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing timeline", map[string]string{"TIMELINE": filepath.Join(t.TempDir(), "missing.json")}},
		{"timeline is a directory", map[string]string{"TIMELINE": t.TempDir()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TIMELINE", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(); err == nil {
				t.Error("LoadConfig succeeded")
			}
		})
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/healthz", "healthz"},
		{"/api/player/seek", "api/player"},
		{"/api/cache", "api/cache"},
		{"/ws/player", "ws"},
		{"/", ""},
	}
	for _, tt := range tests {
		if got := getRouteGroup(tt.path); got != tt.want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestGetRoutes(t *testing.T) {
	r := mux.NewRouter()
	noop := func(http.ResponseWriter, *http.Request) {}
	r.HandleFunc("/api/player", noop).Methods("GET")
	r.HandleFunc("/api/player/seek", noop).Methods("POST")
	r.HandleFunc("/ws/player", noop)

	routes, err := GetRoutes(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(routes) != 3 {
		t.Fatalf("routes = %+v", routes)
	}
	if routes[2].Method != "*" {
		t.Errorf("route without methods = %q, want *", routes[2].Method)
	}
}

func TestLogMemoryConfig(_ *testing.T) {
	LogMemoryConfig(memory.ConfigResult{})
	LogMemoryConfig(memory.ConfigResult{Configured: true, Source: memory.SourceGoMemLimit, GoMemLimit: 1 << 30})
	LogMemoryConfig(memory.ConfigResult{Configured: true, Source: memory.SourceCgroup, GoMemLimit: 850 << 20, ContainerLimit: 1000 << 20, Ratio: 0.85})
}
