package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"media-review/internal/filesystem"
	"media-review/internal/logging"
	"media-review/internal/memory"
	"media-review/internal/player"
)

// Config is the server configuration read from the environment.
type Config struct {
	// Timeline is the document opened at startup; empty starts idle.
	Timeline      string
	WatchTimeline bool

	Port           string
	MetricsPort    string
	MetricsEnabled bool

	TickInterval    time.Duration
	ReadAhead       time.Duration
	ReadBehind      time.Duration
	AudioReadBehind time.Duration

	VideoCacheBytes     int64
	AudioCacheBytes     int64
	ThumbnailCacheBytes int64

	MaxVideoRequests int
	MaxAudioRequests int

	LogStaticFiles  bool
	LogHealthChecks bool
}

// LoadConfig prints the startup banner, reads the configuration and checks
// that the startup timeline, if any, is a readable file.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	videoMB := memory.CacheBudget(memory.CurrentLimit(), memory.DefaultVideoCacheShare, memory.DefaultVideoCacheBytes) >> 20

	c := &Config{
		Timeline:            getEnv("TIMELINE", ""),
		WatchTimeline:       getEnvBool("WATCH_TIMELINE", false),
		Port:                getEnv("PORT", "8080"),
		MetricsPort:         getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:      getEnvBool("METRICS_ENABLED", true),
		TickInterval:        getEnvDuration("TICK_INTERVAL", 10*time.Millisecond),
		ReadAhead:           getEnvDuration("READ_AHEAD", 4*time.Second),
		ReadBehind:          getEnvDuration("READ_BEHIND", 500*time.Millisecond),
		AudioReadBehind:     getEnvDuration("AUDIO_READ_BEHIND", time.Second),
		VideoCacheBytes:     megabytes("VIDEO_CACHE_MB", int(videoMB)),
		AudioCacheBytes:     megabytes("AUDIO_CACHE_MB", 128),
		ThumbnailCacheBytes: megabytes("THUMBNAIL_CACHE_MB", 256),
		MaxVideoRequests:    getEnvInt("MAX_VIDEO_REQUESTS", 16),
		MaxAudioRequests:    getEnvInt("MAX_AUDIO_REQUESTS", 4),
		LogStaticFiles:      getEnvBool("LOG_STATIC_FILES", false),
		LogHealthChecks:     getEnvBool("LOG_HEALTH_CHECKS", true),
	}
	c.log()

	if c.Timeline != "" {
		abs, err := checkTimeline(c.Timeline)
		if err != nil {
			return nil, err
		}
		c.Timeline = abs
	}

	if err := c.CacheOptions().Validate(); err != nil {
		return nil, fmt.Errorf("cache configuration: %w", err)
	}
	return c, nil
}

func checkTimeline(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve timeline path: %w", err)
	}
	info, err := filesystem.StatWithRetry(abs, filesystem.DefaultRetryConfig())
	if err != nil {
		return "", fmt.Errorf("timeline not accessible: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("timeline %s is a directory", abs)
	}
	return abs, nil
}

func (c *Config) log() {
	section("CONFIGURATION")
	settings := []struct {
		name  string
		value any
	}{
		{"TIMELINE", orNone(c.Timeline)},
		{"WATCH_TIMELINE", c.WatchTimeline},
		{"PORT", c.Port},
		{"METRICS_PORT", c.MetricsPort},
		{"METRICS_ENABLED", c.MetricsEnabled},
		{"TICK_INTERVAL", c.TickInterval},
		{"READ_AHEAD", c.ReadAhead},
		{"READ_BEHIND", c.ReadBehind},
		{"AUDIO_READ_BEHIND", c.AudioReadBehind},
		{"VIDEO_CACHE", memory.FormatBytes(c.VideoCacheBytes)},
		{"AUDIO_CACHE", memory.FormatBytes(c.AudioCacheBytes)},
		{"THUMBNAIL_CACHE", memory.FormatBytes(c.ThumbnailCacheBytes)},
		{"MAX_VIDEO_REQUESTS", c.MaxVideoRequests},
		{"MAX_AUDIO_REQUESTS", c.MaxAudioRequests},
		{"LOG_STATIC_FILES", c.LogStaticFiles},
		{"LOG_HEALTH_CHECKS", c.LogHealthChecks},
		{"LOG_LEVEL", logging.GetLevel()},
	}
	for _, s := range settings {
		logging.Info("  %-20s %v", s.name+":", s.value)
	}
}

// CacheOptions returns the frame cache settings for new players.
func (c *Config) CacheOptions() player.CacheOptions {
	opts := player.DefaultCacheOptions()
	opts.Video.ReadAhead, opts.Video.ReadBehind = c.ReadAhead, c.ReadBehind
	opts.Audio.ReadAhead, opts.Audio.ReadBehind = c.ReadAhead, c.AudioReadBehind
	opts.VideoBudget, opts.AudioBudget = c.VideoCacheBytes, c.AudioCacheBytes
	opts.MaxVideoRequests, opts.MaxAudioRequests = c.MaxVideoRequests, c.MaxAudioRequests
	return opts
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func megabytes(key string, def int) int64 {
	return int64(getEnvInt(key, def)) << 20
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// parseEnv reads key with parse, logging and returning def when the value
// does not parse.
func parseEnv[T any](key string, def T, kind string, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		logging.Warn("Invalid %s value for %s: %q, using default: %v", kind, key, raw, def)
		return def
	}
	return v
}

var errNegative = errors.New("negative")

func getEnvInt(key string, def int) int {
	return parseEnv(key, def, "integer", func(s string) (int, error) {
		n, err := strconv.Atoi(s)
		if err == nil && n < 0 {
			err = errNegative
		}
		return n, err
	})
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	return parseEnv(key, def, "duration", func(s string) (time.Duration, error) {
		d, err := time.ParseDuration(s)
		if err == nil && d < 0 {
			err = errNegative
		}
		return d, err
	})
}

func getEnvBool(key string, def bool) bool {
	return parseEnv(key, def, "boolean", strconv.ParseBool)
}
