// Package startup reads the server configuration and writes the banner
// and lifecycle sections of the startup log.
//
// # Configuration
//
// [LoadConfig] reads these environment variables:
//
//   - TIMELINE: Timeline document opened at startup (default: none)
//   - WATCH_TIMELINE: Reload the timeline when its file changes (default: false)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - TICK_INTERVAL: Player tick period as Go duration (default: 10ms)
//   - READ_AHEAD: Cache window ahead of the playhead (default: 4s)
//   - READ_BEHIND: Video cache window behind the playhead (default: 500ms)
//   - AUDIO_READ_BEHIND: Audio cache window behind the playhead (default: 1s)
//   - VIDEO_CACHE_MB: Video frame cache budget (default: half of GOMEMLIMIT, else 1024)
//   - AUDIO_CACHE_MB: Audio cache budget (default: 128)
//   - THUMBNAIL_CACHE_MB: Thumbnail cache bound (default: 256)
//   - MAX_VIDEO_REQUESTS, MAX_AUDIO_REQUESTS: Outstanding decode requests per cache
//   - DECODE_WORKERS, THUMBNAIL_WORKERS: Worker pool overrides
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_STATIC_FILES: Log static file requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - MEMORY_LIMIT: Container memory limit for automatic GOMEMLIMIT configuration
//   - MEMORY_RATIO: Percentage of MEMORY_LIMIT for Go heap (default: 0.85)
//   - GOMEMLIMIT: Direct override for Go's memory limit
//
// Invalid numbers, durations and booleans log a warning and keep the
// default. A TIMELINE that is missing or a directory fails LoadConfig.
//
// # Build Information
//
// Version, Commit and BuildTime are set with -ldflags and returned by
// [GetBuildInfo] for the /api/version endpoint.
//
// # Lifecycle Logging
//
// main calls [LogMemoryConfig], [LogDecoderInit], [LogTimelineOpened],
// [LogHTTPRoutes] and [LogServerStarted] in that order, then
// [LogShutdownInitiated], the step loggers and [LogShutdownComplete] on
// the way down.
package startup
