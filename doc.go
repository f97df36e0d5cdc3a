// Package main provides the entry point for the Media Review server.
//
// Media Review plays an editorial timeline for review: it keeps a frame
// cache around the playhead filled from the timeline's media, exposes the
// transport over HTTP and pushes player state to WebSocket clients.
//
// # Application Lifecycle
//
// The server follows a structured initialization sequence:
//
//  1. Memory Configuration: Sets GOMEMLIMIT from environment or cgroup limits
//  2. Configuration Loading: Reads environment variables and validates the timeline path
//  3. Component Initialization:
//     - Memory Monitor: Throttles cache population under memory pressure
//     - Thumbnail System: Initializes libvips and the info/thumbnail/waveform loops
//     - Session: Starts the media I/O workers and opens TIMELINE, if set
//     - Metrics Collector: Samples the session for Prometheus gauges
//  4. HTTP Server Setup: Configures routes, middleware, and starts server
//  5. Graceful Shutdown: Handles SIGINT/SIGTERM, stops all components cleanly
//
// # HTTP Server
//
// The application runs two HTTP servers:
//
//  1. Main Server (default port 8080):
//     - Player state and transport commands under /api/player
//     - Frame cache options and statistics under /api/cache
//     - Timeline open and reload under /api/timeline
//     - Thumbnails, stream info and waveforms
//     - Player state push on /ws/player
//     - Health checks on /healthz, /livez and /readyz
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//
// # Environment Variables
//
// See [media-review/internal/startup] for the full list. The most common are:
//
//   - TIMELINE: Timeline document to open at startup
//   - WATCH_TIMELINE: Reload the timeline when its file changes
//   - PORT: Main HTTP server port (default: 8080)
//   - READ_AHEAD / READ_BEHIND: Frame cache window around the playhead
//   - VIDEO_CACHE_MB: Video frame cache budget
//   - LOG_LEVEL: Logging level (debug/info/warn/error)
//
// # Graceful Shutdown
//
// The application handles SIGINT and SIGTERM signals gracefully:
//
//  1. Stop accepting new HTTP requests
//  2. Stop the timeline watch
//  3. Stop metrics collector and memory monitor
//  4. Close the session (player loop, caches, readers, I/O workers)
//  5. Stop the thumbnail system and libvips
//  6. Shutdown metrics server (if running)
//
// # Related Packages
//
//   - [media-review/internal/player]: Playback state machine
//   - [media-review/internal/framecache]: Frame cache with window and budget eviction
//   - [media-review/internal/populator]: Cache population from the I/O layer
//   - [media-review/internal/thumbnail]: Thumbnail, info and waveform cache
//   - [media-review/internal/session]: Current timeline ownership and reload
//   - [media-review/internal/handlers]: HTTP request handlers
//   - [media-review/internal/middleware]: HTTP middleware (logging, metrics, compression)
package main
