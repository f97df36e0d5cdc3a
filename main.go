package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"media-review/internal/filesystem"
	"media-review/internal/handlers"
	"media-review/internal/logging"
	"media-review/internal/memory"
	"media-review/internal/metrics"
	"media-review/internal/middleware"
	"media-review/internal/player"
	"media-review/internal/session"
	"media-review/internal/startup"
	"media-review/internal/thumbnail"
	"media-review/internal/workers"

	"github.com/gorilla/mux"
)

// collectInterval is how often the collector samples the session.
const collectInterval = 15 * time.Second

func main() {
	startTime := time.Now()

	memResult := memory.ConfigureFromEnv()
	startup.LogMemoryConfig(memResult)

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	if config.MetricsEnabled {
		metrics.InitializeMetrics()
	}

	if config.Timeline != "" {
		filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
			"timeline": filepath.Dir(config.Timeline),
		}))
	}

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	startup.LogDecoderInit()
	thumbnail.InitVips()

	thumbOpts := thumbnail.DefaultOptions()
	thumbOpts.MaxSize = config.ThumbnailCacheBytes
	thumbOpts.Memory = monitor
	thumbs := thumbnail.New(thumbOpts)

	playerOpts := player.DefaultOptions()
	playerOpts.TickInterval = config.TickInterval
	playerOpts.Cache = config.CacheOptions()
	playerOpts.Throttle = monitor.ShouldThrottle
	sess := session.New(session.Options{
		Player:  playerOpts,
		Workers: workers.ForDecode(16),
	})

	watchCtx, stopWatch := context.WithCancel(context.Background())
	openTimeline(watchCtx, sess, config)

	collector := metrics.NewCollector(&reviewStats{session: sess, thumbs: thumbs}, collectInterval)
	collector.Start()

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = startMetricsServer(config.MetricsPort)
	}

	// Initialize handlers
	h := handlers.New(sess, thumbs)
	h.SetMemoryMonitor(monitor)

	// Setup router
	router := setupRouter(h)
	if config.MetricsEnabled {
		router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	}

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)

	// Apply compression middleware
	handler = middleware.Compression(middleware.DefaultCompressionConfig())(handler)

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, shutdownDeps{
		stopWatch:  stopWatch,
		collector:  collector,
		monitor:    monitor,
		metricsSrv: metricsSrv,
		session:    sess,
		thumbs:     thumbs,
	})

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
}

// openTimeline opens the configured timeline and, when asked, watches it
// for changes. A timeline that fails to open is logged and the server
// starts idle.
func openTimeline(ctx context.Context, sess *session.Session, config *startup.Config) {
	start := time.Now()
	if config.Timeline == "" {
		startup.LogTimelineOpened("", 0)
		return
	}
	if err := sess.Open(ctx, config.Timeline); err != nil {
		logging.Error("Failed to open timeline: %v", err)
		return
	}
	startup.LogTimelineOpened(config.Timeline, time.Since(start))

	if config.WatchTimeline {
		go func() {
			if err := sess.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error("Timeline watch stopped: %v", err)
			}
		}()
	}
}

// reviewStats combines session and thumbnail statistics for the collector.
type reviewStats struct {
	session *session.Session
	thumbs  *thumbnail.System
}

func (r *reviewStats) GetStats() metrics.Stats {
	stats := r.session.GetStats()
	stats.ThumbnailBytes = r.thumbs.Size()
	stats.ThumbnailEntries = r.thumbs.Len()
	return stats
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Player
	api.HandleFunc("/player", h.GetPlayer).Methods("GET")
	api.HandleFunc("/player/seek", h.Seek).Methods("POST")
	api.HandleFunc("/player/playback", h.SetPlayback).Methods("POST")
	api.HandleFunc("/player/loop", h.SetLoop).Methods("POST")
	api.HandleFunc("/player/speed", h.SetSpeed).Methods("POST")
	api.HandleFunc("/player/inout", h.SetInOut).Methods("POST")
	api.HandleFunc("/player/action", h.TimeAction).Methods("POST")
	api.HandleFunc("/player/layer", h.SetVideoLayer).Methods("POST")
	api.HandleFunc("/player/volume", h.SetVolume).Methods("POST")
	api.HandleFunc("/player/mute", h.SetMute).Methods("POST")
	api.HandleFunc("/player/audio-offset", h.SetAudioOffset).Methods("POST")

	// Caches
	api.HandleFunc("/cache", h.GetCache).Methods("GET")
	api.HandleFunc("/cache", h.SetCacheOptions).Methods("PUT")
	api.HandleFunc("/cache/thumbnails", h.ClearThumbnails).Methods("DELETE")

	// Timeline
	api.HandleFunc("/timeline", h.OpenTimeline).Methods("POST")
	api.HandleFunc("/timeline/reload", h.ReloadTimeline).Methods("POST")

	// Thumbnail system
	api.HandleFunc("/thumbnail", h.GetThumbnail).Methods("GET")
	api.HandleFunc("/info", h.GetInfo).Methods("GET")
	api.HandleFunc("/waveform", h.GetWaveform).Methods("GET")

	// Player state push
	r.HandleFunc("/ws/player", h.PlayerSocket).Methods("GET")

	return r
}

func startMetricsServer(port string) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", (&handlers.Handlers{}).MetricsHandler())

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server error: %v", err)
		}
	}()
	return srv
}

type shutdownDeps struct {
	stopWatch  context.CancelFunc
	collector  *metrics.Collector
	monitor    *memory.Monitor
	metricsSrv *http.Server
	session    *session.Session
	thumbs     *thumbnail.System
}

func handleShutdown(srv *http.Server, deps shutdownDeps) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Stopping timeline watch")
	deps.stopWatch()
	startup.LogShutdownStepComplete("Timeline watch stopped")

	// Paused thumbnail workers only wake once the monitor stops.
	deps.collector.Stop()
	deps.monitor.Stop()

	startup.LogShutdownStep("Closing session")
	deps.session.Close()
	startup.LogShutdownStepComplete("Session closed")

	startup.LogShutdownStep("Stopping thumbnail system")
	deps.thumbs.Close()
	thumbnail.ShutdownVips()
	startup.LogShutdownStepComplete("Thumbnail system stopped")

	if deps.metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := deps.metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownComplete()
}
