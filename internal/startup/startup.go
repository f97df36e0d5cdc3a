package startup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"media-review/internal/logging"
	"media-review/internal/memory"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

const rule = "------------------------------------------------------------"

// section starts a titled block in the startup log.
func section(title string) {
	logging.Info(rule)
	logging.Info("%s", title)
	logging.Info(rule)
}

// LogMemoryConfig logs how GOMEMLIMIT was configured.
func LogMemoryConfig(result memory.ConfigResult) {
	section("MEMORY")
	switch {
	case !result.Configured:
		logging.Info("  GOMEMLIMIT: not configured (set MEMORY_LIMIT or GOMEMLIMIT)")
	case result.Source == memory.SourceGoMemLimit:
		logging.Info("  GOMEMLIMIT: %s (from environment)", memory.FormatBytes(result.GoMemLimit))
	default:
		logging.Info("  GOMEMLIMIT: %s (%.0f%% of %s limit from %s)",
			memory.FormatBytes(result.GoMemLimit), result.Ratio*100, memory.FormatBytes(result.ContainerLimit), result.Source)
	}
	logging.Info("")
}

// LogDecoderInit checks that FFmpeg is available for file-backed media.
func LogDecoderInit() {
	logging.Info("")
	section("DECODER INITIALIZATION")
	version, err := ffmpegVersion()
	if err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Only still images and pattern media will play")
		return
	}
	logging.Info("  [OK] %s", version)
}

// LogTimelineOpened logs the timeline opened at startup.
func LogTimelineOpened(path string, took time.Duration) {
	logging.Info("")
	section("TIMELINE")
	if path == "" {
		logging.Info("  No TIMELINE set, waiting for POST /api/timeline")
		return
	}
	logging.Info("  [OK] Opened %s in %v", path, took)
}

// RouteInfo is one method/path pair registered on the router.
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// GetRoutes lists every route on router, one entry per method. Routes
// without a method matcher are reported as "*".
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo
	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		tpl, err := route.GetPathTemplate()
		if err != nil {
			return err
		}
		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}
		for _, m := range methods {
			routes = append(routes, RouteInfo{Method: m, Path: tpl, Name: route.GetName()})
		}
		return nil
	})
	return routes, err
}

// LogHTTPRoutes logs the request logging switches and, at debug level,
// every registered route grouped by its leading path segment.
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logging.Info("")
	section("HTTP SERVER SETUP")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}
		logging.Debug("  Registered routes (%d total):", len(routes))

		groups := make(map[string][]RouteInfo)
		for _, r := range routes {
			g := getRouteGroup(r.Path)
			groups[g] = append(groups[g], r)
		}
		names := make([]string, 0, len(groups))
		for g := range groups {
			names = append(names, g)
		}
		slices.Sort(names)

		for _, g := range names {
			label := g
			if label == "" {
				label = "root"
			}
			logging.Debug("  [%s]", label)
			for _, r := range groups[g] {
				logging.Debug("    %-6s %s", r.Method, r.Path)
			}
		}
	}

	logging.Info("  HTTP logging enabled")
	logging.Info("    Static file logging: %s", onOff(logStaticFiles, "LOG_STATIC_FILES"))
	logging.Info("    Health check logging: %s", onOff(logHealthChecks, "LOG_HEALTH_CHECKS"))
}

func onOff(v bool, env string) string {
	if v {
		return "ON"
	}
	return "OFF (set " + env + "=true to enable)"
}

// getRouteGroup returns the first path segment, or "api/<resource>" for
// routes under /api.
func getRouteGroup(path string) string {
	first, rest, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if first == "api" && rest != "" {
		resource, _, _ := strings.Cut(rest, "/")
		return "api/" + resource
	}
	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs the listening endpoints and how long startup took.
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	section("SERVER STARTED")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	for _, host := range []string{"0.0.0.0", "localhost"} {
		logging.Info("")
		logging.Info("  %s:", host)
		logging.Info("    Player UI:     http://%s:%s", host, config.Port)
		logging.Info("    WebSocket:     ws://%s:%s/ws/player", host, config.Port)
		if config.MetricsEnabled {
			logging.Info("    Metrics:       http://%s:%s/metrics", host, config.MetricsPort)
		}
	}
	if !config.MetricsEnabled {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info(rule)
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	section(fmt.Sprintf("SHUTDOWN INITIATED (received %s)", signal))
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...any) {
	logging.Fatal(format, args...)
}

func printBanner() {
	fmt.Println(`
` + rule + `
    __  ___         ___         ____            _
   /  |/  /__  ____/ (_)___ _  / __ \___ _   __(_)__ _      __
  / /|_/ / _ \/ __  / / __ '/ / /_/ / _ \ | / / / _ \ | /| / /
 / /  / /  __/ /_/ / / /_/ / / _, _/  __/ |/ / /  __/ |/ |/ /
/_/  /_/\___/\__,_/_/\__,_/ /_/ |_|\___/|___/_/\___/|__/|__/

` + rule)
	logging.Info("  Version:    %s (%s)", Version, Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	section("SYSTEM INFORMATION")
	procs := runtime.GOMAXPROCS(0)
	logging.Info("  Go %s on %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs: %d, GOMAXPROCS: %d", runtime.NumCPU(), procs)
	if procs < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}
	if logging.IsDebugEnabled() {
		wd, _ := os.Getwd()
		host, _ := os.Hostname()
		logging.Debug("  Working dir: %s, hostname: %s", wd, host)
	}
	logging.Info("")
}

// ffmpegVersion returns the first line of `ffmpeg -version`.
func ffmpegVersion() (string, error) {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", errors.New("ffmpeg not found in PATH")
	}
	logging.Debug("  FFmpeg path: %s", path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to get ffmpeg version: %w", err)
	}
	first, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(first), nil
}
