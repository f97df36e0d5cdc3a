package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

var (
	levelMu      sync.RWMutex
	currentLevel LogLevel
	levelSet     bool

	onceMu   sync.Mutex
	onceKeys = make(map[string]struct{})
)

// ParseLevel converts a level name to a LogLevel. Unknown names map to info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// levelFromEnv reads DEBUG first, then LOG_LEVEL.
func levelFromEnv() LogLevel {
	switch strings.ToLower(os.Getenv("DEBUG")) {
	case "1", "true", "yes", "on":
		return LevelDebug
	}
	return ParseLevel(os.Getenv("LOG_LEVEL"))
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	levelMu.RLock()
	if levelSet {
		l := currentLevel
		levelMu.RUnlock()
		return l
	}
	levelMu.RUnlock()

	levelMu.Lock()
	defer levelMu.Unlock()
	if !levelSet {
		currentLevel = levelFromEnv()
		levelSet = true
	}
	return currentLevel
}

// SetLevel overrides the level taken from the environment.
func SetLevel(l LogLevel) {
	levelMu.Lock()
	currentLevel = l
	levelSet = true
	levelMu.Unlock()
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

var tags = [...]string{LevelDebug: "[DEBUG] ", LevelInfo: "[INFO] ", LevelWarn: "[WARN] ", LevelError: "[ERROR] "}

func logf(l LogLevel, format string, args []interface{}) {
	if GetLevel() <= l {
		log.Printf(tags[l]+format, args...)
	}
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) { logf(LevelDebug, format, args) }

// Info logs an info message
func Info(format string, args ...interface{}) { logf(LevelInfo, format, args) }

// Warn logs a warning message
func Warn(format string, args ...interface{}) { logf(LevelWarn, format, args) }

// Error logs an error message
func Error(format string, args ...interface{}) { logf(LevelError, format, args) }

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	log.Fatalf("[FATAL] "+format, args...)
}

// WarnOnce logs a warning the first time key is seen. It reports whether the
// message was written. Used for per-slot decode failures, which must be
// recorded once rather than on every tick.
func WarnOnce(key, format string, args ...interface{}) bool {
	onceMu.Lock()
	if _, seen := onceKeys[key]; seen {
		onceMu.Unlock()
		return false
	}
	onceKeys[key] = struct{}{}
	onceMu.Unlock()

	Warn(format, args...)
	return true
}

// ForgetOnce clears every WarnOnce key starting with prefix.
func ForgetOnce(prefix string) {
	onceMu.Lock()
	defer onceMu.Unlock()
	for k := range onceKeys {
		if strings.HasPrefix(k, prefix) {
			delete(onceKeys, k)
		}
	}
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
