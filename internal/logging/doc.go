// Package logging provides a simple leveled logging interface for the
// media review server and its playback engine.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information (tick and cache decisions)
//   - INFO: General operational messages
//   - WARN: Warning conditions, such as a clip that fails to decode
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable, or
// DEBUG=true. Tests may call SetLevel.
package logging
