// Package handlers provides the HTTP API of the review server.
//
// It includes handlers for:
//   - Player state and transport commands (seek, playback, loop, speed,
//     in/out, time actions, video layer, volume, mute, audio offset)
//   - Frame cache options and statistics
//   - Opening and reloading the timeline
//   - Thumbnails, stream info and waveforms from the thumbnail system
//   - A WebSocket that pushes player state on every change
//   - Health checks and version information
//
// Commands run on the player's loop goroutine through session.Do, so a
// handler never mutates player state directly.
package handlers
