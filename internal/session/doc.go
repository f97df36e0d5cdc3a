// Package session holds the timeline currently under review.
//
// A [Session] owns the I/O system and exactly one current [player.Player].
// [Session.Open] loads and validates a timeline, opens every reader, builds
// a player and starts its run loop, then swaps it in and tears down the
// previous one. If any step fails the previous player keeps running and
// the error is returned; no partial player is ever published.
//
// [Session.Watch] reloads the timeline file when it changes on disk,
// carrying the playhead and transport settings over to the new player.
// Observers registered with [Session.ObserveCurrent] are told about every
// replacement so they can resubscribe to the new player.
package session
