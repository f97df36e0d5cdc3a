// Package future provides a cancellable, pollable result holder used for
// every asynchronous request in the player: frame and audio reads, and
// thumbnail, info and waveform generation.
//
// A Future starts Pending and moves exactly once to Ready, Canceled or
// Failed; the first transition wins and later ones are ignored. The control
// loop never blocks on a Future: it calls Poll once per tick. Cancel is
// advisory. It flags the future and cancels the context handed to the work
// function, but a worker that ignores the context may still finish, and its
// result is simply dropped.
package future
