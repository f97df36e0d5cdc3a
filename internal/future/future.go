package future

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrCanceled is returned by Wait for a canceled future.
var ErrCanceled = errors.New("request canceled")

// State is the lifecycle state of a Future.
type State int

const (
	// Pending means no result is available yet.
	Pending State = iota
	// Ready means the value is available.
	Ready
	// Canceled means the request was canceled before it produced a result.
	Canceled
	// Failed means the request finished with an error.
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Canceled:
		return "canceled"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Future holds the eventual result of an asynchronous request.
type Future[T any] struct {
	mu     sync.Mutex
	state  State
	value  T
	err    error
	done   chan struct{}
	cancel context.CancelFunc
}

// New returns a pending future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// NewWithCancel returns a pending future whose Cancel also calls cancel.
func NewWithCancel[T any](cancel context.CancelFunc) *Future[T] {
	return &Future[T]{done: make(chan struct{}), cancel: cancel}
}

// Resolved returns a future that is already Ready with v.
func Resolved[T any](v T) *Future[T] {
	f := New[T]()
	f.Resolve(v)
	return f
}

// Rejected returns a future that has already Failed with err.
func Rejected[T any](err error) *Future[T] {
	f := New[T]()
	f.Fail(err)
	return f
}

// Resolve completes the future with v. It reports false if the future had
// already left the Pending state.
func (f *Future[T]) Resolve(v T) bool {
	return f.finish(Ready, v, nil)
}

// Fail completes the future with err.
func (f *Future[T]) Fail(err error) bool {
	var zero T
	return f.finish(Failed, zero, err)
}

// Cancel marks a pending future as Canceled and cancels its work context.
func (f *Future[T]) Cancel() bool {
	var zero T
	return f.finish(Canceled, zero, nil)
}

func (f *Future[T]) finish(state State, v T, err error) bool {
	f.mu.Lock()
	if f.state != Pending {
		f.mu.Unlock()
		return false
	}
	f.state = state
	f.value = v
	f.err = err
	cancel := f.cancel
	f.cancel = nil
	close(f.done)
	f.mu.Unlock()

	// Releases the work context on every terminal transition.
	if cancel != nil {
		cancel()
	}
	return true
}

// Poll returns the current state without blocking.
func (f *Future[T]) Poll() (State, T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.value, f.err
}

// State returns the current state.
func (f *Future[T]) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// IsPending reports whether the future has no result yet.
func (f *Future[T]) IsPending() bool {
	return f.State() == Pending
}

// Done is closed when the future leaves the Pending state.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future completes or ctx ends. It is meant for
// callers off the control loop, such as HTTP handlers and tests.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	state, v, err := f.Poll()
	switch state {
	case Canceled:
		return v, ErrCanceled
	case Failed:
		return v, err
	default:
		return v, nil
	}
}
