package mediaio

import (
	"context"
	"errors"
	"sync"
	"time"

	"media-review/internal/future"
	"media-review/internal/logging"
	"media-review/internal/metrics"
)

type job struct {
	pending func() bool
	run     func()
	cancel  func()
}

// System executes read requests on a fixed pool of workers.
type System struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []job
	closed bool

	wg sync.WaitGroup
}

// NewSystem starts workers goroutines.
func NewSystem(workers int) *System {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &System{ctx: ctx, cancel: cancel}
	s.cond = sync.NewCond(&s.mu)

	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	logging.Debug("I/O system started with %d workers", workers)
	return s
}

// Submit queues fn and returns its future. The future is Canceled if the
// work returns after its context was cancelled.
func Submit[T any](s *System, kind string, fn func(ctx context.Context) (T, error)) *future.Future[T] {
	ctx, cancel := context.WithCancel(s.ctx)
	f := future.NewWithCancel[T](cancel)

	j := job{
		pending: f.IsPending,
		cancel:  func() { f.Cancel() },
		run: func() {
			start := time.Now()
			v, err := fn(ctx)
			metrics.IORequestDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
			switch {
			case err == nil:
				f.Resolve(v)
			case ctx.Err() != nil || errors.Is(err, context.Canceled):
				f.Cancel()
			default:
				f.Fail(err)
			}
		},
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return future.Rejected[T](ErrClosed)
	}
	s.queue = append(s.queue, j)
	metrics.IOQueueDepth.Set(float64(len(s.queue)))
	s.mu.Unlock()
	s.cond.Signal()
	return f
}

// QueueLen returns the number of jobs waiting for a worker, including
// cancelled ones not yet skipped.
func (s *System) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *System) worker() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			return
		}
		j := s.queue[0]
		s.queue[0] = job{}
		s.queue = s.queue[1:]
		metrics.IOQueueDepth.Set(float64(len(s.queue)))
		s.mu.Unlock()

		if !j.pending() {
			continue
		}
		j.run()
	}
}

// Close cancels queued and running requests and waits for the workers.
func (s *System) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	queued := s.queue
	s.queue = nil
	metrics.IOQueueDepth.Set(0)
	s.mu.Unlock()

	s.cancel()
	s.cond.Broadcast()
	for _, j := range queued {
		j.cancel()
	}
	s.wg.Wait()
	logging.Debug("I/O system stopped, %d queued requests cancelled", len(queued))
}
