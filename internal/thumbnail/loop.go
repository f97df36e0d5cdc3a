package thumbnail

import (
	"sync"

	"github.com/google/uuid"

	"media-review/internal/logging"
	"media-review/internal/metrics"
)

type job struct {
	id      uuid.UUID
	pending func() bool
	run     func()
	cancel  func() bool
}

// loop runs the requests of one kind in submission order.
type loop struct {
	kind string

	// wait blocks while memory pressure pauses generation.
	wait func() bool

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*job
	running map[uuid.UUID]*job
	closed  bool

	wg sync.WaitGroup
}

func newLoop(kind string, workers int, wait func() bool) *loop {
	if workers < 1 {
		workers = 1
	}
	l := &loop{kind: kind, wait: wait, running: make(map[uuid.UUID]*job)}
	l.cond = sync.NewCond(&l.mu)
	for i := 0; i < workers; i++ {
		l.wg.Add(1)
		go l.worker()
	}
	logging.Debug("Thumbnail %s loop started with %d workers", kind, workers)
	return l
}

func (l *loop) push(j *job) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, j)
	metrics.ThumbnailQueueDepth.WithLabelValues(l.kind).Set(float64(len(l.queue)))
	l.mu.Unlock()
	l.cond.Signal()
	return true
}

func (l *loop) worker() {
	defer l.wg.Done()
	for {
		if l.wait != nil {
			l.wait()
		}
		l.mu.Lock()
		for len(l.queue) == 0 && !l.closed {
			l.cond.Wait()
		}
		if l.closed {
			l.mu.Unlock()
			return
		}
		j := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		metrics.ThumbnailQueueDepth.WithLabelValues(l.kind).Set(float64(len(l.queue)))
		if !j.pending() {
			l.mu.Unlock()
			continue
		}
		l.running[j.id] = j
		l.mu.Unlock()

		j.run()

		l.mu.Lock()
		delete(l.running, j.id)
		l.mu.Unlock()
	}
}

// cancel removes queued jobs in ids and cancels running ones. It returns
// the number of requests cancelled.
func (l *loop) cancel(ids map[uuid.UUID]bool) int {
	l.mu.Lock()
	var hit []*job
	kept := l.queue[:0]
	for _, j := range l.queue {
		if ids[j.id] {
			hit = append(hit, j)
			continue
		}
		kept = append(kept, j)
	}
	clear(l.queue[len(kept):])
	l.queue = kept
	for id, j := range l.running {
		if ids[id] {
			hit = append(hit, j)
		}
	}
	metrics.ThumbnailQueueDepth.WithLabelValues(l.kind).Set(float64(len(l.queue)))
	l.mu.Unlock()

	n := 0
	for _, j := range hit {
		if j.cancel() {
			n++
		}
	}
	if n > 0 {
		metrics.ThumbnailRequestsCancelled.WithLabelValues(l.kind).Add(float64(n))
	}
	return n
}

// close cancels every queued and running job and waits for the workers.
func (l *loop) close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	jobs := l.queue
	l.queue = nil
	for _, j := range l.running {
		jobs = append(jobs, j)
	}
	metrics.ThumbnailQueueDepth.WithLabelValues(l.kind).Set(0)
	l.mu.Unlock()

	l.cond.Broadcast()
	for _, j := range jobs {
		j.cancel()
	}
	l.wg.Wait()
}

func (l *loop) queued() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}
