package populator

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"media-review/internal/framecache"
	"media-review/internal/future"
	"media-review/internal/logging"
	"media-review/internal/metrics"
	"media-review/internal/otime"
)

// RequestFunc starts an asynchronous read of one slot.
type RequestFunc[T any] func(slot otime.TimeRange) *future.Future[T]

// Options tune a Populator.
type Options struct {
	// Name labels log messages, e.g. "reel1 video".
	Name string

	// MaxPending bounds the requests in flight. Zero means no bound.
	MaxPending int

	// Throttle, when it returns true, stops new requests for this update.
	// Pending requests still complete.
	Throttle func() bool

	Observer *metrics.CacheObserver
}

// Stats counts populator activity since creation.
type Stats struct {
	Issued    int `json:"issued"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	Discarded int `json:"discarded"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`
}

type pendingRequest[T any] struct {
	slot   otime.TimeRange
	future *future.Future[T]
}

// rejectedSlot is a decoded slot the cache had no room for.
type rejectedSlot struct {
	slot otime.TimeRange
	size int64
}

var populatorIDs atomic.Int64

// Populator issues and reconciles reads for one cache.
type Populator[T any] struct {
	cache   *framecache.Cache[T]
	request RequestFunc[T]
	slots   SlotFunc
	sizeOf  func(T) int64
	opts    Options
	prefix  string

	mu      sync.Mutex
	pending  map[int64]*pendingRequest[T]
	failed   map[int64]bool
	rejected map[int64]rejectedSlot
	stats    Stats
}

// New returns a populator filling cache with request over the slots
// listed by slots. sizeOf reports the byte size of a payload.
func New[T any](cache *framecache.Cache[T], request RequestFunc[T], slots SlotFunc, sizeOf func(T) int64, opts Options) *Populator[T] {
	p := &Populator[T]{
		cache:    cache,
		request:  request,
		slots:    slots,
		sizeOf:   sizeOf,
		opts:     opts,
		pending:  make(map[int64]*pendingRequest[T]),
		failed:   make(map[int64]bool),
		rejected: make(map[int64]rejectedSlot),
		prefix:   fmt.Sprintf("populator %d ", populatorIDs.Add(1)),
	}
	return p
}

func (p *Populator[T]) key(slot otime.TimeRange) int64 {
	return slot.Start.Frame(p.cache.Rate())
}

// Update reconciles the cache and pending requests with wanted.
func (p *Populator[T]) Update(wanted otime.TimeRange, current otime.RationalTime) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.collect(wanted, current)
	p.cancelStale(wanted)
	for key, r := range p.rejected {
		if !r.slot.Intersects(wanted) {
			delete(p.rejected, key)
		}
	}
	p.cache.EvictOutside(wanted)
	p.issue(wanted, current)
	p.opts.Observer.ObservePending(len(p.pending))
}

// collect handles completed requests. Each one is judged against wanted as
// it is at this update, not when the request was issued. Completions are
// inserted nearest first so a full cache keeps the slots around current.
func (p *Populator[T]) collect(wanted otime.TimeRange, current otime.RationalTime) {
	var done []int64
	for key, req := range p.pending {
		if req.future.State() != future.Pending {
			done = append(done, key)
		}
	}
	sort.Slice(done, func(i, j int) bool {
		return closer(p.pending[done[i]].slot, p.pending[done[j]].slot, current)
	})

	obs := p.opts.Observer
	for _, key := range done {
		req := p.pending[key]
		delete(p.pending, key)
		state, v, err := req.future.Poll()

		switch state {
		case future.Ready:
			if !req.slot.Intersects(wanted) {
				p.stats.Discarded++
				obs.ObserveRequest("discarded", 1)
				continue
			}
			size := p.sizeOf(v)
			if !p.cache.Insert(framecache.Entry[T]{Range: req.slot, Payload: v, SizeBytes: size}, current) {
				// Not requested again until the cache could take it.
				p.rejected[key] = rejectedSlot{slot: req.slot, size: size}
				p.stats.Discarded++
				obs.ObserveRequest("discarded", 1)
				continue
			}
			p.stats.Completed++
			obs.ObserveRequest("completed", 1)
		case future.Failed:
			if !req.slot.Intersects(wanted) {
				p.stats.Discarded++
				obs.ObserveRequest("discarded", 1)
				continue
			}
			p.failed[key] = true
			p.stats.Failed++
			obs.ObserveRequest("failed", 1)
			logging.WarnOnce(fmt.Sprintf("%s%d", p.prefix, key),
				"%s: read of %v failed, skipping until next seek: %v", p.opts.Name, req.slot, err)
		case future.Canceled:
			// Counted when cancelled.
		}
	}
}

// closer orders slots by distance from current, ahead of the playhead
// first at equal distance.
func closer(a, b otime.TimeRange, current otime.RationalTime) bool {
	da, db := distance(a, current), distance(b, current)
	if da != db {
		return da < db
	}
	return a.Start.After(b.Start)
}

func (p *Populator[T]) cancelStale(wanted otime.TimeRange) {
	n := 0
	for key, req := range p.pending {
		if req.slot.Intersects(wanted) {
			continue
		}
		req.future.Cancel()
		delete(p.pending, key)
		n++
	}
	p.stats.Cancelled += n
	p.opts.Observer.ObserveRequest("cancelled", n)
}

func (p *Populator[T]) issue(wanted otime.TimeRange, current otime.RationalTime) {
	if wanted.IsEmpty() {
		return
	}
	if p.opts.MaxPending > 0 && len(p.pending) >= p.opts.MaxPending {
		return
	}

	var missing []otime.TimeRange
	for _, slot := range p.slots(wanted) {
		key := p.key(slot)
		if p.pending[key] != nil || p.failed[key] || p.cache.Contains(slot.Start) {
			continue
		}
		if r, ok := p.rejected[key]; ok {
			if !p.cache.Fits(slot.Start, r.size, current) {
				continue
			}
			delete(p.rejected, key)
		}
		missing = append(missing, slot)
	}
	if len(missing) == 0 {
		return
	}
	if p.opts.Throttle != nil && p.opts.Throttle() {
		p.opts.Observer.ObserveThrottled()
		return
	}

	sort.SliceStable(missing, func(i, j int) bool { return closer(missing[i], missing[j], current) })

	n := 0
	for _, slot := range missing {
		if p.opts.MaxPending > 0 && len(p.pending) >= p.opts.MaxPending {
			break
		}
		p.pending[p.key(slot)] = &pendingRequest[T]{slot: slot, future: p.request(slot)}
		n++
	}
	p.stats.Issued += n
	p.opts.Observer.ObserveRequest("issued", n)
}

// ClearFailed forgets failed and rejected slots so they are requested
// again.
func (p *Populator[T]) ClearFailed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.failed)
	clear(p.rejected)
	logging.ForgetOnce(p.prefix)
}

// Cancel cancels every pending request.
func (p *Populator[T]) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.pending)
	for key, req := range p.pending {
		req.future.Cancel()
		delete(p.pending, key)
	}
	p.stats.Cancelled += n
	p.opts.Observer.ObserveRequest("cancelled", n)
	p.opts.Observer.ObservePending(0)
	logging.ForgetOnce(p.prefix)
}

// PendingSlots returns the slots with a request in flight, sorted by start.
func (p *Populator[T]) PendingSlots() []otime.TimeRange {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]otime.TimeRange, 0, len(p.pending))
	for _, req := range p.pending {
		out = append(out, req.slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// FailedSlots returns the number of slots remembered as failed.
func (p *Populator[T]) FailedSlots() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.failed)
}

// Stats returns the activity counters.
func (p *Populator[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.Pending = len(p.pending)
	return s
}

// SetMaxPending changes the bound on requests in flight. Requests already
// issued above the new bound are left to complete.
func (p *Populator[T]) SetMaxPending(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opts.MaxPending = n
}
