package framecache

import (
	"math"
	"slices"
	"sync"

	"media-review/internal/metrics"
	"media-review/internal/otime"
)

// Entry is one cached payload and the time it covers.
type Entry[T any] struct {
	Range     otime.TimeRange
	Payload   T
	SizeBytes int64
}

// Cache is a time-keyed store with window and byte-budget eviction.
type Cache[T any] struct {
	mu      sync.Mutex
	rate    float64
	entries map[int64]Entry[T]
	keys    []int64 // sorted start frames
	size    int64
	budget  int64
	obs     *metrics.CacheObserver
}

// New returns an empty cache keyed at rate. A budget of zero or less means
// no byte limit. obs may be nil.
func New[T any](rate float64, budget int64, obs *metrics.CacheObserver) *Cache[T] {
	c := &Cache[T]{
		rate:    rate,
		entries: make(map[int64]Entry[T]),
		budget:  budget,
		obs:     obs,
	}
	obs.ObserveBudget(budget)
	obs.ObserveSize(0, 0)
	return c
}

// Rate returns the rate entries are keyed at.
func (c *Cache[T]) Rate() float64 { return c.rate }

func (c *Cache[T]) frame(t otime.RationalTime) int64 { return t.Frame(c.rate) }

// find returns the index in keys of the entry covering t.
func (c *Cache[T]) find(t otime.RationalTime) (int, bool) {
	f := c.frame(t)
	i, found := slices.BinarySearch(c.keys, f)
	if found {
		return i, true
	}
	if i == 0 {
		return 0, false
	}
	e := c.entries[c.keys[i-1]]
	return i - 1, e.Range.Contains(t)
}

// Contains reports whether an entry covers t.
func (c *Cache[T]) Contains(t otime.RationalTime) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.find(t)
	return ok
}

// Get returns the entry covering t.
func (c *Cache[T]) Get(t otime.RationalTime) (Entry[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.find(t)
	if !ok {
		return Entry[T]{}, false
	}
	return c.entries[c.keys[i]], true
}

// overlaps reports whether rng intersects a cached entry. pos is where a
// new key for rng would be inserted.
func (c *Cache[T]) overlaps(rng otime.TimeRange, pos int) bool {
	if pos > 0 && c.entries[c.keys[pos-1]].Range.Intersects(rng) {
		return true
	}
	return pos < len(c.keys) && c.entries[c.keys[pos]].Range.Intersects(rng)
}

// Insert adds e unless its slot is already cached or it overlaps another
// entry. If the byte budget would be exceeded, entries farthest from
// current are evicted first; e itself is dropped when it would be the
// farthest. It reports whether e was stored.
func (c *Cache[T]) Insert(e Entry[T], current otime.RationalTime) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := c.frame(e.Range.Start)
	pos, found := slices.BinarySearch(c.keys, key)
	if found || c.overlaps(e.Range, pos) {
		c.obs.ObserveDuplicate()
		return false
	}

	if c.budget > 0 {
		if e.SizeBytes > c.budget {
			c.obs.ObserveEviction("rejected", 1)
			return false
		}
		cur := current.Rescale(c.rate).Value
		evicted := 0
		for c.size+e.SizeBytes > c.budget {
			victim := c.farthest(cur)
			if evictsFirst(float64(key), c.keys[victim], cur) {
				c.obs.ObserveEviction("budget", evicted)
				c.obs.ObserveEviction("rejected", 1)
				c.observeSize()
				return false
			}
			c.removeAt(victim)
			evicted++
		}
		c.obs.ObserveEviction("budget", evicted)
		pos, _ = slices.BinarySearch(c.keys, key)
	}

	c.entries[key] = e
	c.keys = slices.Insert(c.keys, pos, key)
	c.size += e.SizeBytes
	c.observeSize()
	return true
}

// Fits reports whether Insert would accept an entry of size bytes
// starting at start. Entries that Insert would evict to make room do not
// count against it.
func (c *Cache[T]) Fits(start otime.RationalTime, size int64, current otime.RationalTime) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.budget <= 0 {
		return true
	}
	if size > c.budget {
		return false
	}
	key := float64(c.frame(start))
	cur := current.Rescale(c.rate).Value
	kept := size
	for _, k := range c.keys {
		if evictsFirst(key, k, cur) {
			kept += c.entries[k].SizeBytes
		}
	}
	return kept <= c.budget
}

// farthest returns the index of the entry to evict first. Keys are sorted,
// so it is either the first or the last.
func (c *Cache[T]) farthest(cur float64) int {
	first, last := 0, len(c.keys)-1
	if evictsFirst(float64(c.keys[last]), c.keys[first], cur) {
		return last
	}
	return first
}

// evictsFirst reports whether a frame at a should be evicted before the
// entry keyed b, given the current frame. Farther goes first; at equal
// distance the one behind goes first.
func evictsFirst(a float64, b int64, cur float64) bool {
	da, db := math.Abs(a-cur), math.Abs(float64(b)-cur)
	if math.Abs(da-db) > 1e-6 {
		return da > db
	}
	return a < float64(b)
}

func (c *Cache[T]) removeAt(i int) {
	key := c.keys[i]
	c.size -= c.entries[key].SizeBytes
	delete(c.entries, key)
	c.keys = slices.Delete(c.keys, i, i+1)
}

func (c *Cache[T]) observeSize() {
	c.obs.ObserveSize(c.size, len(c.keys))
}

// EvictOutside removes every entry that does not intersect window and
// returns how many were removed.
func (c *Cache[T]) EvictOutside(window otime.TimeRange) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.keys[:0]
	removed := 0
	for _, key := range c.keys {
		e := c.entries[key]
		if e.Range.Intersects(window) {
			kept = append(kept, key)
			continue
		}
		c.size -= e.SizeBytes
		delete(c.entries, key)
		removed++
	}
	clear(c.keys[len(kept):])
	c.keys = kept
	c.obs.ObserveEviction("window", removed)
	c.observeSize()
	return removed
}

// Snapshot returns the cached time as a minimal sorted list of ranges.
func (c *Cache[T]) Snapshot() []otime.TimeRange {
	c.mu.Lock()
	defer c.mu.Unlock()

	ranges := make([]otime.TimeRange, len(c.keys))
	for i, key := range c.keys {
		ranges[i] = c.entries[key].Range
	}
	return otime.Merge(ranges)
}

// Size returns the sum of entry sizes in bytes.
func (c *Cache[T]) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Len returns the number of entries.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys)
}

// Budget returns the byte budget.
func (c *Cache[T]) Budget() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.budget
}

// SetBudget changes the byte budget, evicting by distance from current
// until the cache fits.
func (c *Cache[T]) SetBudget(budget int64, current otime.RationalTime) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.budget = budget
	c.obs.ObserveBudget(budget)
	if budget <= 0 {
		return
	}
	cur := current.Rescale(c.rate).Value
	evicted := 0
	for c.size > budget && len(c.keys) > 0 {
		c.removeAt(c.farthest(cur))
		evicted++
	}
	c.obs.ObserveEviction("budget", evicted)
	c.observeSize()
}

// PercentageUsed returns Size as a percentage of Budget, or 0 without a
// budget.
func (c *Cache[T]) PercentageUsed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.budget <= 0 {
		return 0
	}
	return float64(c.size) / float64(c.budget) * 100
}

// Clear removes every entry.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.obs.ObserveEviction("clear", len(c.keys))
	clear(c.entries)
	c.keys = c.keys[:0]
	c.size = 0
	c.observeSize()
}
