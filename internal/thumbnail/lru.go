package thumbnail

import (
	"container/list"
	"sync"
)

type lruEntry struct {
	key   string
	value any
	size  int64
}

// lru is a byte-bounded least-recently-used map. The front of order is the
// most recently used entry.
type lru struct {
	mu      sync.Mutex
	order   *list.List
	items   map[string]*list.Element
	size    int64
	maxSize int64
}

func newLRU(maxSize int64) *lru {
	return &lru{
		order:   list.New(),
		items:   make(map[string]*list.Element),
		maxSize: maxSize,
	}
}

func (c *lru) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry).value, true
}

// put stores value and evicts from the back until the cache fits. A value
// larger than the whole cache is not stored.
func (c *lru) put(key string, value any, size int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*lruEntry)
		c.size -= e.size
		e.value, e.size = value, size
		c.size += size
		c.order.MoveToFront(el)
		c.trimLocked()
		return true
	}
	if size > c.maxSize {
		return false
	}
	c.items[key] = c.order.PushFront(&lruEntry{key: key, value: value, size: size})
	c.size += size
	c.trimLocked()
	return true
}

func (c *lru) trimLocked() {
	for c.size > c.maxSize {
		el := c.order.Back()
		if el == nil {
			break
		}
		e := c.order.Remove(el).(*lruEntry)
		delete(c.items, e.key)
		c.size -= e.size
	}
}

func (c *lru) setMaxSize(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxSize = n
	c.trimLocked()
}

func (c *lru) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element)
	c.size = 0
}

// stats returns the used bytes, the bound and the entry count.
func (c *lru) stats() (size, maxSize int64, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size, c.maxSize, c.order.Len()
}

// keys returns the cached keys from most to least recently used.
func (c *lru) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*lruEntry).key)
	}
	return out
}
