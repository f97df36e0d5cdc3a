package observer

import "sync"

// Value is an observable value holder.
type Value[T any] struct {
	mu     sync.Mutex
	value  T
	equal  func(a, b T) bool
	subs   []subscriber[T]
	nextID uint64
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// NewValue returns a Value that compares with ==.
func NewValue[T comparable](initial T) *Value[T] {
	return &Value[T]{
		value: initial,
		equal: func(a, b T) bool { return a == b },
	}
}

// NewValueFunc returns a Value that uses equal to detect changes.
func NewValueFunc[T any](initial T, equal func(a, b T) bool) *Value[T] {
	return &Value[T]{value: initial, equal: equal}
}

// Get returns the latest value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}

// Set stores x and notifies every subscriber, changed or not.
func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	v.value = x
	subs := v.snapshot()
	v.mu.Unlock()

	for _, s := range subs {
		s.fn(x)
	}
}

// SetIfChanged stores x and notifies subscribers only when it differs from
// the current value. It reports whether a change happened.
func (v *Value[T]) SetIfChanged(x T) bool {
	v.mu.Lock()
	if v.equal(v.value, x) {
		v.mu.Unlock()
		return false
	}
	v.value = x
	subs := v.snapshot()
	v.mu.Unlock()

	for _, s := range subs {
		s.fn(x)
	}
	return true
}

// Observe registers fn, calls it with the current value, and returns a
// Subscription that removes it.
func (v *Value[T]) Observe(fn func(T)) *Subscription {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subs = append(v.subs, subscriber[T]{id: id, fn: fn})
	current := v.value
	v.mu.Unlock()

	fn(current)

	return &Subscription{cancel: func() { v.remove(id) }}
}

// Subscribers returns the number of registered callbacks.
func (v *Value[T]) Subscribers() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.subs)
}

func (v *Value[T]) snapshot() []subscriber[T] {
	if len(v.subs) == 0 {
		return nil
	}
	out := make([]subscriber[T], len(v.subs))
	copy(out, v.subs)
	return out
}

func (v *Value[T]) remove(id uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, s := range v.subs {
		if s.id == id {
			v.subs = append(v.subs[:i], v.subs[i+1:]...)
			return
		}
	}
}

// Subscription is a handle to a registered callback.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Close stops delivery to the callback. It is safe to call more than once.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}
