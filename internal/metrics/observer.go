package metrics

// SetPlayback marks state as the active playback state and clears the others.
func SetPlayback(state string) {
	for _, s := range PlaybackStates {
		v := 0.0
		if s == state {
			v = 1
		}
		PlayerPlayback.WithLabelValues(s).Set(v)
	}
}

// CacheObserver records frame cache and populator events for one cache kind.
type CacheObserver struct {
	kind string
}

// NewCacheObserver returns an observer labelled with kind ("video" or "audio").
func NewCacheObserver(kind string) *CacheObserver {
	return &CacheObserver{kind: kind}
}

// Kind returns the label the observer writes.
func (o *CacheObserver) Kind() string {
	if o == nil {
		return ""
	}
	return o.kind
}

// ObserveSize records the current byte size and entry count.
func (o *CacheObserver) ObserveSize(bytes int64, entries int) {
	if o == nil {
		return
	}
	FrameCacheBytes.WithLabelValues(o.kind).Set(float64(bytes))
	FrameCacheEntries.WithLabelValues(o.kind).Set(float64(entries))
}

// ObserveBudget records the configured byte budget.
func (o *CacheObserver) ObserveBudget(bytes int64) {
	if o == nil {
		return
	}
	FrameCacheBudgetBytes.WithLabelValues(o.kind).Set(float64(bytes))
}

// ObserveEviction counts n entries removed for reason.
func (o *CacheObserver) ObserveEviction(reason string, n int) {
	if o == nil || n == 0 {
		return
	}
	FrameCacheEvictionsTotal.WithLabelValues(o.kind, reason).Add(float64(n))
}

// ObserveDuplicate counts an insert of an already cached slot.
func (o *CacheObserver) ObserveDuplicate() {
	if o == nil {
		return
	}
	FrameCacheDuplicateInsertsTotal.WithLabelValues(o.kind).Inc()
}

// ObserveRequest counts n populator requests with the given outcome.
func (o *CacheObserver) ObserveRequest(outcome string, n int) {
	if o == nil || n == 0 {
		return
	}
	PopulatorRequestsTotal.WithLabelValues(o.kind, outcome).Add(float64(n))
}

// ObservePending records the number of in-flight requests.
func (o *CacheObserver) ObservePending(n int) {
	if o == nil {
		return
	}
	PopulatorPending.WithLabelValues(o.kind).Set(float64(n))
}

// ObserveThrottled counts an update that issued nothing because of memory
// pressure.
func (o *CacheObserver) ObserveThrottled() {
	if o == nil {
		return
	}
	PopulatorThrottledTotal.WithLabelValues(o.kind).Inc()
}
