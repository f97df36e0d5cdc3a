// Package framecache stores decoded video frames and audio blocks around
// the playhead.
//
// A [Cache] holds entries keyed by the frame their range starts on, at the
// timeline rate. Entries never overlap; a second insert for a cached slot is
// ignored, so the first decode wins.
//
// Two policies bound the cache:
//
//   - Window: [Cache.EvictOutside] drops every entry lying entirely outside
//     the range computed by [Window.Range]. The player runs it once per tick.
//   - Budget: when an insert would exceed the byte budget, entries farthest
//     from the current time are evicted first. Between two entries at the
//     same distance the one behind the playhead goes first. An incoming
//     entry that would itself be the farthest is not inserted.
//
// Eviction is by distance rather than recency: in sequential playback the
// frames farthest from the playhead are the least likely to be shown next.
//
// All methods hold the cache mutex only for the duration of the call.
package framecache
