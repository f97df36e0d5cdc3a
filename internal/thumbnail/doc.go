// Package thumbnail serves media info, still thumbnails and waveform meshes
// for browser and ruler previews.
//
// Results are kept in a byte-bounded least-recently-used cache keyed by a
// digest of the request. Each request kind runs on its own background loop
// with its own queue and workers, so a slow waveform decode never delays
// thumbnails. Requests return an ID and a future; CancelRequests drops
// queued requests and cancels running ones best-effort.
package thumbnail
