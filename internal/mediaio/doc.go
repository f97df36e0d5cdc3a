// Package mediaio is the asynchronous I/O request layer between the
// timeline and the frame caches.
//
// A [Reader] decodes one media file (or a synthetic pattern). [DefaultOpener]
// picks a reader from the path: "pattern:" URIs generate test frames and a
// sine tone, still images decode once with imaging, and everything else
// goes through ffmpeg/ffprobe subprocesses.
//
// A [System] runs requests on a worker pool behind an unbounded FIFO, so
// submitting from the player tick never blocks. Every request returns a
// *future.Future; cancelling a queued future drops the job before it runs,
// and cancelling a running one cancels the context handed to the reader.
//
// A [Handle] is one opened timeline: it owns a reader per distinct media path
// and turns timeline times into per-track layers ([VideoData], [AudioData]).
// Handles are opened all-or-nothing and replaced wholesale; [Slot] holds the
// current one.
package mediaio
