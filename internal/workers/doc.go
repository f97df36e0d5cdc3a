/*
Package workers sizes worker pools in containerized environments.

When running in a container the number of usable CPUs may be limited by
cgroup constraints. Go 1.19+ sets GOMAXPROCS from the container CPU limit,
while runtime.NumCPU() still reports the host machine. Every helper in this
package starts from GOMAXPROCS.

# Usage

	n := workers.Count(2.0, 16) // two per CPU, at most 16

# Pools used by the review server

ForDecode sizes the media I/O request system that serves the frame caches.
ForThumbnails sizes each of the three thumbnail system loops (info,
thumbnail, waveform).

# Environment Overrides

	DECODE_WORKERS=6      # media I/O workers
	THUMBNAIL_WORKERS=2   # workers per thumbnail loop

Invalid values (non-numeric, zero or negative) are ignored and the computed
default is used. An override is still capped by the limit passed in.
*/
package workers
