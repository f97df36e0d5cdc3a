// Package timeline holds the edit being reviewed: tracks of clips, gaps and
// transitions laid out over a global time axis.
//
// A Timeline is immutable once built. Loading a new file, or editing, produces
// a new *Timeline which replaces the old one wholesale; the player and its
// caches are rebuilt around it.
//
// Items on a track are laid out back to back. Clips and gaps take their
// source duration of track time. A transition takes none: it sits on the cut
// between its neighbours and overlaps the outgoing clip by InOffset and the
// incoming clip by OutOffset.
//
// Documents are JSON:
//
//	{
//	  "name": "reel1",
//	  "rate": 24,
//	  "tracks": [
//	    {"kind": "video", "items": [
//	      {"kind": "clip", "media": "pattern:bars",
//	       "sourceRange": {"start": {"value": 0, "rate": 24}, "duration": {"value": 48, "rate": 24}}},
//	      {"kind": "transition", "inOffset": {"value": 6, "rate": 24}, "outOffset": {"value": 6, "rate": 24}},
//	      {"kind": "clip", "media": "shots/sh010.mov", ...}
//	    ]}
//	  ]
//	}
//
// Relative media paths are resolved against the directory of the document.
package timeline
