// Command thumbnail renders a single frame of a media file to an image,
// using the same thumbnail system as the review server.
//
// Usage:
//
//	thumbnail [flags] <path>
//
// Flags:
//
//	-height  Thumbnail height in pixels (default 128)
//	-time    Time in seconds of the frame to render (default 1.5)
//	-format  Output format, png or jpeg (default png)
//	-o       Output file; "-" writes to stdout (default "-")
//
// Paths may be video or image files, or generated sources such as
// "pattern:bars?width=640&height=360".
//
// Image data is never written to a terminal; redirect stdout or pass -o.
package main
