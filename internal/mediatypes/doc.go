// Package mediatypes provides shared type definitions for media file handling
// across the media-review server.
//
// The package is a dependency-free foundation that can be imported by the
// I/O, thumbnail and handler packages without creating import cycles.
//
// # File Types
//
//	mediatypes.FileTypeImage    // still images (jpg, png, webp, ...)
//	mediatypes.FileTypeVideo    // video containers (mp4, mov, mxf, ...)
//	mediatypes.FileTypeAudio    // audio-only files (wav, flac, ...)
//	mediatypes.FileTypeTimeline // timeline documents (json)
//	mediatypes.FileTypeOther    // anything else
//
// Use [Classify] on a path, or [GetFileType] on a lowercase extension:
//
//	switch mediatypes.Classify(path) {
//	case mediatypes.FileTypeImage:
//	    // decode directly
//	case mediatypes.FileTypeVideo, mediatypes.FileTypeAudio:
//	    // read through ffmpeg
//	}
//
// [IsStillImage] is narrower than FileTypeImage: HEIC/HEIF are images but
// need libvips or ffmpeg to decode.
package mediatypes
