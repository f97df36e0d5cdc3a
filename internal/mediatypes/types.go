package mediatypes

import (
	"path/filepath"
	"strings"
)

// FileType is the broad kind of a file, decided by extension.
type FileType string

const (
	FileTypeImage    FileType = "image"
	FileTypeVideo    FileType = "video"
	FileTypeAudio    FileType = "audio"
	FileTypeTimeline FileType = "timeline"
	FileTypeOther    FileType = "other"
)

type format struct {
	kind FileType
	// native is set for images the Go decoders read without libvips.
	native bool
}

var formats = map[string]format{
	".jpg":  {FileTypeImage, true},
	".jpeg": {FileTypeImage, true},
	".png":  {FileTypeImage, true},
	".gif":  {FileTypeImage, true},
	".bmp":  {FileTypeImage, true},
	".webp": {FileTypeImage, true},
	".tif":  {FileTypeImage, true},
	".tiff": {FileTypeImage, true},
	".heic": {FileTypeImage, false},
	".heif": {FileTypeImage, false},

	".mov":  {kind: FileTypeVideo},
	".mp4":  {kind: FileTypeVideo},
	".m4v":  {kind: FileTypeVideo},
	".mxf":  {kind: FileTypeVideo},
	".mkv":  {kind: FileTypeVideo},
	".webm": {kind: FileTypeVideo},
	".avi":  {kind: FileTypeVideo},
	".wmv":  {kind: FileTypeVideo},
	".flv":  {kind: FileTypeVideo},
	".mpg":  {kind: FileTypeVideo},
	".mpeg": {kind: FileTypeVideo},
	".ts":   {kind: FileTypeVideo},
	".3gp":  {kind: FileTypeVideo},

	".wav":  {kind: FileTypeAudio},
	".aif":  {kind: FileTypeAudio},
	".aiff": {kind: FileTypeAudio},
	".flac": {kind: FileTypeAudio},
	".mp3":  {kind: FileTypeAudio},
	".m4a":  {kind: FileTypeAudio},
	".aac":  {kind: FileTypeAudio},
	".ogg":  {kind: FileTypeAudio},

	".json":     {kind: FileTypeTimeline},
	".timeline": {kind: FileTypeTimeline},
}

func lookup(path string) (format, bool) {
	f, ok := formats[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// GetFileType returns the FileType of a lowercase extension such as ".mov".
func GetFileType(ext string) FileType {
	if f, ok := formats[ext]; ok {
		return f.kind
	}
	return FileTypeOther
}

// Classify returns the FileType of path from its extension, ignoring case.
func Classify(path string) FileType {
	if f, ok := lookup(path); ok {
		return f.kind
	}
	return FileTypeOther
}

// IsMediaFile reports whether path is an image, video or audio file.
func IsMediaFile(path string) bool {
	switch Classify(path) {
	case FileTypeImage, FileTypeVideo, FileTypeAudio:
		return true
	}
	return false
}

// IsStillImage reports whether path names an image that can be decoded
// without ffmpeg.
func IsStillImage(path string) bool {
	f, ok := lookup(path)
	return ok && f.native
}
