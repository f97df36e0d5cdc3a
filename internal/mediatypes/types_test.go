package mediatypes

import "testing"

func TestGetFileType(t *testing.T) {
	tests := []struct {
		ext  string
		want FileType
	}{
		{".jpg", FileTypeImage},
		{".heic", FileTypeImage},
		{".mxf", FileTypeVideo},
		{".webm", FileTypeVideo},
		{".wav", FileTypeAudio},
		{".json", FileTypeTimeline},
		{".MOV", FileTypeOther},
		{".xyz", FileTypeOther},
		{"", FileTypeOther},
	}
	for _, tt := range tests {
		if got := GetFileType(tt.ext); got != tt.want {
			t.Errorf("GetFileType(%q) = %v, want %v", tt.ext, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		path  string
		want  FileType
		media bool
		still bool
	}{
		{"/media/Shot_010.MOV", FileTypeVideo, true, false},
		{"plates/frame.0001.PNG", FileTypeImage, true, true},
		{"a/b/c.TIF", FileTypeImage, true, true},
		{"photo.heic", FileTypeImage, true, false},
		{"dialog.flac", FileTypeAudio, true, false},
		{"edit.json", FileTypeTimeline, false, false},
		{"README", FileTypeOther, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := Classify(tt.path); got != tt.want {
				t.Errorf("Classify = %v, want %v", got, tt.want)
			}
			if got := IsMediaFile(tt.path); got != tt.media {
				t.Errorf("IsMediaFile = %v, want %v", got, tt.media)
			}
			if got := IsStillImage(tt.path); got != tt.still {
				t.Errorf("IsStillImage = %v, want %v", got, tt.still)
			}
		})
	}
}
