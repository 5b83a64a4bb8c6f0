package models

import (
	"path/filepath"
	"strings"
)

const (
	MediaTypeJPEG = "image/jpeg"
	MediaTypePNG  = "image/png"
	MediaTypeWebP = "image/webp"
)

// ImageAsset is a raw image as captured or picked by the user.
type ImageAsset struct {
	Data      []byte `json:"-"`
	MediaType string `json:"media_type"`
	Size      int64  `json:"size"`
	Filename  string `json:"filename,omitempty"`
}

func NewImageAsset(data []byte, mediaType, filename string) ImageAsset {
	return ImageAsset{
		Data:      data,
		MediaType: NormalizeMediaType(mediaType),
		Size:      int64(len(data)),
		Filename:  filename,
	}
}

// NormalizeMediaType lowercases the type, drops parameters and folds aliases.
func NormalizeMediaType(mediaType string) string {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case "image/jpg", "image/pjpeg":
		return MediaTypeJPEG
	case "image/x-png":
		return MediaTypePNG
	}
	return mt
}

func IsSupportedMediaType(mediaType string) bool {
	switch NormalizeMediaType(mediaType) {
	case MediaTypeJPEG, MediaTypePNG, MediaTypeWebP:
		return true
	}
	return false
}

// Extension returns the file extension used when the asset is uploaded. Types
// the pipeline does not recognise keep the extension of the picked file, and
// fall back to ".jpg" when it has none.
func (a ImageAsset) Extension() string {
	switch NormalizeMediaType(a.MediaType) {
	case MediaTypeJPEG:
		return ".jpg"
	case MediaTypePNG:
		return ".png"
	case MediaTypeWebP:
		return ".webp"
	}
	if ext := sourceExtension(a.Filename); ext != "" {
		return ext
	}
	return ".jpg"
}

func sourceExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
