package utils

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/phambaophuc/meal-analyzer/internal/models"
)

// MediaType picks the media type of an uploaded photo. The declared type wins
// when it is a supported image; otherwise the bytes are sniffed, and finally
// the file extension is consulted.
func MediaType(data []byte, declared, filename string) string {
	if models.IsSupportedMediaType(declared) {
		return models.NormalizeMediaType(declared)
	}

	if len(data) > 0 {
		sniffed := models.NormalizeMediaType(http.DetectContentType(data))
		if strings.HasPrefix(sniffed, "image/") {
			return sniffed
		}
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return models.MediaTypeJPEG
	case ".png":
		return models.MediaTypePNG
	case ".webp":
		return models.MediaTypeWebP
	}

	if declared != "" {
		return models.NormalizeMediaType(declared)
	}
	return "application/octet-stream"
}

// IsValidImageType checks if content type is any image type
func IsValidImageType(contentType string) bool {
	return strings.HasPrefix(models.NormalizeMediaType(contentType), "image/")
}
