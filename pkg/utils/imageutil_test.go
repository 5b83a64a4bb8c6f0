package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestMediaType(t *testing.T) {
	tables := []struct {
		name     string
		data     []byte
		declared string
		filename string
		want     string
	}{
		{"declared jpeg", []byte("x"), "image/jpg", "a.png", "image/jpeg"},
		{"sniffed png", pngHeader, "application/octet-stream", "", "image/png"},
		{"extension fallback", []byte("????"), "", "IMG_1.JPEG", "image/jpeg"},
		{"declared unsupported kept", []byte("????"), "image/heic", "IMG_1.heic", "image/heic"},
		{"nothing known", nil, "", "", "application/octet-stream"},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			assert.Equal(t, table.want, MediaType(table.data, table.declared, table.filename))
		})
	}
}

func TestIsValidImageType(t *testing.T) {
	assert.True(t, IsValidImageType("image/webp"))
	assert.True(t, IsValidImageType("Image/JPEG; q=1"))
	assert.False(t, IsValidImageType("text/html"))
}
