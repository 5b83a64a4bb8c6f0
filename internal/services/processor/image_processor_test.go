package processor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"sync"
	"testing"

	"github.com/phambaophuc/meal-analyzer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func jpegAsset(t *testing.T, w, h int) models.ImageAsset {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solidImage(w, h, color.NRGBA{200, 80, 40, 255}), &jpeg.Options{Quality: 90}))
	return models.NewImageAsset(buf.Bytes(), "image/jpeg", "IMG_0001.JPG")
}

func pngAsset(t *testing.T, img image.Image) models.ImageAsset {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return models.NewImageAsset(buf.Bytes(), "image/png", "screenshot.png")
}

func TestPreprocess_DownsamplesLargeJPEG(t *testing.T) {
	p := NewImageProcessor(nil)
	in := jpegAsset(t, 4000, 3000)

	out := p.Preprocess(context.Background(), in, 1280, 0.85)

	require.Equal(t, OutputMediaType, out.MediaType)
	w, h, err := Dimensions(out.Data)
	require.NoError(t, err)
	assert.Equal(t, 1280, w)
	assert.Equal(t, 960, h)
	assert.Equal(t, int64(len(out.Data)), out.Size)
	assert.Equal(t, "IMG_0001.jpg", out.Filename)
}

func TestPreprocess_LongerEdgeBounded(t *testing.T) {
	p := NewImageProcessor(nil)

	sizes := []struct{ w, h, max int }{
		{200, 100, 50},
		{100, 200, 50},
		{333, 111, 100},
		{97, 89, 13},
		{640, 640, 1},
	}

	for _, s := range sizes {
		out := p.Preprocess(context.Background(), jpegAsset(t, s.w, s.h), s.max, 0.7)
		w, h, err := Dimensions(out.Data)
		require.NoError(t, err)
		assert.LessOrEqual(t, max(w, h), s.max, "input %dx%d max %d", s.w, s.h, s.max)
		assert.Equal(t, OutputMediaType, out.MediaType)
	}
}

func TestPreprocess_SmallImageStillReencoded(t *testing.T) {
	p := NewImageProcessor(nil)
	in := pngAsset(t, solidImage(10, 6, color.NRGBA{0, 128, 0, 255}))

	out := p.Preprocess(context.Background(), in, 1280, 0.9)

	assert.Equal(t, models.MediaTypeJPEG, out.MediaType)
	assert.NotEqual(t, in.Data, out.Data)
	w, h, err := Dimensions(out.Data)
	require.NoError(t, err)
	assert.Equal(t, 10, w)
	assert.Equal(t, 6, h)
	assert.Equal(t, "screenshot.jpg", out.Filename)
}

func TestPreprocess_FlattensTransparencyOntoWhite(t *testing.T) {
	p := NewImageProcessor(nil)
	in := pngAsset(t, solidImage(8, 8, color.NRGBA{0, 0, 0, 0}))

	out := p.Preprocess(context.Background(), in, 64, 1)

	img, err := jpeg.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	r, g, b, _ := img.At(4, 4).RGBA()
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestPreprocess_PassThrough(t *testing.T) {
	p := NewImageProcessor(nil)

	var gifBuf bytes.Buffer
	pal := image.NewPaletted(image.Rect(0, 0, 4, 4), []color.Color{color.Black, color.White})
	require.NoError(t, gif.Encode(&gifBuf, pal, nil))

	valid := jpegAsset(t, 20, 20)
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		ctx     context.Context
		asset   models.ImageAsset
		maxDim  int
		quality float64
	}{
		{"zero bytes", context.Background(), models.NewImageAsset(nil, "image/jpeg", "a.jpg"), 1280, 0.8},
		{"corrupt jpeg", context.Background(), models.NewImageAsset([]byte("definitely not a jpeg"), "image/jpeg", "a.jpg"), 1280, 0.8},
		{"truncated jpeg", context.Background(), models.NewImageAsset(valid.Data[:len(valid.Data)/3], "image/jpeg", "a.jpg"), 1280, 0.8},
		{"unsupported gif", context.Background(), models.NewImageAsset(gifBuf.Bytes(), "image/gif", "a.gif"), 1280, 0.8},
		{"unknown type", context.Background(), models.NewImageAsset(valid.Data, "application/octet-stream", "a"), 1280, 0.8},
		{"non-positive max dimension", context.Background(), valid, 0, 0.8},
		{"zero quality", context.Background(), valid, 1280, 0},
		{"quality above one", context.Background(), valid, 1280, 1.2},
		{"cancelled context", cancelled, valid, 1280, 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := p.Preprocess(tt.ctx, tt.asset, tt.maxDim, tt.quality)
			assert.Equal(t, tt.asset, out)
			assert.True(t, bytes.Equal(tt.asset.Data, out.Data))
		})
	}
}

func TestPreprocess_ConcurrentCalls(t *testing.T) {
	p := NewImageProcessor(nil)
	in := jpegAsset(t, 300, 150)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := p.Preprocess(context.Background(), in, 100, 0.8)
			w, h, err := Dimensions(out.Data)
			assert.NoError(t, err)
			assert.Equal(t, 100, w)
			assert.Equal(t, 50, h)
		}()
	}
	wg.Wait()
}

func TestScaledSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h, max    int
		wantW, wantH int
		wantShrink   bool
	}{
		{"landscape", 4000, 3000, 1280, 1280, 960, true},
		{"portrait", 3000, 4000, 1280, 960, 1280, true},
		{"fits", 800, 600, 1280, 800, 600, false},
		{"exact", 1280, 720, 1280, 1280, 720, false},
		{"rounds", 1001, 333, 500, 500, 166, true},
		{"never zero", 5000, 2, 100, 100, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, shrink := scaledSize(tt.w, tt.h, tt.max)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
			assert.Equal(t, tt.wantShrink, shrink)
		})
	}
}

func TestJPEGQuality(t *testing.T) {
	assert.Equal(t, 85, jpegQuality(0.85))
	assert.Equal(t, 100, jpegQuality(1))
	assert.Equal(t, 1, jpegQuality(0.001))
}
