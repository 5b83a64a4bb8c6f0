package processor

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// scaledSize applies scale = min(1, maxDimension/longerEdge) and rounds to the
// nearest pixel.
func scaledSize(width, height, maxDimension int) (int, int, bool) {
	longer := max(width, height)
	if longer <= 0 {
		return width, height, false
	}

	scale := math.Min(1, float64(maxDimension)/float64(longer))
	if scale >= 1 {
		return width, height, false
	}

	w := max(1, int(math.Round(float64(width)*scale)))
	h := max(1, int(math.Round(float64(height)*scale)))
	return w, h, true
}

func (p *ImageProcessor) resizeImage(img image.Image, maxDimension int) image.Image {
	bounds := img.Bounds()
	width, height, shrink := scaledSize(bounds.Dx(), bounds.Dy(), maxDimension)
	if !shrink {
		return img
	}

	return imaging.Resize(img, width, height, imaging.Lanczos)
}

// flattenAlpha composes translucent images over white; JPEG has no alpha channel.
func flattenAlpha(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}

	bounds := img.Bounds()
	bg := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}
