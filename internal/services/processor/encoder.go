package processor

import (
	"image"
	"io"
	"math"

	"github.com/disintegration/imaging"
)

func (p *ImageProcessor) encodeImage(w io.Writer, img image.Image, quality int) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}

// jpegQuality maps a (0,1] fidelity onto the 1..100 JPEG scale.
func jpegQuality(quality float64) int {
	q := int(math.Round(quality * 100))
	return min(100, max(1, q))
}
