package processor

import (
	"fmt"

	"github.com/phambaophuc/meal-analyzer/internal/errs"
	"github.com/phambaophuc/meal-analyzer/internal/models"
)

func validateInput(asset models.ImageAsset, maxDimension int, quality float64) error {
	if len(asset.Data) == 0 {
		return fmt.Errorf("empty image data")
	}

	if !models.IsSupportedMediaType(asset.MediaType) {
		return fmt.Errorf("%w: %q", errs.ErrUnsupportedMedia, asset.MediaType)
	}

	if maxDimension <= 0 {
		return fmt.Errorf("max dimension %d must be positive", maxDimension)
	}

	if quality <= 0 || quality > 1 {
		return fmt.Errorf("quality %.2f outside (0,1]", quality)
	}

	return nil
}
