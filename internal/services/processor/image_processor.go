package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/phambaophuc/meal-analyzer/internal/metrics"
	"github.com/phambaophuc/meal-analyzer/internal/models"
	"go.uber.org/zap"

	_ "golang.org/x/image/webp"
)

const (
	OutputMediaType = models.MediaTypeJPEG
	DefaultFilename = "photo.jpg"
)

// ImageProcessor downsamples and re-encodes photos before upload. It holds no
// per-call state and is safe for concurrent use.
type ImageProcessor struct {
	logger *zap.Logger
}

func NewImageProcessor(logger *zap.Logger) *ImageProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageProcessor{logger: logger}
}

type transformResult struct {
	asset models.ImageAsset
	err   error
}

// Preprocess bounds the longer edge of the image to maxDimension and re-encodes
// it as JPEG. It never fails: any problem, including cancellation of ctx, yields
// the original asset unchanged.
func (p *ImageProcessor) Preprocess(ctx context.Context, asset models.ImageAsset, maxDimension int, quality float64) models.ImageAsset {
	if err := validateInput(asset, maxDimension, quality); err != nil {
		return p.passthrough(asset, err)
	}
	if err := ctx.Err(); err != nil {
		return p.passthrough(asset, err)
	}

	done := make(chan transformResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- transformResult{err: fmt.Errorf("decoder panic: %v", r)}
			}
		}()
		out, err := p.transform(asset, maxDimension, quality)
		done <- transformResult{asset: out, err: err}
	}()

	select {
	case <-ctx.Done():
		return p.passthrough(asset, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return p.passthrough(asset, res.err)
		}
		metrics.PreprocessResults.WithLabelValues("encoded").Inc()
		return res.asset
	}
}

func (p *ImageProcessor) transform(asset models.ImageAsset, maxDimension int, quality float64) (models.ImageAsset, error) {
	img, err := imaging.Decode(bytes.NewReader(asset.Data), imaging.AutoOrientation(true))
	if err != nil {
		return models.ImageAsset{}, fmt.Errorf("failed to decode image: %w", err)
	}

	img = p.resizeImage(img, maxDimension)
	img = flattenAlpha(img)

	buffer := &bytes.Buffer{}
	if err := p.encodeImage(buffer, img, jpegQuality(quality)); err != nil {
		return models.ImageAsset{}, fmt.Errorf("failed to encode image: %w", err)
	}

	return models.ImageAsset{
		Data:      buffer.Bytes(),
		MediaType: OutputMediaType,
		Size:      int64(buffer.Len()),
		Filename:  outputFilename(asset.Filename),
	}, nil
}

func (p *ImageProcessor) passthrough(asset models.ImageAsset, reason error) models.ImageAsset {
	metrics.PreprocessResults.WithLabelValues("passthrough").Inc()
	p.logger.Debug("Preprocessing skipped, sending original image",
		zap.String("media_type", asset.MediaType),
		zap.Int64("size", asset.Size),
		zap.Error(reason),
	)
	return asset
}

// Dimensions reports the pixel size of an encoded image without decoding pixels.
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

func outputFilename(original string) string {
	if original == "" {
		return DefaultFilename
	}
	base := filepath.Base(original)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".jpg"
}
