// Package analyzer runs one meal photo through the upload pipeline:
// preprocess, send, normalize, then record the result.
package analyzer

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/phambaophuc/meal-analyzer/internal/models"
	"github.com/phambaophuc/meal-analyzer/internal/services/normalizer"
	"github.com/phambaophuc/meal-analyzer/internal/services/upload"
	"go.uber.org/zap"
)

type Preprocessor interface {
	Preprocess(ctx context.Context, asset models.ImageAsset, maxDimension int, quality float64) models.ImageAsset
}

type Uploader interface {
	Send(ctx context.Context, req models.UploadRequest) (*upload.RawResponse, error)
}

type Accumulator interface {
	Accumulate(ctx context.Context, totals models.Totals) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event *models.AnalysisEvent) error
}

// PublisherFunc adapts a plain function, such as a history's Record, to
// EventPublisher.
type PublisherFunc func(ctx context.Context, event *models.AnalysisEvent) error

func (f PublisherFunc) Publish(ctx context.Context, event *models.AnalysisEvent) error {
	return f(ctx, event)
}

type Options struct {
	Endpoint     string
	Deadline     time.Duration
	MaxDimension int
	Quality      float64
	Now          func() time.Time
}

type Analyzer struct {
	preprocessor Preprocessor
	uploader     Uploader
	ledger       Accumulator
	publisher    EventPublisher
	logger       *zap.Logger
	opts         Options
}

// New wires the pipeline. ledger and publisher may be nil.
func New(pre Preprocessor, up Uploader, ledger Accumulator, publisher EventPublisher, logger *zap.Logger, opts Options) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Deadline <= 0 {
		opts.Deadline = upload.DefaultDeadline
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Analyzer{
		preprocessor: pre,
		uploader:     up,
		ledger:       ledger,
		publisher:    publisher,
		logger:       logger,
		opts:         opts,
	}
}

// Analyze makes exactly one upstream attempt. The deadline covers decoding and
// the network call alike. Only upload failures are returned; ledger and event
// failures are logged. Once ctx is done nothing is recorded.
func (a *Analyzer) Analyze(ctx context.Context, asset models.ImageAsset) (models.AnalysisResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.opts.Deadline)
	defer cancel()

	prepared := a.preprocessor.Preprocess(callCtx, asset, a.opts.MaxDimension, a.opts.Quality)

	raw, err := a.uploader.Send(callCtx, models.UploadRequest{
		Asset:    prepared,
		Endpoint: a.opts.Endpoint,
		Deadline: a.opts.Deadline,
	})
	if err != nil {
		return models.EmptyResult(), err
	}

	result := normalizer.Normalize(raw.Value)

	if err := ctx.Err(); err != nil {
		return models.EmptyResult(), err
	}
	if !result.HasItems() {
		return result, nil
	}

	a.record(ctx, result)
	return result, nil
}

func (a *Analyzer) record(ctx context.Context, result models.AnalysisResult) {
	if a.ledger != nil {
		if err := a.ledger.Accumulate(ctx, ledgerTotals(result.Totals)); err != nil {
			a.logger.Warn("Failed to update daily totals", zap.Error(err))
		}
	}

	if a.publisher == nil {
		return
	}

	names := make([]string, 0, len(result.Items))
	for _, item := range result.Items {
		names = append(names, item.Name)
	}
	event := &models.AnalysisEvent{
		ID:         uuid.NewString(),
		AnalyzedAt: a.opts.Now(),
		ItemCount:  len(result.Items),
		ItemNames:  names,
		Totals:     result.Totals,
	}
	if err := a.publisher.Publish(ctx, event); err != nil {
		a.logger.Warn("Failed to publish analysis event",
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}

// ledgerTotals counts whole calories, as they are shown to the user. Macros
// are kept as reported.
func ledgerTotals(t models.Totals) models.Totals {
	t.Kcal = math.Round(t.Kcal)
	return t
}
