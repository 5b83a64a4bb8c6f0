package analyzer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/phambaophuc/meal-analyzer/internal/models"
	"github.com/phambaophuc/meal-analyzer/internal/services/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePreprocessor struct {
	calls int
	seen  context.Context
}

func (p *fakePreprocessor) Preprocess(ctx context.Context, asset models.ImageAsset, maxDimension int, quality float64) models.ImageAsset {
	p.calls++
	p.seen = ctx
	asset.Filename = "photo.jpg"
	return asset
}

type fakeUploader struct {
	value any
	err   error
	hook  func()
	calls int
	got   models.UploadRequest
}

func (u *fakeUploader) Send(ctx context.Context, req models.UploadRequest) (*upload.RawResponse, error) {
	u.calls++
	u.got = req
	if u.hook != nil {
		u.hook()
	}
	if u.err != nil {
		return nil, u.err
	}
	return &upload.RawResponse{Status: 200, Value: u.value}, nil
}

type fakeLedger struct {
	mu     sync.Mutex
	totals []models.Totals
	err    error
}

func (l *fakeLedger) Accumulate(ctx context.Context, totals models.Totals) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.totals = append(l.totals, totals)
	return nil
}

type fakePublisher struct {
	events []*models.AnalysisEvent
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, event *models.AnalysisEvent) error {
	p.events = append(p.events, event)
	return p.err
}

func wrappedApple() any {
	return []any{map[string]any{
		"json": map[string]any{
			"items":  []any{map[string]any{"name": "apple", "mass_g": 150.0, "kcal": 80.0}},
			"totals": map[string]any{"kcal": 80.0, "carb_g": 21.0},
		},
	}}
}

var fixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func newAnalyzer(pre Preprocessor, up Uploader, l Accumulator, pub EventPublisher) *Analyzer {
	return New(pre, up, l, pub, nil, Options{
		Endpoint:     "http://upstream.test/analyze",
		Deadline:     time.Second,
		MaxDimension: 1280,
		Quality:      0.85,
		Now:          func() time.Time { return fixedNow },
	})
}

func TestAnalyze_RecordsOnce(t *testing.T) {
	pre := &fakePreprocessor{}
	up := &fakeUploader{value: wrappedApple()}
	l := &fakeLedger{}
	pub := &fakePublisher{}

	asset := models.NewImageAsset([]byte("jpeg"), "image/jpeg", "IMG_1.jpg")
	result, err := newAnalyzer(pre, up, l, pub).Analyze(context.Background(), asset)
	require.NoError(t, err)

	want := models.AnalysisResult{
		Items:  []models.Item{{Name: "apple", MassG: 150, Kcal: 80}},
		Totals: models.Totals{Kcal: 80, CarbG: 21},
	}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Errorf("Analyze() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 1, pre.calls)
	assert.Equal(t, 1, up.calls)
	assert.Equal(t, "photo.jpg", up.got.Asset.Filename, "upload uses the preprocessed asset")
	assert.Equal(t, "http://upstream.test/analyze", up.got.Endpoint)
	assert.Equal(t, time.Second, up.got.Deadline)

	assert.Equal(t, []models.Totals{{Kcal: 80, CarbG: 21}}, l.totals)
	require.Len(t, pub.events, 1)
	assert.Equal(t, []string{"apple"}, pub.events[0].ItemNames)
	assert.Equal(t, fixedNow, pub.events[0].AnalyzedAt)
	assert.NotEmpty(t, pub.events[0].ID)
}

func TestAnalyze_LedgerCountsWholeCalories(t *testing.T) {
	up := &fakeUploader{value: map[string]any{
		"items":  []any{map[string]any{"name": "toast", "kcal": 80.6}},
		"totals": map[string]any{"kcal": 80.6, "protein_g": 2.45},
	}}
	l := &fakeLedger{}
	pub := &fakePublisher{}

	result, err := newAnalyzer(&fakePreprocessor{}, up, l, pub).
		Analyze(context.Background(), models.NewImageAsset([]byte("jpeg"), "image/jpeg", ""))
	require.NoError(t, err)

	assert.Equal(t, 80.6, result.Totals.Kcal, "the result itself is not rounded")
	assert.Equal(t, []models.Totals{{Kcal: 81, ProteinG: 2.45}}, l.totals)
	require.Len(t, pub.events, 1)
	assert.Equal(t, 80.6, pub.events[0].Totals.Kcal)
}

func TestAnalyze_DeadlineCoversPreprocessing(t *testing.T) {
	pre := &fakePreprocessor{}
	_, err := newAnalyzer(pre, &fakeUploader{value: wrappedApple()}, nil, nil).
		Analyze(context.Background(), models.NewImageAsset([]byte("x"), "image/jpeg", ""))
	require.NoError(t, err)

	deadline, ok := pre.seen.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, time.Second)
}

func TestAnalyze_EmptyResultNotRecorded(t *testing.T) {
	l := &fakeLedger{}
	pub := &fakePublisher{}
	up := &fakeUploader{value: map[string]any{"items": []any{}, "totals": map[string]any{"kcal": 0.0}}}

	result, err := newAnalyzer(&fakePreprocessor{}, up, l, pub).Analyze(context.Background(), models.ImageAsset{})
	require.NoError(t, err)

	assert.False(t, result.HasItems())
	assert.NotNil(t, result.Items)
	assert.Empty(t, l.totals)
	assert.Empty(t, pub.events)
}

func TestAnalyze_UploadErrorSurfaces(t *testing.T) {
	l := &fakeLedger{}
	uerr := &upload.UploadError{Kind: upload.KindTimeout, Message: "deadline exceeded"}

	result, err := newAnalyzer(&fakePreprocessor{}, &fakeUploader{err: uerr}, l, nil).
		Analyze(context.Background(), models.ImageAsset{})

	assert.True(t, upload.IsTimeout(err))
	assert.Equal(t, models.EmptyResult(), result)
	assert.Empty(t, l.totals)
}

func TestAnalyze_NoSideEffectsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := &fakeLedger{}
	pub := &fakePublisher{}
	up := &fakeUploader{value: wrappedApple(), hook: cancel}

	_, err := newAnalyzer(&fakePreprocessor{}, up, l, pub).Analyze(ctx, models.ImageAsset{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, l.totals)
	assert.Empty(t, pub.events)
}

func TestAnalyze_RecordingFailuresAreSwallowed(t *testing.T) {
	l := &fakeLedger{err: errors.New("redis down")}
	pub := &fakePublisher{err: errors.New("queue down")}

	result, err := newAnalyzer(&fakePreprocessor{}, &fakeUploader{value: wrappedApple()}, l, pub).
		Analyze(context.Background(), models.ImageAsset{})

	require.NoError(t, err)
	assert.True(t, result.HasItems())
	assert.Len(t, pub.events, 1)
}

func TestPublisherFunc(t *testing.T) {
	var got *models.AnalysisEvent
	var pub EventPublisher = PublisherFunc(func(ctx context.Context, event *models.AnalysisEvent) error {
		got = event
		return nil
	})

	event := &models.AnalysisEvent{ID: "evt-1"}
	require.NoError(t, pub.Publish(context.Background(), event))
	assert.Same(t, event, got)
}
