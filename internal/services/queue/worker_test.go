package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/phambaophuc/meal-analyzer/internal/errs"
	"github.com/phambaophuc/meal-analyzer/internal/models"
	"github.com/phambaophuc/meal-analyzer/internal/services/ledger"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type ackResult struct {
	acked   bool
	nacked  bool
	requeue bool
}

// fakeAcknowledger records what the worker did with a delivery.
type fakeAcknowledger struct {
	mu      sync.Mutex
	results map[uint64]ackResult
}

func newAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{results: make(map[uint64]ackResult)}
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results[tag] = ackResult{acked: true}
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results[tag] = ackResult{nacked: true, requeue: requeue}
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcknowledger) result(tag uint64) ackResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.results[tag]
}

type failingHistory struct{}

func (failingHistory) Record(ctx context.Context, event *models.AnalysisEvent) error {
	return errors.New("redis: connection refused")
}

func (failingHistory) Recent(ctx context.Context, n int64) ([]models.AnalysisEvent, error) {
	return nil, nil
}

func delivery(t *testing.T, ack amqp.Acknowledger, tag uint64, event *models.AnalysisEvent) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: body}
}

func sampleEvent(id string) *models.AnalysisEvent {
	return &models.AnalysisEvent{
		ID:         id,
		AnalyzedAt: time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
		ItemCount:  2,
		ItemNames:  []string{"rice", "chicken"},
		Totals:     models.Totals{Kcal: 540},
	}
}

func TestProcessMessage_RecordsEvent(t *testing.T) {
	history := ledger.NewMemoryHistory(10)
	q := &QueueService{history: history, logger: zap.NewNop()}
	ack := newAcknowledger()

	q.processMessage(context.Background(), delivery(t, ack, 1, sampleEvent("evt-1")), 0)

	assert.True(t, ack.result(1).acked)
	events, err := history.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "evt-1", events[0].ID)
	assert.Equal(t, []string{"rice", "chicken"}, events[0].ItemNames)
}

func TestProcessMessage_DropsMalformed(t *testing.T) {
	q := &QueueService{history: ledger.NewMemoryHistory(10), logger: zap.NewNop()}
	ack := newAcknowledger()

	q.processMessage(context.Background(), amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("{not json")}, 0)
	q.processMessage(context.Background(), amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte(`{"item_count":1}`)}, 0)

	assert.Equal(t, ackResult{nacked: true}, ack.result(1))
	assert.Equal(t, ackResult{nacked: true}, ack.result(2))
}

func TestProcessMessage_RequeuesOnce(t *testing.T) {
	q := &QueueService{history: failingHistory{}, logger: zap.NewNop()}
	ack := newAcknowledger()

	first := delivery(t, ack, 1, sampleEvent("evt-1"))
	q.processMessage(context.Background(), first, 0)
	assert.Equal(t, ackResult{nacked: true, requeue: true}, ack.result(1))

	again := delivery(t, ack, 2, sampleEvent("evt-1"))
	again.Redelivered = true
	q.processMessage(context.Background(), again, 0)
	assert.Equal(t, ackResult{nacked: true, requeue: false}, ack.result(2))
}

func TestConsume_StopsOnCancel(t *testing.T) {
	history := ledger.NewMemoryHistory(10)
	q := &QueueService{history: history, logger: zap.NewNop()}
	ack := newAcknowledger()

	msgs := make(chan amqp.Delivery)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.consume(ctx, msgs, 1)
		close(done)
	}()

	msgs <- delivery(t, ack, 7, sampleEvent("evt-7"))
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.True(t, ack.result(7).acked)
}

func TestConsume_StopsWhenChannelCloses(t *testing.T) {
	q := &QueueService{history: ledger.NewMemoryHistory(10), logger: zap.NewNop()}
	msgs := make(chan amqp.Delivery)
	close(msgs)

	done := make(chan struct{})
	go func() {
		q.consume(context.Background(), msgs, 1)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestPublish_WithoutChannel(t *testing.T) {
	q := &QueueService{logger: zap.NewNop()}

	err := q.Publish(context.Background(), sampleEvent("evt-1"))
	assert.ErrorIs(t, err, errs.ErrQueueUnavailable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, q.Publish(ctx, sampleEvent("evt-1")), context.Canceled)
}

func TestHealthCheck_Disconnected(t *testing.T) {
	q := &QueueService{logger: zap.NewNop()}
	assert.Equal(t, "unhealthy: connection closed", q.HealthCheck())
}

func TestWatch_MarksLostOnBrokerClose(t *testing.T) {
	q := &QueueService{logger: zap.NewNop()}
	closed := make(chan *amqp.Error, 1)
	closed <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "broker shutdown"}
	close(closed)

	q.watch(closed)
	assert.True(t, q.lost.Load())
	assert.ErrorIs(t, q.Publish(context.Background(), sampleEvent("evt-1")), errs.ErrQueueUnavailable)
}

func TestWatch_CleanCloseIsNotLost(t *testing.T) {
	q := &QueueService{logger: zap.NewNop()}
	closed := make(chan *amqp.Error)
	close(closed)

	q.watch(closed)
	assert.False(t, q.lost.Load())
}

func TestClose_Unconnected(t *testing.T) {
	q := &QueueService{logger: zap.NewNop()}
	assert.NoError(t, q.Close())
}

func TestStartWorker_WithoutChannel(t *testing.T) {
	q := &QueueService{logger: zap.NewNop()}
	assert.ErrorIs(t, q.StartWorker(context.Background(), 1), errs.ErrQueueUnavailable)
}
