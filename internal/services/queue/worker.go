package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/phambaophuc/meal-analyzer/internal/errs"
	"github.com/phambaophuc/meal-analyzer/internal/models"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

func (q *QueueService) StartWorker(ctx context.Context, workerID int) error {
	if !q.available() {
		return errs.ErrQueueUnavailable
	}
	msgs, err := q.channel.Consume(
		q.queueName,                        // queue
		fmt.Sprintf("worker-%d", workerID), // consumer
		false,                              // auto-ack
		false,                              // exclusive
		false,                              // no-local
		false,                              // no-wait
		nil,                                // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	q.logger.Info("Worker started", zap.Int("worker_id", workerID))

	go q.consume(ctx, msgs, workerID)
	return nil
}

func (q *QueueService) consume(ctx context.Context, msgs <-chan amqp.Delivery, workerID int) {
	for {
		select {
		case <-ctx.Done():
			q.logger.Info("Worker stopping", zap.Int("worker_id", workerID))
			return
		case msg, ok := <-msgs:
			if !ok {
				q.logger.Warn("Message channel closed", zap.Int("worker_id", workerID))
				return
			}

			q.processMessage(ctx, msg, workerID)
		}
	}
}

func (q *QueueService) processMessage(ctx context.Context, msg amqp.Delivery, workerID int) {
	var event models.AnalysisEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil || event.ID == "" {
		q.logger.Error("Dropping malformed event",
			zap.Error(err),
			zap.Int("worker_id", workerID))
		msg.Nack(false, false) // Don't requeue malformed messages
		return
	}

	if err := q.history.Record(ctx, &event); err != nil {
		// one more attempt on redelivery, then drop
		requeue := !msg.Redelivered
		q.logger.Error("Failed to record event",
			zap.String("event_id", event.ID),
			zap.Bool("requeue", requeue),
			zap.Error(err))
		msg.Nack(false, requeue)
		return
	}

	if err := msg.Ack(false); err != nil {
		q.logger.Error("Failed to ack message",
			zap.String("event_id", event.ID),
			zap.Error(err))
		return
	}

	q.logger.Debug("Event recorded",
		zap.String("event_id", event.ID),
		zap.Int("worker_id", workerID))
}
