package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/phambaophuc/meal-analyzer/internal/errs"
	"github.com/phambaophuc/meal-analyzer/internal/models"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

func (q *QueueService) Publish(ctx context.Context, event *models.AnalysisEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !q.available() {
		return errs.ErrQueueUnavailable
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	q.publishMu.Lock()
	err = q.channel.Publish(
		"",          // exchange
		q.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    event.ID,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	q.publishMu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: failed to publish event: %v", errs.ErrQueueUnavailable, err)
	}

	q.logger.Debug("Analysis event published", zap.String("event_id", event.ID))
	return nil
}
