// Package queue publishes analysis events to RabbitMQ and consumes them into
// the recent-meals history.
package queue

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/phambaophuc/meal-analyzer/internal/services/ledger"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const (
	DefaultQueueName = "meal_analysis"

	// unacked deliveries per consumer
	prefetchCount = 8
)

type QueueService struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	logger    *zap.Logger
	queueName string
	history   ledger.History

	// publishes on the shared channel are serialized
	publishMu sync.Mutex
	lost      atomic.Bool
}

func NewQueueService(
	rabbitmqURL string,
	queueName string,
	history ledger.History,
	logger *zap.Logger,
) (*QueueService, error) {
	if queueName == "" {
		queueName = DefaultQueueName
	}

	conn, err := amqp.Dial(rabbitmqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declare(channel, queueName); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	q := &QueueService{
		conn:      conn,
		channel:   channel,
		logger:    logger.With(zap.String("queue", queueName)),
		queueName: queueName,
		history:   history,
	}
	go q.watch(conn.NotifyClose(make(chan *amqp.Error, 1)))
	return q, nil
}

func declare(channel *amqp.Channel, queueName string) error {
	_, err := channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", queueName, err)
	}
	if err := channel.Qos(prefetchCount, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}
	return nil
}

// watch marks the service unavailable once the broker drops the connection.
// A clean Close delivers no error.
func (q *QueueService) watch(closed <-chan *amqp.Error) {
	if amqpErr, ok := <-closed; ok && amqpErr != nil {
		q.lost.Store(true)
		q.logger.Error("RabbitMQ connection lost",
			zap.Int("code", amqpErr.Code),
			zap.String("reason", amqpErr.Reason))
	}
}

func (q *QueueService) available() bool {
	return q.channel != nil && !q.lost.Load()
}

// Close closes the channel and then the connection.
func (q *QueueService) Close() error {
	var errList []error
	if q.channel != nil {
		if err := q.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errList = append(errList, fmt.Errorf("close channel: %w", err))
		}
	}
	if q.conn != nil {
		if err := q.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errList = append(errList, fmt.Errorf("close connection: %w", err))
		}
	}
	return errors.Join(errList...)
}
