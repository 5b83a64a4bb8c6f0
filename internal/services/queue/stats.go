package queue

import (
	"fmt"

	"github.com/phambaophuc/meal-analyzer/internal/metrics"
)

// Depth reports how many events wait in the queue.
func (q *QueueService) Depth() (int, error) {
	if q.channel == nil {
		return 0, fmt.Errorf("channel not available")
	}
	info, err := q.channel.QueueInspect(q.queueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue: %w", err)
	}
	return info.Messages, nil
}

// ExportDepth publishes the queue depth as a gauge.
func (q *QueueService) ExportDepth() error {
	return metrics.RegisterQueueDepth(func() float64 {
		n, err := q.Depth()
		if err != nil {
			return -1
		}
		return float64(n)
	})
}

// HealthCheck checks if RabbitMQ is available
func (q *QueueService) HealthCheck() string {
	if q.conn == nil || q.conn.IsClosed() {
		return "unhealthy: connection closed"
	}
	if !q.available() {
		return "unhealthy: channel not available"
	}
	if _, err := q.Depth(); err != nil {
		return "unhealthy: " + err.Error()
	}
	return "healthy"
}
