package outbox

import (
	"time"
)

// OutboxMessage is a message waiting in the outbox table to be published to
// RabbitMQ. Rows are written in the same transaction as the state change they
// announce and deleted after successful delivery.
type OutboxMessage struct {
	ID           int64
	QueueName    string
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  time.Time
}
