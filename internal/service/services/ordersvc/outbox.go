package ordersvc

import (
	"time"

	"github.com/microshop/orders/internal/service/models/order"
	"github.com/microshop/orders/internal/service/models/outbox"
	"github.com/spf13/viper"
)

func outboxMessage(
	o order.Order,
	payload []byte,
	maxRetries int,
	now time.Time,
) outbox.OutboxMessage {
	queueName := viper.GetString("rabbitmq.order_created.queue")
	if queueName == "" {
		queueName = "order.created"
	}

	return outbox.OutboxMessage{
		QueueName:    queueName,
		ExchangeName: viper.GetString("rabbitmq.order_created.exchange"),
		RoutingKey:   queueName,
		Payload:      payload,
		ContentType:  "application/json",
		MaxRetries:   maxRetries,
		CreatedAt:    now,
		UpdatedAt:    now,
		NextRetryAt:  now,
	}
}
