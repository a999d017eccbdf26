package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/microshop/orders/internal/dal/rabbitmq"
	"github.com/microshop/orders/internal/service/models/order"
	"github.com/microshop/orders/internal/service/models/payment"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

// service represents the service layer interface.
type service interface {
	MarkPaid(ctx context.Context, evt payment.SucceededEvent) error
}

// Consumer receives payment-succeeded webhook events from RabbitMQ and
// finalizes the corresponding orders.
type Consumer struct {
	client  *rabbitmq.Client
	service service
	queue   amqp.Queue
	stop    chan struct{}
	done    chan struct{}
}

// NewConsumer creates a new Consumer.
func NewConsumer(client *rabbitmq.Client, service service) *Consumer {
	queueName := viper.GetString("rabbitmq.payment_succeeded.queue")
	if queueName == "" {
		panic("rabbitmq.payment_succeeded.queue is not set in config")
	}

	queue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:       queueName,
		Durable:    true,
		AutoDelete: false,
		Exclusive:  false,
		NoWait:     false,
	})
	if err != nil {
		panic(err)
	}

	return &Consumer{
		client:  client,
		service: service,
		queue:   queue,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Run starts consuming messages from RabbitMQ.
func (c *Consumer) Run(ctx context.Context) error {
	consumerTag := viper.GetString("rabbitmq.consumer_tag")
	if consumerTag == "" {
		consumerTag = "orders-svc"
	}

	msgs, err := c.client.Consume(rabbitmq.ConsumeConfig{
		Queue:    c.queue.Name,
		Consumer: consumerTag,
	})
	if err != nil {
		return err
	}

	slog.Info("Payment consumer started", "queue", c.queue.Name, "consumer_tag", consumerTag)

	c.consume(ctx, msgs)

	return nil
}

// consume dispatches deliveries to bounded worker goroutines and blocks until
// the consumer is stopped or the delivery channel closes. The group only
// bounds concurrency: every failure is settled per delivery via ack/nack, so
// one bad message never stops the other workers.
func (c *Consumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	g := new(errgroup.Group)
	g.SetLimit(50)

	go func() {
		for {
			select {
			case <-c.stop:
				slog.Info("Stopping payment consumer")
				close(c.done)

				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Info("Message channel closed")
					close(c.done)

					return
				}

				g.Go(func() error {
					_ = c.processMessage(ctx, msg)

					return nil
				})
			}
		}
	}()

	<-c.done
	_ = g.Wait()
}

// processMessage finalizes one order from a payment-succeeded delivery.
func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery) error {
	ctx, span := otel.Tracer("consumer").Start(ctx, "Consumer.processMessage")
	defer span.End()

	slog.Info("Received payment event", "delivery_tag", msg.DeliveryTag)

	var evt payment.SucceededEvent
	if err := json.Unmarshal(msg.Body, &evt); err != nil {
		slog.Error("Failed to unmarshal payment event", "error", err)
		// Reject the message without requeuing
		if err := msg.Nack(false, false); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return err
	}

	if err := c.service.MarkPaid(ctx, evt); err != nil {
		// Unknown orders are permanent failures; only transient errors
		// are requeued for retry.
		requeue := !errors.Is(err, order.ErrNotFound)
		slog.Error("Failed to finalize order", "error", err, "order_id", evt.OrderID, "requeue", requeue)
		if err := msg.Nack(false, requeue); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return err
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("Failed to ack message", "error", err)

		return err
	}

	slog.Info("Order finalized", "order_id", evt.OrderID, "charge_id", evt.ChargeID)

	return nil
}

// Shutdown gracefully shuts down the consumer.
func (c *Consumer) Shutdown() error {
	slog.Info("Shutting down payment consumer")
	close(c.stop)

	select {
	case <-c.done:
		slog.Info("Payment consumer stopped successfully")
	case <-time.After(10 * time.Second):
		slog.Warn("Payment consumer shutdown timeout")
	}

	return nil
}
