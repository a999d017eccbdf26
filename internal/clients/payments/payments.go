package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/microshop/orders/internal/clients/rpc"
	"github.com/microshop/orders/internal/dal/natsconn"
	"github.com/microshop/orders/internal/service/models/payment"
	"github.com/spf13/viper"
)

const defaultTimeoutSeconds = 5

// Client requests checkout sessions from the remote payment service.
type Client struct {
	nats    *natsconn.Client
	subject string
	timeout time.Duration
}

// NewClient creates a payment client configured from viper.
func NewClient(nats *natsconn.Client) *Client {
	subject := viper.GetString("nats.subjects.create_payment_session")
	if subject == "" {
		subject = "payments.create_session"
	}

	timeoutSeconds := viper.GetInt("nats.request_timeout_seconds")
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultTimeoutSeconds
	}

	return &Client{
		nats:    nats,
		subject: subject,
		timeout: time.Duration(timeoutSeconds) * time.Second,
	}
}

// CreateSession asks the payment service for a session descriptor covering
// the given order lines. No local state is touched on success or failure.
func (c *Client) CreateSession(
	ctx context.Context,
	req payment.SessionRequest,
) (*payment.Session, error) {
	var session payment.Session
	if err := rpc.Request(ctx, c.nats.Conn(), "payments", c.subject, c.timeout, req, &session); err != nil {
		return nil, fmt.Errorf("failed to create payment session: %w", err)
	}

	return &session, nil
}
