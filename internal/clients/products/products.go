package products

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/microshop/orders/internal/clients/rpc"
	"github.com/microshop/orders/internal/dal/natsconn"
	"github.com/microshop/orders/internal/service/models/product"
	"github.com/spf13/viper"
)

// ErrProductNotFound is returned when a referenced product id is missing from
// the validation response.
var ErrProductNotFound = errors.New("product not found")

const defaultTimeoutSeconds = 5

// Client validates product references against the remote product service.
type Client struct {
	nats    *natsconn.Client
	subject string
	timeout time.Duration
}

// NewClient creates a product validation client configured from viper.
func NewClient(nats *natsconn.Client) *Client {
	subject := viper.GetString("nats.subjects.validate_products")
	if subject == "" {
		subject = "products.validate"
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

// Validate asks the product service for the current name and price of the
// given product ids. Ids must be deduplicated by the caller. The service may
// return fewer records than requested; unknown ids are silently dropped from
// the reply.
func (c *Client) Validate(ctx context.Context, ids []int64) ([]product.Product, error) {
	var result []product.Product
	if err := rpc.Request(ctx, c.nats.Conn(), "products", c.subject, c.timeout, ids, &result); err != nil {
		return nil, fmt.Errorf("failed to validate products: %w", err)
	}

	return result, nil
}
