package iorderrepo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/microshop/orders/internal/service/models/order"
)

// IOrderRepository is an interface for the order postgres repository.
type IOrderRepository interface {
	// Insert persists a new order row.
	Insert(ctx context.Context, o order.Order) error

	// GetByID returns the order row or order.ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error)

	// Count returns the number of orders matching the filter.
	Count(ctx context.Context, filter *order.QueryOrdersModel) (int64, error)

	// Query returns one page of orders matching the filter, without items.
	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)

	// UpdateStatus unconditionally sets the status of the order and stamps
	// updated_at with the given time.
	UpdateStatus(ctx context.Context, id uuid.UUID, status order.Status, updatedAt time.Time) error

	// MarkPaid stamps the order as paid with the given charge id.
	MarkPaid(ctx context.Context, id uuid.UUID, chargeID string, paidAt time.Time) error
}
