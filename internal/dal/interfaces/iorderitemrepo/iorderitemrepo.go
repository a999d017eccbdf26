package iorderitemrepo

import (
	"context"

	"github.com/google/uuid"
	"github.com/microshop/orders/internal/service/models/orderitem"
)

// IOrderItemRepository is an interface for the order item postgres repository.
type IOrderItemRepository interface {
	// BulkInsert persists the items of an order and returns them with ids.
	BulkInsert(ctx context.Context, items []orderitem.OrderItem) ([]orderitem.OrderItem, error)

	// QueryByOrderIDs returns all items belonging to the given orders.
	QueryByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) ([]orderitem.OrderItem, error)
}
