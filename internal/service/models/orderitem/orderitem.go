package orderitem

import (
	"github.com/google/uuid"
)

// OrderItem represents a line within an order. Price is a snapshot of the
// product's price at order-creation time and is never re-derived from the
// catalog afterward. Name is resolved from the product service for responses
// and is not persisted.
type OrderItem struct {
	ID        int64     `json:"id"`
	OrderID   uuid.UUID `json:"orderId"`
	ProductID int64     `json:"productId"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	Name      string    `json:"name,omitempty"`
}

// NewItem is a requested order line before price snapshotting. Duplicate
// product ids across lines are allowed; each stays a distinct line.
type NewItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}
