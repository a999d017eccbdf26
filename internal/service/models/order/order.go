package order

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/microshop/orders/internal/service/models/orderitem"
	"github.com/microshop/orders/internal/service/models/receipt"
)

var ErrNotFound = errors.New("order not found")

// Order represents an order aggregate in the system.
type Order struct {
	ID          uuid.UUID             `json:"id"`
	TotalAmount float64               `json:"totalAmount"`
	TotalItems  int                   `json:"totalItems"`
	Status      Status                `json:"status"`
	Paid        bool                  `json:"paid"`
	PaidAt      *time.Time            `json:"paidAt,omitempty"`
	ChargeID    *string               `json:"chargeId,omitempty"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
	OrderItems  []orderitem.OrderItem `json:"orderItems"`
	Receipt     *receipt.Receipt      `json:"receipt,omitempty"`
}
