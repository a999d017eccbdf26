package ireceiptrepo

import (
	"context"

	"github.com/google/uuid"
	"github.com/microshop/orders/internal/service/models/receipt"
)

// IReceiptRepository is an interface for the order receipt postgres repository.
type IReceiptRepository interface {
	// Insert adds a receipt row for a finalized order. Deliberately not
	// keyed on order id: re-delivered finalization events append rows.
	Insert(ctx context.Context, r receipt.Receipt) error

	// GetLatestByOrderID returns the most recent receipt of the order, or
	// nil when none exists.
	GetLatestByOrderID(ctx context.Context, orderID uuid.UUID) (*receipt.Receipt, error)
}
