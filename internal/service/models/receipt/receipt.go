package receipt

import (
	"time"

	"github.com/google/uuid"
)

// Receipt links a paid order to the receipt issued by the payment provider.
// Written by payment finalization; re-delivered events append further rows,
// and reads resolve the latest one.
type Receipt struct {
	ID         int64     `json:"id"`
	OrderID    uuid.UUID `json:"orderId"`
	ReceiptURL string    `json:"receiptUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}
