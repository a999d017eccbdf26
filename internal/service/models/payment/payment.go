package payment

import (
	"github.com/google/uuid"
)

// SessionItem is one order line as the payment service expects it.
type SessionItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// SessionRequest asks the payment service for a checkout session covering the
// given order.
type SessionRequest struct {
	OrderID  string        `json:"orderId"`
	Currency string        `json:"currency"`
	Items    []SessionItem `json:"items"`
}

// Session is the descriptor returned by the payment service. The caller hands
// it to the end consumer; nothing is persisted locally.
type Session struct {
	URL        string `json:"url"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

// SucceededEvent is the payment-succeeded webhook event delivered by the
// payment service once a session has been charged.
type SucceededEvent struct {
	OrderID    uuid.UUID `json:"orderId"`
	ReceiptURL string    `json:"receiptUrl"`
	ChargeID   string    `json:"chargeId"`
}
