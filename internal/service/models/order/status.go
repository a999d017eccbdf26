package order

import (
	"database/sql/driver"
	"errors"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
	StatusPaid      Status = "PAID"
)

var ErrInvalidStatus = errors.New("invalid order status")

func (s Status) String() string {
	return string(s)
}

func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

func ParseStatus(s string) (Status, error) {
	switch s {
	case StatusPending.String():
		return StatusPending, nil
	case StatusDelivered.String():
		return StatusDelivered, nil
	case StatusCancelled.String():
		return StatusCancelled, nil
	case StatusPaid.String():
		return StatusPaid, nil
	default:
		return "", ErrInvalidStatus
	}
}
