package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

func (s OrderStatus) Valid() bool {
	return s == StatusPending || s.Terminal()
}

type Order struct {
	ID         uuid.UUID
	CustomerID int64
	Items      []OrderItem
	Status     OrderStatus
	Reason     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// OrderItem references a stock item owned by the inventory service. The
// reference is opaque here and resolved only on the inventory side.
type OrderItem struct {
	ItemRef  string
	Quantity int
}

// NewOrder validates the request and returns a PENDING order stamped with now.
func NewOrder(id uuid.UUID, customerID int64, items []OrderItem, now time.Time) (Order, error) {
	if err := Validate(customerID, items); err != nil {
		return Order{}, err
	}
	return Order{
		ID:         id,
		CustomerID: customerID,
		Items:      append([]OrderItem(nil), items...),
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// ApplyOutcome moves a PENDING order to the terminal status. It reports false
// when the order is already terminal, leaving it untouched.
func (o *Order) ApplyOutcome(status OrderStatus, reason string, now time.Time) (bool, error) {
	if !status.Terminal() {
		return false, ErrInvalidTransition
	}
	if o.Status.Terminal() {
		return false, nil
	}
	o.Status = status
	o.Reason = reason
	o.UpdatedAt = now
	return true, nil
}
