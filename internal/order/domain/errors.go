package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func Validate(customerID int64, items []OrderItem) error {
	if customerID <= 0 {
		return &ValidationError{Field: "customerId", Message: "customer ID must be a positive number"}
	}
	if len(items) == 0 {
		return &ValidationError{Field: "items", Message: "order must have at least one item"}
	}
	for i, item := range items {
		if strings.TrimSpace(item.ItemRef) == "" {
			return &ValidationError{Field: fmt.Sprintf("items[%d].itemRef", i), Message: "item reference is required"}
		}
		if item.Quantity <= 0 {
			return &ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "quantity must be a positive number"}
		}
		// Stock columns are 32-bit.
		if item.Quantity > math.MaxInt32 {
			return &ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Message: fmt.Sprintf("quantity must not exceed %d", math.MaxInt32)}
		}
	}
	return nil
}
