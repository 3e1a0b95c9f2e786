package domain

import "github.com/google/uuid"

type OutcomeStatus string

const (
	OutcomeConfirmed OutcomeStatus = "CONFIRMED"
	OutcomeCancelled OutcomeStatus = "CANCELLED"
)

// Reasons reported to the order service. They are part of the wire contract.
const (
	ReasonStockUpdated         = "stock updated successfully"
	ReasonInsufficientStock    = "insufficient stock"
	ReasonInvalidItemReference = "invalid item reference"
	ReasonInvalidQuantity      = "invalid quantity"
	ReasonStockUpdateFailure   = "stock update failure"
)

// Outcome is the single verdict recorded for an order.
type Outcome struct {
	OrderID uuid.UUID
	Status  OutcomeStatus
	Reason  string
}

func Confirm(orderID uuid.UUID) Outcome {
	return Outcome{OrderID: orderID, Status: OutcomeConfirmed, Reason: ReasonStockUpdated}
}

func Cancel(orderID uuid.UUID, reason string) Outcome {
	return Outcome{OrderID: orderID, Status: OutcomeCancelled, Reason: reason}
}
