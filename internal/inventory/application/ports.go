package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/order-inventory-saga/internal/inventory/domain"
)

// Ledger is the authoritative stock store. Quantities change only through
// ConditionalDecrement.
type Ledger interface {
	Get(ctx context.Context, id uuid.UUID) (domain.StockItem, error)
	// ConditionalDecrement subtracts qty only if at least qty is on hand and
	// reports whether it did.
	ConditionalDecrement(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	List(ctx context.Context) ([]domain.StockItem, error)
}

type ReservationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// ClaimOrder records that orderID is being evaluated. It reports false if
	// the order was claimed before.
	ClaimOrder(ctx context.Context, orderID uuid.UUID, now time.Time) (bool, error)
	// SaveOutcome stores the verdict and stages it for publication.
	SaveOutcome(ctx context.Context, o domain.Outcome, now time.Time, headers map[string]string, traceparent string) error
}
