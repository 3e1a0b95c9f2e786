package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmehra2102/order-inventory-saga/internal/inventory/domain"
)

type OutcomeReader interface {
	Outcome(ctx context.Context, orderID uuid.UUID) (domain.Outcome, error)
}

// Queries is the read-only view behind the inventory HTTP API.
type Queries struct {
	ledger   Ledger
	outcomes OutcomeReader
}

func NewQueries(ledger Ledger, outcomes OutcomeReader) *Queries {
	return &Queries{ledger: ledger, outcomes: outcomes}
}

func (q *Queries) ListStock(ctx context.Context) ([]domain.StockItem, error) {
	return q.ledger.List(ctx)
}

func (q *Queries) GetStock(ctx context.Context, id uuid.UUID) (domain.StockItem, error) {
	return q.ledger.Get(ctx, id)
}

func (q *Queries) GetOutcome(ctx context.Context, orderID uuid.UUID) (domain.Outcome, error) {
	return q.outcomes.Outcome(ctx, orderID)
}
