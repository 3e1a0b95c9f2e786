package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/order-inventory-saga/internal/inventory/domain"
	"github.com/dmehra2102/order-inventory-saga/pkg/events"
	"github.com/dmehra2102/order-inventory-saga/pkg/outbox"
)

const aggregateType = "inventory"

// ReservationRepository keeps one row per evaluated order. The row is claimed
// before the verdict and filled in with it, in the same transaction.
type ReservationRepository struct {
	db
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{db: db{pool: pool}}
}

func (r *ReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *ReservationRepository) ClaimOrder(ctx context.Context, orderID uuid.UUID, now time.Time) (bool, error) {
	const query = `
INSERT INTO reservations (order_id, status, created_at, updated_at)
VALUES ($1, 'PENDING', $2, $2)
ON CONFLICT (order_id) DO NOTHING`

	ct, err := r.exec(ctx, query, orderID, now)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *ReservationRepository) SaveOutcome(ctx context.Context, o domain.Outcome, now time.Time, headers map[string]string, traceparent string) error {
	const query = `UPDATE reservations SET status = $2, reason = $3, updated_at = $4 WHERE order_id = $1`

	ct, err := r.exec(ctx, query, o.OrderID, string(o.Status), o.Reason, now)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("reservation %s was not claimed", o.OrderID)
	}

	payload, err := json.Marshal(events.InventoryValidated{
		OrderID: o.OrderID.String(),
		Status:  string(o.Status),
		Reason:  o.Reason,
	})
	if err != nil {
		return err
	}

	execer := outbox.Execer(r.pool)
	if tx := txFromContext(ctx); tx != nil {
		execer = tx
	}
	return outbox.Insert(ctx, execer, outbox.Event{
		AggregateType: aggregateType,
		AggregateID:   o.OrderID.String(),
		Type:          events.TypeInventoryValidated,
		Payload:       payload,
		Headers:       headers,
		Traceparent:   traceparent,
	})
}

// Outcome returns the recorded verdict for an order.
func (r *ReservationRepository) Outcome(ctx context.Context, orderID uuid.UUID) (domain.Outcome, error) {
	const query = `SELECT order_id, status, reason FROM reservations WHERE order_id = $1`
	var (
		o      domain.Outcome
		status string
	)
	err := r.queryRow(ctx, query, orderID).Scan(&o.OrderID, &status, &o.Reason)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Outcome{}, domain.ErrReservationNotFound
	}
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("get reservation: %w", err)
	}
	o.Status = domain.OutcomeStatus(status)
	return o, nil
}
