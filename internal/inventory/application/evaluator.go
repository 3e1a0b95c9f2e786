package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/order-inventory-saga/internal/inventory/domain"
	"github.com/dmehra2102/order-inventory-saga/pkg/clock"
	"github.com/dmehra2102/order-inventory-saga/pkg/metrics"
)

type EvaluateInput struct {
	OrderID     uuid.UUID
	Items       []domain.LineItem
	Headers     map[string]string
	Traceparent string
}

// Evaluator decides whether an order can be served from stock and records
// exactly one outcome per order id.
type Evaluator struct {
	log          *slog.Logger
	ledger       Ledger
	reservations ReservationRepository
	clock        clock.Clock
	tracer       trace.Tracer
}

func NewEvaluator(log *slog.Logger, ledger Ledger, reservations ReservationRepository, clk clock.Clock) *Evaluator {
	return &Evaluator{
		log:          log,
		ledger:       ledger,
		reservations: reservations,
		clock:        clk,
		tracer:       otel.Tracer("inventory-evaluator"),
	}
}

// Evaluate runs claim, verdict and outcome in one transaction. fresh is false
// for an order id that was already evaluated; nothing is touched in that case.
// A returned error means nothing was committed.
func (e *Evaluator) Evaluate(ctx context.Context, in EvaluateInput) (outcome domain.Outcome, fresh bool, err error) {
	ctx, span := e.tracer.Start(ctx, "EvaluateReservation",
		trace.WithAttributes(attribute.String("order.id", in.OrderID.String()), attribute.Int("order.items", len(in.Items))))
	defer span.End()

	err = e.reservations.WithTx(ctx, func(txCtx context.Context) error {
		now := e.clock.Now()
		claimed, err := e.reservations.ClaimOrder(txCtx, in.OrderID, now)
		if err != nil {
			return fmt.Errorf("claim order: %w", err)
		}
		if !claimed {
			return nil
		}

		outcome, err = e.decide(txCtx, in.OrderID, in.Items)
		if err != nil {
			return err
		}

		headers := map[string]string{"source": "inventory-service"}
		for k, v := range in.Headers {
			headers[k] = v
		}
		if err := e.reservations.SaveOutcome(txCtx, outcome, now, headers, in.Traceparent); err != nil {
			return fmt.Errorf("save outcome: %w", err)
		}
		fresh = true
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return domain.Outcome{}, false, err
	}

	if !fresh {
		e.log.Info("duplicate order ignored", "order_id", in.OrderID)
		return domain.Outcome{}, false, nil
	}

	span.SetAttributes(attribute.String("outcome.status", string(outcome.Status)), attribute.String("outcome.reason", outcome.Reason))
	metrics.Outcomes.WithLabelValues(string(outcome.Status), outcome.Reason).Inc()
	e.log.Info("reservation evaluated", "order_id", in.OrderID, "status", outcome.Status, "reason", outcome.Reason)
	return outcome, true, nil
}

// decide checks every item before decrementing any. A decrement that loses a
// race after the check cancels the order and leaves earlier decrements applied.
func (e *Evaluator) decide(ctx context.Context, orderID uuid.UUID, items []domain.LineItem) (domain.Outcome, error) {
	reqs, err := domain.ParseRequirements(items)
	switch {
	case errors.Is(err, domain.ErrInvalidItemReference):
		e.log.Warn("rejecting order", "order_id", orderID, "err", err)
		return domain.Cancel(orderID, domain.ReasonInvalidItemReference), nil
	case errors.Is(err, domain.ErrInvalidQuantity):
		e.log.Warn("rejecting order", "order_id", orderID, "err", err)
		return domain.Cancel(orderID, domain.ReasonInvalidQuantity), nil
	case err != nil:
		return domain.Outcome{}, err
	}

	for _, r := range reqs {
		item, err := e.ledger.Get(ctx, r.ItemID)
		if errors.Is(err, domain.ErrItemNotFound) {
			return domain.Cancel(orderID, domain.ReasonInsufficientStock), nil
		}
		if err != nil {
			return domain.Outcome{}, fmt.Errorf("get stock %s: %w", r.ItemID, err)
		}
		if item.Quantity < r.Quantity {
			return domain.Cancel(orderID, domain.ReasonInsufficientStock), nil
		}
	}

	for _, r := range reqs {
		ok, err := e.ledger.ConditionalDecrement(ctx, r.ItemID, r.Quantity)
		if err != nil {
			return domain.Outcome{}, fmt.Errorf("decrement stock %s: %w", r.ItemID, err)
		}
		if !ok {
			e.log.Warn("decrement lost after check", "order_id", orderID, "item_id", r.ItemID, "quantity", r.Quantity)
			return domain.Cancel(orderID, domain.ReasonStockUpdateFailure), nil
		}
	}
	return domain.Confirm(orderID), nil
}
