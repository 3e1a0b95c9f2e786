package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/order-inventory-saga/internal/order/domain"
	"github.com/dmehra2102/order-inventory-saga/pkg/events"
	"github.com/dmehra2102/order-inventory-saga/pkg/messaging"
	"github.com/dmehra2102/order-inventory-saga/pkg/outbox"
	"github.com/dmehra2102/order-inventory-saga/pkg/tracing"
)

type OutcomeApplier interface {
	ApplyOutcome(ctx context.Context, id uuid.UUID, status domain.OrderStatus, reason string) (bool, error)
}

// OutcomeHandler applies InventoryValidated events to orders.
type OutcomeHandler struct {
	log    *slog.Logger
	svc    OutcomeApplier
	tracer trace.Tracer
}

func NewOutcomeHandler(log *slog.Logger, svc OutcomeApplier) *OutcomeHandler {
	return &OutcomeHandler{
		log:    log,
		svc:    svc,
		tracer: otel.Tracer("order-consumer"),
	}
}

// Handle satisfies messaging.Handler.
func (h *OutcomeHandler) Handle(ctx context.Context, msg kafka.Message) error {
	ctx = tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	ctx, span := h.tracer.Start(ctx, "ConsumeInventoryValidated")
	defer span.End()

	var ev events.InventoryValidated
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return messaging.Drop(fmt.Errorf("decode InventoryValidated: %w", err))
	}
	id, err := uuid.Parse(ev.OrderID)
	if err != nil {
		return messaging.Drop(fmt.Errorf("order id %q: %w", ev.OrderID, err))
	}
	span.SetAttributes(
		attribute.String("order.id", ev.OrderID),
		attribute.String("outcome.status", ev.Status),
		attribute.String("messaging.event_type", tracing.HeaderValue(msg.Headers, outbox.EventTypeHeader)),
	)

	status, err := orderStatus(ev.Status)
	if err != nil {
		return messaging.DeadLetter(err)
	}

	applied, err := h.svc.ApplyOutcome(ctx, id, status, ev.Reason)
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidTransition):
		return messaging.DeadLetter(err)
	case err != nil:
		span.RecordError(err)
		return err
	}

	if !applied {
		h.log.Debug("outcome not applied", "order_id", id, "status", ev.Status)
	}
	return nil
}

func orderStatus(wire string) (domain.OrderStatus, error) {
	switch wire {
	case events.StatusConfirmed:
		return domain.StatusConfirmed, nil
	case events.StatusCancelled:
		return domain.StatusCancelled, nil
	}
	return "", fmt.Errorf("outcome status %q: %w", wire, domain.ErrInvalidTransition)
}
