package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/order-inventory-saga/internal/inventory/application"
	"github.com/dmehra2102/order-inventory-saga/internal/inventory/domain"
	"github.com/dmehra2102/order-inventory-saga/pkg/events"
	"github.com/dmehra2102/order-inventory-saga/pkg/messaging"
	"github.com/dmehra2102/order-inventory-saga/pkg/outbox"
	"github.com/dmehra2102/order-inventory-saga/pkg/tracing"
)

type OrderEvaluator interface {
	Evaluate(ctx context.Context, in application.EvaluateInput) (domain.Outcome, bool, error)
}

// OrderPlacedHandler feeds OrderPlaced events into the reservation evaluator.
type OrderPlacedHandler struct {
	log       *slog.Logger
	evaluator OrderEvaluator
	tracer    trace.Tracer
}

func NewOrderPlacedHandler(log *slog.Logger, evaluator OrderEvaluator) *OrderPlacedHandler {
	return &OrderPlacedHandler{
		log:       log,
		evaluator: evaluator,
		tracer:    otel.Tracer("inventory-consumer"),
	}
}

func (h *OrderPlacedHandler) Handle(ctx context.Context, msg kafka.Message) error {
	ctx = tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	ctx, span := h.tracer.Start(ctx, "ConsumeOrderPlaced",
		trace.WithAttributes(attribute.String("messaging.event_type", tracing.HeaderValue(msg.Headers, outbox.EventTypeHeader))))
	defer span.End()

	var ev events.OrderPlaced
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return messaging.Drop(fmt.Errorf("decode OrderPlaced: %w", err))
	}
	orderID, err := uuid.Parse(ev.OrderID)
	if err != nil {
		return messaging.Drop(fmt.Errorf("order id %q: %w", ev.OrderID, err))
	}

	items := make([]domain.LineItem, 0, len(ev.Items))
	for _, it := range ev.Items {
		items = append(items, domain.LineItem{ItemRef: it.ItemRef, Quantity: it.Quantity})
	}

	_, _, err = h.evaluator.Evaluate(ctx, application.EvaluateInput{
		OrderID:     orderID,
		Items:       items,
		Traceparent: tracing.Traceparent(ctx),
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
