package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dmehra2102/order-inventory-saga/internal/order/domain"
	"github.com/dmehra2102/order-inventory-saga/pkg/clock"
	"github.com/dmehra2102/order-inventory-saga/pkg/events"
	"github.com/dmehra2102/order-inventory-saga/pkg/metrics"
)

type Service struct {
	log   *slog.Logger
	repo  OrderRepository
	clock clock.Clock
	newID func() uuid.UUID
}

func NewService(log *slog.Logger, repo OrderRepository, clk clock.Clock) *Service {
	return &Service{log: log, repo: repo, clock: clk, newID: uuid.New}
}

// reservedHeaders are written by the service or the outbox dispatcher and
// cannot be supplied by callers.
var reservedHeaders = map[string]bool{
	"source":      true,
	"event_type":  true,
	"traceparent": true,
	"tracestate":  true,
	"baggage":     true,
}

type CreateOrderInput struct {
	CustomerID  int64
	Items       []domain.OrderItem
	Headers     map[string]string
	Traceparent string
}

func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	o, err := domain.NewOrder(s.newID(), in.CustomerID, in.Items, s.clock.Now())
	if err != nil {
		return domain.Order{}, err
	}

	event := events.OrderPlaced{
		OrderID:    o.ID.String(),
		CustomerID: o.CustomerID,
		Items:      make([]events.LineItem, 0, len(o.Items)),
	}
	for _, item := range o.Items {
		event.Items = append(event.Items, events.LineItem{ItemRef: item.ItemRef, Quantity: item.Quantity})
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return domain.Order{}, err
	}

	headers := make(map[string]string, len(in.Headers)+1)
	for k, v := range in.Headers {
		if reservedHeaders[strings.ToLower(k)] {
			continue
		}
		headers[k] = v
	}
	headers["source"] = "order-service"
	if err := s.repo.SaveWithOutbox(ctx, o, events.TypeOrderPlaced, payload, headers, in.Traceparent); err != nil {
		return domain.Order{}, fmt.Errorf("save order: %w", err)
	}

	metrics.OrdersCreated.Inc()
	s.log.Info("order created", "order_id", o.ID, "customer_id", o.CustomerID, "items", len(o.Items))
	return o, nil
}

// ApplyOutcome finalizes a PENDING order. Redelivered outcomes for an order
// that is already terminal report applied=false without error.
func (s *Service) ApplyOutcome(ctx context.Context, id uuid.UUID, status domain.OrderStatus, reason string) (bool, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}

	applied, err := o.ApplyOutcome(status, reason, s.clock.Now())
	if err != nil {
		return false, err
	}
	if !applied {
		s.log.Info("outcome ignored for terminal order", "order_id", id, "status", o.Status, "incoming", status)
		return false, nil
	}

	ok, err := s.repo.UpdateStatus(ctx, o, domain.StatusPending)
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}
	if !ok {
		s.log.Info("order finalized concurrently", "order_id", id)
		return false, nil
	}

	metrics.OrdersFinalized.WithLabelValues(string(status)).Inc()
	s.log.Info("order finalized", "order_id", id, "status", status, "reason", reason)
	return true, nil
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.repo.List(ctx)
}

// DeleteOrder is an administrative removal outside the saga.
func (s *Service) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("order deleted", "order_id", id)
	return nil
}
