package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmehra2102/order-inventory-saga/internal/order/domain"
)

type OrderRepository interface {
	// SaveWithOutbox persists o and stages the event in one transaction.
	SaveWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, headers map[string]string, traceparent string) error
	Get(ctx context.Context, id uuid.UUID) (domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	// UpdateStatus writes o's status, reason and updated_at only if the stored
	// status still equals from. It reports whether a row changed.
	UpdateStatus(ctx context.Context, o domain.Order, from domain.OrderStatus) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
