package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/dmehra2102/order-inventory-saga/internal/order/domain"
	"github.com/dmehra2102/order-inventory-saga/pkg/messaging"
)

type fakeApplier struct {
	err   error
	calls []domain.OrderStatus
}

func (f *fakeApplier) ApplyOutcome(_ context.Context, _ uuid.UUID, status domain.OrderStatus, _ string) (bool, error) {
	f.calls = append(f.calls, status)
	if f.err != nil {
		return false, f.err
	}
	return true, nil
}

func TestOutcomeHandler_Handle(t *testing.T) {
	t.Parallel()

	id := uuid.NewString()
	valid := []byte(`{"orderId":"` + id + `","status":"CONFIRMED","reason":"stock updated successfully"}`)

	tests := []struct {
		name       string
		value      []byte
		applyErr   error
		wantDrop   bool
		wantDLQ    bool
		wantErr    bool
		wantCalled bool
	}{
		{name: "applies outcome", value: valid, wantCalled: true},
		{name: "malformed json is dropped", value: []byte(`{`), wantDrop: true, wantErr: true},
		{name: "unparseable order id is dropped", value: []byte(`{"orderId":"x","status":"CONFIRMED"}`), wantDrop: true, wantErr: true},
		{name: "unknown order is dead-lettered", value: valid, applyErr: domain.ErrNotFound, wantDLQ: true, wantErr: true, wantCalled: true},
		{name: "non-terminal status is dead-lettered", value: valid, applyErr: domain.ErrInvalidTransition, wantDLQ: true, wantErr: true, wantCalled: true},
		{name: "unknown wire status is dead-lettered", value: []byte(`{"orderId":"` + id + `","status":"PENDING"}`), wantDLQ: true, wantErr: true},
		{name: "cancelled outcome applies", value: []byte(`{"orderId":"` + id + `","status":"CANCELLED","reason":"insufficient stock"}`), wantCalled: true},
		{name: "infrastructure error is transient", value: valid, applyErr: errors.New("conn reset"), wantErr: true, wantCalled: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			applier := &fakeApplier{err: tt.applyErr}
			h := NewOutcomeHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), applier)

			err := h.Handle(context.Background(), kafka.Message{Key: []byte(id), Value: tt.value})
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if messaging.IsDrop(err) != tt.wantDrop {
				t.Fatalf("expected drop=%v, got %v", tt.wantDrop, err)
			}
			if messaging.IsDeadLetter(err) != tt.wantDLQ {
				t.Fatalf("expected dead letter=%v, got %v", tt.wantDLQ, err)
			}
			if (len(applier.calls) > 0) != tt.wantCalled {
				t.Fatalf("expected called=%v, got %d calls", tt.wantCalled, len(applier.calls))
			}
		})
	}
}
