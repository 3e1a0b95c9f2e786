package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/order-inventory-saga/internal/inventory/domain"
	"github.com/dmehra2102/order-inventory-saga/pkg/clock"
)

type fakeLedger struct {
	mu        sync.Mutex
	stock     map[uuid.UUID]int
	calls     int
	getErr    error
	loseRace  map[uuid.UUID]bool
	decrement []uuid.UUID
}

func newFakeLedger(stock map[uuid.UUID]int) *fakeLedger {
	return &fakeLedger{stock: stock, loseRace: map[uuid.UUID]bool{}}
}

func (l *fakeLedger) Get(_ context.Context, id uuid.UUID) (domain.StockItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.getErr != nil {
		return domain.StockItem{}, l.getErr
	}
	qty, ok := l.stock[id]
	if !ok {
		return domain.StockItem{}, domain.ErrItemNotFound
	}
	return domain.StockItem{ID: id, Quantity: qty}, nil
}

func (l *fakeLedger) ConditionalDecrement(_ context.Context, id uuid.UUID, qty int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.loseRace[id] || l.stock[id] < qty {
		return false, nil
	}
	l.stock[id] -= qty
	l.decrement = append(l.decrement, id)
	return true, nil
}

func (l *fakeLedger) List(context.Context) ([]domain.StockItem, error) {
	return nil, nil
}

// fakeReservations emulates the transaction by snapshotting the ledger and the
// claim set, restoring both when fn fails.
type fakeReservations struct {
	mu       sync.Mutex
	ledger   *fakeLedger
	claimed  map[uuid.UUID]bool
	outcomes []domain.Outcome
	headers  []map[string]string
	saveErr  error
}

func newFakeReservations(ledger *fakeLedger) *fakeReservations {
	return &fakeReservations{ledger: ledger, claimed: map[uuid.UUID]bool{}}
}

func (r *fakeReservations) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	claimed := maps.Clone(r.claimed)
	r.mu.Unlock()
	r.ledger.mu.Lock()
	stock := maps.Clone(r.ledger.stock)
	r.ledger.mu.Unlock()

	if err := fn(ctx); err != nil {
		r.mu.Lock()
		r.claimed = claimed
		r.mu.Unlock()
		r.ledger.mu.Lock()
		r.ledger.stock = stock
		r.ledger.mu.Unlock()
		return err
	}
	return nil
}

func (r *fakeReservations) ClaimOrder(_ context.Context, orderID uuid.UUID, _ time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claimed[orderID] {
		return false, nil
	}
	r.claimed[orderID] = true
	return true, nil
}

func (r *fakeReservations) SaveOutcome(_ context.Context, o domain.Outcome, _ time.Time, headers map[string]string, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.outcomes = append(r.outcomes, o)
	r.headers = append(r.headers, headers)
	return nil
}

func newEvaluator(stock map[uuid.UUID]int) (*Evaluator, *fakeLedger, *fakeReservations) {
	ledger := newFakeLedger(stock)
	res := newFakeReservations(ledger)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEvaluator(log, ledger, res, clock.NewFixed(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))), ledger, res
}

func TestEvaluator_Outcomes(t *testing.T) {
	t.Parallel()

	widget := uuid.New()
	gadget := uuid.New()

	tests := []struct {
		name       string
		items      []domain.LineItem
		wantStatus domain.OutcomeStatus
		wantReason string
		wantStock  map[uuid.UUID]int
		noLedger   bool
	}{
		{
			name:       "empty items confirm",
			items:      nil,
			wantStatus: domain.OutcomeConfirmed,
			wantReason: domain.ReasonStockUpdated,
			wantStock:  map[uuid.UUID]int{widget: 10, gadget: 2},
			noLedger:   true,
		},
		{
			name:       "5 of 10 confirms",
			items:      []domain.LineItem{{ItemRef: widget.String(), Quantity: 5}},
			wantStatus: domain.OutcomeConfirmed,
			wantReason: domain.ReasonStockUpdated,
			wantStock:  map[uuid.UUID]int{widget: 5, gadget: 2},
		},
		{
			name:       "15 of 10 cancels",
			items:      []domain.LineItem{{ItemRef: widget.String(), Quantity: 15}},
			wantStatus: domain.OutcomeCancelled,
			wantReason: domain.ReasonInsufficientStock,
			wantStock:  map[uuid.UUID]int{widget: 10, gadget: 2},
		},
		{
			name:       "one short item cancels without any decrement",
			items:      []domain.LineItem{{ItemRef: widget.String(), Quantity: 1}, {ItemRef: gadget.String(), Quantity: 3}},
			wantStatus: domain.OutcomeCancelled,
			wantReason: domain.ReasonInsufficientStock,
			wantStock:  map[uuid.UUID]int{widget: 10, gadget: 2},
		},
		{
			name:       "unknown item cancels",
			items:      []domain.LineItem{{ItemRef: uuid.NewString(), Quantity: 1}},
			wantStatus: domain.OutcomeCancelled,
			wantReason: domain.ReasonInsufficientStock,
			wantStock:  map[uuid.UUID]int{widget: 10, gadget: 2},
		},
		{
			name:       "invalid reference cancels before touching stock",
			items:      []domain.LineItem{{ItemRef: widget.String(), Quantity: 1}, {ItemRef: "SKU-1", Quantity: 1}},
			wantStatus: domain.OutcomeCancelled,
			wantReason: domain.ReasonInvalidItemReference,
			wantStock:  map[uuid.UUID]int{widget: 10, gadget: 2},
			noLedger:   true,
		},
		{
			name:       "non-positive quantity cancels before touching stock",
			items:      []domain.LineItem{{ItemRef: widget.String(), Quantity: 0}},
			wantStatus: domain.OutcomeCancelled,
			wantReason: domain.ReasonInvalidQuantity,
			wantStock:  map[uuid.UUID]int{widget: 10, gadget: 2},
			noLedger:   true,
		},
		{
			name:       "invalid reference outranks invalid quantity",
			items:      []domain.LineItem{{ItemRef: widget.String(), Quantity: 0}, {ItemRef: "SKU-1", Quantity: 1}},
			wantStatus: domain.OutcomeCancelled,
			wantReason: domain.ReasonInvalidItemReference,
			wantStock:  map[uuid.UUID]int{widget: 10, gadget: 2},
			noLedger:   true,
		},
		{
			name:       "several items confirm",
			items:      []domain.LineItem{{ItemRef: widget.String(), Quantity: 4}, {ItemRef: gadget.String(), Quantity: 2}},
			wantStatus: domain.OutcomeConfirmed,
			wantReason: domain.ReasonStockUpdated,
			wantStock:  map[uuid.UUID]int{widget: 6, gadget: 0},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ev, ledger, res := newEvaluator(map[uuid.UUID]int{widget: 10, gadget: 2})
			orderID := uuid.New()

			out, fresh, err := ev.Evaluate(context.Background(), EvaluateInput{OrderID: orderID, Items: tt.items})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !fresh {
				t.Fatalf("expected fresh evaluation")
			}
			if out.OrderID != orderID || out.Status != tt.wantStatus || out.Reason != tt.wantReason {
				t.Fatalf("expected %s %q, got %+v", tt.wantStatus, tt.wantReason, out)
			}
			if len(res.outcomes) != 1 || res.outcomes[0] != out {
				t.Fatalf("expected exactly the returned outcome saved, got %+v", res.outcomes)
			}
			if tt.noLedger && ledger.calls != 0 {
				t.Fatalf("expected zero ledger calls, got %d", ledger.calls)
			}
			for id, want := range tt.wantStock {
				if got := ledger.stock[id]; got != want {
					t.Fatalf("expected stock %d for %s, got %d", want, id, got)
				}
			}
		})
	}
}

func TestEvaluator_DecrementFailureKeepsEarlierDecrements(t *testing.T) {
	t.Parallel()

	first, second := uuid.New(), uuid.New()
	ev, ledger, res := newEvaluator(map[uuid.UUID]int{first: 10, second: 10})
	ledger.loseRace[second] = true

	out, _, err := ev.Evaluate(context.Background(), EvaluateInput{
		OrderID: uuid.New(),
		Items:   []domain.LineItem{{ItemRef: first.String(), Quantity: 3}, {ItemRef: second.String(), Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.Status != domain.OutcomeCancelled || out.Reason != domain.ReasonStockUpdateFailure {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if ledger.stock[first] != 7 || ledger.stock[second] != 10 {
		t.Fatalf("expected first decrement to stand, got %v", ledger.stock)
	}
	if len(res.outcomes) != 1 {
		t.Fatalf("expected one outcome, got %d", len(res.outcomes))
	}
}

func TestEvaluator_DuplicateOrderNeverDecrementsTwice(t *testing.T) {
	t.Parallel()

	widget := uuid.New()
	ev, ledger, res := newEvaluator(map[uuid.UUID]int{widget: 10})
	in := EvaluateInput{OrderID: uuid.New(), Items: []domain.LineItem{{ItemRef: widget.String(), Quantity: 4}}}

	if _, fresh, err := ev.Evaluate(context.Background(), in); err != nil || !fresh {
		t.Fatalf("expected fresh evaluation, got %v %v", fresh, err)
	}
	calls := ledger.calls

	_, fresh, err := ev.Evaluate(context.Background(), in)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if fresh {
		t.Fatalf("expected duplicate to be ignored")
	}
	if ledger.stock[widget] != 6 {
		t.Fatalf("expected stock 6, got %d", ledger.stock[widget])
	}
	if ledger.calls != calls {
		t.Fatalf("expected no ledger access for duplicate, got %d extra calls", ledger.calls-calls)
	}
	if len(res.outcomes) != 1 {
		t.Fatalf("expected a single outcome, got %d", len(res.outcomes))
	}
}

func TestEvaluator_InfrastructureErrorRollsBack(t *testing.T) {
	t.Parallel()

	widget := uuid.New()
	ev, ledger, res := newEvaluator(map[uuid.UUID]int{widget: 10})
	res.saveErr = errors.New("connection reset")
	in := EvaluateInput{OrderID: uuid.New(), Items: []domain.LineItem{{ItemRef: widget.String(), Quantity: 4}}}

	if _, _, err := ev.Evaluate(context.Background(), in); err == nil {
		t.Fatalf("expected error")
	}
	if ledger.stock[widget] != 10 {
		t.Fatalf("expected decrement rolled back, got %d", ledger.stock[widget])
	}

	res.saveErr = nil
	out, fresh, err := ev.Evaluate(context.Background(), in)
	if err != nil || !fresh {
		t.Fatalf("expected retry to evaluate, got %v %v", fresh, err)
	}
	if out.Status != domain.OutcomeConfirmed || ledger.stock[widget] != 6 {
		t.Fatalf("unexpected retry result %+v stock %d", out, ledger.stock[widget])
	}
}

func TestEvaluator_LedgerErrorIsNotAnOutcome(t *testing.T) {
	t.Parallel()

	widget := uuid.New()
	ev, ledger, res := newEvaluator(map[uuid.UUID]int{widget: 10})
	ledger.getErr = errors.New("db down")

	_, _, err := ev.Evaluate(context.Background(), EvaluateInput{OrderID: uuid.New(), Items: []domain.LineItem{{ItemRef: widget.String(), Quantity: 1}}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(res.outcomes) != 0 || len(res.claimed) != 0 {
		t.Fatalf("expected nothing recorded, got outcomes=%d claims=%d", len(res.outcomes), len(res.claimed))
	}
}

func TestEvaluator_AddsSourceHeader(t *testing.T) {
	t.Parallel()

	ev, _, res := newEvaluator(map[uuid.UUID]int{})
	if _, _, err := ev.Evaluate(context.Background(), EvaluateInput{OrderID: uuid.New(), Headers: map[string]string{"event_type": "OrderPlaced"}}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.headers[0]["source"] != "inventory-service" {
		t.Fatalf("expected source header, got %v", res.headers[0])
	}
}
