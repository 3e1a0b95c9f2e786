package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmehra2102/order-inventory-saga/pkg/metrics"
)

type Store interface {
	LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error)
	MarkSent(ctx context.Context, ids []int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
	ExtendLease(ctx context.Context, relayID string, ids []int64, lease time.Duration) error
}

type Relay struct {
	log       *slog.Logger
	store     Store
	dispatch  *Dispatcher
	relayID   string
	batchSize int
	interval  time.Duration
	lease     time.Duration
}

type RelayOption func(*Relay)

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithLease(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.lease = d
		}
	}
}

func NewRelay(log *slog.Logger, store Store, dispatch *Dispatcher, relayID string, opts ...RelayOption) *Relay {
	r := &Relay{
		log:       log,
		store:     store,
		dispatch:  dispatch,
		relayID:   relayID,
		batchSize: 100,
		interval:  500 * time.Millisecond,
		lease:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("relay stopping", "relay_id", r.relayID)
			return nil
		case <-t.C:
			if _, err := r.flush(ctx); err != nil {
				r.log.Error("relay flush error", "relay_id", r.relayID, "err", err)
			}
		}
	}
}

// flush publishes one locked batch and reports how many events were sent.
func (r *Relay) flush(ctx context.Context) (int, error) {
	events, err := r.store.LockBatch(ctx, r.relayID, r.batchSize, r.lease)
	if err != nil {
		return 0, fmt.Errorf("lock batch: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	leased := time.Now()
	ids := make([]int64, 0, len(events))
	for i, e := range events {
		if time.Since(leased) > r.lease/2 {
			if err := r.store.ExtendLease(ctx, r.relayID, eventIDs(events[i:]), r.lease); err != nil {
				r.log.Warn("relay extend lease failed", "relay_id", r.relayID, "err", err)
			}
			leased = time.Now()
		}
		if err := r.dispatch.Dispatch(ctx, e); err != nil {
			metrics.OutboxFailed.WithLabelValues(r.relayID).Inc()
			if err := r.store.MarkFailed(ctx, e.ID, err.Error()); err != nil {
				r.log.Error("relay mark failed error", "event_id", e.ID, "err", err)
			}
			continue
		}
		ids = append(ids, e.ID)
	}
	if len(ids) > 0 {
		if err := r.store.MarkSent(ctx, ids); err != nil {
			return 0, fmt.Errorf("mark sent: %w", err)
		}
		metrics.OutboxDispatched.WithLabelValues(r.relayID).Add(float64(len(ids)))
	}
	return len(ids), nil
}

func eventIDs(events []Event) []int64 {
	ids := make([]int64, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return ids
}
