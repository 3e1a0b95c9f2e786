package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx, so events can be
// written inside the caller's business transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Insert stages ev as pending.
func Insert(ctx context.Context, db Execer, ev Event) error {
	headers := ev.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	_, err := db.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		ev.AggregateType, ev.AggregateID, ev.Type, ev.Payload, headers, ev.Traceparent)
	return err
}

type PostgresStore struct {
	log        *slog.Logger
	pool       *pgxpool.Pool
	maxRetries int
}

// NewPostgresStore returns a Store that parks an event as failed after
// maxRetries unsuccessful dispatches.
func NewPostgresStore(log *slog.Logger, pool *pgxpool.Pool, maxRetries int) *PostgresStore {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &PostgresStore{log: log, pool: pool, maxRetries: maxRetries}
}

// LockBatch claims pending events plus in-progress ones whose lease expired.
func (s *PostgresStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, type, payload, headers, traceparent, created_at, retry_count
		FROM outbox
		WHERE status = 'pending'
		   OR (status = 'in_progress' AND lease_until < now())
		ORDER BY id
		FOR UPDATE SKIP LOCKED
		LIMIT $1
	`, batchSize)
	if err != nil {
		return nil, err
	}

	var events []Event
	for rows.Next() {
		var event Event
		var headers map[string]string
		if err := rows.Scan(&event.ID, &event.AggregateType, &event.AggregateID, &event.Type, &event.Payload, &headers, &event.Traceparent, &event.CreatedAt, &event.RetryCount); err != nil {
			rows.Close()
			return nil, err
		}
		event.Headers = headers
		event.Status = StatusInProgress
		events = append(events, event)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx, `UPDATE outbox SET status='in_progress', relay_id=$1, lease_until=now() + make_interval(secs => $2) WHERE id = ANY($3)`,
		relayID, lease.Seconds(), eventIDs(events))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *PostgresStore) MarkSent(ctx context.Context, ids []int64) error {
	ct, err := s.pool.Exec(ctx, `UPDATE outbox SET status='sent', lease_until=NULL WHERE id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.New("no rows updated")
	}
	return nil
}

// MarkFailed returns the event to pending until it runs out of retries.
func (s *PostgresStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE outbox
		SET retry_count = retry_count + 1,
		    last_error = $2,
		    status = CASE WHEN retry_count + 1 >= $3 THEN 'failed' ELSE 'pending' END,
		    relay_id = NULL,
		    lease_until = NULL
		WHERE id = $1`, id, errMsg, s.maxRetries)
	if err != nil {
		return err
	}
	s.log.Warn("outbox event dispatch failed", "event_id", id, "err", errMsg)
	return nil
}

func (s *PostgresStore) ExtendLease(ctx context.Context, relayID string, ids []int64, lease time.Duration) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET lease_until=now() + make_interval(secs => $1) WHERE id = ANY($2) AND relay_id=$3`, lease.Seconds(), ids, relayID)
	return err
}
