package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/order-inventory-saga/internal/order/domain"
	"github.com/dmehra2102/order-inventory-saga/pkg/outbox"
)

const aggregateType = "order"

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) SaveWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, headers map[string]string, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO orders (id, customer_id, status, reason, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, o.CustomerID, string(o.Status), o.Reason, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for i, item := range o.Items {
		batch.Queue(`INSERT INTO order_items (order_id, position, item_ref, quantity) VALUES ($1,$2,$3,$4)`,
			o.ID, i, item.ItemRef, item.Quantity)
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}

	err = outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: aggregateType,
		AggregateID:   o.ID.String(),
		Type:          eventType,
		Payload:       payload,
		Headers:       headers,
		Traceparent:   traceparent,
	})
	if err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	var (
		o      domain.Order
		status string
	)
	err := r.pool.QueryRow(ctx, `SELECT id, customer_id, status, reason, created_at, updated_at FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.CustomerID, &status, &o.Reason, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)

	items, err := r.items(ctx, []uuid.UUID{id})
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = items[id]
	return o, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, customer_id, status, reason, created_at, updated_at FROM orders ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Order, error) {
		var (
			o      domain.Order
			status string
		)
		err := row.Scan(&o.ID, &o.CustomerID, &status, &o.Reason, &o.CreatedAt, &o.UpdatedAt)
		o.Status = domain.OrderStatus(status)
		return o, err
	})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (r *Repository) items(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT order_id, item_ref, quantity FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]domain.OrderItem, len(ids))
	for rows.Next() {
		var (
			orderID uuid.UUID
			item    domain.OrderItem
		)
		if err := rows.Scan(&orderID, &item.ItemRef, &item.Quantity); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], item)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateStatus(ctx context.Context, o domain.Order, from domain.OrderStatus) (bool, error) {
	ct, err := r.pool.Exec(ctx, `UPDATE orders SET status=$2, reason=$3, updated_at=$4 WHERE id=$1 AND status=$5`,
		o.ID, string(o.Status), o.Reason, o.UpdatedAt, string(from))
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
