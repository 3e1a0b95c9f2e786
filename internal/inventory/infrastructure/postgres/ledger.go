package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/order-inventory-saga/internal/inventory/domain"
)

type Ledger struct {
	db
	log *slog.Logger
}

func NewLedger(log *slog.Logger, pool *pgxpool.Pool) *Ledger {
	return &Ledger{db: db{pool: pool}, log: log}
}

func (l *Ledger) Get(ctx context.Context, id uuid.UUID) (domain.StockItem, error) {
	const query = `SELECT id, name, quantity, updated_at FROM stock_items WHERE id = $1`
	var s domain.StockItem
	err := l.queryRow(ctx, query, id).Scan(&s.ID, &s.Name, &s.Quantity, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.StockItem{}, domain.ErrItemNotFound
	}
	if err != nil {
		return domain.StockItem{}, fmt.Errorf("get stock item: %w", err)
	}
	return s, nil
}

// ConditionalDecrement is the only statement that lowers a quantity. The WHERE
// clause makes check and write a single atomic step.
func (l *Ledger) ConditionalDecrement(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	const query = `
UPDATE stock_items
SET quantity = quantity - $2, updated_at = NOW()
WHERE id = $1 AND quantity >= $2`

	if qty <= 0 {
		return false, domain.ErrInvalidQuantity
	}
	ct, err := l.exec(ctx, query, id, qty)
	if err != nil {
		return false, fmt.Errorf("decrement stock item: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (l *Ledger) List(ctx context.Context) ([]domain.StockItem, error) {
	rows, err := l.query(ctx, `SELECT id, name, quantity, updated_at FROM stock_items ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list stock items: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.StockItem, error) {
		var s domain.StockItem
		err := row.Scan(&s.ID, &s.Name, &s.Quantity, &s.UpdatedAt)
		return s, err
	})
}

// Seed inserts items that do not exist yet. Existing rows keep their quantity.
func (l *Ledger) Seed(ctx context.Context, items []domain.StockItem) (int, error) {
	const query = `
INSERT INTO stock_items (id, name, quantity)
VALUES ($1, $2, $3)
ON CONFLICT DO NOTHING`

	inserted := 0
	err := withTx(ctx, l.pool, func(txCtx context.Context) error {
		for _, item := range items {
			ct, err := l.exec(txCtx, query, item.ID, item.Name, item.Quantity)
			if err != nil {
				return fmt.Errorf("seed %s: %w", item.Name, err)
			}
			inserted += int(ct.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	l.log.Info("stock seeded", "items", len(items), "inserted", inserted)
	return inserted, nil
}
