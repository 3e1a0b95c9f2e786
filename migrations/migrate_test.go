package migrations_test

import (
	"context"
	"testing"

	"github.com/dmehra2102/order-inventory-saga/internal/testutil"
	"github.com/dmehra2102/order-inventory-saga/migrations"
)

func TestApply_IsRepeatable(t *testing.T) {
	ctx := context.Background()
	pool := testutil.NewTestPool(t)

	for _, set := range []migrations.Set{migrations.Order, migrations.Inventory} {
		for i := 0; i < 2; i++ {
			if err := migrations.Apply(ctx, pool, set); err != nil {
				t.Fatalf("apply %s (run %d): %v", set, i+1, err)
			}
		}
	}

	var applied int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM schema_migrations WHERE name LIKE 'order/%' OR name LIKE 'inventory/%'`).Scan(&applied); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if applied != 4 {
		t.Fatalf("expected 4 recorded migrations, got %d", applied)
	}

	if _, err := pool.Exec(ctx, `INSERT INTO stock_items (id, name, quantity) VALUES (gen_random_uuid(), 'negative-'||gen_random_uuid(), -1)`); err == nil {
		t.Fatalf("expected negative stock to violate the check constraint")
	}
}
