package testutil

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/dmehra2102/order-inventory-saga/migrations"
)

const testDBLockID int64 = 771203412

var (
	containerOnce sync.Once
	containerURL  string
	containerErr  error
)

// NewTestPool connects to TEST_DATABASE_URL, or to a throwaway Postgres
// container when the variable is unset. It skips the test when neither is
// reachable and holds an advisory lock so packages do not trample each other.
func NewTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		dsn = postgresContainer(t)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}
	cfg.MaxConns = 8

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("skipping Postgres integration tests: %v", err)
	}
	t.Cleanup(pool.Close)

	lockTestDB(t, pool)
	return pool
}

func postgresContainer(t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	containerOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		c, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("orderflow"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			postgres.BasicWaitStrategies(),
		)
		if err != nil {
			containerErr = err
			return
		}
		containerURL, containerErr = c.ConnectionString(ctx, "sslmode=disable")
	})
	if containerErr != nil {
		t.Skipf("skipping Postgres integration tests: %v", containerErr)
	}
	return containerURL
}

func ApplyMigrations(t *testing.T, ctx context.Context, pool *pgxpool.Pool, set migrations.Set) {
	t.Helper()
	if err := migrations.Apply(ctx, pool, set); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}
}

// Truncate empties the given tables.
func Truncate(t *testing.T, ctx context.Context, pool *pgxpool.Pool, tables ...string) {
	t.Helper()
	for _, table := range tables {
		if _, err := pool.Exec(ctx, `TRUNCATE `+table+` RESTART IDENTITY CASCADE`); err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
}

func lockTestDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire lock conn: %v", err)
	}
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, testDBLockID); err != nil {
		conn.Release()
		t.Fatalf("acquire test lock: %v", err)
	}

	t.Cleanup(func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, testDBLockID)
		conn.Release()
	})
}
