package idempotency

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skipf("skipping Redis tests: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestStore_Key(t *testing.T) {
	t.Parallel()

	s := NewStore(nil, time.Minute)
	if got := s.Key("order.placed", 2, 41); got != "idem:order.placed:2:41" {
		t.Fatalf("unexpected key %s", got)
	}
}

func TestStore_SeenAfterMark(t *testing.T) {
	rdb := newTestClient(t)
	ctx := context.Background()
	s := NewStore(rdb, time.Minute)

	key := s.Key(fmt.Sprintf("test-%d", time.Now().UnixNano()), 0, 1)
	t.Cleanup(func() { rdb.Del(context.Background(), key) })

	seen, err := s.Seen(ctx, key)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if seen {
		t.Fatalf("expected fresh key to be unseen")
	}

	if err := s.Mark(ctx, key); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	seen, err = s.Seen(ctx, key)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !seen {
		t.Fatalf("expected marked key to be seen")
	}

	ttl, err := rdb.TTL(ctx, key).Result()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected ttl within a minute, got %s", ttl)
	}
}
