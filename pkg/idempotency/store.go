package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store remembers processed message coordinates in Redis for ttl. It is a
// fast path in front of the durable per-order checks, so losing a key only
// costs a redundant (idempotent) reprocessing.
type Store struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewStore(rdb redis.Cmdable, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) Key(topic string, partition int, offset int64) string {
	return fmt.Sprintf("idem:%s:%d:%d", topic, partition, offset)
}

func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	_, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Mark records key once its message has been fully handled.
func (s *Store) Mark(ctx context.Context, key string) error {
	return s.rdb.Set(ctx, key, "1", s.ttl).Err()
}
