package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore holds a short lock per (commuter, idempotency key) so two
// concurrent requests with the same key cannot both charge the commuter.
// The durable record of a finished booking lives in the bookings ledger.
type IdempotencyStore struct {
	rdb     *redis.Client
	lockTTL time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, lockTTL time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, lockTTL: lockTTL}
}

// Acquire returns false when another request holds the key
func (s *IdempotencyStore) Acquire(ctx context.Context, commuterID, idemKey string) (bool, error) {
	return s.rdb.SetNX(ctx, KeyIdempotency(commuterID, idemKey), "LOCK", s.lockTTL).Result()
}

func (s *IdempotencyStore) IsLocked(ctx context.Context, commuterID, idemKey string) (bool, error) {
	v, err := s.rdb.Get(ctx, KeyIdempotency(commuterID, idemKey)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "LOCK", nil
}

func (s *IdempotencyStore) Release(ctx context.Context, commuterID, idemKey string) error {
	return s.rdb.Del(ctx, KeyIdempotency(commuterID, idemKey)).Err()
}
