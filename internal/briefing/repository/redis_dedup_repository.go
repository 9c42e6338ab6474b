package repository

import (
	"context"
	"fmt"
	"time"

	"golang-market-briefing/pkg/redis"
)

const redisDedupKeyPrefix = "briefing:dedup:"

type redisDedupStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisDedupStore returns a DedupStore backed by Redis. Entries carry a
// TTL equal to the retention window, so eviction happens server-side and
// PurgeOlderThan is a no-op.
func NewRedisDedupStore(client *redis.Client, retention time.Duration) DedupStore {
	return &redisDedupStore{client: client, retention: retention}
}

func (s *redisDedupStore) IsDuplicate(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, redisDedupKeyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check dedup key: %w", err)
	}
	return n > 0, nil
}

func (s *redisDedupStore) Commit(ctx context.Context, keys []string, at time.Time) error {
	if len(keys) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, key := range keys {
		pipe.Set(ctx, redisDedupKeyPrefix+key, at.Format(time.RFC3339), s.retention)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to commit dedup keys: %w", err)
	}
	return nil
}

func (s *redisDedupStore) PurgeOlderThan(_ context.Context, _ time.Duration) (int, error) {
	// TTL-based eviction makes explicit purging unnecessary.
	return 0, nil
}
