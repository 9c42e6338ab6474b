package repository

import (
	"context"
	"time"

	"golang-market-briefing/internal/entity"
)

// DedupStore tracks the dedup keys of previously delivered items. It is the
// only component with durable state. Implementations are read-only during a
// pipeline run; mutation happens solely through Commit after the caller
// confirms delivery.
type DedupStore interface {
	// IsDuplicate reports whether key has a non-expired entry.
	IsDuplicate(ctx context.Context, key string) (bool, error)
	// Commit marks keys as delivered at the given time.
	Commit(ctx context.Context, keys []string, at time.Time) error
	// PurgeOlderThan removes entries older than retention and returns the
	// number removed. Implementations may also purge lazily on Commit.
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}

// HintRequest pairs a record with its dedup key for hint lookup.
type HintRequest struct {
	Key    string
	Record entity.Record
}

// HintProvider supplies the optional AI sentiment/importance hints, keyed by
// dedup key. Hints are advisory: implementations return partial results or an
// error, and the pipeline proceeds without hints on any failure.
type HintProvider interface {
	Hints(ctx context.Context, requests []HintRequest) (map[string]entity.AIHint, error)
}

// Collector produces the normalized records for one source category.
// Collectors are external collaborators to the pipeline; the interface exists
// so the service can fan them out and tolerate individual failures.
type Collector interface {
	Name() string
	Category() entity.SourceCategory
	Collect(ctx context.Context) ([]entity.Record, error)
}

// DigestArchiveRepository persists delivered digest items for the weekly
// recap. The archive is a delivery log, not pipeline state.
type DigestArchiveRepository interface {
	CreateBatch(ctx context.Context, entries []entity.DigestArchiveEntry) error
	FindDeliveredSince(ctx context.Context, since time.Time) ([]entity.DigestArchiveEntry, error)
}
