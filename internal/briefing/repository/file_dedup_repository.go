package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang-market-briefing/pkg/logger"
)

// dedupFile is the on-disk layout of the cache: dedup key to last-seen
// timestamp. Unknown extra fields in the file are ignored on load so the
// format stays forward compatible.
type dedupFile struct {
	Entries   map[string]time.Time `json:"entries"`
	UpdatedAt time.Time            `json:"updated_at"`
}

type fileDedupStore struct {
	path      string
	retention time.Duration
	logger    *logger.Logger
	nowFn     func() time.Time

	mu      sync.RWMutex
	entries map[string]time.Time
}

// NewFileDedupStore loads the dedup cache from path. A missing, unreadable or
// corrupt file degrades to an empty cache: re-sending previously seen items
// is acceptable, blocking delivery is not. The clock is injected so retention
// behavior is testable without real delays.
func NewFileDedupStore(path string, retention time.Duration, log *logger.Logger, nowFn func() time.Time) DedupStore {
	if nowFn == nil {
		nowFn = time.Now
	}
	s := &fileDedupStore{
		path:      path,
		retention: retention,
		logger:    log,
		nowFn:     nowFn,
		entries:   make(map[string]time.Time),
	}
	s.load()
	return s
}

func (s *fileDedupStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to read dedup cache, starting empty", logger.ErrorField(err), logger.StringField("path", s.path))
		}
		return
	}

	var file dedupFile
	if err := json.Unmarshal(data, &file); err != nil {
		s.logger.Warn("Dedup cache is corrupt, starting empty", logger.ErrorField(err), logger.StringField("path", s.path))
		return
	}
	if file.Entries != nil {
		s.entries = file.Entries
	}
	s.logger.Info("Loaded dedup cache", logger.IntField("entries", len(s.entries)), logger.StringField("path", s.path))
}

// IsDuplicate reports whether key was committed within the retention window.
// Expired entries are never read as hits even before they are purged.
func (s *fileDedupStore) IsDuplicate(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seenAt, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	return s.nowFn().Sub(seenAt) <= s.retention, nil
}

// Commit records keys as seen at the given time, purges expired entries and
// writes the file atomically: the new content goes to a temp file in the same
// directory which then replaces the previous version, so a failed write never
// loses the existing cache.
func (s *fileDedupStore) Commit(ctx context.Context, keys []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		s.entries[key] = at
	}
	s.purgeLocked(s.retention)

	return s.writeLocked()
}

// PurgeOlderThan removes entries older than retention.
func (s *fileDedupStore) PurgeOlderThan(_ context.Context, retention time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.purgeLocked(retention)
	if removed == 0 {
		return 0, nil
	}
	return removed, s.writeLocked()
}

func (s *fileDedupStore) purgeLocked(retention time.Duration) int {
	cutoff := s.nowFn().Add(-retention)
	removed := 0
	for key, seenAt := range s.entries {
		if seenAt.Before(cutoff) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

func (s *fileDedupStore) writeLocked() error {
	file := dedupFile{Entries: s.entries, UpdatedAt: s.nowFn()}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dedup cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".dedup-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace dedup cache: %w", err)
	}
	return nil
}
