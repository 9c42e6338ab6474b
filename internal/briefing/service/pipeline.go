package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang-market-briefing/internal/briefing/policy"
	"golang-market-briefing/internal/briefing/repository"
	"golang-market-briefing/internal/entity"
	"golang-market-briefing/pkg/logger"
	"golang-market-briefing/pkg/utils"
)

// Result is the outcome of one pipeline run. CommitKeys are handed back to
// the caller and only written to the dedup store once delivery is confirmed,
// so a failed delivery never marks items as seen.
type Result struct {
	Variant    string
	Digest     map[entity.SourceCategory][]entity.ScoredRecord
	Signals    map[string]entity.Signal
	CommitKeys []string

	SkippedInvalid int
	Duplicates     int
	RanAt          time.Time
}

// TotalItems returns the number of records across all digest categories.
func (r *Result) TotalItems() int {
	total := 0
	for _, records := range r.Digest {
		total += len(records)
	}
	return total
}

// Pipeline sequences dedup filtering, scoring, sentiment aggregation and
// allocation for one schedule variant. It holds no state across runs beyond
// what the dedup store persists.
type Pipeline struct {
	policy     *policy.Policy
	dedupStore repository.DedupStore
	hints      repository.HintProvider
	logger     *logger.Logger
	nowFn      func() time.Time
}

// NewPipeline creates a Pipeline. A nil hint provider disables AI hints; a
// nil nowFn defaults to time.Now.
func NewPipeline(p *policy.Policy, dedupStore repository.DedupStore, hints repository.HintProvider, log *logger.Logger, nowFn func() time.Time) *Pipeline {
	if hints == nil {
		hints = repository.NoopHintProvider{}
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Pipeline{
		policy:     p,
		dedupStore: dedupStore,
		hints:      hints,
		logger:     log,
		nowFn:      nowFn,
	}
}

// Run executes one batch transform over the collected records. Malformed
// records are skipped and counted; an empty or missing category is not
// fatal. The only fatal condition is an invalid policy.
func (p *Pipeline) Run(ctx context.Context, inputs map[entity.SourceCategory][]entity.Record) (*Result, error) {
	if err := p.policy.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline cannot run: %w", err)
	}

	result := &Result{
		Variant: p.policy.Variant,
		RanAt:   p.nowFn(),
	}

	fresh, err := p.filterDuplicates(ctx, inputs, result)
	if err != nil {
		return nil, err
	}

	hints := p.fetchHints(ctx, fresh)

	scoredByCategory := p.scoreCategories(fresh, hints)

	var allScored []entity.ScoredRecord
	var scoredNews []entity.ScoredRecord
	for cat, scored := range scoredByCategory {
		allScored = append(allScored, scored...)
		if cat.IsNews() {
			scoredNews = append(scoredNews, scored...)
		}
	}

	if p.policy.NewsEnabled() {
		result.Signals = NewAggregator().Aggregate(scoredNews)
	}

	result.Digest = NewSelector(p.policy).Select(allScored)

	for _, records := range result.Digest {
		for _, record := range records {
			result.CommitKeys = append(result.CommitKeys, record.DedupKey)
		}
	}

	p.logger.Info("Pipeline run complete",
		logger.StringField("variant", p.policy.Variant),
		logger.IntField("digest_items", result.TotalItems()),
		logger.IntField("duplicates", result.Duplicates),
		logger.IntField("skipped_invalid", result.SkippedInvalid),
	)
	return result, nil
}

// Commit marks the run's keys as delivered. Callers invoke it only after the
// delivery sink confirms success (at-least-once semantics).
func (p *Pipeline) Commit(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := p.dedupStore.Commit(ctx, keys, p.nowFn()); err != nil {
		return fmt.Errorf("failed to commit dedup keys: %w", err)
	}
	return nil
}

// filterDuplicates drops invalid records and records whose dedup key has a
// non-expired cache entry, or was already seen earlier in this run (the same
// story syndicated across feeds). The dedup store is only read here; nothing
// writes to it until Commit.
func (p *Pipeline) filterDuplicates(ctx context.Context, inputs map[entity.SourceCategory][]entity.Record, result *Result) (map[entity.SourceCategory][]entity.Record, error) {
	fresh := make(map[entity.SourceCategory][]entity.Record, len(inputs))
	seen := make(map[string]bool)
	for cat, records := range inputs {
		if !p.policy.CategoryEnabled(cat) {
			continue
		}
		for _, record := range records {
			if !record.Valid() {
				result.SkippedInvalid++
				p.logger.Warn("Skipping malformed record",
					logger.StringField("category", string(cat)),
					logger.StringField("title", record.Title),
				)
				continue
			}

			key, degraded := record.DedupKey()
			if degraded {
				p.logger.Warn("Record has no URL, using degraded dedup key",
					logger.StringField("category", string(cat)),
					logger.StringField("title", record.Title),
				)
			}

			if seen[key] {
				result.Duplicates++
				continue
			}

			dup, err := p.dedupStore.IsDuplicate(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("failed to check duplicate: %w", err)
			}
			if dup {
				result.Duplicates++
				continue
			}
			seen[key] = true
			fresh[cat] = append(fresh[cat], record)
		}
	}
	return fresh, nil
}

// fetchHints asks the hint provider for every fresh record. Hints are
// advisory, so any failure logs and degrades to no hints.
func (p *Pipeline) fetchHints(ctx context.Context, fresh map[entity.SourceCategory][]entity.Record) map[string]entity.AIHint {
	var requests []repository.HintRequest
	for _, records := range fresh {
		for _, record := range records {
			key, _ := record.DedupKey()
			requests = append(requests, repository.HintRequest{Key: key, Record: record})
		}
	}
	if len(requests) == 0 {
		return nil
	}

	hints, err := p.hints.Hints(ctx, requests)
	if err != nil {
		p.logger.Warn("Hint provider failed, scoring without hints", logger.ErrorField(err))
	}
	return hints
}

// scoreCategories scores each category in its own goroutine. Categories are
// independent and the policy is read-only, so parallel scoring cannot change
// the output.
func (p *Pipeline) scoreCategories(fresh map[entity.SourceCategory][]entity.Record, hints map[string]entity.AIHint) map[entity.SourceCategory][]entity.ScoredRecord {
	scorer := NewScorer(p.policy, p.nowFn)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	scoredByCategory := make(map[entity.SourceCategory][]entity.ScoredRecord, len(fresh))

	for cat, records := range fresh {
		if len(records) == 0 {
			continue
		}
		cat, records := cat, records
		wg.Add(1)
		utils.GoSafe(func() {
			defer wg.Done()
			scored := scorer.ScoreBatch(records, hints)
			mu.Lock()
			scoredByCategory[cat] = scored
			mu.Unlock()
		})
	}
	wg.Wait()

	return scoredByCategory
}
