package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang-market-briefing/internal/briefing/config"
	"golang-market-briefing/internal/briefing/dto"
	"golang-market-briefing/internal/briefing/repository"
	"golang-market-briefing/internal/entity"
	"golang-market-briefing/pkg/logger"
	"golang-market-briefing/pkg/telegram"
	"golang-market-briefing/pkg/utils"

	"gorm.io/datatypes"
)

// BriefingService runs the full briefing flow for a schedule variant:
// collect, prioritize, deliver, then commit the dedup keys.
type BriefingService interface {
	RunVariant(ctx context.Context, name string) (*dto.RunSummary, error)
	LastRun() *dto.RunSummary
}

type briefingService struct {
	cfg         *config.Config
	logger      *logger.Logger
	collectors  []repository.Collector
	dedupStore  repository.DedupStore
	hints       repository.HintProvider
	notifier    telegram.Notifier
	archiveRepo repository.DigestArchiveRepository
	nowFn       func() time.Time

	mu      sync.Mutex
	lastRun *dto.RunSummary
}

// NewBriefingService creates the briefing service. archiveRepo may be nil
// when archiving is disabled; hints may be nil when the AI client is off.
func NewBriefingService(
	cfg *config.Config,
	log *logger.Logger,
	collectors []repository.Collector,
	dedupStore repository.DedupStore,
	hints repository.HintProvider,
	notifier telegram.Notifier,
	archiveRepo repository.DigestArchiveRepository,
	nowFn func() time.Time,
) BriefingService {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &briefingService{
		cfg:         cfg,
		logger:      log,
		collectors:  collectors,
		dedupStore:  dedupStore,
		hints:       hints,
		notifier:    notifier,
		archiveRepo: archiveRepo,
		nowFn:       nowFn,
	}
}

// RunVariant executes one briefing run for the named schedule variant.
func (s *briefingService) RunVariant(ctx context.Context, name string) (*dto.RunSummary, error) {
	variant := s.cfg.VariantByName(name)
	if variant == nil {
		return nil, fmt.Errorf("unknown variant %q", name)
	}

	s.logger.Info("Starting briefing run", logger.StringField("variant", name))

	inputs, collectorErrs := s.collect(ctx, variant)

	pipeline := NewPipeline(&variant.Policy, s.dedupStore, s.hints, s.logger, s.nowFn)
	result, err := pipeline.Run(ctx, inputs)
	if err != nil {
		return nil, err
	}

	summary := s.summarize(result, collectorErrs)

	if result.TotalItems() == 0 {
		s.logger.Info("No new content to deliver", logger.StringField("variant", name))
		s.setLastRun(summary)
		return summary, nil
	}

	messages := telegram.FormatDigest(result.Variant, result.RanAt, result.Digest, result.Signals)
	for _, message := range messages {
		if err := s.notifier.SendMessage(message); err != nil {
			// A failed delivery must not mark items as seen; the next run
			// will pick them up again.
			s.setLastRun(summary)
			return summary, fmt.Errorf("failed to send digest: %w", err)
		}
		time.Sleep(100 * time.Millisecond)
	}
	summary.Delivered = true

	if err := pipeline.Commit(ctx, result.CommitKeys); err != nil {
		s.logger.Error("Failed to commit dedup keys", logger.ErrorField(err))
	}

	if s.archiveRepo != nil {
		if err := s.archiveRepo.CreateBatch(ctx, s.archiveEntries(result)); err != nil {
			s.logger.Error("Failed to archive digest", logger.ErrorField(err))
		}
	}

	s.setLastRun(summary)
	s.logger.Info("Briefing run delivered",
		logger.StringField("variant", name),
		logger.IntField("items", summary.TotalItems),
		logger.IntField("messages", len(messages)),
	)
	return summary, nil
}

// LastRun returns the most recent run summary, or nil before the first run.
func (s *briefingService) LastRun() *dto.RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

func (s *briefingService) setLastRun(summary *dto.RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = summary
}

// collect fans the collectors out in parallel. A failing collector only
// loses its own category; the run proceeds with the rest.
func (s *briefingService) collect(ctx context.Context, variant *config.Variant) (map[entity.SourceCategory][]entity.Record, []string) {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		errors []string
	)
	inputs := make(map[entity.SourceCategory][]entity.Record)

	for _, collector := range s.collectors {
		if !variant.Policy.CategoryEnabled(collector.Category()) {
			continue
		}
		collector := collector
		wg.Add(1)
		utils.GoSafe(func() {
			defer wg.Done()
			records, err := collector.Collect(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Error("Collector failed",
					logger.StringField("collector", collector.Name()),
					logger.ErrorField(err),
				)
				errors = append(errors, fmt.Sprintf("%s: %v", collector.Name(), err))
				return
			}
			inputs[collector.Category()] = append(inputs[collector.Category()], records...)
		})
	}
	wg.Wait()

	return inputs, errors
}

func (s *briefingService) summarize(result *Result, collectorErrs []string) *dto.RunSummary {
	summary := &dto.RunSummary{
		Variant:        result.Variant,
		RanAt:          result.RanAt,
		TotalItems:     result.TotalItems(),
		Duplicates:     result.Duplicates,
		SkippedInvalid: result.SkippedInvalid,
		CollectorError: collectorErrs,
	}
	if len(result.Digest) > 0 {
		summary.CategoryCounts = make(map[string]int, len(result.Digest))
		for cat, records := range result.Digest {
			summary.CategoryCounts[string(cat)] = len(records)
		}
	}
	if len(result.Signals) > 0 {
		summary.Signals = make(map[string]string, len(result.Signals))
		for scope, signal := range result.Signals {
			summary.Signals[scope] = string(signal)
		}
	}
	return summary
}

func (s *briefingService) archiveEntries(result *Result) []entity.DigestArchiveEntry {
	var entries []entity.DigestArchiveEntry
	for cat, records := range result.Digest {
		for _, record := range records {
			entry := entity.DigestArchiveEntry{
				Variant:        result.Variant,
				SourceCategory: string(cat),
				Title:          record.Record.Title,
				URL:            record.Record.URL,
				DedupKey:       record.DedupKey,
				Score:          record.Score,
				Tier:           string(record.Tier),
				SignalTags:     record.SignalTags,
				PublishedAt:    record.Record.PublishedAt,
				DeliveredAt:    result.RanAt,
			}
			if len(record.Record.ExtraData) > 0 {
				if raw, err := json.Marshal(record.Record.ExtraData); err == nil {
					entry.ExtraData = datatypes.JSON(raw)
				}
			}
			entries = append(entries, entry)
		}
	}
	return entries
}
