package service

import (
	"strings"
	"time"

	"golang-market-briefing/internal/briefing/policy"
	"golang-market-briefing/internal/entity"
)

// Scorer converts records into scored records using the run's policy tables.
// Scoring is a pure function of record content and policy; the clock is
// injected only for recency decay.
type Scorer struct {
	policy *policy.Policy
	nowFn  func() time.Time
}

// NewScorer creates a Scorer for one run. A nil nowFn defaults to time.Now.
func NewScorer(p *policy.Policy, nowFn func() time.Time) *Scorer {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Scorer{policy: p, nowFn: nowFn}
}

// Score assigns an importance score, tier and signal tags to one record.
// Each keyword table contributes its weight at most once regardless of how
// many of its keywords occur. The AI hint is advisory: its contribution is
// clamped so it can never move a score by more than the policy's MaxAIBonus.
func (s *Scorer) Score(record entity.Record, hint *entity.AIHint) entity.ScoredRecord {
	key, _ := record.DedupKey()
	scored := entity.ScoredRecord{
		Record:   record,
		DedupKey: key,
	}

	text := strings.ToLower(record.Title + " " + record.Excerpt)
	score := s.policy.BaseScore(record.SourceCategory)

	bullishWeight := 0.0
	bearishWeight := 0.0
	for _, table := range s.policy.KeywordTables {
		if !matchesAny(text, table.Keywords) {
			continue
		}
		score += table.Weight
		scored.SignalTags = append(scored.SignalTags, table.Name)
		if table.Sector != "" {
			scored.Sectors = appendUnique(scored.Sectors, table.Sector)
		}
		switch table.Polarity {
		case string(entity.PolarityBullish):
			bullishWeight += table.Weight
		case string(entity.PolarityBearish):
			bearishWeight += table.Weight
		}
	}
	scored.Polarity = resolvePolarity(bullishWeight, bearishWeight)

	if s.matchesPriorityAuthor(record, text) {
		score += s.policy.PriorityAuthorWeight
		scored.PriorityAuthor = true
	}

	if hint != nil {
		bonus := hint.SentimentHint*s.policy.AIHintWeight + hint.SummaryBonus
		if bonus > s.policy.MaxAIBonus {
			bonus = s.policy.MaxAIBonus
		}
		if bonus < -s.policy.MaxAIBonus {
			bonus = -s.policy.MaxAIBonus
		}
		score += bonus
	}

	score -= score * s.recencyDecay(record.PublishedAt)
	if score < 0 {
		score = 0
	}

	scored.Score = score
	scored.Tier = s.tierFor(score)
	return scored
}

// ScoreBatch scores every record in order, attaching hints by dedup key.
func (s *Scorer) ScoreBatch(records []entity.Record, hints map[string]entity.AIHint) []entity.ScoredRecord {
	scored := make([]entity.ScoredRecord, 0, len(records))
	for _, record := range records {
		var hint *entity.AIHint
		if key, _ := record.DedupKey(); hints != nil {
			if h, ok := hints[key]; ok {
				hint = &h
			}
		}
		scored = append(scored, s.Score(record, hint))
	}
	return scored
}

func (s *Scorer) matchesPriorityAuthor(record entity.Record, text string) bool {
	author := strings.ToLower(record.AuthorOrChannel)
	for _, priority := range s.policy.PriorityAuthors {
		p := strings.ToLower(priority)
		if p == "" {
			continue
		}
		if author != "" && strings.Contains(author, p) {
			return true
		}
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// recencyDecay returns the fraction of score lost to age. Records within the
// half-life keep their full score; beyond it the fraction grows linearly and
// is capped at the policy maximum, so decay alone never produces a negative
// score. Records without a timestamp are not decayed.
func (s *Scorer) recencyDecay(publishedAt *time.Time) float64 {
	if publishedAt == nil || s.policy.RecencyHalfLife <= 0 || s.policy.MaxRecencyDecay <= 0 {
		return 0
	}
	age := s.nowFn().Sub(*publishedAt)
	if age <= s.policy.RecencyHalfLife {
		return 0
	}
	frac := s.policy.MaxRecencyDecay * float64(age-s.policy.RecencyHalfLife) / float64(s.policy.RecencyHalfLife)
	if frac > s.policy.MaxRecencyDecay {
		frac = s.policy.MaxRecencyDecay
	}
	return frac
}

func (s *Scorer) tierFor(score float64) entity.Tier {
	switch {
	case score >= s.policy.Tiers.Critical:
		return entity.TierCritical
	case score >= s.policy.Tiers.High:
		return entity.TierHigh
	case score >= s.policy.Tiers.Medium:
		return entity.TierMedium
	default:
		return entity.TierLow
	}
}

func matchesAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

func resolvePolarity(bullish, bearish float64) entity.Polarity {
	switch {
	case bullish > bearish:
		return entity.PolarityBullish
	case bearish > bullish:
		return entity.PolarityBearish
	default:
		return entity.PolarityNeutral
	}
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

// rankLess is the deterministic ordering used everywhere scored records are
// ranked: higher score first, then priority-author matches, then earlier
// published records (items without a timestamp sort last).
func rankLess(a, b entity.ScoredRecord) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.PriorityAuthor != b.PriorityAuthor {
		return a.PriorityAuthor
	}
	switch {
	case a.Record.PublishedAt == nil && b.Record.PublishedAt == nil:
		return false
	case a.Record.PublishedAt == nil:
		return false
	case b.Record.PublishedAt == nil:
		return true
	default:
		return a.Record.PublishedAt.Before(*b.Record.PublishedAt)
	}
}
