package service

import (
	"math"
	"sort"

	"golang-market-briefing/internal/briefing/policy"
	"golang-market-briefing/internal/entity"
)

// Selector allocates the bounded digest across categories under the policy's
// quota and ratio rules. Its input is assumed already deduplicated.
type Selector struct {
	policy *policy.Policy
}

// NewSelector creates a Selector for one run.
func NewSelector(p *policy.Policy) *Selector {
	return &Selector{policy: p}
}

// Select partitions the scored records by category, ranks each partition and
// applies the quotas. News shares one quota across the domestic/international
// split with ratio rounding and cross-partition backfill; reports and videos
// take an independent top-N each.
func (s *Selector) Select(records []entity.ScoredRecord) map[entity.SourceCategory][]entity.ScoredRecord {
	byCategory := make(map[entity.SourceCategory][]entity.ScoredRecord)
	for _, record := range records {
		cat := record.Record.SourceCategory
		if !s.policy.CategoryEnabled(cat) {
			continue
		}
		byCategory[cat] = append(byCategory[cat], record)
	}

	result := make(map[entity.SourceCategory][]entity.ScoredRecord)

	if s.policy.NewsEnabled() {
		domestic, international := s.selectNews(
			byCategory[entity.SourceCategoryDomesticNews],
			byCategory[entity.SourceCategoryInternationalNews],
		)
		if len(domestic) > 0 {
			result[entity.SourceCategoryDomesticNews] = domestic
		}
		if len(international) > 0 {
			result[entity.SourceCategoryInternationalNews] = international
		}
	}

	for _, cat := range []entity.SourceCategory{entity.SourceCategoryReport, entity.SourceCategoryVideo} {
		if !s.policy.CategoryEnabled(cat) {
			continue
		}
		quota := s.policy.ReportQuota
		if cat == entity.SourceCategoryVideo {
			quota = s.policy.VideoQuota
		}
		ranked := rankCopy(byCategory[cat])
		if len(ranked) > quota {
			ranked = ranked[:quota]
		}
		if len(ranked) > 0 {
			result[cat] = ranked
		}
	}

	return result
}

// selectNews splits the news quota by the domestic ratio. The remainder unit
// of the split goes to the partition with the larger fractional part, to
// domestic on an exact tie. A partition short of its quota is backfilled from
// the other partition's remaining ranked items so only genuine scarcity
// reduces the total below quota.
func (s *Selector) selectNews(domestic, international []entity.ScoredRecord) ([]entity.ScoredRecord, []entity.ScoredRecord) {
	total := s.policy.NewsQuota
	domestic = rankCopy(domestic)
	international = rankCopy(international)

	domExact := s.policy.DomesticRatio * float64(total)
	intlExact := float64(total) - domExact
	domQuota := int(math.Floor(domExact))
	intlQuota := int(math.Floor(intlExact))

	for domQuota+intlQuota < total {
		domFrac := domExact - float64(domQuota)
		intlFrac := intlExact - float64(intlQuota)
		if domFrac >= intlFrac {
			domQuota++
		} else {
			intlQuota++
		}
	}

	domTaken := min(domQuota, len(domestic))
	intlTaken := min(intlQuota, len(international))

	// Backfill shortfalls from the other partition's surplus. At most one
	// side can be short after its own take, so the total never exceeds quota.
	if shortfall := domQuota - domTaken; shortfall > 0 {
		intlTaken = min(intlTaken+shortfall, len(international))
	} else if shortfall := intlQuota - intlTaken; shortfall > 0 {
		domTaken = min(domTaken+shortfall, len(domestic))
	}

	return domestic[:domTaken], international[:intlTaken]
}

// rankCopy returns the records sorted by the deterministic ranking without
// mutating the input.
func rankCopy(records []entity.ScoredRecord) []entity.ScoredRecord {
	ranked := make([]entity.ScoredRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		return rankLess(ranked[i], ranked[j])
	})
	return ranked
}
