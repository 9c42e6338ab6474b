package entity

// Tier is the coarse priority bucket derived from a numeric score.
type Tier string

const (
	TierCritical Tier = "critical"
	TierHigh     Tier = "high"
	TierMedium   Tier = "medium"
	TierLow      Tier = "low"
)

// Polarity is the per-record sentiment lean derived from matched keyword tables.
type Polarity string

const (
	PolarityBullish Polarity = "bullish"
	PolarityBearish Polarity = "bearish"
	PolarityNeutral Polarity = "neutral"
)

// AIHint is the advisory pair supplied by the AI client for one record,
// keyed by the record's dedup key. Its contribution to the final score is
// bounded by policy so rule-based signal stays authoritative.
type AIHint struct {
	SentimentHint float64 `json:"sentiment_hint"` // in [-1, 1]
	SummaryBonus  float64 `json:"summary_bonus"`
}

// ScoredRecord wraps a Record with the scorer's output. It lives for one run
// and is never persisted.
type ScoredRecord struct {
	Record         Record
	DedupKey       string
	Score          float64
	Tier           Tier
	SignalTags     []string // names of matched keyword tables
	Sectors        []string // sector scopes the record belongs to
	Polarity       Polarity
	PriorityAuthor bool
}

// HasTag reports whether the scorer matched the named keyword table.
func (s ScoredRecord) HasTag(tag string) bool {
	for _, t := range s.SignalTags {
		if t == tag {
			return true
		}
	}
	return false
}
