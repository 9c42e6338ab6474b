package entity

// Signal is the classified aggregate sentiment for one scope (the overall
// market or a single sector).
type Signal string

const (
	SignalStrongBullish Signal = "strong_bullish"
	SignalBullish       Signal = "bullish"
	SignalNeutral       Signal = "neutral"
	SignalBearish       Signal = "bearish"
	SignalStrongBearish Signal = "strong_bearish"
)

// ScopeOverall is the scope name for the whole-market signal.
const ScopeOverall = "overall"

// SentimentBucket accumulates polarity counts for one scope during a run.
// Buckets are discarded after classification.
type SentimentBucket struct {
	Scope        string
	BullishCount int
	BearishCount int
	NeutralCount int
}

// Classify maps the bucket's counts to a Signal. With no bullish/bearish/
// neutral contributions at all the scope is neutral; otherwise the
// bullish-bearish difference relative to the total count selects one of five
// deterministic tiers.
func (b SentimentBucket) Classify() Signal {
	total := b.BullishCount + b.BearishCount + b.NeutralCount
	if total == 0 {
		return SignalNeutral
	}

	ratio := float64(b.BullishCount-b.BearishCount) / float64(total)
	switch {
	case ratio >= 0.5:
		return SignalStrongBullish
	case ratio >= 0.15:
		return SignalBullish
	case ratio <= -0.5:
		return SignalStrongBearish
	case ratio <= -0.15:
		return SignalBearish
	default:
		return SignalNeutral
	}
}
