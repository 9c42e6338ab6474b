package policy

import (
	"errors"
	"fmt"
	"time"

	"golang-market-briefing/internal/entity"
	"golang-market-briefing/pkg/utils"
)

// ErrInvalid marks configuration errors in a Policy. A run cannot proceed
// with an invalid policy because its output would be undefined; this is the
// only fatal error class in the pipeline and callers can distinguish it from
// data errors with errors.Is.
var ErrInvalid = errors.New("invalid policy")

// KeywordTable is one weighted keyword list. A table's weight is added to a
// record's score at most once no matter how many of its keywords match.
type KeywordTable struct {
	Name     string   `mapstructure:"name" json:"name"`
	Weight   float64  `mapstructure:"weight" json:"weight"`
	Keywords []string `mapstructure:"keywords" json:"keywords"`
	// Polarity optionally maps matches of this table to a sentiment bucket
	// (bullish, bearish or neutral). Empty means no sentiment contribution.
	Polarity string `mapstructure:"polarity" json:"polarity,omitempty"`
	// Sector optionally assigns matched records to a sector scope for
	// per-sector sentiment classification.
	Sector string `mapstructure:"sector" json:"sector,omitempty"`
}

// TierThresholds holds the score cut-offs for the priority tiers. Scores at
// or above Critical map to critical, and so on down; everything below Medium
// is low.
type TierThresholds struct {
	Critical float64 `mapstructure:"critical"`
	High     float64 `mapstructure:"high"`
	Medium   float64 `mapstructure:"medium"`
}

// Policy is the static numeric configuration for one schedule variant. It is
// loaded once by the config layer and passed by reference through a run,
// never mutated, so scoring can safely run in parallel.
type Policy struct {
	Variant string `mapstructure:"variant"`

	// EnabledCategories lists the source categories this variant includes.
	EnabledCategories []string `mapstructure:"enabled_categories"`

	// BaseScores keys the per-category starting score by source category.
	BaseScores map[string]float64 `mapstructure:"base_scores"`

	KeywordTables []KeywordTable `mapstructure:"keyword_tables"`

	PriorityAuthors      []string `mapstructure:"priority_authors"`
	PriorityAuthorWeight float64  `mapstructure:"priority_author_weight"`

	// AIHintWeight scales the external sentiment hint; MaxAIBonus bounds the
	// total AI contribution so it can never override rule-based signal.
	AIHintWeight float64 `mapstructure:"ai_hint_weight"`
	MaxAIBonus   float64 `mapstructure:"max_ai_bonus"`

	// RecencyHalfLife is the age up to which a record keeps its full score.
	// Beyond it the score decays linearly up to MaxRecencyDecay (a fraction
	// in [0,1]); decay alone never drives a score negative.
	RecencyHalfLife time.Duration `mapstructure:"recency_half_life"`
	MaxRecencyDecay float64       `mapstructure:"max_recency_decay"`

	Tiers TierThresholds `mapstructure:"tiers"`

	NewsQuota     int     `mapstructure:"news_quota"`
	DomesticRatio float64 `mapstructure:"domestic_ratio"`
	ReportQuota   int     `mapstructure:"report_quota"`
	VideoQuota    int     `mapstructure:"video_quota"`

	DedupRetention time.Duration `mapstructure:"dedup_retention"`
}

// CategoryEnabled reports whether the variant includes the given category.
func (p *Policy) CategoryEnabled(c entity.SourceCategory) bool {
	return utils.ContainsString(p.EnabledCategories, string(c))
}

// NewsEnabled reports whether either news category is enabled.
func (p *Policy) NewsEnabled() bool {
	return p.CategoryEnabled(entity.SourceCategoryDomesticNews) ||
		p.CategoryEnabled(entity.SourceCategoryInternationalNews)
}

// BaseScore returns the configured base score for a category, zero if unset.
func (p *Policy) BaseScore(c entity.SourceCategory) float64 {
	return p.BaseScores[string(c)]
}

// Validate checks the fields without which allocation and tier mapping would
// be undefined. All returned errors wrap ErrInvalid.
func (p *Policy) Validate() error {
	if p.Variant == "" {
		return fmt.Errorf("%w: variant name is required", ErrInvalid)
	}
	if len(p.EnabledCategories) == 0 {
		return fmt.Errorf("%w: variant %q enables no categories", ErrInvalid, p.Variant)
	}
	if p.NewsEnabled() {
		if p.NewsQuota <= 0 {
			return fmt.Errorf("%w: news_quota must be positive when news is enabled", ErrInvalid)
		}
		if p.DomesticRatio < 0 || p.DomesticRatio > 1 {
			return fmt.Errorf("%w: domestic_ratio %.2f outside [0,1]", ErrInvalid, p.DomesticRatio)
		}
	}
	if p.CategoryEnabled(entity.SourceCategoryReport) && p.ReportQuota <= 0 {
		return fmt.Errorf("%w: report_quota must be positive when reports are enabled", ErrInvalid)
	}
	if p.CategoryEnabled(entity.SourceCategoryVideo) && p.VideoQuota <= 0 {
		return fmt.Errorf("%w: video_quota must be positive when videos are enabled", ErrInvalid)
	}
	if p.Tiers.Critical <= p.Tiers.High || p.Tiers.High <= p.Tiers.Medium {
		return fmt.Errorf("%w: tier thresholds must be strictly descending", ErrInvalid)
	}
	if p.MaxAIBonus < 0 {
		return fmt.Errorf("%w: max_ai_bonus must not be negative", ErrInvalid)
	}
	if p.MaxRecencyDecay < 0 || p.MaxRecencyDecay > 1 {
		return fmt.Errorf("%w: max_recency_decay %.2f outside [0,1]", ErrInvalid, p.MaxRecencyDecay)
	}
	if p.DedupRetention <= 0 {
		return fmt.Errorf("%w: dedup_retention must be positive", ErrInvalid)
	}
	for _, table := range p.KeywordTables {
		if table.Name == "" {
			return fmt.Errorf("%w: keyword table without a name", ErrInvalid)
		}
		switch table.Polarity {
		case "", string(entity.PolarityBullish), string(entity.PolarityBearish), string(entity.PolarityNeutral):
		default:
			return fmt.Errorf("%w: keyword table %q has unknown polarity %q", ErrInvalid, table.Name, table.Polarity)
		}
	}
	return nil
}
