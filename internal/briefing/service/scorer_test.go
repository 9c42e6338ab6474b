package service

import (
	"sort"
	"testing"
	"time"

	"golang-market-briefing/internal/briefing/policy"
	"golang-market-briefing/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func testPolicy() *policy.Policy {
	return &policy.Policy{
		Variant:           "morning",
		EnabledCategories: []string{"domestic_news", "international_news", "report", "video"},
		BaseScores: map[string]float64{
			"domestic_news":      0.35,
			"international_news": 0.30,
			"report":             0.45,
			"video":              0.25,
		},
		KeywordTables: []policy.KeywordTable{
			{Name: "breaking", Weight: 0.45, Keywords: []string{"breaking", "halt", "default"}},
			{Name: "earnings-beat", Weight: 0.20, Polarity: "bullish", Keywords: []string{"record profit", "dividen"}},
			{Name: "earnings-miss", Weight: 0.20, Polarity: "bearish", Keywords: []string{"rugi", "writedown"}},
			{Name: "banking", Weight: 0.15, Sector: "banking", Keywords: []string{"bank", "kredit"}},
		},
		PriorityAuthors:      []string{"Reuters", "Bank Indonesia"},
		PriorityAuthorWeight: 0.15,
		AIHintWeight:         0.10,
		MaxAIBonus:           0.15,
		RecencyHalfLife:      12 * time.Hour,
		MaxRecencyDecay:      0.5,
		Tiers:                policy.TierThresholds{Critical: 0.8, High: 0.5, Medium: 0.25},
		NewsQuota:            20,
		DomesticRatio:        0.7,
		ReportQuota:          5,
		VideoQuota:           3,
		DedupRetention:       7 * 24 * time.Hour,
	}
}

func newsRecord(title string) entity.Record {
	published := testNow.Add(-1 * time.Hour)
	return entity.Record{
		SourceCategory: entity.SourceCategoryDomesticNews,
		Title:          title,
		URL:            "https://example.com/" + title,
		PublishedAt:    &published,
	}
}

func TestScoreBaseOnly(t *testing.T) {
	scorer := NewScorer(testPolicy(), fixedNow)

	scored := scorer.Score(newsRecord("quiet session on the exchange"), nil)
	assert.InDelta(t, 0.35, scored.Score, 1e-9)
	assert.Equal(t, entity.TierMedium, scored.Tier)
	assert.Empty(t, scored.SignalTags)
	assert.Equal(t, entity.PolarityNeutral, scored.Polarity)
}

func TestScoreKeywordTableCountedOnce(t *testing.T) {
	scorer := NewScorer(testPolicy(), fixedNow)

	// Two keywords from the same table must add its weight a single time.
	scored := scorer.Score(newsRecord("BREAKING: trading halt after default fears"), nil)
	assert.InDelta(t, 0.35+0.45, scored.Score, 1e-9)
	assert.Equal(t, []string{"breaking"}, scored.SignalTags)
}

func TestScoreMultipleTablesStack(t *testing.T) {
	scorer := NewScorer(testPolicy(), fixedNow)

	scored := scorer.Score(newsRecord("bank posts record profit, raises dividen"), nil)
	assert.InDelta(t, 0.35+0.20+0.15, scored.Score, 1e-9)
	assert.True(t, scored.HasTag("earnings-beat"))
	assert.True(t, scored.HasTag("banking"))
	assert.Equal(t, []string{"banking"}, scored.Sectors)
	assert.Equal(t, entity.PolarityBullish, scored.Polarity)
}

func TestScorePolarityResolution(t *testing.T) {
	scorer := NewScorer(testPolicy(), fixedNow)

	// Equal bullish and bearish table weight resolves to neutral.
	scored := scorer.Score(newsRecord("record profit despite writedown"), nil)
	assert.Equal(t, entity.PolarityNeutral, scored.Polarity)

	scored = scorer.Score(newsRecord("rugi membengkak, writedown besar"), nil)
	assert.Equal(t, entity.PolarityBearish, scored.Polarity)
}

func TestScorePriorityAuthor(t *testing.T) {
	scorer := NewScorer(testPolicy(), fixedNow)

	record := newsRecord("markets open flat")
	record.AuthorOrChannel = "Reuters Staff"
	scored := scorer.Score(record, nil)
	assert.True(t, scored.PriorityAuthor)
	assert.InDelta(t, 0.35+0.15, scored.Score, 1e-9)

	// The author can also appear in the text body.
	inText := newsRecord("bank indonesia keeps the policy rate unchanged")
	scored = scorer.Score(inText, nil)
	assert.True(t, scored.PriorityAuthor)
}

func TestScoreAIHintClamped(t *testing.T) {
	p := testPolicy()
	scorer := NewScorer(p, fixedNow)
	record := newsRecord("quiet session on the exchange")

	base := scorer.Score(record, nil).Score

	// An extreme positive hint is capped at MaxAIBonus.
	scored := scorer.Score(record, &entity.AIHint{SentimentHint: 1, SummaryBonus: 5})
	assert.InDelta(t, base+p.MaxAIBonus, scored.Score, 1e-9)

	// An extreme negative hint is capped symmetrically.
	scored = scorer.Score(record, &entity.AIHint{SentimentHint: -1, SummaryBonus: -5})
	assert.InDelta(t, base-p.MaxAIBonus, scored.Score, 1e-9)

	// A moderate hint passes through unclamped.
	scored = scorer.Score(record, &entity.AIHint{SentimentHint: 0.5})
	assert.InDelta(t, base+0.5*p.AIHintWeight, scored.Score, 1e-9)
}

func TestScoreRecencyDecay(t *testing.T) {
	scorer := NewScorer(testPolicy(), fixedNow)

	fresh := newsRecord("quiet session on the exchange")
	freshScore := scorer.Score(fresh, nil).Score

	// Within the half-life nothing decays.
	within := fresh
	at := testNow.Add(-11 * time.Hour)
	within.PublishedAt = &at
	assert.InDelta(t, freshScore, scorer.Score(within, nil).Score, 1e-9)

	// At twice the half-life the decay reaches its cap of half the score.
	old := fresh
	at = testNow.Add(-24 * time.Hour)
	old.PublishedAt = &at
	assert.InDelta(t, freshScore*0.5, scorer.Score(old, nil).Score, 1e-9)

	// Far beyond, the cap still holds.
	ancient := fresh
	at = testNow.Add(-30 * 24 * time.Hour)
	ancient.PublishedAt = &at
	assert.InDelta(t, freshScore*0.5, scorer.Score(ancient, nil).Score, 1e-9)

	// Records without a timestamp are not decayed.
	undated := fresh
	undated.PublishedAt = nil
	assert.InDelta(t, freshScore, scorer.Score(undated, nil).Score, 1e-9)
}

func TestScoreNeverNegative(t *testing.T) {
	p := testPolicy()
	p.BaseScores = map[string]float64{"domestic_news": 0.01}
	scorer := NewScorer(p, fixedNow)

	scored := scorer.Score(newsRecord("quiet session"), &entity.AIHint{SentimentHint: -1, SummaryBonus: -5})
	assert.GreaterOrEqual(t, scored.Score, 0.0)
}

func TestTierBoundariesInclusive(t *testing.T) {
	p := testPolicy()
	p.KeywordTables = nil
	p.RecencyHalfLife = 0
	scorer := NewScorer(p, fixedNow)

	testCases := []struct {
		base     float64
		expected entity.Tier
	}{
		{0.8, entity.TierCritical},
		{0.79, entity.TierHigh},
		{0.5, entity.TierHigh},
		{0.49, entity.TierMedium},
		{0.25, entity.TierMedium},
		{0.24, entity.TierLow},
	}
	for _, tc := range testCases {
		p.BaseScores = map[string]float64{"domestic_news": tc.base}
		scored := scorer.Score(newsRecord("plain"), nil)
		assert.Equal(t, tc.expected, scored.Tier, "score %.2f", tc.base)
	}
}

func TestScoreBatchAttachesHintsByKey(t *testing.T) {
	scorer := NewScorer(testPolicy(), fixedNow)

	hinted := newsRecord("quiet session one")
	plain := newsRecord("quiet session two")
	key, _ := hinted.DedupKey()

	scored := scorer.ScoreBatch(
		[]entity.Record{hinted, plain},
		map[string]entity.AIHint{key: {SentimentHint: 1, SummaryBonus: 5}},
	)
	require.Len(t, scored, 2)
	assert.Greater(t, scored[0].Score, scored[1].Score)
}

func TestRankLessDeterministicOrdering(t *testing.T) {
	early := testNow.Add(-3 * time.Hour)
	late := testNow.Add(-1 * time.Hour)

	records := []entity.ScoredRecord{
		{Record: entity.Record{Title: "nil timestamp"}, Score: 0.5},
		{Record: entity.Record{Title: "late", PublishedAt: &late}, Score: 0.5},
		{Record: entity.Record{Title: "high score"}, Score: 0.9},
		{Record: entity.Record{Title: "priority", PublishedAt: &late}, Score: 0.5, PriorityAuthor: true},
		{Record: entity.Record{Title: "early", PublishedAt: &early}, Score: 0.5},
	}

	sort.SliceStable(records, func(i, j int) bool { return rankLess(records[i], records[j]) })

	titles := make([]string, 0, len(records))
	for _, r := range records {
		titles = append(titles, r.Record.Title)
	}
	assert.Equal(t, []string{"high score", "priority", "early", "late", "nil timestamp"}, titles)
}
