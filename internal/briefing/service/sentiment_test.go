package service

import (
	"testing"

	"golang-market-briefing/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func polarityRecord(p entity.Polarity, sectors ...string) entity.ScoredRecord {
	return entity.ScoredRecord{Polarity: p, Sectors: sectors}
}

func TestAggregateEmptyInputIsNeutral(t *testing.T) {
	signals := NewAggregator().Aggregate(nil)

	require.Len(t, signals, 1)
	assert.Equal(t, entity.SignalNeutral, signals[entity.ScopeOverall])
}

func TestAggregateOverallSignal(t *testing.T) {
	var records []entity.ScoredRecord
	for i := 0; i < 8; i++ {
		records = append(records, polarityRecord(entity.PolarityBullish))
	}
	for i := 0; i < 2; i++ {
		records = append(records, polarityRecord(entity.PolarityBearish))
	}

	signals := NewAggregator().Aggregate(records)
	assert.Equal(t, entity.SignalStrongBullish, signals[entity.ScopeOverall])
}

func TestAggregateBalancedIsNeutral(t *testing.T) {
	var records []entity.ScoredRecord
	for i := 0; i < 5; i++ {
		records = append(records,
			polarityRecord(entity.PolarityBullish),
			polarityRecord(entity.PolarityBearish),
		)
	}

	signals := NewAggregator().Aggregate(records)
	assert.Equal(t, entity.SignalNeutral, signals[entity.ScopeOverall])
}

func TestAggregatePerSectorScopes(t *testing.T) {
	records := []entity.ScoredRecord{
		polarityRecord(entity.PolarityBullish, "banking"),
		polarityRecord(entity.PolarityBullish, "banking"),
		polarityRecord(entity.PolarityBearish, "energy"),
		polarityRecord(entity.PolarityBearish, "energy"),
		polarityRecord(entity.PolarityNeutral),
	}

	signals := NewAggregator().Aggregate(records)

	assert.Equal(t, entity.SignalStrongBullish, signals["banking"])
	assert.Equal(t, entity.SignalStrongBearish, signals["energy"])
	// 2 bullish, 2 bearish, 1 neutral overall.
	assert.Equal(t, entity.SignalNeutral, signals[entity.ScopeOverall])
}

func TestAggregateRecordCountsOncePerScope(t *testing.T) {
	// A record in two sectors contributes one polarity to each, and one to
	// the overall bucket.
	records := []entity.ScoredRecord{
		polarityRecord(entity.PolarityBullish, "banking", "energy"),
	}

	signals := NewAggregator().Aggregate(records)
	assert.Equal(t, entity.SignalStrongBullish, signals["banking"])
	assert.Equal(t, entity.SignalStrongBullish, signals["energy"])
	assert.Equal(t, entity.SignalStrongBullish, signals[entity.ScopeOverall])
}

func TestSortedScopes(t *testing.T) {
	signals := map[string]entity.Signal{
		"energy":            entity.SignalBearish,
		entity.ScopeOverall: entity.SignalNeutral,
		"banking":           entity.SignalBullish,
	}

	assert.Equal(t, []string{entity.ScopeOverall, "banking", "energy"}, SortedScopes(signals))
}
