package service

import (
	"fmt"
	"testing"

	"golang-market-briefing/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scoredBatch builds n scored records for a category with strictly descending
// scores so ranking order is unambiguous.
func scoredBatch(cat entity.SourceCategory, n int, topScore float64) []entity.ScoredRecord {
	records := make([]entity.ScoredRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, entity.ScoredRecord{
			Record: entity.Record{
				SourceCategory: cat,
				Title:          fmt.Sprintf("%s-%d", cat, i),
				URL:            fmt.Sprintf("https://example.com/%s/%d", cat, i),
			},
			DedupKey: fmt.Sprintf("%s-%d", cat, i),
			Score:    topScore - float64(i)*0.01,
		})
	}
	return records
}

func TestSelectNewsRatioSplit(t *testing.T) {
	selector := NewSelector(testPolicy())

	var input []entity.ScoredRecord
	input = append(input, scoredBatch(entity.SourceCategoryDomesticNews, 30, 0.9)...)
	input = append(input, scoredBatch(entity.SourceCategoryInternationalNews, 30, 0.9)...)

	digest := selector.Select(input)

	// 20 * 0.7 = 14 domestic, 6 international.
	assert.Len(t, digest[entity.SourceCategoryDomesticNews], 14)
	assert.Len(t, digest[entity.SourceCategoryInternationalNews], 6)

	// The partitions keep their highest-scored items in rank order.
	require.NotEmpty(t, digest[entity.SourceCategoryDomesticNews])
	assert.Equal(t, "domestic_news-0", digest[entity.SourceCategoryDomesticNews][0].DedupKey)
	assert.Equal(t, "international_news-0", digest[entity.SourceCategoryInternationalNews][0].DedupKey)
}

func TestSelectNewsBackfillFromInternational(t *testing.T) {
	selector := NewSelector(testPolicy())

	var input []entity.ScoredRecord
	input = append(input, scoredBatch(entity.SourceCategoryDomesticNews, 10, 0.9)...)
	input = append(input, scoredBatch(entity.SourceCategoryInternationalNews, 30, 0.9)...)

	digest := selector.Select(input)

	// Domestic is 4 short of its 14; international absorbs the shortfall.
	assert.Len(t, digest[entity.SourceCategoryDomesticNews], 10)
	assert.Len(t, digest[entity.SourceCategoryInternationalNews], 10)
}

func TestSelectNewsBackfillFromDomestic(t *testing.T) {
	selector := NewSelector(testPolicy())

	var input []entity.ScoredRecord
	input = append(input, scoredBatch(entity.SourceCategoryDomesticNews, 30, 0.9)...)
	input = append(input, scoredBatch(entity.SourceCategoryInternationalNews, 2, 0.9)...)

	digest := selector.Select(input)

	assert.Len(t, digest[entity.SourceCategoryDomesticNews], 18)
	assert.Len(t, digest[entity.SourceCategoryInternationalNews], 2)
}

func TestSelectNewsGenuineScarcity(t *testing.T) {
	selector := NewSelector(testPolicy())

	var input []entity.ScoredRecord
	input = append(input, scoredBatch(entity.SourceCategoryDomesticNews, 3, 0.9)...)
	input = append(input, scoredBatch(entity.SourceCategoryInternationalNews, 4, 0.9)...)

	digest := selector.Select(input)

	// Fewer items than quota overall; everything is kept, nothing is padded.
	assert.Len(t, digest[entity.SourceCategoryDomesticNews], 3)
	assert.Len(t, digest[entity.SourceCategoryInternationalNews], 4)
}

func TestSelectNewsRemainderTieGoesDomestic(t *testing.T) {
	p := testPolicy()
	p.NewsQuota = 10
	p.DomesticRatio = 0.75 // 7.5 vs 2.5: equal fractions, domestic wins the unit
	selector := NewSelector(p)

	var input []entity.ScoredRecord
	input = append(input, scoredBatch(entity.SourceCategoryDomesticNews, 20, 0.9)...)
	input = append(input, scoredBatch(entity.SourceCategoryInternationalNews, 20, 0.9)...)

	digest := selector.Select(input)

	assert.Len(t, digest[entity.SourceCategoryDomesticNews], 8)
	assert.Len(t, digest[entity.SourceCategoryInternationalNews], 2)
}

func TestSelectReportsAndVideosIndependentTopN(t *testing.T) {
	selector := NewSelector(testPolicy())

	var input []entity.ScoredRecord
	input = append(input, scoredBatch(entity.SourceCategoryReport, 9, 0.9)...)
	input = append(input, scoredBatch(entity.SourceCategoryVideo, 1, 0.9)...)

	digest := selector.Select(input)

	assert.Len(t, digest[entity.SourceCategoryReport], 5)
	assert.Len(t, digest[entity.SourceCategoryVideo], 1)
	assert.Equal(t, "report-0", digest[entity.SourceCategoryReport][0].DedupKey)
}

func TestSelectSkipsDisabledCategories(t *testing.T) {
	p := testPolicy()
	p.EnabledCategories = []string{"domestic_news", "international_news"}
	selector := NewSelector(p)

	var input []entity.ScoredRecord
	input = append(input, scoredBatch(entity.SourceCategoryDomesticNews, 5, 0.9)...)
	input = append(input, scoredBatch(entity.SourceCategoryReport, 5, 0.9)...)
	input = append(input, scoredBatch(entity.SourceCategoryVideo, 5, 0.9)...)

	digest := selector.Select(input)

	assert.Contains(t, digest, entity.SourceCategoryDomesticNews)
	assert.NotContains(t, digest, entity.SourceCategoryReport)
	assert.NotContains(t, digest, entity.SourceCategoryVideo)
}

func TestSelectDoesNotMutateInput(t *testing.T) {
	selector := NewSelector(testPolicy())

	input := scoredBatch(entity.SourceCategoryReport, 3, 0.5)
	// Reverse so selection has to re-rank.
	input[0], input[2] = input[2], input[0]
	firstBefore := input[0].DedupKey

	selector.Select(input)

	assert.Equal(t, firstBefore, input[0].DedupKey)
}
