package repository

import (
	"strings"
	"testing"
	"unicode/utf8"

	"golang-market-briefing/internal/entity"
	"golang-market-briefing/pkg/config"
	"golang-market-briefing/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHintResponse(t *testing.T) {
	items, err := parseHintResponse(`[
		{"index": 1, "sentiment_hint": 0.8, "summary_bonus": 0.2},
		{"index": 2, "sentiment_hint": -0.4, "summary_bonus": 0.0}
	]`)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].Index)
	assert.Equal(t, 0.8, items[0].SentimentHint)
	assert.Equal(t, -0.4, items[1].SentimentHint)
}

func TestParseHintResponseStripsCodeFences(t *testing.T) {
	items, err := parseHintResponse("```json\n[{\"index\": 1, \"sentiment_hint\": 0.5, \"summary_bonus\": 0.1}]\n```")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 0.5, items[0].SentimentHint)
}

func TestParseHintResponseRejectsGarbage(t *testing.T) {
	_, err := parseHintResponse("the market looks bullish today")
	require.Error(t, err)
}

func TestBuildHintPromptNumbersItems(t *testing.T) {
	prompt := buildHintPrompt([]HintRequest{
		{Key: "k1", Record: entity.Record{SourceCategory: entity.SourceCategoryDomesticNews, Title: "first"}},
		{Key: "k2", Record: entity.Record{SourceCategory: entity.SourceCategoryReport, Title: "second", Excerpt: "details"}},
	})

	assert.Contains(t, prompt, "1. [domestic_news] first")
	assert.Contains(t, prompt, "2. [report] second - details")
}

func TestBuildHintPromptKeepsUTF8Valid(t *testing.T) {
	// An excerpt whose 200-byte cut lands inside a multibyte rune must not
	// leak invalid UTF-8 into the prompt.
	excerpt := strings.Repeat("a", 199) + "금리 인상 전망"
	prompt := buildHintPrompt([]HintRequest{
		{Key: "k1", Record: entity.Record{SourceCategory: entity.SourceCategoryDomesticNews, Title: "제목", Excerpt: excerpt}},
	})

	assert.True(t, utf8.ValidString(prompt))
	assert.NotContains(t, prompt, "�")
}

func TestNewGeminiHintRepositoryDefaultsRequestRate(t *testing.T) {
	// An unset max_request_per_minute must not crash the constructor.
	assert.NotPanics(t, func() {
		provider := NewGeminiHintRepository(config.Gemini{}, logger.NewNop(), nil)
		assert.NotNil(t, provider)
	})
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, clamp(2.5, -1, 1))
	assert.Equal(t, -1.0, clamp(-2.5, -1, 1))
	assert.Equal(t, 0.3, clamp(0.3, -1, 1))
}

func TestNoopHintProvider(t *testing.T) {
	hints, err := NoopHintProvider{}.Hints(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, hints)
}
