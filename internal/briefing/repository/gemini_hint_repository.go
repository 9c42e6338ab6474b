package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang-market-briefing/internal/briefing/dto"
	"golang-market-briefing/internal/entity"
	"golang-market-briefing/pkg/config"
	"golang-market-briefing/pkg/logger"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const hintPromptHeader = `You are assisting a financial news triage system.
For each numbered item below, estimate how the news leans for investors and
how much additional weight a human editor would give it.

Respond with ONLY a JSON array, one object per item:
[{"index": 1, "sentiment_hint": 0.0, "summary_bonus": 0.0}]

Rules:
- sentiment_hint is between -1.0 (strongly bearish) and 1.0 (strongly bullish).
- summary_bonus is between 0.0 and 0.3; reserve values above 0.2 for items
  with immediate market impact.
- Include every index exactly once.

Items:
`

type geminiHintRepository struct {
	cfg            config.Gemini
	logger         *logger.Logger
	genAiClient    *genai.Client
	requestLimiter *rate.Limiter
	hintCache      *cache.Cache
}

// NewGeminiHintRepository creates a HintProvider backed by the Gemini API.
// Responses are memoized per dedup key so repeated runs within the cache TTL
// do not re-query the model for the same item.
func NewGeminiHintRepository(cfg config.Gemini, log *logger.Logger, genAiClient *genai.Client) HintProvider {
	maxPerMinute := cfg.MaxRequestPerMinute
	if maxPerMinute <= 0 {
		maxPerMinute = 1
	}
	secondsPerRequest := time.Minute / time.Duration(maxPerMinute)
	return &geminiHintRepository{
		cfg:            cfg,
		logger:         log,
		genAiClient:    genAiClient,
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		hintCache:      cache.New(6*time.Hour, 30*time.Minute),
	}
}

// Hints returns bounded sentiment/importance hints keyed by dedup key. The
// result may be partial; any failure degrades to the hints already cached.
func (r *geminiHintRepository) Hints(ctx context.Context, requests []HintRequest) (map[string]entity.AIHint, error) {
	hints := make(map[string]entity.AIHint, len(requests))

	var missing []HintRequest
	for _, req := range requests {
		if cached, ok := r.hintCache.Get(req.Key); ok {
			hints[req.Key] = cached.(entity.AIHint)
			continue
		}
		missing = append(missing, req)
	}
	if len(missing) == 0 {
		return hints, nil
	}

	if err := r.requestLimiter.Wait(ctx); err != nil {
		return hints, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	prompt := buildHintPrompt(missing)
	resp, err := r.genAiClient.Models.GenerateContent(ctx, r.cfg.Model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return hints, fmt.Errorf("failed to generate hints: %w", err)
	}

	items, err := parseHintResponse(resp.Text())
	if err != nil {
		return hints, err
	}

	for _, item := range items {
		if item.Index < 1 || item.Index > len(missing) {
			r.logger.Warn("Hint response references unknown item", logger.IntField("index", item.Index))
			continue
		}
		hint := entity.AIHint{
			SentimentHint: clamp(item.SentimentHint, -1, 1),
			SummaryBonus:  item.SummaryBonus,
		}
		key := missing[item.Index-1].Key
		hints[key] = hint
		r.hintCache.SetDefault(key, hint)
	}

	return hints, nil
}

func buildHintPrompt(requests []HintRequest) string {
	var b strings.Builder
	b.WriteString(hintPromptHeader)
	for i, req := range requests {
		rec := req.Record
		b.WriteString(fmt.Sprintf("%d. [%s] %s", i+1, rec.SourceCategory, rec.Title))
		if rec.Excerpt != "" {
			b.WriteString(" - " + cutOnRuneBoundary(rec.Excerpt, 200))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func parseHintResponse(text string) ([]dto.HintResponseItem, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var items []dto.HintResponseItem
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &items); err != nil {
		return nil, fmt.Errorf("failed to parse hint response: %w", err)
	}
	return items, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NoopHintProvider returns no hints. Used when the AI client is disabled.
type NoopHintProvider struct{}

// Hints implements HintProvider.
func (NoopHintProvider) Hints(_ context.Context, _ []HintRequest) (map[string]entity.AIHint, error) {
	return nil, nil
}
