package dto

// HintResponseItem is one element of the JSON array the hint model returns.
// The index refers to the position of the item in the prompt, starting at 1.
type HintResponseItem struct {
	Index         int     `json:"index"`
	SentimentHint float64 `json:"sentiment_hint"`
	SummaryBonus  float64 `json:"summary_bonus"`
}
