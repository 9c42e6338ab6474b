package dto

import (
	"time"

	"golang-market-briefing/internal/entity"
)

// RunSummary describes the outcome of one briefing run for the HTTP API and
// logs. It carries counts and classifications, not the records themselves.
type RunSummary struct {
	Variant        string            `json:"variant"`
	RanAt          time.Time         `json:"ran_at"`
	Delivered      bool              `json:"delivered"`
	TotalItems     int               `json:"total_items"`
	CategoryCounts map[string]int    `json:"category_counts,omitempty"`
	Signals        map[string]string `json:"signals,omitempty"`
	Duplicates     int               `json:"duplicates"`
	SkippedInvalid int               `json:"skipped_invalid"`
	CollectorError []string          `json:"collector_errors,omitempty"`
}

// TriggerRunRequest selects the variant for a manually triggered run.
type TriggerRunRequest struct {
	Variant string `json:"variant"`
}

// ArchiveResponse wraps archive entries for the recap endpoint.
type ArchiveResponse struct {
	Since   time.Time                   `json:"since"`
	Total   int                         `json:"total"`
	Entries []entity.DigestArchiveEntry `json:"entries"`
}
