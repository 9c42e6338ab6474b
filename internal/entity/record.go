package entity

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"
	"time"
)

// SourceCategory identifies which collector produced a record.
type SourceCategory string

const (
	SourceCategoryDomesticNews      SourceCategory = "domestic_news"
	SourceCategoryInternationalNews SourceCategory = "international_news"
	SourceCategoryReport            SourceCategory = "report"
	SourceCategoryVideo             SourceCategory = "video"
)

// NewsCategories are the categories that participate in the domestic/international
// ratio split and in sentiment aggregation.
var NewsCategories = []SourceCategory{
	SourceCategoryDomesticNews,
	SourceCategoryInternationalNews,
}

// IsNews reports whether the category is one of the news categories.
func (c SourceCategory) IsNews() bool {
	return c == SourceCategoryDomesticNews || c == SourceCategoryInternationalNews
}

// Record is one normalized content item emitted by a collector. Records are
// never mutated downstream; scoring wraps them in a ScoredRecord instead.
type Record struct {
	SourceCategory  SourceCategory         `json:"source_category"`
	Title           string                 `json:"title"`
	URL             string                 `json:"url"`
	PublishedAt     *time.Time             `json:"published_at,omitempty"`
	AuthorOrChannel string                 `json:"author_or_channel,omitempty"`
	Excerpt         string                 `json:"excerpt,omitempty"`
	ExtraData       map[string]interface{} `json:"extra_data,omitempty"`
}

// Valid reports whether the record carries the minimum fields the pipeline
// needs. Invalid records are skipped and counted, never fatal.
func (r Record) Valid() bool {
	return strings.TrimSpace(r.Title) != "" && strings.TrimSpace(r.URL) != ""
}

// trackingParams are query parameters that vary across fetches of the same
// item and must not influence the dedup key.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"fbclid":       true,
	"gclid":        true,
	"igshid":       true,
	"ref":          true,
	"cmpid":        true,
}

// DedupKey derives the deterministic key used to detect previously delivered
// items. The key is an md5 hex digest of the normalized URL. When the URL is
// empty the key falls back to normalized title + source category; degraded is
// true in that case so callers can flag it in logs.
func (r Record) DedupKey() (key string, degraded bool) {
	basis := normalizeURL(r.URL)
	if basis == "" {
		basis = strings.ToLower(strings.TrimSpace(r.Title)) + "|" + string(r.SourceCategory)
		degraded = true
	}
	sum := md5.Sum([]byte(basis))
	return hex.EncodeToString(sum[:]), degraded
}

// normalizeURL lower-cases the URL, strips tracking query parameters and the
// fragment, and trims a trailing slash so case/query variants of the same
// item map to the same key.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(strings.ToLower(raw))
	if err != nil {
		return strings.ToLower(raw)
	}

	q := u.Query()
	for param := range q {
		if trackingParams[param] {
			q.Del(param)
		}
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")

	return u.String()
}
