package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang-market-briefing/internal/entity"
	"golang-market-briefing/pkg/logger"
	"golang-market-briefing/pkg/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/mauidude/go-readability"
	"github.com/mmcdole/gofeed"
)

const maxExcerptLen = 500

// rssCollector polls one RSS/Atom feed and emits normalized records for a
// single source category.
type rssCollector struct {
	name         string
	url          string
	category     entity.SourceCategory
	fetchExcerpt bool
	logger       *logger.Logger
	parser       *gofeed.Parser
	client       *http.Client
}

// NewRSSCollector creates a Collector reading the given feed URL. When
// fetchExcerpt is set the collector downloads each article and extracts a
// plain-text excerpt for keyword matching.
func NewRSSCollector(name, url string, category entity.SourceCategory, fetchExcerpt bool, log *logger.Logger) Collector {
	return &rssCollector{
		name:         name,
		url:          url,
		category:     category,
		fetchExcerpt: fetchExcerpt,
		logger:       log,
		parser:       gofeed.NewParser(),
		client:       &http.Client{Timeout: 20 * time.Second},
	}
}

func (c *rssCollector) Name() string {
	return c.name
}

func (c *rssCollector) Category() entity.SourceCategory {
	return c.category
}

// Collect fetches and normalizes the feed. Items without a link are dropped;
// excerpt extraction failures leave the feed description in place.
func (c *rssCollector) Collect(ctx context.Context) ([]entity.Record, error) {
	feed, err := c.parser.ParseURLWithContext(c.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", c.name, err)
	}

	records := make([]entity.Record, 0, len(feed.Items))
	for _, item := range feed.Items {
		if !utils.ShouldContinue(ctx) {
			break
		}
		if item.Link == "" {
			continue
		}

		record := entity.Record{
			SourceCategory: c.category,
			Title:          utils.CleanToValidUTF8(item.Title),
			URL:            item.Link,
			PublishedAt:    item.PublishedParsed,
			Excerpt:        truncateExcerpt(utils.CleanToValidUTF8(item.Description)),
			ExtraData:      map[string]interface{}{"feed": c.name},
		}
		if item.Author != nil {
			record.AuthorOrChannel = item.Author.Name
		}

		if c.fetchExcerpt {
			if excerpt, err := c.extractExcerpt(ctx, item.Link); err != nil {
				c.logger.Debug("Failed to extract excerpt", logger.ErrorField(err), logger.StringField("url", item.Link))
			} else if excerpt != "" {
				record.Excerpt = excerpt
			}
		}

		records = append(records, record)
	}

	c.logger.Info("Collected feed",
		logger.StringField("feed", c.name),
		logger.IntField("items", len(records)),
	)
	return records, nil
}

// extractExcerpt downloads the article and reduces it to readable text.
func (c *rssCollector) extractExcerpt(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch article, status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read article body: %w", err)
	}

	doc, err := readability.NewDocument(string(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse article: %w", err)
	}

	htmlDoc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(doc.Content())))
	if err != nil {
		return "", fmt.Errorf("failed to parse article content: %w", err)
	}

	text := strings.Join(strings.Fields(htmlDoc.Text()), " ")
	return truncateExcerpt(utils.CleanToValidUTF8(text)), nil
}

func truncateExcerpt(s string) string {
	return cutOnRuneBoundary(strings.TrimSpace(s), maxExcerptLen)
}

// cutOnRuneBoundary shortens s to at most limit bytes without splitting a
// multibyte rune, so truncation never produces invalid UTF-8.
func cutOnRuneBoundary(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	if limit <= 0 {
		return ""
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
