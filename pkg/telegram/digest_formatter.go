package telegram

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang-market-briefing/internal/entity"
)

// Telegram rejects messages longer than 4096 characters; leave headroom.
const maxMessageLen = 4090

var categoryHeaders = map[entity.SourceCategory]string{
	entity.SourceCategoryDomesticNews:      "🇮🇩 *Domestic News*",
	entity.SourceCategoryInternationalNews: "🌍 *International News*",
	entity.SourceCategoryReport:            "📊 *Analyst Reports*",
	entity.SourceCategoryVideo:             "🎬 *Videos*",
}

var categoryOrder = []entity.SourceCategory{
	entity.SourceCategoryDomesticNews,
	entity.SourceCategoryInternationalNews,
	entity.SourceCategoryReport,
	entity.SourceCategoryVideo,
}

var signalEmoji = map[entity.Signal]string{
	entity.SignalStrongBullish: "🚀",
	entity.SignalBullish:       "📈",
	entity.SignalNeutral:       "➡️",
	entity.SignalBearish:       "📉",
	entity.SignalStrongBearish: "💥",
}

var tierEmoji = map[entity.Tier]string{
	entity.TierCritical: "🔴",
	entity.TierHigh:     "🟠",
	entity.TierMedium:   "🟡",
	entity.TierLow:      "⚪",
}

// FormatDigest renders the digest into one or more Markdown messages, each
// within Telegram's length limit. The first message carries the header and
// the signal summary; category sections follow in a fixed order.
func FormatDigest(variant string, ranAt time.Time, digest map[entity.SourceCategory][]entity.ScoredRecord, signals map[string]entity.Signal) []string {
	var messages []string
	var current strings.Builder
	part := 1

	startNewPart := func() {
		current.Reset()
		if part == 1 {
			current.WriteString(fmt.Sprintf("📰 *Market Briefing — %s* 📰\n%s\n\n", variant, ranAt.Format("2006-01-02 15:04")))
			current.WriteString(formatSignals(signals))
		} else {
			current.WriteString(fmt.Sprintf("---*Market Briefing %s, part %d*---\n\n", variant, part))
		}
	}
	startNewPart()

	appendEntry := func(entry string) {
		if current.Len()+len(entry) > maxMessageLen {
			// Never start a new part just for a blank separator.
			if strings.TrimSpace(entry) == "" {
				return
			}
			messages = append(messages, current.String())
			part++
			startNewPart()
		}
		// A single pathological entry can exceed the limit on its own; cap it
		// to the room left in the fresh part rather than exceed Telegram's cap.
		if room := maxMessageLen - current.Len(); len(entry) > room {
			entry = truncateEntry(entry, room)
		}
		current.WriteString(entry)
	}

	for _, cat := range categoryOrder {
		records := digest[cat]
		if len(records) == 0 {
			continue
		}
		appendEntry(fmt.Sprintf("%s (%d)\n", categoryHeaders[cat], len(records)))
		for _, record := range records {
			appendEntry(formatRecord(record))
		}
		appendEntry("\n")
	}

	messages = append(messages, current.String())
	return messages
}

func formatRecord(record entity.ScoredRecord) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s [%s](%s)", tierEmoji[record.Tier], escapeMarkdown(record.Record.Title), record.Record.URL))
	if record.Record.AuthorOrChannel != "" {
		b.WriteString(fmt.Sprintf(" — %s", escapeMarkdown(record.Record.AuthorOrChannel)))
	}
	b.WriteString("\n")
	return b.String()
}

func formatSignals(signals map[string]entity.Signal) string {
	if len(signals) == 0 {
		return ""
	}

	var b strings.Builder
	if overall, ok := signals[entity.ScopeOverall]; ok {
		b.WriteString(fmt.Sprintf("%s *Market:* %s\n", signalEmoji[overall], overall))
	}

	sectors := make([]string, 0, len(signals))
	for scope := range signals {
		if scope != entity.ScopeOverall {
			sectors = append(sectors, scope)
		}
	}
	sort.Strings(sectors)
	for _, sector := range sectors {
		b.WriteString(fmt.Sprintf("%s %s: %s\n", signalEmoji[signals[sector]], sector, signals[sector]))
	}
	b.WriteString("\n")
	return b.String()
}

// truncateEntry shortens an entry to at most limit bytes on a rune boundary
// and keeps the trailing newline that separates digest entries.
func truncateEntry(s string, limit int) string {
	if limit <= 1 {
		return ""
	}
	cut := limit - 1
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n"
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer("[", "(", "]", ")", "*", "", "_", " ", "`", "")
	return replacer.Replace(s)
}
