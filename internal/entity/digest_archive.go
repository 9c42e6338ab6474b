package entity

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// DigestArchiveEntry records one delivered digest item. The archive is a
// delivery log used by the weekly recap, not pipeline state; the dedup cache
// alone decides what counts as already seen.
type DigestArchiveEntry struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Variant        string         `gorm:"not null" json:"variant"`
	SourceCategory string         `gorm:"not null" json:"source_category"`
	Title          string         `gorm:"not null" json:"title"`
	URL            string         `gorm:"not null" json:"url"`
	DedupKey       string         `gorm:"not null;index" json:"dedup_key"`
	Score          float64        `json:"score"`
	Tier           string         `json:"tier"`
	SignalTags     pq.StringArray `gorm:"type:text[]" json:"signal_tags"`
	ExtraData      datatypes.JSON `json:"extra_data"`
	PublishedAt    *time.Time     `json:"published_at,omitempty"`
	DeliveredAt    time.Time      `gorm:"not null;index" json:"delivered_at"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for the DigestArchiveEntry model.
func (DigestArchiveEntry) TableName() string {
	return "digest_archive"
}
