package repository

import (
	"context"
	"time"

	"golang-market-briefing/internal/entity"

	"gorm.io/gorm"
)

type digestArchiveRepository struct {
	db *gorm.DB
}

// NewDigestArchiveRepository creates a postgres-backed archive of delivered
// digest items.
func NewDigestArchiveRepository(db *gorm.DB) DigestArchiveRepository {
	return &digestArchiveRepository{db: db}
}

// CreateBatch stores the delivered entries in one insert.
func (r *digestArchiveRepository) CreateBatch(ctx context.Context, entries []entity.DigestArchiveEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

// FindDeliveredSince returns archive entries delivered at or after since,
// newest first. Used to compose the weekly recap.
func (r *digestArchiveRepository) FindDeliveredSince(ctx context.Context, since time.Time) ([]entity.DigestArchiveEntry, error) {
	var entries []entity.DigestArchiveEntry
	err := r.db.WithContext(ctx).
		Where("delivered_at >= ?", since).
		Order("delivered_at DESC, score DESC").
		Find(&entries).Error
	return entries, err
}
