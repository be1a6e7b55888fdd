package repository

import (
	"context"
	"errors"
	"fmt"

	"echofm/model"

	"gorm.io/gorm"
)

// LibraryRepository persists per-user library entries.
type LibraryRepository struct {
	db *gorm.DB
}

// NewLibraryRepository creates a library repository over the given connection.
func NewLibraryRepository(db *gorm.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

// GetByUserAndMedia returns the entry for (userID, mediaID), or nil.
func (r *LibraryRepository) GetByUserAndMedia(ctx context.Context, userID int64, mediaID string) (*model.LibraryEntry, error) {
	var entry model.LibraryEntry
	err := r.db.WithContext(ctx).
		First(&entry, "user_id = ? AND media_id = ?", userID, mediaID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find library entry: %w", err)
	}
	return &entry, nil
}

// ListByUser returns all entries of a user, newest first.
func (r *LibraryRepository) ListByUser(ctx context.Context, userID int64) ([]model.LibraryEntry, error) {
	var entries []model.LibraryEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list library entries: %w", err)
	}
	return entries, nil
}

// Create adds a new entry.
func (r *LibraryRepository) Create(ctx context.Context, entry *model.LibraryEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("create library entry: %w", err)
	}
	return nil
}

// Update persists changes to an existing entry.
func (r *LibraryRepository) Update(ctx context.Context, entry *model.LibraryEntry) error {
	if err := r.db.WithContext(ctx).Save(entry).Error; err != nil {
		return fmt.Errorf("update library entry: %w", err)
	}
	return nil
}

// Delete removes the entry for (userID, mediaID).
func (r *LibraryRepository) Delete(ctx context.Context, userID int64, mediaID string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND media_id = ?", userID, mediaID).
		Delete(&model.LibraryEntry{}).Error
	if err != nil {
		return fmt.Errorf("delete library entry: %w", err)
	}
	return nil
}

// RatingStats computes the rating aggregate for a media record across all
// users. Entries without a rating are excluded.
func (r *LibraryRepository) RatingStats(ctx context.Context, mediaID string) (count int, avg float64, err error) {
	var row struct {
		Count int
		Avg   *float64
	}
	err = r.db.WithContext(ctx).
		Model(&model.LibraryEntry{}).
		Select("COUNT(rating) AS count, AVG(rating) AS avg").
		Where("media_id = ? AND rating IS NOT NULL", mediaID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, fmt.Errorf("rating stats %s: %w", mediaID, err)
	}
	if row.Avg != nil {
		avg = *row.Avg
	}
	return row.Count, avg, nil
}
