package repository

import (
	"context"
	"errors"
	"fmt"

	"echofm/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MediaRepository persists catalog records in a single table keyed by the
// upstream id. Inserts never overwrite: when two writers race on the same
// id, the primary key constraint lets one win and the re-read surfaces the
// winning row to the loser.
type MediaRepository struct {
	db *gorm.DB
}

// NewMediaRepository creates a media repository over the given connection.
func NewMediaRepository(db *gorm.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// FindByID returns the record with the given id, or nil when absent.
func (r *MediaRepository) FindByID(ctx context.Context, id string) (*model.Media, error) {
	var media model.Media
	err := r.db.WithContext(ctx).First(&media, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find media %s: %w", id, err)
	}
	return &media, nil
}

// FindAllByIDIn returns the existing records among ids. Missing ids are
// silently omitted; order is whatever the database returns.
func (r *MediaRepository) FindAllByIDIn(ctx context.Context, ids []string) ([]model.Media, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var media []model.Media
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&media).Error; err != nil {
		return nil, fmt.Errorf("find media batch: %w", err)
	}
	return media, nil
}

// SaveAll inserts the given records, skipping ids that already exist, and
// returns the post-write state of every id in the batch.
func (r *MediaRepository) SaveAll(ctx context.Context, records []model.Media) ([]model.Media, error) {
	if len(records) == 0 {
		return nil, nil
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&records).Error
	if err != nil {
		return nil, fmt.Errorf("save media batch: %w", err)
	}

	ids := make([]string, len(records))
	for i, m := range records {
		ids[i] = m.ID
	}
	return r.FindAllByIDIn(ctx, ids)
}

// Save inserts a single record unless its id is already cached, and returns
// the stored row either way.
func (r *MediaRepository) Save(ctx context.Context, record model.Media) (model.Media, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record).Error
	if err != nil {
		return model.Media{}, fmt.Errorf("save media %s: %w", record.ID, err)
	}

	saved, err := r.FindByID(ctx, record.ID)
	if err != nil {
		return model.Media{}, err
	}
	if saved == nil {
		return model.Media{}, fmt.Errorf("media %s missing after save", record.ID)
	}
	return *saved, nil
}

// UpdateRatingStats writes the rating aggregates for a media row. avg must
// be nil exactly when count is zero.
func (r *MediaRepository) UpdateRatingStats(ctx context.Context, id string, avg *float64, count int) error {
	err := r.db.WithContext(ctx).
		Model(&model.Media{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"average_rating": avg,
			"rating_count":   count,
		}).Error
	if err != nil {
		return fmt.Errorf("update rating stats %s: %w", id, err)
	}
	return nil
}
