// Package library implements the per-user library: ratings, comments and
// favorites over cached catalog entries. Rating mutations flow back into the
// media row's aggregates through the store API, a one-way update.
package library

import (
	"context"
	"errors"
	"fmt"

	"echofm/core/catalog"
	"echofm/logger"
	"echofm/model"
	"echofm/repository"

	"github.com/google/uuid"
)

// ErrRatingOutOfRange rejects ratings outside [0, 10]. Callers map it to a
// client error.
var ErrRatingOutOfRange = errors.New("rating out of range")

// Service manages library entries for authenticated users.
type Service struct {
	entries *repository.LibraryRepository
	media   *repository.MediaRepository
	resolve *catalog.Service
}

// NewService wires the library service.
func NewService(entries *repository.LibraryRepository, media *repository.MediaRepository, resolver *catalog.Service) *Service {
	return &Service{entries: entries, media: media, resolve: resolver}
}

// EntryInput carries the mutable fields of a library entry. Nil fields are
// left untouched on update.
type EntryInput struct {
	Rating   *int    `json:"rating,omitempty"`
	Comment  *string `json:"comment,omitempty"`
	Favorite *bool   `json:"favorite,omitempty"`
}

// AddOrUpdate upserts the caller's entry for mediaID. The media record is
// resolved through the catalog first so every library entry points at a
// cached row.
func (s *Service) AddOrUpdate(ctx context.Context, userID int64, mediaID string, input EntryInput) (*model.LibraryEntry, error) {
	if input.Rating != nil && (*input.Rating < 0 || *input.Rating > 10) {
		return nil, fmt.Errorf("rating %d: %w", *input.Rating, ErrRatingOutOfRange)
	}

	media, err := s.resolve.Resolve(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	if media == nil {
		return nil, nil
	}

	entry, err := s.entries.GetByUserAndMedia(ctx, userID, mediaID)
	if err != nil {
		return nil, err
	}

	ratingChanged := false
	if entry == nil {
		entry = &model.LibraryEntry{
			ID:      uuid.NewString(),
			UserID:  userID,
			MediaID: mediaID,
		}
		applyInput(entry, input)
		ratingChanged = input.Rating != nil
		if err := s.entries.Create(ctx, entry); err != nil {
			return nil, err
		}
	} else {
		ratingChanged = input.Rating != nil && (entry.Rating == nil || *entry.Rating != *input.Rating)
		applyInput(entry, input)
		if err := s.entries.Update(ctx, entry); err != nil {
			return nil, err
		}
	}

	if ratingChanged {
		if err := s.refreshRatingStats(ctx, mediaID); err != nil {
			// The entry itself is saved; a stale aggregate corrects itself
			// on the next rating write.
			logger.Warn("Failed to refresh rating aggregates",
				logger.String("mediaId", mediaID), logger.ErrorField(err))
		}
	}

	return entry, nil
}

// List returns the caller's library.
func (s *Service) List(ctx context.Context, userID int64) ([]model.LibraryEntry, error) {
	return s.entries.ListByUser(ctx, userID)
}

// Remove deletes the caller's entry for mediaID and refreshes the media
// row's rating aggregates.
func (s *Service) Remove(ctx context.Context, userID int64, mediaID string) error {
	entry, err := s.entries.GetByUserAndMedia(ctx, userID, mediaID)
	if err != nil {
		return err
	}
	if entry == nil {
		return nil
	}

	if err := s.entries.Delete(ctx, userID, mediaID); err != nil {
		return err
	}

	if entry.Rating != nil {
		if err := s.refreshRatingStats(ctx, mediaID); err != nil {
			logger.Warn("Failed to refresh rating aggregates after delete",
				logger.String("mediaId", mediaID), logger.ErrorField(err))
		}
	}
	return nil
}

// refreshRatingStats recomputes the media row's aggregates from all rated
// entries. averageRating is set iff at least one rating exists.
func (s *Service) refreshRatingStats(ctx context.Context, mediaID string) error {
	count, avg, err := s.entries.RatingStats(ctx, mediaID)
	if err != nil {
		return err
	}

	var avgPtr *float64
	if count > 0 {
		avgPtr = &avg
	}
	return s.media.UpdateRatingStats(ctx, mediaID, avgPtr, count)
}

func applyInput(entry *model.LibraryEntry, input EntryInput) {
	if input.Rating != nil {
		entry.Rating = input.Rating
	}
	if input.Comment != nil {
		entry.Comment = input.Comment
	}
	if input.Favorite != nil {
		entry.Favorite = *input.Favorite
	}
}
