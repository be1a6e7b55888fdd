package catalog

import (
	"strings"
	"time"

	"echofm/model"
)

const (
	artworkSizeSmall = "100x100bb"
	artworkSizeLarge = "600x600bb"
)

// EntityFromResult converts a raw catalog record into the entity variant
// selected by its wrapperType. Returns nil when the wrapperType is unknown
// or the kind-appropriate id is missing; such records are skipped.
func EntityFromResult(r Result, now time.Time) *model.Media {
	kind, ok := KindForWrapper(r.WrapperType)
	if !ok {
		return nil
	}

	id := r.IDForKind(kind)
	if id == "" {
		return nil
	}

	media := &model.Media{
		ID:         id,
		ArtistName: defaultString(r.ArtistName, "Unknown Artist"),
		Kind:       kind,
		Genre:      optional(r.PrimaryGenreName),
		CachedAt:   now,
	}
	if r.ReleaseDate != "" {
		media.ReleaseDate = optional(r.ReleaseDate)
	}

	switch kind {
	case model.KindAlbum:
		media.Title = defaultString(r.CollectionName, "Unknown Album")
		media.ImageURL = upgradeArtworkURL(r.ArtworkURL100)
		media.ExternalURL = optional(r.CollectionViewURL)
		media.Label = optional(r.Copyright)
	case model.KindTrack:
		media.Title = defaultString(r.TrackName, "Unknown Track")
		media.ImageURL = upgradeArtworkURL(r.ArtworkURL100)
		media.ExternalURL = optional(r.TrackViewURL)
		media.ThumbnailURL = optional(r.ArtworkURL60)
		media.PreviewURL = optional(r.PreviewURL)
		media.TrackNumber = r.TrackNumber
		if r.TrackTimeMillis != nil {
			ms := int(*r.TrackTimeMillis)
			media.DurationMs = &ms
		}
	case model.KindArtist:
		media.Title = defaultString(r.ArtistName, "Unknown Artist")
		// The upstream search API carries no artwork for artists.
		media.ImageURL = nil
		media.ExternalURL = optional(r.ArtistLinkURL)
	}

	return media
}

// ResponseFromMedia converts a stored entity into its outward-facing DTO.
// The kind is taken from the stored variant, never coerced.
func ResponseFromMedia(m model.Media) model.MediaResponse {
	return model.MediaResponse{
		ID:            m.ID,
		Title:         m.Title,
		ArtistName:    m.ArtistName,
		ImageURL:      m.ImageURL,
		ReleaseDate:   m.ReleaseDate,
		Kind:          m.Kind,
		ExternalURL:   m.ExternalURL,
		AverageRating: m.AverageRating,
		RatingCount:   m.RatingCount,
		Description:   m.Description,
		Genre:         m.Genre,
		PreviewURL:    m.PreviewURL,
	}
}

// upgradeArtworkURL swaps the 100x100 artwork variant for the 600x600 one.
// URLs without the small-size token pass through unchanged.
func upgradeArtworkURL(artworkURL string) *string {
	if artworkURL == "" {
		return nil
	}
	upgraded := strings.ReplaceAll(artworkURL, artworkSizeSmall, artworkSizeLarge)
	return &upgraded
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
