package model

import "time"

// MediaKind discriminates the three catalog entity variants.
type MediaKind string

const (
	KindAlbum  MediaKind = "ALBUM"
	KindTrack  MediaKind = "TRACK"
	KindArtist MediaKind = "ARTIST"
)

// Media is a cached catalog record. All three variants share a single table
// keyed by the upstream catalog id, with Kind as the discriminator and the
// variant-specific columns nullable.
//
// CachedAt is set once at first persistence and never updated; rows are only
// mutated when the library subsystem recomputes rating aggregates.
type Media struct {
	ID          string    `gorm:"primaryKey;size:62" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	ArtistName  string    `gorm:"column:artist_name;not null" json:"artistName"`
	ImageURL    *string   `gorm:"column:image_url" json:"imageUrl,omitempty"`
	ReleaseDate *string   `gorm:"column:release_date" json:"releaseDate,omitempty"`
	Kind        MediaKind `gorm:"column:kind;size:10;not null;index" json:"kind"`
	ExternalURL *string   `gorm:"column:external_url" json:"externalUrl,omitempty"`

	AverageRating *float64 `gorm:"column:average_rating" json:"averageRating,omitempty"`
	RatingCount   int      `gorm:"column:rating_count;not null;default:0" json:"ratingCount"`

	// Album / Track / Artist
	Description *string `gorm:"column:description;type:text" json:"description,omitempty"`
	Genre       *string `gorm:"column:genre" json:"genre,omitempty"`

	// Album only
	Label *string `gorm:"column:label" json:"label,omitempty"`

	// Track only
	DurationMs   *int    `gorm:"column:duration_ms" json:"durationMs,omitempty"`
	TrackNumber  *int    `gorm:"column:track_number" json:"trackNumber,omitempty"`
	ThumbnailURL *string `gorm:"column:thumbnail_url" json:"thumbnailUrl,omitempty"`
	PreviewURL   *string `gorm:"column:preview_url" json:"previewUrl,omitempty"`

	CachedAt time.Time `gorm:"column:cached_at;not null" json:"cachedAt"`
}

// TableName pins the table name instead of the pluralized default.
func (Media) TableName() string {
	return "media"
}
