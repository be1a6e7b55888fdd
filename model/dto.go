package model

// MediaResponse is the outward-facing record for a catalog entity. Fields
// that do not apply to a variant are omitted.
type MediaResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	ArtistName    string    `json:"artistName"`
	ImageURL      *string   `json:"imageUrl,omitempty"`
	ReleaseDate   *string   `json:"releaseDate,omitempty"`
	Kind          MediaKind `json:"kind"`
	ExternalURL   *string   `json:"externalUrl,omitempty"`
	AverageRating *float64  `json:"averageRating,omitempty"`
	RatingCount   int       `json:"ratingCount"`
	Description   *string   `json:"description,omitempty"`
	Genre         *string   `json:"genre,omitempty"`
	PreviewURL    *string   `json:"previewUrl,omitempty"`
}

// SearchResponse is a page of media results.
type SearchResponse struct {
	Content       []MediaResponse `json:"content"`
	Page          int             `json:"page"`
	Size          int             `json:"size"`
	TotalElements int64           `json:"totalElements"`
	TotalPages    int             `json:"totalPages"`
}

// EmptySearchResponse returns a well-formed empty page. Search callers get a
// single empty page; feed callers get zero totals.
func EmptySearchResponse(page, totalPages int) SearchResponse {
	return SearchResponse{
		Content:       []MediaResponse{},
		Page:          page,
		Size:          0,
		TotalElements: 0,
		TotalPages:    totalPages,
	}
}
