package catalog

import (
	"context"
	"strconv"

	"echofm/model"
)

// Result is a single raw record from the upstream catalog. The wire format
// is one flat shape carrying fields for all three variants; WrapperType
// discriminates which subset is meaningful. Callers must not assume field
// presence outside the discriminated subset.
type Result struct {
	WrapperType string `json:"wrapperType"`

	CollectionID *int64 `json:"collectionId,omitempty"`
	TrackID      *int64 `json:"trackId,omitempty"`
	ArtistID     *int64 `json:"artistId,omitempty"`

	CollectionName string `json:"collectionName,omitempty"`
	TrackName      string `json:"trackName,omitempty"`
	ArtistName     string `json:"artistName,omitempty"`

	ArtworkURL60  string `json:"artworkUrl60,omitempty"`
	ArtworkURL100 string `json:"artworkUrl100,omitempty"`
	ReleaseDate   string `json:"releaseDate,omitempty"`

	CollectionViewURL string `json:"collectionViewUrl,omitempty"`
	ArtistLinkURL     string `json:"artistLinkUrl,omitempty"`
	TrackViewURL      string `json:"trackViewUrl,omitempty"`

	PrimaryGenreName string `json:"primaryGenreName,omitempty"`
	Copyright        string `json:"copyright,omitempty"`

	TrackTimeMillis *int64 `json:"trackTimeMillis,omitempty"`
	TrackNumber     *int   `json:"trackNumber,omitempty"`
	PreviewURL      string `json:"previewUrl,omitempty"`
}

const (
	wrapperCollection = "collection"
	wrapperTrack      = "track"
	wrapperArtist     = "artist"
)

// KindForWrapper maps an upstream wrapperType to the local media kind.
func KindForWrapper(wrapperType string) (model.MediaKind, bool) {
	switch wrapperType {
	case wrapperCollection:
		return model.KindAlbum, true
	case wrapperTrack:
		return model.KindTrack, true
	case wrapperArtist:
		return model.KindArtist, true
	default:
		return "", false
	}
}

// IDForKind extracts the id appropriate for the given kind, or "" when the
// upstream record does not carry it.
func (r Result) IDForKind(kind model.MediaKind) string {
	var id *int64
	switch kind {
	case model.KindAlbum:
		id = r.CollectionID
	case model.KindTrack:
		id = r.TrackID
	case model.KindArtist:
		id = r.ArtistID
	}
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

// Provider is the gateway to the upstream catalog. It is the system's entire
// failure containment boundary for upstream misbehavior: network errors,
// non-2xx responses and malformed bodies all surface as empty results, never
// as errors.
type Provider interface {
	// Search queries the catalog for records of the given kind. The limit is
	// clamped to [1, 200] by the implementation. Returns the matching raw
	// records and the upstream total count.
	Search(ctx context.Context, kind model.MediaKind, query string, limit int) ([]Result, int)

	// Lookup fetches a single record by its opaque catalog id. Returns nil
	// when the record does not exist or the upstream call fails.
	Lookup(ctx context.Context, id string) *Result
}

// Store persists catalog records. It is the sole shared mutable resource of
// the core; uniqueness on the primary key is how concurrent writers of the
// same id converge. Store failures are the only errors the core propagates.
type Store interface {
	FindByID(ctx context.Context, id string) (*model.Media, error)

	// FindAllByIDIn returns the records among ids that exist. Order is not
	// guaranteed; missing ids are silently omitted.
	FindAllByIDIn(ctx context.Context, ids []string) ([]model.Media, error)

	// SaveAll upserts records by primary key and returns the post-write
	// state. A record that already exists is left untouched.
	SaveAll(ctx context.Context, records []model.Media) ([]model.Media, error)

	// Save upserts a single record and returns the post-write state, which
	// may be a concurrent writer's row.
	Save(ctx context.Context, record model.Media) (model.Media, error)
}
