package catalog

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"echofm/logger"
	"echofm/model"
)

const (
	// Results requested per search call; the provider clamps further.
	searchLimit = 20

	// Per-keyword fetch cap for feed batches.
	maxFeedBatch = 50

	defaultFeedSize = 20

	defaultVirtualTotal = 200
)

// Service coordinates the upstream catalog and the local store. Collection
// calls (search, feed) cache eagerly: every batch is reconciled against the
// store before it is returned. Single-id resolution caches lazily on first
// miss. The service itself is stateless; concurrent resolvers of the same id
// may both reach upstream, and the store's primary key decides the winner.
type Service struct {
	provider     Provider
	store        Store
	corpus       *Corpus
	rand         Rand
	virtualTotal int
}

// NewService wires a catalog service with the secure PRNG and default feed
// pagination policy.
func NewService(provider Provider, store Store, corpus *Corpus) *Service {
	return &Service{
		provider:     provider,
		store:        store,
		corpus:       corpus,
		rand:         SecureRand{},
		virtualTotal: defaultVirtualTotal,
	}
}

// SetRand replaces the random source. Tests inject a deterministic one.
func (s *Service) SetRand(r Rand) {
	s.rand = r
}

// SetVirtualTotal overrides the synthetic element count reported by feeds.
func (s *Service) SetVirtualTotal(n int) {
	if n > 0 {
		s.virtualTotal = n
	}
}

// SearchAlbums searches the catalog for albums and caches every result.
func (s *Service) SearchAlbums(ctx context.Context, query string) (model.SearchResponse, error) {
	return s.search(ctx, model.KindAlbum, query)
}

// SearchTracks searches the catalog for tracks and caches every result.
func (s *Service) SearchTracks(ctx context.Context, query string) (model.SearchResponse, error) {
	return s.search(ctx, model.KindTrack, query)
}

// SearchArtists searches the catalog for artists and caches every result.
func (s *Service) SearchArtists(ctx context.Context, query string) (model.SearchResponse, error) {
	return s.search(ctx, model.KindArtist, query)
}

// Resolve fetches a record by id, detecting its kind from the store or the
// upstream record. Returns nil when the id cannot be resolved.
func (s *Service) Resolve(ctx context.Context, id string) (*model.MediaResponse, error) {
	return s.resolve(ctx, "", id)
}

// GetAlbum resolves id as an album; a cached record of another kind yields nil.
func (s *Service) GetAlbum(ctx context.Context, id string) (*model.MediaResponse, error) {
	return s.resolve(ctx, model.KindAlbum, id)
}

// GetTrack resolves id as a track; a cached record of another kind yields nil.
func (s *Service) GetTrack(ctx context.Context, id string) (*model.MediaResponse, error) {
	return s.resolve(ctx, model.KindTrack, id)
}

// GetArtist resolves id as an artist; a cached record of another kind yields nil.
func (s *Service) GetArtist(ctx context.Context, id string) (*model.MediaResponse, error) {
	return s.resolve(ctx, model.KindArtist, id)
}

// search runs the eager path: fetch, reconcile against the store, answer
// from the store's post-write state. Search responses are a single page.
func (s *Service) search(ctx context.Context, kind model.MediaKind, query string) (model.SearchResponse, error) {
	results, total := s.provider.Search(ctx, kind, query, searchLimit)
	logger.Debug("Catalog search",
		logger.String("kind", string(kind)),
		logger.String("query", query),
		logger.Int("results", len(results)),
		logger.Int("total", total))

	synced, err := s.syncBatch(ctx, kind, results)
	if err != nil {
		return model.SearchResponse{}, err
	}

	content := make([]model.MediaResponse, 0, len(synced))
	for _, m := range synced {
		content = append(content, ResponseFromMedia(m))
	}

	return model.SearchResponse{
		Content:       content,
		Page:          0,
		Size:          len(content),
		TotalElements: int64(len(content)),
		TotalPages:    1,
	}, nil
}

// DiscoveryFeed returns a randomized page of playable tracks. Two distinct
// keywords are drawn from the corpus, both batches are cached eagerly, and
// the page is cut from a fresh shuffle. Totals are synthetic so clients can
// page continuously; every call re-randomizes.
func (s *Service) DiscoveryFeed(ctx context.Context, page, size int) (model.SearchResponse, error) {
	if page < 0 {
		page = 0
	}
	if size < 1 {
		size = defaultFeedSize
	}

	keywords := s.corpus.Keywords()
	if len(keywords) < 2 {
		logger.Warn("Feed keyword corpus too small", logger.Int("count", len(keywords)))
		return model.EmptySearchResponse(page, 0), nil
	}
	i, j := pickTwo(s.rand, len(keywords))
	first, second := keywords[i], keywords[j]

	batch := size * 2
	if batch > maxFeedBatch {
		batch = maxFeedBatch
	}

	results, _ := s.provider.Search(ctx, model.KindTrack, first, batch)
	more, _ := s.provider.Search(ctx, model.KindTrack, second, batch)
	results = append(results, more...)
	logger.Debug("Discovery feed fetch",
		logger.String("keywords", first+" / "+second),
		logger.Int("results", len(results)))

	if len(results) == 0 {
		return model.EmptySearchResponse(page, 0), nil
	}

	synced, err := s.syncBatch(ctx, model.KindTrack, results)
	if err != nil {
		return model.SearchResponse{}, err
	}

	content := make([]model.MediaResponse, 0, len(synced))
	for _, m := range synced {
		// Tracks without a preview clip stay cached and searchable but are
		// not served in the feed.
		if m.PreviewURL == nil {
			continue
		}
		content = append(content, ResponseFromMedia(m))
	}
	shuffle(s.rand, content)
	if len(content) > size {
		content = content[:size]
	}

	totalPages := (s.virtualTotal + size - 1) / size
	return model.SearchResponse{
		Content:       content,
		Page:          page,
		Size:          len(content),
		TotalElements: int64(s.virtualTotal),
		TotalPages:    totalPages,
	}, nil
}

// syncBatch reconciles a raw batch with the store and returns the stored
// rows for every id in the batch. Records whose wrapperType does not match
// kind, or that lack the kind-appropriate id, are dropped; duplicate ids
// within the batch collapse to the first occurrence. The final re-read is
// the source of truth, so rows written by concurrent racers still appear in
// the response.
func (s *Service) syncBatch(ctx context.Context, kind model.MediaKind, results []Result) ([]model.Media, error) {
	var ids []string
	byID := make(map[string]Result, len(results))
	for _, r := range results {
		k, ok := KindForWrapper(r.WrapperType)
		if !ok || k != kind {
			continue
		}
		id := r.IDForKind(kind)
		if id == "" {
			continue
		}
		if _, dup := byID[id]; dup {
			continue
		}
		byID[id] = r
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	existing, err := s.store.FindAllByIDIn(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("catalog batch read: %w", err)
	}
	existingIDs := make(map[string]struct{}, len(existing))
	for _, m := range existing {
		existingIDs[m.ID] = struct{}{}
	}

	now := time.Now()
	var fresh []model.Media
	for _, id := range ids {
		if _, cached := existingIDs[id]; cached {
			continue
		}
		if entity := EntityFromResult(byID[id], now); entity != nil {
			fresh = append(fresh, *entity)
		}
	}
	if len(fresh) > 0 {
		if _, err := s.store.SaveAll(ctx, fresh); err != nil {
			return nil, fmt.Errorf("catalog batch save: %w", err)
		}
	}

	synced, err := s.store.FindAllByIDIn(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("catalog batch re-read: %w", err)
	}
	return synced, nil
}

// resolve runs the lazy path. kind == "" auto-detects from the stored row or
// the upstream record; otherwise a variant mismatch yields absence without a
// write. Absence is (nil, nil); only store failures return an error.
func (s *Service) resolve(ctx context.Context, kind model.MediaKind, id string) (*model.MediaResponse, error) {
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		logger.Warn("Rejecting non-numeric catalog id", logger.String("id", id))
		return nil, nil
	}

	cached, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("catalog read %s: %w", id, err)
	}
	if cached != nil {
		if kind != "" && cached.Kind != kind {
			return nil, nil
		}
		dto := ResponseFromMedia(*cached)
		return &dto, nil
	}

	result := s.provider.Lookup(ctx, id)
	if result == nil {
		return nil, nil
	}
	if kind != "" {
		if k, ok := KindForWrapper(result.WrapperType); !ok || k != kind {
			return nil, nil
		}
	}

	entity := EntityFromResult(*result, time.Now())
	if entity == nil {
		return nil, nil
	}

	// A concurrent resolver may have inserted this id already; Save returns
	// whichever row won the race.
	saved, err := s.store.Save(ctx, *entity)
	if err != nil {
		return nil, fmt.Errorf("catalog save %s: %w", id, err)
	}

	dto := ResponseFromMedia(saved)
	return &dto, nil
}
