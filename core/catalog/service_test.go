package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"echofm/model"
	"echofm/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// stubProvider implements Provider with injectable behavior and call counts.
type stubProvider struct {
	searchFn    func(kind model.MediaKind, query string, limit int) ([]Result, int)
	lookupFn    func(id string) *Result
	searchCalls int32
	lookupCalls int32
}

func (p *stubProvider) Search(_ context.Context, kind model.MediaKind, query string, limit int) ([]Result, int) {
	atomic.AddInt32(&p.searchCalls, 1)
	if p.searchFn == nil {
		return nil, 0
	}
	return p.searchFn(kind, query, limit)
}

func (p *stubProvider) Lookup(_ context.Context, id string) *Result {
	atomic.AddInt32(&p.lookupCalls, 1)
	if p.lookupFn == nil {
		return nil
	}
	return p.lookupFn(id)
}

// maxRand makes feed randomness deterministic: shuffles become identity
// permutations and pickTwo selects the last two corpus entries.
type maxRand struct{}

func (maxRand) Intn(n int) int { return n - 1 }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.AutoMigrate(&model.Media{}))
	return gdb
}

func newTestService(t *testing.T, provider *stubProvider) (*Service, *gorm.DB) {
	t.Helper()
	gdb := newTestDB(t)
	store := repository.NewMediaRepository(gdb)
	corpus := NewCorpus([]string{"Pop Hits", "Jazz Essentials", "K-Pop"})
	service := NewService(provider, store, corpus)
	service.SetRand(maxRand{})
	return service, gdb
}

func mediaCount(t *testing.T, gdb *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, gdb.Model(&model.Media{}).Count(&count).Error)
	return count
}

func albumResult(id int64, name, artist, artwork string) Result {
	return Result{
		WrapperType:    "collection",
		CollectionID:   &id,
		CollectionName: name,
		ArtistName:     artist,
		ArtworkURL100:  artwork,
	}
}

func trackResult(id int64, name, preview string) Result {
	r := Result{
		WrapperType: "track",
		TrackID:     &id,
		TrackName:   name,
		ArtistName:  "Test Artist",
	}
	if preview != "" {
		r.PreviewURL = preview
	}
	return r
}

func TestSearchAlbumsEagerlyCaches(t *testing.T) {
	provider := &stubProvider{
		searchFn: func(kind model.MediaKind, query string, limit int) ([]Result, int) {
			assert.Equal(t, model.KindAlbum, kind)
			assert.Equal(t, "Homework", query)
			return []Result{albumResult(1, "Homework", "Daft Punk", "a/100x100bb.jpg")}, 1
		},
	}
	service, gdb := newTestService(t, provider)

	resp, err := service.SearchAlbums(context.Background(), "Homework")
	require.NoError(t, err)

	require.Len(t, resp.Content, 1)
	dto := resp.Content[0]
	assert.Equal(t, "1", dto.ID)
	assert.Equal(t, "Homework", dto.Title)
	assert.Equal(t, "Daft Punk", dto.ArtistName)
	assert.Equal(t, model.KindAlbum, dto.Kind)
	require.NotNil(t, dto.ImageURL)
	assert.Equal(t, "a/600x600bb.jpg", *dto.ImageURL)

	// Single-page search contract.
	assert.Equal(t, 0, resp.Page)
	assert.Equal(t, 1, resp.Size)
	assert.Equal(t, int64(1), resp.TotalElements)
	assert.Equal(t, 1, resp.TotalPages)

	// The batch was persisted before returning.
	assert.Equal(t, int64(1), mediaCount(t, gdb))
	var row model.Media
	require.NoError(t, gdb.First(&row, "id = ?", "1").Error)
	assert.Equal(t, model.KindAlbum, row.Kind)
	require.NotNil(t, row.ImageURL)
	assert.NotContains(t, *row.ImageURL, "100x100bb")
	assert.Contains(t, *row.ImageURL, "600x600bb")
}

func TestSearchResultsResolvableWithoutProvider(t *testing.T) {
	provider := &stubProvider{
		searchFn: func(kind model.MediaKind, query string, limit int) ([]Result, int) {
			return []Result{
				albumResult(1, "Homework", "Daft Punk", ""),
				albumResult(2, "Discovery", "Daft Punk", ""),
				albumResult(3, "Human After All", "Daft Punk", ""),
			}, 3
		},
	}
	service, _ := newTestService(t, provider)

	resp, err := service.SearchAlbums(context.Background(), "daft punk")
	require.NoError(t, err)
	require.Len(t, resp.Content, 3)

	for _, dto := range resp.Content {
		got, err := service.GetAlbum(context.Background(), dto.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, dto.ID, got.ID)
	}

	// Every follow-up resolution was answered from the cache.
	assert.Equal(t, int32(0), atomic.LoadInt32(&provider.lookupCalls))
}

func TestGetAlbumServedFromCache(t *testing.T) {
	provider := &stubProvider{
		searchFn: func(kind model.MediaKind, query string, limit int) ([]Result, int) {
			return []Result{albumResult(1, "Homework", "Daft Punk", "a/100x100bb.jpg")}, 1
		},
	}
	service, _ := newTestService(t, provider)

	searched, err := service.SearchAlbums(context.Background(), "Homework")
	require.NoError(t, err)
	require.Len(t, searched.Content, 1)

	got, err := service.GetAlbum(context.Background(), "1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, searched.Content[0], *got)
	assert.Equal(t, int32(0), atomic.LoadInt32(&provider.lookupCalls))
}

func TestResolveMissReturnsAbsence(t *testing.T) {
	provider := &stubProvider{}
	service, gdb := newTestService(t, provider)

	got, err := service.GetAlbum(context.Background(), "99")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&provider.lookupCalls))
	assert.Equal(t, int64(0), mediaCount(t, gdb))
}

func TestKindMismatchReturnsAbsence(t *testing.T) {
	provider := &stubProvider{
		searchFn: func(kind model.MediaKind, query string, limit int) ([]Result, int) {
			return []Result{albumResult(1, "Homework", "Daft Punk", "")}, 1
		},
	}
	service, gdb := newTestService(t, provider)

	_, err := service.SearchAlbums(context.Background(), "Homework")
	require.NoError(t, err)

	var before model.Media
	require.NoError(t, gdb.First(&before, "id = ?", "1").Error)

	got, err := service.GetTrack(context.Background(), "1")
	require.NoError(t, err)
	assert.Nil(t, got)
	// The mismatch is answered from the cache; no upstream call, no write.
	assert.Equal(t, int32(0), atomic.LoadInt32(&provider.lookupCalls))

	var after model.Media
	require.NoError(t, gdb.First(&after, "id = ?", "1").Error)
	assert.Equal(t, before.Kind, after.Kind)
	assert.Equal(t, before.Title, after.Title)
	assert.WithinDuration(t, before.CachedAt, after.CachedAt, 0)
}

func TestResolveKindedLookupMismatchDoesNotWrite(t *testing.T) {
	aid := int64(7)
	provider := &stubProvider{
		lookupFn: func(id string) *Result {
			return &Result{WrapperType: "artist", ArtistID: &aid, ArtistName: "Daft Punk"}
		},
	}
	service, gdb := newTestService(t, provider)

	got, err := service.GetTrack(context.Background(), "7")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, int64(0), mediaCount(t, gdb))
}

func TestResolveAutoDetectsKind(t *testing.T) {
	aid := int64(5468295)
	provider := &stubProvider{
		lookupFn: func(id string) *Result {
			require.Equal(t, "5468295", id)
			return &Result{WrapperType: "artist", ArtistID: &aid, ArtistName: "Daft Punk"}
		},
	}
	service, gdb := newTestService(t, provider)

	got, err := service.Resolve(context.Background(), "5468295")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.KindArtist, got.Kind)
	assert.Equal(t, "Daft Punk", got.Title)
	assert.Equal(t, int64(1), mediaCount(t, gdb))
}

func TestResolveIdempotent(t *testing.T) {
	tid := int64(42)
	provider := &stubProvider{
		lookupFn: func(id string) *Result {
			r := trackResult(tid, "One More Time", "p/clip.m4a")
			return &r
		},
	}
	service, gdb := newTestService(t, provider)

	first, err := service.Resolve(context.Background(), "42")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := service.Resolve(context.Background(), "42")
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.Equal(t, *first, *second)
	assert.Equal(t, int64(1), mediaCount(t, gdb))
	// The second resolve was a cache hit.
	assert.Equal(t, int32(1), atomic.LoadInt32(&provider.lookupCalls))
}

func TestResolveInvalidID(t *testing.T) {
	provider := &stubProvider{}
	service, gdb := newTestService(t, provider)

	got, err := service.Resolve(context.Background(), "not-a-number")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, int32(0), atomic.LoadInt32(&provider.lookupCalls))
	assert.Equal(t, int64(0), mediaCount(t, gdb))
}

func TestConcurrentResolveConvergesToOneRow(t *testing.T) {
	tid := int64(42)
	provider := &stubProvider{
		lookupFn: func(id string) *Result {
			r := trackResult(tid, "One More Time", "p/clip.m4a")
			return &r
		},
	}
	service, gdb := newTestService(t, provider)

	const workers = 8
	results := make([]*model.MediaResponse, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = service.Resolve(context.Background(), "42")
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		assert.Equal(t, *results[0], *results[i])
	}
	assert.Equal(t, int64(1), mediaCount(t, gdb))
}

func TestSearchUpstreamDown(t *testing.T) {
	provider := &stubProvider{} // every call yields an empty batch
	service, gdb := newTestService(t, provider)

	resp, err := service.SearchTracks(context.Background(), "anything")
	require.NoError(t, err)

	assert.Empty(t, resp.Content)
	assert.Equal(t, 0, resp.Page)
	assert.Equal(t, 0, resp.Size)
	assert.Equal(t, int64(0), resp.TotalElements)
	assert.Equal(t, 1, resp.TotalPages)
	assert.Equal(t, int64(0), mediaCount(t, gdb))
}

func TestDiscoveryFeed(t *testing.T) {
	var queries []string
	var mu sync.Mutex
	provider := &stubProvider{
		searchFn: func(kind model.MediaKind, query string, limit int) ([]Result, int) {
			mu.Lock()
			queries = append(queries, query)
			callNo := len(queries)
			mu.Unlock()

			assert.Equal(t, model.KindTrack, kind)
			assert.Equal(t, 6, limit) // min(size*2, 50)

			if callNo == 1 {
				return []Result{
					trackResult(10, "Track Ten", "p/10.m4a"),
					trackResult(11, "Track Eleven", "p/11.m4a"),
				}, 2
			}
			return []Result{
				trackResult(12, "Track Twelve", "p/12.m4a"),
				trackResult(10, "Track Ten", "p/10.m4a"), // duplicate across keywords
			}, 2
		},
	}
	service, gdb := newTestService(t, provider)

	resp, err := service.DiscoveryFeed(context.Background(), 0, 3)
	require.NoError(t, err)

	require.Len(t, resp.Content, 3)
	seen := make(map[string]bool)
	for _, dto := range resp.Content {
		assert.Equal(t, model.KindTrack, dto.Kind)
		assert.Contains(t, []string{"10", "11", "12"}, dto.ID)
		assert.False(t, seen[dto.ID], "duplicate id %s in feed page", dto.ID)
		seen[dto.ID] = true
	}

	// Two distinct keywords were drawn from the corpus.
	require.Len(t, queries, 2)
	assert.NotEqual(t, queries[0], queries[1])

	// Duplicates collapsed before persistence.
	assert.Equal(t, int64(3), mediaCount(t, gdb))

	// Virtual totals keep clients paging.
	assert.Equal(t, int64(200), resp.TotalElements)
	assert.Equal(t, 67, resp.TotalPages)
	assert.Equal(t, 3, resp.Size)
	assert.Equal(t, 0, resp.Page)
}

func TestDiscoveryFeedFiltersTracksWithoutPreview(t *testing.T) {
	provider := &stubProvider{
		searchFn: func(kind model.MediaKind, query string, limit int) ([]Result, int) {
			return []Result{
				trackResult(20, "With Preview", "p/20.m4a"),
				trackResult(21, "No Preview", ""),
			}, 2
		},
	}
	service, gdb := newTestService(t, provider)

	resp, err := service.DiscoveryFeed(context.Background(), 0, 10)
	require.NoError(t, err)

	require.Len(t, resp.Content, 1)
	assert.Equal(t, "20", resp.Content[0].ID)

	// The previewless track is cached and searchable, just not fed.
	assert.Equal(t, int64(2), mediaCount(t, gdb))

	got, err := service.GetTrack(context.Background(), "21")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.PreviewURL)
}

func TestDiscoveryFeedUpstreamDown(t *testing.T) {
	provider := &stubProvider{}
	service, gdb := newTestService(t, provider)

	resp, err := service.DiscoveryFeed(context.Background(), 2, 5)
	require.NoError(t, err)

	assert.Empty(t, resp.Content)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 0, resp.Size)
	assert.Equal(t, int64(0), resp.TotalElements)
	assert.Equal(t, 0, resp.TotalPages)
	assert.Equal(t, int64(0), mediaCount(t, gdb))
}

func TestDiscoveryFeedPartialUpstreamFailure(t *testing.T) {
	var calls int32
	provider := &stubProvider{
		searchFn: func(kind model.MediaKind, query string, limit int) ([]Result, int) {
			if atomic.AddInt32(&calls, 1) == 1 {
				return nil, 0 // first keyword fails upstream
			}
			return []Result{trackResult(30, "Survivor", "p/30.m4a")}, 1
		},
	}
	service, _ := newTestService(t, provider)

	resp, err := service.DiscoveryFeed(context.Background(), 0, 5)
	require.NoError(t, err)

	require.Len(t, resp.Content, 1)
	assert.Equal(t, "30", resp.Content[0].ID)
}

func TestDiscoveryFeedPageCap(t *testing.T) {
	provider := &stubProvider{
		searchFn: func(kind model.MediaKind, query string, limit int) ([]Result, int) {
			var results []Result
			for i := int64(100); i < 110; i++ {
				results = append(results, trackResult(i, fmt.Sprintf("Track %d", i), fmt.Sprintf("p/%d.m4a", i)))
			}
			return results, len(results)
		},
	}
	service, _ := newTestService(t, provider)

	resp, err := service.DiscoveryFeed(context.Background(), 0, 4)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(resp.Content), 4)
	assert.Len(t, resp.Content, 4)
}

func TestSearchMixedWrapperTypesFiltered(t *testing.T) {
	tid := int64(50)
	provider := &stubProvider{
		searchFn: func(kind model.MediaKind, query string, limit int) ([]Result, int) {
			return []Result{
				albumResult(1, "Homework", "Daft Punk", ""),
				{WrapperType: "track", TrackID: &tid, TrackName: "Stray Track"},
				{WrapperType: "collection"}, // no collectionId, skipped
			}, 3
		},
	}
	service, gdb := newTestService(t, provider)

	resp, err := service.SearchAlbums(context.Background(), "Homework")
	require.NoError(t, err)

	require.Len(t, resp.Content, 1)
	assert.Equal(t, "1", resp.Content[0].ID)
	assert.Equal(t, int64(1), mediaCount(t, gdb))
}

func TestCachedAtImmutableAcrossSearches(t *testing.T) {
	provider := &stubProvider{
		searchFn: func(kind model.MediaKind, query string, limit int) ([]Result, int) {
			return []Result{albumResult(1, "Homework", "Daft Punk", "")}, 1
		},
	}
	service, gdb := newTestService(t, provider)

	_, err := service.SearchAlbums(context.Background(), "Homework")
	require.NoError(t, err)

	var before model.Media
	require.NoError(t, gdb.First(&before, "id = ?", "1").Error)

	_, err = service.SearchAlbums(context.Background(), "Homework")
	require.NoError(t, err)

	var after model.Media
	require.NoError(t, gdb.First(&after, "id = ?", "1").Error)
	assert.WithinDuration(t, before.CachedAt, after.CachedAt, 0)
}
