package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/desertthunder/qcat/internal/models"
	"github.com/desertthunder/qcat/internal/shared"
	tu "github.com/desertthunder/qcat/internal/testing"
)

func testAlbum(id string, trackIDs ...int64) *models.Album {
	album := &models.Album{ID: id, Title: "Album " + id}
	tracks := make([]models.Track, 0, len(trackIDs))
	for _, tid := range trackIDs {
		tracks = append(tracks, models.Track{ID: tid, Title: fmt.Sprintf("Track %d", tid), Album: *album})
	}
	page := models.NewPage(tracks, len(tracks), 0, len(tracks))
	album.Tracks = &page
	return album
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*models.Album
	getErr  error
	putErr  error
	puts    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]*models.Album{}}
}

func (c *memoryCache) Get(albumID, region string) (*models.Album, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	a, ok := c.entries[albumID+"@"+region]
	return a, ok, nil
}

func (c *memoryCache) Put(album *models.Album, region string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	if c.putErr != nil {
		return c.putErr
	}
	c.entries[album.ID+"@"+region] = album
	return nil
}

func fastOpts(regions ...string) ResolveOpts {
	return ResolveOpts{Regions: regions, NumWorkers: 3, RateLimit: 10000}
}

func TestResolveOpts(t *testing.T) {
	got := ResolveOpts{NumWorkers: 50}.withDefaults()
	if got.Quality != models.QualityCD {
		t.Errorf("expected CD quality default, got %s", got.Quality)
	}
	if len(got.Regions) != 1 || got.Regions[0] != "" {
		t.Errorf("expected a single default region, got %v", got.Regions)
	}
	if got.NumWorkers != maxWorkers {
		t.Errorf("expected workers capped at %d, got %d", maxWorkers, got.NumWorkers)
	}
	if got.RateLimit != defaultRateLimit {
		t.Errorf("expected default rate limit, got %v", got.RateLimit)
	}
}

func TestCatalogEngine_ResolveAlbum(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("resolves every track in order", func(t *testing.T) {
		mock := &tu.MockCatalog{
			AlbumFunc: func(ctx context.Context, albumID, region string) (*models.Album, error) {
				return testAlbum(albumID, 1, 2, 3, 4, 5), nil
			},
		}
		engine := NewCatalogEngine(mock, nil, logger)
		progress := make(chan ProgressUpdate, 32)

		result, err := engine.ResolveAlbum(context.Background(), progress, "abc", fastOpts("US"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.ResolvedCount != 5 || result.FailedCount != 0 {
			t.Errorf("expected 5 resolved, got %d/%d", result.ResolvedCount, result.FailedCount)
		}
		for i, res := range result.Results {
			if res.Track.ID != int64(i+1) {
				t.Errorf("position %d: expected track %d, got %d", i, i+1, res.Track.ID)
			}
			if res.Stream == nil || res.Stream.URL != fmt.Sprintf("https://files.example.com/%d", i+1) {
				t.Errorf("position %d: unexpected stream %+v", i, res.Stream)
			}
			if res.Region != "US" || res.Attempts != 1 {
				t.Errorf("position %d: expected one attempt in US, got %d in %q", i, res.Attempts, res.Region)
			}
		}

		close(progress)
		phases := map[Phase]int{}
		for u := range progress {
			phases[u.Phase]++
		}
		if phases[FetchAlbum] != 2 || phases[ResolveStreams] != 5 {
			t.Errorf("unexpected progress phases %v", phases)
		}
	})

	t.Run("falls back to the next region", func(t *testing.T) {
		mock := &tu.MockCatalog{
			AlbumFunc: func(ctx context.Context, albumID, region string) (*models.Album, error) {
				return testAlbum(albumID, 1, 2), nil
			},
			ResolveStreamFunc: func(ctx context.Context, trackID int64, q models.Quality, region string) (*models.Stream, error) {
				if region == "US" && trackID == 2 {
					return nil, fmt.Errorf("%w: restricted", shared.ErrStreamUnavailable)
				}
				return &models.Stream{TrackID: trackID, Quality: q, URL: "https://files.example.com/" + region}, nil
			},
		}
		engine := NewCatalogEngine(mock, nil, logger)

		result, err := engine.ResolveAlbum(context.Background(), nil, "abc", fastOpts("US", "FR"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		first, second := result.Results[0], result.Results[1]
		if first.Region != "US" || first.Attempts != 1 {
			t.Errorf("expected track 1 from US, got %+v", first)
		}
		if second.Region != "FR" || second.Attempts != 2 || second.Error != nil {
			t.Errorf("expected track 2 from FR after fallback, got %+v", second)
		}
	})

	t.Run("other errors do not fall back", func(t *testing.T) {
		mock := &tu.MockCatalog{
			AlbumFunc: func(ctx context.Context, albumID, region string) (*models.Album, error) {
				return testAlbum(albumID, 7), nil
			},
			ResolveStreamFunc: func(ctx context.Context, trackID int64, q models.Quality, region string) (*models.Stream, error) {
				return nil, fmt.Errorf("%w: bad token", shared.ErrUpstreamRejected)
			},
		}
		engine := NewCatalogEngine(mock, nil, logger)

		result, err := engine.ResolveAlbum(context.Background(), nil, "abc", fastOpts("US", "FR"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		res := result.Results[0]
		if !errors.Is(res.Error, shared.ErrUpstreamRejected) || res.Attempts != 1 {
			t.Errorf("expected single rejected attempt, got %+v", res)
		}
		if result.FailedCount != 1 || result.ResolvedCount != 0 {
			t.Errorf("expected 1 failure, got %d/%d", result.ResolvedCount, result.FailedCount)
		}
	})

	t.Run("unavailable everywhere", func(t *testing.T) {
		mock := &tu.MockCatalog{
			AlbumFunc: func(ctx context.Context, albumID, region string) (*models.Album, error) {
				return testAlbum(albumID, 7), nil
			},
			ResolveStreamFunc: func(ctx context.Context, trackID int64, q models.Quality, region string) (*models.Stream, error) {
				return nil, shared.ErrStreamUnavailable
			},
		}
		engine := NewCatalogEngine(mock, nil, logger)

		result, _ := engine.ResolveAlbum(context.Background(), nil, "abc", fastOpts("US", "FR", "DE"))
		res := result.Results[0]
		if !errors.Is(res.Error, shared.ErrStreamUnavailable) || res.Attempts != 3 || res.Stream != nil {
			t.Errorf("expected three unavailable attempts, got %+v", res)
		}
	})

	t.Run("album fetch failure", func(t *testing.T) {
		mock := &tu.MockCatalog{
			AlbumFunc: func(ctx context.Context, albumID, region string) (*models.Album, error) {
				return nil, shared.ErrUpstreamUnavailable
			},
		}
		engine := NewCatalogEngine(mock, nil, logger)

		if _, err := engine.ResolveAlbum(context.Background(), nil, "abc", fastOpts()); !errors.Is(err, shared.ErrUpstreamUnavailable) {
			t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
		}
	})

	t.Run("missing album id", func(t *testing.T) {
		engine := NewCatalogEngine(&tu.MockCatalog{}, nil, logger)
		if _, err := engine.ResolveAlbum(context.Background(), nil, " ", fastOpts()); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		mock := &tu.MockCatalog{
			AlbumFunc: func(_ context.Context, albumID, region string) (*models.Album, error) {
				cancel()
				return testAlbum(albumID, 1, 2, 3), nil
			},
		}
		engine := NewCatalogEngine(mock, nil, logger)

		result, err := engine.ResolveAlbum(ctx, nil, "abc", fastOpts())
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if result == nil || result.FailedCount != 3 {
			t.Errorf("expected every track to fail after cancellation, got %+v", result)
		}
	})

	t.Run("no catalog", func(t *testing.T) {
		engine := NewCatalogEngine(nil, nil, logger)
		if _, err := engine.ResolveAlbum(context.Background(), nil, "abc", fastOpts()); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestCatalogEngine_FetchAlbum(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("populates and reads the cache", func(t *testing.T) {
		mock := &tu.MockCatalog{}
		cache := newMemoryCache()
		engine := NewCatalogEngine(mock, cache, logger)

		_, cached, err := engine.FetchAlbum(context.Background(), "abc", "US")
		if err != nil || cached {
			t.Fatalf("expected catalog fetch, got cached=%v err=%v", cached, err)
		}

		album, cached, err := engine.FetchAlbum(context.Background(), "abc", "US")
		if err != nil || !cached || album.ID != "abc" {
			t.Fatalf("expected cache hit, got %+v cached=%v err=%v", album, cached, err)
		}

		if calls := mock.Calls(); len(calls) != 1 || calls[0] != "album:abc@US" {
			t.Errorf("expected a single upstream call, got %v", calls)
		}
	})

	t.Run("cache failures are not fatal", func(t *testing.T) {
		cache := newMemoryCache()
		cache.getErr = errors.New("disk on fire")
		cache.putErr = errors.New("disk still on fire")
		engine := NewCatalogEngine(&tu.MockCatalog{}, cache, logger)

		album, cached, err := engine.FetchAlbum(context.Background(), "abc", "")
		if err != nil || cached || album == nil {
			t.Errorf("expected catalog fallback, got %+v cached=%v err=%v", album, cached, err)
		}
		if cache.puts != 1 {
			t.Errorf("expected one cache write attempt, got %d", cache.puts)
		}
	})
}

func TestCatalogEngine_FetchDiscography(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	pageOf := func(q models.ReleasesQuery, total int) *models.Page[models.Album] {
		var items []models.Album
		for i := q.Offset; i < total && len(items) < q.Limit; i++ {
			items = append(items, models.Album{ID: fmt.Sprintf("%s-%d", q.ReleaseType, i), Title: "x"})
		}
		page := models.NewPage(items, q.Limit, q.Offset, total)
		page.HasMore = q.Offset+len(items) < total
		return &page
	}

	t.Run("walks every page", func(t *testing.T) {
		mock := &tu.MockCatalog{
			ReleasesFunc: func(ctx context.Context, q models.ReleasesQuery, region string) (*models.Page[models.Album], error) {
				if q.ReleaseType == models.ReleaseAlbum {
					return pageOf(q, 5), nil
				}
				return pageOf(q, 0), nil
			},
		}
		engine := NewCatalogEngine(mock, nil, logger)

		result, err := engine.FetchDiscography(context.Background(), nil, "36819", "", DiscographyOpts{PageSize: 2})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(result.Releases[models.ReleaseAlbum]) != 5 {
			t.Errorf("expected 5 albums, got %d", len(result.Releases[models.ReleaseAlbum]))
		}
		if result.Count() != 5 {
			t.Errorf("expected 5 releases overall, got %d", result.Count())
		}
		if _, ok := result.Releases[models.ReleaseLive]; ok {
			t.Error("expected no entry for an empty type")
		}
		// 3 album pages + 1 empty page for each other type
		if calls := mock.Calls(); len(calls) != 3+len(models.ReleaseTypes())-1 {
			t.Errorf("unexpected call count %d: %v", len(calls), calls)
		}
	})

	t.Run("max pages", func(t *testing.T) {
		mock := &tu.MockCatalog{
			ReleasesFunc: func(ctx context.Context, q models.ReleasesQuery, region string) (*models.Page[models.Album], error) {
				return pageOf(q, 100), nil
			},
		}
		engine := NewCatalogEngine(mock, nil, logger)

		opts := DiscographyOpts{ReleaseTypes: []models.ReleaseType{models.ReleaseLive}, PageSize: 10, MaxPages: 2}
		result, err := engine.FetchDiscography(context.Background(), nil, "1", "", opts)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(result.Releases[models.ReleaseLive]) != 20 {
			t.Errorf("expected 20 releases, got %d", len(result.Releases[models.ReleaseLive]))
		}
	})

	t.Run("failing type is recorded", func(t *testing.T) {
		mock := &tu.MockCatalog{
			ReleasesFunc: func(ctx context.Context, q models.ReleasesQuery, region string) (*models.Page[models.Album], error) {
				if q.ReleaseType == models.ReleaseCompilation {
					return nil, shared.ErrUpstreamRejected
				}
				return pageOf(q, 1), nil
			},
		}
		engine := NewCatalogEngine(mock, nil, logger)

		result, err := engine.FetchDiscography(context.Background(), nil, "1", "", DiscographyOpts{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(result.Errors) != 1 || result.Errors[0].ReleaseType != models.ReleaseCompilation {
			t.Errorf("expected one compilation error, got %+v", result.Errors)
		}
		if result.Count() != len(models.ReleaseTypes())-1 {
			t.Errorf("expected the other types to be fetched, got %d", result.Count())
		}
	})

	t.Run("missing artist", func(t *testing.T) {
		engine := NewCatalogEngine(&tu.MockCatalog{}, nil, logger)
		if _, err := engine.FetchDiscography(context.Background(), nil, "", "", DiscographyOpts{}); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestPhaseString(t *testing.T) {
	tt := []struct {
		phase Phase
		want  string
	}{
		{FetchAlbum, "fetch_album"},
		{ResolveStreams, "resolve_streams"},
		{FetchReleases, "fetch_releases"},
		{Phase(99), ""},
	}
	for _, tc := range tt {
		if got := tc.phase.String(); got != tc.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tc.phase, got, tc.want)
		}
	}
}
