// package tasks implements multi-call catalog jobs on top of the gateway.
//
// The core abstraction is CatalogEngine, which fans album stream resolution out over a bounded worker pool and
// walks paginated discographies. Operations emit progress updates via channels for non-blocking status reporting.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/qcat/internal/models"
	"github.com/desertthunder/qcat/internal/services"
	"github.com/desertthunder/qcat/internal/shared"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers   = 4
	maxWorkers       = 10
	defaultRateLimit = 5.0
)

// AlbumCacher stores fetched albums between runs (repositories.AlbumCache).
type AlbumCacher interface {
	Get(albumID, region string) (*models.Album, bool, error)
	Put(album *models.Album, region string) error
}

// ResolveOpts configures [CatalogEngine.ResolveAlbum].
type ResolveOpts struct {
	Quality    models.Quality // Requested format (default: CD)
	Regions    []string       // Region hints tried in order when a stream is unavailable
	NumWorkers int            // Concurrent resolutions (default: 4, max: 10)
	RateLimit  float64        // Upstream calls per second (default: 5)
}

func (o ResolveOpts) withDefaults() ResolveOpts {
	if o.Quality == "" {
		o.Quality = models.QualityCD
	}
	if len(o.Regions) == 0 {
		o.Regions = []string{""}
	}
	if o.NumWorkers <= 0 {
		o.NumWorkers = defaultWorkers
	}
	if o.NumWorkers > maxWorkers {
		o.NumWorkers = maxWorkers
	}
	if o.RateLimit <= 0 {
		o.RateLimit = defaultRateLimit
	}
	return o
}

// TrackStreamResult is the outcome of resolving a single track.
type TrackStreamResult struct {
	Track    models.Track   // Track from the album listing
	Stream   *models.Stream // Resolved stream (nil on failure)
	Region   string         // Region hint that produced the stream
	Attempts int            // Upstream calls made for this track
	Error    error          // Last error when no region produced a stream
}

// AlbumStreamResult contains all data from an album resolution.
type AlbumStreamResult struct {
	Album         *models.Album
	Results       []TrackStreamResult // Same order as the album listing
	ResolvedCount int
	FailedCount   int
	Cached        bool // Album metadata came from the cache
}

// CatalogEngine runs jobs that need many gateway calls.
type CatalogEngine struct {
	catalog services.Catalog
	cache   AlbumCacher
	logger  *log.Logger
}

// NewCatalogEngine creates a CatalogEngine over catalog. cache may be nil.
func NewCatalogEngine(catalog services.Catalog, cache AlbumCacher, logger *log.Logger) *CatalogEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &CatalogEngine{catalog: catalog, cache: cache, logger: shared.WithLogger(logger, "component", "tasks")}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *CatalogEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// FetchAlbum returns the album from the cache when fresh, otherwise from the catalog.
//
// Cache failures are logged and never fail the fetch.
func (e *CatalogEngine) FetchAlbum(ctx context.Context, albumID, region string) (*models.Album, bool, error) {
	if e.catalog == nil {
		return nil, false, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	if e.cache != nil {
		album, ok, err := e.cache.Get(albumID, region)
		if err != nil {
			e.logger.Warn("album cache read failed", "album_id", albumID, "error", err)
		}
		if ok {
			return album, true, nil
		}
	}

	album, err := e.catalog.GetAlbum(ctx, albumID, region)
	if err != nil {
		return nil, false, err
	}

	if e.cache != nil {
		if err := e.cache.Put(album, region); err != nil {
			e.logger.Warn("album cache write failed", "album_id", albumID, "error", err)
		}
	}
	return album, false, nil
}

// ResolveAlbum fetches an album and resolves a stream for every track.
//
// Tracks are resolved by a bounded worker pool sharing one rate limiter. A track whose stream is unavailable for a
// region is retried with the next region in opts.Regions; any other error ends that track. Per-track failures are
// reported in the result, not returned. Cancelling ctx stops outstanding work and returns the partial result with
// the context error.
func (e *CatalogEngine) ResolveAlbum(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	albumID string,
	opts ResolveOpts,
) (*AlbumStreamResult, error) {
	if strings.TrimSpace(albumID) == "" {
		return nil, fmt.Errorf("%w: album id", shared.ErrMissingArgument)
	}
	opts = opts.withDefaults()

	e.sendProgress(progress, fetchingAlbumUpdate(albumID))
	album, cached, err := e.FetchAlbum(ctx, albumID, opts.Regions[0])
	if err != nil {
		return nil, fmt.Errorf("failed to fetch album %s: %w", albumID, err)
	}
	e.sendProgress(progress, foundAlbumUpdate(album, cached))

	var tracks []models.Track
	if album.Tracks != nil {
		tracks = album.Tracks.Items
	}

	result := &AlbumStreamResult{
		Album:   album,
		Results: make([]TrackStreamResult, len(tracks)),
		Cached:  cached,
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	var (
		g         errgroup.Group
		mu        sync.Mutex
		completed int
	)
	g.SetLimit(opts.NumWorkers)

	for i, track := range tracks {
		g.Go(func() error {
			res := e.resolveTrack(ctx, limiter, track, opts)
			result.Results[i] = res

			mu.Lock()
			defer mu.Unlock()
			completed++
			if res.Error == nil {
				result.ResolvedCount++
				e.sendProgress(progress, streamResolvedUpdate(completed, len(tracks), res))
			} else {
				result.FailedCount++
				e.sendProgress(progress, streamFailedUpdate(completed, len(tracks), res))
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (e *CatalogEngine) resolveTrack(ctx context.Context, limiter *rate.Limiter, track models.Track, opts ResolveOpts) TrackStreamResult {
	res := TrackStreamResult{Track: track}

	for _, region := range opts.Regions {
		if err := limiter.Wait(ctx); err != nil {
			res.Error = err
			return res
		}

		res.Attempts++
		stream, err := e.catalog.ResolveStream(ctx, track.ID, opts.Quality, region)
		if err == nil {
			res.Stream = stream
			res.Region = region
			res.Error = nil
			return res
		}

		res.Error = err
		if !errors.Is(err, shared.ErrStreamUnavailable) {
			return res
		}
		e.logger.Debug("stream unavailable, trying next region", "track_id", track.ID, "region", region)
	}
	return res
}
