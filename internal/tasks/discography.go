package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/qcat/internal/models"
	"github.com/desertthunder/qcat/internal/shared"
)

// DiscographyOpts configures [CatalogEngine.FetchDiscography].
type DiscographyOpts struct {
	ReleaseTypes []models.ReleaseType // Types to walk (default: all)
	PageSize     int                  // Releases per request (default: 50)
	MaxPages     int                  // Upper bound per type; 0 means unbounded
	TrackSize    int                  // Tracks embedded per release (default: 1000)
}

// ReleaseTypeError records a release type whose listing stopped early.
type ReleaseTypeError struct {
	ReleaseType models.ReleaseType
	Offset      int
	Error       error
}

// DiscographyResult contains every release fetched for an artist, grouped by type.
type DiscographyResult struct {
	ArtistID string
	Releases map[models.ReleaseType][]models.Album
	Errors   []ReleaseTypeError
}

// Count returns the number of releases across all types.
func (r *DiscographyResult) Count() int {
	n := 0
	for _, albums := range r.Releases {
		n += len(albums)
	}
	return n
}

// FetchDiscography pages through an artist's releases for each requested type until the upstream reports no more.
//
// A failing type is recorded in Errors with whatever was fetched before the failure; the other types still run.
func (e *CatalogEngine) FetchDiscography(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	artistID, region string,
	opts DiscographyOpts,
) (*DiscographyResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	if strings.TrimSpace(artistID) == "" {
		return nil, fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}

	types := opts.ReleaseTypes
	if len(types) == 0 {
		types = models.ReleaseTypes()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.TrackSize <= 0 {
		opts.TrackSize = 1000
	}

	result := &DiscographyResult{
		ArtistID: artistID,
		Releases: make(map[models.ReleaseType][]models.Album),
	}

	for i, rt := range types {
		q := models.ReleasesQuery{
			ArtistID:    artistID,
			ReleaseType: rt,
			Limit:       opts.PageSize,
			TrackSize:   opts.TrackSize,
		}

		for pages := 0; opts.MaxPages == 0 || pages < opts.MaxPages; pages++ {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			e.sendProgress(progress, fetchReleasesUpdate(i+1, len(types), rt, q.Offset))

			page, err := e.catalog.GetArtistReleases(ctx, q, region)
			if err != nil {
				result.Errors = append(result.Errors, ReleaseTypeError{ReleaseType: rt, Offset: q.Offset, Error: err})
				break
			}

			if len(page.Items) > 0 {
				result.Releases[rt] = append(result.Releases[rt], page.Items...)
			}
			if !page.HasMore || len(page.Items) == 0 {
				break
			}
			q.Offset += len(page.Items)
		}
	}

	return result, nil
}
