// package services defines interface Catalog for interacting with the upstream catalog API
package services

import (
	"context"

	"github.com/desertthunder/qcat/internal/models"
)

// Catalog defines the gateway operations exposed to the CLI, HTTP and TUI surfaces.
//
// Every operation takes an optional region hint used to pick the credential.
type Catalog interface {
	// Search runs a full-text search. Permalinks are searched by their id and the
	// results carry the matching entity hint.
	Search(ctx context.Context, text string, limit, offset int, region string) (*models.SearchResults, error)

	// GetArtistProfile fetches an artist's biography and discography grouped by release type.
	GetArtistProfile(ctx context.Context, artistID, region string) (*models.ArtistProfile, error)

	// GetArtistReleases lists one page of an artist's releases, newest first.
	GetArtistReleases(ctx context.Context, q models.ReleasesQuery, region string) (*models.Page[models.Album], error)

	// GetAlbum fetches an album with its full track listing.
	GetAlbum(ctx context.Context, albumID, region string) (*models.Album, error)

	// ResolveStreamURL resolves the playable file URL of a track at the given quality.
	ResolveStreamURL(ctx context.Context, trackID int64, quality models.Quality, region string) (string, error)

	// ResolveStream is ResolveStreamURL with the full format details.
	ResolveStream(ctx context.Context, trackID int64, quality models.Quality, region string) (*models.Stream, error)
}

var _ Catalog = (*CatalogService)(nil)
