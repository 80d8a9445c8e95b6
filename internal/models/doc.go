// Package models defines domain entities and persistence interfaces for the qcat catalog gateway.
//
// The package contains three categories of types:
//
// 1. Catalog entities: the stable, normalized shape of upstream payloads
//   - [Album] : Release metadata with audio quality, advisory flag and an optional track page
//   - [Track] : Song metadata that always embeds its fully populated parent [Album]
//   - [Artist] : Artist summary as returned by search and album payloads
//   - [ArtistProfile] : Biography plus a discography keyed by [ReleaseType]
//   - [Page] : Generic paginated slice with the items <= limit, items <= total invariant
//   - [SearchResults] : Albums, tracks and artists pages plus the permalink [EntityHint]
//   - [Stream] : Resolved stream URL with format details
//
// 2. Gateway values: per-call inputs and derived data that are never persisted
//   - [Credential], [CatalogQuery], [ClassifiedQuery], [SignedRequest], [ReleasesQuery], [Quality]
//
// 3. Persistent entities: database-backed models with full lifecycle management
//   - [Lookup] : History of gateway calls made through the CLI and HTTP surfaces
//
// Persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
