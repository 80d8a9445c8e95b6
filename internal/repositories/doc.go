// Package repositories implements SQLite persistence for the CLI and HTTP surfaces.
//
// Nothing here is required by the catalog gateway itself; a missing database only disables history and caching.
//
// Key Implementations:
//   - [LookupRepository] : history of gateway calls with soft deletes
//   - [AlbumCache] : normalized album payloads keyed by album id and region, expired by TTL
//
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
