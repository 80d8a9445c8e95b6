// Package tasks orchestrates catalog jobs that span many gateway calls, with real-time progress reporting.
//
// # Core Operations
//
//  1. [CatalogEngine.ResolveAlbum] : Resolve a stream for every track of an album
//     - Fetches the album (through the optional [AlbumCacher])
//     - Resolves tracks on a bounded worker pool (errgroup) paced by a shared rate limiter
//     - Falls back to the next region hint when a stream is unavailable
//     - Reports per-track failures in the result instead of failing the job
//
//  2. [CatalogEngine.FetchDiscography] : Walk every page of an artist's releases
//     - One listing per release type, newest first
//     - Stops a type on the first error and records it
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// Region fallback lives here and not in the gateway: the gateway makes exactly one attempt per call.
package tasks
