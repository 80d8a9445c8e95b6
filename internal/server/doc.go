// Package server exposes the catalog gateway as a small JSON HTTP surface for `qcat serve`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns internally.
//
// # Catalog Routes
//
// [CatalogHandler] serves GET routes only:
//
//	/api/get-music?q=&offset=&limit=&explicit=
//	/api/get-artist?artist_id=
//	/api/get-releases?artist_id=&release_type=&limit=&offset=&track_size=&explicit=
//	/api/get-album?album_id=
//	/api/download-music?track_id=&quality=
//	/api/health
//
// The Token-Country header is the region hint. Every response is an envelope:
//
//	{"success": true, "data": ...}
//	{"success": false, "error": "..."}
//
// Error kinds map to statuses through [StatusFor]: bad input and upstream rejections are 400, an unavailable
// stream is 404, transport and signature failures are 502.
//
// # Middleware
//
// [RequestID] assigns or propagates X-Request-Id, [Logging] writes one structured line per request and
// [Recover] converts panics into a 500 envelope.
package server
