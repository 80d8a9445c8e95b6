package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/qcat/internal/models"
	"github.com/desertthunder/qcat/internal/services"
	"github.com/desertthunder/qcat/internal/shared"
)

// RegionHeader selects the credential region for a request.
const RegionHeader = "Token-Country"

// Route paths served by [CatalogHandler].
const (
	RouteSearch   = "/api/get-music"
	RouteArtist   = "/api/get-artist"
	RouteReleases = "/api/get-releases"
	RouteAlbum    = "/api/get-album"
	RouteStream   = "/api/download-music"
	RouteHealth   = "/api/health"
)

// LookupRecorder stores a finished lookup (repositories.LookupRepository).
type LookupRecorder interface {
	Record(operation, query, region string, hint models.EntityHint, results int) (*models.Lookup, error)
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// StatusFor maps a gateway error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrStreamUnavailable):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrUpstreamRejected):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrSignatureRejected),
		errors.Is(err, shared.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// CatalogHandler exposes the gateway operations as JSON endpoints.
type CatalogHandler struct {
	catalog services.Catalog
	history LookupRecorder
	logger  *log.Logger
}

// NewCatalogHandler creates a handler over catalog. history may be nil.
func NewCatalogHandler(catalog services.Catalog, history LookupRecorder, logger *log.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, history: history, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *CatalogHandler) Routes() []string {
	return []string{RouteSearch, RouteArtist, RouteReleases, RouteAlbum, RouteStream, RouteHealth}
}

// ServeHTTP dispatches on the request path.
func (h *CatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	region := shared.NormalizeRegion(r.Header.Get(RegionHeader))

	var (
		data any
		err  error
	)
	switch r.URL.Path {
	case RouteSearch:
		data, err = h.search(r, region)
	case RouteArtist:
		data, err = h.artist(r, region)
	case RouteReleases:
		data, err = h.releases(r, region)
	case RouteAlbum:
		data, err = h.album(r, region)
	case RouteStream:
		data, err = h.stream(r, region)
	case RouteHealth:
		data = map[string]string{"status": "ok"}
	default:
		writeJSON(w, http.StatusNotFound, envelope{Error: "not found"})
		return
	}

	if err != nil {
		status := StatusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("catalog request failed", "path", r.URL.Path, "error", err)
		} else {
			h.logger.Debug("catalog request failed", "path", r.URL.Path, "error", err)
		}
		writeJSON(w, status, envelope{Success: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func (h *CatalogHandler) record(op, query, region string, hint models.EntityHint, results int) {
	if h.history == nil {
		return
	}
	if _, err := h.history.Record(op, query, region, hint, results); err != nil {
		h.logger.Warn("failed to record lookup", "operation", op, "error", err)
	}
}

func (h *CatalogHandler) search(r *http.Request, region string) (any, error) {
	q := r.URL.Query()
	text := q.Get("q")
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: q", shared.ErrMissingArgument)
	}

	offset, err := intParam(q.Get("offset"), "offset", 0)
	if err != nil {
		return nil, err
	}
	limit, err := intParam(q.Get("limit"), "limit", 10)
	if err != nil {
		return nil, err
	}
	explicit, err := boolParam(q.Get("explicit"), "explicit", true)
	if err != nil {
		return nil, err
	}

	results, err := h.catalog.Search(r.Context(), text, limit, offset, region)
	if err != nil {
		return nil, err
	}
	results = services.FilterExplicit(results, explicit)

	count := len(results.Albums.Items) + len(results.Tracks.Items) + len(results.Artists.Items)
	h.record(models.OpSearch, text, region, results.SwitchTo, count)
	return results, nil
}

func (h *CatalogHandler) artist(r *http.Request, region string) (any, error) {
	id := r.URL.Query().Get("artist_id")
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: artist_id", shared.ErrMissingArgument)
	}

	profile, err := h.catalog.GetArtistProfile(r.Context(), id, region)
	if err != nil {
		return nil, err
	}

	count := 0
	for _, group := range profile.Releases {
		count += len(group.Items)
	}
	h.record(models.OpArtist, id, region, models.HintArtist, count)
	return profile, nil
}

func (h *CatalogHandler) releases(r *http.Request, region string) (any, error) {
	q := r.URL.Query()
	query := models.DefaultReleasesQuery(q.Get("artist_id"))
	if strings.TrimSpace(query.ArtistID) == "" {
		return nil, fmt.Errorf("%w: artist_id", shared.ErrMissingArgument)
	}

	if rt := q.Get("release_type"); rt != "" {
		parsed, err := models.ParseReleaseType(rt)
		if err != nil {
			return nil, err
		}
		query.ReleaseType = parsed
	}

	var err error
	if query.Limit, err = intParam(q.Get("limit"), "limit", query.Limit); err != nil {
		return nil, err
	}
	if query.Offset, err = intParam(q.Get("offset"), "offset", query.Offset); err != nil {
		return nil, err
	}
	if query.TrackSize, err = intParam(q.Get("track_size"), "track_size", query.TrackSize); err != nil {
		return nil, err
	}
	explicit, err := boolParam(q.Get("explicit"), "explicit", true)
	if err != nil {
		return nil, err
	}

	page, err := h.catalog.GetArtistReleases(r.Context(), query, region)
	if err != nil {
		return nil, err
	}
	filtered := services.FilterExplicitAlbums(*page, explicit)

	h.record(models.OpReleases, query.ArtistID, region, models.HintArtist, len(filtered.Items))
	return filtered, nil
}

func (h *CatalogHandler) album(r *http.Request, region string) (any, error) {
	id := r.URL.Query().Get("album_id")
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: album_id", shared.ErrMissingArgument)
	}

	album, err := h.catalog.GetAlbum(r.Context(), id, region)
	if err != nil {
		return nil, err
	}

	h.record(models.OpAlbum, id, region, models.HintAlbum, album.TracksCount)
	return album, nil
}

func (h *CatalogHandler) stream(r *http.Request, region string) (any, error) {
	q := r.URL.Query()
	raw := q.Get("track_id")
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: track_id", shared.ErrMissingArgument)
	}
	trackID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || trackID <= 0 {
		return nil, fmt.Errorf("%w: track_id %q", shared.ErrInvalidArgument, raw)
	}

	quality := models.QualityCD
	if v := q.Get("quality"); v != "" {
		if quality, err = models.ParseQuality(v); err != nil {
			return nil, err
		}
	}

	stream, err := h.catalog.ResolveStream(r.Context(), trackID, quality, region)
	if err != nil {
		return nil, err
	}

	h.record(models.OpStream, raw, region, models.HintTrack, 1)
	return stream, nil
}

func intParam(raw, name string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", shared.ErrInvalidArgument, name)
	}
	return n, nil
}

func boolParam(raw, name string, def bool) (bool, error) {
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be true or false", shared.ErrInvalidArgument, name)
	}
	return b, nil
}

// NewAPI builds the router for `qcat serve`.
func NewAPI(catalog services.Catalog, history LookupRecorder, logger *log.Logger) *BasicRouter {
	router := NewBasicRouter()
	router.Use(RequestID(), Logging(logger), Recover(logger))
	router.Handler(NewCatalogHandler(catalog, history, logger))
	return router
}
