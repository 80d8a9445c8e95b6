// Catalog API implementation of [Catalog]
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/qcat/internal/models"
	"github.com/desertthunder/qcat/internal/shared"
)

const (
	endpointSearch   = "catalog/search"
	endpointArtist   = "artist/page"
	endpointReleases = "artist/getReleasesList"
	endpointAlbum    = "album/get"
	endpointFileURL  = "track/getFileUrl"

	defaultSearchLimit = 10
)

// CatalogOpts configures a [CatalogService].
type CatalogOpts struct {
	Config *shared.Config
	// HTTPClient overrides the client built from the transport plan. SOCKS egress is then
	// the caller's responsibility and a configured proxy is logged as bypassed; relay
	// rewriting still applies.
	HTTPClient *http.Client
	Logger     *log.Logger
	// Now returns the clock used for request timestamps. Defaults to [time.Now].
	Now func() time.Time
}

// CatalogService implements [Catalog] against the upstream catalog API.
//
// It holds only immutable state and is safe for concurrent use.
type CatalogService struct {
	appID      string
	secret     string
	baseURL    string
	pool       *CredentialPool
	plan       TransportPlan
	classifier *Classifier
	httpClient *http.Client
	logger     *log.Logger
	now        func() time.Time
}

// NewCatalogService validates the configuration and builds the service.
//
// Missing app id, credentials, secret or base URL fail with [shared.ErrConfiguration]
// before any request is made.
func NewCatalogService(opts CatalogOpts) (*CatalogService, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: no configuration", shared.ErrConfiguration)
	}
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid upstream.base_url %q", shared.ErrConfiguration, cfg.Upstream.BaseURL)
	}

	pool, err := NewCredentialPoolFromConfig(cfg.Upstream)
	if err != nil {
		return nil, err
	}

	plan, err := NewTransportPlanFromConfig(cfg.Transport)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	logger = shared.WithLogger(logger, "service", "catalog")

	client := opts.HTTPClient
	if client == nil {
		if client, err = plan.HTTPClient(cfg.Transport.Timeout.Duration); err != nil {
			return nil, err
		}
	} else if plan.UsesSOCKS() {
		logger.Warn("custom http client bypasses configured socks5 proxy", "mode", plan.Mode())
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &CatalogService{
		appID:      cfg.Upstream.AppID,
		secret:     cfg.Upstream.Secret,
		baseURL:    strings.TrimSuffix(cfg.Upstream.BaseURL, "/") + "/",
		pool:       pool,
		plan:       plan,
		classifier: NewClassifier(cfg.Upstream.PermalinkDomain),
		httpClient: client,
		logger:     logger,
		now:        now,
	}, nil
}

// Classifier returns the permalink classifier used by Search.
func (s *CatalogService) Classifier() *Classifier {
	return s.classifier
}

// Regions returns the configured region codes in configuration order.
func (s *CatalogService) Regions() []string {
	return s.pool.Regions()
}

// send issues one GET against endpoint and returns the response status and body.
// Transport failures are reported as [shared.ErrUpstreamUnavailable].
func (s *CatalogService) send(ctx context.Context, op, endpoint string, params url.Values, region string) (*http.Response, []byte, error) {
	token, err := s.pool.Resolve(region)
	if err != nil {
		return nil, nil, err
	}

	target := s.baseURL + strings.TrimPrefix(endpoint, "/")
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.plan.Target(target), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-App-Id", s.appID)
	req.Header.Set("X-User-Auth-Token", token)
	req.Header.Set("Accept", "application/json")
	s.plan.Decorate(req)

	requestID := shared.GenerateID()
	s.logger.Debug("upstream request", "op", op, "endpoint", endpoint, "region", region, "transport", s.plan.Mode(), "request_id", requestID)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, &UpstreamError{Kind: shared.ErrUpstreamUnavailable, Operation: op, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &UpstreamError{Kind: shared.ErrUpstreamUnavailable, Operation: op, Status: resp.StatusCode, Cause: err}
	}

	s.logger.Debug("upstream response", "op", op, "status", resp.StatusCode, "bytes", len(body), "request_id", requestID)
	return resp, body, nil
}

// doRequest performs a request and decodes a 2xx body into result.
func (s *CatalogService) doRequest(ctx context.Context, op, endpoint string, params url.Values, region string, signed bool, result any) error {
	resp, body, err := s.send(ctx, op, endpoint, params, region)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyFailure(op, resp.StatusCode, body, signed)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return &UpstreamError{
				Kind:      shared.ErrUpstreamUnavailable,
				Operation: op,
				Status:    resp.StatusCode,
				Message:   "undecodable response body",
				Cause:     err,
			}
		}
	}
	return nil
}

// classifyFailure maps a non-2xx response onto an error kind.
//
// On the signed call a 401/403 is a signature rejection whatever the body. Otherwise bodies
// without a structured error are unavailable, and structured errors are rejections unless the
// signed call's message mentions the signature or timestamp.
func classifyFailure(op string, status int, body []byte, signed bool) error {
	var e rawError
	authFailed := status == http.StatusUnauthorized || status == http.StatusForbidden
	if err := json.Unmarshal(body, &e); err != nil || (e.Message == "" && e.Status == "") {
		if signed && authFailed {
			return &UpstreamError{Kind: shared.ErrSignatureRejected, Operation: op, Status: status}
		}
		return &UpstreamError{Kind: shared.ErrUpstreamUnavailable, Operation: op, Status: status}
	}

	kind := shared.ErrUpstreamRejected
	if signed && (authFailed || mentionsSignature(e.Message)) {
		kind = shared.ErrSignatureRejected
	}
	return &UpstreamError{Kind: kind, Operation: op, Status: status, Code: e.Code, Message: e.Message}
}

func mentionsSignature(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "signature") || strings.Contains(msg, "request_sig") ||
		strings.Contains(msg, "request_ts") || strings.Contains(msg, "timestamp")
}

// Search classifies text and runs a catalog search with the resulting term.
//
// A permalink is searched by its id and the result carries the entity hint in SwitchTo.
func (s *CatalogService) Search(ctx context.Context, text string, limit, offset int, region string) (*models.SearchResults, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: negative offset", shared.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	classified := s.classifier.Classify(text)
	params := url.Values{}
	params.Set("query", classified.Term)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	var raw rawSearch
	if err := s.doRequest(ctx, "search", endpointSearch, params, region, false, &raw); err != nil {
		return nil, err
	}

	return toSearchResults(raw, classified.Term, classified.Hint, s.logger), nil
}

// GetArtistProfile fetches an artist page and reshapes its discography by release type.
func (s *CatalogService) GetArtistProfile(ctx context.Context, artistID, region string) (*models.ArtistProfile, error) {
	if strings.TrimSpace(artistID) == "" {
		return nil, fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}

	params := url.Values{}
	params.Set("artist_id", artistID)
	params.Set("sort", "release_date")

	var raw rawArtistPage
	if err := s.doRequest(ctx, "artist", endpointArtist, params, region, false, &raw); err != nil {
		return nil, err
	}
	return toArtistProfile(raw, s.logger), nil
}

// GetArtistReleases lists one page of an artist's releases of a single type, newest first.
func (s *CatalogService) GetArtistReleases(ctx context.Context, q models.ReleasesQuery, region string) (*models.Page[models.Album], error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("artist_id", q.ArtistID)
	params.Set("release_type", string(q.ReleaseType))
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", strconv.Itoa(q.Offset))
	params.Set("track_size", strconv.Itoa(q.TrackSize))
	params.Set("sort", "release_date")

	var raw rawPage[rawAlbum]
	if err := s.doRequest(ctx, "releases", endpointReleases, params, region, false, &raw); err != nil {
		return nil, err
	}

	albums := make([]models.Album, 0, len(raw.Items))
	for _, a := range raw.Items {
		albums = append(albums, toAlbum(a))
	}

	page := models.NewPage(albums, q.Limit, q.Offset, pageTotal(raw.Total, q.Offset+len(albums)))
	page.HasMore = raw.HasMore
	return &page, nil
}

// GetAlbum fetches an album with its full track listing.
//
// Every track embeds the album it belongs to.
func (s *CatalogService) GetAlbum(ctx context.Context, albumID, region string) (*models.Album, error) {
	if strings.TrimSpace(albumID) == "" {
		return nil, fmt.Errorf("%w: album id", shared.ErrMissingArgument)
	}

	params := url.Values{}
	params.Set("album_id", albumID)
	params.Set("extra", "track_ids")

	var raw rawAlbum
	if err := s.doRequest(ctx, "album", endpointAlbum, params, region, false, &raw); err != nil {
		return nil, err
	}

	album := toAlbum(raw)
	if !album.Complete() {
		return nil, &UpstreamError{Kind: shared.ErrUpstreamUnavailable, Operation: "album", Status: http.StatusOK, Message: "album payload missing id or title"}
	}

	if raw.Tracks != nil {
		parent := album
		tracks := toTracks(raw.Tracks.Items, &parent, s.logger)
		page := models.NewPage(tracks, raw.Tracks.Limit, raw.Tracks.Offset, pageTotal(raw.Tracks.Total, len(tracks)))
		album.Tracks = &page
	}
	return &album, nil
}

// ResolveStream signs and issues a stream URL lookup for a track.
//
// A response without a URL, or a sample with restrictions attached, fails with
// [shared.ErrStreamUnavailable]; retrying with another region may succeed.
func (s *CatalogService) ResolveStream(ctx context.Context, trackID int64, quality models.Quality, region string) (*models.Stream, error) {
	if trackID <= 0 {
		return nil, fmt.Errorf("%w: track id %d", shared.ErrInvalidArgument, trackID)
	}
	if quality == "" {
		quality = models.QualityCD
	}
	quality, err := models.ParseQuality(string(quality))
	if err != nil {
		return nil, err
	}

	signed := Sign(trackID, quality, s.secret, s.now().Unix())

	params := url.Values{}
	params.Set("format_id", string(quality))
	params.Set("intent", "stream")
	params.Set("track_id", strconv.FormatInt(trackID, 10))
	params.Set("request_ts", strconv.FormatInt(signed.Timestamp, 10))
	params.Set("request_sig", signed.Signature)

	var raw rawFileURL
	if err := s.doRequest(ctx, "stream", endpointFileURL, params, region, true, &raw); err != nil {
		return nil, err
	}

	stream := &models.Stream{
		TrackID:      trackID,
		Quality:      quality,
		FormatID:     raw.FormatID,
		URL:          raw.URL,
		MimeType:     raw.MimeType,
		SamplingRate: raw.SamplingRate,
		BitDepth:     raw.BitDepth,
		Sample:       raw.Sample,
	}
	codes := make([]string, 0, len(raw.Restrictions))
	for _, r := range raw.Restrictions {
		stream.Restrictions = append(stream.Restrictions, models.Restriction{Code: r.Code})
		codes = append(codes, r.Code)
	}

	if stream.URL == "" || (stream.Sample && len(codes) > 0) {
		return nil, &UpstreamError{
			Kind:      shared.ErrStreamUnavailable,
			Operation: "stream",
			Status:    http.StatusOK,
			Message:   strings.Join(codes, ", "),
		}
	}
	return stream, nil
}

// ResolveStreamURL returns only the URL of [CatalogService.ResolveStream].
func (s *CatalogService) ResolveStreamURL(ctx context.Context, trackID int64, quality models.Quality, region string) (string, error) {
	stream, err := s.ResolveStream(ctx, trackID, quality, region)
	if err != nil {
		return "", err
	}
	return stream.URL, nil
}
