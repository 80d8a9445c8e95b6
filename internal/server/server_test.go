package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/qcat/internal/models"
	"github.com/desertthunder/qcat/internal/services"
	"github.com/desertthunder/qcat/internal/shared"
	tu "github.com/desertthunder/qcat/internal/testing"
)

type recordedLookup struct {
	op, query, region string
	hint              models.EntityHint
	results           int
}

type fakeHistory struct {
	mu      sync.Mutex
	lookups []recordedLookup
	err     error
}

func (f *fakeHistory) Record(op, query, region string, hint models.EntityHint, results int) (*models.Lookup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.lookups = append(f.lookups, recordedLookup{op, query, region, hint, results})
	return models.NewLookup(len(f.lookups), op, query, region), nil
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func do(t *testing.T, h http.Handler, method, target, region string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if region != "" {
		req.Header.Set(RegionHeader, region)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body response
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not a JSON envelope: %v (%q)", err, rec.Body.String())
	}
	return rec, body
}

func TestCatalogHandler(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("Search", func(t *testing.T) {
		mock := &tu.MockCatalog{
			SearchFunc: func(ctx context.Context, text string, limit, offset int, region string) (*models.SearchResults, error) {
				if limit != 5 || offset != 10 {
					t.Errorf("expected limit 5 offset 10, got %d/%d", limit, offset)
				}
				return &models.SearchResults{
					Query:    "XYZ1",
					SwitchTo: models.HintAlbum,
					Albums: models.NewPage([]models.Album{
						{ID: "a", Title: "Clean"},
						{ID: "b", Title: "Dirty", ParentalWarning: true},
					}, 5, 10, 40),
				}, nil
			},
		}
		history := &fakeHistory{}
		api := NewAPI(mock, history, logger)

		rec, body := do(t, api, http.MethodGet, "/api/get-music?q=https://play.example.com/album/XYZ1&offset=10&limit=5&explicit=false", "us")
		if rec.Code != http.StatusOK || !body.Success {
			t.Fatalf("expected success, got %d %+v", rec.Code, body)
		}

		var results models.SearchResults
		if err := json.Unmarshal(body.Data, &results); err != nil {
			t.Fatalf("failed to decode data: %v", err)
		}
		if len(results.Albums.Items) != 1 || results.Albums.Items[0].ID != "a" {
			t.Errorf("expected explicit album filtered out, got %+v", results.Albums.Items)
		}
		if results.Albums.Total != 40 {
			t.Errorf("expected total untouched, got %d", results.Albums.Total)
		}
		if results.SwitchTo != models.HintAlbum {
			t.Errorf("expected switchTo album, got %q", results.SwitchTo)
		}

		if calls := mock.Calls(); len(calls) != 1 || calls[0] != "search:https://play.example.com/album/XYZ1@US" {
			t.Errorf("unexpected calls %v", calls)
		}
		if len(history.lookups) != 1 || history.lookups[0].hint != models.HintAlbum || history.lookups[0].results != 1 {
			t.Errorf("unexpected history %+v", history.lookups)
		}
	})

	t.Run("Search validation", func(t *testing.T) {
		api := NewAPI(&tu.MockCatalog{}, nil, logger)

		tt := []string{
			"/api/get-music",
			"/api/get-music?q=%20",
			"/api/get-music?q=x&offset=-1",
			"/api/get-music?q=x&limit=ten",
			"/api/get-music?q=x&explicit=maybe",
		}
		for _, target := range tt {
			rec, body := do(t, api, http.MethodGet, target, "")
			if rec.Code != http.StatusBadRequest || body.Success || body.Error == "" {
				t.Errorf("%s: expected 400 envelope, got %d %+v", target, rec.Code, body)
			}
		}
	})

	t.Run("Artist", func(t *testing.T) {
		mock := &tu.MockCatalog{
			ArtistFunc: func(ctx context.Context, artistID, region string) (*models.ArtistProfile, error) {
				return &models.ArtistProfile{
					ID:   36819,
					Name: "Daft Punk",
					Releases: map[models.ReleaseType]models.ReleaseGroup{
						models.ReleaseAlbum: {Items: []models.Album{{ID: "a", Title: "A"}}},
					},
				}, nil
			},
		}
		history := &fakeHistory{}
		rec, body := do(t, NewAPI(mock, history, logger), http.MethodGet, "/api/get-artist?artist_id=36819", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(string(body.Data), `"album":{"has_more":false`) {
			t.Errorf("expected keyed releases, got %s", body.Data)
		}
		if history.lookups[0].op != models.OpArtist || history.lookups[0].results != 1 {
			t.Errorf("unexpected history %+v", history.lookups)
		}

		rec, _ = do(t, NewAPI(mock, nil, logger), http.MethodGet, "/api/get-artist", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 without artist_id, got %d", rec.Code)
		}
	})

	t.Run("Releases", func(t *testing.T) {
		var got models.ReleasesQuery
		mock := &tu.MockCatalog{
			ReleasesFunc: func(ctx context.Context, q models.ReleasesQuery, region string) (*models.Page[models.Album], error) {
				got = q
				page := models.NewPage([]models.Album{{ID: "l", Title: "Live", ParentalWarning: true}}, q.Limit, q.Offset, 3)
				page.HasMore = true
				return &page, nil
			},
		}
		api := NewAPI(mock, nil, logger)

		rec, body := do(t, api, http.MethodGet, "/api/get-releases?artist_id=1&release_type=live&limit=20&offset=40&track_size=5", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d %+v", rec.Code, body)
		}
		want := models.ReleasesQuery{ArtistID: "1", ReleaseType: models.ReleaseLive, Limit: 20, Offset: 40, TrackSize: 5}
		if got != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}

		rec, _ = do(t, api, http.MethodGet, "/api/get-releases?artist_id=1", "")
		if rec.Code != http.StatusOK || got != models.DefaultReleasesQuery("1") {
			t.Errorf("expected defaults, got %+v (%d)", got, rec.Code)
		}

		_, body = do(t, api, http.MethodGet, "/api/get-releases?artist_id=1&explicit=false", "")
		var page models.Page[models.Album]
		if err := json.Unmarshal(body.Data, &page); err != nil {
			t.Fatalf("failed to decode page: %v", err)
		}
		if len(page.Items) != 0 || !page.HasMore {
			t.Errorf("expected filtered page keeping has_more, got %+v", page)
		}

		for _, target := range []string{"/api/get-releases", "/api/get-releases?artist_id=1&release_type=bootleg"} {
			if rec, _ := do(t, api, http.MethodGet, target, ""); rec.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", target, rec.Code)
			}
		}
	})

	t.Run("Album", func(t *testing.T) {
		mock := &tu.MockCatalog{}
		rec, body := do(t, NewAPI(mock, nil, logger), http.MethodGet, "/api/get-album?album_id=0060254735180", "fr")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(string(body.Data), `"id":"0060254735180"`) {
			t.Errorf("unexpected album %s", body.Data)
		}
		if calls := mock.Calls(); calls[0] != "album:0060254735180@FR" {
			t.Errorf("expected FR region, got %v", calls)
		}
	})

	t.Run("Stream", func(t *testing.T) {
		var quality models.Quality
		mock := &tu.MockCatalog{
			ResolveStreamFunc: func(ctx context.Context, trackID int64, q models.Quality, region string) (*models.Stream, error) {
				quality = q
				return &models.Stream{TrackID: trackID, Quality: q, URL: "https://files.example.com/x.flac"}, nil
			},
		}
		api := NewAPI(mock, nil, logger)

		rec, body := do(t, api, http.MethodGet, "/api/download-music?track_id=99999&quality=27", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if quality != models.QualityHiRes192 {
			t.Errorf("expected quality 27, got %s", quality)
		}
		var stream models.Stream
		if err := json.Unmarshal(body.Data, &stream); err != nil || stream.URL != "https://files.example.com/x.flac" {
			t.Errorf("unexpected stream %s (%v)", body.Data, err)
		}

		do(t, api, http.MethodGet, "/api/download-music?track_id=1", "")
		if quality != models.QualityCD {
			t.Errorf("expected default CD quality, got %s", quality)
		}

		for _, target := range []string{
			"/api/download-music",
			"/api/download-music?track_id=abc",
			"/api/download-music?track_id=0",
			"/api/download-music?track_id=1&quality=vinyl",
		} {
			if rec, _ := do(t, api, http.MethodGet, target, ""); rec.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", target, rec.Code)
			}
		}
	})

	t.Run("Error Mapping", func(t *testing.T) {
		tt := []struct {
			err  error
			want int
		}{
			{&services.UpstreamError{Kind: shared.ErrUpstreamUnavailable, Operation: "album"}, http.StatusBadGateway},
			{&services.UpstreamError{Kind: shared.ErrUpstreamRejected, Operation: "album", Status: 400}, http.StatusBadRequest},
			{&services.UpstreamError{Kind: shared.ErrSignatureRejected, Operation: "stream"}, http.StatusBadGateway},
			{&services.UpstreamError{Kind: shared.ErrStreamUnavailable, Operation: "stream"}, http.StatusNotFound},
			{&services.UpstreamError{Kind: shared.ErrUpstreamUnavailable, Cause: context.DeadlineExceeded}, http.StatusBadGateway},
			{context.DeadlineExceeded, http.StatusGatewayTimeout},
			{context.Canceled, http.StatusServiceUnavailable},
			{errors.New("boom"), http.StatusInternalServerError},
		}

		for _, tc := range tt {
			mock := &tu.MockCatalog{
				AlbumFunc: func(ctx context.Context, albumID, region string) (*models.Album, error) {
					return nil, tc.err
				},
			}
			rec, body := do(t, NewAPI(mock, nil, logger), http.MethodGet, "/api/get-album?album_id=x", "")
			if rec.Code != tc.want {
				t.Errorf("%v: expected %d, got %d", tc.err, tc.want, rec.Code)
			}
			if body.Success || body.Error != tc.err.Error() {
				t.Errorf("%v: unexpected envelope %+v", tc.err, body)
			}
		}
	})

	t.Run("History failures are not fatal", func(t *testing.T) {
		history := &fakeHistory{err: errors.New("database locked")}
		rec, _ := do(t, NewAPI(&tu.MockCatalog{}, history, logger), http.MethodGet, "/api/get-album?album_id=x", "")
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("Health", func(t *testing.T) {
		rec, body := do(t, NewAPI(&tu.MockCatalog{}, nil, logger), http.MethodGet, RouteHealth, "")
		if rec.Code != http.StatusOK || string(body.Data) != `{"status":"ok"}` {
			t.Errorf("unexpected health %d %s", rec.Code, body.Data)
		}
	})

	t.Run("Method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, RouteSearch, nil)
		rec := httptest.NewRecorder()
		NewAPI(&tu.MockCatalog{}, nil, logger).ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("RequestID assigns and propagates", func(t *testing.T) {
		var seen string
		h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestIDFromContext(r.Context())
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
			t.Errorf("expected generated id echoed, got %q / %q", seen, rec.Header().Get(RequestIDHeader))
		}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if seen != "abc-123" || rec.Header().Get(RequestIDHeader) != "abc-123" {
			t.Errorf("expected caller id kept, got %q", seen)
		}
	})

	t.Run("Logging", func(t *testing.T) {
		var buf bytes.Buffer
		logger := shared.NewLogger(&buf)
		h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/brew", nil))
		out := buf.String()
		if !strings.Contains(out, "path=/brew") || !strings.Contains(out, "status=418") {
			t.Errorf("unexpected log line %q", out)
		}
	})

	t.Run("Recover", func(t *testing.T) {
		logger := shared.NewLogger(io.Discard)
		h := Recover(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("kaboom")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), `"success":false`) {
			t.Errorf("expected 500 envelope, got %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mark("first"), mark("second"))
		router.Handle(http.MethodGet, "/x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		if strings.Join(order, ",") != "first,second" {
			t.Errorf("expected first,second got %v", order)
		}
		if p := router.Patterns(); len(p) != 1 || p[0] != "GET /x" {
			t.Errorf("unexpected patterns %v", p)
		}
	})
}

func TestServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	srv := NewServer(shared.ServerConfig{Host: "127.0.0.1", Port: 0}, NewAPI(&tu.MockCatalog{}, nil, shared.NewLogger(io.Discard)), shared.NewLogger(io.Discard))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get(fmt.Sprintf("http://%s%s", ln.Addr().String(), RouteHealth))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
