// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/qcat/internal/models"
)

// MockCatalog is a test double for [services.Catalog].
//
// Each operation delegates to its Func field when set and otherwise returns an empty value.
// Calls are recorded as "op:arg@region" and are safe to inspect from concurrent tests.
type MockCatalog struct {
	SearchFunc        func(ctx context.Context, text string, limit, offset int, region string) (*models.SearchResults, error)
	ArtistFunc        func(ctx context.Context, artistID, region string) (*models.ArtistProfile, error)
	ReleasesFunc      func(ctx context.Context, q models.ReleasesQuery, region string) (*models.Page[models.Album], error)
	AlbumFunc         func(ctx context.Context, albumID, region string) (*models.Album, error)
	ResolveStreamFunc func(ctx context.Context, trackID int64, quality models.Quality, region string) (*models.Stream, error)

	mu    sync.Mutex
	calls []string
}

func (m *MockCatalog) record(op, arg, region string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, fmt.Sprintf("%s:%s@%s", op, arg, region))
}

// Calls returns a copy of the recorded calls.
func (m *MockCatalog) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockCatalog) Search(ctx context.Context, text string, limit, offset int, region string) (*models.SearchResults, error) {
	m.record("search", text, region)
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, text, limit, offset, region)
	}
	return &models.SearchResults{Query: text}, nil
}

func (m *MockCatalog) GetArtistProfile(ctx context.Context, artistID, region string) (*models.ArtistProfile, error) {
	m.record("artist", artistID, region)
	if m.ArtistFunc != nil {
		return m.ArtistFunc(ctx, artistID, region)
	}
	return &models.ArtistProfile{Releases: map[models.ReleaseType]models.ReleaseGroup{}}, nil
}

func (m *MockCatalog) GetArtistReleases(ctx context.Context, q models.ReleasesQuery, region string) (*models.Page[models.Album], error) {
	m.record("releases", q.ArtistID, region)
	if m.ReleasesFunc != nil {
		return m.ReleasesFunc(ctx, q, region)
	}
	page := models.NewPage[models.Album](nil, q.Limit, q.Offset, 0)
	return &page, nil
}

func (m *MockCatalog) GetAlbum(ctx context.Context, albumID, region string) (*models.Album, error) {
	m.record("album", albumID, region)
	if m.AlbumFunc != nil {
		return m.AlbumFunc(ctx, albumID, region)
	}
	return &models.Album{ID: albumID, Title: albumID}, nil
}

func (m *MockCatalog) ResolveStream(ctx context.Context, trackID int64, quality models.Quality, region string) (*models.Stream, error) {
	m.record("stream", fmt.Sprint(trackID), region)
	if m.ResolveStreamFunc != nil {
		return m.ResolveStreamFunc(ctx, trackID, quality, region)
	}
	return &models.Stream{TrackID: trackID, Quality: quality, URL: fmt.Sprintf("https://files.example.com/%d", trackID)}, nil
}

func (m *MockCatalog) ResolveStreamURL(ctx context.Context, trackID int64, quality models.Quality, region string) (string, error) {
	stream, err := m.ResolveStream(ctx, trackID, quality, region)
	if err != nil {
		return "", err
	}
	return stream.URL, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
