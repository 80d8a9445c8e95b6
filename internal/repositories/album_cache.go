package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/qcat/internal/models"
	"github.com/desertthunder/qcat/internal/shared"
)

// AlbumCache stores normalized albums keyed by album id and region hint.
//
// Entries older than the TTL are treated as misses; a non-positive TTL never expires.
type AlbumCache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewAlbumCache creates an [AlbumCache] over db with the given entry lifetime.
func NewAlbumCache(db *sql.DB, ttl time.Duration) *AlbumCache {
	return &AlbumCache{db: db, ttl: ttl, now: time.Now}
}

// Put stores or replaces the cached copy of album for region.
func (c *AlbumCache) Put(album *models.Album, region string) error {
	if album == nil || !album.Complete() {
		return fmt.Errorf("%w: album must have an id and title", shared.ErrInvalidInput)
	}

	payload, err := json.Marshal(album)
	if err != nil {
		return fmt.Errorf("failed to encode album %s: %w", album.ID, err)
	}

	query := `
		INSERT INTO album_cache (album_id, region, payload, fetched_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(album_id, region) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at
	`

	if _, err := c.db.Exec(query, album.ID, shared.NormalizeRegion(region), string(payload), c.now().UTC()); err != nil {
		return fmt.Errorf("failed to cache album: %w", err)
	}
	return nil
}

// Get returns the cached album and true on a fresh hit.
func (c *AlbumCache) Get(albumID, region string) (*models.Album, bool, error) {
	var (
		payload   string
		fetchedAt time.Time
	)

	query := `SELECT payload, fetched_at FROM album_cache WHERE album_id = ? AND region = ?`
	err := c.db.QueryRow(query, albumID, shared.NormalizeRegion(region)).Scan(&payload, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query album cache: %w", err)
	}

	if c.expired(fetchedAt) {
		return nil, false, nil
	}

	var album models.Album
	if err := json.Unmarshal([]byte(payload), &album); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached album %s: %w", albumID, err)
	}
	return &album, true, nil
}

// Purge removes expired entries and returns how many were deleted.
func (c *AlbumCache) Purge() (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}

	result, err := c.db.Exec(`DELETE FROM album_cache WHERE fetched_at < ?`, c.now().UTC().Add(-c.ttl))
	if err != nil {
		return 0, fmt.Errorf("failed to purge album cache: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}

// Clear empties the cache.
func (c *AlbumCache) Clear() (int64, error) {
	result, err := c.db.Exec(`DELETE FROM album_cache`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear album cache: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}

func (c *AlbumCache) expired(fetchedAt time.Time) bool {
	return c.ttl > 0 && c.now().Sub(fetchedAt) > c.ttl
}
