package models

import (
	"fmt"
	"strings"

	"github.com/desertthunder/qcat/internal/shared"
)

// EntityHint names the kind of entity a permalink pointed at. The zero value means free text.
type EntityHint string

const (
	HintNone   EntityHint = ""
	HintAlbum  EntityHint = "album"
	HintTrack  EntityHint = "track"
	HintArtist EntityHint = "artist"
)

// Tab returns the plural result tab a UI should focus for the hint ("albums", "tracks", "artists").
func (h EntityHint) Tab() string {
	if h == HintNone {
		return ""
	}
	return string(h) + "s"
}

// ReleaseType is one of the fixed discography groupings.
type ReleaseType string

const (
	ReleaseAlbum       ReleaseType = "album"
	ReleaseLive        ReleaseType = "live"
	ReleaseCompilation ReleaseType = "compilation"
	ReleaseEPSingle    ReleaseType = "epSingle"
)

// ReleaseTypes returns the closed set of release types in display order.
func ReleaseTypes() []ReleaseType {
	return []ReleaseType{ReleaseAlbum, ReleaseLive, ReleaseCompilation, ReleaseEPSingle}
}

// ParseReleaseType matches s against the known release types.
func ParseReleaseType(s string) (ReleaseType, error) {
	for _, rt := range ReleaseTypes() {
		if string(rt) == s {
			return rt, nil
		}
	}
	return "", fmt.Errorf("%w: release type %q", shared.ErrInvalidArgument, s)
}

// Quality is the upstream format id used when resolving a stream.
type Quality string

const (
	QualityMP3      Quality = "5"  // 320kbps MP3
	QualityCD       Quality = "6"  // 16-bit / 44.1kHz FLAC
	QualityHiRes96  Quality = "7"  // 24-bit / up to 96kHz FLAC
	QualityHiRes192 Quality = "27" // 24-bit / up to 192kHz FLAC
)

// Qualities returns every tier from best to worst.
func Qualities() []Quality {
	return []Quality{QualityHiRes192, QualityHiRes96, QualityCD, QualityMP3}
}

// ParseQuality accepts a format id ("27") or a short name ("hires192", "hires96", "cd", "mp3").
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "27", "hires192", "max":
		return QualityHiRes192, nil
	case "7", "hires96", "hires":
		return QualityHiRes96, nil
	case "6", "cd", "flac":
		return QualityCD, nil
	case "5", "mp3":
		return QualityMP3, nil
	}
	return "", fmt.Errorf("%w: quality %q", shared.ErrInvalidArgument, s)
}

// Label is a human readable description of the tier.
func (q Quality) Label() string {
	switch q {
	case QualityHiRes192:
		return "24-bit / 192kHz"
	case QualityHiRes96:
		return "24-bit / 96kHz"
	case QualityCD:
		return "16-bit / 44.1kHz"
	case QualityMP3:
		return "320kbps MP3"
	default:
		return string(q)
	}
}

// Credential pairs a region code with an upstream user token.
type Credential struct {
	Region string
	Token  string
}

// CatalogQuery is the raw caller input for a search.
type CatalogQuery struct {
	RawText    string
	RegionHint string
}

// ClassifiedQuery is the search term derived from a [CatalogQuery].
//
// When the input was a permalink, Term is the extracted id and Hint names its entity.
type ClassifiedQuery struct {
	Term string
	Hint EntityHint
}

// SignedRequest carries the timestamp and signature of one signed call.
type SignedRequest struct {
	Timestamp int64
	Signature string
}

// Image holds the size variants the upstream publishes for a cover or portrait.
type Image struct {
	Thumbnail  string `json:"thumbnail,omitempty"`
	Small      string `json:"small,omitempty"`
	Medium     string `json:"medium,omitempty"`
	Large      string `json:"large,omitempty"`
	ExtraLarge string `json:"extralarge,omitempty"`
	Mega       string `json:"mega,omitempty"`
	Back       string `json:"back,omitempty"`
}

type Label struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	AlbumsCount int    `json:"albums_count,omitempty"`
}

type Genre struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Color string  `json:"color,omitempty"`
	Path  []int64 `json:"path,omitempty"`
}

// Contributor is an artist credited on an album along with their roles.
type Contributor struct {
	ID    int64    `json:"id"`
	Name  string   `json:"name"`
	Roles []string `json:"roles,omitempty"`
}

// Performer is the main artist of a track.
type Performer struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Artist is the summary shape used by search results and album payloads.
type Artist struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	AlbumsCount int    `json:"albums_count"`
	Image       *Image `json:"image,omitempty"`
}

// Album is a release. Tracks is only populated by album detail lookups.
type Album struct {
	ID                  string        `json:"id"`
	UpstreamID          int64         `json:"qobuz_id,omitempty"`
	Title               string        `json:"title"`
	Version             string        `json:"version,omitempty"`
	Artist              Artist        `json:"artist"`
	Artists             []Contributor `json:"artists,omitempty"`
	Image               Image         `json:"image"`
	Label               Label         `json:"label"`
	Genre               Genre         `json:"genre"`
	UPC                 string        `json:"upc,omitempty"`
	ReleasedAt          int64         `json:"released_at"`
	ReleaseDateOriginal string        `json:"release_date_original"`
	Duration            int           `json:"duration"`
	TracksCount         int           `json:"tracks_count"`
	MaximumBitDepth     int           `json:"maximum_bit_depth"`
	MaximumSamplingRate float64       `json:"maximum_sampling_rate"`
	ParentalWarning     bool          `json:"parental_warning"`
	Hires               bool          `json:"hires"`
	Streamable          bool          `json:"streamable"`
	Tracks              *Page[Track]  `json:"tracks,omitempty"`
}

// Complete reports whether the album carries the fields a [Track] relies on.
func (a Album) Complete() bool {
	return a.ID != "" && a.Title != ""
}

// Track is a single recording. Album is always a complete [Album].
type Track struct {
	ID                  int64      `json:"id"`
	Title               string     `json:"title"`
	Version             string     `json:"version,omitempty"`
	ISRC                string     `json:"isrc,omitempty"`
	Copyright           string     `json:"copyright,omitempty"`
	Performer           Performer  `json:"performer"`
	Composer            *Performer `json:"composer,omitempty"`
	Album               Album      `json:"album"`
	TrackNumber         int        `json:"track_number"`
	MediaNumber         int        `json:"media_number"`
	ReleasedAt          int64      `json:"released_at"`
	Duration            int        `json:"duration"`
	MaximumBitDepth     int        `json:"maximum_bit_depth"`
	MaximumSamplingRate float64    `json:"maximum_sampling_rate"`
	ParentalWarning     bool       `json:"parental_warning"`
	Hires               bool       `json:"hires"`
	Streamable          bool       `json:"streamable"`
}

// Page is one slice of a paginated listing.
type Page[T any] struct {
	Items   []T  `json:"items"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more,omitempty"`
}

// NewPage builds a page and enforces len(Items) <= Limit and len(Items) <= Total.
//
// Items beyond a positive limit are dropped. A non-positive limit becomes len(items).
// A total smaller than the item count is raised to it.
func NewPage[T any](items []T, limit, offset, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	if limit <= 0 {
		limit = len(items)
	}
	if total < len(items) {
		total = len(items)
	}
	return Page[T]{Items: items, Limit: limit, Offset: offset, Total: total}
}

// SearchResults is the normalized response of a catalog search.
type SearchResults struct {
	Query    string       `json:"query"`
	SwitchTo EntityHint   `json:"switchTo,omitempty"`
	Albums   Page[Album]  `json:"albums"`
	Tracks   Page[Track]  `json:"tracks"`
	Artists  Page[Artist] `json:"artists"`
}

// Biography is the artist's description text.
type Biography struct {
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

// Portrait identifies an artist image by hash and format.
type Portrait struct {
	Hash   string `json:"hash"`
	Format string `json:"format"`
}

// ReleaseGroup is one discography bucket.
type ReleaseGroup struct {
	HasMore bool    `json:"has_more"`
	Items   []Album `json:"items"`
}

// ArtistProfile is an artist page with its discography.
//
// Releases only holds the release types the upstream actually returned.
type ArtistProfile struct {
	ID        int64                        `json:"id"`
	Name      string                       `json:"name"`
	Category  string                       `json:"artist_category,omitempty"`
	Biography Biography                    `json:"biography"`
	Portrait  *Portrait                    `json:"portrait,omitempty"`
	TopTracks []Track                      `json:"top_tracks,omitempty"`
	Releases  map[ReleaseType]ReleaseGroup `json:"releases"`
}

// ReleasesQuery selects a page of an artist's discography.
type ReleasesQuery struct {
	ArtistID    string
	ReleaseType ReleaseType
	Limit       int
	Offset      int
	TrackSize   int
}

// DefaultReleasesQuery returns the listing defaults for artistID: albums, 10 per page, 1000 tracks per release.
func DefaultReleasesQuery(artistID string) ReleasesQuery {
	return ReleasesQuery{
		ArtistID:    artistID,
		ReleaseType: ReleaseAlbum,
		Limit:       10,
		Offset:      0,
		TrackSize:   1000,
	}
}

// Validate checks the query before it is sent upstream.
func (q ReleasesQuery) Validate() error {
	if strings.TrimSpace(q.ArtistID) == "" {
		return fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}
	if _, err := ParseReleaseType(string(q.ReleaseType)); err != nil {
		return err
	}
	if q.Limit < 0 || q.Offset < 0 || q.TrackSize < 0 {
		return fmt.Errorf("%w: negative paging value", shared.ErrInvalidArgument)
	}
	if q.Limit == 0 {
		return fmt.Errorf("%w: limit must be positive", shared.ErrInvalidArgument)
	}
	return nil
}

// Restriction is a reason the upstream attached to a stream resolution.
type Restriction struct {
	Code string `json:"code"`
}

// Stream is the result of resolving a track to a playable file.
type Stream struct {
	TrackID      int64         `json:"track_id"`
	Quality      Quality       `json:"quality"`
	FormatID     int           `json:"format_id"`
	URL          string        `json:"url"`
	MimeType     string        `json:"mime_type,omitempty"`
	SamplingRate float64       `json:"sampling_rate,omitempty"`
	BitDepth     int           `json:"bit_depth,omitempty"`
	Sample       bool          `json:"sample"`
	Restrictions []Restriction `json:"restrictions,omitempty"`
}

// Playable reports whether the stream points at the full file.
func (s Stream) Playable() bool {
	return s.URL != "" && !s.Sample
}
