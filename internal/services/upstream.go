// Upstream catalog response shapes.
//
// These mirror the JSON the catalog API returns and are only used for decoding.
// normalize.go maps them onto [models] types.
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// flexID decodes identifiers the upstream sends either as strings or as numbers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %s", data)
	}
	*f = flexID(n.String())
	return nil
}

// Int64 returns the numeric value of the id, or 0 when it is not numeric.
func (f flexID) Int64() int64 {
	n, _ := strconv.ParseInt(string(f), 10, 64)
	return n
}

// flexName decodes names sent either as plain strings or as {"display": "..."} objects.
type flexName string

func (f *flexName) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
		return nil
	case len(data) > 0 && data[0] == '{':
		var obj struct {
			Display string `json:"display"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*f = flexName(obj.Display)
		return nil
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexName(s)
		return nil
	}
}

type rawImage struct {
	Thumbnail  string `json:"thumbnail"`
	Small      string `json:"small"`
	Medium     string `json:"medium"`
	Large      string `json:"large"`
	ExtraLarge string `json:"extralarge"`
	Mega       string `json:"mega"`
	Back       string `json:"back"`
}

type rawLabel struct {
	ID          flexID   `json:"id"`
	Name        flexName `json:"name"`
	AlbumsCount int      `json:"albums_count"`
}

type rawGenre struct {
	ID    flexID   `json:"id"`
	Name  flexName `json:"name"`
	Color string   `json:"color"`
	Path  []int64  `json:"path"`
}

type rawArtist struct {
	ID          flexID    `json:"id"`
	Name        flexName  `json:"name"`
	AlbumsCount int       `json:"albums_count"`
	Image       *rawImage `json:"image"`
}

type rawContributor struct {
	ID    flexID   `json:"id"`
	Name  flexName `json:"name"`
	Roles []string `json:"roles"`
}

type rawPerformer struct {
	ID   flexID   `json:"id"`
	Name flexName `json:"name"`
}

// rawAudioInfo, rawRights and rawDates only appear on discography items.
type rawAudioInfo struct {
	MaximumSamplingRate float64 `json:"maximum_sampling_rate"`
	MaximumBitDepth     int     `json:"maximum_bit_depth"`
}

type rawRights struct {
	Streamable bool `json:"streamable"`
}

type rawDates struct {
	Original string `json:"original"`
	Stream   string `json:"stream"`
}

type rawPage[T any] struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Total   *int `json:"total"`
	HasMore bool `json:"has_more"`
	Items   []T  `json:"items"`
}

type rawAlbum struct {
	ID                  flexID           `json:"id"`
	QobuzID             flexID           `json:"qobuz_id"`
	Title               string           `json:"title"`
	Version             string           `json:"version"`
	Artist              rawArtist        `json:"artist"`
	Artists             []rawContributor `json:"artists"`
	Image               rawImage         `json:"image"`
	Label               rawLabel         `json:"label"`
	Genre               rawGenre         `json:"genre"`
	UPC                 string           `json:"upc"`
	ReleasedAt          int64            `json:"released_at"`
	ReleaseDateOriginal string           `json:"release_date_original"`
	Duration            int              `json:"duration"`
	TracksCount         int              `json:"tracks_count"`
	MaximumBitDepth     int              `json:"maximum_bit_depth"`
	MaximumSamplingRate float64          `json:"maximum_sampling_rate"`
	ParentalWarning     bool             `json:"parental_warning"`
	Hires               bool             `json:"hires"`
	Streamable          bool             `json:"streamable"`

	Tracks    *rawPage[rawTrack] `json:"tracks"`
	AudioInfo *rawAudioInfo      `json:"audio_info"`
	Rights    *rawRights         `json:"rights"`
	Dates     *rawDates          `json:"dates"`
}

type rawTrack struct {
	ID                  flexID        `json:"id"`
	Title               string        `json:"title"`
	Version             string        `json:"version"`
	ISRC                string        `json:"isrc"`
	Copyright           string        `json:"copyright"`
	Performer           rawPerformer  `json:"performer"`
	Composer            *rawPerformer `json:"composer"`
	Album               *rawAlbum     `json:"album"`
	TrackNumber         int           `json:"track_number"`
	MediaNumber         int           `json:"media_number"`
	ReleasedAt          int64         `json:"released_at"`
	Duration            int           `json:"duration"`
	MaximumBitDepth     int           `json:"maximum_bit_depth"`
	MaximumSamplingRate float64       `json:"maximum_sampling_rate"`
	ParentalWarning     bool          `json:"parental_warning"`
	Hires               bool          `json:"hires"`
	Streamable          bool          `json:"streamable"`

	AudioInfo *rawAudioInfo `json:"audio_info"`
	Rights    *rawRights    `json:"rights"`
}

// rawSearch is the catalog/search payload.
type rawSearch struct {
	Query   string             `json:"query"`
	Albums  rawPage[rawAlbum]  `json:"albums"`
	Tracks  rawPage[rawTrack]  `json:"tracks"`
	Artists rawPage[rawArtist] `json:"artists"`
}

// rawArtistPage is the artist/page payload. Releases is decoded group by group.
type rawArtistPage struct {
	ID        flexID   `json:"id"`
	Name      flexName `json:"name"`
	Category  string   `json:"artist_category"`
	Biography *struct {
		Content  string `json:"content"`
		Language string `json:"language"`
	} `json:"biography"`
	Images struct {
		Portrait *struct {
			Hash   string `json:"hash"`
			Format string `json:"format"`
		} `json:"portrait"`
	} `json:"images"`
	TopTracks []rawTrack      `json:"top_tracks"`
	Releases  json.RawMessage `json:"releases"`
}

// rawReleaseGroup is one element of artist/page "releases".
type rawReleaseGroup struct {
	Type    string     `json:"type"`
	HasMore bool       `json:"has_more"`
	Items   []rawAlbum `json:"items"`
}

// rawFileURL is the track/getFileUrl payload.
type rawFileURL struct {
	TrackID      flexID  `json:"track_id"`
	Duration     int     `json:"duration"`
	URL          string  `json:"url"`
	FormatID     int     `json:"format_id"`
	MimeType     string  `json:"mime_type"`
	SamplingRate float64 `json:"sampling_rate"`
	BitDepth     int     `json:"bit_depth"`
	Sample       bool    `json:"sample"`
	Restrictions []struct {
		Code string `json:"code"`
	} `json:"restrictions"`
}

// rawError is the body the upstream sends with non-2xx responses.
type rawError struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}
