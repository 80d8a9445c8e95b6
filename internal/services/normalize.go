package services

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/qcat/internal/models"
)

func toImage(r rawImage) models.Image {
	return models.Image{
		Thumbnail:  r.Thumbnail,
		Small:      r.Small,
		Medium:     r.Medium,
		Large:      r.Large,
		ExtraLarge: r.ExtraLarge,
		Mega:       r.Mega,
		Back:       r.Back,
	}
}

func toArtist(r rawArtist) models.Artist {
	a := models.Artist{ID: r.ID.Int64(), Name: string(r.Name), AlbumsCount: r.AlbumsCount}
	if r.Image != nil {
		img := toImage(*r.Image)
		a.Image = &img
	}
	return a
}

func toPerformer(r rawPerformer) models.Performer {
	return models.Performer{ID: r.ID.Int64(), Name: string(r.Name)}
}

// toAlbum maps an album payload. Discography items carry quality, rights and dates in nested
// objects; when present those take precedence over the flat fields.
func toAlbum(r rawAlbum) models.Album {
	a := models.Album{
		ID:                  string(r.ID),
		UpstreamID:          r.QobuzID.Int64(),
		Title:               r.Title,
		Version:             r.Version,
		Artist:              toArtist(r.Artist),
		Image:               toImage(r.Image),
		Label:               models.Label{ID: r.Label.ID.Int64(), Name: string(r.Label.Name), AlbumsCount: r.Label.AlbumsCount},
		Genre:               models.Genre{ID: r.Genre.ID.Int64(), Name: string(r.Genre.Name), Color: r.Genre.Color, Path: r.Genre.Path},
		UPC:                 r.UPC,
		ReleasedAt:          r.ReleasedAt,
		ReleaseDateOriginal: r.ReleaseDateOriginal,
		Duration:            r.Duration,
		TracksCount:         r.TracksCount,
		MaximumBitDepth:     r.MaximumBitDepth,
		MaximumSamplingRate: r.MaximumSamplingRate,
		ParentalWarning:     r.ParentalWarning,
		Hires:               r.Hires,
		Streamable:          r.Streamable,
	}

	for _, c := range r.Artists {
		a.Artists = append(a.Artists, models.Contributor{ID: c.ID.Int64(), Name: string(c.Name), Roles: c.Roles})
	}

	if r.AudioInfo != nil {
		a.MaximumSamplingRate = r.AudioInfo.MaximumSamplingRate
		a.MaximumBitDepth = r.AudioInfo.MaximumBitDepth
	}
	if r.Rights != nil {
		a.Streamable = r.Rights.Streamable
	}
	if r.Dates != nil {
		if ts, ok := parseReleaseDate(r.Dates.Stream); ok {
			a.ReleasedAt = ts
		}
		if r.Dates.Original != "" {
			a.ReleaseDateOriginal = r.Dates.Original
		}
	}

	return a
}

// parseReleaseDate converts "2006-01-02" or RFC 3339 dates to unix seconds.
func parseReleaseDate(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Unix(), true
		}
	}
	return 0, false
}

// toTrack maps a track payload. The embedded album comes from parent when given, otherwise
// from the payload itself. ok is false when that album is incomplete.
func toTrack(r rawTrack, parent *models.Album) (models.Track, bool) {
	t := models.Track{
		ID:                  r.ID.Int64(),
		Title:               r.Title,
		Version:             r.Version,
		ISRC:                r.ISRC,
		Copyright:           r.Copyright,
		Performer:           toPerformer(r.Performer),
		TrackNumber:         r.TrackNumber,
		MediaNumber:         r.MediaNumber,
		ReleasedAt:          r.ReleasedAt,
		Duration:            r.Duration,
		MaximumBitDepth:     r.MaximumBitDepth,
		MaximumSamplingRate: r.MaximumSamplingRate,
		ParentalWarning:     r.ParentalWarning,
		Hires:               r.Hires,
		Streamable:          r.Streamable,
	}
	if r.Composer != nil {
		c := toPerformer(*r.Composer)
		t.Composer = &c
	}
	if r.AudioInfo != nil {
		t.MaximumSamplingRate = r.AudioInfo.MaximumSamplingRate
		t.MaximumBitDepth = r.AudioInfo.MaximumBitDepth
	}
	if r.Rights != nil {
		t.Streamable = r.Rights.Streamable
	}

	switch {
	case parent != nil:
		t.Album = *parent
	case r.Album != nil:
		t.Album = toAlbum(*r.Album)
	}
	t.Album.Tracks = nil

	return t, t.Album.Complete()
}

// toTracks maps every track, dropping those whose album is incomplete.
func toTracks(items []rawTrack, parent *models.Album, logger *log.Logger) []models.Track {
	tracks := make([]models.Track, 0, len(items))
	for _, r := range items {
		t, ok := toTrack(r, parent)
		if !ok {
			logger.Warn("dropping track without a complete album", "track_id", t.ID)
			continue
		}
		tracks = append(tracks, t)
	}
	return tracks
}

func pageTotal(total *int, fallback int) int {
	if total == nil {
		return fallback
	}
	return *total
}

func toSearchResults(r rawSearch, query string, hint models.EntityHint, logger *log.Logger) *models.SearchResults {
	albums := make([]models.Album, 0, len(r.Albums.Items))
	for _, a := range r.Albums.Items {
		albums = append(albums, toAlbum(a))
	}

	artists := make([]models.Artist, 0, len(r.Artists.Items))
	for _, a := range r.Artists.Items {
		artists = append(artists, toArtist(a))
	}

	tracks := toTracks(r.Tracks.Items, nil, logger)

	if r.Query != "" {
		query = r.Query
	}

	return &models.SearchResults{
		Query:    query,
		SwitchTo: hint,
		Albums:   models.NewPage(albums, r.Albums.Limit, r.Albums.Offset, pageTotal(r.Albums.Total, len(albums))),
		Tracks:   models.NewPage(tracks, r.Tracks.Limit, r.Tracks.Offset, pageTotal(r.Tracks.Total, len(tracks))),
		Artists:  models.NewPage(artists, r.Artists.Limit, r.Artists.Offset, pageTotal(r.Artists.Total, len(artists))),
	}
}

func toArtistProfile(r rawArtistPage, logger *log.Logger) *models.ArtistProfile {
	p := &models.ArtistProfile{
		ID:       r.ID.Int64(),
		Name:     string(r.Name),
		Category: r.Category,
		Releases: ReshapeReleases(r.Releases, logger),
	}
	if r.Biography != nil {
		p.Biography = models.Biography{Content: r.Biography.Content, Language: r.Biography.Language}
	}
	if r.Images.Portrait != nil {
		p.Portrait = &models.Portrait{Hash: r.Images.Portrait.Hash, Format: r.Images.Portrait.Format}
	}
	if len(r.TopTracks) > 0 {
		p.TopTracks = toTracks(r.TopTracks, nil, logger)
	}
	return p
}

// ReshapeReleases turns the upstream discography, a list of {type, has_more, items} groups in
// arbitrary order, into a mapping over the known release types.
//
// Each group is decoded on its own: a group that fails to decode is logged and omitted, unknown
// types are skipped, and the first group of a type wins. An empty or absent list yields an empty
// mapping. Input that is already keyed by release type is accepted as is.
func ReshapeReleases(data json.RawMessage, logger *log.Logger) map[models.ReleaseType]models.ReleaseGroup {
	out := make(map[models.ReleaseType]models.ReleaseGroup)

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return out
	}

	var groups []json.RawMessage
	if err := json.Unmarshal(data, &groups); err != nil {
		var keyed map[string]json.RawMessage
		if kerr := json.Unmarshal(data, &keyed); kerr != nil {
			logger.Warn("discarding unrecognized releases payload", "error", err)
			return out
		}
		for key, raw := range keyed {
			groups = append(groups, withType(key, raw))
		}
	}

	for i, raw := range groups {
		var g rawReleaseGroup
		if err := json.Unmarshal(raw, &g); err != nil {
			logger.Warn("omitting release group", "index", i, "error", err)
			continue
		}

		rt, err := models.ParseReleaseType(g.Type)
		if err != nil {
			logger.Debug("skipping unknown release type", "type", g.Type)
			continue
		}
		if _, dup := out[rt]; dup {
			continue
		}

		items := make([]models.Album, 0, len(g.Items))
		for _, a := range g.Items {
			items = append(items, toAlbum(a))
		}
		out[rt] = models.ReleaseGroup{HasMore: g.HasMore, Items: items}
	}

	return out
}

// withType injects "type": key into a keyed group object so it decodes like a list element.
func withType(key string, raw json.RawMessage) json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return raw
	}
	t, _ := json.Marshal(key)
	fields["type"] = t
	merged, err := json.Marshal(fields)
	if err != nil {
		return raw
	}
	return merged
}

// FilterExplicit drops albums and tracks flagged with a parental warning unless allowExplicit is set.
//
// Relative order is preserved and paging totals are left untouched: only the fetched page is
// filtered. With allowExplicit the input is returned as is.
func FilterExplicit(results *models.SearchResults, allowExplicit bool) *models.SearchResults {
	if allowExplicit || results == nil {
		return results
	}

	filtered := *results
	filtered.Albums = FilterExplicitAlbums(results.Albums, false)

	tracks := make([]models.Track, 0, len(results.Tracks.Items))
	for _, t := range results.Tracks.Items {
		if !t.ParentalWarning {
			tracks = append(tracks, t)
		}
	}
	filtered.Tracks.Items = tracks

	return &filtered
}

// FilterExplicitAlbums applies the [FilterExplicit] rule to a page of albums.
func FilterExplicitAlbums(page models.Page[models.Album], allowExplicit bool) models.Page[models.Album] {
	if allowExplicit {
		return page
	}

	albums := make([]models.Album, 0, len(page.Items))
	for _, a := range page.Items {
		if !a.ParentalWarning {
			albums = append(albums, a)
		}
	}
	page.Items = albums
	return page
}
