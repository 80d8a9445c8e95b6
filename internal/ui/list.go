package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/qcat/internal/models"
	"github.com/desertthunder/qcat/internal/shared"
)

var (
	_ list.Item = albumItem{}
	_ list.Item = trackItem{}
	_ list.Item = artistItem{}
)

func explicitTag(explicit bool) string {
	if explicit {
		return " [E]"
	}
	return ""
}

// albumItem wraps [models.Album] to implement [list.Item].
type albumItem struct {
	album models.Album
}

func (i albumItem) FilterValue() string { return i.album.Title }
func (i albumItem) Title() string       { return i.album.DisplayTitle() + explicitTag(i.album.ParentalWarning) }
func (i albumItem) Description() string {
	desc := fmt.Sprintf("%s • %d tracks", i.album.ArtistNames(", "), i.album.TracksCount)
	if i.album.Hires {
		desc += fmt.Sprintf(" • %d-bit/%gkHz", i.album.MaximumBitDepth, i.album.MaximumSamplingRate)
	}
	return desc
}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track    models.Track
	numbered bool
}

func (i trackItem) FilterValue() string { return i.track.Title }
func (i trackItem) Title() string {
	title := i.track.DisplayTitle() + explicitTag(i.track.ParentalWarning)
	if i.numbered {
		return fmt.Sprintf("%2d. %s", i.track.TrackNumber, title)
	}
	return title
}
func (i trackItem) Description() string {
	return fmt.Sprintf("%s • %s • %s", i.track.ArtistNames(", "), i.track.Album.Title, shared.FormatDuration(i.track.Duration))
}

// artistItem wraps [models.Artist] to implement [list.Item].
type artistItem struct {
	artist models.Artist
}

func (i artistItem) FilterValue() string { return i.artist.Name }
func (i artistItem) Title() string       { return i.artist.Name }
func (i artistItem) Description() string { return fmt.Sprintf("%d albums", i.artist.AlbumsCount) }

func albumItems(albums []models.Album) []list.Item {
	items := make([]list.Item, len(albums))
	for i, a := range albums {
		items[i] = albumItem{album: a}
	}
	return items
}

func trackItems(tracks []models.Track, numbered bool) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{track: t, numbered: numbered}
	}
	return items
}

func artistItems(artists []models.Artist) []list.Item {
	items := make([]list.Item, len(artists))
	for i, a := range artists {
		items[i] = artistItem{artist: a}
	}
	return items
}

// releaseItems flattens a profile's discography in release type order.
func releaseItems(profile *models.ArtistProfile) []list.Item {
	var items []list.Item
	for _, rt := range models.ReleaseTypes() {
		group, ok := profile.Releases[rt]
		if !ok {
			continue
		}
		items = append(items, albumItems(group.Items)...)
	}
	return items
}
