package models

import "strings"

const variousArtists = "Various Artists"

func displayTitle(title, version string) string {
	if version == "" {
		return strings.TrimSpace(title)
	}
	return strings.TrimSpace(title + " (" + version + ")")
}

func contributorNames(artists []Contributor, sep string) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, sep)
}

// DisplayTitle returns the title with the version appended in parentheses.
func (a Album) DisplayTitle() string {
	return displayTitle(a.Title, a.Version)
}

// ArtistNames joins the credited contributors with sep.
//
// Albums without contributors fall back to the main artist, then to "Various Artists".
func (a Album) ArtistNames(sep string) string {
	if len(a.Artists) > 0 {
		return contributorNames(a.Artists, sep)
	}
	if a.Artist.Name != "" {
		return a.Artist.Name
	}
	return variousArtists
}

// FullResImageURL rewrites the large cover URL ("..._600.jpg") to the original resolution file ("..._org.jpg").
func (a Album) FullResImageURL() string {
	large := a.Image.Large
	if len(large) < 7 {
		return large
	}
	return large[:len(large)-7] + "org.jpg"
}

// DisplayTitle returns the title with the version appended in parentheses.
func (t Track) DisplayTitle() string {
	return displayTitle(t.Title, t.Version)
}

// ArtistNames joins the album contributors with sep, falling back to the performer.
func (t Track) ArtistNames(sep string) string {
	if len(t.Album.Artists) > 0 {
		return contributorNames(t.Album.Artists, sep)
	}
	if t.Performer.Name != "" {
		return t.Performer.Name
	}
	return variousArtists
}
