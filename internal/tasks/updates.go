package tasks

import (
	"fmt"

	"github.com/desertthunder/qcat/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchAlbum Phase = iota
	ResolveStreams
	FetchReleases
)

func (p Phase) String() string {
	switch p {
	case FetchAlbum:
		return "fetch_album"
	case ResolveStreams:
		return "resolve_streams"
	case FetchReleases:
		return "fetch_releases"
	default:
		return ""
	}
}

func fetchingAlbumUpdate(albumID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchAlbum,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching album %s...", albumID),
	}
}

func foundAlbumUpdate(album *models.Album, cached bool) ProgressUpdate {
	source := "catalog"
	if cached {
		source = "cache"
	}
	total := 0
	if album.Tracks != nil {
		total = len(album.Tracks.Items)
	}
	return ProgressUpdate{
		Phase:   FetchAlbum,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found album: %s (%d tracks, from %s)", album.DisplayTitle(), total, source),
		Data:    album,
	}
}

func streamResolvedUpdate(step, total int, res TrackStreamResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveStreams,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, res.Track.DisplayTitle()),
		Data:    res,
	}
}

func streamFailedUpdate(step, total int, res TrackStreamResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveStreams,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Track.DisplayTitle(), res.Error),
		Data:    res,
	}
}

func fetchReleasesUpdate(step, total int, rt models.ReleaseType, offset int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchReleases,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching %s releases (offset %d)...", rt, offset),
	}
}
