package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/qcat/internal/models"
	"github.com/desertthunder/qcat/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
	err  error
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSearchDone MsgKind = iota
	MsgAlbumFetched
	MsgArtistFetched
	MsgStreamResolved
	MsgProgressUpdate
	MsgAlbumResolved
)

// Kind reports which constructor built the message.
func (m Msg) Kind() MsgKind { return m.kind }

// searchDoneMsg is the constructor for [MsgSearchDone]
func searchDoneMsg(results *models.SearchResults, err error) Msg {
	return Msg{kind: MsgSearchDone, data: results, err: err}
}

// albumFetchedMsg is the constructor for [MsgAlbumFetched]
func albumFetchedMsg(album *models.Album, err error) Msg {
	return Msg{kind: MsgAlbumFetched, data: album, err: err}
}

// artistFetchedMsg is the constructor for [MsgArtistFetched]
func artistFetchedMsg(profile *models.ArtistProfile, err error) Msg {
	return Msg{kind: MsgArtistFetched, data: profile, err: err}
}

// streamResolvedMsg is the constructor for [MsgStreamResolved]
func streamResolvedMsg(stream *models.Stream, err error) Msg {
	return Msg{kind: MsgStreamResolved, data: stream, err: err}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// albumResolvedMsg is the constructor for [MsgAlbumResolved]
func albumResolvedMsg(result *tasks.AlbumStreamResult, err error) Msg {
	return Msg{kind: MsgAlbumResolved, data: result, err: err}
}
