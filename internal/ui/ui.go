package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/qcat/internal/models"
	"github.com/desertthunder/qcat/internal/services"
	"github.com/desertthunder/qcat/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SearchView ViewState = iota
	ResultsView
	AlbumView
	ArtistView
	ResolveView
)

const (
	tabAlbums = iota
	tabTracks
	tabArtists
	tabCount
)

var tabNames = [tabCount]string{"Albums", "Tracks", "Artists"}

// tabFor picks the results tab for a permalink hint. Free text opens on albums.
func tabFor(hint models.EntityHint) int {
	switch hint {
	case models.HintTrack:
		return tabTracks
	case models.HintArtist:
		return tabArtists
	default:
		return tabAlbums
	}
}

// Options are the per-session settings taken from flags and config.
type Options struct {
	Region        string         // Region hint for every call
	Regions       []string       // Fallback order for album resolution
	Quality       models.Quality // Stream quality
	Limit         int            // Search page size
	AllowExplicit bool
	Workers       int
	RateLimit     float64
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	catalog services.Catalog
	engine  *tasks.CatalogEngine
	opts    Options

	view    ViewState
	history []ViewState
	width   int
	height  int

	input      textinput.Model
	results    *models.SearchResults
	tab        int
	tabs       [tabCount]list.Model
	album      *models.Album
	albumList  list.Model
	artist     *models.ArtistProfile
	artistList list.Model

	status  string
	loading bool
	err     error

	progressChan <-chan tasks.ProgressUpdate
	doneChan     <-chan Msg
	progress     tasks.ProgressUpdate
	resolved     *tasks.AlbumStreamResult

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model. engine may be nil, which disables album resolution.
func NewModel(ctx context.Context, catalog services.Catalog, engine *tasks.CatalogEngine, opts Options) *Model {
	if opts.Quality == "" {
		opts.Quality = models.QualityCD
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}

	input := textinput.New()
	input.Placeholder = "Search, or paste an album/track/artist link"
	input.Prompt = "› "
	input.CharLimit = 512
	input.Focus()

	return &Model{
		ctx:     ctx,
		catalog: catalog,
		engine:  engine,
		opts:    opts,
		view:    SearchView,
		input:   input,
		width:   80,
		height:  24,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// State returns the current view.
func (m *Model) State() ViewState { return m.view }

// Status returns the status line text.
func (m *Model) Status() string { return m.status }

// Init starts the cursor blink of the search input.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case SearchView:
			return m.handleSearchKeys(msg)
		case ResultsView:
			return m.handleResultsKeys(msg)
		case AlbumView:
			return m.handleAlbumKeys(msg)
		case ArtistView:
			return m.handleArtistKeys(msg)
		case ResolveView:
			return m.handleResolveKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSearchDone:
		m.loading = false
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.results = msg.data.(*models.SearchResults)
		m.tabs[tabAlbums] = m.newList(albumItems(m.results.Albums.Items), "Albums")
		m.tabs[tabTracks] = m.newList(trackItems(m.results.Tracks.Items, false), "Tracks")
		m.tabs[tabArtists] = m.newList(artistItems(m.results.Artists.Items), "Artists")
		m.tab = tabFor(m.results.SwitchTo)
		m.input.Blur()
		m.status = fmt.Sprintf("%d albums, %d tracks, %d artists",
			m.results.Albums.Total, m.results.Tracks.Total, m.results.Artists.Total)
		m.push(ResultsView)
		return m, nil

	case MsgAlbumFetched:
		m.loading = false
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.album = msg.data.(*models.Album)
		var tracks []models.Track
		if m.album.Tracks != nil {
			tracks = m.album.Tracks.Items
		}
		m.albumList = m.newList(trackItems(tracks, true), fmt.Sprintf("%s - %s", m.album.ArtistNames(", "), m.album.DisplayTitle()))
		m.status = ""
		m.push(AlbumView)
		return m, nil

	case MsgArtistFetched:
		m.loading = false
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.artist = msg.data.(*models.ArtistProfile)
		m.artistList = m.newList(releaseItems(m.artist), m.artist.Name)
		m.status = ""
		m.push(ArtistView)
		return m, nil

	case MsgStreamResolved:
		m.loading = false
		if msg.err != nil {
			return m.fail(msg.err)
		}
		stream := msg.data.(*models.Stream)
		m.err = nil
		m.status = fmt.Sprintf("%s: %s", stream.Quality.Label(), stream.URL)
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, waitForProgress(m.progressChan, m.doneChan)

	case MsgAlbumResolved:
		m.progressChan = nil
		m.doneChan = nil
		m.resolved, _ = msg.data.(*tasks.AlbumStreamResult)
		m.err = msg.err
		if m.resolved != nil {
			m.status = fmt.Sprintf("%d resolved, %d failed", m.resolved.ResolvedCount, m.resolved.FailedCount)
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) fail(err error) (tea.Model, tea.Cmd) {
	m.err = err
	m.status = ""
	return m, nil
}

func (m *Model) push(view ViewState) {
	if m.view != view {
		m.history = append(m.history, m.view)
	}
	m.view = view
}

func (m *Model) back() {
	m.err = nil
	if len(m.history) == 0 {
		m.view = SearchView
		m.input.Focus()
		return
	}
	m.view = m.history[len(m.history)-1]
	m.history = m.history[:len(m.history)-1]
	if m.view == SearchView {
		m.input.Focus()
	}
}

func (m *Model) openSearch() (tea.Model, tea.Cmd) {
	m.err = nil
	m.push(SearchView)
	m.input.SetValue("")
	return m, m.input.Focus()
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		if text == "" || m.loading {
			return m, nil
		}
		m.loading = true
		m.err = nil
		m.status = "Searching..."
		return m, m.search(text)
	case tea.KeyEsc:
		if m.results != nil {
			m.back()
			m.input.Blur()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleResultsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.search):
		return m.openSearch()
	case key.Matches(msg, m.keys.nextTab):
		m.tab = (m.tab + 1) % tabCount
		return m, nil
	case key.Matches(msg, m.keys.prevTab):
		m.tab = (m.tab + tabCount - 1) % tabCount
		return m, nil
	case key.Matches(msg, m.keys.back):
		m.back()
		return m, nil
	case key.Matches(msg, m.keys.enter):
		switch item := m.tabs[m.tab].SelectedItem().(type) {
		case albumItem:
			return m, m.fetchAlbum(item.album.ID)
		case trackItem:
			return m, m.fetchAlbum(item.track.Album.ID)
		case artistItem:
			return m, m.fetchArtist(fmt.Sprint(item.artist.ID))
		}
		return m, nil
	case key.Matches(msg, m.keys.stream):
		if item, ok := m.tabs[m.tab].SelectedItem().(trackItem); ok {
			return m, m.resolveStream(item.track.ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.tabs[m.tab], cmd = m.tabs[m.tab].Update(msg)
	return m, cmd
}

func (m *Model) handleAlbumKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.search):
		return m.openSearch()
	case key.Matches(msg, m.keys.back):
		m.back()
		return m, nil
	case key.Matches(msg, m.keys.enter), key.Matches(msg, m.keys.stream):
		if item, ok := m.albumList.SelectedItem().(trackItem); ok {
			return m, m.resolveStream(item.track.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.resolve):
		if m.engine == nil || m.album == nil || m.progressChan != nil {
			return m, nil
		}
		m.resolved = nil
		m.progress = tasks.ProgressUpdate{}
		m.push(ResolveView)
		return m, m.startResolve()
	}

	var cmd tea.Cmd
	m.albumList, cmd = m.albumList.Update(msg)
	return m, cmd
}

func (m *Model) handleArtistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.search):
		return m.openSearch()
	case key.Matches(msg, m.keys.back):
		m.back()
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.artistList.SelectedItem().(albumItem); ok {
			return m, m.fetchAlbum(item.album.ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.artistList, cmd = m.artistList.Update(msg)
	return m, cmd
}

func (m *Model) handleResolveKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.back()
	}
	return m, nil
}

func (m *Model) newList(items []list.Item, title string) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), m.listWidth(), m.listHeight())
	l.Title = title
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	return l
}

func (m *Model) listWidth() int  { return max(m.width-4, 20) }
func (m *Model) listHeight() int { return max(m.height-8, 5) }

func (m *Model) resize() {
	w, h := m.listWidth(), m.listHeight()
	if m.results != nil {
		for i := range m.tabs {
			m.tabs[i].SetSize(w, h)
		}
	}
	if m.album != nil {
		m.albumList.SetSize(w, h)
	}
	if m.artist != nil {
		m.artistList.SetSize(w, h)
	}
	m.input.Width = w
}

func (m *Model) search(text string) tea.Cmd {
	ctx, catalog, opts := m.ctx, m.catalog, m.opts
	return func() tea.Msg {
		results, err := catalog.Search(ctx, text, opts.Limit, 0, opts.Region)
		if err != nil {
			return searchDoneMsg(nil, err)
		}
		return searchDoneMsg(services.FilterExplicit(results, opts.AllowExplicit), nil)
	}
}

func (m *Model) fetchAlbum(albumID string) tea.Cmd {
	m.loading = true
	m.status = "Loading album..."
	ctx, catalog, region := m.ctx, m.catalog, m.opts.Region
	return func() tea.Msg {
		album, err := catalog.GetAlbum(ctx, albumID, region)
		return albumFetchedMsg(album, err)
	}
}

func (m *Model) fetchArtist(artistID string) tea.Cmd {
	m.loading = true
	m.status = "Loading artist..."
	ctx, catalog, region := m.ctx, m.catalog, m.opts.Region
	return func() tea.Msg {
		profile, err := catalog.GetArtistProfile(ctx, artistID, region)
		return artistFetchedMsg(profile, err)
	}
}

func (m *Model) resolveStream(trackID int64) tea.Cmd {
	m.loading = true
	m.status = "Resolving stream..."
	ctx, catalog, quality, region := m.ctx, m.catalog, m.opts.Quality, m.opts.Region
	return func() tea.Msg {
		stream, err := catalog.ResolveStream(ctx, trackID, quality, region)
		return streamResolvedMsg(stream, err)
	}
}

func (m *Model) startResolve() tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan Msg, 1)
	m.progressChan = progress
	m.doneChan = done

	regions := m.opts.Regions
	if len(regions) == 0 {
		regions = []string{m.opts.Region}
	}
	opts := tasks.ResolveOpts{
		Quality:    m.opts.Quality,
		Regions:    regions,
		NumWorkers: m.opts.Workers,
		RateLimit:  m.opts.RateLimit,
	}
	ctx, engine, albumID := m.ctx, m.engine, m.album.ID

	go func() {
		result, err := engine.ResolveAlbum(ctx, progress, albumID, opts)
		close(progress)
		done <- albumResolvedMsg(result, err)
	}()

	return waitForProgress(progress, done)
}

func waitForProgress(progress <-chan tasks.ProgressUpdate, done <-chan Msg) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}
