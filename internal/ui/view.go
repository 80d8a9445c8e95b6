package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/qcat/internal/shared"
	"github.com/desertthunder/qcat/internal/tasks"
)

// View renders the current view with a header, a status line and contextual help.
func (m *Model) View() string {
	var b strings.Builder

	header := "qcat"
	if m.opts.Region != "" {
		header += " · " + shared.NormalizeRegion(m.opts.Region)
	}
	b.WriteString(styles.title.Render(header))
	b.WriteString("\n")

	switch m.view {
	case SearchView:
		b.WriteString(m.input.View())
		b.WriteString("\n")
	case ResultsView:
		b.WriteString(m.renderTabs())
		b.WriteString("\n")
		b.WriteString(m.tabs[m.tab].View())
	case AlbumView:
		b.WriteString(m.albumList.View())
	case ArtistView:
		b.WriteString(m.artistList.View())
	case ResolveView:
		b.WriteString(m.renderResolve())
	}

	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(styles.err.Render("Error: " + m.err.Error()))
	case m.status != "":
		b.WriteString(styles.ok.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(styles.help.Render(m.help.View(m.keys)))
	return b.String()
}

func (m *Model) renderTabs() string {
	tabs := make([]string, tabCount)
	for i, name := range tabNames {
		if i == m.tab {
			tabs[i] = styles.activeTab.Render(name)
		} else {
			tabs[i] = styles.tab.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) renderResolve() string {
	var b strings.Builder

	if m.album != nil {
		fmt.Fprintf(&b, "%s - %s\n\n", m.album.ArtistNames(", "), m.album.DisplayTitle())
	}

	if m.resolved == nil {
		if m.progress.Total > 0 {
			fmt.Fprintf(&b, "[%d/%d] ", m.progress.Step, m.progress.Total)
		}
		b.WriteString(m.progress.Message)
		if m.progress.Message == "" {
			b.WriteString("Starting...")
		}
		b.WriteString("\n")
		return b.String()
	}

	for _, r := range m.resolved.Results {
		b.WriteString(renderTrackResult(r))
		b.WriteString("\n")
	}
	return b.String()
}

func renderTrackResult(r tasks.TrackStreamResult) string {
	label := fmt.Sprintf("%2d. %s", r.Track.TrackNumber, r.Track.DisplayTitle())
	if r.Error != nil {
		return styles.err.Render("✗ ") + label + styles.warn.Render(" ("+r.Error.Error()+")")
	}
	region := r.Region
	if region == "" {
		region = "default"
	}
	return styles.ok.Render("✓ ") + label + styles.help.Render(fmt.Sprintf(" [%s]", region))
}
