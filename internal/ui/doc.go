// Package ui implements an interactive catalog browser using bubbletea's Elm architecture.
//
// Views:
//  1. [SearchView] : Free text or a pasted permalink
//  2. [ResultsView] : Albums, tracks and artists in tabs; a permalink opens on its entity's tab
//  3. [AlbumView] : Track listing; "s" resolves a stream URL, "a" resolves the whole album
//  4. [ArtistView] : Discography grouped by release type
//  5. [ResolveView] : Live progress of an album resolution, then per-track results
//
// Gateway calls run as tea.Cmd functions and report back through the Msg union.
// Album resolution progress flows through a channel from the [tasks.CatalogEngine].
package ui
