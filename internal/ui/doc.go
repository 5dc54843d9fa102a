// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through a single playlist analysis:
//  1. [PlaylistListView] : Browse and filter the user's playlists
//  2. [LoadingView] : Spinner with progress while tracks and features are fetched
//  3. [TableView] : Joined tracks with danceability, energy, valence and mode
//  4. [PlotView] : Valence/energy scatter plot drawn by [RenderScatter]
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the [tasks.Analyzer], providing non-blocking status reporting while loading.
//
// Results are memoized per call signature for the lifetime of the program. r drops the entry behind the current
// view and fetches it again; R drops every entry.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, p, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
