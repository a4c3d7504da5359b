// Package ui implements the terminal dashboard using bubbletea's Elm architecture.
//
// The TUI mirrors the web dashboard:
//  1. [TrackListView] : Browse liked songs, filter them, select and play tracks
//  2. [PlaylistPickView] : Choose the target playlist for additions
//  3. [ConfirmView] : Confirm a bulk add or removal
//  4. [ProgressView] : Monitor progress of a running bulk operation
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Selection and filter state live in a [dashboard.Session]; the Model only mirrors it into list items.
// Progress updates flow through a channel from the [tasks.Engine], providing non-blocking status reporting during bulk operations.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
