// Package ui implements an interactive terminal dashboard using bubbletea's Elm architecture.
//
// The TUI cycles through five listing views over the authenticated user's data:
//  1. [ArtistsView] : Top artists for the selected time range
//  2. [TracksView] : Top tracks for the selected time range
//  3. [AlbumsView] : Albums aggregated from the top-tracks listing
//  4. [RecentView] : Recently played tracks
//  5. [PlaylistsView] : The user's playlists
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Views are fetched lazily on first visit; the t key cycles the time range and
// invalidates the ranged views. The track and album views share one upstream
// listing, so switching between them costs no extra request.
//
// Keyboard navigation uses vim-style bindings (j/k, tab/shift+tab, t, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
