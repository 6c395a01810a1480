package ui

import (
	"context"
	"fmt"

	"github.com/ChristianVeneko/chartifydata/internal/services"
	"github.com/ChristianVeneko/chartifydata/internal/session"
	"github.com/ChristianVeneko/chartifydata/internal/stats"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ArtistsView ViewState = iota
	TracksView
	AlbumsView
	RecentView
	PlaylistsView
	viewCount
)

func (v ViewState) title() string {
	switch v {
	case ArtistsView:
		return "Top Artists"
	case TracksView:
		return "Top Tracks"
	case AlbumsView:
		return "Top Albums"
	case RecentView:
		return "Recently Played"
	case PlaylistsView:
		return "Playlists"
	default:
		return ""
	}
}

// timeRanges is the cycle order for the t key.
var timeRanges = []services.TimeRange{services.ShortTerm, services.MediumTerm, services.LongTerm}

// Model represents the dashboard TUI state.
type Model struct {
	ctx       context.Context
	view      ViewState
	spotify   *services.SpotifyService
	manager   *session.Manager
	timeRange services.TimeRange
	limit     int
	width     int
	height    int
	lists     map[ViewState]list.Model
	loaded    map[ViewState]bool
	loading   bool
	err       error
	help      help.Model
	keys      keyMap
}

type artistsFetchedMsg struct {
	items []list.Item
	err   error
}

type tracksFetchedMsg struct {
	tracks []list.Item
	albums []list.Item
	err    error
}

type recentFetchedMsg struct {
	items []list.Item
	err   error
}

type playlistsFetchedMsg struct {
	items []list.Item
	err   error
}

// NewModel creates a new TUI model with the provided dependencies. manager may
// be nil when the dashboard runs without a lifecycle loop.
func NewModel(ctx context.Context, spotify *services.SpotifyService, manager *session.Manager) *Model {
	return &Model{
		ctx:       ctx,
		view:      ArtistsView,
		spotify:   spotify,
		manager:   manager,
		timeRange: services.MediumTerm,
		limit:     20,
		lists:     make(map[ViewState]list.Model),
		loaded:    make(map[ViewState]bool),
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init starts by fetching the initial view.
func (m *Model) Init() tea.Cmd {
	return m.fetchView(m.view)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for view, l := range m.lists {
			l.SetSize(msg.Width-4, msg.Height-8)
			m.lists[view] = l
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case artistsFetchedMsg:
		return m.applyFetch(ArtistsView, msg.items, msg.err)

	case tracksFetchedMsg:
		if msg.err != nil {
			m.loading = false
			m.err = msg.err
			return m, nil
		}
		m.setList(TracksView, msg.tracks)
		m.setList(AlbumsView, msg.albums)
		m.loading = false
		m.err = nil
		return m, nil

	case recentFetchedMsg:
		return m.applyFetch(RecentView, msg.items, msg.err)

	case playlistsFetchedMsg:
		return m.applyFetch(PlaylistsView, msg.items, msg.err)
	}

	return m.updateList(msg)
}

// View renders the active list with a status line and contextual help.
func (m *Model) View() string {
	header := m.view.title()
	if m.view == ArtistsView || m.view == TracksView || m.view == AlbumsView {
		header = fmt.Sprintf("%s (%s)", header, m.timeRange)
	}
	header = styles.title.Render(header)

	var body string
	switch {
	case m.err != nil:
		body = styles.err.Render(fmt.Sprintf("Error: %v\n\nPress r to reload, q to quit", m.err))
	case m.loading || !m.loaded[m.view]:
		body = styles.help.Render("Loading...")
	default:
		l := m.lists[m.view]
		body = l.View()
	}

	return fmt.Sprintf("%s\n%s\n%s\n\n%s", header, m.statusLine(), body, m.help.ShortHelpView(m.keys.ShortHelp()))
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab", "l":
		m.view = (m.view + 1) % viewCount
		return m, m.ensureLoaded()
	case "shift+tab", "h":
		m.view = (m.view + viewCount - 1) % viewCount
		return m, m.ensureLoaded()
	case "t":
		m.cycleTimeRange()
		return m, m.reloadRanged()
	case "r":
		m.err = nil
		return m, m.fetchView(m.view)
	}
	return m.updateList(msg)
}

// cycleTimeRange advances short -> medium -> long -> short.
func (m *Model) cycleTimeRange() {
	for i, r := range timeRanges {
		if r == m.timeRange {
			m.timeRange = timeRanges[(i+1)%len(timeRanges)]
			return
		}
	}
	m.timeRange = services.MediumTerm
}

// reloadRanged invalidates the time-ranged views and refetches the current one.
func (m *Model) reloadRanged() tea.Cmd {
	m.loaded[ArtistsView] = false
	m.loaded[TracksView] = false
	m.loaded[AlbumsView] = false
	return m.ensureLoaded()
}

func (m *Model) ensureLoaded() tea.Cmd {
	if m.loaded[m.view] {
		return nil
	}
	return m.fetchView(m.view)
}

func (m *Model) fetchView(view ViewState) tea.Cmd {
	m.loading = true

	switch view {
	case ArtistsView:
		return m.fetchArtists()
	case TracksView, AlbumsView:
		return m.fetchTracks()
	case RecentView:
		return m.fetchRecent()
	case PlaylistsView:
		return m.fetchPlaylists()
	default:
		return nil
	}
}

func (m *Model) applyFetch(view ViewState, items []list.Item, err error) (tea.Model, tea.Cmd) {
	m.loading = false
	if err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	m.setList(view, items)
	return m, nil
}

func (m *Model) setList(view ViewState, items []list.Item) {
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = view.title()
	l.SetShowHelp(false)
	l.SetSize(m.width-4, m.height-8)
	m.lists[view] = l
	m.loaded[view] = true
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	l, ok := m.lists[m.view]
	if !ok {
		return m, nil
	}
	var cmd tea.Cmd
	l, cmd = l.Update(msg)
	m.lists[m.view] = l
	return m, cmd
}

func (m *Model) statusLine() string {
	if m.manager == nil {
		return ""
	}
	snap := m.manager.Snapshot()
	if snap.Profile != nil {
		return styles.ok.Render(fmt.Sprintf("● %s", snap.Profile.DisplayName))
	}
	if snap.IsLoggedIn {
		return styles.ok.Render("● signed in")
	}
	return styles.warn.Render("○ " + snap.State.String())
}

func (m *Model) fetchArtists() tea.Cmd {
	timeRange, limit := m.timeRange, m.limit
	return func() tea.Msg {
		raw, err := m.spotify.TopArtists(m.ctx, timeRange, limit)
		if err != nil {
			return artistsFetchedMsg{err: err}
		}
		projected := stats.TopArtists(raw)
		items := make([]list.Item, len(projected))
		for i, a := range projected {
			items[i] = artistItem{artist: a}
		}
		return artistsFetchedMsg{items: items}
	}
}

// fetchTracks feeds both the track view and the aggregated album view from
// one listing.
func (m *Model) fetchTracks() tea.Cmd {
	timeRange, limit := m.timeRange, m.limit
	return func() tea.Msg {
		raw, err := m.spotify.TopTracks(m.ctx, timeRange, limit)
		if err != nil {
			return tracksFetchedMsg{err: err}
		}

		projectedTracks := stats.TopTracks(raw)
		tracks := make([]list.Item, len(projectedTracks))
		for i, t := range projectedTracks {
			tracks[i] = trackItem{track: t}
		}

		projectedAlbums := stats.TopAlbums(raw)
		albums := make([]list.Item, len(projectedAlbums))
		for i, a := range projectedAlbums {
			albums[i] = albumItem{album: a}
		}

		return tracksFetchedMsg{tracks: tracks, albums: albums}
	}
}

func (m *Model) fetchRecent() tea.Cmd {
	limit := m.limit
	return func() tea.Msg {
		raw, err := m.spotify.RecentlyPlayed(m.ctx, limit)
		if err != nil {
			return recentFetchedMsg{err: err}
		}
		projected := stats.RecentlyPlayed(raw)
		items := make([]list.Item, len(projected))
		for i, t := range projected {
			items[i] = recentItem{track: t}
		}
		return recentFetchedMsg{items: items}
	}
}

func (m *Model) fetchPlaylists() tea.Cmd {
	limit := m.limit
	return func() tea.Msg {
		page, err := m.spotify.UserPlaylists(m.ctx, limit, 0)
		if err != nil {
			return playlistsFetchedMsg{err: err}
		}
		projected := stats.Playlists(page.Items)
		items := make([]list.Item, len(projected))
		for i, p := range projected {
			items[i] = playlistItem{playlist: p}
		}
		return playlistsFetchedMsg{items: items}
	}
}
