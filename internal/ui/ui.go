package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/likesorter/internal/dashboard"
	"github.com/desertthunder/likesorter/internal/models"
	"github.com/desertthunder/likesorter/internal/playback"
	"github.com/desertthunder/likesorter/internal/shared"
	"github.com/desertthunder/likesorter/internal/tasks"
	"github.com/dustin/go-humanize"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	TrackListView ViewState = iota
	PlaylistPickView
	ConfirmView
	ProgressView
)

// filterField is the filter currently being edited, if any.
type filterField int

const (
	noFilter filterField = iota
	titleFilter
	artistFilter
)

// job is a bulk operation running in the background.
type job struct {
	progress chan tasks.ProgressUpdate
	done     chan mutationComplete
}

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	view       ViewState
	engine     *tasks.Engine
	session    *dashboard.Session
	player     *playback.Controller
	width      int
	height     int
	loading    bool
	trackList  list.Model
	playlists  list.Model
	input      textinput.Model
	editing    filterField
	pending    models.ActivityKind
	job        *job
	progress   tasks.ProgressUpdate
	nowPlaying string
	err        error
	help       help.Model
	keys       keyMap
}

// NewModel creates a new TUI model. player may be nil, in which case playback keys report that no player is available.
func NewModel(ctx context.Context, engine *tasks.Engine, session *dashboard.Session, player *playback.Controller) *Model {
	tracks := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	tracks.Title = "Liked Songs"
	tracks.SetFilteringEnabled(false)
	tracks.SetShowHelp(false)

	playlists := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	playlists.Title = "Choose a playlist"
	playlists.SetShowHelp(false)

	input := textinput.New()
	input.CharLimit = 100

	return &Model{
		ctx:       ctx,
		view:      TrackListView,
		engine:    engine,
		session:   session,
		player:    player,
		loading:   true,
		trackList: tracks,
		playlists: playlists,
		input:     input,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init fetches liked songs without genres and the editable playlists, and starts the refresh tick.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchLiked(), m.fetchPlaylists(), tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.trackList.SetSize(msg.Width-4, msg.Height-8)
		m.playlists.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case TrackListView:
			if m.editing != noFilter {
				return m.handleFilterKeys(msg)
			}
			return m.handleTrackListKeys(msg)
		case PlaylistPickView:
			return m.handlePlaylistKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		}
		return m, nil

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgLikedFetched:
		data := msg.data.(likedFetched)
		m.loading = false
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.session.Load(data.result.Tracks)
		return m, tea.Batch(m.refreshTracks(), m.fetchGenres())

	case MsgGenresFetched:
		data := msg.data.(genresFetched)
		if data.err != nil {
			m.session.Status().Error(fmt.Sprintf("Failed to fetch genres: %v", data.err))
			return m, nil
		}
		m.session.SetGenres(data.result.Genres)
		if data.result.Enrichment.Partial {
			m.session.Status().Error("Genres partially loaded: Spotify rate limit reached")
		}
		return m, m.refreshTracks()

	case MsgPlaylistsFetched:
		data := msg.data.(playlistsFetched)
		if data.err != nil {
			m.session.Status().Error(fmt.Sprintf("Failed to fetch playlists: %v", data.err))
			return m, nil
		}
		m.session.SetPlaylists(data.playlists)
		return m, m.refreshPlaylists()

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForJob()

	case MsgMutationComplete:
		return m, m.finishMutation(msg.data.(mutationComplete))

	case MsgPlaybackDone:
		if err, _ := msg.data.(error); err != nil {
			m.session.Status().Error(playback.Describe(err))
		}
		return m, m.syncPlaying()

	case MsgTick:
		return m, tea.Batch(m.syncPlaying(), tick())
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}
	if m.loading {
		return styles.title.Render("Loading liked songs...")
	}

	switch m.view {
	case TrackListView:
		return m.renderTrackList()
	case PlaylistPickView:
		return m.renderPlaylistPick()
	case ConfirmView:
		return m.renderConfirm()
	case ProgressView:
		return m.renderProgress()
	default:
		return ""
	}
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggle):
		if item, ok := m.trackList.SelectedItem().(trackItem); ok {
			_ = m.session.Toggle(item.entry.Index)
			return m, m.refreshTracks()
		}
		return m, nil
	case key.Matches(msg, m.keys.selectAll):
		m.session.SelectAll()
		return m, m.refreshTracks()
	case key.Matches(msg, m.keys.clear):
		m.session.ClearSelection()
		return m, m.refreshTracks()
	case key.Matches(msg, m.keys.titleFilter):
		return m, m.editFilter(titleFilter)
	case key.Matches(msg, m.keys.artistFilter):
		return m, m.editFilter(artistFilter)
	case key.Matches(msg, m.keys.clearFilter):
		m.session.ClearFilter()
		return m, m.refreshTracks()
	case key.Matches(msg, m.keys.genres):
		return m, m.fetchGenres()
	case key.Matches(msg, m.keys.playlist):
		m.view = PlaylistPickView
		return m, m.refreshPlaylists()
	case key.Matches(msg, m.keys.add):
		if !m.session.Actions().CanAdd {
			m.session.Status().Error("Select tracks and a playlist first")
			return m, nil
		}
		m.pending = models.ActivityAddToPlaylist
		m.view = ConfirmView
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if !m.session.Actions().CanRemove {
			m.session.Status().Error("Select tracks first")
			return m, nil
		}
		m.pending = models.ActivityRemoveFromLiked
		m.view = ConfirmView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.trackList.SelectedItem().(trackItem); ok {
			return m, m.play(item.entry.Saved.Track.URI)
		}
		return m, nil
	case key.Matches(msg, m.keys.pause):
		return m, m.transport((*playback.Controller).Toggle)
	case key.Matches(msg, m.keys.next):
		return m, m.transport((*playback.Controller).Next)
	case key.Matches(msg, m.keys.previous):
		return m, m.transport((*playback.Controller).Previous)
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) editFilter(field filterField) tea.Cmd {
	m.editing = field
	f := m.session.Filter()
	if field == titleFilter {
		m.input.Prompt = "title: "
		m.input.SetValue(f.Title)
	} else {
		m.input.Prompt = "artist: "
		m.input.SetValue(f.Artist)
	}
	m.input.CursorEnd()
	return m.input.Focus()
}

// handleFilterKeys edits the active filter. Filtering is live; esc clears the field.
func (m *Model) handleFilterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.editing = noFilter
		m.input.Blur()
		return m, nil
	case tea.KeyEsc:
		m.setFilterValue("")
		m.editing = noFilter
		m.input.Blur()
		return m, m.refreshTracks()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.setFilterValue(m.input.Value())
	return m, tea.Batch(cmd, m.refreshTracks())
}

func (m *Model) setFilterValue(v string) {
	f := m.session.Filter()
	switch m.editing {
	case titleFilter:
		f.Title = v
	case artistFilter:
		f.Artist = v
	}
	m.session.SetFilter(f)
}

func (m *Model) handlePlaylistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = TrackListView
		return m, nil
	case msg.String() == "enter":
		if item, ok := m.playlists.SelectedItem().(playlistItem); ok {
			if err := m.session.SelectPlaylist(item.playlist.ID); err != nil {
				m.session.Status().Error(err.Error())
			}
		}
		m.view = TrackListView
		return m, m.refreshPlaylists()
	}

	var cmd tea.Cmd
	m.playlists, cmd = m.playlists.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = ProgressView
		m.progress = tasks.ProgressUpdate{}
		return m, m.startMutation(m.pending)
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
		m.view = TrackListView
		return m, nil
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	case PlaylistPickView:
		m.playlists, cmd = m.playlists.Update(msg)
	}
	return m, cmd
}

// refreshTracks mirrors the session's filtered view into the list, keeping the cursor where it was.
func (m *Model) refreshTracks() tea.Cmd {
	entries := m.session.Filtered()
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = trackItem{
			entry:    e,
			selected: m.session.IsSelected(e.Index),
			playing:  m.nowPlaying != "" && e.Saved.Track.URI == m.nowPlaying,
		}
	}

	cursor := m.trackList.Index()
	cmd := m.trackList.SetItems(items)
	if cursor >= len(items) {
		cursor = len(items) - 1
	}
	if cursor >= 0 {
		m.trackList.Select(cursor)
	}
	m.trackList.Title = fmt.Sprintf("Liked Songs (%s of %s)", humanize.Comma(int64(len(entries))), humanize.Comma(int64(m.session.Len())))
	return cmd
}

func (m *Model) refreshPlaylists() tea.Cmd {
	chosen, _ := m.session.SelectedPlaylist()
	playlists := m.session.Playlists()
	items := make([]list.Item, len(playlists))
	for i, p := range playlists {
		items[i] = playlistItem{playlist: p, chosen: p.ID == chosen.ID}
	}
	return m.playlists.SetItems(items)
}

// syncPlaying follows the controller's loaded track.
func (m *Model) syncPlaying() tea.Cmd {
	if m.player == nil {
		return nil
	}
	uri := m.player.Status().URI
	if uri == m.nowPlaying {
		return nil
	}
	m.nowPlaying = uri
	return m.refreshTracks()
}

func (m *Model) fetchLiked() tea.Cmd {
	return func() tea.Msg {
		result, err := m.engine.LikedSongs(m.ctx, nil, tasks.ModeSkip)
		return likedFetchedMsg(result, err)
	}
}

func (m *Model) fetchGenres() tea.Cmd {
	return func() tea.Msg {
		result, err := m.engine.Genres(m.ctx, nil)
		return genresFetchedMsg(result, err)
	}
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.engine.EditablePlaylists(m.ctx, nil)
		return playlistsFetchedMsg(playlists, err)
	}
}

func (m *Model) play(uri string) tea.Cmd {
	if m.player == nil {
		m.session.Status().Error(playback.Describe(playback.ErrPlayerNotReady))
		return nil
	}
	return func() tea.Msg {
		return playbackDoneMsg(m.player.Play(m.ctx, uri))
	}
}

func (m *Model) transport(fn func(*playback.Controller, context.Context) error) tea.Cmd {
	if m.player == nil {
		m.session.Status().Error(playback.Describe(playback.ErrPlayerNotReady))
		return nil
	}
	return func() tea.Msg {
		return playbackDoneMsg(fn(m.player, m.ctx))
	}
}

// startMutation runs the pending bulk operation in the background, streaming its progress.
func (m *Model) startMutation(kind models.ActivityKind) tea.Cmd {
	j := &job{progress: make(chan tasks.ProgressUpdate, 50), done: make(chan mutationComplete, 1)}
	m.job = j

	playlist, _ := m.session.SelectedPlaylist()
	uris := m.session.SelectedURIs()
	ids := m.session.SelectedIDs()

	go func() {
		done := mutationComplete{kind: kind, playlist: playlist.Name}
		if kind == models.ActivityAddToPlaylist {
			done.result, done.err = m.engine.AddToPlaylist(m.ctx, j.progress, playlist.ID, uris)
		} else {
			done.result, done.err = m.engine.RemoveFromLiked(m.ctx, j.progress, ids)
		}
		j.done <- done
	}()

	return m.waitForJob()
}

func (m *Model) waitForJob() tea.Cmd {
	j := m.job
	if j == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case update := <-j.progress:
			return progressUpdateMsg(update)
		case done := <-j.done:
			return mutationCompleteMsg(done)
		}
	}
}

// finishMutation applies a finished bulk operation to the session and reports it.
func (m *Model) finishMutation(done mutationComplete) tea.Cmd {
	m.job = nil
	m.view = TrackListView

	completed := 0
	if done.result != nil {
		completed = done.result.Completed
	}

	status := m.session.Status()
	switch {
	case done.err != nil && completed > 0:
		status.Error(fmt.Sprintf("Stopped after %d: %v", completed, done.err))
	case done.err != nil:
		status.Error(fmt.Sprintf("Failed: %v", done.err))
	case done.kind == models.ActivityAddToPlaylist:
		m.session.ClearSelection()
		status.Success(dashboard.AddedMessage(completed, done.playlist))
	default:
		m.session.ApplyRemoval()
		status.Success(dashboard.RemovedMessage(completed))
	}
	return m.refreshTracks()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return tickMsg() })
}

func (m *Model) renderHeader() string {
	var b strings.Builder

	playing := "Nothing playing"
	if m.player != nil {
		if s := m.player.Status(); s.Name != "" {
			playing = fmt.Sprintf("%s %s - %s", s.State, s.Name, s.Artists)
		}
	}
	b.WriteString(styles.help.Render(playing))
	b.WriteString("\n")

	actions := m.session.Actions()
	target := "no playlist"
	if p, ok := m.session.SelectedPlaylist(); ok {
		target = p.Name
	}
	fmt.Fprintf(&b, "%d selected • %s", m.session.SelectionCount(), target)
	if actions.CanAdd {
		fmt.Fprintf(&b, " • a: %s", actions.AddLabel)
	}
	if actions.CanRemove {
		fmt.Fprintf(&b, " • d: %s", actions.RemoveLabel)
	}

	if f := m.session.Filter(); !f.Empty() {
		fmt.Fprintf(&b, "\nfilter: title=%q artist=%q", f.Title, f.Artist)
	}
	return b.String()
}

func (m *Model) renderStatus() string {
	s, ok := m.session.Status().Current()
	if !ok {
		return ""
	}
	if s.Kind == dashboard.StatusError {
		return styles.err.Render(s.Message)
	}
	return styles.ok.Render(s.Message)
}

func (m *Model) renderTrackList() string {
	parts := []string{m.renderHeader(), m.trackList.View()}
	if m.editing != noFilter {
		parts = append(parts, m.input.View())
	}
	if status := m.renderStatus(); status != "" {
		parts = append(parts, status)
	}
	parts = append(parts, m.help.View(m.keys))
	return strings.Join(parts, "\n\n")
}

func (m *Model) renderPlaylistPick() string {
	choose := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "choose"))
	helpView := m.help.ShortHelpView([]key.Binding{choose, m.keys.back})
	return fmt.Sprintf("%s\n\n%s", m.playlists.View(), helpView)
}

func (m *Model) renderConfirm() string {
	n := m.session.SelectionCount()
	var question string
	if m.pending == models.ActivityAddToPlaylist {
		p, _ := m.session.SelectedPlaylist()
		question = fmt.Sprintf("Add %d %s to %q?", n, shared.Pluralize(n, "song"), p.Name)
	} else {
		question = fmt.Sprintf("Remove %d %s from liked songs?", n, shared.Pluralize(n, "song"))
	}

	title := styles.title.Render(question)
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s", title, helpView)
}

func (m *Model) renderProgress() string {
	title := styles.title.Render("Working...")

	var phase string
	switch m.progress.Phase {
	case tasks.AddToPlaylist:
		phase = fmt.Sprintf("Adding to playlist (batch %d/%d)", m.progress.Step, m.progress.Total)
	case tasks.RemoveFromLiked:
		phase = fmt.Sprintf("Removing from liked songs (batch %d/%d)", m.progress.Step, m.progress.Total)
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

