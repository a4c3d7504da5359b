package ui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/likesorter/internal/dashboard"
	"github.com/desertthunder/likesorter/internal/models"
	"github.com/desertthunder/likesorter/internal/tasks"
	tu "github.com/desertthunder/likesorter/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyPress(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T, n int) (*Model, *tu.MockClient) {
	t.Helper()

	client := tu.NewMockClient(n)
	client.PlaylistItems = []models.Playlist{
		{ID: "p1", Name: "Mix", OwnerID: "me", TrackCount: 12},
		{ID: "p2", Name: "Other", OwnerID: "someone"},
	}
	engine := tasks.NewEngine(client,
		tasks.WithSleeper(func(ctx context.Context, d time.Duration) error { return nil }),
		tasks.WithMutationRate(0),
	)

	m := NewModel(context.Background(), engine, dashboard.NewSession(), nil)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 60})
	m.Update(m.fetchLiked()())
	m.Update(m.fetchPlaylists()())
	return m, client
}

// runJob feeds a background job's messages back into the model until it completes.
func runJob(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for range 100 {
		require.NotNil(t, cmd)
		msg := cmd()
		_, cmd = m.Update(msg)
		if done, ok := msg.(Msg); ok && done.kind == MsgMutationComplete {
			return
		}
	}
	t.Fatal("job did not complete")
}

func TestModelLoad(t *testing.T) {
	m, client := newTestModel(t, 5)

	assert.False(t, m.loading)
	assert.Equal(t, 5, m.session.Len())
	assert.Len(t, m.trackList.Items(), 5)
	assert.Zero(t, client.Calls("Artists"))

	m.Update(m.fetchGenres()())
	track, ok := m.session.Track(2)
	require.True(t, ok)
	assert.Equal(t, []string{"genre2"}, track.Track.Genres)

	playlists := m.session.Playlists()
	require.Len(t, playlists, 1)
	assert.Equal(t, "p1", playlists[0].ID)
}

func TestModelLoadError(t *testing.T) {
	client := tu.NewMockClient(3)
	client.Err = func(method string, n int) error {
		if method == "SavedTracks" {
			return assert.AnError
		}
		return nil
	}
	m := NewModel(context.Background(), tasks.NewEngine(client), dashboard.NewSession(), nil)
	m.Update(m.fetchLiked()())

	assert.ErrorIs(t, m.err, assert.AnError)
	assert.Contains(t, m.View(), "Error:")
}

func TestModelSelection(t *testing.T) {
	m, _ := newTestModel(t, 5)

	m.Update(keyPress(" "))
	assert.True(t, m.session.IsSelected(0))
	assert.True(t, m.trackList.Items()[0].(trackItem).selected)

	m.Update(keyPress(" "))
	assert.False(t, m.session.IsSelected(0))

	m.Update(keyPress("A"))
	assert.Equal(t, 5, m.session.SelectionCount())

	m.Update(keyPress("x"))
	assert.Zero(t, m.session.SelectionCount())
}

func TestModelFilter(t *testing.T) {
	m, _ := newTestModel(t, 5)

	m.Update(keyPress("/"))
	require.Equal(t, titleFilter, m.editing)

	m.Update(keyPress("3"))
	assert.Equal(t, "3", m.session.Filter().Title)
	require.Len(t, m.trackList.Items(), 1)
	assert.Equal(t, 3, m.trackList.Items()[0].(trackItem).entry.Index)

	m.Update(keyPress("enter"))
	assert.Equal(t, noFilter, m.editing)

	// Selecting while filtered only touches the visible track.
	m.Update(keyPress("A"))
	assert.Equal(t, []int{3}, m.session.SelectedIndices())

	m.Update(keyPress("F"))
	assert.True(t, m.session.Filter().Empty())
	assert.Len(t, m.trackList.Items(), 5)
	assert.Equal(t, []int{3}, m.session.SelectedIndices())
}

func TestModelAddToPlaylist(t *testing.T) {
	m, client := newTestModel(t, 5)

	m.Update(keyPress("a"))
	assert.Equal(t, TrackListView, m.view, "add needs a selection and a playlist")

	m.Update(keyPress("l"))
	require.Equal(t, PlaylistPickView, m.view)
	m.Update(keyPress("enter"))
	assert.Equal(t, TrackListView, m.view)
	p, ok := m.session.SelectedPlaylist()
	require.True(t, ok)
	assert.Equal(t, "p1", p.ID)

	m.Update(keyPress("A"))
	m.Update(keyPress("a"))
	require.Equal(t, ConfirmView, m.view)
	assert.Contains(t, m.View(), `Add 5 songs to "Mix"?`)

	_, cmd := m.Update(keyPress("y"))
	assert.Equal(t, ProgressView, m.view)
	runJob(t, m, cmd)

	assert.Equal(t, TrackListView, m.view)
	assert.Len(t, client.Added["p1"], 1)
	assert.Len(t, client.Added["p1"][0], 5)
	assert.Zero(t, m.session.SelectionCount())

	status, ok := m.session.Status().Current()
	require.True(t, ok)
	assert.Equal(t, dashboard.StatusSuccess, status.Kind)
	assert.Equal(t, `Added 5 songs to "Mix"`, status.Message)
}

func TestModelRemoveFromLiked(t *testing.T) {
	m, client := newTestModel(t, 5)

	m.Update(keyPress(" "))
	m.Update(keyPress("j"))
	m.Update(keyPress("j"))
	m.Update(keyPress(" "))
	require.Equal(t, []int{0, 2}, m.session.SelectedIndices())

	m.Update(keyPress("d"))
	require.Equal(t, ConfirmView, m.view)

	m.Update(keyPress("n"))
	assert.Equal(t, TrackListView, m.view)
	assert.Empty(t, client.Removed)

	m.Update(keyPress("d"))
	_, cmd := m.Update(keyPress("y"))
	runJob(t, m, cmd)

	assert.Equal(t, [][]string{{"track0", "track2"}}, client.Removed)
	assert.Equal(t, 3, m.session.Len())
	assert.Len(t, m.trackList.Items(), 3)

	status, ok := m.session.Status().Current()
	require.True(t, ok)
	assert.Equal(t, "Removed 2 songs from liked songs", status.Message)
}

func TestModelMutationFailure(t *testing.T) {
	m, client := newTestModel(t, 3)
	client.Err = func(method string, n int) error {
		if method == "RemoveSavedTracks" {
			return assert.AnError
		}
		return nil
	}

	m.Update(keyPress("A"))
	m.Update(keyPress("d"))
	_, cmd := m.Update(keyPress("y"))
	runJob(t, m, cmd)

	assert.Equal(t, 3, m.session.Len())
	assert.Equal(t, 3, m.session.SelectionCount())
	status, ok := m.session.Status().Current()
	require.True(t, ok)
	assert.Equal(t, dashboard.StatusError, status.Kind)
}

func TestModelPlaybackWithoutPlayer(t *testing.T) {
	m, _ := newTestModel(t, 2)

	_, cmd := m.Update(keyPress("enter"))
	assert.Nil(t, cmd)

	status, ok := m.session.Status().Current()
	require.True(t, ok)
	assert.Equal(t, dashboard.StatusError, status.Kind)
}

func TestModelQuit(t *testing.T) {
	m, _ := newTestModel(t, 1)

	_, cmd := m.Update(keyPress("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
