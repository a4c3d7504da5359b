package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/likesorter/internal/models"
	"github.com/desertthunder/likesorter/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgLikedFetched MsgKind = iota
	MsgGenresFetched
	MsgPlaylistsFetched
	MsgProgressUpdate
	MsgMutationComplete
	MsgPlaybackDone
	MsgTick
)

type likedFetched struct {
	result *tasks.LikedResult
	err    error
}

type genresFetched struct {
	result *tasks.GenresResult
	err    error
}

type playlistsFetched struct {
	playlists []models.Playlist
	err       error
}

type mutationComplete struct {
	kind     models.ActivityKind
	playlist string
	result   *tasks.MutationResult
	err      error
}

// likedFetchedMsg is the constructor for [MsgLikedFetched]
func likedFetchedMsg(result *tasks.LikedResult, err error) Msg {
	return Msg{kind: MsgLikedFetched, data: likedFetched{result, err}}
}

// genresFetchedMsg is the constructor for [MsgGenresFetched]
func genresFetchedMsg(result *tasks.GenresResult, err error) Msg {
	return Msg{kind: MsgGenresFetched, data: genresFetched{result, err}}
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsFetched{playlists, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// mutationCompleteMsg is the constructor for [MsgMutationComplete]
func mutationCompleteMsg(done mutationComplete) Msg {
	return Msg{kind: MsgMutationComplete, data: done}
}

// playbackDoneMsg is the constructor for [MsgPlaybackDone]. err is nil on success.
func playbackDoneMsg(err error) Msg {
	return Msg{kind: MsgPlaybackDone, data: err}
}

// tickMsg is the constructor for [MsgTick], which refreshes the status line and player state.
func tickMsg() Msg {
	return Msg{kind: MsgTick}
}
