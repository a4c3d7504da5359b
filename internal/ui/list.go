package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/likesorter/internal/dashboard"
	"github.com/desertthunder/likesorter/internal/models"
	"github.com/dustin/go-humanize"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = trackItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
	chosen   bool
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string {
	if i.chosen {
		return styles.selected.Render("● " + i.playlist.Name)
	}
	return i.playlist.Name
}
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%s tracks", humanize.Comma(int64(i.playlist.TrackCount)))
	if i.playlist.Collaborative {
		desc += " • collaborative"
	}
	return desc
}

// trackItem wraps a [dashboard.Entry] to implement [list.Item].
type trackItem struct {
	entry    dashboard.Entry
	selected bool
	playing  bool
}

func (i trackItem) FilterValue() string { return i.entry.Saved.Track.Name }
func (i trackItem) Title() string {
	mark := "[ ]"
	if i.selected {
		mark = "[x]"
	}
	title := fmt.Sprintf("%s %d. %s", mark, i.entry.Index+1, i.entry.Saved.Track.Name)
	switch {
	case i.playing:
		return styles.playing.Render(title + " ♪")
	case i.selected:
		return styles.selected.Render(title)
	default:
		return title
	}
}
func (i trackItem) Description() string {
	t := i.entry.Saved.Track
	desc := t.ArtistNames()
	if t.Album.Name != "" {
		desc = fmt.Sprintf("%s • %s", desc, t.Album.Name)
	}
	if len(t.Genres) > 0 {
		desc = fmt.Sprintf("%s • %s", desc, strings.Join(t.Genres, ", "))
	}
	return desc
}
