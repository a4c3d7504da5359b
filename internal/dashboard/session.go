package dashboard

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/desertthunder/likesorter/internal/models"
	"github.com/desertthunder/likesorter/internal/shared"
)

// Session is the dashboard view-model. It is not safe for concurrent use;
// callers drive it from a single event loop.
type Session struct {
	liked     []models.SavedTrack
	selected  map[int]struct{}
	filter    Filter
	playlists []models.Playlist
	playlist  string
	status    *StatusLine
}

// Option configures a [Session].
type Option func(*Session)

// WithClock sets the clock used by the status line.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.status = NewStatusLine(now, StatusTTL) }
}

// NewSession creates an empty session.
func NewSession(opts ...Option) *Session {
	s := &Session{selected: map[int]struct{}{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.status == nil {
		s.status = NewStatusLine(nil, StatusTTL)
	}
	return s
}

// Load replaces the master list and clears the selection.
func (s *Session) Load(liked []models.SavedTrack) {
	s.liked = slices.Clone(liked)
	clear(s.selected)
}

// Len returns the size of the master list.
func (s *Session) Len() int { return len(s.liked) }

// Track returns the master entry at index.
func (s *Session) Track(index int) (models.SavedTrack, bool) {
	if index < 0 || index >= len(s.liked) {
		return models.SavedTrack{}, false
	}
	return s.liked[index], true
}

// Liked returns a copy of the master list.
func (s *Session) Liked() []models.SavedTrack { return slices.Clone(s.liked) }

// SetGenres attaches genres to tracks by uri, for deferred enrichment results.
func (s *Session) SetGenres(genres map[string][]string) {
	for i := range s.liked {
		if g, ok := genres[s.liked[i].Track.URI]; ok {
			s.liked[i].Track.Genres = g
		}
	}
}

// SetFilter replaces the filter criteria. Selection is untouched.
func (s *Session) SetFilter(f Filter) { s.filter = f }

// Filter returns the current criteria.
func (s *Session) Filter() Filter { return s.filter }

// ClearFilter resets both predicates.
func (s *Session) ClearFilter() { s.filter = Filter{} }

// Filtered projects the master list through the current filter.
func (s *Session) Filtered() []Entry { return Project(s.liked, s.filter) }

// Toggle flips the selection of the master entry at index.
func (s *Session) Toggle(index int) error {
	if index < 0 || index >= len(s.liked) {
		return fmt.Errorf("%w: track index %d out of range", shared.ErrInvalidInput, index)
	}
	if _, ok := s.selected[index]; ok {
		delete(s.selected, index)
	} else {
		s.selected[index] = struct{}{}
	}
	return nil
}

// IsSelected reports whether the master entry at index is selected.
func (s *Session) IsSelected(index int) bool {
	_, ok := s.selected[index]
	return ok
}

// SelectAll adds every entry of the filtered view to the selection and returns how many were newly added.
// Selected entries hidden by the filter stay selected.
func (s *Session) SelectAll() int {
	added := 0
	for _, e := range s.Filtered() {
		if _, ok := s.selected[e.Index]; !ok {
			s.selected[e.Index] = struct{}{}
			added++
		}
	}
	return added
}

// ClearSelection empties the selection.
func (s *Session) ClearSelection() { clear(s.selected) }

// SelectionCount returns the number of selected entries.
func (s *Session) SelectionCount() int { return len(s.selected) }

// SelectedIndices returns the selected master indices in ascending order.
func (s *Session) SelectedIndices() []int {
	indices := make([]int, 0, len(s.selected))
	for i := range s.selected {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// SelectedURIs returns the uris of the selected tracks, in master order.
func (s *Session) SelectedURIs() []string {
	uris := make([]string, 0, len(s.selected))
	for _, i := range s.SelectedIndices() {
		uris = append(uris, s.liked[i].Track.URI)
	}
	return uris
}

// SelectedIDs returns the ids of the selected tracks, in master order.
func (s *Session) SelectedIDs() []string {
	ids := make([]string, 0, len(s.selected))
	for _, i := range s.SelectedIndices() {
		ids = append(ids, s.liked[i].Track.ID)
	}
	return ids
}

// ApplyRemoval drops the selected entries from the master list, highest index first,
// clears the selection and returns how many entries were removed.
func (s *Session) ApplyRemoval() int {
	indices := s.SelectedIndices()
	for k := len(indices) - 1; k >= 0; k-- {
		i := indices[k]
		s.liked = slices.Delete(s.liked, i, i+1)
	}
	clear(s.selected)
	return len(indices)
}

// SetPlaylists replaces the playlists. A selected playlist that is no longer present is deselected.
func (s *Session) SetPlaylists(playlists []models.Playlist) {
	s.playlists = slices.Clone(playlists)
	if _, ok := s.SelectedPlaylist(); !ok {
		s.playlist = ""
	}
}

// Playlists returns the playlists ordered by track count, largest first.
// Playlists with equal counts keep their upstream order.
func (s *Session) Playlists() []models.Playlist {
	sorted := slices.Clone(s.playlists)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TrackCount > sorted[j].TrackCount
	})
	return sorted
}

// SelectPlaylist marks the playlist with id as the add target.
func (s *Session) SelectPlaylist(id string) error {
	for _, p := range s.playlists {
		if p.ID == id {
			s.playlist = id
			return nil
		}
	}
	return fmt.Errorf("%w: playlist %q is not editable", shared.ErrInvalidInput, id)
}

// SelectedPlaylist returns the add target, if any.
func (s *Session) SelectedPlaylist() (models.Playlist, bool) {
	if s.playlist == "" {
		return models.Playlist{}, false
	}
	for _, p := range s.playlists {
		if p.ID == s.playlist {
			return p, true
		}
	}
	return models.Playlist{}, false
}

// Actions describes the bulk action buttons.
type Actions struct {
	CanAdd      bool
	CanRemove   bool
	AddLabel    string
	RemoveLabel string
}

// Actions derives the bulk action state from the selection and playlist choice.
func (s *Session) Actions() Actions {
	n := len(s.selected)
	_, hasPlaylist := s.SelectedPlaylist()

	a := Actions{
		CanAdd:      n > 0 && hasPlaylist,
		CanRemove:   n > 0,
		AddLabel:    "Add to Playlist",
		RemoveLabel: "Remove from Liked",
	}
	if n > 1 {
		a.AddLabel = fmt.Sprintf("Add %d to Playlist", n)
		a.RemoveLabel = fmt.Sprintf("Remove %d from Liked", n)
	}
	return a
}

// Status returns the session's status line.
func (s *Session) Status() *StatusLine { return s.status }
