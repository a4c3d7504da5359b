package dashboard

import (
	"strings"

	"github.com/desertthunder/likesorter/internal/models"
)

// Filter is a pair of case-insensitive substring predicates.
// An empty field matches everything.
type Filter struct {
	Title  string
	Artist string
}

// Empty reports whether the filter matches every track.
func (f Filter) Empty() bool {
	n := f.normalize()
	return n.Title == "" && n.Artist == ""
}

func (f Filter) normalize() Filter {
	return Filter{
		Title:  strings.ToLower(strings.TrimSpace(f.Title)),
		Artist: strings.ToLower(strings.TrimSpace(f.Artist)),
	}
}

// Match reports whether t satisfies both predicates. The artist predicate matches if any credited artist matches.
func (f Filter) Match(t models.Track) bool {
	return f.normalize().match(t)
}

func (f Filter) match(t models.Track) bool {
	if f.Title != "" && !strings.Contains(strings.ToLower(t.Name), f.Title) {
		return false
	}
	if f.Artist == "" {
		return true
	}
	for _, a := range t.Artists {
		if strings.Contains(strings.ToLower(a.Name), f.Artist) {
			return true
		}
	}
	return false
}

// Entry is a row of the filtered view: a saved track and its index in the master list.
type Entry struct {
	Index int
	Saved models.SavedTrack
}

// Project returns the entries of liked that satisfy f, in master order.
// It never modifies liked and returns the same result for the same inputs.
func Project(liked []models.SavedTrack, f Filter) []Entry {
	n := f.normalize()
	entries := make([]Entry, 0, len(liked))
	for i, st := range liked {
		if n.match(st.Track) {
			entries = append(entries, Entry{Index: i, Saved: st})
		}
	}
	return entries
}
