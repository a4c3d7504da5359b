package models

import (
	"fmt"
	"time"
)

// ActivityKind names a bulk mutation.
type ActivityKind string

const (
	ActivityAddToPlaylist   ActivityKind = "add_to_playlist"
	ActivityRemoveFromLiked ActivityKind = "remove_from_liked"
)

// Activity is a journal entry for one bulk mutation issued from the dashboard.
type Activity struct {
	id         string
	sequence   int
	kind       ActivityKind
	playlistID string
	requested  int
	completed  int
	errMessage string
	createdAt  time.Time
}

// NewActivity creates an [Activity] stamped with the current time.
func NewActivity(kind ActivityKind, playlistID string, requested, completed int) *Activity {
	return &Activity{
		kind:       kind,
		playlistID: playlistID,
		requested:  requested,
		completed:  completed,
		createdAt:  time.Now().UTC(),
	}
}

func (a *Activity) ID() string           { return a.id }
func (a *Activity) Sequence() int        { return a.sequence }
func (a *Activity) Kind() ActivityKind   { return a.kind }
func (a *Activity) PlaylistID() string   { return a.playlistID }
func (a *Activity) Requested() int       { return a.requested }
func (a *Activity) Completed() int       { return a.completed }
func (a *Activity) ErrorMessage() string { return a.errMessage }
func (a *Activity) CreatedAt() time.Time { return a.createdAt }

func (a *Activity) SetID(id string)            { a.id = id }
func (a *Activity) SetSequence(seq int)        { a.sequence = seq }
func (a *Activity) SetCreatedAt(t time.Time)   { a.createdAt = t }
func (a *Activity) SetErrorMessage(msg string) { a.errMessage = msg }
func (a *Activity) Succeeded() bool            { return a.errMessage == "" && a.completed == a.requested }

// Validate checks kind, counts and the playlist id requirement.
func (a *Activity) Validate() error {
	switch a.kind {
	case ActivityAddToPlaylist:
		if a.playlistID == "" {
			return fmt.Errorf("playlist id is required for %s", a.kind)
		}
	case ActivityRemoveFromLiked:
	default:
		return fmt.Errorf("unknown activity kind %q", a.kind)
	}
	if a.requested < 0 || a.completed < 0 {
		return fmt.Errorf("counts must not be negative")
	}
	if a.completed > a.requested {
		return fmt.Errorf("completed %d exceeds requested %d", a.completed, a.requested)
	}
	return nil
}

// ActivityView is the JSON shape of an [Activity].
type ActivityView struct {
	ID         string       `json:"id"`
	Kind       ActivityKind `json:"kind"`
	PlaylistID string       `json:"playlist_id,omitempty"`
	Requested  int          `json:"requested"`
	Completed  int          `json:"completed"`
	Error      string       `json:"error,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// View returns the serializable form of the activity.
func (a *Activity) View() ActivityView {
	return ActivityView{
		ID:         a.id,
		Kind:       a.kind,
		PlaylistID: a.playlistID,
		Requested:  a.requested,
		Completed:  a.completed,
		Error:      a.errMessage,
		CreatedAt:  a.createdAt,
	}
}
