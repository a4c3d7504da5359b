package dashboard

import (
	"fmt"
	"time"

	"github.com/desertthunder/likesorter/internal/shared"
)

// StatusTTL is how long a status message stays visible.
const StatusTTL = 3 * time.Second

// StatusKind distinguishes success and error messages.
type StatusKind int

const (
	StatusSuccess StatusKind = iota
	StatusError
)

func (k StatusKind) String() string {
	if k == StatusError {
		return "error"
	}
	return "success"
}

// Status is a single message shown to the user.
type Status struct {
	Message string
	Kind    StatusKind
	ShownAt time.Time
}

// StatusLine holds the most recent status message until it expires.
// Showing a new message replaces the current one and restarts the timer.
type StatusLine struct {
	now     func() time.Time
	ttl     time.Duration
	current *Status
}

// NewStatusLine creates a status line reading time from now. A nil now uses [time.Now].
func NewStatusLine(now func() time.Time, ttl time.Duration) *StatusLine {
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = StatusTTL
	}
	return &StatusLine{now: now, ttl: ttl}
}

// Show replaces the current message.
func (s *StatusLine) Show(kind StatusKind, msg string) {
	s.current = &Status{Message: msg, Kind: kind, ShownAt: s.now()}
}

// Success shows a success message.
func (s *StatusLine) Success(msg string) { s.Show(StatusSuccess, msg) }

// Error shows an error message.
func (s *StatusLine) Error(msg string) { s.Show(StatusError, msg) }

// Current returns the visible message, if any. Expired messages are dropped.
func (s *StatusLine) Current() (Status, bool) {
	if s.current == nil {
		return Status{}, false
	}
	if s.now().Sub(s.current.ShownAt) >= s.ttl {
		s.current = nil
		return Status{}, false
	}
	return *s.current, true
}

// Dismiss hides the current message.
func (s *StatusLine) Dismiss() { s.current = nil }

// Expires returns when the current message will disappear, or the zero time when nothing is shown.
func (s *StatusLine) Expires() time.Time {
	if s.current == nil {
		return time.Time{}
	}
	return s.current.ShownAt.Add(s.ttl)
}

// AddedMessage is the confirmation shown after adding tracks to a playlist.
func AddedMessage(count int, playlist string) string {
	return fmt.Sprintf("Added %d %s to %q", count, shared.Pluralize(count, "song"), playlist)
}

// RemovedMessage is the confirmation shown after removing tracks from liked songs.
func RemovedMessage(count int) string {
	return fmt.Sprintf("Removed %d %s from liked songs", count, shared.Pluralize(count, "song"))
}
