package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, 0 when unknown
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	FetchLiked Phase = iota
	FetchPlaylists
	Enrich
	AddToPlaylist
	RemoveFromLiked
	Export
)

func (p Phase) String() string {
	switch p {
	case FetchLiked:
		return "fetch_liked"
	case FetchPlaylists:
		return "fetch_playlists"
	case Enrich:
		return "enrich"
	case AddToPlaylist:
		return "add_to_playlist"
	case RemoveFromLiked:
		return "remove_from_liked"
	case Export:
		return "export"
	default:
		return ""
	}
}

func fetchPageUpdate(page, fetched int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLiked,
		Step:    page,
		Message: fmt.Sprintf("Fetched page %d (%d liked songs so far)...", page, fetched),
	}
}

func fetchPlaylistsUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    1,
		Total:   1,
		Message: "Fetching playlists...",
	}
}

func enrichUpdate(step, total int, t string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Enrich,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Looking up genres for %s", step, total, t),
	}
}

func enrichStoppedUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Enrich,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Rate limited at %d/%d, remaining genres left empty", step, total),
	}
}

func mutationUpdate(phase Phase, batch, batches, done int) ProgressUpdate {
	verb := "Added"
	if phase == RemoveFromLiked {
		verb = "Removed"
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    batch,
		Total:   batches,
		Message: fmt.Sprintf("[%d/%d] %s %d tracks", batch, batches, verb, done),
	}
}

func exportUpdate(step, total int, format string, err error) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ %s", step, total, format)
	if err != nil {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, format, err)
	}
	return ProgressUpdate{Phase: Export, Step: step, Total: total, Message: msg}
}
