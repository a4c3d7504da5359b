package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/likesorter/internal/models"
	"github.com/desertthunder/likesorter/internal/services"
	"github.com/desertthunder/likesorter/internal/shared"
)

// MutationResult aggregates a batched mutation.
type MutationResult struct {
	Requested int   // Items asked for
	Completed int   // Items committed upstream before any failure
	Batches   []int // Size of each committed batch, in order
}

// AddToPlaylist sends uris to playlistID in sequential batches of at most 100.
//
// The first failing batch aborts the operation; the returned result still reports what was committed.
func (e *Engine) AddToPlaylist(ctx context.Context, progress chan<- ProgressUpdate, playlistID string, uris []string) (*MutationResult, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id is required", shared.ErrInvalidInput)
	}
	if len(uris) == 0 {
		return nil, fmt.Errorf("%w: at least one track uri is required", shared.ErrInvalidInput)
	}
	// A bad uri in a later batch must not leave earlier batches committed.
	for _, uri := range uris {
		if _, err := services.TrackIDFromURI(uri); err != nil {
			return nil, err
		}
	}

	result, err := e.mutate(ctx, progress, AddToPlaylist, uris, services.MaxPlaylistAdd, func(batch []string) error {
		return e.client.AddTracksToPlaylist(ctx, playlistID, batch)
	})
	e.record(models.ActivityAddToPlaylist, playlistID, result, err)
	return result, err
}

// RemoveFromLiked removes ids from liked songs in sequential batches of at most 50.
func (e *Engine) RemoveFromLiked(ctx context.Context, progress chan<- ProgressUpdate, ids []string) (*MutationResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: at least one track id is required", shared.ErrInvalidInput)
	}

	result, err := e.mutate(ctx, progress, RemoveFromLiked, ids, services.MaxLibraryRemove, func(batch []string) error {
		return e.client.RemoveSavedTracks(ctx, batch)
	})
	e.record(models.ActivityRemoveFromLiked, "", result, err)
	return result, err
}

func (e *Engine) mutate(ctx context.Context, progress chan<- ProgressUpdate, phase Phase, items []string, size int, send func([]string) error) (*MutationResult, error) {
	if e.client == nil {
		return nil, fmt.Errorf("%w: spotify client not initialized", shared.ErrServiceUnavailable)
	}

	batches := Chunk(items, size)
	result := &MutationResult{Requested: len(items)}

	for i, batch := range batches {
		if err := e.limiter.Wait(ctx); err != nil {
			return result, fmt.Errorf("%s interrupted: %w", phase, err)
		}

		if err := send(batch); err != nil {
			e.logger.Error("batch failed", "phase", phase, "batch", i+1, "batches", len(batches), "committed", result.Completed, "err", err)
			return result, fmt.Errorf("%s batch %d of %d failed after %d committed: %w", phase, i+1, len(batches), result.Completed, err)
		}

		result.Completed += len(batch)
		result.Batches = append(result.Batches, len(batch))
		e.sendProgress(progress, mutationUpdate(phase, i+1, len(batches), result.Completed))
	}

	return result, nil
}

// record journals a mutation. Journal failures are logged, never returned.
func (e *Engine) record(kind models.ActivityKind, playlistID string, result *MutationResult, err error) {
	if e.journal == nil || result == nil {
		return
	}

	a := models.NewActivity(kind, playlistID, result.Requested, result.Completed)
	if err != nil {
		a.SetErrorMessage(err.Error())
	}
	if jerr := e.journal.Create(a); jerr != nil {
		e.logger.Warn("failed to record activity", "kind", kind, "err", jerr)
	}
}

// Chunk splits items into consecutive slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		chunks = append(chunks, items[start:min(start+size, len(items))])
	}
	return chunks
}
