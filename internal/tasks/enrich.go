package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/likesorter/internal/models"
	"github.com/desertthunder/likesorter/internal/shared"
)

// ArtistsPerTrack bounds how many of a track's artists are looked up for genres.
const ArtistsPerTrack = 2

// Mode selects how [Engine.LikedSongs] treats genres.
type Mode int

const (
	// ModeInline looks up genres for every track before returning.
	ModeInline Mode = iota
	// ModeSkip returns empty genre placeholders without any lookups.
	ModeSkip
)

// BackoffPolicy is a static pacing schedule for artist lookups.
//
// Lookups run in batches of BatchSize; ItemDelay separates lookups within a batch and BatchDelay separates batches.
type BackoffPolicy struct {
	BatchSize  int
	ItemDelay  time.Duration
	BatchDelay time.Duration
}

var (
	// InlinePolicy paces enrichment done while the caller waits for the track list.
	InlinePolicy = BackoffPolicy{BatchSize: 10, ItemDelay: 50 * time.Millisecond, BatchDelay: 200 * time.Millisecond}
	// DeferredPolicy paces enrichment requested after the track list was already shown.
	DeferredPolicy = BackoffPolicy{BatchSize: 5, ItemDelay: 200 * time.Millisecond, BatchDelay: 500 * time.Millisecond}
)

func (p BackoffPolicy) batchSize() int {
	if p.BatchSize <= 0 {
		return 1
	}
	return p.BatchSize
}

// EnrichReport describes how far enrichment got.
type EnrichReport struct {
	Skipped   bool `json:"skipped"`
	Partial   bool `json:"partial"`
	StoppedAt int  `json:"stopped_at"` // index of the first track left unenriched by a rate limit, -1 when complete
	Lookups   int  `json:"lookups"`
	Failed    int  `json:"failed"`
}

// LikedResult is the outcome of [Engine.LikedSongs].
type LikedResult struct {
	Tracks     []models.SavedTrack
	Enrichment EnrichReport
}

// GenresResult is the outcome of [Engine.Genres].
type GenresResult struct {
	Genres     map[string][]string
	Enrichment EnrichReport
}

// LikedSongs fetches the full list, then enriches it according to mode.
//
// Enrichment problems never fail the call; they are reported in [LikedResult.Enrichment].
func (e *Engine) LikedSongs(ctx context.Context, progress chan<- ProgressUpdate, mode Mode) (*LikedResult, error) {
	liked, err := e.FetchLiked(ctx, progress)
	if err != nil {
		return nil, err
	}

	if mode == ModeSkip {
		for i := range liked {
			liked[i].Track.Genres = []string{}
		}
		return &LikedResult{Tracks: liked, Enrichment: EnrichReport{Skipped: true, StoppedAt: -1}}, nil
	}

	report, err := e.Enrich(ctx, progress, liked, e.inline)
	if err != nil {
		return nil, err
	}
	return &LikedResult{Tracks: liked, Enrichment: report}, nil
}

// Genres fetches the full list and enriches it with the deferred policy, returning genres keyed by track uri.
func (e *Engine) Genres(ctx context.Context, progress chan<- ProgressUpdate) (*GenresResult, error) {
	liked, err := e.FetchLiked(ctx, progress)
	if err != nil {
		return nil, err
	}

	report, err := e.Enrich(ctx, progress, liked, e.deferred)
	if err != nil {
		return nil, err
	}

	genres := make(map[string][]string, len(liked))
	for _, st := range liked {
		genres[st.Track.URI] = st.Track.Genres
	}
	return &GenresResult{Genres: genres, Enrichment: report}, nil
}

// Enrich sets Genres on every track in place, one batched artist lookup per track.
//
// A rate-limited lookup at index k leaves tracks k and later with empty genres and stops.
// Any other lookup failure empties that track's genres and enrichment carries on.
// Only context cancellation is returned as an error.
func (e *Engine) Enrich(ctx context.Context, progress chan<- ProgressUpdate, tracks []models.SavedTrack, policy BackoffPolicy) (EnrichReport, error) {
	report := EnrichReport{StoppedAt: -1}
	total := len(tracks)
	size := policy.batchSize()

	for start := 0; start < total; start += size {
		if start > 0 {
			if err := e.sleep(ctx, policy.BatchDelay); err != nil {
				return report, err
			}
		}

		end := min(start+size, total)
		for i := start; i < end; i++ {
			track := &tracks[i].Track
			ids := track.ArtistIDs(ArtistsPerTrack)
			if len(ids) == 0 {
				track.Genres = []string{}
				continue
			}

			if i > start {
				if err := e.sleep(ctx, policy.ItemDelay); err != nil {
					return report, err
				}
			}

			e.sendProgress(progress, enrichUpdate(i+1, total, track.Name))
			artists, err := e.client.Artists(ctx, ids)
			report.Lookups++

			switch {
			case err == nil:
				track.Genres = unionGenres(artists)
			case errors.Is(err, shared.ErrRateLimited):
				for j := i; j < total; j++ {
					tracks[j].Track.Genres = []string{}
				}
				report.Partial = true
				report.StoppedAt = i
				e.logger.Warn("rate limited during genre enrichment", "stopped_at", i, "total", total)
				e.sendProgress(progress, enrichStoppedUpdate(i, total))
				return report, nil
			case ctx.Err() != nil:
				return report, fmt.Errorf("genre enrichment interrupted: %w", ctx.Err())
			default:
				track.Genres = []string{}
				report.Failed++
				e.logger.Warn("genre lookup failed", "track", track.ID, "err", err)
			}
		}
	}

	return report, nil
}

// unionGenres merges genre tags, keeping first-seen order.
func unionGenres(artists []models.Artist) []string {
	seen := make(map[string]struct{})
	genres := []string{}
	for _, a := range artists {
		for _, g := range a.Genres {
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			genres = append(genres, g)
		}
	}
	return genres
}
