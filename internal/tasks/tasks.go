// package tasks implements the liked songs workflows: paginated fetch, genre enrichment and batched mutations.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/likesorter/internal/models"
	"github.com/desertthunder/likesorter/internal/services"
	"github.com/desertthunder/likesorter/internal/shared"
	"golang.org/x/time/rate"
)

// PageSize is the number of liked songs requested per page.
const PageSize = services.MaxSavedTracksPage

// Workflow defines the bulk operations over a user's library.
type Workflow interface {
	// FetchLiked pages through the liked songs from offset 0 until a short page.
	FetchLiked(ctx context.Context, progress chan<- ProgressUpdate) ([]models.SavedTrack, error)

	// LikedSongs fetches every liked song and, depending on mode, enriches it with genres.
	LikedSongs(ctx context.Context, progress chan<- ProgressUpdate, mode Mode) (*LikedResult, error)

	// Genres fetches every liked song and returns genre tags keyed by track uri.
	Genres(ctx context.Context, progress chan<- ProgressUpdate) (*GenresResult, error)

	// EditablePlaylists lists the playlists the user owns or collaborates on.
	EditablePlaylists(ctx context.Context, progress chan<- ProgressUpdate) ([]models.Playlist, error)

	// AddToPlaylist appends uris to a playlist in batches of at most 100.
	AddToPlaylist(ctx context.Context, progress chan<- ProgressUpdate, playlistID string, uris []string) (*MutationResult, error)

	// RemoveFromLiked removes ids from liked songs in batches of at most 50.
	RemoveFromLiked(ctx context.Context, progress chan<- ProgressUpdate, ids []string) (*MutationResult, error)
}

// Journal persists a summary of each mutation. Implemented by repositories.ActivityRepository.
type Journal interface {
	Create(activity *models.Activity) error
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Engine implements [Workflow] against a single user's [services.Client].
type Engine struct {
	client   services.Client
	inline   BackoffPolicy
	deferred BackoffPolicy
	pageSize int
	limiter  *rate.Limiter
	sleep    Sleeper
	journal  Journal
	logger   *log.Logger
}

// Option configures an [Engine].
type Option func(*Engine)

// WithInlinePolicy sets the pacing used by [Engine.LikedSongs].
func WithInlinePolicy(p BackoffPolicy) Option { return func(e *Engine) { e.inline = p } }

// WithDeferredPolicy sets the pacing used by [Engine.Genres].
func WithDeferredPolicy(p BackoffPolicy) Option { return func(e *Engine) { e.deferred = p } }

// WithMutationRate paces mutation batches to perSecond. Zero or less disables pacing.
func WithMutationRate(perSecond float64) Option {
	return func(e *Engine) {
		if perSecond <= 0 {
			e.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		e.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithSleeper replaces the wall-clock sleeper, used by tests.
func WithSleeper(s Sleeper) Option { return func(e *Engine) { e.sleep = s } }

// WithJournal records every mutation to j.
func WithJournal(j Journal) Option { return func(e *Engine) { e.journal = j } }

// WithLogger sets the engine logger.
func WithLogger(l *log.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithPageSize overrides the liked songs page size, clamped to [1, 50].
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 && n <= PageSize {
			e.pageSize = n
		}
	}
}

// OptionsFromConfig maps the [sync] config section to engine options.
func OptionsFromConfig(c shared.SyncConfig) []Option {
	return []Option{
		WithPageSize(c.PageSize),
		WithInlinePolicy(BackoffPolicy{
			BatchSize:  c.InlineBatchSize,
			ItemDelay:  shared.Millis(c.InlineItemDelay),
			BatchDelay: shared.Millis(c.InlineBatchDelay),
		}),
		WithDeferredPolicy(BackoffPolicy{
			BatchSize:  c.DeferredBatchSize,
			ItemDelay:  shared.Millis(c.DeferredItemDelay),
			BatchDelay: shared.Millis(c.DeferredBatchWait),
		}),
		WithMutationRate(c.MutationRate),
	}
}

// NewEngine creates an [Engine] for client.
func NewEngine(client services.Client, opts ...Option) *Engine {
	e := &Engine{
		client:   client,
		inline:   InlinePolicy,
		deferred: DeferredPolicy,
		pageSize: PageSize,
		limiter:  rate.NewLimiter(rate.Limit(5), 1),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = shared.NewLogger(nil)
	}
	return e
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// FetchLiked requests pages strictly in sequence: each offset is the previous offset plus the page size,
// and a page shorter than the page size ends the collection.
func (e *Engine) FetchLiked(ctx context.Context, progress chan<- ProgressUpdate) ([]models.SavedTrack, error) {
	if e.client == nil {
		return nil, fmt.Errorf("%w: spotify client not initialized", shared.ErrServiceUnavailable)
	}

	var liked []models.SavedTrack
	for page, offset := 1, 0; ; page, offset = page+1, offset+e.pageSize {
		items, err := e.client.SavedTracks(ctx, e.pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch liked songs at offset %d: %w", offset, err)
		}

		liked = append(liked, items...)
		e.sendProgress(progress, fetchPageUpdate(page, len(liked)))

		if len(items) < e.pageSize {
			break
		}
	}

	e.logger.Debug("fetched liked songs", "count", len(liked))
	return liked, nil
}

// EditablePlaylists keeps only playlists the current user owns or that are collaborative.
func (e *Engine) EditablePlaylists(ctx context.Context, progress chan<- ProgressUpdate) ([]models.Playlist, error) {
	if e.client == nil {
		return nil, fmt.Errorf("%w: spotify client not initialized", shared.ErrServiceUnavailable)
	}

	e.sendProgress(progress, fetchPlaylistsUpdate())

	user, err := e.client.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	all, err := e.client.Playlists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlists: %w", err)
	}

	editable := make([]models.Playlist, 0, len(all))
	for _, p := range all {
		if p.EditableBy(user.ID) {
			editable = append(editable, p)
		}
	}
	return editable, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
