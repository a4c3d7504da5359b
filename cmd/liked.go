package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/likesorter/internal/dashboard"
	"github.com/desertthunder/likesorter/internal/formatter"
	"github.com/desertthunder/likesorter/internal/models"
	"github.com/desertthunder/likesorter/internal/shared"
	"github.com/desertthunder/likesorter/internal/tasks"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// logProgress drains progress into the logger until the channel is closed.
func (r *Runner) logProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	for update := range progress {
		r.logger.Info(update.Message, "phase", update.Phase)
	}
	close(done)
}

// withProgress runs fn with a progress channel that is logged while fn runs.
func (r *Runner) withProgress(fn func(progress chan<- tasks.ProgressUpdate) error) error {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go r.logProgress(progress, done)

	err := fn(progress)
	close(progress)
	<-done
	return err
}

// loadSession fetches liked songs into a session carrying the command's filters.
func (r *Runner) loadSession(ctx context.Context, cmd *cli.Command, engine *tasks.Engine, mode tasks.Mode) (*dashboard.Session, *tasks.LikedResult, error) {
	var result *tasks.LikedResult
	err := r.withProgress(func(progress chan<- tasks.ProgressUpdate) error {
		var err error
		result, err = engine.LikedSongs(ctx, progress, mode)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	session := dashboard.NewSession()
	session.Load(result.Tracks)
	session.SetFilter(dashboard.Filter{Title: cmd.String("title"), Artist: cmd.String("artist")})

	if result.Enrichment.Partial {
		r.logger.Warn("genres partially loaded: spotify rate limit reached", "stopped_at", result.Enrichment.StoppedAt)
	}
	return session, result, nil
}

func filteredTracks(session *dashboard.Session) []models.SavedTrack {
	entries := session.Filtered()
	tracks := make([]models.SavedTrack, len(entries))
	for i, e := range entries {
		tracks[i] = e.Saved
	}
	return tracks
}

// LikedList prints liked songs matching the filters.
func (r *Runner) LikedList(ctx context.Context, cmd *cli.Command) error {
	client, err := r.spotify(ctx)
	if err != nil {
		return err
	}

	mode := tasks.ModeSkip
	if cmd.Bool("genres") {
		mode = tasks.ModeInline
	}

	session, _, err := r.loadSession(ctx, cmd, r.engine(client, false), mode)
	if err != nil {
		return err
	}

	entries := session.Filtered()
	if limit := int(cmd.Int("limit")); limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}

	if cmd.Bool("json") {
		tracks := make([]models.SavedTrack, len(entries))
		for i, e := range entries {
			tracks[i] = e.Saved
		}
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	r.writePlain("Showing %d of %d liked songs:\n\n", len(entries), session.Len())
	for _, e := range entries {
		t := e.Saved.Track
		r.writePlain("%d. %s - %s\n", e.Index+1, t.ArtistNames(), t.Name)
		if t.Album.Name != "" {
			r.writePlain("   Album: %s\n", t.Album.Name)
		}
		if len(t.Genres) > 0 {
			r.writePlain("   Genres: %s\n", strings.Join(t.Genres, ", "))
		}
		if !e.Saved.AddedAt.IsZero() {
			r.writePlain("   Liked: %s\n", humanize.Time(e.Saved.AddedAt))
		}
		r.writePlain("   URI: %s\n", t.URI)
	}
	return nil
}

// LikedExport writes the matching liked songs in every requested format.
func (r *Runner) LikedExport(ctx context.Context, cmd *cli.Command) error {
	formats, err := parseFormats(cmd.StringSlice("format"))
	if err != nil {
		return err
	}

	client, err := r.spotify(ctx)
	if err != nil {
		return err
	}

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	mode := tasks.ModeSkip
	if cmd.Bool("genres") {
		mode = tasks.ModeInline
	}

	engine := r.engine(client, false)
	session, _, err := r.loadSession(ctx, cmd, engine, mode)
	if err != nil {
		return err
	}

	export := &formatter.LikedExport{
		Owner:      user.DisplayName,
		ExportedAt: time.Now().UTC(),
		Tracks:     filteredTracks(session),
	}

	var result *tasks.ExportResult
	err = r.withProgress(func(progress chan<- tasks.ProgressUpdate) error {
		var err error
		result, err = engine.Export(ctx, progress, export, tasks.ExportOpts{Formats: formats, OutputDir: cmd.String("output")})
		return err
	})
	if err != nil {
		return err
	}

	r.writePlain("✓ Exported %d tracks\n", len(export.Tracks))
	for _, f := range formatter.Formats {
		if path, ok := result.Manifest.Files[f]; ok {
			r.writePlain("  %-8s %s\n", f, path)
		}
	}
	for f, msg := range result.Manifest.Errors {
		r.writePlain("  ✗ %-6s %s\n", f, msg)
	}
	r.writePlain("  manifest %s\n", result.ManifestPath)

	if result.Failed > 0 {
		return fmt.Errorf("%d of %d formats failed", result.Failed, result.Failed+len(result.Manifest.Files))
	}
	return nil
}

// LikedAdd adds every liked song matching the filters to a playlist.
func (r *Runner) LikedAdd(ctx context.Context, cmd *cli.Command) error {
	client, err := r.spotify(ctx)
	if err != nil {
		return err
	}
	engine := r.engine(client, !cmd.Bool("dry-run"))

	session, _, err := r.loadSession(ctx, cmd, engine, tasks.ModeSkip)
	if err != nil {
		return err
	}

	playlists, err := engine.EditablePlaylists(ctx, nil)
	if err != nil {
		return err
	}
	session.SetPlaylists(playlists)
	if err := session.SelectPlaylist(cmd.String("playlist")); err != nil {
		return fmt.Errorf("%w: you can only add to playlists you own or collaborate on", err)
	}
	playlist, _ := session.SelectedPlaylist()

	if session.SelectAll() == 0 {
		return r.writePlain("No liked songs match the filters\n")
	}

	if cmd.Bool("dry-run") {
		r.writePlain("Would add %d %s to %q:\n", session.SelectionCount(), shared.Pluralize(session.SelectionCount(), "song"), playlist.Name)
		for _, i := range session.SelectedIndices() {
			t, _ := session.Track(i)
			r.writePlain("  %s - %s\n", t.Track.ArtistNames(), t.Track.Name)
		}
		return nil
	}

	var result *tasks.MutationResult
	err = r.withProgress(func(progress chan<- tasks.ProgressUpdate) error {
		var err error
		result, err = engine.AddToPlaylist(ctx, progress, playlist.ID, session.SelectedURIs())
		return err
	})
	if err != nil {
		if result != nil && result.Completed > 0 {
			r.writePlain("⚠ %s before the failure\n", dashboard.AddedMessage(result.Completed, playlist.Name))
		}
		return err
	}

	return r.writePlain("✓ %s\n", dashboard.AddedMessage(result.Completed, playlist.Name))
}

// LikedRemove removes every liked song matching the filters. Without --yes it only lists them.
func (r *Runner) LikedRemove(ctx context.Context, cmd *cli.Command) error {
	client, err := r.spotify(ctx)
	if err != nil {
		return err
	}
	confirmed := cmd.Bool("yes")
	engine := r.engine(client, confirmed)

	session, _, err := r.loadSession(ctx, cmd, engine, tasks.ModeSkip)
	if err != nil {
		return err
	}

	if session.SelectAll() == 0 {
		return r.writePlain("No liked songs match the filters\n")
	}
	n := session.SelectionCount()

	if !confirmed {
		r.writePlain("Would remove %d %s from liked songs:\n", n, shared.Pluralize(n, "song"))
		for _, i := range session.SelectedIndices() {
			t, _ := session.Track(i)
			r.writePlain("  %s - %s\n", t.Track.ArtistNames(), t.Track.Name)
		}
		return r.writePlainln("Re-run with --yes to remove them.")
	}

	var result *tasks.MutationResult
	err = r.withProgress(func(progress chan<- tasks.ProgressUpdate) error {
		var err error
		result, err = engine.RemoveFromLiked(ctx, progress, session.SelectedIDs())
		return err
	})
	if err != nil {
		if result != nil && result.Completed > 0 {
			r.writePlain("⚠ %s before the failure\n", dashboard.RemovedMessage(result.Completed))
		}
		return err
	}

	return r.writePlain("✓ %s\n", dashboard.RemovedMessage(result.Completed))
}

// Playlists lists the playlists the user can add tracks to, largest first.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	client, err := r.spotify(ctx)
	if err != nil {
		return err
	}

	playlists, err := r.engine(client, false).EditablePlaylists(ctx, nil)
	if err != nil {
		return err
	}

	session := dashboard.NewSession()
	session.SetPlaylists(playlists)
	playlists = session.Playlists()

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %s\n", humanize.Comma(int64(p.TrackCount)))
		if p.Collaborative {
			r.writePlain("   Collaborative\n")
		}
		r.writePlain("\n")
	}
	return nil
}

// Activity prints the mutation journal, newest first.
func (r *Runner) Activity(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.activity()
	if err != nil {
		return err
	}

	criteria := map[string]any{"limit": int(cmd.Int("limit"))}
	if kind := cmd.String("kind"); kind != "" {
		criteria["kind"] = kind
	}

	entries, err := repo.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]models.ActivityView, len(entries))
		for i, a := range entries {
			views[i] = a.View()
		}
		return r.writeJSON(views, true)
	}

	if len(entries) == 0 {
		return r.writePlain("No activity recorded yet\n")
	}

	for _, a := range entries {
		mark := "✓"
		if !a.Succeeded() {
			mark = "✗"
		}
		r.writePlain("%s %-18s %d/%d", mark, a.Kind(), a.Completed(), a.Requested())
		if a.PlaylistID() != "" {
			r.writePlain(" → %s", a.PlaylistID())
		}
		r.writePlain("  (%s)\n", humanize.Time(a.CreatedAt()))
		if msg := a.ErrorMessage(); msg != "" {
			r.writePlain("    %s\n", msg)
		}
	}
	return nil
}
