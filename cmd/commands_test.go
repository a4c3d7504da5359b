package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/likesorter/internal/models"
	"github.com/desertthunder/likesorter/internal/shared"
	tu "github.com/desertthunder/likesorter/internal/testing"
)

func newTestRunner(t *testing.T, client *tu.MockClient) (*Runner, *bytes.Buffer) {
	t.Helper()

	config := shared.DefaultConfig()
	config.Database.Path = ":memory:"
	config.Sync.MutationRate = 0

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Config: config, Client: client, Output: output})
	t.Cleanup(runner.Close)
	return runner, output
}

func run(r *Runner, args ...string) error {
	root := r.app()
	root.Before = nil
	return root.Run(context.Background(), append([]string{"likesorter"}, args...))
}

func TestLikedCommands(t *testing.T) {
	t.Run("list applies filters", func(t *testing.T) {
		client := tu.NewMockClient(12)
		runner, output := newTestRunner(t, client)

		if err := run(runner, "liked", "list", "--artist", "artist 1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		result := output.String()
		if !strings.Contains(result, "Showing 3 of 12 liked songs") {
			t.Errorf("expected filtered count, got %q", result)
		}
		if !strings.Contains(result, "Artist 10 - Track 10") {
			t.Errorf("expected Track 10 in output, got %q", result)
		}
		if strings.Contains(result, "Artist 2 - Track 2") {
			t.Errorf("expected Track 2 to be filtered out, got %q", result)
		}
		if client.Calls("Artists") != 0 {
			t.Errorf("expected no artist lookups without --genres, got %d", client.Calls("Artists"))
		}
	})

	t.Run("list as JSON with limit", func(t *testing.T) {
		runner, output := newTestRunner(t, tu.NewMockClient(5))

		if err := run(runner, "liked", "list", "--json", "--limit", "2"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var tracks []models.SavedTrack
		if err := json.Unmarshal(output.Bytes(), &tracks); err != nil {
			t.Fatalf("expected JSON output, got %v", err)
		}
		if len(tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(tracks))
		}
		if tracks[0].Track.ID != "track0" {
			t.Errorf("expected master order, got %s first", tracks[0].Track.ID)
		}
	})

	t.Run("list surfaces fetch failures", func(t *testing.T) {
		client := tu.NewMockClient(3)
		client.Err = func(method string, n int) error {
			if method == "SavedTracks" {
				return shared.ErrNotAuthenticated
			}
			return nil
		}
		runner, _ := newTestRunner(t, client)

		err := run(runner, "liked", "list")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("export writes requested formats", func(t *testing.T) {
		runner, output := newTestRunner(t, tu.NewMockClient(3))
		dir := t.TempDir()

		err := run(runner, "liked", "export", "--genres=false", "--output", dir, "--format", "csv", "--format", "json")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "liked_songs.csv"))
		tu.AssertFileExists(t, filepath.Join(dir, "liked_songs.json"))
		tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))
		if _, err := os.Stat(filepath.Join(dir, "liked_songs.md")); err == nil {
			t.Error("expected markdown to be skipped")
		}
		if !strings.Contains(output.String(), "Exported 3 tracks") {
			t.Errorf("expected export summary, got %q", output.String())
		}
	})

	t.Run("export rejects unknown formats", func(t *testing.T) {
		client := tu.NewMockClient(3)
		runner, _ := newTestRunner(t, client)

		err := run(runner, "liked", "export", "--format", "xml")
		if err == nil {
			t.Fatal("expected error for unknown format")
		}
		if client.Calls("SavedTracks") != 0 {
			t.Error("expected no fetch before format validation")
		}
	})
}

func TestMutationCommands(t *testing.T) {
	playlists := []models.Playlist{
		{ID: "pl1", Name: "Mix", OwnerID: "me", TrackCount: 4},
		{ID: "theirs", Name: "Not Mine", OwnerID: "someone"},
	}

	t.Run("add sends filtered tracks and journals it", func(t *testing.T) {
		client := tu.NewMockClient(12)
		client.PlaylistItems = playlists
		runner, output := newTestRunner(t, client)

		if err := run(runner, "liked", "add", "--playlist", "pl1", "--title", "track 1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		batches := client.Added["pl1"]
		if len(batches) != 1 || len(batches[0]) != 3 {
			t.Fatalf("expected one batch of 3, got %v", batches)
		}
		if batches[0][0] != "spotify:track:track1" {
			t.Errorf("expected master order, got %v", batches[0])
		}
		if !strings.Contains(output.String(), `Added 3 songs to "Mix"`) {
			t.Errorf("expected confirmation, got %q", output.String())
		}

		output.Reset()
		if err := run(runner, "activity", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var views []models.ActivityView
		if err := json.Unmarshal(output.Bytes(), &views); err != nil {
			t.Fatalf("expected JSON output, got %v", err)
		}
		if len(views) != 1 {
			t.Fatalf("expected 1 activity entry, got %d", len(views))
		}
		if views[0].Kind != models.ActivityAddToPlaylist || views[0].Requested != 3 || views[0].Completed != 3 {
			t.Errorf("unexpected activity entry: %+v", views[0])
		}
	})

	t.Run("add refuses playlists the user cannot edit", func(t *testing.T) {
		client := tu.NewMockClient(3)
		client.PlaylistItems = playlists
		runner, _ := newTestRunner(t, client)

		err := run(runner, "liked", "add", "--playlist", "theirs")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if client.Calls("AddTracksToPlaylist") != 0 {
			t.Error("expected no add calls")
		}
	})

	t.Run("add dry run sends nothing", func(t *testing.T) {
		client := tu.NewMockClient(3)
		client.PlaylistItems = playlists
		runner, output := newTestRunner(t, client)

		if err := run(runner, "liked", "add", "--playlist", "pl1", "--dry-run"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if client.Calls("AddTracksToPlaylist") != 0 {
			t.Error("expected no add calls")
		}
		if !strings.Contains(output.String(), `Would add 3 songs to "Mix"`) {
			t.Errorf("expected preview, got %q", output.String())
		}
	})

	t.Run("add with no matches", func(t *testing.T) {
		client := tu.NewMockClient(3)
		client.PlaylistItems = playlists
		runner, output := newTestRunner(t, client)

		if err := run(runner, "liked", "add", "--playlist", "pl1", "--artist", "nobody"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "No liked songs match") {
			t.Errorf("expected no-match message, got %q", output.String())
		}
	})

	t.Run("remove without --yes only previews", func(t *testing.T) {
		client := tu.NewMockClient(3)
		runner, output := newTestRunner(t, client)

		if err := run(runner, "liked", "remove", "--artist", "artist 2"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if client.Calls("RemoveSavedTracks") != 0 {
			t.Error("expected no remove calls")
		}
		if !strings.Contains(output.String(), "Re-run with --yes") {
			t.Errorf("expected confirmation hint, got %q", output.String())
		}
	})

	t.Run("remove with --yes", func(t *testing.T) {
		client := tu.NewMockClient(3)
		runner, output := newTestRunner(t, client)

		if err := run(runner, "liked", "remove", "--artist", "artist 2", "--yes"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(client.Removed) != 1 || len(client.Removed[0]) != 1 || client.Removed[0][0] != "track2" {
			t.Errorf("expected track2 removed, got %v", client.Removed)
		}
		if !strings.Contains(output.String(), "Removed 1 song from liked songs") {
			t.Errorf("expected confirmation, got %q", output.String())
		}
	})

	t.Run("remove reports partial progress", func(t *testing.T) {
		client := tu.NewMockClient(60)
		client.Err = func(method string, n int) error {
			if method == "RemoveSavedTracks" && n == 2 {
				return shared.ErrRateLimited
			}
			return nil
		}
		runner, output := newTestRunner(t, client)

		err := run(runner, "liked", "remove", "--yes")
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
		if !strings.Contains(output.String(), "Removed 50 songs from liked songs before the failure") {
			t.Errorf("expected partial count, got %q", output.String())
		}
	})
}

func TestPlaylistsCommand(t *testing.T) {
	client := tu.NewMockClient(0)
	client.PlaylistItems = []models.Playlist{
		{ID: "small", Name: "Small", OwnerID: "me", TrackCount: 2},
		{ID: "big", Name: "Big", OwnerID: "me", TrackCount: 1200},
		{ID: "collab", Name: "Shared", OwnerID: "friend", Collaborative: true, TrackCount: 40},
		{ID: "theirs", Name: "Theirs", OwnerID: "friend", TrackCount: 90},
	}
	runner, output := newTestRunner(t, client)

	if err := run(runner, "playlists"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	result := output.String()
	if !strings.Contains(result, "Found 3 playlists") {
		t.Errorf("expected 3 editable playlists, got %q", result)
	}
	if strings.Contains(result, "Theirs") {
		t.Error("expected playlists owned by others to be hidden")
	}
	big, collab, small := strings.Index(result, "Big"), strings.Index(result, "Shared"), strings.Index(result, "Small")
	if big > collab || collab > small {
		t.Errorf("expected largest first, got %q", result)
	}
	if !strings.Contains(result, "1,200") {
		t.Errorf("expected humanized track count, got %q", result)
	}
}

func TestActivityCommand(t *testing.T) {
	t.Run("empty journal", func(t *testing.T) {
		runner, output := newTestRunner(t, tu.NewMockClient(0))

		if err := run(runner, "activity"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "No activity recorded yet") {
			t.Errorf("expected empty message, got %q", output.String())
		}
	})

	t.Run("filters by kind", func(t *testing.T) {
		runner, output := newTestRunner(t, tu.NewMockClient(0))
		repo, err := runner.activity()
		if err != nil {
			t.Fatalf("failed to open journal: %v", err)
		}
		for _, a := range []*models.Activity{
			models.NewActivity(models.ActivityAddToPlaylist, "pl1", 3, 3),
			models.NewActivity(models.ActivityRemoveFromLiked, "", 2, 2),
		} {
			if err := repo.Create(a); err != nil {
				t.Fatalf("failed to seed activity: %v", err)
			}
		}

		if err := run(runner, "activity", "--kind", "remove_from_liked"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		result := output.String()
		if !strings.Contains(result, "remove_from_liked") || strings.Contains(result, "add_to_playlist") {
			t.Errorf("expected only removals, got %q", result)
		}
	})
}

func TestPlayCommand(t *testing.T) {
	t.Run("requires a uri", func(t *testing.T) {
		runner, _ := newTestRunner(t, tu.NewMockClient(0))

		err := run(runner, "play")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("rejects non-track uris", func(t *testing.T) {
		runner, _ := newTestRunner(t, tu.NewMockClient(0))

		err := run(runner, "play", "spotify:album:abc")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("without a player client", func(t *testing.T) {
		runner, _ := newTestRunner(t, tu.NewMockClient(0))

		err := run(runner, "play", "spotify:track:abc")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("config creates the file and prints settings", func(t *testing.T) {
		runner, output := newTestRunner(t, tu.NewMockClient(0))
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := run(runner, "--config", path, "setup", "config"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, path)
		result := output.String()
		if !strings.Contains(result, "database.path") {
			t.Errorf("expected settings listing, got %q", result)
		}
		if strings.Contains(result, "your_spotify_client_secret") {
			t.Error("expected secrets to be masked")
		}
	})

	t.Run("database applies migrations", func(t *testing.T) {
		runner, output := newTestRunner(t, tu.NewMockClient(0))

		if err := run(runner, "setup", "database"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "✓ 0000 create_activity") {
			t.Errorf("expected applied migration, got %q", output.String())
		}
	})
}
