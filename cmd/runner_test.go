package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/likesorter/internal/models"
	"github.com/desertthunder/likesorter/internal/services"
	"github.com/desertthunder/likesorter/internal/shared"
	tu "github.com/desertthunder/likesorter/internal/testing"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

func TestNewRunner(t *testing.T) {
	t.Run("keeps provided dependencies", func(t *testing.T) {
		config := shared.DefaultConfig()
		client := tu.NewMockClient(0)
		httpClient := &http.Client{Timeout: time.Second}
		output := &bytes.Buffer{}

		runner := NewRunner(RunnerOpts{
			Config:     config,
			ConfigPath: "likesorter.toml",
			Client:     client,
			HTTPClient: httpClient,
			Output:     output,
		})

		if runner.config != config || runner.client != client || runner.httpClient != httpClient || runner.output != output {
			t.Error("expected provided dependencies to be kept")
		}
		if runner.configPath != "likesorter.toml" {
			t.Errorf("expected config path to be kept, got %q", runner.configPath)
		}
		if runner.player != nil {
			t.Error("a liked-songs client should not double as the player")
		}
	})

	t.Run("fills defaults", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})

		if runner.config == nil || runner.config.Sync.PageSize != 50 {
			t.Errorf("expected embedded defaults, got %+v", runner.config)
		}
		if runner.logger == nil {
			t.Error("expected a default logger")
		}
		if runner.output != os.Stdout {
			t.Error("expected output to default to stdout")
		}
		if runner.httpClient != http.DefaultClient {
			t.Error("expected the default http client")
		}
	})
}

func TestRunnerOutput(t *testing.T) {
	playlists := []models.Playlist{{ID: "p1", Name: "Road Trip", TrackCount: 42, OwnerID: "me"}}

	t.Run("pretty JSON", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writeJSON(playlists, true); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), `"name": "Road Trip"`) {
			t.Errorf("expected indented playlist, got %q", output.String())
		}
		if !strings.HasSuffix(output.String(), "}\n]\n") {
			t.Errorf("expected trailing newline, got %q", output.String())
		}
	})

	t.Run("compact JSON", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writeJSON(map[string]int{"added": 3}, false); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "{\"added\":3}\n" {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("song rows and headers", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		runner.writePlainHeader("Spotify session")
		runner.writePlain("%d. %s - %s\n", 1, "Björk", "Jóga")
		runner.writePlainln("Re-run with --yes to remove them.")

		lines := strings.Split(output.String(), "\n")
		if len(lines) < 6 || lines[1] != "Spotify session" || lines[3] != "1. Björk - Jóga" {
			t.Errorf("unexpected layout %q", output.String())
		}
		if lines[5] != "Re-run with --yes to remove them." {
			t.Errorf("expected blank line before the hint, got %q", output.String())
		}
	})

	cases := []struct {
		name  string
		write func(*Runner) error
		want  string
	}{
		{"unencodable value", func(r *Runner) error { return r.writeJSON(make(chan int), false) }, "failed to marshal JSON"},
		{"JSON to a broken writer", func(r *Runner) error { return r.writeJSON(playlists, false) }, "failed to write output"},
		{"text to a broken writer", func(r *Runner) error { return r.writePlain("Found %d playlists", 1) }, "failed to write output"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
			err := tc.write(runner)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected %q, got %v", tc.want, err)
			}
		})
	}

	t.Run("newline after JSON fails", func(t *testing.T) {
		w := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
		runner := NewRunner(RunnerOpts{Output: &w})

		err := runner.writeJSON(playlists, false)
		if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
			t.Errorf("expected newline error, got %v", err)
		}
	})
}

func TestRegister(t *testing.T) {
	commands := NewRunner(RunnerOpts{}).register()

	got := make([]string, 0, len(commands))
	for _, c := range commands {
		got = append(got, c.Name)
	}
	want := "serve auth liked playlists activity play setup tui"
	if strings.Join(got, " ") != want {
		t.Errorf("expected commands %q, got %q", want, strings.Join(got, " "))
	}
}

func TestBefore(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")
	t.Setenv("DATABASE_PATH", "")

	path := filepath.Join(t.TempDir(), "likesorter.toml")
	config := shared.DefaultConfig()
	config.Credentials.Spotify.ClientID = "from-file"
	config.Database.Path = "liked.db"
	if err := shared.SaveConfig(path, config); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
	root := runner.app()
	root.Commands = nil
	root.Action = func(context.Context, *cli.Command) error { return nil }

	if err := root.Run(context.Background(), []string{"likesorter", "--config", path}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if runner.configPath != path {
		t.Errorf("expected config path %q, got %q", path, runner.configPath)
	}
	if runner.config.Credentials.Spotify.ClientID != "from-file" || runner.config.Database.Path != "liked.db" {
		t.Errorf("expected settings from the file, got %+v", runner.config)
	}
}

func TestSaveTokens(t *testing.T) {
	expiry := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("persists the session to the config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "likesorter.toml")
		config := shared.DefaultConfig()
		config.Credentials.Spotify.ClientID = "client"
		runner := NewRunner(RunnerOpts{Config: config, ConfigPath: path})

		err := runner.saveTokens(&oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: expiry})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		loaded, err := shared.LoadConfig(path)
		if err != nil {
			t.Fatalf("failed to reload config: %v", err)
		}
		tok := loaded.Credentials.Spotify.Token()
		if tok == nil || tok.AccessToken != "access" || tok.RefreshToken != "refresh" || !tok.Expiry.Equal(expiry) {
			t.Errorf("expected stored session, got %+v", tok)
		}
		if loaded.Credentials.Spotify.ClientID != "client" {
			t.Error("expected credentials to survive the rewrite")
		}
	})

	t.Run("refresh without a new refresh token keeps the old one", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Credentials.Spotify.RefreshToken = "original"
		runner := NewRunner(RunnerOpts{Config: config})

		if err := runner.saveTokens(&oauth2.Token{AccessToken: "rotated"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if config.Credentials.Spotify.AccessToken != "rotated" || config.Credentials.Spotify.RefreshToken != "original" {
			t.Errorf("unexpected session %+v", config.Credentials.Spotify)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "likesorter.toml")
		runner := NewRunner(RunnerOpts{ConfigPath: path})

		err := runner.saveTokens(&oauth2.Token{AccessToken: "access"})
		if err == nil || !strings.Contains(err.Error(), "failed to save config") {
			t.Errorf("expected save error, got %v", err)
		}
	})

	t.Run("nil config", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		runner.config = nil

		if err := runner.saveTokens(&oauth2.Token{AccessToken: "access"}); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("nil token", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})

		if err := runner.saveTokens(nil); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestSpotifyClient(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a stored session", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})

		if _, err := runner.spotify(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("requires app credentials", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Credentials.Spotify.ClientID = ""
		config.Credentials.Spotify.AccessToken = "access"
		runner := NewRunner(RunnerOpts{Config: config})

		if _, err := runner.spotify(ctx); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("builds one client that also drives playback", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Credentials.Spotify.ClientID = "client"
		config.Credentials.Spotify.ClientSecret = "secret"
		config.Credentials.Spotify.AccessToken = "access"
		runner := NewRunner(RunnerOpts{Config: config})

		client, err := runner.spotify(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		spotifyClient, ok := client.(*services.SpotifyClient)
		if !ok {
			t.Fatalf("expected a SpotifyClient, got %T", client)
		}

		again, _ := runner.spotify(ctx)
		if again != client {
			t.Error("expected the client to be built once")
		}
		player, err := runner.playerClient(ctx)
		if err != nil || player != spotifyClient {
			t.Errorf("expected the same client for playback, got %v", err)
		}
	})
}
