package tasks

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/likesorter/internal/formatter"
	tu "github.com/desertthunder/likesorter/internal/testing"
)

func TestExport(t *testing.T) {
	client := tu.NewMockClient(3)
	engine, _ := newTestEngine(client)

	liked, err := engine.FetchLiked(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	export := &formatter.LikedExport{Owner: "me", ExportedAt: time.Now(), Tracks: liked}

	t.Run("all formats", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "out")

		result, err := engine.Export(context.Background(), nil, export, ExportOpts{OutputDir: dir, NumWorkers: 2})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if result.Failed != 0 {
			t.Errorf("expected no failures, got %d: %v", result.Failed, result.Manifest.Errors)
		}
		if len(result.Manifest.Files) != len(formatter.Formats) {
			t.Errorf("expected %d files, got %d", len(formatter.Formats), len(result.Manifest.Files))
		}
		for _, f := range formatter.Formats {
			tu.AssertFileExists(t, filepath.Join(dir, "liked_songs."+f.Ext()))
		}
		tu.AssertFileExists(t, result.ManifestPath)
		if result.Manifest.Tracks != 3 {
			t.Errorf("expected manifest to count 3 tracks, got %d", result.Manifest.Tracks)
		}
	})

	t.Run("unknown format is reported, not fatal", func(t *testing.T) {
		dir := t.TempDir()

		result, err := engine.Export(context.Background(), nil, export, ExportOpts{
			OutputDir: dir,
			Formats:   []formatter.Format{formatter.JSON, "xml"},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Failed != 1 {
			t.Errorf("expected 1 failure, got %d", result.Failed)
		}
		if _, ok := result.Manifest.Errors["xml"]; !ok {
			t.Errorf("expected xml failure in manifest, got %v", result.Manifest.Errors)
		}
		if _, ok := result.Manifest.Files[formatter.JSON]; !ok {
			t.Error("expected json file despite the xml failure")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := engine.Export(ctx, nil, export, ExportOpts{OutputDir: t.TempDir()})
		if err != nil {
			t.Fatalf("expected manifest to be written, got %v", err)
		}
		if result.Failed != len(formatter.Formats) {
			t.Errorf("expected every format to fail, got %d", result.Failed)
		}
	})
}
