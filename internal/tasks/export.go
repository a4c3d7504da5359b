package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/likesorter/internal/formatter"
)

// ExportOpts configures [Engine.Export].
type ExportOpts struct {
	Formats    []formatter.Format // Formats to write (default: all)
	OutputDir  string             // Output directory (default: liked_export_{epoch})
	NumWorkers int                // Concurrent writers (default: number of formats)
}

// ExportResult lists the files written by [Engine.Export].
type ExportResult struct {
	Manifest     *formatter.Manifest
	ManifestPath string
	Failed       int
}

type exportJob struct {
	format formatter.Format
	path   string
}

type exportOutcome struct {
	exportJob
	err error
}

// Export renders export in every requested format concurrently and writes a manifest next to the files.
//
// A failing format does not stop the others; failures are listed in the manifest.
func (e *Engine) Export(ctx context.Context, progress chan<- ProgressUpdate, export *formatter.LikedExport, opts ExportOpts) (*ExportResult, error) {
	if len(opts.Formats) == 0 {
		opts.Formats = formatter.Formats
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("liked_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 || opts.NumWorkers > len(opts.Formats) {
		opts.NumWorkers = len(opts.Formats)
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	jobs := make(chan exportJob, len(opts.Formats))
	outcomes := make(chan exportOutcome, len(opts.Formats))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if err := ctx.Err(); err != nil {
					outcomes <- exportOutcome{exportJob: job, err: err}
					continue
				}
				_, err := formatter.WriteExport(export, job.format, job.path)
				outcomes <- exportOutcome{exportJob: job, err: err}
			}
		}()
	}

	for _, f := range opts.Formats {
		jobs <- exportJob{format: f, path: filepath.Join(opts.OutputDir, "liked_songs."+f.Ext())}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	manifest := &formatter.Manifest{
		ExportedAt: export.ExportedAt,
		Tracks:     len(export.Tracks),
		Files:      map[formatter.Format]string{},
	}
	result := &ExportResult{Manifest: manifest}

	done := 0
	for o := range outcomes {
		done++
		e.sendProgress(progress, exportUpdate(done, len(opts.Formats), string(o.format), o.err))
		if o.err != nil {
			if manifest.Errors == nil {
				manifest.Errors = map[formatter.Format]string{}
			}
			manifest.Errors[o.format] = o.err.Error()
			result.Failed++
			continue
		}
		manifest.Files[o.format] = o.path
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(manifest, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}
