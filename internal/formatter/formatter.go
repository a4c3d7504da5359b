// package formatter renders liked songs to CSV, Markdown, plain text and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/likesorter/internal/models"
	"github.com/desertthunder/likesorter/internal/shared"
	"github.com/dustin/go-humanize"
)

// Format is an export file format.
type Format string

const (
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "txt"
	JSON     Format = "json"
)

// Formats lists every supported format.
var Formats = []Format{CSV, Markdown, Text, JSON}

// ParseFormat accepts a format name or common alias ("md", "text").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string {
	if f == Markdown {
		return "md"
	}
	return string(f)
}

// LikedExport is a snapshot of a user's liked songs.
type LikedExport struct {
	Owner      string              `json:"owner"`
	ExportedAt time.Time           `json:"exported_at"`
	Tracks     []models.SavedTrack `json:"tracks"`
}

// FormatDuration renders milliseconds as m:ss.
func FormatDuration(ms int) string {
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// ExportToCSV renders one row per track with columns: ID, Title, Artists, Album, Duration, Added, Genres, URI
func ExportToCSV(export *LikedExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artists", "Album", "Duration", "Added", "Genres", "URI"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, st := range export.Tracks {
		added := ""
		if !st.AddedAt.IsZero() {
			added = st.AddedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			st.Track.ID,
			st.Track.Name,
			st.Track.ArtistNames(),
			st.Track.Album.Name,
			FormatDuration(st.Track.DurationMS),
			added,
			strings.Join(st.Track.Genres, "; "),
			st.Track.URI,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders a numbered list with album art thumbnails and relative save times.
func ExportToMarkdown(export *LikedExport) ([]byte, error) {
	var buf bytes.Buffer

	title := "Liked Songs"
	if export.Owner != "" {
		title = fmt.Sprintf("%s's Liked Songs", export.Owner)
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Tracks**: %s\n", humanize.Comma(int64(len(export.Tracks))))
	if !export.ExportedAt.IsZero() {
		fmt.Fprintf(&buf, "**Exported**: %s\n", export.ExportedAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	buf.WriteString("\n## Tracks\n\n")

	for i, st := range export.Tracks {
		t := st.Track
		cover := ""
		if url := t.Album.Cover(0); url != "" {
			cover = fmt.Sprintf("![](%s) ", url)
		}
		fmt.Fprintf(&buf, "%d. %s**%s** - %s", i+1, cover, t.Name, t.ArtistNames())
		if t.Album.Name != "" {
			fmt.Fprintf(&buf, " (%s)", t.Album.Name)
		}
		fmt.Fprintf(&buf, " [%s]", FormatDuration(t.DurationMS))
		if len(t.Genres) > 0 {
			fmt.Fprintf(&buf, " _%s_", strings.Join(t.Genres, ", "))
		}
		if !st.AddedAt.IsZero() {
			fmt.Fprintf(&buf, ", saved %s", humanize.RelTime(st.AddedAt, export.referenceTime(), "ago", "from now"))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText renders "n. Artists - Title" lines.
func ExportToText(export *LikedExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Liked Songs: %d\n\n", len(export.Tracks))
	for i, st := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, st.Track.ArtistNames(), st.Track.Name)
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders the export as indented JSON.
func ExportToJSON(export *LikedExport) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// Render dispatches to the exporter for format.
func Render(export *LikedExport, format Format) ([]byte, error) {
	switch format {
	case CSV:
		return ExportToCSV(export)
	case Markdown:
		return ExportToMarkdown(export)
	case Text:
		return ExportToText(export)
	case JSON:
		return ExportToJSON(export)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteExport renders export and writes it to path, defaulting to liked_songs.{ext} in the working directory.
func WriteExport(export *LikedExport, format Format, path string) (string, error) {
	if path == "" {
		path = "liked_songs." + format.Ext()
	}

	data, err := Render(export, format)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", format, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return path, nil
}

// Manifest summarizes a multi-format export.
type Manifest struct {
	ExportedAt time.Time         `json:"exported_at"`
	Tracks     int               `json:"tracks"`
	Files      map[Format]string `json:"files"`
	Errors     map[Format]string `json:"errors,omitempty"`
}

// WriteManifest writes m as JSON to path.
func WriteManifest(m *Manifest, path string) error {
	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func (e *LikedExport) referenceTime() time.Time {
	if e.ExportedAt.IsZero() {
		return time.Now()
	}
	return e.ExportedAt
}
