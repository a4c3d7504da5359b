// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/likesorter/internal/models"
)

// MockClient is an in-memory test double for services.Client.
//
// Err, when set, is consulted before every call with the method name and its 1-based call number;
// a non-nil result is returned instead of performing the call.
type MockClient struct {
	User          models.User
	Liked         []models.SavedTrack
	PlaylistItems []models.Playlist
	Genres        map[string][]string
	Err           func(method string, n int) error

	mu        sync.Mutex
	calls     map[string]int
	Pages     [][2]int
	Lookups   [][]string
	Added     map[string][][]string
	Removed   [][]string
	PlayCalls [][]string
}

// NewMockClient creates a client holding n liked tracks named "Track {i}" by "Artist {i}".
func NewMockClient(n int) *MockClient {
	m := &MockClient{
		User:   models.User{ID: "me", DisplayName: "Me", Product: "premium"},
		Genres: map[string][]string{},
		Added:  map[string][][]string{},
	}
	for i := range n {
		artistID := fmt.Sprintf("artist%d", i)
		m.Liked = append(m.Liked, models.SavedTrack{Track: models.Track{
			ID:      fmt.Sprintf("track%d", i),
			Name:    fmt.Sprintf("Track %d", i),
			URI:     fmt.Sprintf("spotify:track:track%d", i),
			Artists: []models.Artist{{ID: artistID, Name: fmt.Sprintf("Artist %d", i)}},
			Liked:   true,
		}})
		m.Genres[artistID] = []string{fmt.Sprintf("genre%d", i)}
	}
	return m
}

func (m *MockClient) called(method string) error {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[method]++
	n := m.calls[method]
	m.mu.Unlock()

	if m.Err != nil {
		return m.Err(method, n)
	}
	return nil
}

// Calls returns how many times method was invoked.
func (m *MockClient) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockClient) CurrentUser(ctx context.Context) (*models.User, error) {
	if err := m.called("CurrentUser"); err != nil {
		return nil, err
	}
	u := m.User
	return &u, nil
}

func (m *MockClient) SavedTracks(ctx context.Context, limit, offset int) ([]models.SavedTrack, error) {
	if err := m.called("SavedTracks"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.Pages = append(m.Pages, [2]int{limit, offset})
	m.mu.Unlock()

	if offset >= len(m.Liked) {
		return []models.SavedTrack{}, nil
	}
	end := min(offset+limit, len(m.Liked))
	page := make([]models.SavedTrack, end-offset)
	copy(page, m.Liked[offset:end])
	return page, nil
}

func (m *MockClient) Playlists(ctx context.Context) ([]models.Playlist, error) {
	if err := m.called("Playlists"); err != nil {
		return nil, err
	}
	return append([]models.Playlist(nil), m.PlaylistItems...), nil
}

func (m *MockClient) Artists(ctx context.Context, ids []string) ([]models.Artist, error) {
	if err := m.called("Artists"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.Lookups = append(m.Lookups, append([]string(nil), ids...))
	m.mu.Unlock()

	artists := make([]models.Artist, 0, len(ids))
	for _, id := range ids {
		artists = append(artists, models.Artist{ID: id, Genres: m.Genres[id]})
	}
	return artists, nil
}

func (m *MockClient) AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) error {
	if err := m.called("AddTracksToPlaylist"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Added == nil {
		m.Added = map[string][][]string{}
	}
	m.Added[playlistID] = append(m.Added[playlistID], append([]string(nil), uris...))
	return nil
}

func (m *MockClient) RemoveSavedTracks(ctx context.Context, ids []string) error {
	if err := m.called("RemoveSavedTracks"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Removed = append(m.Removed, append([]string(nil), ids...))
	return nil
}

func (m *MockClient) Play(ctx context.Context, deviceID string, uris []string) error {
	if err := m.called("Play"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PlayCalls = append(m.PlayCalls, append([]string{deviceID}, uris...))
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
