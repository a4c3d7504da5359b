package testing

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// FakeTrack is a liked track served by [FakeSpotify].
type FakeTrack struct {
	ID      string
	Name    string
	Artists []FakeArtist
}

// FakeArtist is an artist with genre tags.
type FakeArtist struct {
	ID     string
	Name   string
	Genres []string
}

// FakePlaylist is a playlist served by [FakeSpotify].
type FakePlaylist struct {
	ID            string
	Name          string
	OwnerID       string
	Collaborative bool
	Total         int
}

// FakeRequest records a request received by [FakeSpotify].
type FakeRequest struct {
	Route string
	Query map[string][]string
	Body  map[string]any
}

// FakeSpotify is an httptest server speaking the subset of the Spotify Web API the dashboard uses.
//
// Routes are keyed as "METHOD path", e.g. "GET me/tracks". Status, when set, may override the
// response for the nth (1-based) call of a route; returning 0 serves the normal response.
type FakeSpotify struct {
	*httptest.Server

	Token     string
	UserID    string
	Product   string
	Liked     []FakeTrack
	Playlists []FakePlaylist
	Status    func(route string, n int) int

	mu       sync.Mutex
	calls    map[string]int
	requests []FakeRequest
}

// NewFakeSpotify starts a fake API accepting the bearer token "test-token".
func NewFakeSpotify(t *testing.T) *FakeSpotify {
	t.Helper()
	f := &FakeSpotify{Token: "test-token", UserID: "me", Product: "premium", calls: map[string]int{}}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// BaseURL returns the api root with a trailing slash.
func (f *FakeSpotify) BaseURL() string {
	return f.URL + "/"
}

// AddLiked appends n generated tracks, each by one artist carrying one genre.
func (f *FakeSpotify) AddLiked(n int) {
	start := len(f.Liked)
	for i := start; i < start+n; i++ {
		f.Liked = append(f.Liked, FakeTrack{
			ID:   fmt.Sprintf("track%d", i),
			Name: fmt.Sprintf("Track %d", i),
			Artists: []FakeArtist{{
				ID:     fmt.Sprintf("artist%d", i),
				Name:   fmt.Sprintf("Artist %d", i),
				Genres: []string{fmt.Sprintf("genre%d", i)},
			}},
		})
	}
}

// Calls returns the number of requests made to route.
func (f *FakeSpotify) Calls(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

// Requests returns the recorded requests for route in arrival order.
func (f *FakeSpotify) Requests(route string) []FakeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []FakeRequest
	for _, r := range f.requests {
		if r.Route == route {
			out = append(out, r)
		}
	}
	return out
}

// Routes returns every route requested, in order.
func (f *FakeSpotify) Routes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.requests))
	for i, r := range f.requests {
		out[i] = r.Route
	}
	return out
}

func (f *FakeSpotify) serve(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + strings.Trim(r.URL.Path, "/")

	var body map[string]any
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &body)
	}

	f.mu.Lock()
	f.calls[route]++
	n := f.calls[route]
	f.requests = append(f.requests, FakeRequest{Route: route, Query: r.URL.Query(), Body: body})
	f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+f.Token {
		writeError(w, http.StatusUnauthorized, "Invalid access token")
		return
	}
	if f.Status != nil {
		if status := f.Status(route, n); status != 0 {
			writeError(w, status, http.StatusText(status))
			return
		}
	}

	switch route {
	case "GET me":
		writeJSON(w, http.StatusOK, map[string]any{
			"id":           f.UserID,
			"display_name": "Test User",
			"email":        "test@example.com",
			"product":      f.Product,
			"images":       []any{},
		})
	case "GET me/tracks":
		f.savedTracks(w, r)
	case "DELETE me/tracks":
		w.WriteHeader(http.StatusOK)
	case "GET me/playlists":
		f.playlists(w, r)
	case "GET artists":
		f.artists(w, r)
	case "GET me/player":
		writeJSON(w, http.StatusOK, map[string]any{
			"is_playing":  false,
			"progress_ms": 0,
			"device":      map[string]any{"id": "device1", "name": "Test Device", "type": "Computer", "is_active": true, "volume_percent": 50},
		})
	case "GET me/player/devices":
		writeJSON(w, http.StatusOK, map[string]any{"devices": []any{
			map[string]any{"id": "device1", "name": "Test Device", "type": "Computer", "is_active": true, "volume_percent": 50},
		}})
	case "PUT me/player/play", "PUT me/player/pause", "PUT me/player/volume", "POST me/player/next", "POST me/player/previous":
		w.WriteHeader(http.StatusNoContent)
	default:
		if strings.HasPrefix(route, "POST playlists/") && strings.HasSuffix(route, "/tracks") {
			writeJSON(w, http.StatusCreated, map[string]any{"snapshot_id": fmt.Sprintf("snapshot%d", n)})
			return
		}
		writeError(w, http.StatusNotFound, "Service not found")
	}
}

func (f *FakeSpotify) savedTracks(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r, 20)

	items := []any{}
	for i := offset; i < len(f.Liked) && i < offset+limit; i++ {
		items = append(items, map[string]any{
			"added_at": fmt.Sprintf("2024-01-01T00:%02d:00Z", i%60),
			"track":    trackJSON(f.Liked[i]),
		})
	}

	var next any
	if offset+limit < len(f.Liked) {
		next = fmt.Sprintf("%sme/tracks?offset=%d&limit=%d", f.BaseURL(), offset+limit, limit)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items, "limit": limit, "offset": offset, "total": len(f.Liked), "next": next,
	})
}

func (f *FakeSpotify) playlists(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r, 20)

	items := []any{}
	for i := offset; i < len(f.Playlists) && i < offset+limit; i++ {
		p := f.Playlists[i]
		items = append(items, map[string]any{
			"id":            p.ID,
			"name":          p.Name,
			"collaborative": p.Collaborative,
			"images":        []any{map[string]any{"url": "https://img.example/" + p.ID, "height": 300, "width": 300}},
			"owner":         map[string]any{"id": p.OwnerID, "display_name": p.OwnerID},
			"tracks":        map[string]any{"total": p.Total},
			"uri":           "spotify:playlist:" + p.ID,
		})
	}

	var next any
	if offset+limit < len(f.Playlists) {
		next = fmt.Sprintf("%sme/playlists?offset=%d&limit=%d", f.BaseURL(), offset+limit, limit)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items, "limit": limit, "offset": offset, "total": len(f.Playlists), "next": next,
	})
}

func (f *FakeSpotify) artists(w http.ResponseWriter, r *http.Request) {
	genres := map[string]FakeArtist{}
	for _, t := range f.Liked {
		for _, a := range t.Artists {
			genres[a.ID] = a
		}
	}

	artists := []any{}
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		a, ok := genres[id]
		if !ok {
			artists = append(artists, nil)
			continue
		}
		g := a.Genres
		if g == nil {
			g = []string{}
		}
		artists = append(artists, map[string]any{"id": a.ID, "name": a.Name, "genres": g, "uri": "spotify:artist:" + a.ID})
	}
	writeJSON(w, http.StatusOK, map[string]any{"artists": artists})
}

func trackJSON(t FakeTrack) map[string]any {
	artists := make([]any, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = map[string]any{"id": a.ID, "name": a.Name, "uri": "spotify:artist:" + a.ID}
	}
	return map[string]any{
		"id":          t.ID,
		"name":        t.Name,
		"uri":         "spotify:track:" + t.ID,
		"duration_ms": 180000,
		"artists":     artists,
		"album": map[string]any{
			"name":   t.Name + " (Album)",
			"images": []any{map[string]any{"url": "https://img.example/" + t.ID, "height": 64, "width": 64}},
		},
	}
}

func pageParams(r *http.Request, defaultLimit int) (limit, offset int) {
	limit, offset = defaultLimit, 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		offset = v
	}
	return limit, offset
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{"status": status, "message": message}})
}
