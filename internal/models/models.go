// package models defines the data model for the liked songs dashboard
package models

import (
	"strings"
	"time"
)

// Model defines the base interface for all persistent models.
// Implementations include [Activity].
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Image is a cover art rendition. Spotify returns several sizes, largest first.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height,omitempty"`
	Width  int    `json:"width,omitempty"`
}

// Artist is a track credit. Genres is only populated by artist lookups.
type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres,omitempty"`
}

// Album carries the album name and its art.
type Album struct {
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// Track is a playable track with its derived genre tags.
//
// Genres is nil until enrichment has run for the track and an empty, non-nil slice once
// enrichment ran (or was skipped) without producing tags.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	URI        string   `json:"uri"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
	DurationMS int      `json:"duration_ms"`
	Genres     []string `json:"genres"`
	Liked      bool     `json:"liked"`
}

// ArtistNames returns the artist names joined by ", ".
func (t Track) ArtistNames() string {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

// ArtistIDs returns up to max artist ids, in credit order, skipping blanks.
func (t Track) ArtistIDs(max int) []string {
	ids := make([]string, 0, max)
	for _, a := range t.Artists {
		if len(ids) == max {
			break
		}
		if a.ID != "" {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// Cover returns the url of the smallest image at least minWidth wide, falling back to the last image.
func (a Album) Cover(minWidth int) string {
	if len(a.Images) == 0 {
		return ""
	}
	best := a.Images[len(a.Images)-1]
	for _, img := range a.Images {
		if img.Width >= minWidth && (img.Width < best.Width || best.Width < minWidth) {
			best = img
		}
	}
	return best.URL
}

// SavedTrack pairs a liked track with the time it was saved.
type SavedTrack struct {
	AddedAt time.Time `json:"added_at"`
	Track   Track     `json:"track"`
}

// Playlist is playlist metadata as listed for the current user.
type Playlist struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Images        []Image `json:"images"`
	TrackCount    int     `json:"track_count"`
	OwnerID       string  `json:"owner_id"`
	Collaborative bool    `json:"collaborative"`
}

// EditableBy reports whether userID may add tracks to the playlist.
func (p Playlist) EditableBy(userID string) bool {
	return p.Collaborative || (userID != "" && p.OwnerID == userID)
}

// User is the authenticated user's profile.
type User struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email,omitempty"`
	Country     string  `json:"country,omitempty"`
	Product     string  `json:"product,omitempty"`
	Images      []Image `json:"images"`
}

// Premium reports whether the account can control playback.
func (u User) Premium() bool {
	return u.Product == "premium"
}
