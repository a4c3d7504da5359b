// package services wraps the Spotify Web API and the Spotify accounts service
package services

import (
	"context"

	"github.com/desertthunder/likesorter/internal/models"
)

// Spotify Web API limits per call.
const (
	MaxSavedTracksPage  = 50
	MaxPlaylistsPage    = 50
	MaxArtistsPerLookup = 50
	MaxPlaylistAdd      = 100
	MaxLibraryRemove    = 50
)

// Client is the library and playlist surface of the Spotify Web API used by the dashboard.
//
// Every method maps to exactly one upstream endpoint except [Client.Playlists], which follows pagination to the end.
type Client interface {
	// CurrentUser returns the profile of the token's owner.
	CurrentUser(ctx context.Context) (*models.User, error)

	// SavedTracks returns one page of the user's liked songs.
	SavedTracks(ctx context.Context, limit, offset int) ([]models.SavedTrack, error)

	// Playlists returns every playlist in the user's library.
	Playlists(ctx context.Context) ([]models.Playlist, error)

	// Artists looks up artists by id, including their genre tags.
	Artists(ctx context.Context, ids []string) ([]models.Artist, error)

	// AddTracksToPlaylist appends track uris to a playlist.
	AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) error

	// RemoveSavedTracks removes track ids from the user's liked songs.
	RemoveSavedTracks(ctx context.Context, ids []string) error

	// Play starts playback of uris on deviceID, or on the active device when deviceID is empty.
	Play(ctx context.Context, deviceID string, uris []string) error
}

// Device is a Spotify Connect playback target.
type Device struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Active     bool   `json:"is_active"`
	Restricted bool   `json:"is_restricted"`
	Volume     int    `json:"volume_percent"`
}

// PlayerState is a snapshot of the user's playback.
type PlayerState struct {
	Track      *models.Track `json:"item"`
	Playing    bool          `json:"is_playing"`
	ProgressMS int           `json:"progress_ms"`
	Device     Device        `json:"device"`
}

// PlayerClient is the Spotify Connect surface used to drive playback.
type PlayerClient interface {
	Play(ctx context.Context, deviceID string, uris []string) error
	Resume(ctx context.Context, deviceID string) error
	Pause(ctx context.Context, deviceID string) error
	Next(ctx context.Context, deviceID string) error
	Previous(ctx context.Context, deviceID string) error
	Volume(ctx context.Context, deviceID string, percent int) error
	PlayerState(ctx context.Context) (*PlayerState, error)
	Devices(ctx context.Context) ([]Device, error)
}
