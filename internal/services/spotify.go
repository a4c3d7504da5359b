package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/likesorter/internal/models"
	"github.com/desertthunder/likesorter/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

const trackURIPrefix = "spotify:track:"

// SpotifyClient implements [Client] and [PlayerClient] on top of [spotify.Client].
type SpotifyClient struct {
	api    *spotify.Client
	logger *log.Logger
}

// ClientOption customizes a [SpotifyClient].
type ClientOption func(*clientOptions)

type clientOptions struct {
	baseURL string
	logger  *log.Logger
}

// WithBaseURL sends API requests to baseURL instead of api.spotify.com. The url must end in a slash.
func WithBaseURL(baseURL string) ClientOption {
	return func(o *clientOptions) {
		if baseURL != "" && !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		o.baseURL = baseURL
	}
}

// WithClientLogger sets the logger used for request failures.
func WithClientLogger(l *log.Logger) ClientOption {
	return func(o *clientOptions) { o.logger = l }
}

// NewSpotifyClient wraps an authenticated HTTP client.
func NewSpotifyClient(httpClient *http.Client, opts ...ClientOption) *SpotifyClient {
	o := clientOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = shared.NewLogger(nil)
	}

	var apiOpts []spotify.ClientOption
	if o.baseURL != "" {
		apiOpts = append(apiOpts, spotify.WithBaseURL(o.baseURL))
	}

	return &SpotifyClient{
		api:    spotify.New(httpClient, apiOpts...),
		logger: o.logger.With("service", "spotify"),
	}
}

// ClientFactory builds a [SpotifyClient] per bearer token.
type ClientFactory struct {
	opts      []ClientOption
	transport http.RoundTripper
}

// NewClientFactory creates a factory. transport may be nil to use [http.DefaultTransport].
func NewClientFactory(transport http.RoundTripper, opts ...ClientOption) *ClientFactory {
	return &ClientFactory{opts: opts, transport: transport}
}

// ForToken returns a client authorized with tok. The token is used as-is; refreshing is the caller's concern.
func (f *ClientFactory) ForToken(ctx context.Context, tok *oauth2.Token) (*SpotifyClient, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, shared.ErrNotAuthenticated
	}

	if f.transport != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: f.transport})
	}
	return NewSpotifyClient(oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok)), f.opts...), nil
}

// CurrentUser returns the profile of the token's owner.
func (c *SpotifyClient) CurrentUser(ctx context.Context) (*models.User, error) {
	u, err := c.api.CurrentUser(ctx)
	if err != nil {
		return nil, classify("get current user", err)
	}

	return &models.User{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Country:     u.Country,
		Product:     u.Product,
		Images:      convertImages(u.Images),
	}, nil
}

// SavedTracks returns one page of liked songs. limit is clamped to [1, 50].
func (c *SpotifyClient) SavedTracks(ctx context.Context, limit, offset int) ([]models.SavedTrack, error) {
	if limit <= 0 || limit > MaxSavedTracksPage {
		limit = MaxSavedTracksPage
	}
	if offset < 0 {
		offset = 0
	}

	page, err := c.api.CurrentUsersTracks(ctx, spotify.Limit(limit), spotify.Offset(offset))
	if err != nil {
		return nil, classify("get saved tracks", err)
	}

	saved := make([]models.SavedTrack, 0, len(page.Tracks))
	for _, st := range page.Tracks {
		track := convertTrack(&st.FullTrack)
		track.Liked = true
		saved = append(saved, models.SavedTrack{AddedAt: parseAddedAt(st.AddedAt), Track: track})
	}
	return saved, nil
}

// Playlists follows pagination until the library's last page.
func (c *SpotifyClient) Playlists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist

	for offset := 0; ; offset += MaxPlaylistsPage {
		page, err := c.api.CurrentUsersPlaylists(ctx, spotify.Limit(MaxPlaylistsPage), spotify.Offset(offset))
		if err != nil {
			return nil, classify("get playlists", err)
		}

		for _, p := range page.Playlists {
			playlists = append(playlists, models.Playlist{
				ID:            p.ID.String(),
				Name:          p.Name,
				Images:        convertImages(p.Images),
				TrackCount:    int(p.Tracks.Total),
				OwnerID:       p.Owner.ID,
				Collaborative: p.Collaborative,
			})
		}

		if page.Next == "" || len(page.Playlists) == 0 {
			break
		}
	}

	return playlists, nil
}

// Artists looks up at most 50 artists.
func (c *SpotifyClient) Artists(ctx context.Context, ids []string) ([]models.Artist, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxArtistsPerLookup {
		return nil, fmt.Errorf("%w: at most %d artist ids per lookup", shared.ErrInvalidArgument, MaxArtistsPerLookup)
	}

	full, err := c.api.GetArtists(ctx, toIDs(ids)...)
	if err != nil {
		return nil, classify("get artists", err)
	}

	artists := make([]models.Artist, 0, len(full))
	for _, a := range full {
		if a == nil {
			continue
		}
		artists = append(artists, models.Artist{ID: a.ID.String(), Name: a.Name, Genres: a.Genres})
	}
	return artists, nil
}

// AddTracksToPlaylist appends at most 100 track uris to playlistID.
func (c *SpotifyClient) AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) error {
	if playlistID == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	if len(uris) == 0 || len(uris) > MaxPlaylistAdd {
		return fmt.Errorf("%w: between 1 and %d track uris per call", shared.ErrInvalidArgument, MaxPlaylistAdd)
	}

	ids := make([]spotify.ID, len(uris))
	for i, uri := range uris {
		id, err := TrackIDFromURI(uri)
		if err != nil {
			return err
		}
		ids[i] = spotify.ID(id)
	}

	if _, err := c.api.AddTracksToPlaylist(ctx, spotify.ID(playlistID), ids...); err != nil {
		return classify("add tracks to playlist", err)
	}
	return nil
}

// RemoveSavedTracks removes at most 50 track ids from liked songs.
func (c *SpotifyClient) RemoveSavedTracks(ctx context.Context, ids []string) error {
	if len(ids) == 0 || len(ids) > MaxLibraryRemove {
		return fmt.Errorf("%w: between 1 and %d track ids per call", shared.ErrInvalidArgument, MaxLibraryRemove)
	}

	if err := c.api.RemoveTracksFromLibrary(ctx, toIDs(ids)...); err != nil {
		return classify("remove saved tracks", err)
	}
	return nil
}

// Play starts uris on deviceID.
func (c *SpotifyClient) Play(ctx context.Context, deviceID string, uris []string) error {
	opt := playOptions(deviceID)
	for _, uri := range uris {
		opt.URIs = append(opt.URIs, spotify.URI(uri))
	}

	if err := c.api.PlayOpt(ctx, opt); err != nil {
		return classify("start playback", err)
	}
	return nil
}

// Resume continues the current track on deviceID.
func (c *SpotifyClient) Resume(ctx context.Context, deviceID string) error {
	if err := c.api.PlayOpt(ctx, playOptions(deviceID)); err != nil {
		return classify("resume playback", err)
	}
	return nil
}

// Pause pauses deviceID.
func (c *SpotifyClient) Pause(ctx context.Context, deviceID string) error {
	if err := c.api.PauseOpt(ctx, playOptions(deviceID)); err != nil {
		return classify("pause playback", err)
	}
	return nil
}

// Next skips to the next track.
func (c *SpotifyClient) Next(ctx context.Context, deviceID string) error {
	if err := c.api.NextOpt(ctx, playOptions(deviceID)); err != nil {
		return classify("skip to next", err)
	}
	return nil
}

// Previous skips to the previous track.
func (c *SpotifyClient) Previous(ctx context.Context, deviceID string) error {
	if err := c.api.PreviousOpt(ctx, playOptions(deviceID)); err != nil {
		return classify("skip to previous", err)
	}
	return nil
}

// Volume sets the device volume, clamped to [0, 100].
func (c *SpotifyClient) Volume(ctx context.Context, deviceID string, percent int) error {
	percent = max(0, min(100, percent))
	if err := c.api.VolumeOpt(ctx, percent, playOptions(deviceID)); err != nil {
		return classify("set volume", err)
	}
	return nil
}

// PlayerState returns the current playback, or an empty state when nothing is active.
func (c *SpotifyClient) PlayerState(ctx context.Context) (*PlayerState, error) {
	st, err := c.api.PlayerState(ctx)
	if err != nil {
		return nil, classify("get player state", err)
	}
	if st == nil {
		return &PlayerState{}, nil
	}

	state := &PlayerState{
		Playing:    st.Playing,
		ProgressMS: int(st.Progress),
		Device:     convertDevice(st.Device),
	}
	if st.Item != nil {
		track := convertTrack(st.Item)
		state.Track = &track
	}
	return state, nil
}

// Devices lists the user's Connect devices.
func (c *SpotifyClient) Devices(ctx context.Context) ([]Device, error) {
	devices, err := c.api.PlayerDevices(ctx)
	if err != nil {
		return nil, classify("get devices", err)
	}

	out := make([]Device, len(devices))
	for i, d := range devices {
		out[i] = convertDevice(d)
	}
	return out, nil
}

// TrackIDFromURI extracts the id from a "spotify:track:{id}" uri. Bare ids pass through.
func TrackIDFromURI(uri string) (string, error) {
	switch {
	case strings.HasPrefix(uri, trackURIPrefix):
		if id := strings.TrimPrefix(uri, trackURIPrefix); id != "" {
			return id, nil
		}
	case uri != "" && !strings.Contains(uri, ":"):
		return uri, nil
	}
	return "", fmt.Errorf("%w: not a track uri: %q", shared.ErrInvalidInput, uri)
}

func playOptions(deviceID string) *spotify.PlayOptions {
	opt := &spotify.PlayOptions{}
	if deviceID != "" {
		id := spotify.ID(deviceID)
		opt.DeviceID = &id
	}
	return opt
}

func toIDs(ids []string) []spotify.ID {
	out := make([]spotify.ID, len(ids))
	for i, id := range ids {
		out[i] = spotify.ID(id)
	}
	return out
}

func convertTrack(t *spotify.FullTrack) models.Track {
	artists := make([]models.Artist, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = models.Artist{ID: a.ID.String(), Name: a.Name}
	}

	return models.Track{
		ID:         t.ID.String(),
		Name:       t.Name,
		URI:        string(t.URI),
		Artists:    artists,
		Album:      models.Album{Name: t.Album.Name, Images: convertImages(t.Album.Images)},
		DurationMS: int(t.Duration),
	}
}

func convertImages(images []spotify.Image) []models.Image {
	out := make([]models.Image, len(images))
	for i, img := range images {
		out[i] = models.Image{URL: img.URL, Height: int(img.Height), Width: int(img.Width)}
	}
	return out
}

func convertDevice(d spotify.PlayerDevice) Device {
	return Device{
		ID:         d.ID.String(),
		Name:       d.Name,
		Type:       d.Type,
		Active:     d.Active,
		Restricted: d.Restricted,
		Volume:     int(d.Volume),
	}
}

func parseAddedAt(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

var statusPattern = regexp.MustCompile(`HTTP (\d{3})`)

// StatusCode extracts the upstream HTTP status from err, or 0 when none is known.
func StatusCode(err error) int {
	var se spotify.Error
	if errors.As(err, &se) && se.Status != 0 {
		return se.Status
	}
	if err == nil {
		return 0
	}
	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return code
	}
	return 0
}

// classify wraps err with the sentinel matching its upstream status.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var sentinel error
	switch StatusCode(err) {
	case http.StatusUnauthorized:
		sentinel = shared.ErrNotAuthenticated
	case http.StatusForbidden:
		sentinel = shared.ErrForbidden
	case http.StatusNotFound:
		sentinel = shared.ErrNotFound
	case http.StatusTooManyRequests:
		sentinel = shared.ErrRateLimited
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		sentinel = shared.ErrServiceUnavailable
	default:
		sentinel = shared.ErrAPIRequest
	}
	return fmt.Errorf("%s: %w: %w", op, sentinel, err)
}
