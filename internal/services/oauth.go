package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/desertthunder/likesorter/internal/shared"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// Scopes requested at login. Library modify is needed to remove liked songs and
// playlist-read-collaborative to list collaborative playlists.
var Scopes = []string{
	spotifyauth.ScopeUserLibraryRead,
	spotifyauth.ScopeUserLibraryModify,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopeStreaming,
	spotifyauth.ScopeUserReadEmail,
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
}

// SpotifyAuth runs the authorization-code flow against the Spotify accounts service.
type SpotifyAuth struct {
	config *oauth2.Config
}

// AuthOption customizes a [SpotifyAuth].
type AuthOption func(*oauth2.Config)

// WithEndpoint points the flow at another accounts service, used by tests.
func WithEndpoint(authURL, tokenURL string) AuthOption {
	return func(c *oauth2.Config) {
		c.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInHeader}
	}
}

// NewSpotifyAuth builds the OAuth2 configuration from the Spotify credentials.
func NewSpotifyAuth(creds shared.SpotifyConfig, opts ...AuthOption) (*SpotifyAuth, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	if creds.RedirectURI == "" {
		return nil, fmt.Errorf("%w: spotify redirect_uri is required", shared.ErrMissingCredentials)
	}

	config := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   spotifyauth.AuthURL,
			TokenURL:  spotifyauth.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	for _, opt := range opts {
		opt(config)
	}

	return &SpotifyAuth{config: config}, nil
}

// Config exposes the underlying [oauth2.Config].
func (a *SpotifyAuth) Config() *oauth2.Config {
	return a.config
}

// AuthURL returns the authorize page url carrying state.
func (a *SpotifyAuth) AuthURL(state string) string {
	return a.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token.
func (a *SpotifyAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", shared.ErrInvalidInput)
	}

	tok, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return tok, nil
}

// Refresh obtains a new access token from a refresh token.
//
// Spotify may omit the refresh token from the response, in which case the old one is kept.
func (a *SpotifyAuth) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	tok, err := a.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

// HTTPClient returns a client that refreshes tok when needed and reports every new token to onRefresh.
func (a *SpotifyAuth) HTTPClient(ctx context.Context, tok *oauth2.Token, onRefresh func(*oauth2.Token)) *http.Client {
	source := &refreshableTokenSource{
		source:   a.config.TokenSource(ctx, tok),
		callback: onRefresh,
		last:     tok.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, source))
}

// refreshableTokenSource calls callback whenever the wrapped source yields a new access token.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)

	mu   sync.Mutex
	last string
}

func (s *refreshableTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.source.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	changed := tok.AccessToken != s.last
	s.last = tok.AccessToken
	s.mu.Unlock()

	if changed && s.callback != nil {
		s.callback(tok)
	}
	return tok, nil
}
