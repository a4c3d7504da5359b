// Package services talks to Spotify: the accounts service for OAuth and the Web API for the library,
// playlists and Connect playback.
//
// # Authentication
//
// [SpotifyAuth] wraps an [oauth2.Config] pointed at the Spotify accounts service. The web server
// keeps tokens in cookies and calls [SpotifyAuth.Refresh] itself; the CLI uses [SpotifyAuth.HTTPClient],
// which refreshes transparently and reports new tokens so they can be written back to config.toml.
//
// # Web API
//
// [SpotifyClient] implements [Client] and [PlayerClient] on top of github.com/zmb3/spotify/v2.
// [ClientFactory] builds one client per bearer token, which is how HTTP handlers get a client
// for the cookie they were sent.
//
// # Error Handling
//
// Upstream failures are wrapped with a sentinel from the shared package chosen by HTTP status:
//   - 401 : [shared.ErrNotAuthenticated]
//   - 403 : [shared.ErrForbidden], usually a scope granted before a new one was requested
//   - 404 : [shared.ErrNotFound]
//   - 429 : [shared.ErrRateLimited]
//   - 502, 503 : [shared.ErrServiceUnavailable]
//   - anything else : [shared.ErrAPIRequest]
//
// The original [spotify.Error] stays in the chain.
package services
