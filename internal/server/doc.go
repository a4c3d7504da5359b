// Package server holds the HTTP plumbing shared by `likesorter serve` and `likesorter auth login`.
//
// # Routing
//
// [BasicRouter] sits on [http.ServeMux] patterns and rejects requests whose method does not match the
// registration with 405. GET registrations also answer HEAD.
//
// Middleware is captured when a route is registered, so call [BasicRouter.Use] before registering routes.
// The first middleware passed to Use is the outermost. The dashboard installs [Recover], [Logging] and
// [SecurityHeaders] in that order.
//
// # Loopback OAuth callback
//
// `auth login` cannot use the dashboard's cookie flow because there is no browser session to hold state.
// Instead it starts a throwaway server on the redirect URI's host and mounts an [OAuthHandler] on the
// redirect path. The handler compares the state query parameter with the nonce it was created with,
// exchanges the code through an [Exchanger] and delivers exactly one [OAuthResult] on [OAuthHandler.Result].
// Later callbacks are rejected with 400.
//
// A [Handler] owns its own route list, which is how the callback handler is mounted; the dashboard in
// internal/web registers one route per method and path instead.
package server
