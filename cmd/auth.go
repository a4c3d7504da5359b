package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/likesorter/internal/server"
	"github.com/desertthunder/likesorter/internal/services"
	"github.com/desertthunder/likesorter/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// authTimeout bounds how long `auth login` waits for the browser callback.
const authTimeout = 2 * time.Minute

// AuthLogin performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server, opens browser for user authorization, and exchanges auth code for tokens.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	auth, err := services.NewSpotifyAuth(r.config.Credentials.Spotify)
	if err != nil {
		return fmt.Errorf("failed to configure Spotify OAuth: %w", err)
	}

	token, err := r.doOAuth(ctx, auth)
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	if r.configPath != "" {
		r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	}
	r.writePlain("You can now use: likesorter liked list\n")

	return nil
}

// AuthStatus reports the stored session and, when it works, the account behind it.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	tok := r.config.Credentials.Spotify.Token()
	if tok == nil {
		r.writePlain("✗ Not authenticated\nRun 'likesorter auth login' to sign in.\n")
		return nil
	}

	r.writePlainHeader("Spotify session")
	if tok.Expiry.IsZero() {
		r.writePlain("Access token: stored (no expiry recorded)\n")
	} else if time.Until(tok.Expiry) > 0 {
		r.writePlain("Access token: expires %s\n", humanize.Time(tok.Expiry))
	} else {
		r.writePlain("Access token: expired %s\n", humanize.Time(tok.Expiry))
	}
	if tok.RefreshToken != "" {
		r.writePlain("Refresh token: stored\n")
	} else {
		r.writePlain("Refresh token: missing\n")
	}

	client, err := r.spotify(ctx)
	if err != nil {
		return err
	}
	user, err := client.CurrentUser(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) || errors.Is(err, shared.ErrRefreshFailed) {
			r.writePlain("✗ Session rejected by Spotify. Run 'likesorter auth login' again.\n")
			return nil
		}
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	r.writePlain("✓ Signed in as %s (%s)\n", user.DisplayName, user.ID)
	if user.Product != "premium" {
		r.writePlain("⚠ Playback requires Spotify Premium (account: %s)\n", user.Product)
	}
	return nil
}

// AuthLogout forgets the stored tokens.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	spotify := &r.config.Credentials.Spotify
	spotify.AccessToken, spotify.RefreshToken, spotify.Expiry = "", "", ""

	if r.configPath != "" {
		if err := shared.SaveConfig(r.configPath, r.config); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
	}
	return r.writePlain("✓ Logged out\n")
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server listening on the redirect URI.
func (r *Runner) doOAuth(ctx context.Context, auth *services.SpotifyAuth) (*oauth2.Token, error) {
	redirect, err := url.Parse(r.config.Credentials.Spotify.RedirectURI)
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("%w: redirect_uri %q", shared.ErrInvalidConfig, r.config.Credentials.Spotify.RedirectURI)
	}

	state, err := shared.GenerateState(16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := auth.AuthURL(state)
	oauthHandler := server.NewOAuthHandler(auth, state, redirect.Path)
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger))
	router.Handler(oauthHandler)

	httpServer := &http.Server{
		Addr:              redirect.Host,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", redirect.Host)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", authTimeout)

	timeout := time.NewTimer(authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, authTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}
