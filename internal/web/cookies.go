package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/likesorter/internal/services"
	"github.com/desertthunder/likesorter/internal/shared"
	"golang.org/x/oauth2"
)

// Cookie names.
const (
	StateCookie   = "spotify_auth_state"
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// Cookie lifetimes.
const (
	StateTTL   = 10 * time.Minute
	AccessTTL  = time.Hour
	RefreshTTL = 24 * time.Hour
)

func (d *Dashboard) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: httpOnly,
		Secure:   d.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (d *Dashboard) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   d.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// setSession writes the token cookies. The access cookie never outlives the token.
func (d *Dashboard) setSession(w http.ResponseWriter, tok *oauth2.Token) {
	ttl := AccessTTL
	if !tok.Expiry.IsZero() {
		if remaining := time.Until(tok.Expiry); remaining > 0 && remaining < ttl {
			ttl = remaining
		}
	}
	d.setCookie(w, AccessCookie, tok.AccessToken, ttl, false)
	if tok.RefreshToken != "" {
		d.setCookie(w, RefreshCookie, tok.RefreshToken, RefreshTTL, true)
	}
}

func (d *Dashboard) clearSession(w http.ResponseWriter) {
	d.clearCookie(w, AccessCookie)
	d.clearCookie(w, RefreshCookie)
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// session returns the request's token, refreshing it from the refresh cookie when the access cookie is gone.
func (d *Dashboard) session(w http.ResponseWriter, r *http.Request) (*oauth2.Token, error) {
	if access := cookieValue(r, AccessCookie); access != "" {
		return &oauth2.Token{AccessToken: access, TokenType: "Bearer"}, nil
	}

	refresh := cookieValue(r, RefreshCookie)
	if refresh == "" {
		return nil, shared.ErrNotAuthenticated
	}

	tok, err := d.auth.Refresh(r.Context(), refresh)
	if err != nil {
		d.clearCookie(w, RefreshCookie)
		return nil, fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, err)
	}

	d.logger.Debug("refreshed session from refresh cookie")
	d.setSession(w, tok)
	return tok, nil
}

// client builds a Spotify client for the request's session.
func (d *Dashboard) client(w http.ResponseWriter, r *http.Request) (services.Client, error) {
	tok, err := d.session(w, r)
	if err != nil {
		return nil, err
	}
	return d.clients(r.Context(), tok)
}
