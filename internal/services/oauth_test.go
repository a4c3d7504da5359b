package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/desertthunder/likesorter/internal/shared"
	"golang.org/x/oauth2"
)

type mockTokenSource struct {
	token *oauth2.Token
	err   error
}

func (m *mockTokenSource) Token() (*oauth2.Token, error) {
	return m.token, m.err
}

func testCreds() shared.SpotifyConfig {
	return shared.SpotifyConfig{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		RedirectURI:  "http://127.0.0.1:3000/callback",
	}
}

// newAccountsServer fakes the token endpoint of the accounts service.
func newAccountsServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")

		switch r.Form.Get("grant_type") {
		case "authorization_code":
			if r.Form.Get("code") != "good_code" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid authorization code"}`))
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "access_1",
				"refresh_token": "refresh_1",
				"token_type":    "Bearer",
				"expires_in":    3600,
			})
		case "refresh_token":
			if r.Form.Get("refresh_token") != "refresh_1" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid refresh token"}`))
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "access_2",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSpotifyAuth(t *testing.T) {
	t.Run("NewSpotifyAuth", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			auth, err := NewSpotifyAuth(testCreds())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if auth.Config().RedirectURL != "http://127.0.0.1:3000/callback" {
				t.Errorf("unexpected redirect url %s", auth.Config().RedirectURL)
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			creds := testCreds()
			creds.ClientID = ""
			if _, err := NewSpotifyAuth(creds); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Redirect URI", func(t *testing.T) {
			creds := testCreds()
			creds.RedirectURI = ""
			if _, err := NewSpotifyAuth(creds); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("AuthURL", func(t *testing.T) {
		auth, err := NewSpotifyAuth(testCreds())
		if err != nil {
			t.Fatalf("failed to create auth: %v", err)
		}

		raw := auth.AuthURL("abcdefghijklmnop")
		u, err := url.Parse(raw)
		if err != nil {
			t.Fatalf("invalid auth url: %v", err)
		}

		q := u.Query()
		if q.Get("state") != "abcdefghijklmnop" {
			t.Errorf("expected state in url, got %s", q.Get("state"))
		}
		if q.Get("client_id") != "test_client_id" {
			t.Errorf("expected client id in url, got %s", q.Get("client_id"))
		}
		if q.Get("response_type") != "code" {
			t.Errorf("expected response_type code, got %s", q.Get("response_type"))
		}

		scopes := q.Get("scope")
		for _, want := range []string{"user-library-read", "user-library-modify", "streaming", "user-modify-playback-state"} {
			if !strings.Contains(scopes, want) {
				t.Errorf("expected scope %s in %q", want, scopes)
			}
		}
	})

	t.Run("Exchange", func(t *testing.T) {
		srv := newAccountsServer(t)
		auth, err := NewSpotifyAuth(testCreds(), WithEndpoint(srv.URL+"/authorize", srv.URL+"/api/token"))
		if err != nil {
			t.Fatalf("failed to create auth: %v", err)
		}

		tok, err := auth.Exchange(context.Background(), "good_code")
		if err != nil {
			t.Fatalf("expected exchange to succeed, got %v", err)
		}
		if tok.AccessToken != "access_1" || tok.RefreshToken != "refresh_1" {
			t.Errorf("unexpected token %+v", tok)
		}
		if tok.Expiry.IsZero() {
			t.Error("expected expiry to be set")
		}

		if _, err := auth.Exchange(context.Background(), "bad_code"); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}

		if _, err := auth.Exchange(context.Background(), ""); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Refresh", func(t *testing.T) {
		srv := newAccountsServer(t)
		auth, err := NewSpotifyAuth(testCreds(), WithEndpoint(srv.URL+"/authorize", srv.URL+"/api/token"))
		if err != nil {
			t.Fatalf("failed to create auth: %v", err)
		}

		tok, err := auth.Refresh(context.Background(), "refresh_1")
		if err != nil {
			t.Fatalf("expected refresh to succeed, got %v", err)
		}
		if tok.AccessToken != "access_2" {
			t.Errorf("expected access_2, got %s", tok.AccessToken)
		}
		if tok.RefreshToken != "refresh_1" {
			t.Errorf("expected refresh token to be kept, got %s", tok.RefreshToken)
		}

		if _, err := auth.Refresh(context.Background(), "stale"); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}

		if _, err := auth.Refresh(context.Background(), ""); !errors.Is(err, shared.ErrNoRefreshToken) {
			t.Errorf("expected ErrNoRefreshToken, got %v", err)
		}
	})
}

func TestRefreshableTokenSource(t *testing.T) {
	t.Run("calls callback on first token fetch", func(t *testing.T) {
		var captured *oauth2.Token
		source := &refreshableTokenSource{
			source:   &mockTokenSource{token: &oauth2.Token{AccessToken: "test_token"}},
			callback: func(tok *oauth2.Token) { captured = tok },
		}

		tok, err := source.Token()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if captured == nil || captured.AccessToken != "test_token" {
			t.Errorf("expected callback with test_token, got %+v", captured)
		}
		if tok.AccessToken != "test_token" {
			t.Errorf("expected returned token to be 'test_token', got %s", tok.AccessToken)
		}
	})

	t.Run("calls callback when token changes", func(t *testing.T) {
		callCount := 0
		mock := &mockTokenSource{token: &oauth2.Token{AccessToken: "token1"}}
		source := &refreshableTokenSource{
			source:   mock,
			callback: func(*oauth2.Token) { callCount++ },
		}

		source.Token()
		mock.token = &oauth2.Token{AccessToken: "token2"}
		source.Token()
		source.Token()

		if callCount != 2 {
			t.Errorf("expected callback called twice, got %d", callCount)
		}
	})

	t.Run("skips callback for the seeded token", func(t *testing.T) {
		source := &refreshableTokenSource{
			source:   &mockTokenSource{token: &oauth2.Token{AccessToken: "seed"}},
			callback: func(*oauth2.Token) { t.Error("callback should not fire for the seeded token") },
			last:     "seed",
		}
		source.Token()
	})

	t.Run("handles nil callback gracefully", func(t *testing.T) {
		source := &refreshableTokenSource{source: &mockTokenSource{token: &oauth2.Token{AccessToken: "test_token"}}}

		tok, err := source.Token()
		if err != nil {
			t.Fatalf("expected no error with nil callback, got %v", err)
		}
		if tok.AccessToken != "test_token" {
			t.Error("expected token to be returned despite nil callback")
		}
	})

	t.Run("propagates source errors", func(t *testing.T) {
		source := &refreshableTokenSource{
			source:   &mockTokenSource{err: errors.New("token source error")},
			callback: func(*oauth2.Token) { t.Error("callback should not be called on error") },
		}

		tok, err := source.Token()
		if err == nil || !strings.Contains(err.Error(), "token source error") {
			t.Errorf("expected source error, got %v", err)
		}
		if tok != nil {
			t.Error("expected nil token on error")
		}
	})
}
