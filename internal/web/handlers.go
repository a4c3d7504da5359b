package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/desertthunder/likesorter/internal/models"
	"github.com/desertthunder/likesorter/internal/services"
	"github.com/desertthunder/likesorter/internal/shared"
	"github.com/desertthunder/likesorter/internal/tasks"
)

func (d *Dashboard) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := d.pages.ExecuteTemplate(w, name, data); err != nil {
		d.logger.Error("failed to render page", "template", name, "err", err)
	}
}

func (d *Dashboard) index(w http.ResponseWriter, r *http.Request) {
	d.render(w, "index.html", nil)
}

func (d *Dashboard) login(w http.ResponseWriter, r *http.Request) {
	state, err := shared.GenerateState(16)
	if err != nil {
		d.logger.Error("failed to generate oauth state", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	d.setCookie(w, StateCookie, state, StateTTL, true)
	http.Redirect(w, r, d.auth.AuthURL(state), http.StatusFound)
}

func (d *Dashboard) callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	state := query.Get("state")
	if state == "" || state != cookieValue(r, StateCookie) {
		d.logger.Warn("oauth callback rejected", "err", shared.ErrStateMismatch)
		http.Redirect(w, r, "/#error=state_mismatch", http.StatusFound)
		return
	}
	d.clearCookie(w, StateCookie)

	tok, err := d.auth.Exchange(r.Context(), query.Get("code"))
	if err != nil {
		d.logger.Warn("oauth code exchange failed", "err", err, "reason", query.Get("error"))
		http.Redirect(w, r, "/#error=invalid_token", http.StatusFound)
		return
	}

	d.setSession(w, tok)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (d *Dashboard) dashboard(w http.ResponseWriter, r *http.Request) {
	if _, err := d.session(w, r); err != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	d.render(w, "dashboard.html", d.player)
}

func (d *Dashboard) logout(w http.ResponseWriter, r *http.Request) {
	d.clearSession(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (d *Dashboard) token(w http.ResponseWriter, r *http.Request) {
	tok, err := d.session(w, r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, apiError{Error: "No access token found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": tok.AccessToken})
}

func (d *Dashboard) user(w http.ResponseWriter, r *http.Request) {
	client, err := d.client(w, r)
	if err != nil {
		d.fail(w, r, err, "Unauthorized")
		return
	}

	user, err := client.CurrentUser(r.Context())
	if err != nil {
		d.fail(w, r, err, "Failed to fetch user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (d *Dashboard) likedSongs(w http.ResponseWriter, r *http.Request) {
	client, err := d.client(w, r)
	if err != nil {
		d.fail(w, r, err, "Failed to fetch liked songs")
		return
	}

	mode := tasks.ModeInline
	if q := r.URL.Query(); q.Get("skipGenres") == "true" || q.Get("fastLoad") == "true" {
		mode = tasks.ModeSkip
	}

	result, err := d.engine(client).LikedSongs(r.Context(), nil, mode)
	if err != nil {
		d.fail(w, r, err, "Failed to fetch liked songs")
		return
	}

	if result.Enrichment.Partial {
		w.Header().Set("X-Genres-Partial", "true")
		w.Header().Set("X-Genres-Stopped-At", strconv.Itoa(result.Enrichment.StoppedAt))
	}

	tracks := result.Tracks
	if tracks == nil {
		tracks = []models.SavedTrack{}
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (d *Dashboard) likedSongsGenres(w http.ResponseWriter, r *http.Request) {
	client, err := d.client(w, r)
	if err != nil {
		d.fail(w, r, err, "Failed to fetch genres")
		return
	}

	result, err := d.engine(client).Genres(r.Context(), nil)
	if err != nil {
		d.fail(w, r, err, "Failed to fetch genres")
		return
	}

	if result.Enrichment.Partial {
		w.Header().Set("X-Genres-Partial", "true")
		w.Header().Set("X-Genres-Stopped-At", strconv.Itoa(result.Enrichment.StoppedAt))
	}
	writeJSON(w, http.StatusOK, result.Genres)
}

func (d *Dashboard) playlists(w http.ResponseWriter, r *http.Request) {
	client, err := d.client(w, r)
	if err != nil {
		d.fail(w, r, err, "Failed to fetch playlists")
		return
	}

	playlists, err := d.engine(client).EditablePlaylists(r.Context(), nil)
	if err != nil {
		d.fail(w, r, err, "Failed to fetch playlists")
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

type addRequest struct {
	PlaylistID string     `json:"playlistId"`
	TrackURIs  stringList `json:"trackUris"`
}

type addResponse struct {
	Success    bool `json:"success"`
	AddedCount int  `json:"addedCount"`
}

func (d *Dashboard) addToPlaylist(w http.ResponseWriter, r *http.Request) {
	const failure = "Failed to add track(s) to playlist"

	var req addRequest
	if err := decodeBody(w, r, &req); err != nil {
		d.fail(w, r, err, failure)
		return
	}

	client, err := d.client(w, r)
	if err != nil {
		d.fail(w, r, err, failure)
		return
	}

	result, err := d.engine(client).AddToPlaylist(r.Context(), nil, req.PlaylistID, req.TrackURIs)
	if err != nil {
		completed := 0
		if result != nil {
			completed = result.Completed
		}
		d.failMutation(w, r, err, failure, completed)
		return
	}
	writeJSON(w, http.StatusOK, addResponse{Success: true, AddedCount: result.Completed})
}

type removeRequest struct {
	TrackIDs stringList `json:"trackIds"`
}

type removeResponse struct {
	Success      bool `json:"success"`
	RemovedCount int  `json:"removedCount"`
}

func (d *Dashboard) removeFromLiked(w http.ResponseWriter, r *http.Request) {
	const failure = "Failed to remove track(s) from liked songs"

	var req removeRequest
	if err := decodeBody(w, r, &req); err != nil {
		d.fail(w, r, err, failure)
		return
	}

	ids, err := normalizeTrackIDs(req.TrackIDs)
	if err != nil {
		d.fail(w, r, err, failure)
		return
	}

	client, err := d.client(w, r)
	if err != nil {
		d.fail(w, r, err, failure)
		return
	}

	result, err := d.engine(client).RemoveFromLiked(r.Context(), nil, ids)
	if err != nil {
		completed := 0
		if result != nil {
			completed = result.Completed
		}
		d.failMutation(w, r, err, failure, completed)
		return
	}
	writeJSON(w, http.StatusOK, removeResponse{Success: true, RemovedCount: result.Completed})
}

// normalizeTrackIDs accepts bare ids as well as track uris.
func normalizeTrackIDs(in []string) ([]string, error) {
	ids := make([]string, 0, len(in))
	for _, v := range in {
		id, err := services.TrackIDFromURI(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (d *Dashboard) listActivity(w http.ResponseWriter, r *http.Request) {
	if _, err := d.session(w, r); err != nil {
		d.fail(w, r, err, "Unauthorized")
		return
	}
	if d.activity == nil {
		writeJSON(w, http.StatusOK, []models.ActivityView{})
		return
	}

	criteria := map[string]any{}
	q := r.URL.Query()
	if kind := q.Get("kind"); kind != "" {
		criteria["kind"] = kind
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			d.fail(w, r, fmt.Errorf("%w: limit must be a positive integer", shared.ErrInvalidInput), "Failed to list activity")
			return
		}
		criteria["limit"] = limit
	}

	entries, err := d.activity.List(criteria)
	if err != nil {
		d.fail(w, r, err, "Failed to list activity")
		return
	}

	views := make([]models.ActivityView, len(entries))
	for i, a := range entries {
		views[i] = a.View()
	}
	writeJSON(w, http.StatusOK, views)
}
