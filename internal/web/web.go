// Package web serves the liked songs dashboard: the OAuth login flow, the JSON API the page
// talks to and the embedded page itself.
//
// # Sessions
//
// The server keeps no session state. After the OAuth callback the access token lives in a
// short-lived cookie the page can read (the playback widget needs it), and the refresh token
// in a longer-lived HttpOnly cookie. When the access cookie has expired but the refresh cookie
// is still present, the next request refreshes the session transparently.
//
// Each API request builds its own Spotify client from the request's token, so handlers never
// share upstream state.
//
// # Routes
//
//	GET  /                         landing page, shows #error= messages
//	GET  /login                    start the authorization-code flow
//	GET  /callback                 finish it and set the token cookies
//	GET  /dashboard                the dashboard page
//	GET  /logout                   clear the token cookies
//	GET  /api/token                {"access_token"} for the playback widget
//	GET  /api/user                 current profile
//	GET  /api/liked-songs          every liked song, genres inline unless skipGenres/fastLoad
//	GET  /api/liked-songs-genres   {uri: [genres]} with the slower deferred pacing
//	GET  /api/playlists            playlists the user can edit
//	POST /api/add-to-playlist      {playlistId, trackUris}
//	POST /api/remove-from-liked    {trackIds}
//	GET  /api/activity             recent bulk operations
//	GET  /static/                  embedded assets
package web

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/likesorter/internal/models"
	"github.com/desertthunder/likesorter/internal/server"
	"github.com/desertthunder/likesorter/internal/services"
	"github.com/desertthunder/likesorter/internal/shared"
	"github.com/desertthunder/likesorter/internal/tasks"
	"golang.org/x/oauth2"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Authenticator runs the authorization-code flow. [services.SpotifyAuth] implements it.
type Authenticator interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// ClientFunc builds a Spotify client for a request's token.
type ClientFunc func(ctx context.Context, tok *oauth2.Token) (services.Client, error)

// FactoryClients adapts a [services.ClientFactory] to a [ClientFunc].
func FactoryClients(f *services.ClientFactory) ClientFunc {
	return func(ctx context.Context, tok *oauth2.Token) (services.Client, error) {
		client, err := f.ForToken(ctx, tok)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// ActivityStore persists and lists the mutation journal. [repositories.ActivityRepository] implements it.
type ActivityStore interface {
	Create(activity *models.Activity) error
	List(criteria map[string]any) ([]*models.Activity, error)
}

// PlayerSettings are passed to the page for the browser playback widget.
type PlayerSettings struct {
	Name   string
	Volume int
}

// Dashboard holds the handlers for every dashboard route.
type Dashboard struct {
	auth       Authenticator
	clients    ClientFunc
	activity   ActivityStore
	engineOpts []tasks.Option
	secure     bool
	player     PlayerSettings
	logger     *log.Logger
	pages      *template.Template
	static     fs.FS
}

// Option configures a [Dashboard].
type Option func(*Dashboard)

// WithActivity journals mutations to store and serves it at /api/activity.
func WithActivity(store ActivityStore) Option { return func(d *Dashboard) { d.activity = store } }

// WithEngineOptions configures the workflow engine built for each request.
func WithEngineOptions(opts ...tasks.Option) Option {
	return func(d *Dashboard) { d.engineOpts = append(d.engineOpts, opts...) }
}

// WithSecureCookies marks every cookie Secure. Enable in production and TLS mode.
func WithSecureCookies(secure bool) Option { return func(d *Dashboard) { d.secure = secure } }

// WithPlayerSettings names the browser player and sets its initial volume.
func WithPlayerSettings(p PlayerSettings) Option { return func(d *Dashboard) { d.player = p } }

// WithLogger sets the dashboard logger.
func WithLogger(l *log.Logger) Option { return func(d *Dashboard) { d.logger = l } }

// New creates a dashboard authenticating with auth and reaching Spotify through clients.
func New(auth Authenticator, clients ClientFunc, opts ...Option) *Dashboard {
	d := &Dashboard{
		auth:    auth,
		clients: clients,
		player:  PlayerSettings{Name: "Spotify Like Sorter Web Player", Volume: 5},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = shared.NewLogger(nil)
	}

	d.pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	d.static = static
	return d
}

// Register adds every dashboard route to r.
func (d *Dashboard) Register(r server.Router) {
	r.Handle(http.MethodGet, "/{$}", http.HandlerFunc(d.index))
	r.Handle(http.MethodGet, "/login", http.HandlerFunc(d.login))
	r.Handle(http.MethodGet, "/callback", http.HandlerFunc(d.callback))
	r.Handle(http.MethodGet, "/dashboard", http.HandlerFunc(d.dashboard))
	r.Handle(http.MethodGet, "/logout", http.HandlerFunc(d.logout))

	r.Handle(http.MethodGet, "/api/token", http.HandlerFunc(d.token))
	r.Handle(http.MethodGet, "/api/user", http.HandlerFunc(d.user))
	r.Handle(http.MethodGet, "/api/liked-songs", http.HandlerFunc(d.likedSongs))
	r.Handle(http.MethodGet, "/api/liked-songs-genres", http.HandlerFunc(d.likedSongsGenres))
	r.Handle(http.MethodGet, "/api/playlists", http.HandlerFunc(d.playlists))
	r.Handle(http.MethodPost, "/api/add-to-playlist", http.HandlerFunc(d.addToPlaylist))
	r.Handle(http.MethodPost, "/api/remove-from-liked", http.HandlerFunc(d.removeFromLiked))
	r.Handle(http.MethodGet, "/api/activity", http.HandlerFunc(d.listActivity))

	r.Handle(http.MethodGet, "/static/", http.StripPrefix("/static/", http.FileServerFS(d.static)))
}

// Handler returns a router with the dashboard routes and the standard middleware.
func (d *Dashboard) Handler() http.Handler {
	r := server.NewBasicRouter()
	r.Use(server.Recover(d.logger), server.Logging(d.logger), server.SecurityHeaders())
	d.Register(r)
	return r
}

func (d *Dashboard) engine(client services.Client) *tasks.Engine {
	opts := append([]tasks.Option{tasks.WithLogger(d.logger)}, d.engineOpts...)
	if d.activity != nil {
		opts = append(opts, tasks.WithJournal(d.activity))
	}
	return tasks.NewEngine(client, opts...)
}
