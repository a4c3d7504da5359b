package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/likesorter/internal/repositories"
	"github.com/desertthunder/likesorter/internal/services"
	"github.com/desertthunder/likesorter/internal/shared"
	"github.com/desertthunder/likesorter/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	client     services.Client
	player     services.PlayerClient
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	db         *sql.DB
	mu         sync.Mutex
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Client     services.Client
	Player     services.PlayerClient
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		client:     opts.Client,
		player:     opts.Player,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, authCommand, likedCommand, playlistsCommand, activityCommand, playCommand, setupCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before loads the configuration named by the global --config flag and applies environment overrides.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	r.configPath = cmd.String("config")
	config, err := shared.Load(r.configPath)
	if err != nil {
		return ctx, err
	}
	r.config = config
	return ctx, nil
}

// SetLogger replaces the logger used by the runner and everything it builds afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Close releases the database handle, if one was opened.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db != nil {
		r.db.Close()
		r.db = nil
	}
}

// saveTokens stores tok in the config and writes it back to the config file, when there is one.
func (r *Runner) saveTokens(tok *oauth2.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}
	if tok == nil {
		return fmt.Errorf("failed to update spotify configuration: %w: token cannot be nil", shared.ErrInvalidArgument)
	}

	r.config.Credentials.Spotify.Update(tok)
	if r.configPath == "" {
		return nil
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// spotify returns the Spotify client for the stored CLI session, building it on first use.
//
// Refreshed tokens are written back to the config file.
func (r *Runner) spotify(ctx context.Context) (services.Client, error) {
	if r.client != nil {
		return r.client, nil
	}

	tok := r.config.Credentials.Spotify.Token()
	if tok == nil {
		return nil, fmt.Errorf("%w: run 'likesorter auth login' first", shared.ErrNotAuthenticated)
	}

	auth, err := services.NewSpotifyAuth(r.config.Credentials.Spotify)
	if err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	httpClient := auth.HTTPClient(ctx, tok, func(t *oauth2.Token) {
		r.logger.Debug("spotify token refreshed", "expiry", t.Expiry)
		if err := r.saveTokens(t); err != nil {
			r.logger.Warn("failed to persist refreshed token", "err", err)
		}
	})

	client := services.NewSpotifyClient(httpClient, services.WithClientLogger(r.logger))
	r.client = client
	if r.player == nil {
		r.player = client
	}
	return client, nil
}

// playerClient returns the client used for playback commands.
func (r *Runner) playerClient(ctx context.Context) (services.PlayerClient, error) {
	if r.player != nil {
		return r.player, nil
	}
	if _, err := r.spotify(ctx); err != nil {
		return nil, err
	}
	if r.player == nil {
		return nil, fmt.Errorf("%w: playback is not supported by this client", shared.ErrServiceUnavailable)
	}
	return r.player, nil
}

// activity opens the database on first use and returns the mutation journal.
func (r *Runner) activity() (*repositories.ActivityRepository, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db == nil {
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		r.db = db
	}
	return repositories.NewActivityRepository(r.db), nil
}

// engine builds the workflow engine for client. Mutations are journaled when the database is available.
func (r *Runner) engine(client services.Client, journal bool) *tasks.Engine {
	opts := append(tasks.OptionsFromConfig(r.config.Sync), tasks.WithLogger(r.logger))
	if journal {
		if repo, err := r.activity(); err != nil {
			r.logger.Warn("activity journal unavailable", "err", err)
		} else {
			opts = append(opts, tasks.WithJournal(repo))
		}
	}
	return tasks.NewEngine(client, opts...)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
