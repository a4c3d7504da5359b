package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/likesorter/internal/shared"
)

var (
	ErrPlayerNotReady  = errors.New("player not ready")
	ErrPremiumRequired = errors.New("spotify premium required")
	ErrPlayerInit      = errors.New("player initialization failed")
)

// Default timings for a [Controller].
const (
	SwitchDelay = 100 * time.Millisecond
	InitTimeout = 10 * time.Second
)

// State is the controller's view of the player.
type State int

const (
	NoTrack State = iota
	Paused
	Playing
)

func (s State) String() string {
	switch s {
	case Paused:
		return "paused"
	case Playing:
		return "playing"
	default:
		return "no track"
	}
}

// Player is the device API the controller issues commands to.
// [services.SpotifyClient] satisfies it.
type Player interface {
	Play(ctx context.Context, deviceID string, uris []string) error
	Resume(ctx context.Context, deviceID string) error
	Pause(ctx context.Context, deviceID string) error
	Next(ctx context.Context, deviceID string) error
	Previous(ctx context.Context, deviceID string) error
	Volume(ctx context.Context, deviceID string, percent int) error
}

// Status is a copy of the controller state.
type Status struct {
	State    State
	URI      string
	Name     string
	Artists  string
	DeviceID string
}

// Controller turns play commands into device calls and follows the player through bus events.
type Controller struct {
	player      Player
	retry       RetryPolicy
	switchDelay time.Duration
	sleep       Sleeper
	logger      *log.Logger

	mu       sync.Mutex
	status   Status
	ready    chan struct{}
	readyOne sync.Once
	failed   chan struct{}
	failOne  sync.Once
	initErr  error
}

// ControllerOption configures a [Controller].
type ControllerOption func(*Controller)

// WithRetryPolicy replaces [PlayRetry].
func WithRetryPolicy(p RetryPolicy) ControllerOption { return func(c *Controller) { c.retry = p } }

// WithSwitchDelay sets the wait between pausing the current track and playing a new one.
func WithSwitchDelay(d time.Duration) ControllerOption {
	return func(c *Controller) { c.switchDelay = d }
}

// WithSleeper replaces the wall-clock sleeper, used by tests.
func WithSleeper(s Sleeper) ControllerOption { return func(c *Controller) { c.sleep = s } }

// WithLogger sets the controller logger.
func WithLogger(l *log.Logger) ControllerOption { return func(c *Controller) { c.logger = l } }

// OptionsFromConfig maps the [playback] config section to controller options.
func OptionsFromConfig(cfg shared.PlaybackConfig) []ControllerOption {
	retry := PlayRetry
	if cfg.RetryDelay > 0 {
		retry.Delay = shared.Millis(cfg.RetryDelay)
	}
	opts := []ControllerOption{WithRetryPolicy(retry)}
	if cfg.SwitchDelay > 0 {
		opts = append(opts, WithSwitchDelay(shared.Millis(cfg.SwitchDelay)))
	}
	return opts
}

// NewController creates a controller for player and subscribes it to bus.
// A nil player leaves every command failing with [ErrPlayerNotReady].
func NewController(player Player, bus *Bus, opts ...ControllerOption) *Controller {
	c := &Controller{
		player:      player,
		retry:       PlayRetry,
		switchDelay: SwitchDelay,
		sleep:       sleepContext,
		ready:       make(chan struct{}),
		failed:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = shared.NewLogger(nil)
	}

	bus.Subscribe(EventReady, c.onReady)
	bus.Subscribe(EventNotReady, c.onNotReady)
	bus.Subscribe(EventStateChanged, c.onStateChanged)
	bus.Subscribe(EventError, c.onError)
	return c
}

func (c *Controller) onReady(e Event) {
	c.mu.Lock()
	c.status.DeviceID = e.DeviceID
	c.mu.Unlock()
	c.readyOne.Do(func() { close(c.ready) })
}

func (c *Controller) onNotReady(Event) {
	c.mu.Lock()
	c.status.DeviceID = ""
	c.mu.Unlock()
}

func (c *Controller) onStateChanged(e Event) {
	if e.State == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e.State.Track.URI != "" {
		c.status.URI = e.State.Track.URI
		c.status.Name = e.State.Track.Name
		c.status.Artists = e.State.Track.ArtistNames()
	}
	switch {
	case c.status.URI == "":
		c.status.State = NoTrack
	case e.State.Paused:
		c.status.State = Paused
	default:
		c.status.State = Playing
	}
}

func (c *Controller) onError(e Event) {
	if !e.Kind.fatal() {
		return
	}
	c.failOne.Do(func() {
		c.mu.Lock()
		c.initErr = fmt.Errorf("%w: %s error: %s", ErrPlayerInit, e.Kind, e.Message)
		c.mu.Unlock()
		close(c.failed)
	})
}

// Status returns a copy of the current state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// AwaitReady blocks until the player reports a device, reports a fatal error or timeout elapses.
func (c *Controller) AwaitReady(ctx context.Context, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = InitTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.ready:
		return c.Status().DeviceID, nil
	case <-c.failed:
		c.mu.Lock()
		defer c.mu.Unlock()
		return "", c.initErr
	case <-timer.C:
		return "", fmt.Errorf("%w: player initialization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// device returns the device id, or [ErrPlayerNotReady] when either the player or the device is missing.
func (c *Controller) device() (string, error) {
	if c.player == nil {
		return "", ErrPlayerNotReady
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.DeviceID == "" {
		return "", ErrPlayerNotReady
	}
	return c.status.DeviceID, nil
}

// Play starts uri on the player's device.
//
// Playing the loaded track toggles it instead. Switching tracks while playing pauses first and
// waits briefly before the new play command. A device that is not found is retried per the retry policy.
func (c *Controller) Play(ctx context.Context, uri string) error {
	deviceID, err := c.device()
	if err != nil {
		return err
	}

	current := c.Status()
	if current.URI == uri {
		return c.Toggle(ctx)
	}

	if current.State == Playing {
		if err := c.player.Pause(ctx, deviceID); err != nil {
			c.logger.Warn("pause before switching tracks failed", "err", err)
		}
		if err := c.sleep(ctx, c.switchDelay); err != nil {
			return err
		}
	}

	err = c.retry.Do(ctx, c.sleep, func(ctx context.Context) error {
		return c.player.Play(ctx, deviceID, []string{uri})
	})
	if err != nil {
		if errors.Is(err, shared.ErrForbidden) {
			return fmt.Errorf("%w: %w", ErrPremiumRequired, err)
		}
		return fmt.Errorf("failed to play %s: %w", uri, err)
	}

	// state_changed overrides this once the device reports in.
	c.mu.Lock()
	c.status.URI = uri
	c.status.State = Playing
	c.mu.Unlock()
	return nil
}

// Toggle pauses when playing and resumes otherwise.
func (c *Controller) Toggle(ctx context.Context) error {
	deviceID, err := c.device()
	if err != nil {
		return err
	}

	next := Playing
	if c.Status().State == Playing {
		next = Paused
		err = c.player.Pause(ctx, deviceID)
	} else {
		err = c.player.Resume(ctx, deviceID)
	}
	if err != nil {
		return fmt.Errorf("failed to toggle playback: %w", err)
	}

	c.mu.Lock()
	c.status.State = next
	c.mu.Unlock()
	return nil
}

// Next skips to the next track.
func (c *Controller) Next(ctx context.Context) error {
	deviceID, err := c.device()
	if err != nil {
		return err
	}
	if err := c.player.Next(ctx, deviceID); err != nil {
		return fmt.Errorf("failed to skip track: %w", err)
	}
	return nil
}

// Previous returns to the previous track.
func (c *Controller) Previous(ctx context.Context) error {
	deviceID, err := c.device()
	if err != nil {
		return err
	}
	if err := c.player.Previous(ctx, deviceID); err != nil {
		return fmt.Errorf("failed to go to previous track: %w", err)
	}
	return nil
}

// SetVolume sets the device volume, clamped to [0, 100].
func (c *Controller) SetVolume(ctx context.Context, percent int) error {
	deviceID, err := c.device()
	if err != nil {
		return err
	}
	if err := c.player.Volume(ctx, deviceID, min(max(percent, 0), 100)); err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}
	return nil
}

// Describe returns the user-facing message for a failed playback command.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPlayerNotReady):
		return "Player not ready. Please wait or refresh the page."
	case errors.Is(err, ErrPremiumRequired):
		return "Spotify Premium required to play music"
	case errors.Is(err, shared.ErrTimeout):
		return "Player initialization timeout. Check your internet connection and Spotify Premium status."
	case errors.Is(err, ErrPlayerInit):
		return err.Error()
	default:
		return "Error playing track"
	}
}

// DescribeEvent returns the user-facing message for an error event.
func DescribeEvent(e Event) string {
	switch e.Kind {
	case ErrorInitialization:
		return "Player initialization error: " + e.Message
	case ErrorAuthentication:
		return "Authentication error: " + e.Message + ". You need Spotify Premium and must re-login to grant streaming permissions."
	case ErrorAccount:
		return "Account error: " + e.Message + ". Spotify Premium required for music streaming."
	default:
		return "Playback error: " + e.Message
	}
}
