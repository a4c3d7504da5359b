package playback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/likesorter/internal/services"
	"github.com/desertthunder/likesorter/internal/shared"
)

// PollInterval is the default delay between player state polls.
const PollInterval = time.Second

// ConnectOptions selects and configures the Connect device.
type ConnectOptions struct {
	DeviceName   string        // Preferred device name, matched case-insensitively
	Volume       int           // Initial volume percent, zero leaves it untouched
	PollInterval time.Duration // Delay between state polls
}

// ConnectOptionsFromConfig maps the [playback] config section.
func ConnectOptionsFromConfig(cfg shared.PlaybackConfig) ConnectOptions {
	return ConnectOptions{
		DeviceName:   cfg.DeviceName,
		Volume:       cfg.Volume,
		PollInterval: shared.Millis(cfg.PollInterval),
	}
}

// ConnectPlayer publishes Spotify Connect player activity to a [Bus].
type ConnectPlayer struct {
	client services.PlayerClient
	bus    *Bus
	opts   ConnectOptions
	logger *log.Logger

	deviceID string
	last     *Snapshot
	lastErr  string
}

// NewConnectPlayer creates a player over client. It does nothing until [ConnectPlayer.Connect].
func NewConnectPlayer(client services.PlayerClient, bus *Bus, opts ConnectOptions, logger *log.Logger) *ConnectPlayer {
	if opts.PollInterval <= 0 {
		opts.PollInterval = PollInterval
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ConnectPlayer{client: client, bus: bus, opts: opts, logger: logger}
}

// Connect picks a device and publishes ready, or publishes an error event and returns why it could not.
func (p *ConnectPlayer) Connect(ctx context.Context) error {
	devices, err := p.client.Devices(ctx)
	if err != nil {
		p.publishError(errorKind(err, ErrorInitialization), err)
		return fmt.Errorf("failed to list devices: %w", err)
	}

	device, ok := pickDevice(devices, p.opts.DeviceName)
	if !ok {
		err := fmt.Errorf("%w: no available Spotify Connect device", ErrPlayerNotReady)
		p.publishError(ErrorInitialization, err)
		return err
	}

	p.deviceID = device.ID
	p.logger.Info("connected to device", "name", device.Name, "type", device.Type)

	if p.opts.Volume > 0 {
		if err := p.client.Volume(ctx, device.ID, p.opts.Volume); err != nil {
			p.logger.Warn("failed to set initial volume", "err", err)
		}
	}

	p.bus.Publish(Event{Type: EventReady, DeviceID: device.ID})
	return nil
}

// DeviceID returns the connected device, empty before [ConnectPlayer.Connect] succeeds.
func (p *ConnectPlayer) DeviceID() string { return p.deviceID }

// Run polls until ctx is done. It connects first when no device is selected yet.
func (p *ConnectPlayer) Run(ctx context.Context) error {
	if p.deviceID == "" {
		if err := p.Connect(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	for {
		p.Poll(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll fetches the player state once and publishes what changed.
func (p *ConnectPlayer) Poll(ctx context.Context) {
	state, err := p.client.PlayerState(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if msg := err.Error(); msg != p.lastErr {
			p.lastErr = msg
			p.publishError(errorKind(err, ErrorPlayback), err)
		}
		return
	}
	p.lastErr = ""

	if state.Device.ID != "" && state.Device.ID != p.deviceID {
		p.logger.Debug("playback moved to another device", "device", state.Device.Name)
	}
	if state.Track == nil {
		return
	}

	snap := &Snapshot{Track: *state.Track, Paused: !state.Playing}
	if p.last != nil && p.last.Track.URI == snap.Track.URI && p.last.Paused == snap.Paused {
		return
	}
	p.last = snap
	p.bus.Publish(Event{Type: EventStateChanged, State: snap})
}

// Disconnect forgets the device and publishes not_ready.
func (p *ConnectPlayer) Disconnect() {
	if p.deviceID == "" {
		return
	}
	id := p.deviceID
	p.deviceID = ""
	p.last = nil
	p.bus.Publish(Event{Type: EventNotReady, DeviceID: id})
}

func (p *ConnectPlayer) publishError(kind ErrorKind, err error) {
	p.logger.Warn("player error", "kind", kind, "err", err)
	p.bus.Publish(Event{Type: EventError, Kind: kind, Message: err.Error()})
}

// pickDevice prefers a device named name, then the active device, then the first unrestricted one.
func pickDevice(devices []services.Device, name string) (services.Device, bool) {
	usable := make([]services.Device, 0, len(devices))
	for _, d := range devices {
		if d.ID != "" && !d.Restricted {
			usable = append(usable, d)
		}
	}

	if name != "" {
		for _, d := range usable {
			if strings.EqualFold(d.Name, name) {
				return d, true
			}
		}
	}
	for _, d := range usable {
		if d.Active {
			return d, true
		}
	}
	if len(usable) > 0 {
		return usable[0], true
	}
	return services.Device{}, false
}

func errorKind(err error, fallback ErrorKind) ErrorKind {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
		return ErrorAuthentication
	case errors.Is(err, shared.ErrForbidden):
		return ErrorAccount
	default:
		return fallback
	}
}
