package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/likesorter/internal/playback"
	"github.com/desertthunder/likesorter/internal/services"
	"github.com/desertthunder/likesorter/internal/shared"
	"github.com/urfave/cli/v3"
)

// Play starts a track on a Spotify Connect device. Accepts a track uri or a bare track id.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	arg := cmd.StringArg("uri")
	if arg == "" {
		return fmt.Errorf("%w: track uri is required", shared.ErrMissingArgument)
	}
	id, err := services.TrackIDFromURI(arg)
	if err != nil {
		return err
	}
	uri := "spotify:track:" + id

	client, err := r.playerClient(ctx)
	if err != nil {
		return err
	}

	opts := playback.ConnectOptionsFromConfig(r.config.Playback)
	if device := cmd.String("device"); device != "" {
		opts.DeviceName = device
	}

	bus := playback.NewBus()
	controller := playback.NewController(client, bus,
		append(playback.OptionsFromConfig(r.config.Playback), playback.WithLogger(r.logger))...)
	connect := playback.NewConnectPlayer(client, bus, opts, r.logger)

	if err := connect.Connect(ctx); err != nil {
		r.logger.Debug("connect failed", "err", err)
	}
	if _, err := controller.AwaitReady(ctx, shared.Millis(r.config.Playback.InitTimeout)); err != nil {
		return fmt.Errorf("%s: %w", playback.Describe(err), err)
	}

	// Learn what is already loaded so replaying the current track toggles it.
	connect.Poll(ctx)

	if err := controller.Play(ctx, uri); err != nil {
		return fmt.Errorf("%s: %w", playback.Describe(err), err)
	}

	status := controller.Status()
	r.writePlain("▶ %s on device %s\n", uri, status.DeviceID)
	return nil
}
