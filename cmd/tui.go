package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/likesorter/internal/dashboard"
	"github.com/desertthunder/likesorter/internal/playback"
	"github.com/desertthunder/likesorter/internal/shared"
	"github.com/desertthunder/likesorter/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal dashboard.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/likesorter-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	client, err := r.spotify(ctx)
	if err != nil {
		return err
	}
	engine := r.engine(client, true)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var controller *playback.Controller
	if player, err := r.playerClient(ctx); err != nil {
		r.logger.Warn("playback unavailable", "err", err)
	} else {
		bus := playback.NewBus()
		controller = playback.NewController(player, bus,
			append(playback.OptionsFromConfig(r.config.Playback), playback.WithLogger(r.logger))...)
		connect := playback.NewConnectPlayer(player, bus, playback.ConnectOptionsFromConfig(r.config.Playback), r.logger)
		go func() {
			if err := connect.Run(ctx); err != nil {
				r.logger.Warn("connect player stopped", "err", err)
			}
		}()
	}

	model := ui.NewModel(ctx, engine, dashboard.NewSession(), controller)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
