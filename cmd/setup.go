package main

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/desertthunder/likesorter/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the config template when the file is missing and prints the effective settings.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.writePlain("✓ Created %s\n", configPath)
	}

	config, err := shared.Load(configPath)
	if err != nil {
		return err
	}
	r.config = config

	r.writePlainHeader("Configuration")
	settings := config.Map()
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		r.writePlain("%-32s %s\n", k, settings[k])
	}

	if err := config.Validate(); err != nil {
		r.writePlainln("⚠ %v", err)
		r.writePlain("Set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET in .env or %s\n", configPath)
	}
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	statuses, err := shared.Migrations(db)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	for _, s := range statuses {
		mark := "✓"
		if !s.Applied {
			mark = "·"
		}
		r.writePlain("%s %04d %s\n", mark, s.Version, s.Name)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return nil
}
