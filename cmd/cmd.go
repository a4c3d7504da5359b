// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/likesorter/internal/formatter"
	"github.com/urfave/cli/v3"
)

// withFilters prepends the title and artist filter flags. Flags carry parse state, so each command gets its own.
func withFilters(flags ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:    "title",
			Aliases: []string{"t"},
			Usage:   "Only tracks whose title contains this text (case-insensitive)",
		},
		&cli.StringFlag{
			Name:    "artist",
			Aliases: []string{"a"},
			Usage:   "Only tracks with an artist containing this text (case-insensitive)",
		},
	}, flags...)
}

// serveCommand runs the web dashboard.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Address to bind (overrides server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on (overrides server.port)",
			},
		},
		Action: r.Serve,
	}
}

// authCommand handles the CLI session
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the Spotify session used by the CLI",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authenticate with Spotify using OAuth2 and store the tokens in the config file",
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the stored session and the account it belongs to",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Remove the stored tokens from the config file",
				Action: r.AuthLogout,
			},
		},
	}
}

// likedCommand handles liked songs operations
func likedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "liked",
		Aliases: []string{"likes"},
		Usage:   "Liked songs operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List liked songs",
				Flags: withFilters(
					&cli.BoolFlag{
						Name:  "genres",
						Usage: "Look up genres for every track (slow for large libraries)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tracks to print",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				),
				Action: r.LikedList,
			},
			{
				Name:  "export",
				Usage: "Export liked songs to files",
				Flags: withFilters(
					&cli.StringSliceFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Formats to write: csv, markdown, txt, json (default: all)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: liked_export_{timestamp})",
					},
					&cli.BoolFlag{
						Name:  "genres",
						Usage: "Include genres (slow for large libraries)",
						Value: true,
					},
				),
				Action: r.LikedExport,
			},
			{
				Name:  "add",
				Usage: "Add the matching liked songs to a playlist",
				Flags: withFilters(
					&cli.StringFlag{
						Name:     "playlist",
						Aliases:  []string{"p"},
						Usage:    "Target playlist ID",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Show what would be added without changing anything",
					},
				),
				Action: r.LikedAdd,
			},
			{
				Name:  "remove",
				Usage: "Remove the matching songs from liked songs",
				Flags: withFilters(
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm the removal",
					},
				),
				Action: r.LikedRemove,
			},
		},
	}
}

// playlistsCommand lists playlists the user can add to
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List playlists you own or collaborate on",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Playlists,
	}
}

// activityCommand lists the mutation journal
func activityCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "activity",
		Usage: "Show recent bulk additions and removals",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Only show add_to_playlist or remove_from_liked entries",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of entries",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Activity,
	}
}

// playCommand plays a track on a Spotify Connect device
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play a track on a Spotify Connect device",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "uri"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "device",
				Usage: "Device name (overrides playback.device_name)",
			},
		},
		Action: r.Play,
	}
}

// setupCommand handles setup operations for configuration and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example config file and show the effective configuration",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for the interactive dashboard.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive liked songs dashboard",
		Action:  r.TUI,
	}
}

func parseFormats(names []string) ([]formatter.Format, error) {
	formats := make([]formatter.Format, 0, len(names))
	for _, name := range names {
		f, err := formatter.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	return formats, nil
}
