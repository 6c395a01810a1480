// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// rangedFlags are shared by the top-item stats commands.
func rangedFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "range",
			Aliases: []string{"r"},
			Usage:   "Time range: short_term, medium_term, or long_term",
			Value:   "medium_term",
		},
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"l"},
			Usage:   "Maximum number of items to return",
			Value:   20,
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

// serveCommand starts the local dashboard API server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the local dashboard API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides config)",
			},
			&cli.Float64Flag{
				Name:  "rate-limit",
				Usage: "Requests per second allowed per client",
				Value: 10,
			},
		},
		Action: r.Serve,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authenticate with Spotify using OAuth2",
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Check current session state",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Clear stored credentials",
				Action: r.AuthLogout,
			},
		},
	}
}

// statsCommand exposes the listening statistics listings.
func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show listening statistics",
		Commands: []*cli.Command{
			{
				Name:    "artists",
				Usage:   "Top artists for a time range",
				Flags:   rangedFlags(),
				Action:  r.StatsArtists,
				Aliases: []string{"ar"},
			},
			{
				Name:    "tracks",
				Usage:   "Top tracks for a time range",
				Flags:   rangedFlags(),
				Action:  r.StatsTracks,
				Aliases: []string{"tr"},
			},
			{
				Name:    "albums",
				Usage:   "Top albums aggregated from top tracks",
				Flags:   rangedFlags(),
				Action:  r.StatsAlbums,
				Aliases: []string{"al"},
			},
			{
				Name:   "recent",
				Usage:  "Recently played tracks",
				Flags:  rangedFlags(),
				Action: r.StatsRecent,
			},
			{
				Name:   "playlists",
				Usage:  "Your playlists",
				Flags:  rangedFlags(),
				Action: r.StatsPlaylists,
			},
			{
				Name:  "saved",
				Usage: "Saved tracks",
				Flags: append(rangedFlags(), &cli.IntFlag{
					Name:  "offset",
					Usage: "Pagination offset",
				}),
				Action: r.StatsSaved,
			},
			{
				Name:  "followed",
				Usage: "Followed artists",
				Flags: append(rangedFlags(), &cli.StringFlag{
					Name:  "after",
					Usage: "Cursor for the next page",
				}),
				Action: r.StatsFollowed,
			},
		},
	}
}

// setupCommand handles setup operations for database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Create a config.toml from the embedded template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "path",
						Aliases: []string{"p"},
						Usage:   "Destination path",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for the interactive dashboard.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive dashboard",
		Action:  r.TUI,
	}
}
