// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func userFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "user",
		Aliases: []string{"u"},
		Usage:   "Local account username",
		Value:   "local",
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize configuration and database",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run or roll back database migrations",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the latest migration",
			},
		},
		Action: r.Migrate,
	}
}

func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "login",
		Usage:  "Authenticate with Spotify using OAuth2",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Login,
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP API server",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Serve,
	}
}

// playlistCommand groups playlist operations
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List playlists",
				Flags:  []cli.Flag{configFlag(), userFlag()},
				Action: r.PlaylistList,
			},
			{
				Name:  "create",
				Usage: "Create a playlist on Spotify and locally",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags: []cli.Flag{
					configFlag(),
					userFlag(),
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "Playlist description",
					},
					&cli.BoolFlag{
						Name:  "public",
						Usage: "Make the playlist public on Spotify",
					},
				},
				Action: r.PlaylistCreate,
			},
			{
				Name:  "merge",
				Usage: "Combine two playlists into a new one",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "a"},
					&cli.StringArg{Name: "b"},
				},
				Flags:  []cli.Flag{configFlag(), userFlag()},
				Action: r.PlaylistMerge,
			},
			{
				Name:  "time-machine",
				Usage: "Build a playlist of top tracks from a year",
				Flags: []cli.Flag{
					configFlag(),
					userFlag(),
					&cli.IntFlag{
						Name:     "year",
						Usage:    "Year to search",
						Required: true,
					},
				},
				Action: r.PlaylistTimeMachine,
			},
			{
				Name:   "time-capsule",
				Usage:  "Build a playlist from your top tracks",
				Flags:  []cli.Flag{configFlag(), userFlag()},
				Action: r.PlaylistTimeCapsule,
			},
			{
				Name:      "generate",
				Usage:     "Build a playlist from a text description",
				ArgsUsage: "<description...>",
				Flags:     []cli.Flag{configFlag(), userFlag()},
				Action:    r.PlaylistGenerate,
			},
			{
				Name:  "discover",
				Usage: "List Spotify's featured playlists",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of playlists to fetch",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "country",
						Usage: "ISO country code for regional features",
					},
				},
				Action: r.PlaylistDiscover,
			},
			{
				Name:  "share",
				Usage: "Print a playlist's public Spotify URL",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags:  []cli.Flag{configFlag(), userFlag()},
				Action: r.PlaylistShare,
			},
			{
				Name:  "export",
				Usage: "Export a playlist to CSV or Markdown",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags: []cli.Flag{
					configFlag(),
					userFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (csv, markdown)",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (stdout when omitted)",
					},
				},
				Action: r.PlaylistExport,
			},
		},
	}
}

// trackCommand groups track membership and engagement operations
func trackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tracks",
		Aliases: []string{"tr"},
		Usage:   "Track operations within a playlist",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List a playlist's tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
				},
				Flags:  []cli.Flag{configFlag(), userFlag()},
				Action: r.TrackList,
			},
			{
				Name:  "add",
				Usage: "Resolve a track on Spotify and add it to a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
				},
				Flags: []cli.Flag{
					configFlag(),
					userFlag(),
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Track name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "artist",
						Usage:    "Track artist",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "album",
						Usage: "Album name",
					},
				},
				Action: r.TrackAdd,
			},
			{
				Name:  "remove",
				Usage: "Remove a track from a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
					&cli.StringArg{Name: "track"},
				},
				Flags:  []cli.Flag{configFlag(), userFlag()},
				Action: r.TrackRemove,
			},
			{
				Name:  "rate",
				Usage: "Rate a track 1-5",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
					&cli.StringArg{Name: "track"},
				},
				Flags: []cli.Flag{
					configFlag(),
					userFlag(),
					&cli.IntFlag{
						Name:     "rating",
						Aliases:  []string{"r"},
						Usage:    "Rating from 1 to 5",
						Required: true,
					},
				},
				Action: r.TrackRate,
			},
			{
				Name:      "comment",
				Usage:     "Comment on a track",
				ArgsUsage: "<body...>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
					&cli.StringArg{Name: "track"},
				},
				Flags:  []cli.Flag{configFlag(), userFlag()},
				Action: r.TrackComment,
			},
		},
	}
}

// browseCommand groups read-only catalog lookups
func browseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "Explore the Spotify catalog",
		Commands: []*cli.Command{
			{
				Name:  "trending",
				Usage: "Show the global chart's top tracks",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of tracks to fetch",
						Value: 10,
					},
				},
				Action: r.BrowseTrending,
			},
			{
				Name:   "genres",
				Usage:  "List available genre seeds",
				Flags:  []cli.Flag{configFlag()},
				Action: r.BrowseGenres,
			},
			{
				Name:  "track",
				Usage: "Show catalog metadata for a track",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "spotify-id"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.BrowseTrack,
			},
			{
				Name:  "album",
				Usage: "Show catalog metadata for an album",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "spotify-id"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.BrowseAlbum,
			},
		},
	}
}

// favoriteCommand groups favorite operations
func favoriteCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "favorites",
		Aliases: []string{"fav"},
		Usage:   "Favorite tracks and albums",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List favorites",
				Flags:  []cli.Flag{configFlag(), userFlag()},
				Action: r.FavoriteList,
			},
			{
				Name:  "track",
				Usage: "Favorite a track from one of your playlists",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
					&cli.StringArg{Name: "track"},
				},
				Flags:  []cli.Flag{configFlag(), userFlag()},
				Action: r.FavoriteTrack,
			},
			{
				Name:  "album",
				Usage: "Favorite an album by its Spotify ID",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "spotify-id"},
				},
				Flags:  []cli.Flag{configFlag(), userFlag()},
				Action: r.FavoriteAlbum,
			},
			{
				Name:  "remove",
				Usage: "Remove a favorite",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "spotify-id"},
				},
				Flags:  []cli.Flag{configFlag(), userFlag()},
				Action: r.FavoriteRemove,
			},
		},
	}
}
