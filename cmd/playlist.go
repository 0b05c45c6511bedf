package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PlaylistList prints the user's playlists.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	closer, err := r.connect(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closer()

	user, err := r.resolveUser(cmd.String("user"))
	if err != nil {
		return err
	}

	playlists, err := r.playlistEngine.List(user.ID)
	if err != nil {
		return err
	}
	return r.writePlain("%s", formatter.PlaylistList(playlists))
}

// PlaylistCreate creates a playlist on Spotify and mirrors it locally.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	closer, err := r.connect(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closer()

	if err := r.requireRemote(); err != nil {
		return err
	}

	user, err := r.resolveUser(cmd.String("user"))
	if err != nil {
		return err
	}

	playlist, err := r.playlistEngine.Create(ctx, tasks.CreatePlaylistParams{
		OwnerID:     user.ID,
		Name:        cmd.StringArg("name"),
		Description: cmd.String("description"),
		Public:      cmd.Bool("public"),
	})
	if err != nil {
		return err
	}

	return r.writePlain("✓ Created %q (spotify id %s)\n", playlist.Name, playlist.SpotifyID)
}

// PlaylistMerge creates a new playlist holding the union of two others.
func (r *Runner) PlaylistMerge(ctx context.Context, cmd *cli.Command) error {
	closer, err := r.connect(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closer()

	if err := r.requireRemote(); err != nil {
		return err
	}

	user, err := r.resolveUser(cmd.String("user"))
	if err != nil {
		return err
	}

	a, err := r.playlists.GetByName(user.ID, cmd.StringArg("a"))
	if err != nil {
		return err
	}
	b, err := r.playlists.GetByName(user.ID, cmd.StringArg("b"))
	if err != nil {
		return err
	}

	merged, err := r.playlistEngine.Merge(ctx, a.ID, b.ID, user.ID)
	if err != nil {
		return err
	}

	return r.writePlain("✓ Created %q\n", merged.Name)
}

// PlaylistTimeMachine builds a playlist of top tracks from a given year.
func (r *Runner) PlaylistTimeMachine(ctx context.Context, cmd *cli.Command) error {
	closer, err := r.connect(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closer()

	if err := r.requireRemote(); err != nil {
		return err
	}

	user, err := r.resolveUser(cmd.String("user"))
	if err != nil {
		return err
	}

	playlist, err := r.playlistEngine.TimeMachine(ctx, user.ID, int(cmd.Int("year")))
	if err != nil {
		return err
	}

	return r.writePlain("✓ Created %q\n", playlist.Name)
}

// PlaylistTimeCapsule builds a playlist of the account's own top tracks.
func (r *Runner) PlaylistTimeCapsule(ctx context.Context, cmd *cli.Command) error {
	closer, err := r.connect(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closer()

	if err := r.requireRemote(); err != nil {
		return err
	}

	user, err := r.resolveUser(cmd.String("user"))
	if err != nil {
		return err
	}

	playlist, err := r.playlistEngine.TimeCapsule(ctx, user.ID)
	if err != nil {
		return err
	}

	return r.writePlain("✓ Created %q\n", playlist.Name)
}

// PlaylistGenerate builds a playlist from a free-text description.
func (r *Runner) PlaylistGenerate(ctx context.Context, cmd *cli.Command) error {
	closer, err := r.connect(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closer()

	if err := r.requireRemote(); err != nil {
		return err
	}

	user, err := r.resolveUser(cmd.String("user"))
	if err != nil {
		return err
	}

	description := strings.Join(cmd.Args().Slice(), " ")
	playlist, err := r.playlistEngine.FromText(ctx, user.ID, description)
	if err != nil {
		return err
	}

	return r.writePlain("✓ Created %q\n", playlist.Name)
}

// PlaylistDiscover lists Spotify's featured playlists.
func (r *Runner) PlaylistDiscover(ctx context.Context, cmd *cli.Command) error {
	closer, err := r.connect(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closer()

	if err := r.requireRemote(); err != nil {
		return err
	}

	refs, err := r.spotify.FeaturedPlaylists(ctx, int(cmd.Int("limit")), 0, cmd.String("country"))
	if err != nil {
		return err
	}
	return r.writePlain("%s", formatter.RemotePlaylistList(refs))
}

// PlaylistShare prints the public Spotify URL of a playlist.
func (r *Runner) PlaylistShare(ctx context.Context, cmd *cli.Command) error {
	closer, err := r.connect(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closer()

	user, err := r.resolveUser(cmd.String("user"))
	if err != nil {
		return err
	}

	url, err := r.playlistEngine.ShareLink(user.ID, cmd.StringArg("name"))
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", url)
}

// PlaylistExport writes a playlist to CSV or Markdown.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	closer, err := r.connect(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closer()

	user, err := r.resolveUser(cmd.String("user"))
	if err != nil {
		return err
	}

	playlist, err := r.playlists.GetByName(user.ID, cmd.StringArg("name"))
	if err != nil {
		return err
	}
	tracks, err := r.tracks.ListByPlaylist(playlist.ID)
	if err != nil {
		return err
	}

	var data []byte
	switch format := cmd.String("format"); format {
	case "csv":
		if data, err = formatter.ExportToCSV(tracks); err != nil {
			return err
		}
	case "markdown", "md":
		data = formatter.ExportToMarkdown(playlist, tracks)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}

	outputPath := cmd.String("output")
	if outputPath == "" {
		return r.writePlain("%s", string(data))
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return r.writePlain("✓ Exported %q to %s\n", playlist.Name, outputPath)
}
