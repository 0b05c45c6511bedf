package main

import (
	"context"

	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/urfave/cli/v3"
)

// BrowseTrending prints the top tracks from Spotify's global chart.
func (r *Runner) BrowseTrending(ctx context.Context, cmd *cli.Command) error {
	closer, err := r.connect(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closer()

	if err := r.requireRemote(); err != nil {
		return err
	}

	refs, err := r.spotify.TrendingTracks(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	return r.writePlain("%s", formatter.RemoteTrackList("Trending", refs))
}

// BrowseGenres prints the genre seeds Spotify's recommendation engine accepts.
func (r *Runner) BrowseGenres(ctx context.Context, cmd *cli.Command) error {
	closer, err := r.connect(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closer()

	if err := r.requireRemote(); err != nil {
		return err
	}

	genres, err := r.spotify.Genres(ctx)
	if err != nil {
		return err
	}
	for _, genre := range genres {
		r.writePlain("%s\n", genre)
	}
	return nil
}

// BrowseTrack prints catalog metadata for a track by its Spotify ID.
func (r *Runner) BrowseTrack(ctx context.Context, cmd *cli.Command) error {
	closer, err := r.connect(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closer()

	if err := r.requireRemote(); err != nil {
		return err
	}

	info, err := r.spotify.TrackInfo(ctx, cmd.StringArg("spotify-id"))
	if err != nil {
		return err
	}
	return r.writePlain("%s", formatter.TrackInfo(info))
}

// BrowseAlbum prints catalog metadata for an album by its Spotify ID.
func (r *Runner) BrowseAlbum(ctx context.Context, cmd *cli.Command) error {
	closer, err := r.connect(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closer()

	if err := r.requireRemote(); err != nil {
		return err
	}

	info, err := r.spotify.AlbumInfo(ctx, cmd.StringArg("spotify-id"))
	if err != nil {
		return err
	}
	return r.writePlain("%s", formatter.AlbumInfo(info))
}
