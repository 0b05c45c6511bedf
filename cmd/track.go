package main

import (
	"context"
	"strings"

	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/urfave/cli/v3"
)

// TrackList prints a playlist's tracks.
func (r *Runner) TrackList(ctx context.Context, cmd *cli.Command) error {
	closer, err := r.connect(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closer()

	user, err := r.resolveUser(cmd.String("user"))
	if err != nil {
		return err
	}

	playlist, err := r.playlists.GetByName(user.ID, cmd.StringArg("playlist"))
	if err != nil {
		return err
	}
	tracks, err := r.tracks.ListByPlaylist(playlist.ID)
	if err != nil {
		return err
	}
	return r.writePlain("%s", formatter.TrackList(playlist, tracks))
}

// TrackAdd resolves a track on Spotify and adds it to both sides.
func (r *Runner) TrackAdd(ctx context.Context, cmd *cli.Command) error {
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

	track, err := r.trackEngine.AddTrack(ctx, tasks.AddTrackParams{
		OwnerID:  user.ID,
		Playlist: cmd.StringArg("playlist"),
		Name:     cmd.String("name"),
		Artist:   cmd.String("artist"),
		Album:    cmd.String("album"),
	})
	if err != nil {
		return err
	}

	return r.writePlain("✓ Added %s - %s (%s)\n", track.Artist, track.Name, track.SpotifyTrackID)
}

// TrackRemove removes a track locally and, when possible, remotely.
func (r *Runner) TrackRemove(ctx context.Context, cmd *cli.Command) error {
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

	result, err := r.trackEngine.RemoveTrack(ctx, user.ID, cmd.StringArg("playlist"), cmd.StringArg("track"))
	if err != nil {
		return err
	}

	if len(result.SkippedRemote) > 0 {
		r.writePlain("✓ Removed %q locally only:\n", result.Track.Name)
		for _, reason := range result.SkippedRemote {
			r.writePlain("  - %s\n", reason)
		}
		return nil
	}
	return r.writePlain("✓ Removed %q from %q\n", result.Track.Name, result.Playlist.Name)
}

// TrackRate records a 1-5 rating for a track.
func (r *Runner) TrackRate(ctx context.Context, cmd *cli.Command) error {
	closer, err := r.connect(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closer()

	user, err := r.resolveUser(cmd.String("user"))
	if err != nil {
		return err
	}

	rating, err := r.trackEngine.Rate(user.ID, cmd.StringArg("playlist"), cmd.StringArg("track"), int(cmd.Int("rating")))
	if err != nil {
		return err
	}
	return r.writePlain("✓ Rated %s: %d/5\n", cmd.StringArg("track"), rating.Rating)
}

// TrackComment appends a comment to a track.
func (r *Runner) TrackComment(ctx context.Context, cmd *cli.Command) error {
	closer, err := r.connect(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closer()

	user, err := r.resolveUser(cmd.String("user"))
	if err != nil {
		return err
	}

	body := strings.Join(cmd.Args().Slice(), " ")
	if _, err := r.trackEngine.CommentTrack(user.ID, cmd.StringArg("playlist"), cmd.StringArg("track"), body); err != nil {
		return err
	}
	return r.writePlain("✓ Comment added\n")
}

// FavoriteTrack favorites a track by playlist and track name, using the
// Spotify reference already stored on the row.
func (r *Runner) FavoriteTrack(ctx context.Context, cmd *cli.Command) error {
	closer, err := r.connect(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closer()

	user, err := r.resolveUser(cmd.String("user"))
	if err != nil {
		return err
	}

	favorite, err := r.trackEngine.FavoriteTrack(user.ID, cmd.StringArg("playlist"), cmd.StringArg("track"))
	if err != nil {
		return err
	}
	return r.writePlain("✓ Favorited track %s\n", favorite.SpotifyID)
}

// FavoriteAlbum favorites an album by its Spotify ID.
func (r *Runner) FavoriteAlbum(ctx context.Context, cmd *cli.Command) error {
	closer, err := r.connect(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closer()

	user, err := r.resolveUser(cmd.String("user"))
	if err != nil {
		return err
	}

	favorite, err := r.trackEngine.Favorite(user.ID, cmd.StringArg("spotify-id"), models.FavoriteAlbum)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Favorited album %s\n", favorite.SpotifyID)
}

// FavoriteRemove removes a favorite.
func (r *Runner) FavoriteRemove(ctx context.Context, cmd *cli.Command) error {
	closer, err := r.connect(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closer()

	user, err := r.resolveUser(cmd.String("user"))
	if err != nil {
		return err
	}

	if err := r.trackEngine.Unfavorite(user.ID, cmd.StringArg("spotify-id")); err != nil {
		return err
	}
	return r.writePlain("✓ Removed favorite\n")
}

// FavoriteList prints the user's favorites, newest first.
func (r *Runner) FavoriteList(ctx context.Context, cmd *cli.Command) error {
	closer, err := r.connect(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closer()

	user, err := r.resolveUser(cmd.String("user"))
	if err != nil {
		return err
	}

	favorites, err := r.trackEngine.Favorites(user.ID)
	if err != nil {
		return err
	}

	if len(favorites) == 0 {
		return r.writePlain("No favorites yet.\n")
	}
	for _, f := range favorites {
		r.writePlain("%s  %s\n", f.ItemType, f.SpotifyID)
	}
	return nil
}
