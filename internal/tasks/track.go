package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

// AddTrackParams identifies a track to add by its natural key within an
// owner's playlist.
type AddTrackParams struct {
	OwnerID  string
	Playlist string
	Name     string
	Artist   string
	Album    string
}

// RemoveTrackResult reports what a removal actually did. SkippedRemote lists
// the reasons the remote removal step was skipped, if it was; the local row
// is deleted either way.
type RemoveTrackResult struct {
	Playlist      *models.Playlist
	Track         *models.Track
	SkippedRemote []string
}

// TrackEngine orchestrates track operations across the remote service and the
// local store. Tracks only gain local rows after a successful remote
// resolution and push.
type TrackEngine struct {
	remote    services.Service
	resolver  *Resolver
	tracks    *repositories.TrackRepository
	favorites *repositories.FavoriteRepository
	ratings   *repositories.RatingRepository
	comments  *repositories.CommentRepository
	logger    *log.Logger
}

// NewTrackEngine creates a TrackEngine.
func NewTrackEngine(
	remote services.Service,
	resolver *Resolver,
	tracks *repositories.TrackRepository,
	favorites *repositories.FavoriteRepository,
	ratings *repositories.RatingRepository,
	comments *repositories.CommentRepository,
	logger *log.Logger,
) *TrackEngine {
	return &TrackEngine{
		remote:    remote,
		resolver:  resolver,
		tracks:    tracks,
		favorites: favorites,
		ratings:   ratings,
		comments:  comments,
		logger:    shared.WithLogger(logger, "component", "tracks"),
	}
}

// AddTrack resolves (name, artist) against the remote catalog, pushes the
// resolved track onto the playlist's Spotify counterpart, and only then
// inserts the local row. Duplicates are rejected before any remote call.
func (e *TrackEngine) AddTrack(ctx context.Context, p AddTrackParams) (*models.Track, error) {
	playlist, err := e.resolver.Playlist(p.OwnerID, p.Playlist)
	if err != nil {
		return nil, err
	}
	if !playlist.Linked() {
		return nil, fmt.Errorf("%w: playlist %q has no spotify counterpart", shared.ErrNotLinked, playlist.Name)
	}

	exists, err := e.tracks.Exists(playlist.ID, p.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %q already in %q", shared.ErrDuplicateTrack, p.Name, playlist.Name)
	}

	ref, err := e.resolver.RemoteTrack(ctx, p.Name, p.Artist)
	if err != nil {
		return nil, err
	}

	if err := e.remote.AddItems(ctx, playlist.SpotifyID, []string{ref.URI}); err != nil {
		return nil, fmt.Errorf("remote add failed for %s on playlist %s: %w", ref.URI, playlist.SpotifyID, err)
	}

	track := &models.Track{
		PlaylistID:     playlist.ID,
		Name:           p.Name,
		Artist:         p.Artist,
		Album:          p.Album,
		SpotifyTrackID: ref.ID,
	}
	if track.Album == "" {
		track.Album = ref.Album
	}
	if err := e.tracks.Create(track); err != nil {
		e.logger.Error("drift: track added remotely but local insert failed",
			"playlist_spotify_id", playlist.SpotifyID, "track_uri", ref.URI, "error", err)
		return nil, fmt.Errorf("local insert failed after remote add (spotify playlist %s now ahead): %w", playlist.SpotifyID, err)
	}

	return track, nil
}

// RemoveTrack deletes a track locally, removing it from the playlist's
// Spotify counterpart first when both sides carry references.
//
// A missing remote reference downgrades the remote step to a recorded skip
// rather than an error. A stored reference that is present but malformed is
// corrupt state and aborts the whole operation untouched, as does a remote
// call that actually fails, so the two sides stay comparable.
func (e *TrackEngine) RemoveTrack(ctx context.Context, ownerID, playlistName, trackName string) (*RemoveTrackResult, error) {
	playlist, err := e.resolver.Playlist(ownerID, playlistName)
	if err != nil {
		return nil, err
	}

	track, err := e.resolver.Track(playlist.ID, trackName)
	if err != nil {
		return nil, err
	}

	result := &RemoveTrackResult{Playlist: playlist, Track: track}

	if !playlist.Linked() {
		result.SkippedRemote = append(result.SkippedRemote, "playlist has no spotify id")
	} else if err := CheckRemoteID(playlist.SpotifyID); err != nil {
		return nil, fmt.Errorf("stored playlist reference %q: %w", playlist.SpotifyID, err)
	}
	if !track.Linked() {
		result.SkippedRemote = append(result.SkippedRemote, "track has no spotify id")
	} else if err := CheckRemoteID(track.SpotifyTrackID); err != nil {
		return nil, fmt.Errorf("stored track reference %q: %w", track.SpotifyTrackID, err)
	}

	if len(result.SkippedRemote) == 0 {
		uri := track.URI()
		if err := e.remote.RemoveItems(ctx, playlist.SpotifyID, []string{uri}); err != nil {
			e.logger.Error("remote removal failed, local delete aborted",
				"playlist_spotify_id", playlist.SpotifyID,
				"track_spotify_id", track.SpotifyTrackID,
				"uri", uri, "error", err)
			return nil, fmt.Errorf("remote removal of %s from playlist %s failed: %w", uri, playlist.SpotifyID, err)
		}
	} else {
		e.logger.Warn("removing track locally only", "track", track.Name, "reasons", result.SkippedRemote)
	}

	if err := e.tracks.Delete(track.ID); err != nil {
		return nil, err
	}

	return result, nil
}

// Tracks returns a playlist's tracks in insertion order.
func (e *TrackEngine) Tracks(ownerID, playlistName string) ([]*models.Track, error) {
	playlist, err := e.resolver.Playlist(ownerID, playlistName)
	if err != nil {
		return nil, err
	}
	return e.tracks.ListByPlaylist(playlist.ID)
}

// Favorite records an item under a caller-supplied Spotify reference. Albums
// are favorited this way since the local store never holds album rows; tracks
// normally go through FavoriteTrack instead. The reference is validated for
// shape only; no remote call confirms it exists.
func (e *TrackEngine) Favorite(userID, spotifyID string, itemType models.FavoriteType) (*models.Favorite, error) {
	if err := CheckRemoteID(spotifyID); err != nil {
		return nil, err
	}

	favorite := &models.Favorite{
		UserID:    userID,
		SpotifyID: spotifyID,
		ItemType:  itemType,
	}
	if err := e.favorites.Create(favorite); err != nil {
		return nil, err
	}
	return favorite, nil
}

// FavoriteTrack favorites a track located by playlist and track name in the
// user's own library, deriving the Spotify reference from the stored row. A
// track that never resolved remotely has no reference to favorite.
func (e *TrackEngine) FavoriteTrack(userID, playlistName, trackName string) (*models.Favorite, error) {
	playlist, err := e.resolver.Playlist(userID, playlistName)
	if err != nil {
		return nil, err
	}
	track, err := e.resolver.Track(playlist.ID, trackName)
	if err != nil {
		return nil, err
	}
	if !track.Linked() {
		return nil, fmt.Errorf("%w: %q cannot be favorited without a spotify reference", shared.ErrMissingRemoteRef, track.Name)
	}
	return e.Favorite(userID, track.SpotifyTrackID, models.FavoriteTrack)
}

// Unfavorite removes a favorite; removing one that does not exist is an error.
func (e *TrackEngine) Unfavorite(userID, spotifyID string) error {
	return e.favorites.Delete(userID, spotifyID)
}

// Favorites returns the user's favorites, newest first.
func (e *TrackEngine) Favorites(userID string) ([]*models.Favorite, error) {
	return e.favorites.ListByUser(userID)
}

// Rate upserts the user's 1-5 rating for a track identified by its position
// in one of their playlists. Unlinked tracks cannot be rated since the rating
// is keyed on the Spotify reference.
func (e *TrackEngine) Rate(userID, playlistName, trackName string, value int) (*models.Rating, error) {
	playlist, err := e.resolver.Playlist(userID, playlistName)
	if err != nil {
		return nil, err
	}
	track, err := e.resolver.Track(playlist.ID, trackName)
	if err != nil {
		return nil, err
	}
	if !track.Linked() {
		return nil, fmt.Errorf("%w: %q cannot be rated without a spotify reference", shared.ErrMissingRemoteRef, track.Name)
	}

	rating := &models.Rating{
		UserID:         userID,
		SpotifyTrackID: track.SpotifyTrackID,
		Rating:         value,
	}
	if err := e.ratings.Upsert(rating); err != nil {
		return nil, err
	}
	return rating, nil
}

// CommentTrack appends a comment to a track in one of the user's playlists.
func (e *TrackEngine) CommentTrack(userID, playlistName, trackName, body string) (*models.Comment, error) {
	playlist, err := e.resolver.Playlist(userID, playlistName)
	if err != nil {
		return nil, err
	}
	track, err := e.resolver.Track(playlist.ID, trackName)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		UserID:  userID,
		TrackID: track.ID,
		Body:    body,
	}
	if err := e.comments.Create(comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// TrackComments returns a track's comments, oldest first.
func (e *TrackEngine) TrackComments(userID, playlistName, trackName string) ([]*models.Comment, error) {
	playlist, err := e.resolver.Playlist(userID, playlistName)
	if err != nil {
		return nil, err
	}
	track, err := e.resolver.Track(playlist.ID, trackName)
	if err != nil {
		return nil, err
	}
	return e.comments.ListByTrack(track.ID)
}

// UserComments returns everything the user has commented, newest first.
func (e *TrackEngine) UserComments(userID string) ([]*models.Comment, error) {
	return e.comments.ListByUser(userID)
}
