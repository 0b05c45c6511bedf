package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

// Resolver maps natural keys (owner + playlist name, playlist + track name)
// to stored entities and resolves track metadata to remote references via
// the remote service's search.
type Resolver struct {
	playlists *repositories.PlaylistRepository
	tracks    *repositories.TrackRepository
	remote    services.Service
}

// NewResolver creates a Resolver over the local repositories and the remote service.
func NewResolver(playlists *repositories.PlaylistRepository, tracks *repositories.TrackRepository, remote services.Service) *Resolver {
	return &Resolver{playlists: playlists, tracks: tracks, remote: remote}
}

// Playlist resolves a playlist by its (owner, name) natural key.
// The lookup is a direct unique match, no fuzzy matching.
func (r *Resolver) Playlist(ownerID, name string) (*models.Playlist, error) {
	return r.playlists.GetByName(ownerID, name)
}

// Track resolves a track inside a playlist by name, case-insensitively.
func (r *Resolver) Track(playlistID, name string) (*models.Track, error) {
	return r.tracks.GetByName(playlistID, name)
}

// RemoteTrack searches the remote service for a track by name and artist and
// returns the first result. The match is a best-effort heuristic: callers
// must treat the reference as a decision, not a certainty.
func (r *Resolver) RemoteTrack(ctx context.Context, name, artist string) (*models.RemoteTrackRef, error) {
	query := fmt.Sprintf("track:%s artist:%s", name, artist)

	refs, err := r.remote.Search(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: %q by %q", shared.ErrNoMatch, name, artist)
	}

	return &refs[0], nil
}

// CheckRemoteID validates the textual form of a stored remote track ID.
// A malformed ID is corrupt state, not something to retry.
func CheckRemoteID(id string) error {
	if len(id) != models.SpotifyIDLength {
		return fmt.Errorf("%w: spotify track id %q is not %d characters", shared.ErrInvalidReference, id, models.SpotifyIDLength)
	}
	return nil
}
