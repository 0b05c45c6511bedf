package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

const (
	// minYear bounds the time machine's searchable range.
	minYear = 1900

	timeMachineLimit = 50
	fromTextLimit    = 20
	topTracksLimit   = 20
)

// CreatePlaylistParams are the caller-supplied fields for Create.
type CreatePlaylistParams struct {
	OwnerID     string
	Name        string
	Description string
	Public      bool
}

// UpdatePlaylistParams carries the optional fields of Update; nil means unchanged.
type UpdatePlaylistParams struct {
	Name        *string
	Description *string
}

// PlaylistEngine orchestrates playlist operations across the remote service
// and the local store. Remote mutation always precedes the local commit.
type PlaylistEngine struct {
	remote    services.Service
	playlists *repositories.PlaylistRepository
	logger    *log.Logger
}

// NewPlaylistEngine creates a PlaylistEngine.
func NewPlaylistEngine(remote services.Service, playlists *repositories.PlaylistRepository, logger *log.Logger) *PlaylistEngine {
	return &PlaylistEngine{remote: remote, playlists: playlists, logger: shared.WithLogger(logger, "component", "playlists")}
}

// Create creates a playlist remotely and mirrors it locally.
//
// A local (owner, name) collision fails before any remote call. If the local
// insert fails after the remote create succeeded, the remote playlist is
// orphaned; this is logged and surfaced, not auto-reverted.
func (e *PlaylistEngine) Create(ctx context.Context, p CreatePlaylistParams) (*models.Playlist, error) {
	if p.OwnerID == "" || p.Name == "" {
		return nil, fmt.Errorf("%w: owner and playlist name are required", shared.ErrValidation)
	}

	if _, err := e.playlists.GetByName(p.OwnerID, p.Name); err == nil {
		return nil, fmt.Errorf("%w: %q", shared.ErrDuplicateName, p.Name)
	} else if !errors.Is(err, shared.ErrPlaylistNotFound) {
		return nil, err
	}

	remoteUser, err := e.remote.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	created, err := e.remote.CreatePlaylist(ctx, remoteUser.ID, p.Name, p.Description, p.Public)
	if err != nil {
		return nil, err
	}

	playlist := &models.Playlist{
		UserID:      p.OwnerID,
		Name:        p.Name,
		Description: p.Description,
		SpotifyID:   created.ID,
	}
	if err := e.playlists.Create(playlist); err != nil {
		e.logger.Error("remote playlist orphaned: local insert failed after remote create",
			"spotify_id", created.ID, "owner", p.OwnerID, "name", p.Name, "error", err)
		return nil, fmt.Errorf("local insert failed after remote create (orphaned spotify playlist %s): %w", created.ID, err)
	}

	return playlist, nil
}

// Update applies name/description changes, pushing them to the remote
// counterpart first when one exists. Remote push failure aborts the whole
// update; no partial fields are persisted.
func (e *PlaylistEngine) Update(ctx context.Context, playlistID, ownerID string, p UpdatePlaylistParams) (*models.Playlist, error) {
	playlist, err := e.playlists.GetOwned(playlistID, ownerID)
	if err != nil {
		return nil, err
	}

	if p.Name != nil {
		playlist.Name = *p.Name
	}
	if p.Description != nil {
		playlist.Description = *p.Description
	}

	if playlist.Linked() {
		if err := e.remote.ChangeDetails(ctx, playlist.SpotifyID, playlist.Name, playlist.Description); err != nil {
			return nil, fmt.Errorf("remote update failed, local change aborted: %w", err)
		}
	}

	if err := e.playlists.Update(playlist); err != nil {
		if playlist.Linked() {
			e.logger.Error("drift: remote playlist updated but local commit failed",
				"spotify_id", playlist.SpotifyID, "playlist", playlist.ID, "error", err)
		}
		return nil, err
	}

	return playlist, nil
}

// Merge combines two linked playlists into a new one holding the union of
// their remote track URIs. Source playlists are left untouched.
func (e *PlaylistEngine) Merge(ctx context.Context, playlistAID, playlistBID, ownerID string) (*models.Playlist, error) {
	a, err := e.playlists.GetOwned(playlistAID, ownerID)
	if err != nil {
		return nil, err
	}
	b, err := e.playlists.GetOwned(playlistBID, ownerID)
	if err != nil {
		return nil, err
	}

	if !a.Linked() || !b.Linked() {
		return nil, fmt.Errorf("%w: both playlists must be linked to merge", shared.ErrNotLinked)
	}

	urisA, err := e.remote.PlaylistItems(ctx, a.SpotifyID)
	if err != nil {
		return nil, err
	}
	urisB, err := e.remote.PlaylistItems(ctx, b.SpotifyID)
	if err != nil {
		return nil, err
	}

	combined := uniqueStrings(append(urisA, urisB...))

	name := fmt.Sprintf("Merge: %s + %s", a.Name, b.Name)
	description := fmt.Sprintf("Combined playlist from %s and %s", a.Name, b.Name)

	return e.createFilled(ctx, ownerID, name, description, combined)
}

// TimeMachine builds (or refreshes) the "<year> Time Machine" playlist from
// the remote service's top search results for that year.
//
// Idempotent by name: a second invocation for the same year replaces the
// existing playlist's tracks instead of creating a duplicate.
func (e *PlaylistEngine) TimeMachine(ctx context.Context, ownerID string, year int) (*models.Playlist, error) {
	if year < minYear || year > time.Now().Year() {
		return nil, fmt.Errorf("%w: year %d out of range [%d, %d]", shared.ErrValidation, year, minYear, time.Now().Year())
	}

	refs, err := e.remote.Search(ctx, fmt.Sprintf("year:%d", year), timeMachineLimit)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: no tracks found for year %d", shared.ErrNoMatch, year)
	}

	uris := uniqueStrings(refURIs(refs))
	name := fmt.Sprintf("%d Time Machine", year)
	description := fmt.Sprintf("Top tracks from %d", year)

	existing, err := e.playlists.GetByName(ownerID, name)
	switch {
	case err == nil:
		return e.refill(ctx, existing, uris)
	case errors.Is(err, shared.ErrPlaylistNotFound):
		return e.createFilled(ctx, ownerID, name, description, uris)
	default:
		return nil, err
	}
}

// TimeCapsule builds (or refreshes) a "Time Capsule <year>" playlist from the
// user's top tracks across all listening time ranges.
func (e *PlaylistEngine) TimeCapsule(ctx context.Context, ownerID string) (*models.Playlist, error) {
	ranges := []string{services.RangeShortTerm, services.RangeMediumTerm, services.RangeLongTerm}

	var uris []string
	for _, timeRange := range ranges {
		refs, err := e.remote.TopTracks(ctx, timeRange, topTracksLimit)
		if err != nil {
			return nil, err
		}
		uris = append(uris, refURIs(refs)...)
	}

	uris = uniqueStrings(uris)
	if len(uris) == 0 {
		return nil, fmt.Errorf("%w: no top tracks available", shared.ErrNoMatch)
	}

	name := fmt.Sprintf("Time Capsule %d", time.Now().Year())

	existing, err := e.playlists.GetByName(ownerID, name)
	switch {
	case err == nil:
		return e.refill(ctx, existing, uris)
	case errors.Is(err, shared.ErrPlaylistNotFound):
		return e.createFilled(ctx, ownerID, name, "Your top tracks, sealed for posterity", uris)
	default:
		return nil, err
	}
}

// FromText treats free text as a search query and builds a playlist from the
// results, named after a truncated form of the description.
func (e *PlaylistEngine) FromText(ctx context.Context, ownerID, description string) (*models.Playlist, error) {
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", shared.ErrValidation)
	}

	refs, err := e.remote.Search(ctx, description, fromTextLimit)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: no tracks matching description", shared.ErrNoMatch)
	}

	name := "Generated: " + truncate(description, 50)
	detail := "Created from description: " + description

	if _, err := e.playlists.GetByName(ownerID, name); err == nil {
		return nil, fmt.Errorf("%w: %q", shared.ErrDuplicateName, name)
	} else if !errors.Is(err, shared.ErrPlaylistNotFound) {
		return nil, err
	}

	return e.createFilled(ctx, ownerID, name, detail, uniqueStrings(refURIs(refs)))
}

// ShareLink returns the public Spotify URL of a linked playlist.
func (e *PlaylistEngine) ShareLink(ownerID, name string) (string, error) {
	playlist, err := e.playlists.GetByName(ownerID, name)
	if err != nil {
		return "", err
	}
	if !playlist.Linked() {
		return "", fmt.Errorf("%w: %q has no spotify counterpart", shared.ErrNotLinked, name)
	}
	return "https://open.spotify.com/playlist/" + playlist.SpotifyID, nil
}

// List returns the owner's playlists.
func (e *PlaylistEngine) List(ownerID string) ([]*models.Playlist, error) {
	return e.playlists.ListByUser(ownerID)
}

// createFilled creates a remote playlist, adds the URIs in sequential batches
// of at most the remote per-call limit, and mirrors the playlist locally.
func (e *PlaylistEngine) createFilled(ctx context.Context, ownerID, name, description string, uris []string) (*models.Playlist, error) {
	remoteUser, err := e.remote.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	created, err := e.remote.CreatePlaylist(ctx, remoteUser.ID, name, description, false)
	if err != nil {
		return nil, err
	}

	for _, batch := range batchURIs(uris) {
		if err := e.remote.AddItems(ctx, created.ID, batch); err != nil {
			return nil, fmt.Errorf("failed to fill playlist %s (created remotely, not mirrored locally): %w", created.ID, err)
		}
	}

	playlist := &models.Playlist{
		UserID:      ownerID,
		Name:        name,
		Description: description,
		SpotifyID:   created.ID,
	}
	if err := e.playlists.Create(playlist); err != nil {
		e.logger.Error("remote playlist orphaned: local insert failed after remote create",
			"spotify_id", created.ID, "owner", ownerID, "name", name, "error", err)
		return nil, fmt.Errorf("local insert failed after remote create (orphaned spotify playlist %s): %w", created.ID, err)
	}

	return playlist, nil
}

// refill replaces a linked playlist's remote track list with the given URIs.
func (e *PlaylistEngine) refill(ctx context.Context, playlist *models.Playlist, uris []string) (*models.Playlist, error) {
	if !playlist.Linked() {
		return nil, fmt.Errorf("%w: %q exists locally without a spotify counterpart", shared.ErrNotLinked, playlist.Name)
	}

	if err := e.remote.ReplaceItems(ctx, playlist.SpotifyID, nil); err != nil {
		return nil, err
	}
	for _, batch := range batchURIs(uris) {
		if err := e.remote.AddItems(ctx, playlist.SpotifyID, batch); err != nil {
			return nil, fmt.Errorf("failed to refill playlist %s after clearing it: %w", playlist.SpotifyID, err)
		}
	}

	return playlist, nil
}

func refURIs(refs []models.RemoteTrackRef) []string {
	uris := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.URI != "" {
			uris = append(uris, ref.URI)
		}
	}
	return uris
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
