// package services defines interface Service for the remote music platform
// and its Spotify implementation.
package services

import (
	"context"

	"github.com/desertthunder/mixtape/internal/models"
)

// Spotify time ranges accepted by the top-tracks endpoint.
const (
	RangeShortTerm  = "short_term"
	RangeMediumTerm = "medium_term"
	RangeLongTerm   = "long_term"
)

// MaxItemsPerCall is the remote API's batch-size limit for playlist item mutations.
const MaxItemsPerCall = 100

// TokenSource supplies a valid access token before every remote call.
// Implementations fail with [shared.ErrAuthRequired] when no usable
// credential exists.
type TokenSource interface {
	Access(ctx context.Context) (string, error)
}

// RemoteUser is the remote service's view of the authenticated account.
type RemoteUser struct {
	ID          string
	DisplayName string
	Email       string
}

// Service is the remote music platform consumed by the sync engines.
// Every method performs a blocking network call bounded by the client's
// timeout, retry and rate-limit policy.
type Service interface {
	// CurrentUser returns the remote account owning created playlists.
	CurrentUser(ctx context.Context) (*RemoteUser, error)

	// Search issues a structured search query and returns up to limit track matches.
	Search(ctx context.Context, query string, limit int) ([]models.RemoteTrackRef, error)

	// CreatePlaylist creates a remote playlist owned by ownerID.
	CreatePlaylist(ctx context.Context, ownerID, name, description string, public bool) (*models.RemotePlaylistRef, error)

	// ChangeDetails pushes a name/description update to an existing remote playlist.
	ChangeDetails(ctx context.Context, playlistID, name, description string) error

	// AddItems appends track URIs to a remote playlist. At most
	// [MaxItemsPerCall] URIs per call; callers batch larger sets.
	AddItems(ctx context.Context, playlistID string, uris []string) error

	// RemoveItems removes all occurrences of the given track URIs.
	RemoveItems(ctx context.Context, playlistID string, uris []string) error

	// ReplaceItems replaces the remote playlist's contents with the given URIs.
	ReplaceItems(ctx context.Context, playlistID string, uris []string) error

	// PlaylistItems returns every track URI in the remote playlist,
	// following pagination sequentially until exhausted.
	PlaylistItems(ctx context.Context, playlistID string) ([]string, error)

	// TopTracks returns the user's top tracks for a listening time range.
	TopTracks(ctx context.Context, timeRange string, limit int) ([]models.RemoteTrackRef, error)

	// FeaturedPlaylists returns the platform's featured playlists for a country.
	FeaturedPlaylists(ctx context.Context, limit, offset int, country string) ([]models.RemotePlaylistRef, error)

	// TrendingTracks returns the top entries of the platform's global chart.
	TrendingTracks(ctx context.Context, limit int) ([]models.RemoteTrackRef, error)

	// Genres returns the genre seeds accepted by the recommendation engine.
	Genres(ctx context.Context) ([]string, error)

	// TrackInfo looks up catalog metadata for a single track by ID.
	TrackInfo(ctx context.Context, trackID string) (*models.RemoteTrackInfo, error)

	// AlbumInfo looks up catalog metadata for an album by ID.
	AlbumInfo(ctx context.Context, albumID string) (*models.RemoteAlbumInfo, error)

	// Name returns the service name (e.g. "Spotify")
	Name() string
}
