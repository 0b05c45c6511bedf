package models

import (
	"fmt"
	"strings"
	"time"
)

// SpotifyIDLength is the fixed length of Spotify's base62 object identifiers.
const SpotifyIDLength = 22

// Entity is the base interface for all persistent models.
type Entity interface {
	Validate() error
}

// FavoriteType enumerates the item kinds that can be favorited.
type FavoriteType string

const (
	FavoriteTrack FavoriteType = "track"
	FavoriteAlbum FavoriteType = "album"
)

// User represents an account that owns playlists. Deleting a user cascades
// to its playlists at the database level.
type User struct {
	ID           string
	Sequence     int
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return fmt.Errorf("username is required")
	}
	if u.PasswordHash == "" {
		return fmt.Errorf("password hash is required")
	}
	return nil
}

// Playlist belongs to exactly one user; (UserID, Name) is unique. SpotifyID
// is empty until the playlist has been created remotely and, once set, is
// never reassigned.
type Playlist struct {
	ID          string
	Sequence    int
	UserID      string
	Name        string
	Description string
	SpotifyID   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p *Playlist) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("playlist name is required")
	}
	return nil
}

// Linked reports whether the playlist has a Spotify counterpart.
func (p *Playlist) Linked() bool {
	return p.SpotifyID != ""
}

// Track belongs to exactly one playlist; (PlaylistID, Name) is unique.
// SpotifyTrackID is set at creation from a successful remote resolution and
// never transitions back to empty.
type Track struct {
	ID             string
	Sequence       int
	PlaylistID     string
	Name           string
	Artist         string
	Album          string
	SpotifyTrackID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (t *Track) Validate() error {
	if t.PlaylistID == "" {
		return fmt.Errorf("playlist id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("track name is required")
	}
	if strings.TrimSpace(t.Artist) == "" {
		return fmt.Errorf("track artist is required")
	}
	return nil
}

// Linked reports whether the track carries a Spotify reference.
func (t *Track) Linked() bool {
	return t.SpotifyTrackID != ""
}

// URI returns the track's Spotify URI, empty when unlinked.
func (t *Track) URI() string {
	if t.SpotifyTrackID == "" {
		return ""
	}
	return "spotify:track:" + t.SpotifyTrackID
}

// Favorite marks a Spotify track or album as favorited by a user.
// (UserID, SpotifyID) is unique.
type Favorite struct {
	ID        string
	Sequence  int
	UserID    string
	SpotifyID string
	ItemType  FavoriteType
	CreatedAt time.Time
}

func (f *Favorite) Validate() error {
	if f.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if f.SpotifyID == "" {
		return fmt.Errorf("spotify id is required")
	}
	if f.ItemType != FavoriteTrack && f.ItemType != FavoriteAlbum {
		return fmt.Errorf("invalid favorite type: %s", f.ItemType)
	}
	return nil
}

// Rating is a single 1-5 rating keyed by (UserID, SpotifyTrackID) with
// upsert semantics.
type Rating struct {
	ID             string
	Sequence       int
	UserID         string
	SpotifyTrackID string
	Rating         int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (r *Rating) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if r.SpotifyTrackID == "" {
		return fmt.Errorf("spotify track id is required")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", r.Rating)
	}
	return nil
}

// Comment is an append-only note a user leaves on a track.
type Comment struct {
	ID        string
	Sequence  int
	UserID    string
	TrackID   string
	Body      string
	CreatedAt time.Time
}

func (c *Comment) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if c.TrackID == "" {
		return fmt.Errorf("track id is required")
	}
	if strings.TrimSpace(c.Body) == "" {
		return fmt.Errorf("comment body is required")
	}
	return nil
}

// RemoteTrackRef is a resolved Spotify track reference. Resolution is a
// best-effort heuristic; callers must treat the reference as a decision,
// not a certainty.
type RemoteTrackRef struct {
	ID     string
	URI    string
	Name   string
	Artist string
	Album  string
}

// RemotePlaylistRef describes a playlist created on Spotify.
type RemotePlaylistRef struct {
	ID   string
	Name string
	URL  string
}

// RemoteTrackInfo is catalog metadata for a single track looked up by ID.
type RemoteTrackInfo struct {
	ID          string
	Name        string
	Artist      string
	Album       string
	ReleaseDate string
}

// RemoteAlbumTrack is one entry in an album's track listing.
type RemoteAlbumTrack struct {
	Name   string
	Number int
}

// RemoteAlbumInfo is catalog metadata for an album, including its track
// listing and cover art URL.
type RemoteAlbumInfo struct {
	ID          string
	Name        string
	Artist      string
	ReleaseDate string
	CoverArt    string
	Tracks      []RemoteAlbumTrack
}

// TokenPair is the persisted Spotify access/refresh credential pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UpdatedAt    time.Time
}

// Expired reports whether the access token is expired or expires within the
// given safety margin.
func (t *TokenPair) Expired(margin time.Duration) bool {
	return time.Now().Add(margin).After(t.ExpiresAt)
}
