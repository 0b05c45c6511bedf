package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// TrackRepository handles persistence for [models.Track].
//
// The (playlist_id, name) natural key is case-sensitive at the constraint
// level; lookup by name is case-insensitive via GetByName.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create inserts a new track with generated ID and sequence.
func (r *TrackRepository) Create(track *models.Track) error {
	sequence, err := NextSequence(r.db, "tracks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	track.ID = shared.GenerateID()
	track.Sequence = sequence
	now := time.Now()
	track.CreatedAt = now
	track.UpdatedAt = now

	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO tracks (id, sequence, playlist_id, name, artist, album, spotify_track_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		track.ID,
		track.Sequence,
		track.PlaylistID,
		track.Name,
		track.Artist,
		track.Album,
		nullable(track.SpotifyTrackID),
		track.CreatedAt,
		track.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", shared.ErrDuplicateTrack, track.Name)
		}
		return fmt.Errorf("failed to insert track: %w", err)
	}

	return nil
}

// Get retrieves a track by ID
func (r *TrackRepository) Get(id string) (*models.Track, error) {
	query := selectTrack + ` WHERE id = ?`
	return r.scanOne(r.db.QueryRow(query, id), id)
}

// GetByName retrieves a track in a playlist by name, matched case-insensitively.
func (r *TrackRepository) GetByName(playlistID, name string) (*models.Track, error) {
	query := selectTrack + ` WHERE playlist_id = ? AND name = ? COLLATE NOCASE`
	return r.scanOne(r.db.QueryRow(query, playlistID, name), name)
}

// Exists reports whether a track row with the exact (playlist_id, name) key is present.
func (r *TrackRepository) Exists(playlistID, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM tracks WHERE playlist_id = ? AND name = ?)",
		playlistID, name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check track existence: %w", err)
	}
	return exists, nil
}

// Delete removes a track by ID.
func (r *TrackRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM tracks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}

	return nil
}

// ListByPlaylist retrieves all tracks of a playlist in insertion order
func (r *TrackRepository) ListByPlaylist(playlistID string) ([]*models.Track, error) {
	query := selectTrack + ` WHERE playlist_id = ? ORDER BY sequence ASC`

	rows, err := r.db.Query(query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.Track
	for rows.Next() {
		track, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

const selectTrack = `
	SELECT id, sequence, playlist_id, name, artist, album, spotify_track_id, created_at, updated_at
	FROM tracks`

func (r *TrackRepository) scanOne(row *sql.Row, key string) (*models.Track, error) {
	var (
		track          models.Track
		spotifyTrackID sql.NullString
	)

	err := row.Scan(
		&track.ID,
		&track.Sequence,
		&track.PlaylistID,
		&track.Name,
		&track.Artist,
		&track.Album,
		&spotifyTrackID,
		&track.CreatedAt,
		&track.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	track.SpotifyTrackID = spotifyTrackID.String
	return &track, nil
}

func (r *TrackRepository) scanRow(rows *sql.Rows) (*models.Track, error) {
	var (
		track          models.Track
		spotifyTrackID sql.NullString
	)

	err := rows.Scan(
		&track.ID,
		&track.Sequence,
		&track.PlaylistID,
		&track.Name,
		&track.Artist,
		&track.Album,
		&spotifyTrackID,
		&track.CreatedAt,
		&track.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	track.SpotifyTrackID = spotifyTrackID.String
	return &track, nil
}
