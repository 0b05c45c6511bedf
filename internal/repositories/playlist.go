package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// PlaylistRepository handles persistence for [models.Playlist].
//
// The (user_id, name) natural key is enforced by a unique constraint;
// violations surface as [shared.ErrDuplicateName].
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new playlist with generated ID and sequence.
func (r *PlaylistRepository) Create(playlist *models.Playlist) error {
	sequence, err := NextSequence(r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	playlist.ID = shared.GenerateID()
	playlist.Sequence = sequence
	now := time.Now()
	playlist.CreatedAt = now
	playlist.UpdatedAt = now

	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO playlists (id, sequence, user_id, name, description, spotify_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		playlist.ID,
		playlist.Sequence,
		playlist.UserID,
		playlist.Name,
		playlist.Description,
		nullable(playlist.SpotifyID),
		playlist.CreatedAt,
		playlist.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", shared.ErrDuplicateName, playlist.Name)
		}
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	return nil
}

// Get retrieves a playlist by ID
func (r *PlaylistRepository) Get(id string) (*models.Playlist, error) {
	query := selectPlaylist + ` WHERE id = ?`
	return r.scanOne(r.db.QueryRow(query, id), id)
}

// GetByName retrieves a playlist by its (owner, name) natural key
func (r *PlaylistRepository) GetByName(userID, name string) (*models.Playlist, error) {
	query := selectPlaylist + ` WHERE user_id = ? AND name = ?`
	return r.scanOne(r.db.QueryRow(query, userID, name), name)
}

// GetOwned retrieves a playlist by ID, restricted to the given owner
func (r *PlaylistRepository) GetOwned(id, userID string) (*models.Playlist, error) {
	query := selectPlaylist + ` WHERE id = ? AND user_id = ?`
	return r.scanOne(r.db.QueryRow(query, id, userID), id)
}

// Update modifies a playlist's name, description and spotify linkage.
func (r *PlaylistRepository) Update(playlist *models.Playlist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	playlist.UpdatedAt = now

	query := `
		UPDATE playlists
		SET name = ?, description = ?, spotify_id = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		playlist.Name,
		playlist.Description,
		nullable(playlist.SpotifyID),
		now,
		playlist.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", shared.ErrDuplicateName, playlist.Name)
		}
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlist.ID)
	}

	return nil
}

// Delete removes a playlist; its tracks cascade at the database level.
func (r *PlaylistRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM playlists WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	return nil
}

// ListByUser retrieves all playlists owned by the given user in creation order
func (r *PlaylistRepository) ListByUser(userID string) ([]*models.Playlist, error) {
	query := selectPlaylist + ` WHERE user_id = ? ORDER BY sequence ASC`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.Playlist
	for rows.Next() {
		playlist, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

const selectPlaylist = `
	SELECT id, sequence, user_id, name, description, spotify_id, created_at, updated_at
	FROM playlists`

func (r *PlaylistRepository) scanOne(row *sql.Row, key string) (*models.Playlist, error) {
	var (
		playlist  models.Playlist
		spotifyID sql.NullString
	)

	err := row.Scan(
		&playlist.ID,
		&playlist.Sequence,
		&playlist.UserID,
		&playlist.Name,
		&playlist.Description,
		&spotifyID,
		&playlist.CreatedAt,
		&playlist.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	playlist.SpotifyID = spotifyID.String
	return &playlist, nil
}

func (r *PlaylistRepository) scanRow(rows *sql.Rows) (*models.Playlist, error) {
	var (
		playlist  models.Playlist
		spotifyID sql.NullString
	)

	err := rows.Scan(
		&playlist.ID,
		&playlist.Sequence,
		&playlist.UserID,
		&playlist.Name,
		&playlist.Description,
		&spotifyID,
		&playlist.CreatedAt,
		&playlist.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	playlist.SpotifyID = spotifyID.String
	return &playlist, nil
}

// nullable maps an empty string to NULL for nullable text columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
