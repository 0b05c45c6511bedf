package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// FavoriteRepository handles persistence for [models.Favorite].
type FavoriteRepository struct {
	db *sql.DB
}

// NewFavoriteRepository creates a new FavoriteRepository with the given database connection
func NewFavoriteRepository(db *sql.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Create inserts a favorite. A second favorite of the same item by the same
// user returns [shared.ErrAlreadyFavorited].
func (r *FavoriteRepository) Create(favorite *models.Favorite) error {
	sequence, err := NextSequence(r.db, "favorites")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	favorite.ID = shared.GenerateID()
	favorite.Sequence = sequence
	favorite.CreatedAt = time.Now()

	if err := favorite.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO favorites (id, sequence, user_id, spotify_id, item_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		favorite.ID,
		favorite.Sequence,
		favorite.UserID,
		favorite.SpotifyID,
		string(favorite.ItemType),
		favorite.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", shared.ErrAlreadyFavorited, favorite.SpotifyID)
		}
		return fmt.Errorf("failed to insert favorite: %w", err)
	}

	return nil
}

// Get retrieves a favorite by its (user, spotify id) key
func (r *FavoriteRepository) Get(userID, spotifyID string) (*models.Favorite, error) {
	query := `
		SELECT id, sequence, user_id, spotify_id, item_type, created_at
		FROM favorites
		WHERE user_id = ? AND spotify_id = ?
	`

	var (
		favorite models.Favorite
		itemType string
	)

	err := r.db.QueryRow(query, userID, spotifyID).Scan(
		&favorite.ID,
		&favorite.Sequence,
		&favorite.UserID,
		&favorite.SpotifyID,
		&itemType,
		&favorite.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrFavoriteNotFound, spotifyID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan favorite: %w", err)
	}

	favorite.ItemType = models.FavoriteType(itemType)
	return &favorite, nil
}

// Delete removes a favorite by its (user, spotify id) key.
// A missing row returns [shared.ErrFavoriteNotFound].
func (r *FavoriteRepository) Delete(userID, spotifyID string) error {
	result, err := r.db.Exec("DELETE FROM favorites WHERE user_id = ? AND spotify_id = ?", userID, spotifyID)
	if err != nil {
		return fmt.Errorf("failed to delete favorite: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrFavoriteNotFound, spotifyID)
	}

	return nil
}

// ListByUser retrieves a user's favorites, newest first
func (r *FavoriteRepository) ListByUser(userID string) ([]*models.Favorite, error) {
	query := `
		SELECT id, sequence, user_id, spotify_id, item_type, created_at
		FROM favorites
		WHERE user_id = ?
		ORDER BY sequence DESC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	var favorites []*models.Favorite
	for rows.Next() {
		var (
			favorite models.Favorite
			itemType string
		)
		err := rows.Scan(
			&favorite.ID,
			&favorite.Sequence,
			&favorite.UserID,
			&favorite.SpotifyID,
			&itemType,
			&favorite.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		favorite.ItemType = models.FavoriteType(itemType)
		favorites = append(favorites, &favorite)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return favorites, nil
}
