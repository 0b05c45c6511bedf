package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// RatingRepository handles persistence for [models.Rating].
type RatingRepository struct {
	db *sql.DB
}

// NewRatingRepository creates a new RatingRepository with the given database connection
func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert inserts a rating or, when one exists for the (user, spotify track)
// key, updates the value in place. Exactly one row per key survives.
func (r *RatingRepository) Upsert(rating *models.Rating) error {
	if rating.UserID == "" || rating.SpotifyTrackID == "" {
		return fmt.Errorf("%w: user and spotify track id are required", shared.ErrValidation)
	}
	if rating.Rating < 1 || rating.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5, got %d", shared.ErrValidation, rating.Rating)
	}

	now := time.Now()

	query := `
		UPDATE ratings
		SET rating = ?, updated_at = ?
		WHERE user_id = ? AND spotify_track_id = ?
	`
	result, err := r.db.Exec(query, rating.Rating, now, rating.UserID, rating.SpotifyTrackID)
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows > 0 {
		rating.UpdatedAt = now
		return nil
	}

	sequence, err := NextSequence(r.db, "ratings")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	rating.ID = shared.GenerateID()
	rating.Sequence = sequence
	rating.CreatedAt = now
	rating.UpdatedAt = now

	if err := rating.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	insert := `
		INSERT INTO ratings (id, sequence, user_id, spotify_track_id, rating, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(insert,
		rating.ID,
		rating.Sequence,
		rating.UserID,
		rating.SpotifyTrackID,
		rating.Rating,
		rating.CreatedAt,
		rating.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rating: %w", err)
	}

	return nil
}

// Get retrieves a rating by its (user, spotify track) key
func (r *RatingRepository) Get(userID, spotifyTrackID string) (*models.Rating, error) {
	query := `
		SELECT id, sequence, user_id, spotify_track_id, rating, created_at, updated_at
		FROM ratings
		WHERE user_id = ? AND spotify_track_id = ?
	`

	var rating models.Rating
	err := r.db.QueryRow(query, userID, spotifyTrackID).Scan(
		&rating.ID,
		&rating.Sequence,
		&rating.UserID,
		&rating.SpotifyTrackID,
		&rating.Rating,
		&rating.CreatedAt,
		&rating.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no rating for track %s", shared.ErrRatingNotFound, spotifyTrackID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan rating: %w", err)
	}

	return &rating, nil
}

// CountByUser returns how many rating rows a user has.
func (r *RatingRepository) CountByUser(userID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM ratings WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ratings: %w", err)
	}
	return count, nil
}
