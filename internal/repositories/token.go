package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// TokenRepository persists the single Spotify access/refresh token pair
// consumed by the credential manager.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new TokenRepository with the given database connection
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Save stores the token pair, replacing any previous one.
func (r *TokenRepository) Save(pair *models.TokenPair) error {
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return fmt.Errorf("%w: token pair is incomplete", shared.ErrValidation)
	}

	pair.UpdatedAt = time.Now()

	query := `
		INSERT INTO spotify_tokens (id, access_token, refresh_token, expires_at, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query, pair.AccessToken, pair.RefreshToken, pair.ExpiresAt, pair.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save token pair: %w", err)
	}

	return nil
}

// Load returns the stored token pair, or [shared.ErrAuthRequired] when none exists.
func (r *TokenRepository) Load() (*models.TokenPair, error) {
	query := `
		SELECT access_token, refresh_token, expires_at, updated_at
		FROM spotify_tokens
		WHERE id = 1
	`

	var pair models.TokenPair
	err := r.db.QueryRow(query).Scan(&pair.AccessToken, &pair.RefreshToken, &pair.ExpiresAt, &pair.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no stored token", shared.ErrAuthRequired)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token pair: %w", err)
	}

	return &pair, nil
}

// Clear removes the stored token pair.
func (r *TokenRepository) Clear() error {
	if _, err := r.db.Exec("DELETE FROM spotify_tokens WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to clear token pair: %w", err)
	}
	return nil
}
