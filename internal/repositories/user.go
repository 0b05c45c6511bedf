package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// UserRepository handles persistence for [models.User].
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user with generated ID and sequence.
// A username collision returns [shared.ErrDuplicateUser].
func (r *UserRepository) Create(user *models.User) error {
	sequence, err := NextSequence(r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	user.ID = shared.GenerateID()
	user.Sequence = sequence
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO users (id, sequence, username, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, user.ID, user.Sequence, user.Username, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", shared.ErrDuplicateUser, user.Username)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// Get retrieves a user by ID
func (r *UserRepository) Get(id string) (*models.User, error) {
	query := `
		SELECT id, sequence, username, password_hash, created_at, updated_at
		FROM users
		WHERE id = ?
	`
	return r.scanOne(r.db.QueryRow(query, id), id)
}

// GetByUsername retrieves a user by its unique username
func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	query := `
		SELECT id, sequence, username, password_hash, created_at, updated_at
		FROM users
		WHERE username = ?
	`
	return r.scanOne(r.db.QueryRow(query, username), username)
}

// Delete removes a user. Owned playlists and their tracks go with it via
// the schema's ON DELETE CASCADE.
func (r *UserRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrUserNotFound, id)
	}

	return nil
}

func (r *UserRepository) scanOne(row *sql.Row, key string) (*models.User, error) {
	var user models.User

	err := row.Scan(&user.ID, &user.Sequence, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return &user, nil
}
