package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// CommentRepository handles persistence for [models.Comment].
// Comments are append-only; there is no update or delete path.
type CommentRepository struct {
	db *sql.DB
}

// NewCommentRepository creates a new CommentRepository with the given database connection
func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create appends a comment with generated ID and sequence.
func (r *CommentRepository) Create(comment *models.Comment) error {
	sequence, err := NextSequence(r.db, "comments")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	comment.ID = shared.GenerateID()
	comment.Sequence = sequence
	comment.CreatedAt = time.Now()

	if err := comment.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO comments (id, sequence, user_id, track_id, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		comment.ID,
		comment.Sequence,
		comment.UserID,
		comment.TrackID,
		comment.Body,
		comment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}

	return nil
}

// ListByTrack retrieves a track's comments oldest-first
func (r *CommentRepository) ListByTrack(trackID string) ([]*models.Comment, error) {
	query := `
		SELECT id, sequence, user_id, track_id, body, created_at
		FROM comments
		WHERE track_id = ?
		ORDER BY sequence ASC
	`
	return r.list(query, trackID)
}

// ListByUser retrieves a user's comments newest-first
func (r *CommentRepository) ListByUser(userID string) ([]*models.Comment, error) {
	query := `
		SELECT id, sequence, user_id, track_id, body, created_at
		FROM comments
		WHERE user_id = ?
		ORDER BY sequence DESC
	`
	return r.list(query, userID)
}

func (r *CommentRepository) list(query string, arg any) ([]*models.Comment, error) {
	rows, err := r.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		var comment models.Comment
		err := rows.Scan(
			&comment.ID,
			&comment.Sequence,
			&comment.UserID,
			&comment.TrackID,
			&comment.Body,
			&comment.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, &comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return comments, nil
}
