package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// NextSequence returns the next ordering sequence for the given table.
func NextSequence(db *sql.DB, table string) (int, error) {
	var sequence int
	query := fmt.Sprintf("SELECT COALESCE(MAX(sequence), 0) + 1 FROM %s", table)
	if err := db.QueryRow(query).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to read sequence for %s: %w", table, err)
	}
	return sequence, nil
}

// isUniqueViolation reports whether err is a SQLite unique-constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
