package shared

import (
	"errors"
	"fmt"
)

var (
	// Credential errors
	ErrAuthRequired  = fmt.Errorf("spotify authorization required")
	ErrRefreshFailed = fmt.Errorf("token refresh failed")

	// Natural-key lookup errors
	ErrUserNotFound     = fmt.Errorf("user not found")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrTrackNotFound    = fmt.Errorf("track not found")
	ErrFavoriteNotFound = fmt.Errorf("favorite not found")
	ErrRatingNotFound   = fmt.Errorf("rating not found")

	// Remote resolution errors
	ErrNoMatch          = fmt.Errorf("no match on spotify")
	ErrInvalidReference = fmt.Errorf("malformed spotify reference")
	ErrMissingRemoteRef = fmt.Errorf("track missing spotify reference")
	ErrNotLinked        = fmt.Errorf("not linked to spotify")

	// Uniqueness violations
	ErrDuplicateName    = fmt.Errorf("playlist name already exists")
	ErrDuplicateTrack   = fmt.Errorf("track already in playlist")
	ErrDuplicateUser    = fmt.Errorf("username already exists")
	ErrAlreadyFavorited = fmt.Errorf("already favorited")

	// Upstream and input errors
	ErrUpstream   = fmt.Errorf("spotify API request failed")
	ErrValidation = fmt.Errorf("invalid input")
)

// Class is the transport-agnostic outcome classification of an operation.
// The HTTP layer maps classes to status codes; the core only reports the class.
type Class int

const (
	ClassOK Class = iota
	ClassNotFound
	ClassConflict
	ClassValidation
	ClassAuthRequired
	ClassUpstream
	ClassInternal
)

// Classify maps an error to its outcome class via sentinel matching.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassOK
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrPlaylistNotFound),
		errors.Is(err, ErrTrackNotFound),
		errors.Is(err, ErrFavoriteNotFound),
		errors.Is(err, ErrRatingNotFound),
		errors.Is(err, ErrNoMatch):
		return ClassNotFound
	case errors.Is(err, ErrDuplicateName),
		errors.Is(err, ErrDuplicateTrack),
		errors.Is(err, ErrDuplicateUser),
		errors.Is(err, ErrAlreadyFavorited):
		return ClassConflict
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotLinked),
		errors.Is(err, ErrMissingRemoteRef),
		errors.Is(err, ErrInvalidReference):
		return ClassValidation
	case errors.Is(err, ErrAuthRequired), errors.Is(err, ErrRefreshFailed):
		return ClassAuthRequired
	case errors.Is(err, ErrUpstream):
		return ClassUpstream
	default:
		return ClassInternal
	}
}
