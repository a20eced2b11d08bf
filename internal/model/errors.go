package model

import "errors"

// Error kinds. Specific errors below wrap one of these so callers can
// classify a failure with errors.Is without knowing every sentinel.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrStorage         = errors.New("storage error")
	ErrUpstream        = errors.New("upstream unavailable")
)

// Common errors used across the application
var (
	// Principal errors
	ErrPrincipalNotFound = wrapKind(ErrNotFound, "principal not found")
	ErrUsernameExists    = wrapKind(ErrConflict, "username already exists")
	ErrPrincipalBlocked  = wrapKind(ErrForbidden, "principal is blocked")

	// Credentials are rejected as a whole, never revealing which part failed
	ErrInvalidCredentials = wrapKind(ErrUnauthenticated, "invalid credentials")
	ErrInvalidSignup      = wrapKind(ErrUnauthenticated, "username must be 4-60 characters and password at least 6")

	// Token errors
	ErrTokenNotFound = wrapKind(ErrUnauthenticated, "token not found")
	ErrInvalidToken  = wrapKind(ErrUnauthenticated, "invalid or expired token")

	// Game errors
	ErrGameNotFound  = wrapKind(ErrNotFound, "game not found")
	ErrSlugExists    = wrapKind(ErrConflict, "slug already exists")
	ErrNotGameAuthor = wrapKind(ErrForbidden, "not the game author")
	ErrInvalidTitle  = wrapKind(ErrInvalidInput, "invalid title length")
	ErrInvalidDesc   = wrapKind(ErrInvalidInput, "invalid description length")
	ErrEmptySlug     = wrapKind(ErrInvalidInput, "title does not produce a slug")

	// Version errors
	ErrVersionNotFound = wrapKind(ErrNotFound, "game version not found")
	ErrVersionConflict = wrapKind(ErrConflict, "game version already exists")
	ErrNoArchive       = wrapKind(ErrInvalidInput, "no archive uploaded")
	ErrInvalidArchive  = wrapKind(ErrInvalidInput, "invalid archive")

	// Content errors
	ErrContentNotFound = wrapKind(ErrNotFound, "content not found")

	// Score errors
	ErrInvalidScore = wrapKind(ErrInvalidInput, "score must be a finite number")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func wrapKind(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}
