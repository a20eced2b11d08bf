package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/gamehost/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidSignup      = "INVALID_SIGNUP"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotGameAuthor      = "NOT_GAME_AUTHOR"
	CodePrincipalBlocked   = "PRINCIPAL_BLOCKED"
	CodeNotFound           = "NOT_FOUND"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeGameNotFound       = "GAME_NOT_FOUND"
	CodeVersionNotFound    = "VERSION_NOT_FOUND"
	CodeUsernameExists     = "USERNAME_EXISTS"
	CodeSlugExists         = "SLUG_EXISTS"
	CodeConflict           = "CONFLICT"
	CodeInvalidTitle       = "INVALID_TITLE"
	CodeInvalidDescription = "INVALID_DESCRIPTION"
	CodeNoArchive          = "NO_ARCHIVE"
	CodeInvalidArchive     = "INVALID_ARCHIVE"
	CodeArchiveTooLarge    = "ARCHIVE_TOO_LARGE"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeUpstream           = "UPSTREAM_UNAVAILABLE"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status err maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// specific errors are matched before their kind
var specific = []struct {
	err    error
	status int
	code   string
}{
	{model.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials},
	{model.ErrInvalidSignup, http.StatusUnauthorized, CodeInvalidSignup},
	{model.ErrPrincipalBlocked, http.StatusForbidden, CodePrincipalBlocked},
	{model.ErrNotGameAuthor, http.StatusForbidden, CodeNotGameAuthor},
	{model.ErrPrincipalNotFound, http.StatusNotFound, CodeUserNotFound},
	{model.ErrGameNotFound, http.StatusNotFound, CodeGameNotFound},
	{model.ErrVersionNotFound, http.StatusNotFound, CodeVersionNotFound},
	{model.ErrUsernameExists, http.StatusConflict, CodeUsernameExists},
	// a taken slug is reported as a bad title rather than a conflict
	{model.ErrSlugExists, http.StatusBadRequest, CodeSlugExists},
	{model.ErrInvalidTitle, http.StatusBadRequest, CodeInvalidTitle},
	{model.ErrInvalidDesc, http.StatusBadRequest, CodeInvalidDescription},
	{model.ErrNoArchive, http.StatusBadRequest, CodeNoArchive},
	{model.ErrInvalidArchive, http.StatusBadRequest, CodeInvalidArchive},
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	for _, s := range specific {
		if errors.Is(err, s.err) {
			return &httpError{s.status, APIError{s.code, s.err.Error()}}
		}
	}

	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, err.Error()}}
	case errors.Is(err, model.ErrUnauthenticated):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired token"}}
	case errors.Is(err, model.ErrForbidden):
		return &httpError{http.StatusForbidden, APIError{CodeForbidden, "Forbidden"}}
	case errors.Is(err, model.ErrNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeNotFound, "Not found"}}
	case errors.Is(err, model.ErrConflict):
		return &httpError{http.StatusConflict, APIError{CodeConflict, "Conflict"}}
	case errors.Is(err, model.ErrUpstream):
		return &httpError{http.StatusInternalServerError, APIError{CodeUpstream, "Storage backend unavailable"}}
	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewArchiveTooLargeError creates an error for uploads over the size limit
func NewArchiveTooLargeError() error {
	return &httpError{http.StatusRequestEntityTooLarge, APIError{CodeArchiveTooLarge, "Archive too large"}}
}

// NewNotFoundError creates a generic not found error
func NewNotFoundError() error {
	return &httpError{http.StatusNotFound, APIError{CodeNotFound, "Not found"}}
}

// NewMethodNotAllowedError creates an error for unsupported methods
func NewMethodNotAllowedError() error {
	return &httpError{http.StatusMethodNotAllowed, APIError{CodeMethodNotAllowed, "Method not allowed"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
