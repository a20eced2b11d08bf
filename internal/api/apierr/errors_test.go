package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/gamehost/internal/model"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{model.ErrInvalidSignup, http.StatusUnauthorized},
		{model.ErrInvalidCredentials, http.StatusUnauthorized},
		{model.ErrInvalidToken, http.StatusUnauthorized},
		{model.ErrPrincipalBlocked, http.StatusForbidden},
		{model.ErrNotGameAuthor, http.StatusForbidden},
		{model.ErrGameNotFound, http.StatusNotFound},
		{model.ErrContentNotFound, http.StatusNotFound},
		{model.ErrUsernameExists, http.StatusConflict},
		{model.ErrSlugExists, http.StatusBadRequest},
		{model.ErrVersionConflict, http.StatusConflict},
		{model.ErrInvalidTitle, http.StatusBadRequest},
		{model.ErrInvalidScore, http.StatusBadRequest},
		{fmt.Errorf("extract: %w: %w", model.ErrInvalidArchive, model.ErrStorage), http.StatusBadRequest},
		{fmt.Errorf("write: %w", model.ErrStorage), http.StatusInternalServerError},
		{fmt.Errorf("get game: %w: %w", model.ErrUpstream, errors.New("dial tcp")), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
		{NewArchiveTooLargeError(), http.StatusRequestEntityTooLarge},
	}
	for _, c := range cases {
		assert.Equal(t, c.status, Status(c.err), c.err.Error())
	}
}

func TestWriteErrorBody(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, fmt.Errorf("lookup: %w", model.ErrGameNotFound))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, CodeGameNotFound, body.Error.Code)
	assert.Equal(t, "game not found", body.Error.Message)
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, fmt.Errorf("query: %w: %w", model.ErrUpstream, errors.New("password authentication failed for user root")))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, CodeUpstream, body.Error.Code)
	assert.NotContains(t, body.Error.Message, "password")
}
