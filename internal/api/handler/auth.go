package handler

import (
	"net/http"

	"github.com/mcoot/gamehost/internal/api/middleware"
	"github.com/mcoot/gamehost/internal/api/request"
	"github.com/mcoot/gamehost/internal/api/response"
	"github.com/mcoot/gamehost/internal/services/auth"
)

// AuthHandler handles session endpoints
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Signup handles POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req request.CredentialsRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		WriteError(w, err)
		return
	}

	token, err := h.authService.Signup(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.TokenResponseFromIssued(token))
}

// Signin handles POST /auth/signin
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req request.CredentialsRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		WriteError(w, err)
		return
	}

	token, err := h.authService.Signin(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.TokenResponseFromIssued(token))
}

// Signout handles POST /auth/signout. The token comes from the body or,
// failing that, the bearer header. Unknown tokens are ignored.
func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	var req request.SignoutRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		WriteError(w, err)
		return
	}

	token := req.Token
	if token == "" {
		token = middleware.ExtractToken(r)
	}
	if token != "" {
		if err := h.authService.Signout(r.Context(), token); err != nil {
			WriteError(w, err)
			return
		}
	}

	response.JSON(w, http.StatusOK, response.Success)
}
