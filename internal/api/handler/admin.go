package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/gamehost/internal/api/request"
	"github.com/mcoot/gamehost/internal/api/response"
	"github.com/mcoot/gamehost/internal/services/auth"
)

// AdminHandler handles principal maintenance endpoints
type AdminHandler struct {
	authService *auth.Service
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(authService *auth.Service) *AdminHandler {
	return &AdminHandler{
		authService: authService,
	}
}

// Get handles GET /admin/principals/{username}
func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.authService.GetPrincipal(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PrincipalFromModel(p))
}

// Block handles POST /admin/principals/{username}/block
func (h *AdminHandler) Block(w http.ResponseWriter, r *http.Request) {
	var req request.BlockRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		WriteError(w, err)
		return
	}

	p, err := h.authService.Block(r.Context(), mux.Vars(r)["username"], req.Reason)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PrincipalFromModel(p))
}

// Unblock handles POST /admin/principals/{username}/unblock
func (h *AdminHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	p, err := h.authService.Unblock(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PrincipalFromModel(p))
}
