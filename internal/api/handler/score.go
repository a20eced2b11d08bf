package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/gamehost/internal/api/apierr"
	"github.com/mcoot/gamehost/internal/api/middleware"
	"github.com/mcoot/gamehost/internal/api/request"
	"github.com/mcoot/gamehost/internal/api/response"
	"github.com/mcoot/gamehost/internal/services/scores"
)

// ScoreHandler handles leaderboard and profile endpoints
type ScoreHandler struct {
	scores *scores.Service
}

// NewScoreHandler creates a new score handler
func NewScoreHandler(scores *scores.Service) *ScoreHandler {
	return &ScoreHandler{
		scores: scores,
	}
}

// List handles GET /games/{slug}/scores
func (h *ScoreHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.scores.ListScores(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ScoresFromModel(entries))
}

// Submit handles POST /games/{slug}/scores
func (h *ScoreHandler) Submit(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.ScoreRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		WriteError(w, err)
		return
	}
	if req.Score == nil {
		WriteError(w, apierr.NewInvalidRequestError("score is required"))
		return
	}

	if _, err := h.scores.SubmitScore(r.Context(), identity, mux.Vars(r)["slug"], *req.Score); err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.Success)
}

// Profile handles GET /users/{username}
func (h *ScoreHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.scores.GetPlayerProfile(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ProfileFromModel(profile))
}
