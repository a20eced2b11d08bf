package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/gamehost/internal/api/apierr"
	"github.com/mcoot/gamehost/internal/api/middleware"
	"github.com/mcoot/gamehost/internal/api/request"
	"github.com/mcoot/gamehost/internal/api/response"
	"github.com/mcoot/gamehost/internal/model"
	"github.com/mcoot/gamehost/internal/services/catalog"
	"github.com/mcoot/gamehost/internal/services/versions"
)

// multipartOverhead allows for form boundaries and headers around the archive
const multipartOverhead = 1 << 20

// GameHandler handles game and version endpoints
type GameHandler struct {
	catalog         *catalog.Service
	versions        *versions.Manager
	maxArchiveBytes int64
	logger          *slog.Logger
}

// NewGameHandler creates a new game handler
func NewGameHandler(catalog *catalog.Service, versions *versions.Manager, maxArchiveBytes int64, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		catalog:         catalog,
		versions:        versions,
		maxArchiveBytes: maxArchiveBytes,
		logger:          logger,
	}
}

// queryInt parses an integer query parameter, returning 0 when absent or
// malformed so that the catalog clamps it
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

// List handles GET /games
func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.catalog.ListGames(r.Context(), catalog.ListParams{
		Page:    queryInt(r, "page"),
		Size:    queryInt(r, "size"),
		SortBy:  q.Get("sortBy"),
		SortDir: q.Get("sortDir"),
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.CatalogPageFromModel(page))
}

// Create handles POST /games
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.GameRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		WriteError(w, err)
		return
	}

	game, err := h.catalog.CreateGame(r.Context(), identity, req.Title, req.Description)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.SlugResponse{Status: "success", Slug: game.Slug})
}

// Get handles GET /games/{slug}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.catalog.GetGame(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameFromDetail(detail))
}

// Update handles PUT /games/{slug}
func (h *GameHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.GameRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		WriteError(w, err)
		return
	}

	game, err := h.catalog.UpdateGame(r.Context(), identity, mux.Vars(r)["slug"], req.Title, req.Description)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameFromModel(game))
}

// Delete handles DELETE /games/{slug}
func (h *GameHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	if err := h.catalog.DeleteGame(r.Context(), identity, mux.Vars(r)["slug"]); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Upload handles POST /games/{slug}/upload. The archive is read from the
// multipart field "zipfile".
func (h *GameHandler) Upload(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	archive, err := h.readArchive(w, r)
	if err != nil {
		WriteError(w, err)
		return
	}

	v, err := h.versions.PublishVersion(r.Context(), identity, mux.Vars(r)["slug"], archive)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.VersionFromModel(v))
}

// readArchive returns the uploaded archive, or nil when the request has no
// archive so that the publish reports it
func (h *GameHandler) readArchive(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxArchiveBytes+multipartOverhead)

	file, header, err := r.FormFile(request.ArchiveField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, apierr.NewArchiveTooLargeError()
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return nil, nil
		default:
			return nil, apierr.NewInvalidRequestError("invalid multipart form")
		}
	}
	defer file.Close()

	if header.Size > h.maxArchiveBytes {
		return nil, apierr.NewArchiveTooLargeError()
	}

	archive, err := io.ReadAll(io.LimitReader(file, h.maxArchiveBytes+1))
	if err != nil {
		h.logger.Error("failed to read uploaded archive", "error", err)
		return nil, model.ErrStorage
	}
	if int64(len(archive)) > h.maxArchiveBytes {
		return nil, apierr.NewArchiveTooLargeError()
	}
	return archive, nil
}
