package catalog

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/mcoot/gamehost/internal/content"
	"github.com/mcoot/gamehost/internal/dependencies/clock"
	"github.com/mcoot/gamehost/internal/dependencies/gamelock"
	"github.com/mcoot/gamehost/internal/model"
	"github.com/mcoot/gamehost/internal/services/access"
	"github.com/mcoot/gamehost/internal/storage"
)

// Field limits
const (
	MinTitleLength       = 3
	MaxTitleLength       = 60
	MaxDescriptionLength = 200
)

// Paging defaults
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ListParams is a raw catalog request. Out of range values are clamped
// rather than rejected.
type ListParams struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string
}

// CatalogPage is one page of the catalog
type CatalogPage struct {
	Items      []model.CatalogEntry
	Page       int
	Size       int
	TotalCount int64
	SortBy     storage.SortKey
	Descending bool
}

// GameDetail is a game with its version chain
type GameDetail struct {
	Game     *model.Game
	Versions []*model.GameVersion
	Current  *model.GameVersion // nil until the first upload
}

// Service manages games and answers catalog queries
type Service struct {
	storage storage.Storage
	content *content.Store
	locks   *gamelock.Locks
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new catalog service
func New(storage storage.Storage, content *content.Store, locks *gamelock.Locks, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		content: content,
		locks:   locks,
		clock:   clock,
		logger:  logger,
	}
}

// ParseSortKey maps a user supplied key to a sort key, case-insensitively.
// Unknown keys fall back to title.
func ParseSortKey(raw string) storage.SortKey {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "popularity", "popular":
		return storage.SortByPopularity
	case "uploaddate", "upload_date":
		return storage.SortByUploadDate
	default:
		return storage.SortByTitle
	}
}

// Normalize clamps paging values and resolves the sort order
func (p ListParams) Normalize() (page, size int, key storage.SortKey, desc bool) {
	page, size = p.Page, p.Size
	if page < 0 {
		page = 0
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	// page*size+size must fit in an int
	if limit := (math.MaxInt - size) / size; page > limit {
		page = limit
	}
	return page, size, ParseSortKey(p.SortBy), strings.EqualFold(p.SortDir, "desc")
}

// ListGames returns one page of published games
func (s *Service) ListGames(ctx context.Context, params ListParams) (*CatalogPage, error) {
	page, size, key, desc := params.Normalize()

	items, total, err := s.storage.ListCatalog(ctx, storage.CatalogQuery{
		Offset:     page * size,
		Limit:      size,
		SortBy:     key,
		Descending: desc,
	})
	if err != nil {
		s.logger.Error("failed to list catalog", "error", err)
		return nil, err
	}

	return &CatalogPage{
		Items:      items,
		Page:       page,
		Size:       size,
		TotalCount: total,
		SortBy:     key,
		Descending: desc,
	}, nil
}

// GetGame returns a game with its versions
func (s *Service) GetGame(ctx context.Context, slug string) (*GameDetail, error) {
	game, err := s.storage.GetGameBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	versions, err := s.storage.ListVersions(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	detail := &GameDetail{Game: game, Versions: versions}
	if len(versions) > 0 {
		detail.Current = versions[len(versions)-1]
	}
	return detail, nil
}

func validateFields(title, description string) error {
	n := utf8.RuneCountInString(title)
	if n < MinTitleLength || n > MaxTitleLength {
		return model.ErrInvalidTitle
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return model.ErrInvalidDesc
	}
	return nil
}

// CreateGame registers a game owned by identity. The slug is derived from
// the title and never changes afterwards.
func (s *Service) CreateGame(ctx context.Context, identity *model.Identity, title, description string) (*model.Game, error) {
	if identity == nil {
		return nil, model.ErrUnauthenticated
	}
	if identity.Blocked {
		return nil, model.ErrPrincipalBlocked
	}
	title = strings.TrimSpace(title)
	if err := validateFields(title, description); err != nil {
		return nil, err
	}
	slug := Slugify(title)
	if slug == "" {
		return nil, model.ErrEmptySlug
	}

	now := s.clock.Now()
	game := &model.Game{
		Slug:           slug,
		Title:          title,
		Description:    description,
		AuthorID:       identity.PrincipalID,
		AuthorUsername: identity.Username,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.storage.CreateGame(ctx, game); err != nil {
		if !errors.Is(err, model.ErrSlugExists) {
			s.logger.Error("failed to create game", "slug", slug, "error", err)
		}
		return nil, err
	}

	s.logger.Info("game created", "slug", slug, "principal_id", identity.PrincipalID)
	return game, nil
}

// authorize loads a game and checks that identity may change it
func (s *Service) authorize(ctx context.Context, identity *model.Identity, slug string) (*model.Game, error) {
	game, err := s.storage.GetGameBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := access.AuthorizeMutation(identity, game.AuthorUsername); err != nil {
		if errors.Is(err, model.ErrForbidden) && !errors.Is(err, model.ErrPrincipalBlocked) {
			return nil, model.ErrNotGameAuthor
		}
		return nil, err
	}
	return game, nil
}

// UpdateGame changes the title and description of a game. The slug stays.
func (s *Service) UpdateGame(ctx context.Context, identity *model.Identity, slug, title, description string) (*model.Game, error) {
	game, err := s.authorize(ctx, identity, slug)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if err := validateFields(title, description); err != nil {
		return nil, err
	}

	game.Title = title
	game.Description = description
	game.UpdatedAt = s.clock.Now()
	if err := s.storage.UpdateGame(ctx, game); err != nil {
		s.logger.Error("failed to update game", "slug", slug, "error", err)
		return nil, err
	}
	return game, nil
}

// DeleteGame removes a game with its versions, scores and content. The
// content is moved aside first so it can be restored if the database
// delete fails.
func (s *Service) DeleteGame(ctx context.Context, identity *model.Identity, slug string) error {
	game, err := s.authorize(ctx, identity, slug)
	if err != nil {
		return err
	}

	// publishing holds the same lock while it writes a version
	unlock, err := s.locks.Lock(ctx, game.ID)
	if err != nil {
		return err
	}
	defer unlock()

	trashed, err := s.content.Trash(game.Slug)
	if err != nil {
		s.logger.Error("failed to move game content aside", "slug", slug, "error", err)
		return err
	}

	if err := s.storage.DeleteGame(ctx, game.ID); err != nil {
		s.logger.Error("failed to delete game", "slug", slug, "error", err)
		if restoreErr := trashed.Restore(); restoreErr != nil {
			s.logger.Error("failed to restore game content", "slug", slug, "error", restoreErr)
		}
		return err
	}

	if err := trashed.Purge(); err != nil {
		// the game is gone; leftover files are only wasted space
		s.logger.Error("failed to purge game content", "slug", slug, "error", err)
	}

	s.logger.Info("game deleted", "slug", slug, "principal_id", identity.PrincipalID)
	return nil
}
