package versions

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mcoot/gamehost/internal/content"
	"github.com/mcoot/gamehost/internal/dependencies/clock"
	"github.com/mcoot/gamehost/internal/dependencies/gamelock"
	"github.com/mcoot/gamehost/internal/metrics"
	"github.com/mcoot/gamehost/internal/model"
	"github.com/mcoot/gamehost/internal/services/access"
	"github.com/mcoot/gamehost/internal/storage"
)

// LatestVersion selects the current version in a version spec
const LatestVersion = "latest"

// Manager turns uploaded archives into numbered, immutable game versions
type Manager struct {
	storage storage.Storage
	content *content.Store
	clock   clock.Clock
	logger  *slog.Logger
	locks   *gamelock.Locks
}

// New creates a new version manager. locks must be shared with whatever
// else mutates a game's content.
func New(storage storage.Storage, content *content.Store, locks *gamelock.Locks, clock clock.Clock, logger *slog.Logger) *Manager {
	return &Manager{
		storage: storage,
		content: content,
		clock:   clock,
		logger:  logger,
		locks:   locks,
	}
}

// PublishVersion extracts archive as the next version of the game. Only the
// game's author may publish. Numbers are allocated under a per-game lock,
// and the version row is only written once its content is in place.
func (m *Manager) PublishVersion(ctx context.Context, identity *model.Identity, slug string, archive []byte) (*model.GameVersion, error) {
	game, err := m.storage.GetGameBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := access.AuthorizeMutation(identity, game.AuthorUsername); err != nil {
		if errors.Is(err, model.ErrForbidden) && !errors.Is(err, model.ErrPrincipalBlocked) {
			return nil, model.ErrNotGameAuthor
		}
		return nil, err
	}
	if len(archive) == 0 {
		return nil, model.ErrNoArchive
	}

	unlock, err := m.locks.Lock(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// the game may have been deleted while we waited
	still, err := m.storage.GetGameBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if still.ID != game.ID {
		return nil, model.ErrGameNotFound
	}

	current, err := m.storage.MaxVersionNumber(ctx, game.ID)
	if err != nil {
		m.logger.Error("failed to read current version", "slug", slug, "error", err)
		metrics.PublishFailed("allocate")
		return nil, err
	}
	number := current + 1

	materialized, err := m.content.Materialize(ctx, slug, number, archive)
	if err != nil {
		m.logger.Error("failed to extract archive", "slug", slug, "version", number, "error", err)
		metrics.PublishFailed("extract")
		return nil, err
	}

	v := &model.GameVersion{
		GameID:      game.ID,
		Number:      number,
		ContentPath: content.ContentPath(slug, number),
		CreatedAt:   m.clock.Now(),
	}
	if materialized.HasThumbnail {
		v.ThumbnailPath = content.ThumbnailPath(slug, number)
	}

	if err := m.storage.CreateVersion(ctx, v); err != nil {
		m.logger.Error("failed to record version", "slug", slug, "version", number, "error", err)
		metrics.PublishFailed("record")
		if rmErr := m.content.RemoveVersion(slug, number); rmErr != nil {
			m.logger.Error("failed to remove orphaned content", "slug", slug, "version", number, "error", rmErr)
		}
		return nil, err
	}

	metrics.VersionPublished(len(archive))
	m.logger.Info("version published",
		"slug", slug,
		"version", number,
		"thumbnail", v.HasThumbnail(),
		"principal_id", identity.PrincipalID,
	)
	return v, nil
}

// CurrentVersion returns the highest-numbered version of a game
func (m *Manager) CurrentVersion(ctx context.Context, slug string) (*model.GameVersion, error) {
	game, err := m.storage.GetGameBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return m.storage.GetCurrentVersion(ctx, game.ID)
}

// ListVersions returns every version of a game in ascending order
func (m *Manager) ListVersions(ctx context.Context, slug string) ([]*model.GameVersion, error) {
	game, err := m.storage.GetGameBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return m.storage.ListVersions(ctx, game.ID)
}

// ResolveContent maps a slug and a version spec, either a positive number or
// "latest", to the directory holding that version's files
func (m *Manager) ResolveContent(ctx context.Context, slug, spec string) (string, *model.GameVersion, error) {
	game, err := m.storage.GetGameBySlug(ctx, slug)
	if err != nil {
		return "", nil, err
	}

	var v *model.GameVersion
	if strings.EqualFold(spec, LatestVersion) {
		v, err = m.storage.GetCurrentVersion(ctx, game.ID)
	} else {
		number, convErr := strconv.Atoi(spec)
		if convErr != nil || number < 1 {
			return "", nil, model.ErrVersionNotFound
		}
		v, err = m.storage.GetVersion(ctx, game.ID, number)
	}
	if err != nil {
		return "", nil, err
	}

	dir, err := m.content.ResolveVersionDir(game.Slug, v.Number)
	if err != nil {
		m.logger.Warn("version has no content on disk", "slug", game.Slug, "version", v.Number)
		return "", nil, err
	}
	return dir, v, nil
}
