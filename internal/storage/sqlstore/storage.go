package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/mcoot/gamehost/internal/model"
	"github.com/mcoot/gamehost/internal/storage"
)

// Storage is a relational implementation of the storage interface
type Storage struct {
	db *gorm.DB
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Open connects to the configured database and migrates the schema
func Open(cfg Config) (*Storage, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	logLevel := logger.Silent
	if cfg.LogQueries {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logLevel),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == DriverSQLite {
		// sqlite allows one writer; serialise through a single connection
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	s := NewWithDB(db)
	if err := s.Migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing gorm handle (for testing)
func NewWithDB(db *gorm.DB) *Storage {
	return &Storage{db: db}
}

// Migrate creates or updates all tables
func (s *Storage) Migrate() error {
	if err := s.db.AutoMigrate(allRows()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database is reachable
func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return upstream("ping", err)
	}
	return nil
}

// upstream marks a driver failure
func upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrUpstream, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// Principal operations

func (s *Storage) CreatePrincipal(ctx context.Context, p *model.Principal) error {
	row := toPrincipalRow(p)
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if isDuplicate(err) {
			return model.ErrUsernameExists
		}
		return upstream("create principal", err)
	}
	p.ID = model.PrincipalID(row.ID)
	return nil
}

func (s *Storage) GetPrincipal(ctx context.Context, id model.PrincipalID) (*model.Principal, error) {
	var row principalRow
	if err := s.db.WithContext(ctx).First(&row, uint(id)).Error; err != nil {
		if isNotFound(err) {
			return nil, model.ErrPrincipalNotFound
		}
		return nil, upstream("get principal", err)
	}
	return row.toModel(), nil
}

func (s *Storage) GetPrincipalByUsername(ctx context.Context, username string) (*model.Principal, error) {
	var row principalRow
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, model.ErrPrincipalNotFound
		}
		return nil, upstream("get principal", err)
	}
	return row.toModel(), nil
}

func (s *Storage) UpdateLastLogin(ctx context.Context, id model.PrincipalID, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&principalRow{}).Where("id = ?", uint(id)).Update("last_login_at", at)
	if res.Error != nil {
		return upstream("update last login", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrPrincipalNotFound
	}
	return nil
}

func (s *Storage) SetBlocked(ctx context.Context, username string, blocked bool, reason string) (*model.Principal, error) {
	if !blocked {
		reason = ""
	}
	var row principalRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("username = ?", username).First(&row).Error; err != nil {
			return err
		}
		row.Blocked = blocked
		row.BlockReason = reason
		return tx.Model(&row).Select("blocked", "block_reason").Updates(&row).Error
	})
	if err != nil {
		if isNotFound(err) {
			return nil, model.ErrPrincipalNotFound
		}
		return nil, upstream("set blocked", err)
	}
	return row.toModel(), nil
}

// Token operations

func (s *Storage) ReplaceToken(ctx context.Context, rec *model.TokenRecord) error {
	row := &tokenRow{
		Token:       rec.Token,
		PrincipalID: uint(rec.PrincipalID),
		ExpiresAt:   rec.ExpiresAt,
		CreatedAt:   rec.CreatedAt,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("principal_id = ?", row.PrincipalID).Delete(&tokenRow{}).Error; err != nil {
			return err
		}
		// A concurrent issuer may have inserted between the delete and the
		// insert; the conflict clause makes the last writer win.
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "principal_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"token", "expires_at", "created_at"}),
		}).Create(row).Error
	})
	if err != nil {
		return upstream("replace token", err)
	}
	return nil
}

func (s *Storage) GetToken(ctx context.Context, token string) (*model.TokenRecord, error) {
	var row tokenRow
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, model.ErrTokenNotFound
		}
		return nil, upstream("get token", err)
	}
	return row.toModel(), nil
}

func (s *Storage) DeleteToken(ctx context.Context, token string) error {
	if err := s.db.WithContext(ctx).Where("token = ?", token).Delete(&tokenRow{}).Error; err != nil {
		return upstream("delete token", err)
	}
	return nil
}

func (s *Storage) DeleteTokensForPrincipal(ctx context.Context, id model.PrincipalID) error {
	if err := s.db.WithContext(ctx).Where("principal_id = ?", uint(id)).Delete(&tokenRow{}).Error; err != nil {
		return upstream("delete tokens", err)
	}
	return nil
}

func (s *Storage) DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", before).Delete(&tokenRow{})
	if res.Error != nil {
		return 0, upstream("delete expired tokens", res.Error)
	}
	return res.RowsAffected, nil
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, game *model.Game) error {
	row := &gameRow{
		Slug:        game.Slug,
		Title:       game.Title,
		Description: game.Description,
		AuthorID:    uint(game.AuthorID),
		CreatedAt:   game.CreatedAt,
		UpdatedAt:   game.UpdatedAt,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if isDuplicate(err) {
			return model.ErrSlugExists
		}
		return upstream("create game", err)
	}
	game.ID = model.GameID(row.ID)
	return nil
}

func (s *Storage) gamesQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("games AS g").
		Select("g.id, g.slug, g.title, g.description, g.author_id, g.created_at, g.updated_at, p.username AS author_username").
		Joins("JOIN principals p ON p.id = g.author_id")
}

func (s *Storage) GetGameBySlug(ctx context.Context, slug string) (*model.Game, error) {
	var view gameView
	res := s.gamesQuery(ctx).Where("g.slug = ?", slug).Limit(1).Scan(&view)
	if res.Error != nil {
		return nil, upstream("get game", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, model.ErrGameNotFound
	}
	return view.toModel(), nil
}

func (s *Storage) UpdateGame(ctx context.Context, game *model.Game) error {
	res := s.db.WithContext(ctx).Model(&gameRow{}).Where("id = ?", uint(game.ID)).Updates(map[string]any{
		"title":       game.Title,
		"description": game.Description,
		"updated_at":  game.UpdatedAt,
	})
	if res.Error != nil {
		return upstream("update game", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrGameNotFound
	}
	return nil
}

func (s *Storage) DeleteGame(ctx context.Context, id model.GameID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		versionIDs := tx.Model(&versionRow{}).Select("id").Where("game_id = ?", uint(id))
		if err := tx.Where("version_id IN (?)", versionIDs).Delete(&scoreRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("game_id = ?", uint(id)).Delete(&versionRow{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&gameRow{}, uint(id))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			return model.ErrGameNotFound
		}
		return upstream("delete game", err)
	}
	return nil
}

func (s *Storage) ListGamesByAuthor(ctx context.Context, id model.PrincipalID) ([]*model.Game, error) {
	var views []gameView
	if err := s.gamesQuery(ctx).Where("g.author_id = ?", uint(id)).Order("g.slug").Scan(&views).Error; err != nil {
		return nil, upstream("list games", err)
	}
	games := make([]*model.Game, 0, len(views))
	for i := range views {
		games = append(games, views[i].toModel())
	}
	return games, nil
}

// Version operations

func (s *Storage) MaxVersionNumber(ctx context.Context, id model.GameID) (int, error) {
	var max int
	err := s.db.WithContext(ctx).Model(&versionRow{}).
		Where("game_id = ?", uint(id)).
		Select("COALESCE(MAX(number), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, upstream("max version", err)
	}
	return max, nil
}

func (s *Storage) CreateVersion(ctx context.Context, v *model.GameVersion) error {
	row := &versionRow{
		GameID:        uint(v.GameID),
		Number:        v.Number,
		ContentPath:   v.ContentPath,
		ThumbnailPath: v.ThumbnailPath,
		CreatedAt:     v.CreatedAt,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&gameRow{}).Where("id = ?", row.GameID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return model.ErrGameNotFound
		}
		return tx.Create(row).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, model.ErrGameNotFound):
			return err
		case isDuplicate(err):
			return model.ErrVersionConflict
		}
		return upstream("create version", err)
	}
	v.ID = model.VersionID(row.ID)
	return nil
}

func (s *Storage) GetVersion(ctx context.Context, id model.GameID, number int) (*model.GameVersion, error) {
	var row versionRow
	if err := s.db.WithContext(ctx).Where("game_id = ? AND number = ?", uint(id), number).First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, model.ErrVersionNotFound
		}
		return nil, upstream("get version", err)
	}
	return row.toModel(), nil
}

func (s *Storage) GetCurrentVersion(ctx context.Context, id model.GameID) (*model.GameVersion, error) {
	var row versionRow
	if err := s.db.WithContext(ctx).Where("game_id = ?", uint(id)).Order("number DESC").First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, model.ErrVersionNotFound
		}
		return nil, upstream("get current version", err)
	}
	return row.toModel(), nil
}

func (s *Storage) ListVersions(ctx context.Context, id model.GameID) ([]*model.GameVersion, error) {
	var rows []versionRow
	if err := s.db.WithContext(ctx).Where("game_id = ?", uint(id)).Order("number ASC").Find(&rows).Error; err != nil {
		return nil, upstream("list versions", err)
	}
	versions := make([]*model.GameVersion, 0, len(rows))
	for i := range rows {
		versions = append(versions, rows[i].toModel())
	}
	return versions, nil
}

// Score operations

func (s *Storage) CreateScore(ctx context.Context, score *model.Score) error {
	row := &scoreRow{
		VersionID:   uint(score.VersionID),
		PrincipalID: uint(score.PrincipalID),
		Value:       score.Value,
		CreatedAt:   score.CreatedAt,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&versionRow{}).Where("id = ?", row.VersionID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return model.ErrVersionNotFound
		}
		return tx.Create(row).Error
	})
	if err != nil {
		if errors.Is(err, model.ErrVersionNotFound) {
			return err
		}
		return upstream("create score", err)
	}
	score.ID = model.ScoreID(row.ID)
	return nil
}

func (s *Storage) ListScoresForGame(ctx context.Context, id model.GameID) ([]model.ScoreEntry, error) {
	var rows []scoreEntryRow
	err := s.db.WithContext(ctx).
		Table("scores AS s").
		Select("s.id AS score_id, p.username, v.number AS version_number, s.value, s.created_at").
		Joins("JOIN game_versions v ON v.id = s.version_id").
		Joins("JOIN principals p ON p.id = s.principal_id").
		Where("v.game_id = ?", uint(id)).
		Order("s.value DESC, s.created_at ASC, s.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, upstream("list scores", err)
	}
	entries := make([]model.ScoreEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, model.ScoreEntry{
			ScoreID:       model.ScoreID(r.ScoreID),
			Username:      r.Username,
			VersionNumber: r.VersionNumber,
			Value:         r.Value,
			CreatedAt:     r.CreatedAt,
		})
	}
	return entries, nil
}

func (s *Storage) ListHighscoresForPrincipal(ctx context.Context, id model.PrincipalID) ([]model.Highscore, error) {
	var rows []highscoreRow
	err := s.db.WithContext(ctx).
		Table("scores AS s").
		Select("g.slug, g.title, g.description, s.value, s.created_at").
		Joins("JOIN game_versions v ON v.id = s.version_id").
		Joins("JOIN games g ON g.id = v.game_id").
		Where("s.principal_id = ?", uint(id)).
		Order("s.value DESC, s.created_at ASC, s.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, upstream("list highscores", err)
	}
	highscores := make([]model.Highscore, 0, len(rows))
	for _, r := range rows {
		highscores = append(highscores, model.Highscore{
			Game:      model.GameSummary{Slug: r.Slug, Title: r.Title, Description: r.Description},
			Value:     r.Value,
			CreatedAt: r.CreatedAt,
		})
	}
	return highscores, nil
}

// Catalog operations

// catalogOrder maps a sort key to a whitelisted ORDER BY expression
var catalogOrder = map[storage.SortKey]string{
	storage.SortByTitle:      "g.title",
	storage.SortByPopularity: "score_count",
	storage.SortByUploadDate: "cv.created_at",
}

func (s *Storage) ListCatalog(ctx context.Context, q storage.CatalogQuery) ([]model.CatalogEntry, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	err := db.Table("games AS g").
		Where("EXISTS (SELECT 1 FROM game_versions v WHERE v.game_id = g.id)").
		Count(&total).Error
	if err != nil {
		return nil, 0, upstream("count catalog", err)
	}
	// gorm drops a negative offset, which would silently serve the first page
	if q.Offset < 0 || int64(q.Offset) >= total {
		return []model.CatalogEntry{}, total, nil
	}

	column, ok := catalogOrder[q.SortBy]
	if !ok {
		column = catalogOrder[storage.SortByTitle]
	}
	dir := "ASC"
	if q.Descending {
		dir = "DESC"
	}

	// The current version row carries both the thumbnail and the latest
	// upload time, since version numbers and upload times grow together.
	var rows []catalogRow
	err = db.Table("games AS g").
		Select(`g.slug, g.title, g.description, p.username AS author_username,
			cv.thumbnail_path, cv.created_at AS latest_upload,
			COALESCE(sc.score_count, 0) AS score_count`).
		Joins("JOIN principals p ON p.id = g.author_id").
		Joins("JOIN (SELECT game_id, MAX(number) AS max_number FROM game_versions GROUP BY game_id) mv ON mv.game_id = g.id").
		Joins("JOIN game_versions cv ON cv.game_id = g.id AND cv.number = mv.max_number").
		Joins(`LEFT JOIN (SELECT v.game_id, COUNT(s.id) AS score_count
			FROM scores s JOIN game_versions v ON v.id = s.version_id
			GROUP BY v.game_id) sc ON sc.game_id = g.id`).
		Order(fmt.Sprintf("%s %s, g.slug ASC", column, dir)).
		Limit(q.Limit).
		Offset(q.Offset).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, upstream("list catalog", err)
	}

	entries := make([]model.CatalogEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, model.CatalogEntry(r))
	}
	return entries, total, nil
}
