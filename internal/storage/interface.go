package storage

import (
	"context"
	"time"

	"github.com/mcoot/gamehost/internal/model"
)

// SortKey selects the catalog ordering
type SortKey string

const (
	SortByTitle      SortKey = "title"
	SortByPopularity SortKey = "popularity"
	SortByUploadDate SortKey = "uploadDate"
)

// CatalogQuery is a normalized catalog page request.
// Callers are responsible for clamping values before passing them in.
type CatalogQuery struct {
	Offset     int
	Limit      int
	SortBy     SortKey
	Descending bool
}

// TokenStore persists session tokens. ReplaceToken must atomically remove
// any previous token of the principal so that at most one row exists per
// principal after concurrent calls complete.
type TokenStore interface {
	ReplaceToken(ctx context.Context, rec *model.TokenRecord) error
	GetToken(ctx context.Context, token string) (*model.TokenRecord, error)
	DeleteToken(ctx context.Context, token string) error
	DeleteTokensForPrincipal(ctx context.Context, id model.PrincipalID) error
	DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error)
}

// Storage defines the interface for relational data persistence
type Storage interface {
	TokenStore

	// Principal operations
	CreatePrincipal(ctx context.Context, p *model.Principal) error
	GetPrincipal(ctx context.Context, id model.PrincipalID) (*model.Principal, error)
	GetPrincipalByUsername(ctx context.Context, username string) (*model.Principal, error)
	UpdateLastLogin(ctx context.Context, id model.PrincipalID, at time.Time) error
	SetBlocked(ctx context.Context, username string, blocked bool, reason string) (*model.Principal, error)

	// Game operations
	CreateGame(ctx context.Context, game *model.Game) error
	GetGameBySlug(ctx context.Context, slug string) (*model.Game, error)
	UpdateGame(ctx context.Context, game *model.Game) error
	// DeleteGame removes the game with its versions and their scores
	DeleteGame(ctx context.Context, id model.GameID) error
	ListGamesByAuthor(ctx context.Context, id model.PrincipalID) ([]*model.Game, error)

	// Version operations
	MaxVersionNumber(ctx context.Context, id model.GameID) (int, error)
	// CreateVersion fails with model.ErrVersionConflict if (game, number) exists
	CreateVersion(ctx context.Context, v *model.GameVersion) error
	GetVersion(ctx context.Context, id model.GameID, number int) (*model.GameVersion, error)
	GetCurrentVersion(ctx context.Context, id model.GameID) (*model.GameVersion, error)
	ListVersions(ctx context.Context, id model.GameID) ([]*model.GameVersion, error)

	// Score operations
	CreateScore(ctx context.Context, s *model.Score) error
	ListScoresForGame(ctx context.Context, id model.GameID) ([]model.ScoreEntry, error)
	ListHighscoresForPrincipal(ctx context.Context, id model.PrincipalID) ([]model.Highscore, error)

	// Catalog operations
	ListCatalog(ctx context.Context, q CatalogQuery) ([]model.CatalogEntry, int64, error)
}
