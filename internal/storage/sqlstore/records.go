package sqlstore

import (
	"time"

	"github.com/mcoot/gamehost/internal/model"
)

// Table rows. They are kept separate from the domain types so that gorm
// tags never leak out of this package.

type principalRow struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:60;not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	Blocked      bool   `gorm:"not null;default:false"`
	BlockReason  string `gorm:"size:255"`
	RegisteredAt time.Time
	LastLoginAt  *time.Time
}

func (principalRow) TableName() string { return "principals" }

type tokenRow struct {
	Token       string    `gorm:"primaryKey;size:512"`
	PrincipalID uint      `gorm:"not null;uniqueIndex"`
	ExpiresAt   time.Time `gorm:"not null;index"`
	CreatedAt   time.Time
}

func (tokenRow) TableName() string { return "tokens" }

type gameRow struct {
	ID          uint   `gorm:"primaryKey"`
	Slug        string `gorm:"size:80;not null;uniqueIndex"`
	Title       string `gorm:"size:60;not null"`
	Description string `gorm:"size:200"`
	AuthorID    uint   `gorm:"not null;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (gameRow) TableName() string { return "games" }

type versionRow struct {
	ID            uint `gorm:"primaryKey"`
	GameID        uint `gorm:"not null;uniqueIndex:idx_game_versions_game_number"`
	Number        int  `gorm:"not null;uniqueIndex:idx_game_versions_game_number"`
	ContentPath   string
	ThumbnailPath string
	CreatedAt     time.Time
}

func (versionRow) TableName() string { return "game_versions" }

type scoreRow struct {
	ID          uint    `gorm:"primaryKey"`
	VersionID   uint    `gorm:"not null;index"`
	PrincipalID uint    `gorm:"not null;index"`
	Value       float64 `gorm:"not null"`
	CreatedAt   time.Time
}

func (scoreRow) TableName() string { return "scores" }

func allRows() []any {
	return []any{&principalRow{}, &tokenRow{}, &gameRow{}, &versionRow{}, &scoreRow{}}
}

func toPrincipalRow(p *model.Principal) *principalRow {
	return &principalRow{
		ID:           uint(p.ID),
		Username:     p.Username,
		PasswordHash: p.PasswordHash,
		Blocked:      p.Blocked,
		BlockReason:  p.BlockReason,
		RegisteredAt: p.RegisteredAt,
		LastLoginAt:  p.LastLoginAt,
	}
}

func (r *principalRow) toModel() *model.Principal {
	return &model.Principal{
		ID:           model.PrincipalID(r.ID),
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Blocked:      r.Blocked,
		BlockReason:  r.BlockReason,
		RegisteredAt: r.RegisteredAt,
		LastLoginAt:  r.LastLoginAt,
	}
}

func (r *tokenRow) toModel() *model.TokenRecord {
	return &model.TokenRecord{
		Token:       r.Token,
		PrincipalID: model.PrincipalID(r.PrincipalID),
		ExpiresAt:   r.ExpiresAt,
		CreatedAt:   r.CreatedAt,
	}
}

func (r *versionRow) toModel() *model.GameVersion {
	return &model.GameVersion{
		ID:            model.VersionID(r.ID),
		GameID:        model.GameID(r.GameID),
		Number:        r.Number,
		ContentPath:   r.ContentPath,
		ThumbnailPath: r.ThumbnailPath,
		CreatedAt:     r.CreatedAt,
	}
}

// gameView is a games row joined with the author's username. It is flat
// because Scan does not populate embedded structs.
type gameView struct {
	ID             uint
	Slug           string
	Title          string
	Description    string
	AuthorID       uint
	AuthorUsername string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (r *gameView) toModel() *model.Game {
	return &model.Game{
		ID:             model.GameID(r.ID),
		Slug:           r.Slug,
		Title:          r.Title,
		Description:    r.Description,
		AuthorID:       model.PrincipalID(r.AuthorID),
		AuthorUsername: r.AuthorUsername,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type scoreEntryRow struct {
	ScoreID       uint
	Username      string
	VersionNumber int
	Value         float64
	CreatedAt     time.Time
}

type highscoreRow struct {
	Slug        string
	Title       string
	Description string
	Value       float64
	CreatedAt   time.Time
}

type catalogRow struct {
	Slug           string
	Title          string
	Description    string
	AuthorUsername string
	ThumbnailPath  string
	LatestUpload   time.Time
	ScoreCount     int64
}
