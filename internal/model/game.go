package model

import "time"

// GameID uniquely identifies a game
type GameID uint

// Game is a published title owned by one principal
type Game struct {
	ID             GameID
	Slug           string // derived from title at creation, immutable
	Title          string
	Description    string
	AuthorID       PrincipalID
	AuthorUsername string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// VersionID uniquely identifies a game version
type VersionID uint

// GameVersion is an immutable build of a game. Numbers start at 1 and
// increase by one per upload; the highest number is the current version.
type GameVersion struct {
	ID            VersionID
	GameID        GameID
	Number        int
	ContentPath   string // public path of the content root, e.g. /games/my-game/3/
	ThumbnailPath string // empty if the build has no thumbnail.png
	CreatedAt     time.Time
}

// HasThumbnail reports whether the version shipped a thumbnail
func (v *GameVersion) HasThumbnail() bool {
	return v.ThumbnailPath != ""
}

// CatalogEntry is a game listing row with derived aggregates
type CatalogEntry struct {
	Slug           string
	Title          string
	Description    string
	AuthorUsername string
	ThumbnailPath  string // of the current version, empty if none
	LatestUpload   time.Time
	ScoreCount     int64
}
