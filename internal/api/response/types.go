package response

import (
	"time"

	"github.com/mcoot/gamehost/internal/model"
	"github.com/mcoot/gamehost/internal/services/auth"
	"github.com/mcoot/gamehost/internal/services/catalog"
)

// TokenResponse is the response for signup and signin
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TokenResponseFromIssued converts an issued token
func TokenResponseFromIssued(t *auth.IssuedToken) TokenResponse {
	return TokenResponse{Token: t.Token, ExpiresAt: t.ExpiresAt}
}

// StatusResponse acknowledges an operation without a payload
type StatusResponse struct {
	Status string `json:"status"`
}

// Success is the StatusResponse for completed operations
var Success = StatusResponse{Status: "success"}

// CatalogItem is one game in the catalog listing
type CatalogItem struct {
	Slug            string    `json:"slug"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Thumbnail       *string   `json:"thumbnail"`
	UploadTimestamp time.Time `json:"uploadTimestamp"`
	Author          string    `json:"author"`
	ScoreCount      int64     `json:"scoreCount"`
}

// CatalogPage is a page of the catalog listing
type CatalogPage struct {
	Page          int           `json:"page"`
	Size          int           `json:"size"`
	TotalElements int64         `json:"totalElements"`
	SortBy        string        `json:"sortBy"`
	SortDir       string        `json:"sortDir"`
	Content       []CatalogItem `json:"content"`
}

// CatalogPageFromModel converts a catalog page. Size reports the number of
// items returned, not the requested page size.
func CatalogPageFromModel(p *catalog.CatalogPage) CatalogPage {
	items := make([]CatalogItem, len(p.Items))
	for i, e := range p.Items {
		items[i] = CatalogItem{
			Slug:            e.Slug,
			Title:           e.Title,
			Description:     e.Description,
			Thumbnail:       optional(e.ThumbnailPath),
			UploadTimestamp: e.LatestUpload,
			Author:          e.AuthorUsername,
			ScoreCount:      e.ScoreCount,
		}
	}

	dir := "asc"
	if p.Descending {
		dir = "desc"
	}
	return CatalogPage{
		Page:          p.Page,
		Size:          len(items),
		TotalElements: p.TotalCount,
		SortBy:        string(p.SortBy),
		SortDir:       dir,
		Content:       items,
	}
}

// Version represents a game version
type Version struct {
	Version         int       `json:"version"`
	Path            string    `json:"path"`
	Thumbnail       *string   `json:"thumbnail"`
	UploadTimestamp time.Time `json:"uploadTimestamp"`
}

// VersionFromModel converts model.GameVersion
func VersionFromModel(v *model.GameVersion) Version {
	return Version{
		Version:         v.Number,
		Path:            v.ContentPath,
		Thumbnail:       optional(v.ThumbnailPath),
		UploadTimestamp: v.CreatedAt,
	}
}

// Game represents a game with its version chain
type Game struct {
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Author         string    `json:"author"`
	CreatedAt      time.Time `json:"createdTimestamp"`
	UpdatedAt      time.Time `json:"updatedTimestamp"`
	CurrentVersion *Version  `json:"currentVersion"`
	Versions       []Version `json:"versions"`
}

// GameFromModel converts a game without versions
func GameFromModel(g *model.Game) Game {
	return Game{
		Slug:        g.Slug,
		Title:       g.Title,
		Description: g.Description,
		Author:      g.AuthorUsername,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
		Versions:    []Version{},
	}
}

// GameFromDetail converts a game with its versions
func GameFromDetail(d *catalog.GameDetail) Game {
	g := GameFromModel(d.Game)
	g.Versions = make([]Version, len(d.Versions))
	for i, v := range d.Versions {
		g.Versions[i] = VersionFromModel(v)
	}
	if d.Current != nil {
		current := VersionFromModel(d.Current)
		g.CurrentVersion = &current
	}
	return g
}

// SlugResponse is the response for game creation
type SlugResponse struct {
	Status string `json:"status"`
	Slug   string `json:"slug"`
}

// Score represents a score in a game leaderboard
type Score struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Version   int       `json:"version"`
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// ScoresResponse is the leaderboard of a game
type ScoresResponse struct {
	Scores []Score `json:"scores"`
}

// ScoresFromModel converts score entries
func ScoresFromModel(entries []model.ScoreEntry) ScoresResponse {
	scores := make([]Score, len(entries))
	for i, e := range entries {
		scores[i] = Score{
			ID:        uint(e.ScoreID),
			Username:  e.Username,
			Version:   e.VersionNumber,
			Score:     e.Value,
			Timestamp: e.CreatedAt,
		}
	}
	return ScoresResponse{Scores: scores}
}

// GameSummary is the short form of a game used in profiles
type GameSummary struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Highscore is one score in a player profile
type Highscore struct {
	Game      GameSummary `json:"game"`
	Score     float64     `json:"score"`
	Timestamp time.Time   `json:"timestamp"`
}

// Profile is a player's public profile
type Profile struct {
	Username            string        `json:"username"`
	RegisteredTimestamp time.Time     `json:"registeredTimestamp"`
	AuthoredGames       []GameSummary `json:"authoredGames"`
	Highscores          []Highscore   `json:"highscores"`
}

// ProfileFromModel converts model.PlayerProfile
func ProfileFromModel(p *model.PlayerProfile) Profile {
	games := make([]GameSummary, len(p.AuthoredGames))
	for i, g := range p.AuthoredGames {
		games[i] = GameSummary(g)
	}
	highscores := make([]Highscore, len(p.Highscores))
	for i, h := range p.Highscores {
		highscores[i] = Highscore{
			Game:      GameSummary(h.Game),
			Score:     h.Value,
			Timestamp: h.CreatedAt,
		}
	}
	return Profile{
		Username:            p.Username,
		RegisteredTimestamp: p.RegisteredAt,
		AuthoredGames:       games,
		Highscores:          highscores,
	}
}

// Principal is the admin view of a principal
type Principal struct {
	Username    string `json:"username"`
	Blocked     bool   `json:"blocked"`
	BlockReason string `json:"blockReason,omitempty"`
}

// PrincipalFromModel converts model.Principal
func PrincipalFromModel(p *model.Principal) Principal {
	return Principal{
		Username:    p.Username,
		Blocked:     p.Blocked,
		BlockReason: p.BlockReason,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
