package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case TokenResult:
		o.printTokenResult(v)
	case CatalogPage:
		o.printCatalogPage(v)
	case Game:
		o.printGame(v)
	case Version:
		o.printVersion(v)
	case ScoresResult:
		o.printScores(v)
	case Profile:
		o.printProfile(v)
	case Principal:
		o.printPrincipal(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// TokenResult response type (matches API)
type TokenResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SlugResult response type
type SlugResult struct {
	Status string `json:"status"`
	Slug   string `json:"slug"`
}

// CatalogItem response type
type CatalogItem struct {
	Slug            string    `json:"slug"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Thumbnail       *string   `json:"thumbnail"`
	UploadTimestamp time.Time `json:"uploadTimestamp"`
	Author          string    `json:"author"`
	ScoreCount      int64     `json:"scoreCount"`
}

// CatalogPage response type
type CatalogPage struct {
	Page          int           `json:"page"`
	Size          int           `json:"size"`
	TotalElements int64         `json:"totalElements"`
	SortBy        string        `json:"sortBy"`
	SortDir       string        `json:"sortDir"`
	Content       []CatalogItem `json:"content"`
}

// Version response type
type Version struct {
	Version         int       `json:"version"`
	Path            string    `json:"path"`
	Thumbnail       *string   `json:"thumbnail"`
	UploadTimestamp time.Time `json:"uploadTimestamp"`
}

// Game response type
type Game struct {
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Author         string    `json:"author"`
	CurrentVersion *Version  `json:"currentVersion"`
	Versions       []Version `json:"versions"`
}

// Score response type
type Score struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Version   int       `json:"version"`
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// ScoresResult response type
type ScoresResult struct {
	Scores []Score `json:"scores"`
}

// GameSummary response type
type GameSummary struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Highscore response type
type Highscore struct {
	Game      GameSummary `json:"game"`
	Score     float64     `json:"score"`
	Timestamp time.Time   `json:"timestamp"`
}

// Profile response type
type Profile struct {
	Username            string        `json:"username"`
	RegisteredTimestamp time.Time     `json:"registeredTimestamp"`
	AuthoredGames       []GameSummary `json:"authoredGames"`
	Highscores          []Highscore   `json:"highscores"`
}

// Principal response type
type Principal struct {
	Username    string `json:"username"`
	Blocked     bool   `json:"blocked"`
	BlockReason string `json:"blockReason,omitempty"`
}

// HealthResult response type
type HealthResult struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

const timeFormat = "2006-01-02 15:04"

func (o *Output) printTokenResult(t TokenResult) {
	fmt.Fprintf(o.w, "Token: %s\n", t.Token)
	fmt.Fprintf(o.w, "Expires: %s\n", t.ExpiresAt.Local().Format(timeFormat))
}

func (o *Output) printCatalogPage(p CatalogPage) {
	fmt.Fprintf(o.w, "Page %d: %d of %d games (by %s, %s)\n",
		p.Page, p.Size, p.TotalElements, p.SortBy, p.SortDir)
	for _, g := range p.Content {
		fmt.Fprintf(o.w, "  %-24s %-32s by %-16s %4d scores  %s\n",
			g.Slug, g.Title, g.Author, g.ScoreCount, g.UploadTimestamp.Local().Format(timeFormat))
	}
}

func (o *Output) printGame(g Game) {
	fmt.Fprintf(o.w, "Game: %s (%s)\n", g.Title, g.Slug)
	fmt.Fprintf(o.w, "Author: %s\n", g.Author)
	if g.Description != "" {
		fmt.Fprintf(o.w, "Description: %s\n", g.Description)
	}
	if g.CurrentVersion == nil {
		fmt.Fprintln(o.w, "No published versions")
		return
	}
	fmt.Fprintf(o.w, "Versions (%d):\n", len(g.Versions))
	for _, v := range g.Versions {
		current := ""
		if v.Version == g.CurrentVersion.Version {
			current = " [current]"
		}
		fmt.Fprintf(o.w, "  - %d %s%s\n", v.Version, v.Path, current)
	}
}

func (o *Output) printVersion(v Version) {
	fmt.Fprintf(o.w, "Published version %d\n", v.Version)
	fmt.Fprintf(o.w, "Path: %s\n", v.Path)
	if v.Thumbnail != nil {
		fmt.Fprintf(o.w, "Thumbnail: %s\n", *v.Thumbnail)
	}
}

func (o *Output) printScores(s ScoresResult) {
	if len(s.Scores) == 0 {
		fmt.Fprintln(o.w, "No scores")
		return
	}
	for i, sc := range s.Scores {
		fmt.Fprintf(o.w, "%3d. %-16s %12g  (v%d, %s)\n",
			i+1, sc.Username, sc.Score, sc.Version, sc.Timestamp.Local().Format(timeFormat))
	}
}

func (o *Output) printProfile(p Profile) {
	fmt.Fprintf(o.w, "User: %s\n", p.Username)
	fmt.Fprintf(o.w, "Registered: %s\n", p.RegisteredTimestamp.Local().Format(timeFormat))

	fmt.Fprintf(o.w, "Authored games (%d):\n", len(p.AuthoredGames))
	for _, g := range p.AuthoredGames {
		fmt.Fprintf(o.w, "  - %s (%s)\n", g.Title, g.Slug)
	}

	fmt.Fprintf(o.w, "Highscores (%d):\n", len(p.Highscores))
	for _, h := range p.Highscores {
		fmt.Fprintf(o.w, "  - %s: %g\n", h.Game.Title, h.Score)
	}
}

func (o *Output) printPrincipal(p Principal) {
	fmt.Fprintf(o.w, "User: %s\n", p.Username)
	if p.Blocked {
		fmt.Fprintf(o.w, "Blocked: yes (%s)\n", p.BlockReason)
	} else {
		fmt.Fprintln(o.w, "Blocked: no")
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	for name, status := range h.Checks {
		fmt.Fprintf(o.w, "  %s: %s\n", name, status)
	}
}
