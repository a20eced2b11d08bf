package model

import "time"

// ScoreID uniquely identifies a score
type ScoreID uint

// Score is a result achieved under one specific game version
type Score struct {
	ID          ScoreID
	VersionID   VersionID
	PrincipalID PrincipalID
	Value       float64
	CreatedAt   time.Time
}

// ScoreEntry is a score joined with its principal and version number
type ScoreEntry struct {
	ScoreID       ScoreID
	Username      string
	VersionNumber int
	Value         float64
	CreatedAt     time.Time
}

// Highscore is a score joined with the game it was achieved in
type Highscore struct {
	Game      GameSummary
	Value     float64
	CreatedAt time.Time
}

// GameSummary is the minimal public description of a game
type GameSummary struct {
	Slug        string
	Title       string
	Description string
}

// PlayerProfile aggregates what a principal authored and scored
type PlayerProfile struct {
	Username      string
	RegisteredAt  time.Time
	AuthoredGames []GameSummary
	Highscores    []Highscore
}
