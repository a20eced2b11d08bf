package scores

import (
	"context"
	"log/slog"
	"math"

	"github.com/mcoot/gamehost/internal/dependencies/clock"
	"github.com/mcoot/gamehost/internal/metrics"
	"github.com/mcoot/gamehost/internal/model"
	"github.com/mcoot/gamehost/internal/storage"
)

// Service aggregates scores into leaderboards and player profiles
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new score service
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		logger:  logger,
	}
}

// ListScores returns every score of a game across all of its versions,
// best first. Equal values keep submission order.
func (s *Service) ListScores(ctx context.Context, slug string) ([]model.ScoreEntry, error) {
	game, err := s.storage.GetGameBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.storage.ListScoresForGame(ctx, game.ID)
}

// GetPlayerProfile returns the games a principal authored and every score
// they recorded, best first
func (s *Service) GetPlayerProfile(ctx context.Context, username string) (*model.PlayerProfile, error) {
	p, err := s.storage.GetPrincipalByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	games, err := s.storage.ListGamesByAuthor(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	highscores, err := s.storage.ListHighscoresForPrincipal(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	profile := &model.PlayerProfile{
		Username:      p.Username,
		RegisteredAt:  p.RegisteredAt,
		AuthoredGames: make([]model.GameSummary, 0, len(games)),
		Highscores:    highscores,
	}
	for _, g := range games {
		profile.AuthoredGames = append(profile.AuthoredGames, model.GameSummary{
			Slug:        g.Slug,
			Title:       g.Title,
			Description: g.Description,
		})
	}
	if profile.Highscores == nil {
		profile.Highscores = []model.Highscore{}
	}
	return profile, nil
}

// SubmitScore records value for identity against the game's current version
func (s *Service) SubmitScore(ctx context.Context, identity *model.Identity, slug string, value float64) (*model.Score, error) {
	if identity == nil {
		return nil, model.ErrUnauthenticated
	}
	if identity.Blocked {
		return nil, model.ErrPrincipalBlocked
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, model.ErrInvalidScore
	}

	game, err := s.storage.GetGameBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	current, err := s.storage.GetCurrentVersion(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	score := &model.Score{
		VersionID:   current.ID,
		PrincipalID: identity.PrincipalID,
		Value:       value,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.storage.CreateScore(ctx, score); err != nil {
		s.logger.Error("failed to record score", "slug", slug, "principal_id", identity.PrincipalID, "error", err)
		return nil, err
	}

	metrics.ScoreSubmitted()
	s.logger.Debug("score recorded", "slug", slug, "version", current.Number, "value", value)
	return score, nil
}
