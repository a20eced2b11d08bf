package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/gamehost/internal/model"
	"github.com/mcoot/gamehost/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	principals    map[model.PrincipalID]*model.Principal
	usernameIndex map[string]model.PrincipalID
	tokens        map[string]*model.TokenRecord
	tokenIndex    map[model.PrincipalID]string
	games         map[model.GameID]*model.Game
	slugIndex     map[string]model.GameID
	versions      map[model.GameID][]*model.GameVersion
	scores        map[model.VersionID][]*model.Score

	nextPrincipalID model.PrincipalID
	nextGameID      model.GameID
	nextVersionID   model.VersionID
	nextScoreID     model.ScoreID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		principals:    make(map[model.PrincipalID]*model.Principal),
		usernameIndex: make(map[string]model.PrincipalID),
		tokens:        make(map[string]*model.TokenRecord),
		tokenIndex:    make(map[model.PrincipalID]string),
		games:         make(map[model.GameID]*model.Game),
		slugIndex:     make(map[string]model.GameID),
		versions:      make(map[model.GameID][]*model.GameVersion),
		scores:        make(map[model.VersionID][]*model.Score),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Principal operations

func (s *Storage) CreatePrincipal(ctx context.Context, p *model.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.usernameIndex[p.Username]; ok {
		return model.ErrUsernameExists
	}
	s.nextPrincipalID++
	p.ID = s.nextPrincipalID
	cp := *p
	s.principals[p.ID] = &cp
	s.usernameIndex[p.Username] = p.ID
	return nil
}

func (s *Storage) GetPrincipal(ctx context.Context, id model.PrincipalID) (*model.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.principals[id]
	if !ok {
		return nil, model.ErrPrincipalNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Storage) GetPrincipalByUsername(ctx context.Context, username string) (*model.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrPrincipalNotFound
	}
	cp := *s.principals[id]
	return &cp, nil
}

func (s *Storage) UpdateLastLogin(ctx context.Context, id model.PrincipalID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.principals[id]
	if !ok {
		return model.ErrPrincipalNotFound
	}
	p.LastLoginAt = &at
	return nil
}

func (s *Storage) SetBlocked(ctx context.Context, username string, blocked bool, reason string) (*model.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrPrincipalNotFound
	}
	p := s.principals[id]
	p.Blocked = blocked
	p.BlockReason = ""
	if blocked {
		p.BlockReason = reason
	}
	cp := *p
	return &cp, nil
}

// Token operations

func (s *Storage) ReplaceToken(ctx context.Context, rec *model.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.tokenIndex[rec.PrincipalID]; ok {
		delete(s.tokens, old)
	}
	cp := *rec
	s.tokens[rec.Token] = &cp
	s.tokenIndex[rec.PrincipalID] = rec.Token
	return nil
}

func (s *Storage) GetToken(ctx context.Context, token string) (*model.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.tokens[token]
	if !ok {
		return nil, model.ErrTokenNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *Storage) DeleteToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tokens[token]
	if !ok {
		return nil
	}
	delete(s.tokens, token)
	if s.tokenIndex[rec.PrincipalID] == token {
		delete(s.tokenIndex, rec.PrincipalID)
	}
	return nil
}

func (s *Storage) DeleteTokensForPrincipal(ctx context.Context, id model.PrincipalID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok, ok := s.tokenIndex[id]; ok {
		delete(s.tokens, tok)
		delete(s.tokenIndex, id)
	}
	return nil
}

func (s *Storage) DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for tok, rec := range s.tokens {
		if !rec.ExpiresAt.After(before) {
			delete(s.tokens, tok)
			if s.tokenIndex[rec.PrincipalID] == tok {
				delete(s.tokenIndex, rec.PrincipalID)
			}
			n++
		}
	}
	return n, nil
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, game *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slugIndex[game.Slug]; ok {
		return model.ErrSlugExists
	}
	s.nextGameID++
	game.ID = s.nextGameID
	cp := *game
	s.games[game.ID] = &cp
	s.slugIndex[game.Slug] = game.ID
	return nil
}

func (s *Storage) GetGameBySlug(ctx context.Context, slug string) (*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.slugIndex[slug]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return s.gameCopy(id), nil
}

func (s *Storage) UpdateGame(ctx context.Context, game *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[game.ID]
	if !ok {
		return model.ErrGameNotFound
	}
	g.Title = game.Title
	g.Description = game.Description
	g.UpdatedAt = game.UpdatedAt
	return nil
}

func (s *Storage) DeleteGame(ctx context.Context, id model.GameID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return model.ErrGameNotFound
	}
	for _, v := range s.versions[id] {
		delete(s.scores, v.ID)
	}
	delete(s.versions, id)
	delete(s.slugIndex, g.Slug)
	delete(s.games, id)
	return nil
}

func (s *Storage) ListGamesByAuthor(ctx context.Context, id model.PrincipalID) ([]*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var games []*model.Game
	for gid, g := range s.games {
		if g.AuthorID == id {
			games = append(games, s.gameCopy(gid))
		}
	}
	sort.Slice(games, func(i, j int) bool { return games[i].Slug < games[j].Slug })
	return games, nil
}

// gameCopy returns a detached copy with the author username resolved.
// Callers must hold the lock.
func (s *Storage) gameCopy(id model.GameID) *model.Game {
	cp := *s.games[id]
	if p, ok := s.principals[cp.AuthorID]; ok {
		cp.AuthorUsername = p.Username
	}
	return &cp
}

// Version operations

func (s *Storage) MaxVersionNumber(ctx context.Context, id model.GameID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxVersion(id), nil
}

func (s *Storage) maxVersion(id model.GameID) int {
	max := 0
	for _, v := range s.versions[id] {
		if v.Number > max {
			max = v.Number
		}
	}
	return max
}

func (s *Storage) CreateVersion(ctx context.Context, v *model.GameVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[v.GameID]; !ok {
		return model.ErrGameNotFound
	}
	for _, existing := range s.versions[v.GameID] {
		if existing.Number == v.Number {
			return model.ErrVersionConflict
		}
	}
	s.nextVersionID++
	v.ID = s.nextVersionID
	cp := *v
	s.versions[v.GameID] = append(s.versions[v.GameID], &cp)
	return nil
}

func (s *Storage) GetVersion(ctx context.Context, id model.GameID, number int) (*model.GameVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.versions[id] {
		if v.Number == number {
			cp := *v
			return &cp, nil
		}
	}
	return nil, model.ErrVersionNotFound
}

func (s *Storage) GetCurrentVersion(ctx context.Context, id model.GameID) (*model.GameVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := s.currentVersion(id)
	if v == nil {
		return nil, model.ErrVersionNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *Storage) currentVersion(id model.GameID) *model.GameVersion {
	var current *model.GameVersion
	for _, v := range s.versions[id] {
		if current == nil || v.Number > current.Number {
			current = v
		}
	}
	return current
}

func (s *Storage) ListVersions(ctx context.Context, id model.GameID) ([]*model.GameVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := make([]*model.GameVersion, 0, len(s.versions[id]))
	for _, v := range s.versions[id] {
		cp := *v
		versions = append(versions, &cp)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Number < versions[j].Number })
	return versions, nil
}

// Score operations

func (s *Storage) CreateScore(ctx context.Context, score *model.Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.versionExists(score.VersionID) {
		return model.ErrVersionNotFound
	}
	s.nextScoreID++
	score.ID = s.nextScoreID
	cp := *score
	s.scores[score.VersionID] = append(s.scores[score.VersionID], &cp)
	return nil
}

func (s *Storage) versionExists(id model.VersionID) bool {
	for _, versions := range s.versions {
		for _, v := range versions {
			if v.ID == id {
				return true
			}
		}
	}
	return false
}

func (s *Storage) ListScoresForGame(ctx context.Context, id model.GameID) ([]model.ScoreEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := []model.ScoreEntry{}
	for _, v := range s.versions[id] {
		for _, sc := range s.scores[v.ID] {
			entries = append(entries, model.ScoreEntry{
				ScoreID:       sc.ID,
				Username:      s.usernameOf(sc.PrincipalID),
				VersionNumber: v.Number,
				Value:         sc.Value,
				CreatedAt:     sc.CreatedAt,
			})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ScoreID < b.ScoreID
	})
	return entries, nil
}

func (s *Storage) usernameOf(id model.PrincipalID) string {
	if p, ok := s.principals[id]; ok {
		return p.Username
	}
	return ""
}

func (s *Storage) ListHighscoresForPrincipal(ctx context.Context, id model.PrincipalID) ([]model.Highscore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	highscores := []model.Highscore{}
	for gid, versions := range s.versions {
		g := s.games[gid]
		for _, v := range versions {
			for _, sc := range s.scores[v.ID] {
				if sc.PrincipalID != id {
					continue
				}
				highscores = append(highscores, model.Highscore{
					Game:      model.GameSummary{Slug: g.Slug, Title: g.Title, Description: g.Description},
					Value:     sc.Value,
					CreatedAt: sc.CreatedAt,
				})
			}
		}
	}
	sort.SliceStable(highscores, func(i, j int) bool {
		a, b := highscores[i], highscores[j]
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return highscores, nil
}

// Catalog operations

func (s *Storage) ListCatalog(ctx context.Context, q storage.CatalogQuery) ([]model.CatalogEntry, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]model.CatalogEntry, 0, len(s.games))
	for id, g := range s.games {
		current := s.currentVersion(id)
		if current == nil {
			continue
		}
		var count int64
		for _, v := range s.versions[id] {
			count += int64(len(s.scores[v.ID]))
		}
		entries = append(entries, model.CatalogEntry{
			Slug:           g.Slug,
			Title:          g.Title,
			Description:    g.Description,
			AuthorUsername: s.usernameOf(g.AuthorID),
			ThumbnailPath:  current.ThumbnailPath,
			LatestUpload:   current.CreatedAt,
			ScoreCount:     count,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		c := compareEntries(entries[i], entries[j], q.SortBy)
		if c == 0 {
			return entries[i].Slug < entries[j].Slug
		}
		if q.Descending {
			return c > 0
		}
		return c < 0
	})

	total := int64(len(entries))
	if q.Offset < 0 || q.Offset >= len(entries) {
		return []model.CatalogEntry{}, total, nil
	}
	end := len(entries)
	if q.Limit < end-q.Offset {
		end = q.Offset + q.Limit
	}
	return entries[q.Offset:end], total, nil
}

func compareEntries(a, b model.CatalogEntry, key storage.SortKey) int {
	switch key {
	case storage.SortByPopularity:
		switch {
		case a.ScoreCount < b.ScoreCount:
			return -1
		case a.ScoreCount > b.ScoreCount:
			return 1
		}
		return 0
	case storage.SortByUploadDate:
		return a.LatestUpload.Compare(b.LatestUpload)
	default:
		return strings.Compare(a.Title, b.Title)
	}
}
