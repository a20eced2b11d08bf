package sqlstore

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/gamehost/internal/model"
	"github.com/mcoot/gamehost/internal/storage"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
	now     time.Time
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	name := strings.ReplaceAll(s.T().Name(), "/", "_")
	st, err := Open(Config{
		Driver: DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	s.Require().NoError(err)
	s.storage = st
	s.ctx = context.Background()
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
}

func (s *StorageSuite) createPrincipal(username string) *model.Principal {
	p := &model.Principal{Username: username, PasswordHash: "hash", RegisteredAt: s.now}
	s.Require().NoError(s.storage.CreatePrincipal(s.ctx, p))
	return p
}

func (s *StorageSuite) createGame(author *model.Principal, slug, title string) *model.Game {
	g := &model.Game{Slug: slug, Title: title, AuthorID: author.ID, CreatedAt: s.now, UpdatedAt: s.now}
	s.Require().NoError(s.storage.CreateGame(s.ctx, g))
	return g
}

func (s *StorageSuite) createVersion(g *model.Game, number int, at time.Time) *model.GameVersion {
	v := &model.GameVersion{
		GameID:      g.ID,
		Number:      number,
		ContentPath: fmt.Sprintf("/games/%s/%d/", g.Slug, number),
		CreatedAt:   at,
	}
	s.Require().NoError(s.storage.CreateVersion(s.ctx, v))
	return v
}

func (s *StorageSuite) TestOpenRejectsUnknownDriver() {
	_, err := Open(Config{Driver: "oracle"})
	s.Error(err)
}

// Principal tests

func (s *StorageSuite) TestPrincipalRoundTrip() {
	p := s.createPrincipal("alice")
	s.NotZero(p.ID)

	got, err := s.storage.GetPrincipalByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)
	s.Equal("hash", got.PasswordHash)
	s.Nil(got.LastLoginAt)

	s.Require().NoError(s.storage.UpdateLastLogin(s.ctx, p.ID, s.now))
	got, err = s.storage.GetPrincipal(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.LastLoginAt)
	s.True(got.LastLoginAt.Equal(s.now))
}

func (s *StorageSuite) TestDuplicateUsername() {
	s.createPrincipal("alice")
	err := s.storage.CreatePrincipal(s.ctx, &model.Principal{Username: "alice", PasswordHash: "x"})
	s.ErrorIs(err, model.ErrUsernameExists)
}

func (s *StorageSuite) TestPrincipalNotFound() {
	_, err := s.storage.GetPrincipal(s.ctx, 42)
	s.ErrorIs(err, model.ErrPrincipalNotFound)

	_, err = s.storage.SetBlocked(s.ctx, "nobody", true, "")
	s.ErrorIs(err, model.ErrPrincipalNotFound)
}

func (s *StorageSuite) TestSetBlocked() {
	s.createPrincipal("alice")

	p, err := s.storage.SetBlocked(s.ctx, "alice", true, "cheating")
	s.Require().NoError(err)
	s.True(p.Blocked)

	got, err := s.storage.GetPrincipalByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.True(got.Blocked)
	s.Equal("cheating", got.BlockReason)

	_, err = s.storage.SetBlocked(s.ctx, "alice", false, "")
	s.Require().NoError(err)
	got, err = s.storage.GetPrincipalByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.False(got.Blocked)
}

// Token tests

func (s *StorageSuite) TestReplaceTokenKeepsOneRowPerPrincipal() {
	p := s.createPrincipal("alice")

	s.Require().NoError(s.storage.ReplaceToken(s.ctx, &model.TokenRecord{Token: "t1", PrincipalID: p.ID, ExpiresAt: s.now.Add(time.Hour), CreatedAt: s.now}))
	s.Require().NoError(s.storage.ReplaceToken(s.ctx, &model.TokenRecord{Token: "t2", PrincipalID: p.ID, ExpiresAt: s.now.Add(time.Hour), CreatedAt: s.now}))

	_, err := s.storage.GetToken(s.ctx, "t1")
	s.ErrorIs(err, model.ErrTokenNotFound)

	rec, err := s.storage.GetToken(s.ctx, "t2")
	s.Require().NoError(err)
	s.Equal(p.ID, rec.PrincipalID)
}

func (s *StorageSuite) TestConcurrentReplaceToken() {
	p := s.createPrincipal("alice")

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(s.storage.ReplaceToken(s.ctx, &model.TokenRecord{
				Token:       fmt.Sprintf("tok-%d", i),
				PrincipalID: p.ID,
				ExpiresAt:   s.now.Add(time.Hour),
				CreatedAt:   s.now,
			}))
		}()
	}
	wg.Wait()

	var n int64
	s.Require().NoError(s.storage.db.Model(&tokenRow{}).Where("principal_id = ?", uint(p.ID)).Count(&n).Error)
	s.Equal(int64(1), n)
}

func (s *StorageSuite) TestDeleteTokens() {
	alice := s.createPrincipal("alice")
	bob := s.createPrincipal("bobby")
	s.Require().NoError(s.storage.ReplaceToken(s.ctx, &model.TokenRecord{Token: "a", PrincipalID: alice.ID, ExpiresAt: s.now.Add(-time.Second)}))
	s.Require().NoError(s.storage.ReplaceToken(s.ctx, &model.TokenRecord{Token: "b", PrincipalID: bob.ID, ExpiresAt: s.now.Add(time.Hour)}))

	n, err := s.storage.DeleteExpiredTokens(s.ctx, s.now)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	s.NoError(s.storage.DeleteToken(s.ctx, "missing"))
	s.Require().NoError(s.storage.DeleteTokensForPrincipal(s.ctx, bob.ID))
	_, err = s.storage.GetToken(s.ctx, "b")
	s.ErrorIs(err, model.ErrTokenNotFound)
}

// Game and version tests

func (s *StorageSuite) TestGameRoundTrip() {
	alice := s.createPrincipal("alice")
	g := s.createGame(alice, "space-race", "Space Race")

	got, err := s.storage.GetGameBySlug(s.ctx, "space-race")
	s.Require().NoError(err)
	s.NotZero(got.ID)
	s.Equal(g.ID, got.ID)
	s.Equal("space-race", got.Slug)
	s.Equal("Space Race", got.Title)
	s.Equal(alice.ID, got.AuthorID)
	s.Equal("alice", got.AuthorUsername)
	s.False(got.CreatedAt.IsZero())

	authored, err := s.storage.ListGamesByAuthor(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Require().Len(authored, 1)
	s.Equal(g.ID, authored[0].ID)
	s.Equal("space-race", authored[0].Slug)

	got.Title = "Space Race 2"
	got.Description = "now with more space"
	s.Require().NoError(s.storage.UpdateGame(s.ctx, got))

	got, err = s.storage.GetGameBySlug(s.ctx, "space-race")
	s.Require().NoError(err)
	s.Equal("Space Race 2", got.Title)

	_, err = s.storage.GetGameBySlug(s.ctx, "nope")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *StorageSuite) TestDuplicateSlug() {
	alice := s.createPrincipal("alice")
	s.createGame(alice, "pong", "Pong")
	err := s.storage.CreateGame(s.ctx, &model.Game{Slug: "pong", Title: "Pong", AuthorID: alice.ID})
	s.ErrorIs(err, model.ErrSlugExists)
}

func (s *StorageSuite) TestVersions() {
	alice := s.createPrincipal("alice")
	g := s.createGame(alice, "pong", "Pong")

	max, err := s.storage.MaxVersionNumber(s.ctx, g.ID)
	s.Require().NoError(err)
	s.Equal(0, max)

	s.createVersion(g, 1, s.now)
	s.createVersion(g, 2, s.now.Add(time.Minute))

	err = s.storage.CreateVersion(s.ctx, &model.GameVersion{GameID: g.ID, Number: 2})
	s.ErrorIs(err, model.ErrVersionConflict)

	max, err = s.storage.MaxVersionNumber(s.ctx, g.ID)
	s.Require().NoError(err)
	s.Equal(2, max)

	current, err := s.storage.GetCurrentVersion(s.ctx, g.ID)
	s.Require().NoError(err)
	s.Equal(2, current.Number)

	v1, err := s.storage.GetVersion(s.ctx, g.ID, 1)
	s.Require().NoError(err)
	s.Equal("/games/pong/1/", v1.ContentPath)

	_, err = s.storage.GetVersion(s.ctx, g.ID, 3)
	s.ErrorIs(err, model.ErrVersionNotFound)

	versions, err := s.storage.ListVersions(s.ctx, g.ID)
	s.Require().NoError(err)
	s.Len(versions, 2)
}

func (s *StorageSuite) TestCreateVersionRequiresGame() {
	err := s.storage.CreateVersion(s.ctx, &model.GameVersion{GameID: 42, Number: 1, ContentPath: "/games/gone/1/"})
	s.ErrorIs(err, model.ErrGameNotFound)

	var n int64
	s.Require().NoError(s.storage.db.Model(&versionRow{}).Count(&n).Error)
	s.Zero(n)
}

func (s *StorageSuite) TestDeleteGameCascades() {
	alice := s.createPrincipal("alice")
	g := s.createGame(alice, "pong", "Pong")
	v := s.createVersion(g, 1, s.now)
	s.Require().NoError(s.storage.CreateScore(s.ctx, &model.Score{VersionID: v.ID, PrincipalID: alice.ID, Value: 3, CreatedAt: s.now}))

	s.Require().NoError(s.storage.DeleteGame(s.ctx, g.ID))

	var n int64
	s.Require().NoError(s.storage.db.Model(&scoreRow{}).Count(&n).Error)
	s.Zero(n)
	s.Require().NoError(s.storage.db.Model(&versionRow{}).Count(&n).Error)
	s.Zero(n)

	s.ErrorIs(s.storage.DeleteGame(s.ctx, g.ID), model.ErrGameNotFound)
}

// Score tests

func (s *StorageSuite) TestScoresAreOrderedDeterministically() {
	alice := s.createPrincipal("alice")
	bob := s.createPrincipal("bobby")
	g := s.createGame(alice, "pong", "Pong")
	v1 := s.createVersion(g, 1, s.now)
	v2 := s.createVersion(g, 2, s.now)

	s.Require().NoError(s.storage.CreateScore(s.ctx, &model.Score{VersionID: v1.ID, PrincipalID: alice.ID, Value: 10, CreatedAt: s.now.Add(time.Minute)}))
	s.Require().NoError(s.storage.CreateScore(s.ctx, &model.Score{VersionID: v2.ID, PrincipalID: bob.ID, Value: 10, CreatedAt: s.now}))
	s.Require().NoError(s.storage.CreateScore(s.ctx, &model.Score{VersionID: v2.ID, PrincipalID: alice.ID, Value: 99, CreatedAt: s.now}))

	entries, err := s.storage.ListScoresForGame(s.ctx, g.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal(99.0, entries[0].Value)
	s.Equal("bobby", entries[1].Username)
	s.Equal(2, entries[1].VersionNumber)
	s.Equal("alice", entries[2].Username)
	s.Equal(1, entries[2].VersionNumber)

	highscores, err := s.storage.ListHighscoresForPrincipal(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Require().Len(highscores, 2)
	s.Equal(99.0, highscores[0].Value)
	s.Equal("pong", highscores[0].Game.Slug)
}

func (s *StorageSuite) TestCreateScoreRequiresVersion() {
	alice := s.createPrincipal("alice")
	err := s.storage.CreateScore(s.ctx, &model.Score{VersionID: 7, PrincipalID: alice.ID, Value: 1})
	s.ErrorIs(err, model.ErrVersionNotFound)
}

// Catalog tests

func (s *StorageSuite) TestCatalog() {
	alice := s.createPrincipal("alice")
	a := s.createGame(alice, "alpha", "Alpha")
	b := s.createGame(alice, "bravo", "Bravo")
	c := s.createGame(alice, "charlie", "Charlie")
	s.createGame(alice, "unpublished", "Unpublished")

	s.createVersion(a, 1, s.now.Add(2*time.Hour))
	vb := s.createVersion(b, 1, s.now)
	s.createVersion(c, 1, s.now.Add(time.Hour))
	thumb := &model.GameVersion{GameID: b.ID, Number: 2, ContentPath: "/games/bravo/2/", ThumbnailPath: "/games/bravo/2/thumbnail.png", CreatedAt: s.now.Add(time.Minute)}
	s.Require().NoError(s.storage.CreateVersion(s.ctx, thumb))

	s.Require().NoError(s.storage.CreateScore(s.ctx, &model.Score{VersionID: vb.ID, PrincipalID: alice.ID, Value: 1, CreatedAt: s.now}))
	s.Require().NoError(s.storage.CreateScore(s.ctx, &model.Score{VersionID: thumb.ID, PrincipalID: alice.ID, Value: 2, CreatedAt: s.now}))

	list := func(q storage.CatalogQuery) ([]model.CatalogEntry, []string) {
		if q.Limit == 0 {
			q.Limit = 10
		}
		entries, total, err := s.storage.ListCatalog(s.ctx, q)
		s.Require().NoError(err)
		s.Equal(int64(3), total)
		slugs := make([]string, 0, len(entries))
		for _, e := range entries {
			slugs = append(slugs, e.Slug)
		}
		return entries, slugs
	}

	entries, slugs := list(storage.CatalogQuery{SortBy: storage.SortByTitle})
	s.Equal([]string{"alpha", "bravo", "charlie"}, slugs)
	s.Equal("/games/bravo/2/thumbnail.png", entries[1].ThumbnailPath)
	s.Equal(int64(2), entries[1].ScoreCount)
	s.Empty(entries[0].ThumbnailPath)
	s.Equal("alice", entries[0].AuthorUsername)

	_, slugs = list(storage.CatalogQuery{SortBy: storage.SortByPopularity, Descending: true})
	s.Equal([]string{"bravo", "alpha", "charlie"}, slugs)

	_, slugs = list(storage.CatalogQuery{SortBy: storage.SortByUploadDate, Descending: true})
	s.Equal([]string{"alpha", "charlie", "bravo"}, slugs)

	_, slugs = list(storage.CatalogQuery{SortBy: storage.SortByTitle, Offset: 2, Limit: 2})
	s.Equal([]string{"charlie"}, slugs)

	_, slugs = list(storage.CatalogQuery{SortBy: storage.SortByTitle, Offset: -4, Limit: 2})
	s.Empty(slugs)

	_, slugs = list(storage.CatalogQuery{SortBy: storage.SortByTitle, Offset: math.MaxInt - 10, Limit: 10})
	s.Empty(slugs)
}

func (s *StorageSuite) TestPing() {
	s.NoError(s.storage.Ping(s.ctx))

	s.Require().NoError(s.storage.Close())
	s.Error(s.storage.Ping(s.ctx))
	s.storage = nil
}
