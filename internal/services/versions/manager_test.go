package versions

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/gamehost/internal/content"
	"github.com/mcoot/gamehost/internal/dependencies/gamelock"
	"github.com/mcoot/gamehost/internal/dependencies/mocks"
	"github.com/mcoot/gamehost/internal/model"
	"github.com/mcoot/gamehost/internal/storage/memory"
	"github.com/mcoot/gamehost/internal/testutil"
)

// failingStorage refuses to record versions
type failingStorage struct {
	*memory.Storage
}

func (f *failingStorage) CreateVersion(ctx context.Context, v *model.GameVersion) error {
	return errors.New("database is down")
}

type ManagerSuite struct {
	suite.Suite
	storage *memory.Storage
	content *content.Store
	clock   *mocks.MockClock
	locks   *gamelock.Locks
	manager *Manager
	ctx     context.Context

	author   *model.Identity
	stranger *model.Identity
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.ctx = context.Background()
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	cfg := content.DefaultConfig()
	cfg.Root = s.T().TempDir()
	store, err := content.New(cfg, testutil.NopLogger())
	s.Require().NoError(err)
	s.content = store

	s.locks = gamelock.New()
	s.manager = New(s.storage, s.content, s.locks, s.clock, testutil.NopLogger())

	alice := &model.Principal{Username: "alice"}
	s.Require().NoError(s.storage.CreatePrincipal(s.ctx, alice))
	bob := &model.Principal{Username: "bobby"}
	s.Require().NoError(s.storage.CreatePrincipal(s.ctx, bob))
	s.author = &model.Identity{PrincipalID: alice.ID, Username: alice.Username}
	s.stranger = &model.Identity{PrincipalID: bob.ID, Username: bob.Username}

	s.Require().NoError(s.storage.CreateGame(s.ctx, &model.Game{Slug: "my-game", Title: "My Game", AuthorID: alice.ID}))
}

func (s *ManagerSuite) TestPublishFirstVersion() {
	v, err := s.manager.PublishVersion(s.ctx, s.author, "my-game", testutil.GameZip(s.T(), true))
	s.Require().NoError(err)

	s.Equal(1, v.Number)
	s.Equal("/games/my-game/1/", v.ContentPath)
	s.Equal("/games/my-game/1/thumbnail.png", v.ThumbnailPath)
	s.Equal(s.clock.Now(), v.CreatedAt)
	s.FileExists(filepath.Join(s.content.VersionDir("my-game", 1), "index.html"))
}

func (s *ManagerSuite) TestPublishThenCurrentVersionRoundTrip() {
	_, err := s.manager.PublishVersion(s.ctx, s.author, "my-game", testutil.GameZip(s.T(), false))
	s.Require().NoError(err)
	published, err := s.manager.PublishVersion(s.ctx, s.author, "my-game", testutil.GameZip(s.T(), false))
	s.Require().NoError(err)
	s.Equal(2, published.Number)
	s.Empty(published.ThumbnailPath)

	current, err := s.manager.CurrentVersion(s.ctx, "my-game")
	s.Require().NoError(err)
	s.Equal(published.ID, current.ID)
	s.Equal(published.ContentPath, current.ContentPath)

	versions, err := s.manager.ListVersions(s.ctx, "my-game")
	s.Require().NoError(err)
	s.Len(versions, 2)
}

func (s *ManagerSuite) TestPublishRequiresAuthor() {
	_, err := s.manager.PublishVersion(s.ctx, s.stranger, "my-game", testutil.GameZip(s.T(), false))
	s.ErrorIs(err, model.ErrNotGameAuthor)
	s.ErrorIs(err, model.ErrForbidden)
	s.NoDirExists(filepath.Join(s.content.Root(), "my-game"))
}

func (s *ManagerSuite) TestPublishUnknownGame() {
	_, err := s.manager.PublishVersion(s.ctx, s.author, "nope", testutil.GameZip(s.T(), false))
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *ManagerSuite) TestPublishWithoutArchive() {
	_, err := s.manager.PublishVersion(s.ctx, s.author, "my-game", nil)
	s.ErrorIs(err, model.ErrNoArchive)
}

func (s *ManagerSuite) TestTraversalArchiveLeavesNothingBehind() {
	archive := testutil.Zip(s.T(),
		testutil.File("index.html", "ok"),
		testutil.File("../../etc/passwd", "root:x:0:0"),
	)

	_, err := s.manager.PublishVersion(s.ctx, s.author, "my-game", archive)
	s.ErrorIs(err, model.ErrInvalidArchive)
	s.ErrorIs(err, model.ErrStorage)

	s.NoDirExists(s.content.VersionDir("my-game", 1))
	_, err = s.manager.CurrentVersion(s.ctx, "my-game")
	s.ErrorIs(err, model.ErrVersionNotFound)

	// the number was not consumed
	v, err := s.manager.PublishVersion(s.ctx, s.author, "my-game", testutil.GameZip(s.T(), false))
	s.Require().NoError(err)
	s.Equal(1, v.Number)
}

func (s *ManagerSuite) TestRecordFailureRemovesContent() {
	manager := New(&failingStorage{s.storage}, s.content, s.locks, s.clock, testutil.NopLogger())

	_, err := manager.PublishVersion(s.ctx, s.author, "my-game", testutil.GameZip(s.T(), false))
	s.Error(err)
	s.NoDirExists(s.content.VersionDir("my-game", 1))
}

func (s *ManagerSuite) TestConcurrentPublishesAreContiguous() {
	const n = 12

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.manager.PublishVersion(s.ctx, s.author, "my-game", testutil.GameZip(s.T(), false))
			if !s.NoError(err) {
				return
			}
			mu.Lock()
			numbers = append(numbers, v.Number)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Ints(numbers)
	expected := make([]int, n)
	for i := range expected {
		expected[i] = i + 1
	}
	s.Equal(expected, numbers)

	entries, err := os.ReadDir(filepath.Join(s.content.Root(), "my-game"))
	s.Require().NoError(err)
	s.Len(entries, n)
}

func (s *ManagerSuite) TestPublishAfterConcurrentDelete() {
	game, err := s.storage.GetGameBySlug(s.ctx, "my-game")
	s.Require().NoError(err)

	unlock, err := s.locks.Lock(s.ctx, game.ID)
	s.Require().NoError(err)

	done := make(chan error, 1)
	go func() {
		_, err := s.manager.PublishVersion(s.ctx, s.author, "my-game", testutil.GameZip(s.T(), false))
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)

	s.Require().NoError(s.storage.DeleteGame(s.ctx, game.ID))
	unlock()

	s.ErrorIs(<-done, model.ErrGameNotFound)
	s.NoDirExists(filepath.Join(s.content.Root(), "my-game"))
	s.Zero(s.locks.Held())
}

func (s *ManagerSuite) TestPublishHonoursCancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.manager.PublishVersion(ctx, s.author, "my-game", testutil.GameZip(s.T(), false))
	s.ErrorIs(err, context.Canceled)
	s.NoDirExists(s.content.VersionDir("my-game", 1))
}

func (s *ManagerSuite) TestResolveContent() {
	_, err := s.manager.PublishVersion(s.ctx, s.author, "my-game", testutil.GameZip(s.T(), false))
	s.Require().NoError(err)
	_, err = s.manager.PublishVersion(s.ctx, s.author, "my-game", testutil.GameZip(s.T(), true))
	s.Require().NoError(err)

	dir, v, err := s.manager.ResolveContent(s.ctx, "my-game", "latest")
	s.Require().NoError(err)
	s.Equal(2, v.Number)
	s.Equal(s.content.VersionDir("my-game", 2), dir)

	dir, v, err = s.manager.ResolveContent(s.ctx, "my-game", "1")
	s.Require().NoError(err)
	s.Equal(1, v.Number)
	s.Equal(s.content.VersionDir("my-game", 1), dir)

	for _, spec := range []string{"3", "0", "-1", "abc", "1.5"} {
		_, _, err = s.manager.ResolveContent(s.ctx, "my-game", spec)
		s.ErrorIs(err, model.ErrNotFound, spec)
	}
}

func (s *ManagerSuite) TestLocksAreReleased() {
	_, err := s.manager.PublishVersion(s.ctx, s.author, "my-game", testutil.GameZip(s.T(), false))
	s.Require().NoError(err)
	s.Zero(s.locks.Held())
}
