package content

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/gamehost/internal/model"
	"github.com/mcoot/gamehost/internal/testutil"
)

type StoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	cfg := DefaultConfig()
	cfg.Root = s.T().TempDir()
	store, err := New(cfg, testutil.NopLogger())
	s.Require().NoError(err)
	s.store = store
	s.ctx = context.Background()
}

func (s *StoreSuite) stagingEmpty() bool {
	entries, err := os.ReadDir(filepath.Join(s.store.Root(), stagingDir))
	s.Require().NoError(err)
	return len(entries) == 0
}

func (s *StoreSuite) TestMaterializeExtractsIntoVersionDir() {
	m, err := s.store.Materialize(s.ctx, "pong", 1, testutil.GameZip(s.T(), true))
	s.Require().NoError(err)
	s.True(m.HasThumbnail)
	s.Equal(s.store.VersionDir("pong", 1), m.Dir)

	body, err := os.ReadFile(filepath.Join(m.Dir, "js", "main.js"))
	s.Require().NoError(err)
	s.Equal("console.log('hi')", string(body))
	s.True(s.stagingEmpty())
}

func (s *StoreSuite) TestMaterializeWithoutThumbnail() {
	m, err := s.store.Materialize(s.ctx, "pong", 1, testutil.GameZip(s.T(), false))
	s.Require().NoError(err)
	s.False(m.HasThumbnail)
}

func (s *StoreSuite) TestNestedThumbnailDoesNotCount() {
	archive := testutil.Zip(s.T(), testutil.File("assets/thumbnail.png", "x"))
	m, err := s.store.Materialize(s.ctx, "pong", 1, archive)
	s.Require().NoError(err)
	s.False(m.HasThumbnail)
}

func (s *StoreSuite) TestRejectsTraversal() {
	cases := []string{
		"../../etc/passwd",
		"ok/../../escape.txt",
		"/etc/passwd",
		`..\..\evil.txt`,
	}
	for _, name := range cases {
		s.Run(name, func() {
			archive := testutil.Zip(s.T(), testutil.File("index.html", "x"), testutil.File(name, "pwned"))
			_, err := s.store.Materialize(s.ctx, "pong", 1, archive)
			s.ErrorIs(err, model.ErrInvalidArchive)
			s.ErrorIs(err, model.ErrStorage)
			s.NoDirExists(s.store.VersionDir("pong", 1))
			s.True(s.stagingEmpty())
		})
	}
}

func (s *StoreSuite) TestRejectsSymlinks() {
	archive := testutil.Zip(s.T(), testutil.ZipEntry{Name: "link", Body: "/etc/passwd", Symlink: true})
	_, err := s.store.Materialize(s.ctx, "pong", 1, archive)
	s.ErrorIs(err, model.ErrInvalidArchive)
	s.NoDirExists(s.store.VersionDir("pong", 1))
}

func (s *StoreSuite) TestRejectsEmptyAndCorruptArchives() {
	_, err := s.store.Materialize(s.ctx, "pong", 1, nil)
	s.ErrorIs(err, model.ErrNoArchive)

	_, err = s.store.Materialize(s.ctx, "pong", 1, []byte("not a zip"))
	s.ErrorIs(err, model.ErrInvalidArchive)
	s.True(s.stagingEmpty())
}

func (s *StoreSuite) TestEnforcesLimits() {
	s.store.cfg.MaxEntries = 1
	_, err := s.store.Materialize(s.ctx, "pong", 1, testutil.GameZip(s.T(), false))
	s.ErrorIs(err, model.ErrInvalidArchive)

	s.store.cfg.MaxEntries = 10
	s.store.cfg.MaxTotalBytes = 10
	archive := testutil.Zip(s.T(), testutil.File("big.txt", strings.Repeat("a", 11)))
	_, err = s.store.Materialize(s.ctx, "pong", 1, archive)
	s.ErrorIs(err, model.ErrInvalidArchive)
	s.True(s.stagingEmpty())
}

func (s *StoreSuite) TestCancelledContextRollsBack() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.store.Materialize(ctx, "pong", 1, testutil.GameZip(s.T(), true))
	s.ErrorIs(err, context.Canceled)
	s.NoDirExists(s.store.VersionDir("pong", 1))
	s.True(s.stagingEmpty())
}

func (s *StoreSuite) TestTrashRestoreAndPurge() {
	_, err := s.store.Materialize(s.ctx, "pong", 1, testutil.GameZip(s.T(), false))
	s.Require().NoError(err)
	gameDir := filepath.Join(s.store.Root(), "pong")

	trashed, err := s.store.Trash("pong")
	s.Require().NoError(err)
	s.NoDirExists(gameDir)

	s.Require().NoError(trashed.Restore())
	s.DirExists(s.store.VersionDir("pong", 1))

	trashed, err = s.store.Trash("pong")
	s.Require().NoError(err)
	s.Require().NoError(trashed.Purge())
	s.NoDirExists(gameDir)
	entries, err := os.ReadDir(filepath.Join(s.store.Root(), trashDir))
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *StoreSuite) TestTrashWithoutContent() {
	trashed, err := s.store.Trash("nothing")
	s.Require().NoError(err)
	s.NoError(trashed.Restore())
	s.NoError(trashed.Purge())
}

func (s *StoreSuite) TestRejectsSlugsOutsideGameTree() {
	_, err := s.store.Materialize(s.ctx, "pong", 1, testutil.GameZip(s.T(), false))
	s.Require().NoError(err)
	marker := filepath.Join(s.store.Root(), "pong", "1", "index.html")

	for _, slug := range []string{"", ".", "..", "../pong", "a/b", `a\b`, trashDir, stagingDir} {
		_, err := s.store.Trash(slug)
		s.ErrorIs(err, model.ErrStorage, slug)

		s.ErrorIs(s.store.RemoveVersion(slug, 1), model.ErrStorage, slug)

		_, err = s.store.Materialize(s.ctx, slug, 1, testutil.GameZip(s.T(), false))
		s.ErrorIs(err, model.ErrStorage, slug)
	}
	s.ErrorIs(s.store.RemoveVersion("pong", 0), model.ErrStorage)

	s.DirExists(s.store.Root())
	s.DirExists(filepath.Join(s.store.Root(), stagingDir))
	s.FileExists(marker)
	s.True(s.stagingEmpty())
}

func (s *StoreSuite) TestPublicPaths() {
	s.Equal("/games/pong/3/", ContentPath("pong", 3))
	s.Equal("/games/pong/3/thumbnail.png", ThumbnailPath("pong", 3))
}

func (s *StoreSuite) TestResolveVersionDir() {
	_, err := s.store.Materialize(s.ctx, "pong", 2, testutil.GameZip(s.T(), false))
	s.Require().NoError(err)

	dir, err := s.store.ResolveVersionDir("pong", 2)
	s.Require().NoError(err)
	s.Equal(s.store.VersionDir("pong", 2), dir)

	for _, slug := range []string{"", ".", "..", "../pong", `a\b`, ".staging"} {
		_, err := s.store.ResolveVersionDir(slug, 2)
		s.ErrorIs(err, model.ErrContentNotFound, slug)
	}
	_, err = s.store.ResolveVersionDir("pong", 1)
	s.ErrorIs(err, model.ErrContentNotFound)
	_, err = s.store.ResolveVersionDir("pong", 0)
	s.ErrorIs(err, model.ErrContentNotFound)
}
