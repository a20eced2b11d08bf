package content

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mcoot/gamehost/internal/model"
)

// ThumbnailName is the file at a content root used as the catalog thumbnail
const ThumbnailName = "thumbnail.png"

const (
	stagingDir = ".staging"
	trashDir   = ".trash"
)

// Config holds content storage settings
type Config struct {
	// Root is the directory holding one sub-directory per game slug
	Root string

	// Extraction limits
	MaxEntries      int
	MaxTotalBytes   int64
	MaxArchiveBytes int64
}

// DefaultConfig returns sensible defaults for content storage
func DefaultConfig() Config {
	return Config{
		Root:            "data/games",
		MaxEntries:      10000,
		MaxTotalBytes:   512 << 20,
		MaxArchiveBytes: 128 << 20,
	}
}

// Store manages extracted version content on the local filesystem.
// Layout: <root>/<slug>/<number>/...
type Store struct {
	cfg    Config
	logger *slog.Logger
}

// New creates the content root if needed
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, err
	}
	cfg.Root = root
	if err := os.MkdirAll(filepath.Join(root, stagingDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create content root: %w", err)
	}
	return &Store{cfg: cfg, logger: logger}, nil
}

// Root returns the absolute content root
func (s *Store) Root() string {
	return s.cfg.Root
}

// MaxArchiveBytes returns the largest accepted upload
func (s *Store) MaxArchiveBytes() int64 {
	return s.cfg.MaxArchiveBytes
}

// ContentPath returns the public path of a version's content root
func ContentPath(slug string, number int) string {
	return fmt.Sprintf("/games/%s/%d/", slug, number)
}

// ThumbnailPath returns the public path of a version's thumbnail
func ThumbnailPath(slug string, number int) string {
	return ContentPath(slug, number) + ThumbnailName
}

// VersionDir returns the filesystem directory of a version
func (s *Store) VersionDir(slug string, number int) string {
	return filepath.Join(s.cfg.Root, slug, strconv.Itoa(number))
}

// singleSegment reports whether slug names exactly one game directory under
// the content root. Dot-prefixed names are reserved for staging and trash.
func singleSegment(slug string) bool {
	return slug != "" && !strings.HasPrefix(slug, ".") && !strings.ContainsAny(slug, `/\`)
}

// ResolveVersionDir returns the directory of an existing version after
// checking that slug is a single path segment and the result stays under
// the content root
func (s *Store) ResolveVersionDir(slug string, number int) (string, error) {
	if !singleSegment(slug) || number < 1 {
		return "", model.ErrContentNotFound
	}
	dir := s.VersionDir(slug, number)
	rel, err := filepath.Rel(s.cfg.Root, dir)
	if err != nil || strings.HasPrefix(rel, "..") || strings.HasPrefix(rel, ".") {
		return "", model.ErrContentNotFound
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", model.ErrContentNotFound
	}
	return dir, nil
}

// Materialized describes an extracted version
type Materialized struct {
	Dir          string
	HasThumbnail bool
}

// Materialize extracts archive into the version directory of (slug, number).
// Extraction happens in a private staging directory which is renamed into
// place only after every entry was written; on any failure, including
// cancellation of ctx, nothing is left behind.
func (s *Store) Materialize(ctx context.Context, slug string, number int, archive []byte) (*Materialized, error) {
	if !singleSegment(slug) || number < 1 {
		return nil, fmt.Errorf("%w: invalid version location %q/%d", model.ErrStorage, slug, number)
	}
	if len(archive) == 0 {
		return nil, model.ErrNoArchive
	}
	if s.cfg.MaxArchiveBytes > 0 && int64(len(archive)) > s.cfg.MaxArchiveBytes {
		return nil, fmt.Errorf("%w: archive exceeds %d bytes", model.ErrInvalidArchive, s.cfg.MaxArchiveBytes)
	}

	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if errors.Is(err, zip.ErrInsecurePath) {
		return nil, unsafeArchive("archive", "contains an insecure path")
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidArchive, err)
	}
	if s.cfg.MaxEntries > 0 && len(zr.File) > s.cfg.MaxEntries {
		return nil, fmt.Errorf("%w: more than %d entries", model.ErrInvalidArchive, s.cfg.MaxEntries)
	}

	staging := filepath.Join(s.cfg.Root, stagingDir, uuid.NewString())
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	committed := false
	defer func() {
		if !committed {
			if err := os.RemoveAll(staging); err != nil {
				s.logger.Error("failed to remove staging directory", "dir", staging, "error", err)
			}
		}
	}()

	budget := s.cfg.MaxTotalBytes
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		written, err := s.extractEntry(staging, f, budget)
		if err != nil {
			return nil, err
		}
		if budget > 0 {
			budget -= written
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	final := s.VersionDir(slug, number)
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	if _, err := os.Stat(final); err == nil {
		// left over from a publish that died before recording its version
		s.logger.Warn("replacing orphaned version directory", "dir", final)
		if err := os.RemoveAll(final); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrStorage, err)
		}
	}
	if err := os.Rename(staging, final); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	committed = true

	_, err = os.Stat(filepath.Join(final, ThumbnailName))
	return &Materialized{Dir: final, HasThumbnail: err == nil}, nil
}

// unsafeArchive reports an entry that would escape the content root
func unsafeArchive(name, reason string) error {
	return fmt.Errorf("%w: %w: entry %q %s", model.ErrInvalidArchive, model.ErrStorage, name, reason)
}

// entryPath resolves an archive entry name to a path inside dir
func entryPath(dir, name string) (string, error) {
	clean := strings.ReplaceAll(name, `\`, "/")
	if path.IsAbs(clean) || filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" {
		return "", unsafeArchive(name, "is absolute")
	}
	clean = path.Clean(clean)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", unsafeArchive(name, "escapes the content root")
	}
	target := filepath.Join(dir, filepath.FromSlash(clean))
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", unsafeArchive(name, "escapes the content root")
	}
	return target, nil
}

func (s *Store) extractEntry(dir string, f *zip.File, budget int64) (int64, error) {
	target, err := entryPath(dir, f.Name)
	if err != nil {
		return 0, err
	}
	mode := f.Mode()
	if mode&os.ModeSymlink != 0 {
		return 0, unsafeArchive(f.Name, "is a symlink")
	}
	if mode.IsDir() {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return 0, fmt.Errorf("%w: %v", model.ErrStorage, err)
		}
		return 0, nil
	}
	if !mode.IsRegular() {
		return 0, unsafeArchive(f.Name, "is not a regular file")
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}

	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrInvalidArchive, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	defer out.Close()

	var src io.Reader = rc
	if budget > 0 {
		// read one byte past the budget to detect overflow
		src = io.LimitReader(rc, budget+1)
	}
	n, err := io.Copy(out, src)
	if err != nil {
		return n, fmt.Errorf("%w: %v", model.ErrInvalidArchive, err)
	}
	if budget > 0 && n > budget {
		return n, fmt.Errorf("%w: extracted content exceeds %d bytes", model.ErrInvalidArchive, s.cfg.MaxTotalBytes)
	}
	return n, nil
}

// RemoveVersion deletes one version's directory
func (s *Store) RemoveVersion(slug string, number int) error {
	if !singleSegment(slug) || number < 1 {
		return fmt.Errorf("%w: invalid version location %q/%d", model.ErrStorage, slug, number)
	}
	if err := os.RemoveAll(s.VersionDir(slug, number)); err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	return nil
}

// Trashed is a game directory moved aside pending deletion
type Trashed struct {
	store    *Store
	original string
	moved    string
}

// Trash moves a game's directory out of the served tree. The caller either
// restores it or purges it. A game with no content yields a no-op handle.
func (s *Store) Trash(slug string) (*Trashed, error) {
	if !singleSegment(slug) {
		return nil, fmt.Errorf("%w: invalid game directory %q", model.ErrStorage, slug)
	}
	original := filepath.Join(s.cfg.Root, slug)
	t := &Trashed{store: s, original: original}
	if _, err := os.Stat(original); errors.Is(err, os.ErrNotExist) {
		return t, nil
	}
	if err := os.MkdirAll(filepath.Join(s.cfg.Root, trashDir), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	moved := filepath.Join(s.cfg.Root, trashDir, slug+"-"+uuid.NewString())
	if err := os.Rename(original, moved); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	t.moved = moved
	return t, nil
}

// Restore puts the directory back
func (t *Trashed) Restore() error {
	if t.moved == "" {
		return nil
	}
	if err := os.Rename(t.moved, t.original); err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	return nil
}

// Purge deletes the directory for good
func (t *Trashed) Purge() error {
	if t.moved == "" {
		return nil
	}
	if err := os.RemoveAll(t.moved); err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	return nil
}
