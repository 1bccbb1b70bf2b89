package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"telegram-bg-remover/internal/domain"
	"telegram-bg-remover/internal/domain/ports/repository"
)

var (
	_ repository.ArtifactStore   = (*FSArtifactStore)(nil)
	_ repository.ArtifactSweeper = (*FSArtifactStore)(nil)
)

const (
	artifactExt = ".png"
	tmpExt      = ".tmp"
)

// FSArtifactStore keeps one <id>.png per artifact in a single directory.
type FSArtifactStore struct {
	fs    afero.Fs
	dir   string
	now   func() time.Time
	newID func() string
}

// NewFSArtifactStore creates dir on demand and returns a store rooted at it.
func NewFSArtifactStore(fsys afero.Fs, dir string) (*FSArtifactStore, error) {
	if fsys == nil {
		return nil, errors.New("storage: nil filesystem")
	}
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage: empty directory")
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", dir, err)
	}
	return &FSArtifactStore{fs: fsys, dir: dir, now: time.Now, newID: uuid.NewString}, nil
}

func (s *FSArtifactStore) path(id string) string {
	return filepath.Join(s.dir, id+artifactExt)
}

// Put encodes img as PNG under a fresh random id. The final name is claimed
// with O_EXCL, then the bytes go to a temporary file renamed over the claim:
// no id is issued twice and readers never see a partial artifact.
func (s *FSArtifactStore) Put(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if img == nil {
		return "", domain.ErrInvalidArgument
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("storage: encode png: %w", err)
	}

	id := s.newID()
	final := s.path(id)
	claim, err := s.fs.OpenFile(final, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("storage: %s: %w", id, domain.ErrAlreadyExists)
	}
	if err != nil {
		return "", fmt.Errorf("storage: claim %s: %w", id, err)
	}
	_ = claim.Close()

	tmp := filepath.Join(s.dir, "."+id+tmpExt)
	if err := afero.WriteFile(s.fs, tmp, buf.Bytes(), 0o644); err != nil {
		_ = s.fs.Remove(final)
		return "", fmt.Errorf("storage: write %s: %w", id, err)
	}
	if err := s.fs.Rename(tmp, final); err != nil {
		_ = s.fs.Remove(tmp)
		_ = s.fs.Remove(final)
		return "", fmt.Errorf("storage: commit %s: %w", id, err)
	}
	return id, nil
}

// Exists reports whether id names a stored artifact. Ids that are not
// canonical UUIDs are never valid, which also keeps path separators out.
func (s *FSArtifactStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !validID(id) {
		return false, nil
	}
	return afero.Exists(s.fs, s.path(id))
}

func (s *FSArtifactStore) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, domain.ErrArtifactNotFound
	}
	f, err := s.fs.Open(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("storage: open %s: %w", id, err)
	}
	return f, nil
}

// Sweep removes artifacts (and abandoned temp files) last modified more than
// olderThan ago. It returns how many artifacts were removed.
func (s *FSArtifactStore) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return 0, fmt.Errorf("storage: list %s: %w", s.dir, err)
	}
	cutoff := s.now().Add(-olderThan)
	removed := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if e.IsDir() || !e.ModTime().Before(cutoff) {
			continue
		}
		name := e.Name()
		isArtifact := strings.HasSuffix(name, artifactExt) && validID(strings.TrimSuffix(name, artifactExt))
		isTmp := strings.HasPrefix(name, ".") && strings.HasSuffix(name, tmpExt)
		if !isArtifact && !isTmp {
			continue
		}
		if err := s.fs.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("storage: remove %s: %w", name, err)
		}
		if isArtifact {
			removed++
		}
	}
	return removed, nil
}

func validID(id string) bool {
	u, err := uuid.Parse(id)
	return err == nil && u.String() == id
}
