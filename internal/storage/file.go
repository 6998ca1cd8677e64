// Package storage persists vector index snapshots on the local filesystem or
// in S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cloo-solutions/biorag/internal/domain"
	"github.com/cloo-solutions/biorag/internal/vectorindex"
)

const snapshotFile = "index.bin"

// FileStore keeps one snapshot per scope at <root>/<scope>/index.bin.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (s *FileStore) path(scope domain.Scope) string {
	return filepath.Join(s.root, string(scope), snapshotFile)
}

// Save writes the snapshot to a temporary file in the scope directory,
// fsyncs it and renames it over the previous snapshot, so readers see either
// the old index or the new one.
func (s *FileStore) Save(ctx context.Context, snap *domain.IndexSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := snap.Scope.Validate(); err != nil {
		return err
	}
	data, err := vectorindex.EncodeSnapshot(snap)
	if err != nil {
		return err
	}

	dir := filepath.Join(s.root, string(snap.Scope))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close index: %w", err)
	}
	if err := os.Rename(tmpName, s.path(snap.Scope)); err != nil {
		return fmt.Errorf("failed to commit index: %w", err)
	}
	committed = true

	syncDir(dir)
	return nil
}

// Load reads and decodes the scope's snapshot.
func (s *FileStore) Load(ctx context.Context, scope domain.Scope) (*domain.IndexSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(scope))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.IndexMissing(scope)
		}
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	return decodeFor(scope, data)
}

// Exists reports whether the scope has a committed snapshot.
func (s *FileStore) Exists(ctx context.Context, scope domain.Scope) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := scope.Validate(); err != nil {
		return false, err
	}
	_, err := os.Stat(s.path(scope))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to stat index: %w", err)
	}
}

// syncDir flushes the rename to disk. Not all platforms support fsync on a
// directory, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

func decodeFor(scope domain.Scope, data []byte) (*domain.IndexSnapshot, error) {
	snap, err := vectorindex.DecodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	if snap.Scope != scope {
		return nil, fmt.Errorf("%w: snapshot belongs to scope %q, not %q", vectorindex.ErrCorruptSnapshot, snap.Scope, scope)
	}
	if len(snap.Entries) > 0 {
		if err := snap.Validate(); err != nil {
			return nil, err
		}
	}
	return snap, nil
}
