// Package filestore keeps knowledge bases as files in one directory, one
// snapshot per file. JSON is the default; .yaml and .yml files are read and
// written as YAML.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/cognicore/shortliffe/pkg/shortliffe/internalerr"
	"github.com/cognicore/shortliffe/pkg/shortliffe/kb"
	"github.com/cognicore/shortliffe/pkg/shortliffe/store"
)

// Store is a directory-backed store.Repository.
type Store struct {
	dir string
}

// Open creates dir if needed and returns a store rooted there.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty knowledge base directory", internalerr.ErrInvalidConfig)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the root directory.
func (s *Store) Dir() string { return s.dir }

// Close implements store.Repository.
func (s *Store) Close() error { return nil }

// List implements store.Repository.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !store.HasKnownExt(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Load implements store.Repository.
func (s *Store) Load(ctx context.Context, name string) (kb.Snapshot, error) {
	name, err := store.NormalizeName(name)
	if err != nil {
		return kb.Snapshot{}, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return kb.Snapshot{}, store.NotFound(name)
	}
	if err != nil {
		return kb.Snapshot{}, fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}
	return store.Decode(name, data)
}

// Save implements store.Repository. The file is written to a temporary name
// and renamed so readers never see a partial snapshot.
func (s *Store) Save(ctx context.Context, name string, snap kb.Snapshot) (string, error) {
	name, err := store.NormalizeName(name)
	if err != nil {
		return "", err
	}
	data, err := store.Encode(name, snap)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}
	return name, nil
}

// Delete implements store.Repository.
func (s *Store) Delete(ctx context.Context, name string) error {
	name, err := store.NormalizeName(name)
	if err != nil {
		return err
	}

	err = os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return store.NotFound(name)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}
	return nil
}
