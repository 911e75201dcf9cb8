package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/cognicore/shortliffe/pkg/shortliffe/kb"
	"github.com/cognicore/shortliffe/pkg/shortliffe/store"
)

// Store is an in-memory implementation of store.Repository for tests and
// throwaway sessions. Snapshots are stored encoded so callers never share
// state with the store.
type Store struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{items: make(map[string][]byte)}
}

// Close implements store.Repository.
func (s *Store) Close() error { return nil }

// List implements store.Repository.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.items))
	for name := range s.items {
		names = append(names, name)
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

	s.mu.RLock()
	data, ok := s.items[name]
	s.mu.RUnlock()
	if !ok {
		return kb.Snapshot{}, store.NotFound(name)
	}
	return store.Decode(name, data)
}

// Save implements store.Repository.
func (s *Store) Save(ctx context.Context, name string, snap kb.Snapshot) (string, error) {
	name, err := store.NormalizeName(name)
	if err != nil {
		return "", err
	}
	data, err := store.Encode(name, snap)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.items[name] = data
	s.mu.Unlock()
	return name, nil
}

// Delete implements store.Repository.
func (s *Store) Delete(ctx context.Context, name string) error {
	name, err := store.NormalizeName(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[name]; !ok {
		return store.NotFound(name)
	}
	delete(s.items, name)
	return nil
}
