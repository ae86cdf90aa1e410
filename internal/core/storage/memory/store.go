// Package memory keeps scene documents in process memory. Tests and the
// "memory" driver use it.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/zeusync/scenekit/internal/core/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	mu   sync.RWMutex
	docs map[string][]byte
	// writes counts successful writes.
	writes int
}

func New() *Store {
	return &Store{docs: make(map[string][]byte)}
}

func (s *Store) Driver() storage.Driver { return storage.DriverMemory }

func (s *Store) Read(_ context.Context, key string) ([]byte, error) {
	clean, err := storage.CleanKey(key)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[clean]
	if !ok {
		return nil, storage.NotFound(key)
	}
	return slices.Clone(data), nil
}

func (s *Store) Write(_ context.Context, key string, data []byte) error {
	clean, err := storage.CleanKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[clean] = slices.Clone(data)
	s.writes++
	return nil
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	clean, err := storage.CleanKey(key)
	if err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[clean]
	return ok, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	clean, err := storage.CleanKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[clean]; !ok {
		return storage.NotFound(key)
	}
	delete(s.docs, clean)
	return nil
}

func (s *Store) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.docs))
	for k := range s.docs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	s.mu.RUnlock()

	slices.Sort(keys)
	return keys, nil
}

// Writes returns how many writes succeeded.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *Store) Close() error { return nil }
