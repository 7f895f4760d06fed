package artifact

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-memory Store, mirroring the injected state-files map
// an orchestration framework passes to verification tools. It is the
// default backend for tests and for the job service.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]string)}
}

func (s *MemStore) Read(path string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, ok := s.entries[Normalize(path)]
	if !ok {
		return "", fmt.Errorf("read %s: %w", path, ErrNotFound)
	}
	return content, nil
}

func (s *MemStore) Exists(path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.entries[Normalize(path)]
	return ok, nil
}

func (s *MemStore) List(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix = Normalize(prefix)
	var paths []string
	for p := range s.entries {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *MemStore) Write(path, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[Normalize(path)] = content
	return nil
}

// Delete removes an entry. Used by tests to simulate producers that
// destroy their own deliverables between attempts.
func (s *MemStore) Delete(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, Normalize(path))
}
