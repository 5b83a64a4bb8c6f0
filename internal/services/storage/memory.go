package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/phambaophuc/meal-analyzer/internal/errs"
	"github.com/phambaophuc/meal-analyzer/internal/models"
)

type Memory struct {
	mu     sync.RWMutex
	stores map[string]*memoryStore
}

func NewMemory() *Memory {
	return &Memory{stores: make(map[string]*memoryStore)}
}

func (m *Memory) Type() string {
	return "memory"
}

func (m *Memory) Open(ctx context.Context, name string) (Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stores[name]
	if !ok {
		s = &memoryStore{name: name, entries: make(map[string]*models.CacheEntry)}
		m.stores[name] = s
	}
	return s, nil
}

func (m *Memory) Delete(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.stores[name]
	delete(m.stores, name)
	return ok, nil
}

func (m *Memory) Names(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.stores))
	for name := range m.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) Health(ctx context.Context) error {
	return nil
}

type memoryStore struct {
	name    string
	mu      sync.RWMutex
	entries map[string]*models.CacheEntry
}

func (s *memoryStore) Name() string {
	return s.name
}

func (s *memoryStore) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return cloneEntry(e), nil
}

func (s *memoryStore) Put(ctx context.Context, key string, entry *models.CacheEntry) error {
	c := cloneEntry(entry)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = c
	return nil
}

func (s *memoryStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
