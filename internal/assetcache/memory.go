package assetcache

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps generations in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu   sync.Mutex
	gens map[string]map[string]Entry
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{gens: make(map[string]map[string]Entry)}
}

func (m *MemoryStore) Get(_ context.Context, generation, key string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.gens[generation][key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *MemoryStore) Put(_ context.Context, generation string, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(generation, entry)
	return nil
}

func (m *MemoryStore) PutAll(_ context.Context, generation string, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gens[generation] == nil {
		m.gens[generation] = make(map[string]Entry)
	}
	for _, e := range entries {
		m.put(generation, e)
	}
	return nil
}

func (m *MemoryStore) put(generation string, entry Entry) {
	if m.gens[generation] == nil {
		m.gens[generation] = make(map[string]Entry)
	}
	m.gens[generation][entry.Key] = entry
}

func (m *MemoryStore) Generations(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.gens))
	for g := range m.gens {
		out = append(out, g)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) DeleteGeneration(_ context.Context, generation string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.gens, generation)
	return nil
}
