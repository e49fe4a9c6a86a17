package offline

import (
	"context"
	"slices"
	"sync"
	"time"

	"spendwise/internal/cache"
)

// Storage holds named cache generations of entries keyed by URL.
// Implementations must be safe for concurrent use; the last Put for a URL wins.
type Storage interface {
	// Open creates the generation if it does not exist.
	Open(ctx context.Context, name string) error
	// Keys lists generation names in creation order.
	Keys(ctx context.Context) ([]string, error)
	// Delete drops a generation and reports whether it existed.
	Delete(ctx context.Context, name string) (bool, error)
	Put(ctx context.Context, name string, e Entry) error
	Match(ctx context.Context, name, url string) (Entry, bool, error)
}

// MemoryStorage keeps each generation in an LRU cache.
type MemoryStorage struct {
	mu          sync.RWMutex
	order       []string
	generations map[string]*cache.LRUCache[Entry]
	maxEntries  int
	ttl         time.Duration
}

var (
	_ Storage       = (*MemoryStorage)(nil)
	_ cache.Cleaner = (*MemoryStorage)(nil)
)

// NewMemoryStorage bounds every generation to maxEntries (0 for unbounded).
// A positive ttl expires entries; zero keeps them until evicted.
func NewMemoryStorage(maxEntries int, ttl time.Duration) *MemoryStorage {
	return &MemoryStorage{
		generations: make(map[string]*cache.LRUCache[Entry]),
		maxEntries:  maxEntries,
		ttl:         ttl,
	}
}

func (m *MemoryStorage) Open(_ context.Context, name string) error {
	m.open(name)
	return nil
}

func (m *MemoryStorage) open(name string) *cache.LRUCache[Entry] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.generations[name]; ok {
		return g
	}
	g := cache.NewLRUCache[Entry](m.maxEntries, m.ttl)
	m.generations[name] = g
	m.order = append(m.order, name)
	return g
}

func (m *MemoryStorage) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.order), nil
}

func (m *MemoryStorage) Delete(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.generations[name]; !ok {
		return false, nil
	}
	delete(m.generations, name)
	m.order = slices.DeleteFunc(m.order, func(n string) bool { return n == name })
	return true, nil
}

func (m *MemoryStorage) Put(_ context.Context, name string, e Entry) error {
	m.open(name).Set(e.URL, e)
	return nil
}

func (m *MemoryStorage) Match(_ context.Context, name, url string) (Entry, bool, error) {
	m.mu.RLock()
	g, ok := m.generations[name]
	m.mu.RUnlock()
	if !ok {
		return Entry{}, false, nil
	}
	e, ok := g.Get(url)
	return e, ok, nil
}

// Len returns the number of live entries in a generation.
func (m *MemoryStorage) Len(name string) int {
	m.mu.RLock()
	g, ok := m.generations[name]
	m.mu.RUnlock()
	if !ok {
		return 0
	}
	return len(g.Keys())
}

// CleanExpired sweeps every generation.
func (m *MemoryStorage) CleanExpired() int {
	m.mu.RLock()
	gens := make([]*cache.LRUCache[Entry], 0, len(m.generations))
	for _, g := range m.generations {
		gens = append(gens, g)
	}
	m.mu.RUnlock()

	n := 0
	for _, g := range gens {
		n += g.CleanExpired()
	}
	return n
}
