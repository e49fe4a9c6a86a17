// Package storage holds the durable key/value store behind the transaction
// store and the SQLite tables behind the offline cache.
package storage

import (
	"context"
	"sync"
)

// Well-known keys.
const (
	TransactionsKey           = "spendwise_transactions"
	InstallPromptDismissedKey = "pwa-prompt-dismissed"
)

// KV is a durable per-origin key to string store.
type KV interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryKV is a process-local KV used by tests and the memory backend.
type MemoryKV struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{items: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// ReadOnly wraps kv so that writes are dropped. Readers of persisted state
// use it to keep a loaded store from writing the collection back.
func ReadOnly(kv KV) KV {
	return readOnlyKV{kv}
}

type readOnlyKV struct {
	KV
}

func (readOnlyKV) Set(context.Context, string, string) error { return nil }

func (readOnlyKV) Delete(context.Context, string) error { return nil }
