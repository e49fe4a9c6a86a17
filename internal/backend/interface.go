package backend

import (
	"context"
	"time"

	"spendwise/internal/cache"
	"spendwise/internal/offline"
	"spendwise/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the storage a process needs.
type BackendResult struct {
	// KV backs the transaction store and the install prompt.
	KV storage.KV
	// Cache backs the offline controller.
	Cache offline.Storage
	// Cleaner is set when Cache expires entries in memory and needs sweeping.
	Cleaner cache.Cleaner
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	DataType  BackendType
	CacheType BackendType

	SQLiteDBPath string

	CacheMaxEntries int
	CacheTTL        time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
