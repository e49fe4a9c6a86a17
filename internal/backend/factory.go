package backend

import (
	"context"
	"fmt"

	"spendwise/internal/adapters"
	"spendwise/internal/log"
	"spendwise/internal/offline"
	"spendwise/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens at most one SQLite database, shared by the data and
// cache backends when both ask for it.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	result := &BackendResult{}

	var repo *storage.SQLiteRepository
	if config.usesSQLite() {
		var err error
		repo, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		result.Cleanup = repo.Close
	}

	switch config.DataType {
	case SQLiteBackend:
		result.KV = repo
	case MemoryBackend:
		result.KV = storage.NewMemoryKV()
	}

	switch config.CacheType {
	case SQLiteBackend:
		result.Cache = adapters.NewCacheStorage(repo)
	case MemoryBackend:
		mem := offline.NewMemoryStorage(config.CacheMaxEntries, config.CacheTTL)
		result.Cache = mem
		if config.CacheTTL > 0 {
			result.Cleaner = mem
		}
	}

	f.logger.InfoContext(ctx, "Initialized backends",
		"data_backend", config.DataType.String(),
		"cache_backend", config.CacheType.String(),
		"db_path", config.SQLiteDBPath)

	return result, nil
}
