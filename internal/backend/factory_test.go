package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/adapters"
	"spendwise/internal/config"
	"spendwise/internal/log"
	"spendwise/internal/offline"
	"spendwise/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	c, err := FromAppConfig(&config.Config{
		DataBackend:     "sqlite",
		CacheBackend:    "memory",
		SQLiteDBPath:    "x.db",
		CacheMaxEntries: 10,
		CacheTTL:        time.Minute,
	})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, c.DataType)
	assert.Equal(t, MemoryBackend, c.CacheType)
	assert.Equal(t, 10, c.CacheMaxEntries)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets", CacheBackend: "memory"})
	assert.ErrorContains(t, err, "invalid data backend type")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{DataType: MemoryBackend, CacheType: MemoryBackend}, false},
		{"sqlite with path", Config{DataType: SQLiteBackend, CacheType: MemoryBackend, SQLiteDBPath: "a.db"}, false},
		{"sqlite cache without path", Config{DataType: MemoryBackend, CacheType: SQLiteBackend}, true},
		{"unknown cache", Config{DataType: MemoryBackend, CacheType: "redis"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	f := NewFactory(log.Discard())
	res, err := f.CreateBackend(context.Background(), Config{
		DataType:        MemoryBackend,
		CacheType:       MemoryBackend,
		CacheMaxEntries: 5,
		CacheTTL:        time.Minute,
	})
	require.NoError(t, err)

	assert.IsType(t, &storage.MemoryKV{}, res.KV)
	assert.IsType(t, &offline.MemoryStorage{}, res.Cache)
	assert.NotNil(t, res.Cleaner)
	assert.Nil(t, res.Cleanup)
}

func TestCreateMemoryBackendWithoutTTLHasNoCleaner(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		DataType:  MemoryBackend,
		CacheType: MemoryBackend,
	})
	require.NoError(t, err)
	assert.Nil(t, res.Cleaner)
}

func TestCreateSQLiteBackendSharesDatabase(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(log.Discard())
	res, err := f.CreateBackend(ctx, Config{
		DataType:     SQLiteBackend,
		CacheType:    SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "spendwise.db"),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Cleanup)
	t.Cleanup(func() { _ = res.Cleanup() })

	repo, ok := res.KV.(*storage.SQLiteRepository)
	require.True(t, ok)
	assert.IsType(t, &adapters.CacheStorage{}, res.Cache)

	require.NoError(t, res.KV.Set(ctx, storage.TransactionsKey, "[]"))
	require.NoError(t, res.Cache.Open(ctx, "v1-static"))

	names, err := repo.CacheGenerations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1-static"}, names)
}
