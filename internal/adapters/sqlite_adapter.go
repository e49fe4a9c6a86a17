package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"spendwise/internal/offline"
	"spendwise/internal/storage"
)

// CacheStorage adapts SQLiteRepository to offline.Storage so cache
// generations survive edge restarts.
type CacheStorage struct {
	repo *storage.SQLiteRepository
}

var _ offline.Storage = (*CacheStorage)(nil)

func NewCacheStorage(repo *storage.SQLiteRepository) *CacheStorage {
	return &CacheStorage{repo: repo}
}

// Open implements offline.Storage
func (a *CacheStorage) Open(ctx context.Context, name string) error {
	return a.repo.EnsureCacheGeneration(ctx, name)
}

// Keys implements offline.Storage
func (a *CacheStorage) Keys(ctx context.Context) ([]string, error) {
	return a.repo.CacheGenerations(ctx)
}

// Delete implements offline.Storage
func (a *CacheStorage) Delete(ctx context.Context, name string) (bool, error) {
	return a.repo.DeleteCacheGeneration(ctx, name)
}

// Put implements offline.Storage
func (a *CacheStorage) Put(ctx context.Context, name string, e offline.Entry) error {
	headers, err := json.Marshal(e.Header)
	if err != nil {
		return fmt.Errorf("encode headers: %w", err)
	}
	body := e.Body
	if body == nil {
		body = []byte{}
	}
	return a.repo.PutCacheEntry(ctx, storage.CacheEntry{
		Generation: name,
		Url:        e.URL,
		Status:     int64(e.Status),
		Headers:    string(headers),
		Body:       body,
		StoredAt:   e.StoredAt.UnixMilli(),
	})
}

// Match implements offline.Storage
func (a *CacheStorage) Match(ctx context.Context, name, url string) (offline.Entry, bool, error) {
	row, ok, err := a.repo.GetCacheEntry(ctx, name, url)
	if err != nil || !ok {
		return offline.Entry{}, false, err
	}

	var header http.Header
	if row.Headers != "" {
		if err := json.Unmarshal([]byte(row.Headers), &header); err != nil {
			return offline.Entry{}, false, fmt.Errorf("decode headers of %s: %w", url, err)
		}
	}

	return offline.Entry{
		URL:      row.Url,
		Status:   int(row.Status),
		Header:   header,
		Body:     row.Body,
		StoredAt: time.UnixMilli(row.StoredAt).UTC(),
	}, true, nil
}
