package adapters

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/offline"
	"spendwise/internal/storage"
)

func newCacheStorage(t *testing.T) *CacheStorage {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "edge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return NewCacheStorage(repo)
}

func TestCacheStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newCacheStorage(t)
	stored := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Put(ctx, "spendwise-v1-static", offline.Entry{
		URL:      "http://app.local/index.html",
		Status:   http.StatusOK,
		Header:   http.Header{"Content-Type": {"text/html"}},
		Body:     []byte("<html></html>"),
		StoredAt: stored,
	}))

	e, ok, err := s.Match(ctx, "spendwise-v1-static", "http://app.local/index.html")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, e.Status)
	assert.Equal(t, "text/html", e.Header.Get("Content-Type"))
	assert.Equal(t, "<html></html>", string(e.Body))
	assert.True(t, stored.Equal(e.StoredAt))

	_, ok, err = s.Match(ctx, "spendwise-v1-dynamic", "http://app.local/index.html")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheStorageGenerations(t *testing.T) {
	ctx := context.Background()
	s := newCacheStorage(t)

	require.NoError(t, s.Open(ctx, "spendwise-v0-static"))
	require.NoError(t, s.Open(ctx, "spendwise-v1-static"))
	require.NoError(t, s.Open(ctx, "spendwise-v1-static"))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"spendwise-v0-static", "spendwise-v1-static"}, keys)

	ok, err := s.Delete(ctx, "spendwise-v0-static")
	require.NoError(t, err)
	assert.True(t, ok)

	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"spendwise-v1-static"}, keys)
}

// shellTransport answers every request with a small body, or fails when down.
type shellTransport struct{ down bool }

func (s shellTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if s.down {
		return nil, errors.New("offline")
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"text/plain"}},
		Body:       io.NopCloser(strings.NewReader("asset " + req.URL.Path)),
		Request:    req,
	}, nil
}

func TestCacheStorageBacksController(t *testing.T) {
	ctx := context.Background()
	s := newCacheStorage(t)
	require.NoError(t, s.Open(ctx, "old-static"))

	origin, err := url.Parse("http://app.local")
	require.NoError(t, err)

	online, err := offline.NewController(offline.Config{
		Version:   "v1",
		Origin:    origin,
		Storage:   s,
		Transport: shellTransport{},
	})
	require.NoError(t, err)
	require.NoError(t, online.Install(ctx))
	require.NoError(t, online.Activate(ctx))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1-static"}, keys)

	// A controller built later over the same rows serves them offline.
	offlineCtrl, err := offline.NewController(offline.Config{
		Version:   "v1",
		Origin:    origin,
		Storage:   s,
		Transport: shellTransport{down: true},
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, "http://app.local/manifest.json", nil)
	require.NoError(t, err)
	resp, err := offlineCtrl.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "asset /manifest.json", string(body))
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
}
