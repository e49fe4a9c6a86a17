package offline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/events"
	"spendwise/internal/log"
)

// testOrigin serves the app shell plus a mutable /api/data document.
type testOrigin struct {
	*httptest.Server
	mu      sync.Mutex
	data    string
	missing map[string]bool
}

func newTestOrigin(t *testing.T) *testOrigin {
	t.Helper()
	o := &testOrigin{data: "data-v1", missing: map[string]bool{}}
	o.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.missing[r.URL.Path] {
			http.NotFound(w, r)
			return
		}
		switch r.URL.Path {
		case "/", "/index.html":
			w.Header().Set("Content-Type", "text/html")
			io.WriteString(w, "<html>shell</html>")
		case "/manifest.json":
			w.Header().Set("Content-Type", "application/manifest+json")
			io.WriteString(w, `{"name":"SpendWise"}`)
		case "/icon-192.png", "/icon-512.png":
			w.Header().Set("Content-Type", "image/png")
			io.WriteString(w, "png")
		case "/api/data":
			io.WriteString(w, o.data)
		case "/api/write":
			w.WriteHeader(http.StatusCreated)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(o.Close)
	return o
}

func (o *testOrigin) setData(s string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.data = s
}

func (o *testOrigin) url(t *testing.T) *url.URL {
	t.Helper()
	u, err := url.Parse(o.URL)
	require.NoError(t, err)
	return u
}

// flakyTransport fails every request while down is set.
type flakyTransport struct {
	down  atomic.Bool
	calls atomic.Int64
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls.Add(1)
	if f.down.Load() {
		return nil, errors.New("network unreachable")
	}
	return http.DefaultTransport.RoundTrip(req)
}

type recorder struct {
	mu    sync.Mutex
	kinds []events.Kind
}

func (r *recorder) Notify(_ context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, e.Kind)
}

func (r *recorder) seen() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Kind(nil), r.kinds...)
}

type fixture struct {
	origin    *testOrigin
	transport *flakyTransport
	storage   *MemoryStorage
	bus       *events.Bus
	events    *recorder
	reg       *Registration
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		origin:    newTestOrigin(t),
		transport: &flakyTransport{},
		storage:   NewMemoryStorage(0, 0),
		bus:       events.NewBus(),
		events:    &recorder{},
	}
	f.bus.Subscribe(f.events)
	f.reg = NewRegistration(f.transport, log.Discard())
	return f
}

func (f *fixture) controller(t *testing.T, version string) *Controller {
	t.Helper()
	c, err := NewController(Config{
		Version:   version,
		Origin:    f.origin.url(t),
		Transport: f.transport,
		Storage:   f.storage,
		Logger:    log.Discard(),
		Bus:       f.bus,
		Now:       func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) get(t *testing.T, path string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.origin.URL+path, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := f.reg.RoundTrip(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestNewControllerRequiresAbsoluteOrigin(t *testing.T) {
	_, err := NewController(Config{Origin: &url.URL{Path: "/"}, Storage: NewMemoryStorage(0, 0)})
	assert.Error(t, err)

	_, err = NewController(Config{Origin: &url.URL{Scheme: "http", Host: "app.local"}})
	assert.Error(t, err)
}

func TestGenerationNames(t *testing.T) {
	c, err := NewController(Config{
		Origin:  &url.URL{Scheme: "http", Host: "app.local"},
		Storage: NewMemoryStorage(0, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, "spendwise-v1-static", c.StaticCache())
	assert.Equal(t, "spendwise-v1-dynamic", c.DynamicCache())
	assert.Equal(t, StateParsed, c.State())
}

func TestInstallPrecachesManifest(t *testing.T) {
	f := newFixture(t)
	c := f.controller(t, "v1")

	require.NoError(t, f.reg.Register(context.Background(), c))

	assert.Equal(t, StateActive, c.State())
	assert.True(t, c.WantsSkipWaiting())
	assert.True(t, c.Claimed())
	assert.Same(t, c, f.reg.Active())
	assert.Equal(t, len(Manifest), f.storage.Len("v1-static"))

	e, ok, err := f.storage.Match(context.Background(), "v1-static", f.origin.URL+"/manifest.json")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"name":"SpendWise"}`, string(e.Body))
	assert.Equal(t, "application/manifest+json", e.Header.Get("Content-Type"))

	assert.Equal(t, []events.Kind{
		events.KindControllerInstalled,
		events.KindControllerActivated,
	}, f.events.seen())
}

func TestInstallToleratesAssetFailures(t *testing.T) {
	f := newFixture(t)
	f.origin.missing["/icon-192.png"] = true
	f.origin.missing["/icon-512.png"] = true
	c := f.controller(t, "v1")

	require.NoError(t, c.Install(context.Background()))
	assert.Equal(t, StateWaiting, c.State())
	assert.Equal(t, 3, f.storage.Len("v1-static"))
}

func TestInstallWithNetworkDown(t *testing.T) {
	f := newFixture(t)
	f.transport.down.Store(true)
	c := f.controller(t, "v1")

	require.NoError(t, c.Install(context.Background()))
	keys, _ := f.storage.Keys(context.Background())
	assert.Equal(t, []string{"v1-static"}, keys, "static generation is opened even when empty")
	assert.Zero(t, f.storage.Len("v1-static"))
}

func TestActivateDeletesStaleGenerations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, name := range []string{"v0-static", "v0-dynamic", "v1-dynamic", "third-party"} {
		require.NoError(t, f.storage.Open(ctx, name))
	}

	c := f.controller(t, "v1")
	require.NoError(t, f.reg.Register(ctx, c))

	keys, err := f.storage.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"v1-dynamic", "v1-static"}, keys)
}

func TestFetchNetworkFirstStoresByGeneration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.reg.Register(ctx, f.controller(t, "v1")))

	resp := f.get(t, "/api/data", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "data-v1", readBody(t, resp))

	_, ok, _ := f.storage.Match(ctx, "v1-dynamic", f.origin.URL+"/api/data")
	assert.True(t, ok, "non-manifest response goes to the dynamic generation")

	f.origin.setData("data-v2")
	resp = f.get(t, "/api/data", nil)
	assert.Equal(t, "data-v2", readBody(t, resp), "network wins over cache while online")

	e, _, _ := f.storage.Match(ctx, "v1-dynamic", f.origin.URL+"/api/data")
	assert.Equal(t, "data-v2", string(e.Body))

	resp = f.get(t, "/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_, ok, _ = f.storage.Match(ctx, "v1-dynamic", f.origin.URL+"/missing")
	assert.False(t, ok, "non-200 responses are not cached")
}

func TestFetchManifestPathGoesToStatic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.controller(t, "v1")
	require.NoError(t, f.reg.Register(ctx, c))
	_, err := c.ClearCaches(ctx)
	require.NoError(t, err)

	f.get(t, "/icon-192.png", nil)
	_, ok, _ := f.storage.Match(ctx, "v1-static", f.origin.URL+"/icon-192.png")
	assert.True(t, ok)
	assert.Zero(t, f.storage.Len("v1-dynamic"))
}

func TestFetchFallbacksWhenOffline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.reg.Register(ctx, f.controller(t, "v1")))
	f.get(t, "/api/data", nil)

	f.transport.down.Store(true)

	resp := f.get(t, "/api/data", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "data-v1", readBody(t, resp))

	resp = f.get(t, "/analytics", http.Header{"Sec-Fetch-Mode": {"navigate"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html>shell</html>", readBody(t, resp))

	resp = f.get(t, "/add", http.Header{"Accept": {"text/html,application/xhtml+xml"}})
	assert.Equal(t, "<html>shell</html>", readBody(t, resp))

	resp = f.get(t, "/api/other", http.Header{"Accept": {"application/json"}})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	assert.Equal(t, OfflineBody, readBody(t, resp))
}

func TestFetchNavigationWithoutShellIsOffline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.transport.down.Store(true)
	require.NoError(t, f.reg.Register(ctx, f.controller(t, "v1")))

	resp := f.get(t, "/", http.Header{"Sec-Fetch-Mode": {"navigate"}})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, OfflineBody, readBody(t, resp))
}

func TestFetchMatchesAcrossGenerations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.controller(t, "v1")
	require.NoError(t, f.reg.Register(ctx, c))

	require.NoError(t, f.storage.Put(ctx, "v1-dynamic", Entry{
		URL:    f.origin.URL + "/index.html",
		Status: http.StatusOK,
		Header: http.Header{},
		Body:   []byte("dynamic copy"),
	}))
	f.transport.down.Store(true)

	resp := f.get(t, "/index.html", nil)
	assert.Equal(t, "<html>shell</html>", readBody(t, resp), "older generation is searched first")
}

func TestNonGetAndCrossOriginPassThrough(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.reg.Register(ctx, f.controller(t, "v1")))

	req, _ := http.NewRequest(http.MethodPost, f.origin.URL+"/api/write", nil)
	resp, err := f.reg.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "elsewhere")
	}))
	defer other.Close()

	req, _ = http.NewRequest(http.MethodGet, other.URL+"/font.woff", nil)
	resp, err = f.reg.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Zero(t, f.storage.Len("v1-dynamic"), "cross-origin responses are not cached")

	f.transport.down.Store(true)
	req, _ = http.NewRequest(http.MethodPost, f.origin.URL+"/api/write", nil)
	_, err = f.reg.RoundTrip(req)
	assert.Error(t, err, "non-GET requests get no offline fallback")

	req, _ = http.NewRequest(http.MethodGet, other.URL+"/font.woff", nil)
	_, err = f.reg.RoundTrip(req)
	assert.Error(t, err)
}

func TestCacheKey(t *testing.T) {
	tests := map[string]string{
		"http://app.local":                "http://app.local/",
		"http://app.local/a?b=1#frag":     "http://app.local/a?b=1",
		"http://user:pw@app.local/x":      "http://app.local/x",
		"https://app.local:8443/icon.png": "https://app.local:8443/icon.png",
	}
	for in, want := range tests {
		u, err := url.Parse(in)
		require.NoError(t, err)
		assert.Equal(t, want, CacheKey(u), in)
	}
}
