// Package offline is the edge cache controller: it precaches the app shell,
// answers same-origin GETs network-first and falls back to cached content
// when the origin is unreachable.
package offline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"spendwise/internal/events"
	"spendwise/internal/log"
	"spendwise/internal/metrics"
)

// DefaultVersion tags the cache generations of this release.
const DefaultVersion = "spendwise-v1"

// ShellPath is served to navigation requests that miss both network and cache.
const ShellPath = "/index.html"

// Manifest lists the app-shell paths precached at install.
var Manifest = []string{
	"/",
	"/index.html",
	"/manifest.json",
	"/icon-192.png",
	"/icon-512.png",
}

type State int

const (
	StateParsed State = iota
	StateInstalling
	StateWaiting
	StateActive
	StateRedundant
)

func (s State) String() string {
	switch s {
	case StateParsed:
		return "parsed"
	case StateInstalling:
		return "installing"
	case StateWaiting:
		return "waiting"
	case StateActive:
		return "active"
	case StateRedundant:
		return "redundant"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const (
	generationStatic  = "static"
	generationDynamic = "dynamic"

	deleteReasonStale = "stale"
	deleteReasonClear = "clear"
)

type Config struct {
	// Version prefixes both generation names. Defaults to DefaultVersion.
	Version string
	// Origin is the scope the controller intercepts.
	Origin *url.URL
	// Manifest defaults to the package Manifest.
	Manifest []string
	// Transport reaches the network. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
	Storage   Storage
	// Concurrency bounds precache fetches. Defaults to 4.
	Concurrency int

	Logger  *log.Logger
	Metrics *metrics.Metrics
	Bus     *events.Bus
	Now     func() time.Time
}

// Controller owns one version of the cache generations.
type Controller struct {
	version   string
	origin    *url.URL
	manifest  []string
	transport http.RoundTripper
	storage   Storage
	limit     int

	logger  *log.Logger
	metrics *metrics.Metrics
	bus     *events.Bus
	now     func() time.Time

	mu          sync.RWMutex
	state       State
	skipWaiting bool
	claimed     bool
}

var _ http.RoundTripper = (*Controller)(nil)

func NewController(cfg Config) (*Controller, error) {
	if cfg.Origin == nil || cfg.Origin.Scheme == "" || cfg.Origin.Host == "" {
		return nil, errors.New("offline: origin must be an absolute URL")
	}
	if cfg.Storage == nil {
		return nil, errors.New("offline: storage is required")
	}

	c := &Controller{
		version:   cfg.Version,
		origin:    cfg.Origin,
		manifest:  cfg.Manifest,
		transport: cfg.Transport,
		storage:   cfg.Storage,
		limit:     cfg.Concurrency,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		bus:       cfg.Bus,
		now:       cfg.Now,
	}
	if c.version == "" {
		c.version = DefaultVersion
	}
	if c.manifest == nil {
		c.manifest = Manifest
	}
	if c.transport == nil {
		c.transport = http.DefaultTransport
	}
	if c.limit <= 0 {
		c.limit = 4
	}
	if c.logger == nil {
		c.logger = log.Default(log.ComponentOffline)
	}
	c.logger = c.logger.WithComponent(log.ComponentOffline).With(log.FieldVersion, c.version)
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

func (c *Controller) Version() string      { return c.version }
func (c *Controller) StaticCache() string  { return c.version + "-" + generationStatic }
func (c *Controller) DynamicCache() string { return c.version + "-" + generationDynamic }

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SkipWaiting asks to supersede the active controller as soon as installed.
func (c *Controller) SkipWaiting() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skipWaiting = true
}

func (c *Controller) WantsSkipWaiting() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.skipWaiting
}

// Claimed reports whether the controller has taken over open clients.
func (c *Controller) Claimed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.claimed
}

func (c *Controller) setState(ctx context.Context, s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()

	if prev == s {
		return
	}
	c.logger.InfoContext(ctx, "Controller state changed", log.FieldState, s.String())

	var kind events.Kind
	switch s {
	case StateWaiting:
		kind = events.KindControllerInstalled
	case StateActive:
		kind = events.KindControllerActivated
	case StateRedundant:
		kind = events.KindControllerRedundant
	default:
		return
	}
	c.bus.Publish(ctx, events.New(kind, log.ComponentOffline, map[string]string{
		"version": c.version,
	}))
}

// Install opens the static generation, precaches the manifest and signals
// skip-waiting. Asset failures never fail the install.
func (c *Controller) Install(ctx context.Context) error {
	c.setState(ctx, StateInstalling)

	if err := c.storage.Open(ctx, c.StaticCache()); err != nil {
		c.setState(ctx, StateRedundant)
		return fmt.Errorf("open %s: %w", c.StaticCache(), err)
	}

	failed := c.Precache(ctx)
	if failed > 0 {
		c.logger.WarnContext(ctx, "Failed to cache some assets",
			log.FieldOperation, log.OpInstall, log.FieldCount, failed)
	}

	c.SkipWaiting()
	c.setState(ctx, StateWaiting)
	return nil
}

// Precache fetches every manifest path into the static generation and
// returns the number of assets that could not be stored.
func (c *Controller) Precache(ctx context.Context) int {
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit)
	for _, p := range c.manifest {
		g.Go(func() error {
			if err := c.precacheOne(gctx, p); err != nil {
				failed.Add(1)
				c.metrics.RecordPrecacheFailure()
				c.logger.WarnContext(gctx, "Failed to precache asset",
					log.FieldOperation, log.OpInstall, log.FieldPath, p, log.FieldError, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(failed.Load())
}

func (c *Controller) precacheOne(ctx context.Context, path string) error {
	u := c.resolve(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.transport.RoundTrip(req)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	err = c.storage.Put(ctx, c.StaticCache(), newEntry(CacheKey(u), resp, body, c.now()))
	c.metrics.RecordCacheWrite(generationStatic, err)
	return err
}

// Activate deletes every generation not owned by this controller, then
// claims clients.
func (c *Controller) Activate(ctx context.Context) error {
	names, err := c.storage.Keys(ctx)
	if err != nil {
		return fmt.Errorf("list cache generations: %w", err)
	}

	for _, name := range names {
		if name == c.StaticCache() || name == c.DynamicCache() {
			continue
		}
		c.logger.InfoContext(ctx, "Deleting old cache",
			log.FieldOperation, log.OpActivate, log.FieldCacheName, name)
		if _, err := c.storage.Delete(ctx, name); err != nil {
			c.logger.ErrorContext(ctx, "Failed to delete old cache",
				log.FieldOperation, log.OpActivate, log.FieldCacheName, name, log.FieldError, err)
			continue
		}
		c.metrics.RecordGenerationDeleted(deleteReasonStale)
	}

	c.mu.Lock()
	c.claimed = true
	c.mu.Unlock()
	c.setState(ctx, StateActive)
	return nil
}

// ClearCaches deletes every generation in storage, including this
// controller's own.
func (c *Controller) ClearCaches(ctx context.Context) (int, error) {
	names, err := c.storage.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("list cache generations: %w", err)
	}

	var errs []error
	deleted := 0
	for _, name := range names {
		ok, err := c.storage.Delete(ctx, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", name, err))
			continue
		}
		if ok {
			deleted++
			c.metrics.RecordGenerationDeleted(deleteReasonClear)
		}
	}

	c.bus.Publish(ctx, events.New(events.KindCacheCleared, log.ComponentOffline, map[string]string{
		"version": c.version,
	}))
	return deleted, errors.Join(errs...)
}

// RoundTrip answers req network-first. Only same-origin GETs are
// intercepted; anything else goes straight to the transport.
func (c *Controller) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet || !c.sameOrigin(req.URL) {
		c.metrics.RecordFetch(metrics.OutcomePassthrough)
		return c.transport.RoundTrip(req)
	}

	ctx := req.Context()
	key := CacheKey(req.URL)

	resp, err := c.fromNetwork(req, key)
	if err == nil {
		c.metrics.RecordFetch(metrics.OutcomeNetwork)
		return resp, nil
	}
	c.logger.DebugContext(ctx, "Network failed, trying cache",
		log.FieldOperation, log.OpFetch, log.FieldURL, key, log.FieldError, err)

	if e, ok := c.matchAny(ctx, key); ok {
		c.logger.DebugContext(ctx, "Serving from cache", log.FieldOperation, log.OpFetch, log.FieldURL, key)
		c.metrics.RecordFetch(metrics.OutcomeCache)
		return e.Response(req), nil
	}

	if isNavigation(req) {
		if e, ok := c.matchAny(ctx, CacheKey(c.resolve(ShellPath))); ok {
			c.metrics.RecordFetch(metrics.OutcomeShell)
			return e.Response(req), nil
		}
	}

	c.metrics.RecordFetch(metrics.OutcomeOffline)
	return offlineResponse(req), nil
}

func (c *Controller) fromNetwork(req *http.Request, key string) (*http.Response, error) {
	resp, err := c.transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	gen, name := generationDynamic, c.DynamicCache()
	if slices.Contains(c.manifest, req.URL.Path) {
		gen, name = generationStatic, c.StaticCache()
	}
	err = c.storage.Put(req.Context(), name, newEntry(key, resp, body, c.now()))
	c.metrics.RecordCacheWrite(gen, err)
	if err != nil {
		c.logger.WarnContext(req.Context(), "Failed to cache response",
			log.FieldOperation, log.OpFetch, log.FieldCacheName, name, log.FieldURL, key, log.FieldError, err)
	}
	return resp, nil
}

// matchAny looks key up in every generation, oldest first.
func (c *Controller) matchAny(ctx context.Context, key string) (Entry, bool) {
	names, err := c.storage.Keys(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to list cache generations", log.FieldError, err)
		return Entry{}, false
	}
	for _, name := range names {
		e, ok, err := c.storage.Match(ctx, name, key)
		if err != nil {
			c.logger.WarnContext(ctx, "Cache lookup failed",
				log.FieldCacheName, name, log.FieldURL, key, log.FieldError, err)
			continue
		}
		if ok {
			return e, true
		}
	}
	return Entry{}, false
}

func (c *Controller) sameOrigin(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, c.origin.Scheme) && strings.EqualFold(u.Host, c.origin.Host)
}

func (c *Controller) resolve(path string) *url.URL {
	return c.origin.ResolveReference(&url.URL{Path: path})
}

// isNavigation reports whether req loads a top-level document.
func isNavigation(req *http.Request) bool {
	if req.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return strings.Contains(req.Header.Get("Accept"), "text/html")
}

func (c *Controller) markRedundant(ctx context.Context) {
	c.setState(ctx, StateRedundant)
}
