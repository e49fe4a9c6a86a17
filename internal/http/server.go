package http

import (
	"context"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"spendwise/internal/install"
	"spendwise/internal/log"
	"spendwise/internal/metrics"
	"spendwise/internal/middleware/ratelimit"
	"spendwise/internal/middleware/security"
	"spendwise/internal/middleware/trace"
	"spendwise/internal/services"
	"spendwise/internal/storage"
	"spendwise/internal/store"
	appweb "spendwise/web"
)

// Deps are the collaborators of the origin server.
type Deps struct {
	Store   *store.Store
	Service *services.TransactionService
	Prompt  *install.Prompt
	// KV is pinged by /readyz.
	KV        storage.KV
	Metrics   *metrics.Metrics
	Logger    *log.Logger
	RateLimit ratelimit.Config
	Now       func() time.Time
}

// Server is the origin: the JSON API over the transaction store and the
// embedded app shell.
type Server struct {
	http.Server

	store   *store.Store
	service *services.TransactionService
	prompt  *install.Prompt
	kv      storage.KV
	metrics *metrics.Metrics
	logger  *log.Logger
	now     func() time.Time
	started time.Time

	shell fs.FS

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		store:            deps.Store,
		service:          deps.Service,
		prompt:           deps.Prompt,
		kv:               deps.KV,
		metrics:          deps.Metrics,
		logger:           logger,
		now:              now,
		started:          now(),
		rateLimiter:      ratelimit.NewLimiter(deps.RateLimit),
		securityDetector: security.NewDetector(logger),
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, logger, deps.Metrics)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		s.shell = sub
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/transactions/filtered", s.handleFilteredTransactions)
	mux.Handle("POST /api/transactions", s.limited(s.handleCreateTransaction))
	mux.Handle("PUT /api/transactions/{id}", s.limited(s.handleUpdateTransaction))
	mux.Handle("DELETE /api/transactions/{id}", s.limited(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/filter", s.handleGetFilter)
	mux.HandleFunc("PATCH /api/filter", s.handlePatchFilter)
	mux.HandleFunc("DELETE /api/filter", s.handleResetFilter)

	mux.HandleFunc("GET /api/analytics/summary", s.handleSummary)
	mux.HandleFunc("GET /api/analytics/monthly", s.handleMonthlyTrend)
	mux.HandleFunc("GET /api/analytics/daily", s.handleDailyTrend)
	mux.HandleFunc("GET /api/months", s.handleMonths)

	mux.HandleFunc("GET /api/install/status", s.handleInstallStatus)
	mux.HandleFunc("GET /api/install/instructions", s.handleInstallInstructions)
	mux.Handle("POST /api/install/events", s.limited(s.handleInstallEvent))
	mux.Handle("POST /api/install/choice", s.limited(s.handleInstallChoice))
	mux.Handle("POST /api/install/dismiss", s.limited(s.handleInstallDismiss))

	mux.HandleFunc("/api/", s.handleAPINotFound)
	mux.Handle("/", s.shellHandler())

	var handler http.Handler = mux
	handler = security.Headers(security.ShellPolicy())(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// limited applies the per-client rate limit. Only writes are limited.
func (s *Server) limited(h http.HandlerFunc) http.Handler {
	return s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	})(h)
}

// Shutdown gracefully shuts down the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
