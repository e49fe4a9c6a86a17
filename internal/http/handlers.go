package http

import (
	"bytes"
	"context"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"spendwise/internal/log"
	"spendwise/internal/middleware/security"
	"spendwise/internal/storage"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	})
}

// handleReady checks that the shell is mounted and the KV store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.shell == nil {
		checks["shell"] = "failed: static assets not mounted"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["shell"] = "ok"
	}

	if s.kv != nil {
		if _, _, err := s.kv.Get(ctx, storage.TransactionsKey); err != nil {
			checks["storage"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	} else {
		checks["storage"] = "not_configured"
	}

	checks["transactions"] = len(s.store.Transactions())
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"rejected":       s.rateLimiter.Hits(),
	}
	checks["suspicious_requests"] = s.securityDetector.SuspiciousRequests()

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleAPINotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

// shellHandler serves the embedded app shell. The page and manifest are
// revalidated on every fetch, icons are cached for an hour. Files are served
// directly rather than through http.FileServer so /index.html answers 200
// instead of redirecting to /.
func (s *Server) shellHandler() http.Handler {
	serve := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.shell == nil {
			s.logger.ErrorContext(r.Context(), "Static assets not mounted", log.FieldPath, r.URL.Path)
			http.Error(w, "app shell not available", http.StatusInternalServerError)
			return
		}

		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name == "" {
			name = "index.html"
		}
		data, err := fs.ReadFile(s.shell, name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, name, s.started, bytes.NewReader(data))
	})

	revalidated := security.Revalidate(serve)
	cached := security.Immutable(time.Hour)(serve)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/", "/index.html", "/manifest.json":
			revalidated.ServeHTTP(w, r)
		default:
			cached.ServeHTTP(w, r)
		}
	})
}
