package security

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Directive is one Content-Security-Policy entry, e.g. {"img-src", "'self' data:"}.
type Directive struct {
	Name    string
	Sources string
}

// Policy lists the response headers the origin sends with every response.
type Policy struct {
	CSP []Directive
	// HSTS is sent over TLS only; zero disables it.
	HSTS              time.Duration
	HSTSSubdomains    bool
	FrameOptions      string
	ReferrerPolicy    string
	Permissions       []string
	CrossOriginPolicy string
}

// ShellPolicy is the policy for the app shell: everything same-origin, with
// the manifest and the offline worker allowed explicitly.
func ShellPolicy() Policy {
	return Policy{
		CSP: []Directive{
			{"default-src", "'self'"},
			{"script-src", "'self'"},
			{"style-src", "'self' 'unsafe-inline'"},
			{"img-src", "'self' data:"},
			{"connect-src", "'self'"},
			{"manifest-src", "'self'"},
			{"worker-src", "'self'"},
			{"object-src", "'none'"},
			{"frame-ancestors", "'none'"},
			{"base-uri", "'self'"},
			{"form-action", "'self'"},
		},
		HSTS:              365 * 24 * time.Hour,
		HSTSSubdomains:    true,
		FrameOptions:      "DENY",
		ReferrerPolicy:    "strict-origin-when-cross-origin",
		Permissions:       []string{"geolocation=()", "microphone=()", "camera=()", "payment=()"},
		CrossOriginPolicy: "same-origin",
	}
}

func (p Policy) contentSecurityPolicy() string {
	parts := make([]string, 0, len(p.CSP))
	for _, d := range p.CSP {
		parts = append(parts, d.Name+" "+d.Sources)
	}
	return strings.Join(parts, "; ")
}

func (p Policy) strictTransportSecurity() string {
	if p.HSTS <= 0 {
		return ""
	}
	v := fmt.Sprintf("max-age=%d", int64(p.HSTS/time.Second))
	if p.HSTSSubdomains {
		v += "; includeSubDomains"
	}
	return v
}

// Headers sets the policy's headers before calling next. Header values are
// rendered once.
func Headers(p Policy) func(http.Handler) http.Handler {
	static := http.Header{}
	static.Set("X-Content-Type-Options", "nosniff")
	if p.FrameOptions != "" {
		static.Set("X-Frame-Options", p.FrameOptions)
	}
	if csp := p.contentSecurityPolicy(); csp != "" {
		static.Set("Content-Security-Policy", csp)
	}
	if p.ReferrerPolicy != "" {
		static.Set("Referrer-Policy", p.ReferrerPolicy)
	}
	if len(p.Permissions) > 0 {
		static.Set("Permissions-Policy", strings.Join(p.Permissions, ", "))
	}
	if p.CrossOriginPolicy != "" {
		static.Set("Cross-Origin-Opener-Policy", p.CrossOriginPolicy)
		static.Set("Cross-Origin-Resource-Policy", p.CrossOriginPolicy)
	}
	hsts := p.strictTransportSecurity()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for k, v := range static {
				h[k] = v
			}
			if r.TLS != nil && hsts != "" {
				h.Set("Strict-Transport-Security", hsts)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Revalidate makes clients and intermediaries check back before reusing a
// response. The shell and manifest use it so a new version is picked up by
// the next network-first fetch.
func Revalidate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		next.ServeHTTP(w, r)
	})
}

// Immutable lets versioned assets be cached for maxAge.
func Immutable(maxAge time.Duration) func(http.Handler) http.Handler {
	value := fmt.Sprintf("public, max-age=%d, immutable", int64(maxAge/time.Second))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge > 0 {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
