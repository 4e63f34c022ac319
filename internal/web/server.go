// Package web provides the HTTP server for the table upload service. The
// API is JSON only: clients post multipart forms and receive schema
// previews, load results, and upload records back as JSON.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tableport/tableport/internal/config"
	"github.com/tableport/tableport/internal/core"
	mw "github.com/tableport/tableport/internal/web/middleware"
)

// Pinger reports whether a backing dependency is reachable. *pgxpool.Pool
// satisfies it; a nil Pinger skips the check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP front end over the upload service.
type Server struct {
	service  *core.Service
	engines  core.EngineCatalog
	cfg      *config.Config
	pinger   Pinger
	router   *chi.Mux
	server   *http.Server
	draining atomic.Bool
}

// NewServer assembles the router. pinger may be nil when no metadata
// database is configured.
func NewServer(service *core.Service, engines core.EngineCatalog, cfg *config.Config, pinger Pinger) *Server {
	s := &Server{
		service: service,
		engines: engines,
		cfg:     cfg,
		pinger:  pinger,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	// Security hardening
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
//
// Upload routes carry no middleware timeout: the service enforces its own
// per-upload budget, and a short middleware deadline would cut long loads
// off mid-flight. Read routes get the standard request timeout.
func (s *Server) setupRoutes() {
	// Health endpoints stay open: no auth, no rate limit
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	general := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
	uploads := newRateLimiter(s.cfg.Rate.UploadLimit, time.Minute)

	s.router.Route("/api/table-upload", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security))
		if s.cfg.Rate.Enabled {
			r.Use(general.middleware)
		}

		// Read endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
			r.Get("/engines", s.handleListEngines)
			r.Get("/uploads", s.handleListUploads)
			r.Get("/uploads/{uploadID}", s.handleGetUpload)
		})

		// Data-bearing endpoints
		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				r.Use(uploads.middleware)
			}
			r.Post("/preview", s.handlePreview)
			r.Post("/", s.handleUpload)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("server listening", "addr", addr)
	return s.server.ListenAndServe()
}

// SetDraining flips the readiness probe to failing so load balancers stop
// routing new work here while in-flight uploads finish.
func (s *Server) SetDraining() {
	s.draining.Store(true)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking; the API serves no frames
		w.Header().Set("X-Frame-Options", "DENY")

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// rateLimiter implements a simple token bucket rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter with the specified rate per window.
func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
	}
	// Start cleanup goroutine
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every minute.
func (rl *rateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{
			tokens:    rl.rate - 1, // consume one token
			lastReset: time.Now(),
		}
		return true
	}

	// Reset tokens if window has passed
	if time.Since(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = time.Now()
		return true
	}

	// Check if we have tokens left
	if v.tokens <= 0 {
		return false
	}

	v.tokens--
	return true
}

// middleware returns an HTTP middleware that rate limits by IP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// RemoteAddr has already been rewritten by TrustedRealIP when the
		// request came through a trusted proxy
		if !rl.allow(r.RemoteAddr) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeError writes a minimal JSON error, for middleware-level rejections
// that never reach the error mapper.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON encodes v as JSON with the given status code.
// Encoding errors are logged since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}
