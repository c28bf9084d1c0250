// Package httpx contains the HTTP delivery layer (net/http handlers) for the
// Wishaday service. It maps HTTP requests to the application service while
// enforcing validation, body size limits, per-IP creation rate limits,
// security headers, and error translation. Handlers are split across files
// (create.go, wish.go, admin.go, health.go, errors.go).
package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hareeshworks/wishaday/internal/app"
)

// ServicePort abstracts the subset of app.Service used by the HTTP layer.
// It is satisfied by *app.Service in production and mocked in tests.
type ServicePort interface {
	Create(ctx context.Context, in app.CreateInput) (app.CreateResult, error)
	View(ctx context.Context, slug string) (*app.ViewPayload, error)
	Delete(ctx context.Context, slug string) error
	Status(ctx context.Context, slug string) (*app.StatusPayload, error)
	RunSweep(ctx context.Context) (app.SweepReport, error)
	Summary(ctx context.Context) (app.SummaryReport, error)
}

// Allower is the per-client creation quota port, satisfied by
// *ratelimit.Limiter. Nil on the Handler disables rate limiting.
type Allower interface {
	Allow(key string) (ok bool, resetAt time.Time)
}

// Handler wires HTTP endpoints to the application service.
// It is safe for concurrent use. Zero-value is not valid; construct via New.
type Handler struct {
	Service    ServicePort
	MaxBody    int64                       // request body cap for create (0 disables)
	Readiness  func(context.Context) error // optional readiness probe
	Limiter    Allower                     // optional per-IP creation limiter
	AdminToken string                      // bearer token guarding admin routes ("" disables auth)
	Metrics    http.HandlerFunc            // optional metrics endpoint, mounted at /metrics
	validate   *validator.Validate
}

// New returns a configured Handler.
// svc: application service port implementation.
// maxBody: maximum allowed request body size for creation (0 disables).
// readiness: optional probe function for /readyz (nil => always ready).
func New(svc ServicePort, maxBody int64, readiness func(context.Context) error) *Handler {
	return &Handler{
		Service:   svc,
		MaxBody:   maxBody,
		Readiness: readiness,
		validate:  validator.New(),
	}
}

// Router constructs and returns an http.Handler with all routes mounted and
// the correlation ID and security headers middleware applied.
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/wishes", h.handleCreateWish)
	mux.HandleFunc("/api/wishes/", h.handleWish) // expect /api/wishes/{slug}[/status]
	mux.HandleFunc("/api/admin/cleanup", h.handleCleanup)
	mux.HandleFunc("/api/admin/cleanup/summary", h.handleCleanupSummary)
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/readyz", h.handleReady)
	if h.Metrics != nil {
		mux.HandleFunc("/metrics", h.Metrics)
	}
	return CorrelationIDMiddleware(h.secureHeaders(mux))
}

// secureHeaders middleware adds standard security & cache control headers.
// Every response carries no-store caching: wish payloads consume views and
// must never be replayed from an intermediary cache.
func (h *Handler) secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'")
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the Bearer credential from an Authorization header,
// returning "" when absent or malformed.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, prefix))
}
