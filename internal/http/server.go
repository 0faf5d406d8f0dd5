// Package http serves the subscription tracker web app: server-rendered
// pages with HTMX partials for the dashboard and subscription list.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/singleflight"

	"subtrack/internal/auth"
	"subtrack/internal/cache"
	"subtrack/internal/core"
	"subtrack/internal/middleware/ratelimit"
	"subtrack/internal/middleware/security"
	"subtrack/internal/middleware/trace"
	"subtrack/internal/services"
	"subtrack/internal/storage"
	appweb "subtrack/web"
)

// SubscriptionAPI is the service surface the handlers call. Implemented
// by services.SubscriptionService.
type SubscriptionAPI interface {
	Create(ctx context.Context, userID string, in services.SubscriptionInput) (*core.Subscription, error)
	Update(ctx context.Context, userID, id string, in services.SubscriptionInput) (*core.Subscription, error)
	Delete(ctx context.Context, userID, id string) error
	Get(ctx context.Context, userID, id string) (*core.Subscription, error)
	List(ctx context.Context, userID string, filter storage.ListFilter) ([]core.Subscription, error)
	Categories(ctx context.Context, userID string) ([]string, error)
	Metrics(ctx context.Context, userID string, now time.Time) (core.Metrics, error)
}

type Server struct {
	http.Server
	templates *template.Template

	subs     SubscriptionAPI
	auth     *auth.Authenticator
	sessions *auth.SessionManager
	currency string

	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
	cacheMgr    *cache.Manager

	// Dashboard aggregates keyed by user ID, invalidated on any write.
	// The flight group collapses concurrent recomputations per user.
	metricsCache *cache.LRUCache[core.Metrics]
	metricsGroup singleflight.Group

	shutdownOnce sync.Once
}

func NewServer(addr string, subs SubscriptionAPI, authn *auth.Authenticator, sessions *auth.SessionManager, defaultCurrency string) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		subs:         subs,
		auth:         authn,
		sessions:     sessions,
		currency:     defaultCurrency,
		detector:     security.NewDetector(),
		rateLimiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		cacheMgr:     cache.NewManager(),
		metricsCache: cache.NewLRUCache[core.Metrics](500, 5*time.Minute),
	}

	s.cacheMgr.Register(s.metricsCache)
	s.cacheMgr.StartCleanup(10 * time.Minute)

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Auth pages stay outside the session check.
	mux.Handle("GET /login", s.public(s.handleLoginPage))
	mux.Handle("POST /login", s.public(s.handleLogin))
	mux.Handle("GET /register", s.public(s.handleRegisterPage))
	mux.Handle("POST /register", s.public(s.handleRegister))
	mux.Handle("POST /logout", s.public(s.handleLogout))

	mux.Handle("GET /{$}", s.protected(s.handleDashboard))
	mux.Handle("GET /subscriptions", s.protected(s.handleSubscriptionsPage))
	mux.Handle("POST /subscriptions", s.protected(s.handleCreateSubscription))
	mux.Handle("GET /subscriptions/{id}/edit", s.protected(s.handleEditForm))
	mux.Handle("POST /subscriptions/{id}", s.protected(s.handleUpdateSubscription))
	mux.Handle("DELETE /subscriptions/{id}", s.protected(s.handleDeleteSubscription))

	mux.Handle("GET /ui/dashboard-metrics", s.protected(s.handleMetricsPartial))
	mux.Handle("GET /ui/subscriptions", s.protected(s.handleSubscriptionListPartial))
	mux.Handle("GET /ui/suggestions", s.protected(s.handleSuggestionsPartial))

	return s
}

// Shutdown stops the HTTP server and background cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		s.cacheMgr.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// public wraps a handler with tracing, rate limiting and security
// headers, but no session check.
func (s *Server) public(h http.HandlerFunc) http.Handler {
	traced := trace.NewMiddleware(s.detector.ExtractClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, nil)

	return traced.Middleware(headers.Middleware(limited(s.detect(h))))
}

// protected additionally requires a valid session cookie.
func (s *Server) protected(h http.HandlerFunc) http.Handler {
	return s.public(s.requireAuth(h))
}

func (s *Server) detect(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request blocked",
				"path", r.URL.Path,
				"client_ip", s.detector.ExtractClientIP(r))
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	}
}

func (s *Server) invalidateMetrics(userID string) {
	s.metricsCache.Delete(userID)
}

func (s *Server) userMetrics(ctx context.Context, userID string) (core.Metrics, error) {
	if m, found := s.metricsCache.Get(userID); found {
		slog.DebugContext(ctx, "Metrics cache hit", "user_id", userID)
		return m, nil
	}

	v, err, _ := s.metricsGroup.Do(userID, func() (any, error) {
		cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
		defer cancel()
		m, err := s.subs.Metrics(cctx, userID, time.Now())
		if err != nil {
			return nil, err
		}
		s.metricsCache.Set(userID, m)
		return m, nil
	})
	if err != nil {
		return core.Metrics{}, err
	}
	return v.(core.Metrics), nil
}
