package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/faucetdb/codespace/internal/cache"
	"github.com/faucetdb/codespace/internal/codespace"
	"github.com/faucetdb/codespace/internal/handler"
	"github.com/faucetdb/codespace/internal/server/middleware"
	"github.com/faucetdb/codespace/internal/service"
	"github.com/faucetdb/codespace/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	MaxBodySize     int64 // bytes

	// AnonymousPerMinute caps anonymous codespace creation per client IP.
	// Zero disables the limit.
	AnonymousPerMinute int
	// LoginPerMinute caps login and registration attempts per client IP.
	LoginPerMinute int

	Version string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8000,
		ShutdownTimeout:    30 * time.Second,
		CORSOrigins:        []string{"*"},
		MaxBodySize:        1 << 20, // 1MB
		AnonymousPerMinute: 30,
		LoginPerMinute:     20,
		Version:            "dev",
	}
}

// Deps are the wired services the router dispatches to.
type Deps struct {
	Store      *store.Store
	Cache      cache.Store
	CodeSpaces *codespace.Service
	Ephemeral  *codespace.EphemeralStore
	Auth       *service.AuthService
	Users      *service.UserService
	Share      *service.ShareService
}

// Server is the top-level HTTP server. It owns the Chi router and the
// services behind it, and closes the backing stores on shutdown.
type Server struct {
	cfg        Config
	deps       Deps
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with every route mounted. Call ListenAndServe to
// start accepting connections.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, deps: deps, logger: logger}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handler.AccessTokenHeader, "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if s.cfg.MaxBodySize > 0 {
		r.Use(chimw.RequestSize(s.cfg.MaxBodySize))
	}

	d := s.deps
	sysH := handler.NewSystemHandler(map[string]handler.Pinger{
		"database": d.Store,
		"cache":    d.Cache,
	})
	csH := handler.NewCodeSpaceHandler(d.CodeSpaces, d.Ephemeral, d.Share, s.logger)
	shareH := handler.NewShareHandler(d.Share)
	authH := handler.NewAuthHandler(d.Auth, d.Users)
	userH := handler.NewUserHandler(d.Users)

	// --- Probes and API description (no auth required) ---
	r.Get("/healthz", sysH.Healthz)
	r.Get("/readyz", sysH.Readyz)
	r.Get("/openapi.json", handler.NewOpenAPIHandler(s.cfg.Version).Serve)

	loginLimit := passthrough
	if s.cfg.LoginPerMinute > 0 {
		loginLimit = middleware.RateLimit(s.cfg.LoginPerMinute)
	}
	anonLimit := passthrough
	if s.cfg.AnonymousPerMinute > 0 {
		anonLimit = middleware.RateLimitAnonymous(s.cfg.AnonymousPerMinute)
	}

	r.Route("/auth", func(r chi.Router) {
		r.With(loginLimit, middleware.OptionalAuthenticate(d.Auth), middleware.RequireAnonymous()).Post("/register", authH.Register)
		r.With(loginLimit).Post("/token", authH.Login)
		r.Post("/token/refresh", authH.Refresh)
		r.With(middleware.Authenticate(d.Auth)).Get("/token/verify", authH.Verify)
	})

	r.Route("/user", func(r chi.Router) {
		r.Use(middleware.Authenticate(d.Auth))
		r.Get("/", userH.Get)
		r.Patch("/", userH.Update)
		r.Delete("/", userH.Delete)
	})

	r.Route("/codespace", func(r chi.Router) {
		r.Use(middleware.OptionalAuthenticate(d.Auth))
		r.Get("/", csH.List)
		r.With(anonLimit).Post("/", csH.Create)

		// Share tokens
		r.Post("/access/token", shareH.Issue)
		r.Post("/access/token/verify", shareH.Verify)
		r.Get("/access/token/{token}", shareH.Open)

		r.Patch("/save_changes/{id}", csH.SaveChanges)
		r.Get("/{id}", csH.Get)
		r.Patch("/{id}", csH.Update)
		r.Delete("/{id}", csH.Delete)
		r.Put("/{id}/code", csH.PutCode)
	})

	s.router = r
}

func passthrough(next http.Handler) http.Handler { return next }

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then drains in-flight requests and closes the backing
// stores.
func (s *Server) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := s.deps.Cache.Close(); err != nil {
		s.logger.Warn("cache close failed", "error", err)
	}
	if err := s.deps.Store.Close(); err != nil {
		s.logger.Warn("database close failed", "error", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
