// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: New opens the credential store, builds the
// password, token and auth services and hands them to the handlers. Nothing
// else in the tree constructs a dependency.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sakif/auth-gateway/internal/auth"
	"github.com/sakif/auth-gateway/internal/config"
	"github.com/sakif/auth-gateway/internal/handler"
	"github.com/sakif/auth-gateway/internal/middleware"
	"github.com/sakif/auth-gateway/internal/repository"
	"github.com/sakif/auth-gateway/internal/repository/postgres"
	sqliteRepo "github.com/sakif/auth-gateway/internal/repository/sqlite"
	"github.com/sakif/auth-gateway/internal/service"
	"github.com/sakif/auth-gateway/internal/telemetry"
)

// Store is what the server needs from a credential store backend.
type Store interface {
	repository.UserRepository
	repository.Pinger
	Close() error
}

// Server represents the HTTP server and all its dependencies.
// It owns the store and closes it on shutdown.
type Server struct {
	router    *chi.Mux
	handler   http.Handler
	config    config.Config
	logger    *slog.Logger
	store     Store
	passwords *auth.PasswordService
}

// Option customises a Server before routes are built.
type Option func(*Server)

// WithPasswordService overrides the bcrypt cost, used by tests.
func WithPasswordService(p *auth.PasswordService) Option {
	return func(s *Server) { s.passwords = p }
}

// New opens the store named by cfg and wires every route.
// An unreachable store is an error: the gateway does not start without one.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	store, err := openStore(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}

	s, err := NewWithStore(cfg, store, logger, opts...)
	if err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

// NewWithStore wires the routes on an already open store.
func NewWithStore(cfg config.Config, store Store, logger *slog.Logger, opts ...Option) (*Server, error) {
	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		logger:    logger,
		store:     store,
		passwords: auth.NewPasswordService(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	s.handler = otelhttp.NewHandler(s.router, telemetry.ServiceName)

	return s, nil
}

func openStore(ctx context.Context, db config.DBConfig) (Store, error) {
	switch db.Driver {
	case config.DriverPostgres:
		store, err := postgres.New(ctx, db.PostgresDSN())
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return store, nil

	case config.DriverSQLite:
		if dir := filepath.Dir(db.Path); db.Path != ":memory:" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
			}
		}
		store, err := sqliteRepo.New(db.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown DB_DRIVER %q", db.Driver)
}

// setupRoutes configures all middleware and route handlers.
//
// POST /query        → single operation endpoint (getUser, login, signup)
// POST /api/signup   → signup
// POST /api/login    → login
// GET  /api/me       → getUser
// GET  /healthz      → store reachability
//
// Identify runs on every route; only getUser insists on an identity.
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.SigningSecret())
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(auth.Identify(tokens, s.logger))
	s.router.Use(middleware.Identity(s.logger))

	authService := service.NewAuthService(s.store, tokens, s.passwords, s.config.TokenTTL, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.logger)
	healthHandler := handler.NewHealthHandler(s.store, s.logger)

	s.router.Post("/query", authHandler.HandleQuery)
	s.router.Get("/healthz", healthHandler.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
		r.Get("/me", authHandler.HandleMe)
	})

	return nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Close releases the store.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up to
// 30 seconds and closes the store.
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("driver", s.config.DB.Driver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
