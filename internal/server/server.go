// Package server is the composition root for the HTTP surface: it wires
// middleware, routes and handlers, and owns the listen/shutdown lifecycle.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/cpp-engine/internal/analysis"
	"github.com/sakif/cpp-engine/internal/auth"
	"github.com/sakif/cpp-engine/internal/config"
	"github.com/sakif/cpp-engine/internal/handler"
	"github.com/sakif/cpp-engine/internal/middleware"
	"github.com/sakif/cpp-engine/internal/repository"
)

// Deps are the already-constructed dependencies the server routes to.
// Store may be nil (history endpoints are not mounted). Closers are shut
// down, in order, after the HTTP server drains.
type Deps struct {
	Engine  handler.Engine
	Store   repository.RunRepository
	Closers []io.Closer
}

// Server owns the router and the HTTP lifecycle.
type Server struct {
	router  *chi.Mux
	cfg     config.Config
	logger  *slog.Logger
	closers []io.Closer
}

// New builds the router. Bearer-token auth is installed only when both a JWT
// secret and an API key hash are configured; otherwise the API is open.
func New(cfg config.Config, logger *slog.Logger, deps Deps) (*Server, error) {
	s := &Server{
		router:  chi.NewRouter(),
		cfg:     cfg,
		logger:  logger,
		closers: deps.Closers,
	}

	metrics := middleware.NewMetrics()

	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(chimw.Recoverer)
	s.router.Use(middleware.Logger(logger))
	s.router.Use(metrics.Handler)

	executeHandler := handler.NewExecuteHandler(deps.Engine, logger)
	analyzeHandler := handler.NewAnalyzeHandler(analysis.New(), logger)
	healthHandler := handler.NewHealthHandler(deps.Engine)
	metricsHandler := handler.NewMetricsHandler(metrics)

	s.router.Get("/", handler.HandleDocs)
	s.router.Get("/health", healthHandler.HandleHealth)

	authEnabled := cfg.APIKeyHash != "" && cfg.JWTSecret != ""
	var tokens *auth.TokenService
	if authEnabled {
		var err error
		tokens, err = auth.NewTokenService(cfg.JWTSecret)
		if err != nil {
			return nil, fmt.Errorf("configuring token service: %w", err)
		}
		logger.Info("API authentication enabled")
	}

	s.router.Route("/api", func(r chi.Router) {
		// Operational endpoints stay open, like /health.
		r.Get("/metrics", metricsHandler.HandleMetrics)
		if authEnabled {
			tokenHandler := handler.NewTokenHandler(tokens, cfg.APIKeyHash, logger)
			r.Post("/token", tokenHandler.HandleToken)
		}
		r.Group(func(r chi.Router) {
			if authEnabled {
				r.Use(auth.RequireAuth(tokens))
			}
			r.Post("/execute", executeHandler.HandleExecute)
			r.Post("/compile", executeHandler.HandleCompile)
			r.Post("/analyze", analyzeHandler.HandleAnalyze)
			if deps.Store != nil {
				runsHandler := handler.NewRunsHandler(deps.Store, logger)
				r.Get("/runs", runsHandler.HandleList)
				r.Get("/runs/{id}", runsHandler.HandleGetByID)
			}
		})
	})

	return s, nil
}

// Router exposes the configured mux, mainly for httptest in integration
// tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests and closes the owned dependencies (sandbox backend, database).
func (s *Server) Start() error {
	defer s.closeAll()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // execute requests stream for up to the run timeout
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.Bool("sandbox", s.cfg.SandboxEnabled),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
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

func (s *Server) closeAll() {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			s.logger.Error("closing dependency", slog.String("error", err.Error()))
		}
	}
}
