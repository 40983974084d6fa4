// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer: it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go creates:
//
//	config.Config + logger → Server.New()
//
// Server.New() creates:
//
//	storage.Open (JSON files or SQLite) → auth.PasswordService
//	  → service.Controller → handlers
//
// This is the "composition root" pattern: all dependencies are wired
// in one place (New/NewRouter), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/zzzxajak-prog/FitnessApp/internal/auth"
	"github.com/zzzxajak-prog/FitnessApp/internal/config"
	"github.com/zzzxajak-prog/FitnessApp/internal/handler"
	"github.com/zzzxajak-prog/FitnessApp/internal/middleware"
	"github.com/zzzxajak-prog/FitnessApp/internal/repository"
	"github.com/zzzxajak-prog/FitnessApp/internal/service"
	"github.com/zzzxajak-prog/FitnessApp/internal/storage"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store. When the server shuts down we log the user
// out (stopping any running timers, so no tick writes after the store is
// gone) and then close the store to release the SQLite file lock.
type Server struct {
	router http.Handler
	config config.Config
	logger *slog.Logger
	store  repository.Store
	ctl    *service.Controller
}

// New creates a new Server with the given config.
//
// Each layer only receives what it needs:
// - The controller gets the repository interfaces (not the concrete store)
// - Handlers get the controller (not the repository)
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	store, err := storage.Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	passwords := auth.NewPasswordService(cfg.HashPasswords)
	if !cfg.HashPasswords {
		logger.Warn("passwords are stored in plain text; set hash_passwords to enable bcrypt")
	}

	ctl := service.NewController(store, store, passwords, logger, service.DefaultConfig())

	return &Server{
		router: NewRouter(ctl, logger),
		config: cfg,
		logger: logger,
		store:  store,
		ctl:    ctl,
	}, nil
}

// NewRouter configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// POST   /api/register          → create/replace a credential
// POST   /api/login             → open the session
// POST   /api/logout            → close it
// GET    /api/foods             → food catalog
//
// Behind RequireSession (401 when nobody is logged in):
// GET    /api/state             → dashboard
// POST   /api/water             → add water     PUT /api/water → set water
// POST   /api/calories          → add a food or kcal/100g × grams
// POST   /api/steps             → add steps     POST /api/steps/simulate
// POST   /api/body              → weight + height → BMI
// POST   /api/sleep             → sleep band    POST /api/pulse → pulse band
// GET    /api/goals             → list          POST /api/goals → add
// GET    /api/meditation        → countdown     POST → start, DELETE → cancel
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Recoverer: catches panics and returns 500 instead of crashing
// 4. Logger: logs each request with timing info
func NewRouter(ctl *service.Controller, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// === Global Middleware ===
	r.Use(chimiddleware.RequestID) // Adds X-Request-ID header
	r.Use(chimiddleware.RealIP)    // Extracts real IP from X-Forwarded-For
	r.Use(chimiddleware.Recoverer) // Recovers from panics, returns 500
	r.Use(middleware.Logger(logger))

	authHandler := handler.NewAuthHandler(ctl, logger)
	metricsHandler := handler.NewMetricsHandler(logger)
	goalHandler := handler.NewGoalHandler(logger)
	meditationHandler := handler.NewMeditationHandler(logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/foods", metricsHandler.HandleFoods)

		// Group shares the /api prefix but adds middleware only for these routes.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(ctl))

			r.Get("/state", metricsHandler.HandleState)
			r.Post("/water", metricsHandler.HandleAddWater)
			r.Put("/water", metricsHandler.HandleSetWater)
			r.Post("/calories", metricsHandler.HandleAddCalories)
			r.Post("/steps", metricsHandler.HandleAddSteps)
			r.Post("/steps/simulate", metricsHandler.HandleSimulateSteps)
			r.Post("/body", metricsHandler.HandleBody)
			r.Post("/sleep", metricsHandler.HandleSleep)
			r.Post("/pulse", metricsHandler.HandlePulse)

			r.Get("/goals", goalHandler.HandleList)
			r.Post("/goals", goalHandler.HandleCreate)

			r.Get("/meditation", meditationHandler.HandleStatus)
			r.Post("/meditation", meditationHandler.HandleStart)
			r.Delete("/meditation", meditationHandler.HandleCancel)
		})
	})

	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close logs the active user out, which stops the step and meditation
// timers, and then closes the store. No tick can write after Close returns.
func (s *Server) Close() error {
	s.ctl.Logout()
	return s.store.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Log out, which stops the step and meditation timers
// 4. Close the store (flushes WAL, releases file lock)
func (s *Server) Start() error {
	// Ensure timers stop and the store is closed when the server stops.
	// This runs AFTER everything else in this function finishes.
	defer s.Close()

	// Create the HTTP server with sensible timeouts
	srv := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine (so it doesn't block)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", s.config.Addr()),
			slog.String("url", "http://"+s.config.Addr()),
			slog.String("storage", s.config.Storage),
			slog.String("data", storage.Describe(s.config)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		// Server failed to start
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		// Received shutdown signal
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
