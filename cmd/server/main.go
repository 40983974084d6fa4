// Package main is the entry point for the fitness tracker HTTP API.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (.env file, YAML file, env vars)
// 2. Create dependencies (logger)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/service, etc.).
//
// WHY cmd/server/?
// The cmd/ directory is a Go convention for executable entry points.
// This project has two: cmd/server (HTTP API) and cmd/fitnessctl (CLI).
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/zzzxajak-prog/FitnessApp/internal/config"
	"github.com/zzzxajak-prog/FitnessApp/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (or FITNESS_CONFIG)")
	flag.Parse()

	// === 1. LOAD .env ===
	// godotenv.Load never overrides variables that are already set, so a real
	// environment always wins over the file. A missing .env is fine.
	_ = godotenv.Load()

	// === 2. READ CONFIGURATION ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 3. SET UP LOGGING ===
	// slog.NewTextHandler outputs human-readable key=value logs.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
