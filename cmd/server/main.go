// Command server runs the cpp-engine HTTP service.
//
// main stays thin: load config, build the dependency graph, hand everything
// to internal/server. All behaviour lives in the internal packages.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sakif/cpp-engine/internal/config"
	"github.com/sakif/cpp-engine/internal/engine"
	"github.com/sakif/cpp-engine/internal/engine/workspace"
	"github.com/sakif/cpp-engine/internal/procrun"
	"github.com/sakif/cpp-engine/internal/repository"
	sqliteRepo "github.com/sakif/cpp-engine/internal/repository/sqlite"
	"github.com/sakif/cpp-engine/internal/sandbox"
	"github.com/sakif/cpp-engine/internal/sandbox/docker"
	"github.com/sakif/cpp-engine/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var closers []io.Closer

	// Run history is best-effort: a broken database disables it, nothing else.
	var store repository.RunRepository
	if cfg.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			logger.Error("failed to create database directory", slog.String("error", err.Error()))
			os.Exit(1)
		}
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			logger.Warn("run history disabled", slog.String("error", err.Error()))
		} else {
			store = db
			closers = append(closers, db)
		}
	}

	// The Docker backend is optional: if the daemon is unreachable the
	// service still runs, executing directly under rlimits, and says so.
	var backend sandbox.Backend
	if cfg.SandboxEnabled {
		dockerCfg := docker.DefaultConfig()
		dockerCfg.Image = cfg.SandboxImage
		dockerCfg.MemoryLimit = cfg.MaxMemoryMB * 1024 * 1024
		dockerCfg.Timeout = cfg.ExecTimeout

		b, err := docker.New(dockerCfg, logger)
		if err != nil {
			logger.Warn("Docker sandbox unavailable, falling back to direct execution",
				slog.String("error", err.Error()))
		} else {
			backend = b
			closers = append(closers, b)
		}
	}

	workspaces, err := workspace.NewManager(cfg.TempRoot)
	if err != nil {
		logger.Error("failed to create workspace root", slog.String("error", err.Error()))
		os.Exit(1)
	}

	runner := procrun.NewOSRunner(cfg.HelperPath, logger)
	eng := engine.New(cfg, logger, runner, backend, workspaces, store)

	startupCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	err = eng.Startup(startupCtx)
	cancel()
	if err != nil {
		logger.Error("startup check failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv, err := server.New(cfg, logger, server.Deps{
		Engine:  eng,
		Store:   store,
		Closers: closers,
	})
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
