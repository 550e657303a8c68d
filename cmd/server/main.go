// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

// Package main is the entry point for the AuthPulse API server.
//
// The server answers the biometric dashboard's read-only analytics queries
// (KPIs, regional risk zones, trends, insights, failure reasons) and single
// record failure predictions over a CSV dataset of authentication events.
//
// Initialization Order:
//  1. Configuration loading (defaults, optional YAML file, environment)
//  2. Logging initialization (zerolog, JSON or console)
//  3. Analytics service with the configured engine (memory or duckdb)
//  4. Dataset and model loading (both optional, missing files degrade)
//  5. Chi router with CORS, rate limiting, request IDs and metrics
//  6. Supervisor tree: HTTP server in the api layer, artifact watcher in
//     the data layer when RELOAD_INTERVAL is set
//
// Configuration:
//
// See internal/config for the full list. Common settings:
//   - HTTP_PORT, HTTP_HOST: listen address (default 0.0.0.0:8000)
//   - DATA_PATH, MODEL_PATH, ENCODERS_PATH: artifact locations
//   - DB_ENGINE: memory or duckdb
//   - LOG_LEVEL, LOG_FORMAT: logging output
//
// Signal Handling:
//
// SIGINT and SIGTERM cancel the supervisor tree. The HTTP server stops
// accepting connections and drains in-flight requests for up to
// SHUTDOWN_TIMEOUT before the process exits.
//
// Example:
//
//	go run ./cmd/generate
//	go run ./cmd/train
//	DB_ENGINE=duckdb go run ./cmd/server
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/authpulse/internal/analytics"
	"github.com/tomtom215/authpulse/internal/api"
	"github.com/tomtom215/authpulse/internal/config"
	"github.com/tomtom215/authpulse/internal/logging"
	"github.com/tomtom215/authpulse/internal/supervisor"
	"github.com/tomtom215/authpulse/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("engine", cfg.Database.Engine).
		Str("data_path", cfg.Data.Path).
		Str("model_path", cfg.Data.ModelPath).
		Msg("Starting AuthPulse API server")

	if err := run(cfg); err != nil {
		logging.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
	logging.Info().Msg("Server stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := analytics.NewService(analytics.Options{
		Engine:    cfg.Database.Engine,
		CacheSize: cfg.Analytics.CacheSize,
		CacheTTL:  cfg.Analytics.CacheTTL,
	})

	loader, err := newArtifactLoader(cfg, svc)
	if err != nil {
		return err
	}
	defer func() {
		if err := loader.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	loader.LoadAll(ctx)

	router := api.NewRouter(api.NewHandler(svc), api.ChiMiddlewareConfigFromSecurity(cfg.Security))
	srv := &http.Server{
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.Addr(), cfg.Server.ShutdownTimeout))

	if cfg.Server.ReloadInterval > 0 {
		tree.AddDataService(services.NewFileWatchService(
			"artifact-watcher", loader.WatchedPaths(), cfg.Server.ReloadInterval, loader.Reload,
		))
		logging.Info().Dur("interval", cfg.Server.ReloadInterval).Msg("Artifact reload enabled")
	}

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Supervisor tree starting")
	err = tree.Serve(ctx)

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, s := range report {
			logging.Warn().Str("service", s.Name).Msg("Service did not stop within timeout")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
