// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

// Package config loads the configuration shared by the API server, the
// dataset generator and the model trainer.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values for every setting
//  2. Config File: optional YAML file (config.yaml, or CONFIG_PATH)
//  3. Environment Variables: explicit mapping table, highest priority
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load configuration")
//	}
//	srv := &http.Server{Addr: cfg.Server.Addr()}
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Data      DataConfig      `koanf:"data"`
	Database  DatabaseConfig  `koanf:"database"`
	Generator GeneratorConfig `koanf:"generator"`
	Training  TrainingConfig  `koanf:"training"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_PORT: listen port (default: 8000)
//   - HTTP_HOST: bind address (default: 0.0.0.0)
//   - HTTP_TIMEOUT: read/write timeout (default: 30s)
//   - SHUTDOWN_TIMEOUT: graceful shutdown budget (default: 10s)
//   - RELOAD_INTERVAL: poll interval for reloading a rewritten dataset or
//     model (default: 0, reload disabled)
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	ReloadInterval  time.Duration `koanf:"reload_interval"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// DataConfig holds the on-disk locations shared by the three programs.
// The generator writes Path, the trainer reads Path and writes ModelPath and
// EncodersPath, the server reads all three.
//
// Environment Variables:
//   - DATA_PATH (default: data/uidai_sample_data.csv)
//   - MODEL_PATH (default: models/biometric_model.json)
//   - ENCODERS_PATH (default: models/label_encoders.json)
type DataConfig struct {
	Path         string `koanf:"path"`
	ModelPath    string `koanf:"model_path"`
	EncodersPath string `koanf:"encoders_path"`
}

// DatabaseConfig selects the aggregation engine behind the API.
//
// Engine "memory" scans the loaded rows directly. Engine "duckdb" imports the
// CSV into DuckDB (in-memory when Path is empty) and answers aggregations in SQL.
type DatabaseConfig struct {
	Engine    string `koanf:"engine"`
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = DuckDB default
}

// GeneratorConfig controls synthetic dataset generation.
type GeneratorConfig struct {
	Records int   `koanf:"records"`
	Seed    int64 `koanf:"seed"` // 0 = time-based
	Days    int   `koanf:"days"`
}

// TrainingConfig controls the gradient-boosted classifier.
type TrainingConfig struct {
	Estimators     int     `koanf:"estimators"`
	MaxDepth       int     `koanf:"max_depth"`
	LearningRate   float64 `koanf:"learning_rate"`
	TestSize       float64 `koanf:"test_size"`
	Seed           int64   `koanf:"seed"`
	MinChildWeight float64 `koanf:"min_child_weight"`
	Lambda         float64 `koanf:"lambda"`
}

// AnalyticsConfig controls response memoization in the analytics service.
//
// Environment Variables:
//   - ANALYTICS_CACHE_SIZE: cached responses kept (default: 0, disabled)
//   - ANALYTICS_CACHE_TTL: lifetime of a cached response (default: 5m)
type AnalyticsConfig struct {
	CacheSize int           `koanf:"cache_size"`
	CacheTTL  time.Duration `koanf:"cache_ttl"`
}

// SecurityConfig holds browser-facing protections.
//
// Environment Variables:
//   - CORS_ORIGINS: comma-separated allowed origins (default: http://localhost:3000)
//   - RATE_LIMIT_REQUESTS: requests per window per IP (default: 300)
//   - RATE_LIMIT_WINDOW: window duration (default: 1m)
//   - DISABLE_RATE_LIMIT: disable rate limiting (default: false)
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	Format string `koanf:"format"`

	// Caller includes file:line in log entries.
	Caller bool `koanf:"caller"`
}

// Load reads configuration from defaults, the optional config file and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
