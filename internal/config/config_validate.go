// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

package config

import (
	"fmt"
	"strings"
)

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// Engine names accepted by database.engine.
const (
	EngineMemory = "memory"
	EngineDuckDB = "duckdb"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateData(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateGenerator(); err != nil {
		return err
	}
	if err := c.validateTraining(); err != nil {
		return err
	}
	if err := c.validateAnalytics(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.Server.ReloadInterval < 0 {
		return fmt.Errorf("RELOAD_INTERVAL must not be negative")
	}
	return nil
}

func (c *Config) validateData() error {
	if strings.TrimSpace(c.Data.Path) == "" {
		return fmt.Errorf("DATA_PATH must not be empty")
	}
	if strings.TrimSpace(c.Data.ModelPath) == "" {
		return fmt.Errorf("MODEL_PATH must not be empty")
	}
	if strings.TrimSpace(c.Data.EncodersPath) == "" {
		return fmt.Errorf("ENCODERS_PATH must not be empty")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Engine {
	case EngineMemory, EngineDuckDB:
	default:
		return fmt.Errorf("DB_ENGINE must be one of: %s, %s (got %q)", EngineMemory, EngineDuckDB, c.Database.Engine)
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative")
	}
	return nil
}

func (c *Config) validateGenerator() error {
	if c.Generator.Records < 1 {
		return fmt.Errorf("GENERATOR_RECORDS must be at least 1")
	}
	if c.Generator.Days < 1 {
		return fmt.Errorf("GENERATOR_DAYS must be at least 1")
	}
	return nil
}

func (c *Config) validateTraining() error {
	t := c.Training
	if t.Estimators < 1 {
		return fmt.Errorf("TRAIN_ESTIMATORS must be at least 1")
	}
	if t.MaxDepth < 1 || t.MaxDepth > 16 {
		return fmt.Errorf("TRAIN_MAX_DEPTH must be between 1 and 16")
	}
	if t.LearningRate <= 0 || t.LearningRate > 1 {
		return fmt.Errorf("TRAIN_LEARNING_RATE must be in (0, 1]")
	}
	if t.TestSize <= 0 || t.TestSize >= 1 {
		return fmt.Errorf("TRAIN_TEST_SIZE must be in (0, 1)")
	}
	if t.MinChildWeight < 0 || t.Lambda < 0 {
		return fmt.Errorf("TRAIN_MIN_CHILD_WEIGHT and TRAIN_LAMBDA must not be negative")
	}
	return nil
}

func (c *Config) validateAnalytics() error {
	if c.Analytics.CacheSize < 0 {
		return fmt.Errorf("ANALYTICS_CACHE_SIZE must not be negative")
	}
	if c.Analytics.CacheSize > 0 && c.Analytics.CacheTTL <= 0 {
		return fmt.Errorf("ANALYTICS_CACHE_TTL must be positive when caching is enabled")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
