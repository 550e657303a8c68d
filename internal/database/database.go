// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

// Package database is the DuckDB aggregation engine. It imports the event
// CSV into a single auth_events table and answers dataset.Filter /
// dataset.Dimension aggregations in SQL, returning the same groups as the
// in-memory dataset.Frame.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/authpulse/internal/config"
	"github.com/tomtom215/authpulse/internal/logging"
)

const createEventsTable = `
CREATE TABLE IF NOT EXISTS auth_events (
	auth_timestamp TIMESTAMP NOT NULL,
	state          VARCHAR NOT NULL,
	district       VARCHAR NOT NULL,
	age_group      VARCHAR NOT NULL,
	gender         VARCHAR NOT NULL,
	biometric_type VARCHAR NOT NULL,
	device_model   VARCHAR NOT NULL,
	auth_result    VARCHAR NOT NULL,
	failure_reason VARCHAR,
	attempt_count  INTEGER NOT NULL
)`

const memoryPath = ":memory:"

// DB wraps the DuckDB connection.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens the database at cfg.Path (in-memory when empty or ":memory:")
// and creates the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "1GB"
	}

	path := cfg.Path
	if path == "" {
		path = memoryPath
	}
	if path != memoryPath {
		dbDir := filepath.Dir(path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	connStr := fmt.Sprintf("%s?threads=%d&max_memory=%s", path, numThreads, maxMemory)
	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}
	db.configureConnectionPool(numThreads)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.initialize(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().
		Str("path", path).
		Int("threads", numThreads).
		Str("max_memory", maxMemory).
		Msg("DuckDB engine ready")
	return db, nil
}

// configureConnectionPool sizes the pool for read-mostly analytics.
// Connections never expire.
func (db *DB) configureConnectionPool(threads int) {
	db.conn.SetMaxOpenConns(threads)
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxIdleTime(0)
	db.conn.SetConnMaxLifetime(0)
}

func (db *DB) initialize(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, createEventsTable); err != nil {
		return fmt.Errorf("create auth_events: %w", err)
	}
	return nil
}

// Close closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}
