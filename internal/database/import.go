// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/tomtom215/authpulse/internal/dataset"
	"github.com/tomtom215/authpulse/internal/logging"
	"github.com/tomtom215/authpulse/internal/models"
)

// importCSV reads every column as VARCHAR and applies the same cleaning as
// dataset.Read: blank strings, "nan" and "None" reasons become NULL, and
// attempt counts written as floats are truncated. A missing attempt count
// defaults to 1.
const importCSV = `
INSERT INTO auth_events
SELECT
	CAST(trim(auth_timestamp) AS TIMESTAMP),
	COALESCE(state, ''),
	COALESCE(district, ''),
	COALESCE(age_group, ''),
	COALESCE(gender, ''),
	COALESCE(biometric_type, ''),
	COALESCE(device_model, ''),
	COALESCE(auth_result, ''),
	CASE WHEN failure_reason IN ('', 'nan', 'None') THEN NULL ELSE failure_reason END,
	COALESCE(CAST(trunc(CAST(NULLIF(trim(attempt_count), '') AS DOUBLE)) AS INTEGER), 1)
FROM read_csv(%s, header = true, all_varchar = true)`

const insertEvent = `
INSERT INTO auth_events (
	auth_timestamp, state, district, age_group, gender,
	biometric_type, device_model, auth_result, failure_reason, attempt_count
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// ImportCSV replaces the table contents with the CSV at path and returns
// the row count. A missing file yields an error wrapping dataset.ErrNotFound.
func (db *DB) ImportCSV(ctx context.Context, path string) (int, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %w", dataset.ErrNotFound, err)
		}
		return 0, fmt.Errorf("stat dataset: %w", err)
	}

	start := time.Now()
	n, err := db.replace(ctx, func(tx *sql.Tx) (int64, error) {
		res, err := tx.ExecContext(ctx, fmt.Sprintf(importCSV, quoteLiteral(path)))
		if err != nil {
			return 0, fmt.Errorf("import %s: %w", path, err)
		}
		return res.RowsAffected()
	})
	if err != nil {
		return 0, err
	}

	logging.Info().
		Str("path", path).
		Int64("rows", n).
		Dur("duration", time.Since(start)).
		Msg("Imported dataset into DuckDB")
	return int(n), nil
}

// loadEvents replaces the table contents with events.
func (db *DB) loadEvents(ctx context.Context, events []models.AuthEvent) error {
	_, err := db.replace(ctx, func(tx *sql.Tx) (int64, error) {
		stmt, err := tx.PrepareContext(ctx, insertEvent)
		if err != nil {
			return 0, fmt.Errorf("prepare insert: %w", err)
		}
		defer closeWithLog(stmt, "prepared statement")

		for i := range events {
			e := &events[i]
			var reason sql.NullString
			if e.FailureReason != "" {
				reason = sql.NullString{String: e.FailureReason, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx,
				e.Timestamp.UTC(), e.State, e.District, e.AgeGroup, e.Gender,
				e.BiometricType, e.DeviceModel, e.Result, reason, e.AttemptCount,
			); err != nil {
				return 0, fmt.Errorf("insert event %d: %w", i, err)
			}
		}
		return int64(len(events)), nil
	})
	return err
}

// quoteLiteral renders s as a SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// replace empties auth_events and runs fill in one transaction.
func (db *DB) replace(ctx context.Context, fill func(*sql.Tx) (int64, error)) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(tx)

	if _, err := tx.ExecContext(ctx, "DELETE FROM auth_events"); err != nil {
		return 0, fmt.Errorf("clear auth_events: %w", err)
	}
	n, err := fill(tx)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}
