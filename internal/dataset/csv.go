// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

// Package dataset reads and writes the authentication events CSV and
// provides an in-memory Frame that answers filtered group-by counts.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/authpulse/internal/logging"
	"github.com/tomtom215/authpulse/internal/models"
)

// Columns is the CSV header, in file order.
var Columns = []string{
	"auth_timestamp",
	"state",
	"district",
	"age_group",
	"gender",
	"biometric_type",
	"device_model",
	"auth_result",
	"failure_reason",
	"attempt_count",
}

// TimestampLayout is the layout timestamps are written with.
const TimestampLayout = "2006-01-02 15:04:05"

// accepted timestamp layouts, tried in order.
var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// ErrNotFound is returned when the dataset file does not exist.
var ErrNotFound = errors.New("dataset not found")

// Write encodes events as CSV with a header row.
func Write(w io.Writer, events []models.AuthEvent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(Columns))
	for i := range events {
		e := &events[i]
		record[0] = e.Timestamp.Format(TimestampLayout)
		record[1] = e.State
		record[2] = e.District
		record[3] = e.AgeGroup
		record[4] = e.Gender
		record[5] = e.BiometricType
		record[6] = e.DeviceModel
		record[7] = e.Result
		record[8] = e.FailureReason
		record[9] = strconv.Itoa(e.AttemptCount)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read decodes a CSV produced by Write. Columns are located by header
// name, so extra columns are ignored and order does not matter.
func Read(r io.Reader) ([]models.AuthEvent, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty dataset: missing header")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var events []models.AuthEvent
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		e, err := parseRecord(record, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		events = append(events, e)
	}
	return events, nil
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, c := range Columns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}
	return idx, nil
}

func parseRecord(record []string, idx map[string]int) (models.AuthEvent, error) {
	get := func(col string) string { return record[idx[col]] }

	ts, err := ParseTimestamp(get("auth_timestamp"))
	if err != nil {
		return models.AuthEvent{}, err
	}
	attempts := 1
	if raw := strings.TrimSpace(get("attempt_count")); raw != "" {
		// exporters may write integer counts as 1.0
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return models.AuthEvent{}, fmt.Errorf("invalid attempt_count %q", raw)
		}
		attempts = int(f)
	}
	reason := get("failure_reason")
	if reason == "nan" || reason == "None" {
		reason = ""
	}

	return models.AuthEvent{
		Timestamp:     ts,
		State:         get("state"),
		District:      get("district"),
		AgeGroup:      get("age_group"),
		Gender:        get("gender"),
		BiometricType: get("biometric_type"),
		DeviceModel:   get("device_model"),
		Result:        get("auth_result"),
		FailureReason: reason,
		AttemptCount:  attempts,
	}, nil
}

// ParseTimestamp parses any accepted timestamp layout. Times without a zone
// are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid auth_timestamp %q", s)
}

// LoadFile reads the dataset at path. A missing file yields an error
// wrapping both ErrNotFound and fs.ErrNotExist.
func LoadFile(path string) ([]models.AuthEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	events, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if invalid, first := Validate(events); invalid > 0 {
		logging.Warn().
			Err(first).
			Int("invalid_rows", invalid).
			Int("rows", len(events)).
			Str("path", path).
			Msg("Dataset contains rows outside the known domain")
	}
	return events, nil
}

// Validate checks every event against the domain rules and returns how many
// fail along with the first failure. Invalid rows are still counted by the
// analytics views, so this only reports.
func Validate(events []models.AuthEvent) (int, error) {
	var (
		invalid int
		first   error
	)
	for i := range events {
		if err := models.ValidateEvent(&events[i]); err != nil {
			if first == nil {
				first = fmt.Errorf("row %d: %w", i+2, err)
			}
			invalid++
		}
	}
	return invalid, first
}

// WriteFile writes events to path, creating parent directories. The file is
// written to a temporary sibling and renamed into place.
func WriteFile(path string, events []models.AuthEvent) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".dataset-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := Write(tmp, events); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename dataset: %w", err)
	}
	return nil
}
