// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/authpulse/internal/config"
	"github.com/tomtom215/authpulse/internal/dataset"
	"github.com/tomtom215/authpulse/internal/models"
	"github.com/tomtom215/authpulse/internal/testinfra"
)

// testDBSemaphore serializes DuckDB tests; concurrent CGO connections can
// hang under CI resource pressure.
var testDBSemaphore = make(chan struct{}, 1)

// setupTestDB creates an in-memory database held for the whole test.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB", Threads: 2})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return db
}

// aggregateCases exercise every dimension and filter shape the analytics
// service issues.
var aggregateCases = []struct {
	name   string
	filter dataset.Filter
	dims   []dataset.Dimension
}{
	{"overall", dataset.Filter{}, nil},
	{"failures only", dataset.Filter{}.Failures(), nil},
	{"by state", dataset.Filter{}, []dataset.Dimension{dataset.DimState}},
	{"by month", dataset.Filter{}, []dataset.Dimension{dataset.DimMonth}},
	{"by period", dataset.Filter{}, []dataset.Dimension{dataset.DimPeriod}},
	{"failure reasons", dataset.Filter{}.Failures(), []dataset.Dimension{dataset.DimFailureReason}},
	{"device failures", dataset.Filter{}.Failures(), []dataset.Dimension{dataset.DimDeviceModel}},
	{"age by device", dataset.Filter{}, []dataset.Dimension{dataset.DimAgeGroup, dataset.DimDeviceModel}},
	{"elderly in winter", dataset.Filter{}.Where(dataset.DimAgeGroup, models.AgeElderly).Months(11, 12, 1), nil},
	{"fingerprint by state", dataset.Filter{}.Where(dataset.DimBiometricType, models.BiometricFingerprint), []dataset.Dimension{dataset.DimState}},
	{"two devices", dataset.Filter{}.Where(dataset.DimDeviceModel, testinfra.DeviceA, testinfra.DeviceC), []dataset.Dimension{dataset.DimDistrict}},
	{"no match", dataset.Filter{}.Where(dataset.DimState, "Atlantis"), []dataset.Dimension{dataset.DimState}},
	{"no match overall", dataset.Filter{}.Where(dataset.DimState, "Atlantis"), nil},
	{"empty value list", dataset.Filter{Equals: map[dataset.Dimension][]string{dataset.DimGender: {}}}, nil},
}

func assertMatchesFrame(t *testing.T, db *DB, frame *dataset.Frame) {
	t.Helper()
	ctx := context.Background()

	for _, tc := range aggregateCases {
		want, err := frame.Aggregate(ctx, tc.filter, tc.dims...)
		if err != nil {
			t.Fatalf("%s: frame aggregate: %v", tc.name, err)
		}
		got, err := db.Aggregate(ctx, tc.filter, tc.dims...)
		if err != nil {
			t.Fatalf("%s: duckdb aggregate: %v", tc.name, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s:\n got  %+v\n want %+v", tc.name, got, want)
		}
	}
}

func TestLoadEventsMatchesFrame(t *testing.T) {
	db := setupTestDB(t)
	events := testinfra.Events()

	if err := db.loadEvents(context.Background(), events); err != nil {
		t.Fatalf("loadEvents: %v", err)
	}
	n, err := db.Len(context.Background())
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != len(events) {
		t.Errorf("Len = %d, want %d", n, len(events))
	}
	assertMatchesFrame(t, db, dataset.NewFrame(events))
}

func TestImportCSVMatchesFrame(t *testing.T) {
	db := setupTestDB(t)
	events := testinfra.Generated(t, 2000)
	path := testinfra.WriteDataset(t, events)

	n, err := db.ImportCSV(context.Background(), path)
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if n != len(events) {
		t.Errorf("imported %d rows, want %d", n, len(events))
	}
	assertMatchesFrame(t, db, dataset.NewFrame(events))
}

func TestImportCSVReplacesContents(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.loadEvents(ctx, testinfra.Generated(t, 300)); err != nil {
		t.Fatalf("loadEvents: %v", err)
	}
	path := testinfra.WriteDataset(t, testinfra.Events())
	if _, err := db.ImportCSV(ctx, path); err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	n, err := db.Len(ctx)
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != len(testinfra.Events()) {
		t.Errorf("Len = %d after reimport, want %d", n, len(testinfra.Events()))
	}
}

func TestImportCSVCleansExportedValues(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	csv := strings.Join([]string{
		strings.Join(dataset.Columns, ","),
		"2026-01-05 10:30:00,Bihar,Patna,elderly,male,fingerprint,UIDAI_Device_C,failure,poor_quality,3.0",
		"2026-01-06 11:00:00,Bihar,Gaya,adult,female,iris,UIDAI_Device_A,success,nan,1.0",
		"2026-01-07 12:00:00,Kerala,Kochi,young,female,iris,UIDAI_Device_B,success,None,",
		"2026-01-08 13:00:00,Kerala,Kochi,young,male,iris,UIDAI_Device_B,success,,2",
	}, "\n") + "\n"
	path := filepath.Join(t.TempDir(), "exported.csv")
	if err := os.WriteFile(path, []byte(csv), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := db.ImportCSV(ctx, path); err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	groups, err := db.Aggregate(ctx, dataset.Filter{}, dataset.DimFailureReason)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	want := []dataset.Group{
		{Keys: []string{""}, Total: 3, Failures: 0, Attempts: 4},
		{Keys: []string{"poor_quality"}, Total: 1, Failures: 1, Attempts: 3},
	}
	if !reflect.DeepEqual(groups, want) {
		t.Errorf("groups = %+v, want %+v", groups, want)
	}

	fromGo, err := dataset.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	assertMatchesFrame(t, db, dataset.NewFrame(fromGo))
}

func TestImportCSVMissingFile(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.ImportCSV(context.Background(), filepath.Join(t.TempDir(), "absent.csv"))
	if !errors.Is(err, dataset.ErrNotFound) {
		t.Errorf("err = %v, want dataset.ErrNotFound", err)
	}
}

func TestAggregateRejectsUnknownDimension(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.Aggregate(ctx, dataset.Filter{}, dataset.Dimension("auth_result; DROP TABLE auth_events"))
	if !errors.Is(err, dataset.ErrUnknownDimension) {
		t.Errorf("err = %v, want ErrUnknownDimension", err)
	}
	_, err = db.Aggregate(ctx, dataset.Filter{}.Where(dataset.Dimension("nope"), "x"))
	if !errors.Is(err, dataset.ErrUnknownDimension) {
		t.Errorf("filter err = %v, want ErrUnknownDimension", err)
	}
}

func TestAggregateEmptyTable(t *testing.T) {
	db := setupTestDB(t)

	groups, err := db.Aggregate(context.Background(), dataset.Filter{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(groups) != 1 || groups[0].Total != 0 {
		t.Errorf("groups = %+v, want one empty group", groups)
	}
}

func TestAggregateCancelledContext(t *testing.T) {
	db := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := db.Aggregate(ctx, dataset.Filter{}, dataset.DimState); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestBuildWhereClause(t *testing.T) {
	t.Parallel()

	filter := dataset.Filter{}.
		Where(dataset.DimState, "Bihar", "Kerala").
		Months(12).
		Failures()
	where, args := buildWhereClause(filter)

	wantWhere := "auth_result = ? AND CAST(month(auth_timestamp) AS VARCHAR) IN (?) AND state IN (?, ?)"
	if where != wantWhere {
		t.Errorf("where = %q, want %q", where, wantWhere)
	}
	wantArgs := []any{models.ResultFailure, "12", "Bihar", "Kerala"}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args = %v, want %v", args, wantArgs)
	}

	if where, args := buildWhereClause(dataset.Filter{}); where != "" || len(args) != 0 {
		t.Errorf("empty filter gave %q %v", where, args)
	}
}

func TestFileDatabasePersists(t *testing.T) {
	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	path := filepath.Join(t.TempDir(), "nested", "authpulse.duckdb")
	cfg := &config.DatabaseConfig{Path: path, Threads: 1}

	db, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := db.loadEvents(context.Background(), testinfra.Events()); err != nil {
		t.Fatalf("loadEvents: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := New(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	n, err := reopened.Len(ctx)
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != len(testinfra.Events()) {
		t.Errorf("Len = %d after reopen, want %d", n, len(testinfra.Events()))
	}
}
