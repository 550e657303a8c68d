// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

// Package testinfra provides shared test fixtures: a small hand-checked
// event set with known aggregates, and helpers that write datasets and
// generated events to temporary files.
//
// The fixture is used by both aggregation engines so their results can be
// compared against the same expected numbers.
package testinfra

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/authpulse/internal/dataset"
	"github.com/tomtom215/authpulse/internal/generator"
	"github.com/tomtom215/authpulse/internal/models"
)

// Fixture device names.
const (
	DeviceA = "UIDAI_Device_A"
	DeviceB = "UIDAI_Device_B"
	DeviceC = "UIDAI_Device_C"
)

func at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 10, 30, 0, 0, time.UTC)
}

// Events returns eight events with these aggregates:
//
//	overall           3/8 failures (37.5%)
//	Bihar             2/4 (50%), Kerala 1/4 (25%)
//	elderly           2/2, everyone else 1/6
//	failures by month Jan 2, Dec 1
//	periods           2025-12 1/1, 2026-01 2/3, 2026-06 0/2, 2026-07 0/2
//	devices           A 0/4, B 1/2, C 2/2
//	reasons           poor_quality x2 (3+2 attempts), device_error x1
func Events() []models.AuthEvent {
	return []models.AuthEvent{
		{Timestamp: at(2026, time.January, 5), State: "Bihar", District: "Patna", AgeGroup: models.AgeElderly, Gender: "male",
			BiometricType: models.BiometricFingerprint, DeviceModel: DeviceC, Result: models.ResultFailure, FailureReason: "poor_quality", AttemptCount: 3},
		{Timestamp: at(2025, time.December, 20), State: "Bihar", District: "Patna", AgeGroup: models.AgeElderly, Gender: "female",
			BiometricType: models.BiometricFingerprint, DeviceModel: DeviceC, Result: models.ResultFailure, FailureReason: "device_error", AttemptCount: 1},
		{Timestamp: at(2026, time.June, 2), State: "Bihar", District: "Gaya", AgeGroup: models.AgeAdult, Gender: "male",
			BiometricType: models.BiometricIris, DeviceModel: DeviceA, Result: models.ResultSuccess, AttemptCount: 1},
		{Timestamp: at(2026, time.June, 9), State: "Kerala", District: "Kochi", AgeGroup: models.AgeYoung, Gender: "female",
			BiometricType: models.BiometricIris, DeviceModel: DeviceA, Result: models.ResultSuccess, AttemptCount: 1},
		{Timestamp: at(2026, time.January, 12), State: "Kerala", District: "Kochi", AgeGroup: models.AgeAdult, Gender: "male",
			BiometricType: models.BiometricFingerprint, DeviceModel: DeviceB, Result: models.ResultFailure, FailureReason: "poor_quality", AttemptCount: 2},
		{Timestamp: at(2026, time.July, 1), State: "Kerala", District: "Kochi", AgeGroup: models.AgeAdult, Gender: "other",
			BiometricType: models.BiometricIris, DeviceModel: DeviceA, Result: models.ResultSuccess, AttemptCount: 1},
		{Timestamp: at(2026, time.July, 15), State: "Kerala", District: "Kollam", AgeGroup: models.AgeYoung, Gender: "male",
			BiometricType: models.BiometricIris, DeviceModel: DeviceB, Result: models.ResultSuccess, AttemptCount: 1},
		{Timestamp: at(2026, time.January, 20), State: "Bihar", District: "Gaya", AgeGroup: models.AgeYoung, Gender: "male",
			BiometricType: models.BiometricFingerprint, DeviceModel: DeviceA, Result: models.ResultSuccess, AttemptCount: 1},
	}
}

// WriteDataset writes events as CSV under t.TempDir and returns the path.
func WriteDataset(t testing.TB, events []models.AuthEvent) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "events.csv")
	if err := dataset.WriteFile(path, events); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}

// Generated returns n synthetic events with a fixed seed and clock.
func Generated(t testing.TB, n int) []models.AuthEvent {
	t.Helper()
	events, err := generator.New(generator.Config{
		Records: n,
		Seed:    11,
		Now:     time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}).Generate(context.Background())
	if err != nil {
		t.Fatalf("generate events: %v", err)
	}
	return events
}
