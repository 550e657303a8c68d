// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

package dataset

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/authpulse/internal/models"
)

func ev(ts string, state, district, age, bio, device, result string) models.AuthEvent {
	t, err := time.Parse(TimestampLayout, ts)
	if err != nil {
		panic(err)
	}
	e := models.AuthEvent{
		Timestamp:     t,
		State:         state,
		District:      district,
		AgeGroup:      age,
		Gender:        "female",
		BiometricType: bio,
		DeviceModel:   device,
		Result:        result,
		AttemptCount:  1,
	}
	if result == models.ResultFailure {
		e.FailureReason = "poor_quality"
		e.AttemptCount = 3
	}
	return e
}

func sampleEvents() []models.AuthEvent {
	return []models.AuthEvent{
		ev("2026-01-05 10:00:00", "Bihar", "Patna", "elderly", "fingerprint", "UIDAI_Device_C", "failure"),
		ev("2026-01-06 11:00:00", "Bihar", "Gaya", "adult", "iris", "UIDAI_Device_A", "success"),
		ev("2026-02-10 09:00:00", "Kerala", "Kochi", "young", "iris", "UIDAI_Device_A", "success"),
		ev("2026-02-11 12:00:00", "Kerala", "Kochi", "elderly", "fingerprint", "UIDAI_Device_D", "failure"),
		ev("2025-12-01 08:00:00", "Delhi", "South Delhi", "adult", "fingerprint", "UIDAI_Device_B", "success"),
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleEvents()))

	firstLine := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.Equal(t, strings.Join(Columns, ","), firstLine)

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleEvents(), got)
}

func TestReadAcceptsFractionalValues(t *testing.T) {
	t.Parallel()

	input := "auth_timestamp,state,district,age_group,gender,biometric_type,device_model,auth_result,failure_reason,attempt_count\n" +
		"2025-10-14 13:45:12.123456,Punjab,Amritsar,adult,male,iris,UIDAI_Device_E,success,,1\n" +
		"2025-11-01 00:00:00,Punjab,Ludhiana,young,other,fingerprint,UIDAI_Device_C,failure,device_error,2.0\n"

	got, err := Read(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 13, got[0].Timestamp.Hour())
	assert.Empty(t, got[0].FailureReason)
	assert.Equal(t, 2, got[1].AttemptCount)
	assert.Equal(t, "device_error", got[1].FailureReason)
}

func TestReadErrors(t *testing.T) {
	t.Parallel()

	header := strings.Join(Columns, ",") + "\n"
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "missing header"},
		{"missing column", "auth_timestamp,state\n", "missing column"},
		{"bad timestamp", header + "soon,Bihar,Patna,adult,male,iris,UIDAI_Device_A,success,,1\n", "line 2"},
		{"bad attempts", header + "2026-01-01 00:00:00,Bihar,Patna,adult,male,iris,UIDAI_Device_A,success,,many\n", "attempt_count"},
		{"short row", header + "2026-01-01 00:00:00,Bihar\n", "line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Read(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	t.Parallel()

	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	events := sampleEvents()
	invalid, err := Validate(events)
	assert.Zero(t, invalid)
	assert.NoError(t, err)

	events[1].State = "Goa"
	events[3].AttemptCount = 0
	invalid, err = Validate(events)
	assert.Equal(t, 2, invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 3")
	assert.Contains(t, err.Error(), "unknown state")
}

func TestLoadFileKeepsInvalidRows(t *testing.T) {
	t.Parallel()

	events := sampleEvents()
	events[0].DeviceModel = "UIDAI_Device_Z"
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, WriteFile(path, events))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, got, len(events))
	assert.Equal(t, "UIDAI_Device_Z", got[0].DeviceModel)
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "data", "events.csv")
	require.NoError(t, WriteFile(path, sampleEvents()))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, got, 5)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file should be renamed away")
}

func TestAggregateNoDimensions(t *testing.T) {
	t.Parallel()

	f := NewFrame(sampleEvents())
	groups, err := f.Aggregate(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 5, groups[0].Total)
	assert.Equal(t, 2, groups[0].Failures)
	assert.Equal(t, 9, groups[0].Attempts)
	assert.InDelta(t, 40.0, groups[0].FailureRate(), 1e-9)

	empty, err := f.Aggregate(context.Background(), Filter{}.Where(DimState, "Gujarat"))
	require.NoError(t, err)
	require.Len(t, empty, 1)
	assert.Zero(t, empty[0].Total)
	assert.Zero(t, empty[0].FailureRate())
}

func TestAggregateGroupsSorted(t *testing.T) {
	t.Parallel()

	f := NewFrame(sampleEvents())
	groups, err := f.Aggregate(context.Background(), Filter{}, DimState)
	require.NoError(t, err)

	states := make([]string, len(groups))
	for i, g := range groups {
		states[i] = g.Key()
	}
	assert.Equal(t, []string{"Bihar", "Delhi", "Kerala"}, states)
	assert.Equal(t, 2, groups[0].Total)
	assert.Equal(t, 1, groups[0].Failures)
}

func TestAggregateMonthOrderIsNumeric(t *testing.T) {
	t.Parallel()

	f := NewFrame(sampleEvents())
	groups, err := f.Aggregate(context.Background(), Filter{}, DimMonth)
	require.NoError(t, err)

	months := make([]string, len(groups))
	for i, g := range groups {
		months[i] = g.Key()
	}
	assert.Equal(t, []string{"1", "2", "12"}, months)

	periods, err := f.Aggregate(context.Background(), Filter{}, DimPeriod)
	require.NoError(t, err)
	assert.Equal(t, "2025-12", periods[0].Key())
}

func TestAggregateFilters(t *testing.T) {
	t.Parallel()

	f := NewFrame(sampleEvents())
	ctx := context.Background()

	filter := Filter{}.
		Where(DimAgeGroup, models.AgeElderly).
		Where(DimBiometricType, models.BiometricFingerprint).
		Months(models.WinterMonths...)
	groups, err := f.Aggregate(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 2, groups[0].Total)
	assert.Equal(t, 2, groups[0].Failures)

	multi, err := f.Aggregate(ctx, Filter{}.Where(DimState, "Bihar", "Delhi"))
	require.NoError(t, err)
	assert.Equal(t, 3, multi[0].Total)

	reasons, err := f.Aggregate(ctx, Filter{}.Failures(), DimFailureReason)
	require.NoError(t, err)
	require.Len(t, reasons, 1)
	assert.Equal(t, "poor_quality", reasons[0].Key())
	assert.Equal(t, 2, reasons[0].Total)
}

func TestWhereDoesNotAliasOriginal(t *testing.T) {
	t.Parallel()

	base := Filter{}.Where(DimState, "Bihar")
	_ = base.Where(DimAgeGroup, "young")
	assert.Len(t, base.Equals, 1)
	assert.Equal(t, base, base.Where(DimGender))
}

func TestAggregateRejectsUnknownDimension(t *testing.T) {
	t.Parallel()

	f := NewFrame(sampleEvents())
	_, err := f.Aggregate(context.Background(), Filter{}, Dimension("colour"))
	assert.ErrorIs(t, err, ErrUnknownDimension)

	_, err = f.Aggregate(context.Background(), Filter{}.Where(Dimension("colour"), "red"))
	assert.ErrorIs(t, err, ErrUnknownDimension)

	_, err = f.Aggregate(context.Background(), Filter{Result: "maybe"})
	assert.Error(t, err)
}

func TestAggregateCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFrame(sampleEvents()).Aggregate(ctx, Filter{})
	assert.ErrorIs(t, err, context.Canceled)
}
