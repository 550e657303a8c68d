// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

package generator

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/tomtom215/authpulse/internal/models"
)

var fixedNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func TestFailureProbability(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		age    string
		bio    string
		device string
		month  int
		state  string
		want   float64
	}{
		{"baseline", "adult", "iris", "UIDAI_Device_A", 6, "Kerala", 0.15},
		{"young discount", "young", "iris", "UIDAI_Device_B", 6, "Delhi", 0.13},
		{"elderly", "elderly", "iris", "UIDAI_Device_E", 6, "Punjab", 0.25},
		{"fingerprint", "adult", "fingerprint", "UIDAI_Device_A", 6, "Kerala", 0.20},
		{"weak device", "adult", "iris", "UIDAI_Device_D", 6, "Kerala", 0.23},
		{"winter", "adult", "iris", "UIDAI_Device_A", 1, "Kerala", 0.20},
		{"high risk state", "adult", "iris", "UIDAI_Device_A", 6, "Bihar", 0.20},
		{"everything", "elderly", "fingerprint", "UIDAI_Device_C", 12, "Uttar Pradesh", 0.48},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := FailureProbability(tt.age, tt.bio, tt.device, tt.month, tt.state)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("FailureProbability() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerateDomain(t *testing.T) {
	t.Parallel()

	g := New(Config{Records: 3000, Seed: 7, Now: fixedNow})
	events, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(events) != 3000 {
		t.Fatalf("len(events) = %d, want 3000", len(events))
	}

	start := fixedNow.AddDate(0, 0, -365)
	end := fixedNow.Add(24 * time.Hour)
	for i := range events {
		e := &events[i]
		if err := models.ValidateEvent(e); err != nil {
			t.Fatalf("event %d invalid: %v", i, err)
		}
		if e.Timestamp.Before(start) || !e.Timestamp.Before(end) {
			t.Fatalf("event %d timestamp %v outside window", i, e.Timestamp)
		}
		if e.Timestamp.Minute() != fixedNow.Minute() || e.Timestamp.Second() != 0 {
			t.Fatalf("event %d timestamp %v has a non-hour offset", i, e.Timestamp)
		}
		if !e.Failed() && e.AttemptCount != 1 {
			t.Fatalf("success with attempt_count %d", e.AttemptCount)
		}
		if e.AttemptCount < 1 || e.AttemptCount > 4 {
			t.Fatalf("attempt_count %d out of range", e.AttemptCount)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	t.Parallel()

	a, _ := New(Config{Records: 200, Seed: 42, Now: fixedNow}).Generate(context.Background())
	b, _ := New(Config{Records: 200, Seed: 42, Now: fixedNow}).Generate(context.Background())
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("event %d differs between identical seeds", i)
		}
	}
}

func TestGenerateDistribution(t *testing.T) {
	t.Parallel()

	events, err := New(Config{Records: 20000, Seed: 1, Now: fixedNow}).Generate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	s := Summarize(events)

	// Expected overall rate is roughly 0.25.
	if s.FailureRate < 21 || s.FailureRate > 29 {
		t.Errorf("overall failure rate = %.2f%%, want around 25%%", s.FailureRate)
	}
	if s.ByAgeGroup[models.AgeElderly] <= s.ByAgeGroup[models.AgeYoung] {
		t.Errorf("elderly rate %.2f should exceed young rate %.2f",
			s.ByAgeGroup[models.AgeElderly], s.ByAgeGroup[models.AgeYoung])
	}
	if s.ByBiometricType[models.BiometricFingerprint] <= s.ByBiometricType[models.BiometricIris] {
		t.Errorf("fingerprint rate should exceed iris rate: %v", s.ByBiometricType)
	}

	var elderly, elderlyIris int
	for i := range events {
		if events[i].AgeGroup == models.AgeElderly {
			elderly++
			if events[i].BiometricType == models.BiometricIris {
				elderlyIris++
			}
		}
	}
	share := float64(elderly) / float64(len(events))
	if share < 0.17 || share > 0.23 {
		t.Errorf("elderly share = %.3f, want about 0.2", share)
	}
	irisShare := float64(elderlyIris) / float64(elderly)
	if irisShare < 0.55 || irisShare > 0.65 {
		t.Errorf("elderly iris share = %.3f, want about 0.6", irisShare)
	}
}

func TestGenerateCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(Config{Records: 10, Seed: 1}).Generate(ctx); err == nil {
		t.Error("Generate() with cancelled context should fail")
	}
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()

	s := Summarize(nil)
	if s.Total != 0 || s.FailureRate != 0 {
		t.Errorf("Summarize(nil) = %+v, want zeros", s)
	}
}
