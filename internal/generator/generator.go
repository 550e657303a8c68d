// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

// Package generator produces synthetic authentication events whose failure
// probability depends on demographic, device, seasonal and regional factors.
//
// The probability model is additive on a 15% base:
//
//	elderly +10%, young -2%, fingerprint +5%, devices C/D +8%,
//	winter months (Nov-Feb) +5%, Bihar/Rajasthan/Uttar Pradesh +5%
//
// Generated data is for demonstration and model training only.
package generator

import (
	"context"
	"math/rand"
	"slices"
	"time"

	"github.com/tomtom215/authpulse/internal/models"
)

const (
	baseFailureProbability = 0.15
	retryProbability       = 0.3
	cancelCheckInterval    = 1024
)

var (
	highFailureDevices = []string{"UIDAI_Device_C", "UIDAI_Device_D"}
	highFailureStates  = []string{"Bihar", "Rajasthan", "Uttar Pradesh"}

	ageWeights = []float64{0.3, 0.5, 0.2} // young, adult, elderly

	// elderly users are steered towards iris capture
	elderlyBiometricWeights = []float64{0.4, 0.6} // fingerprint, iris
)

// Config controls a generation run.
type Config struct {
	Records int
	Days    int       // span of the timestamp window
	Seed    int64     // 0 = time-based
	Now     time.Time // zero = time.Now()
}

// DefaultConfig returns the configuration used by the generator CLI.
func DefaultConfig() Config {
	return Config{Records: 15000, Days: 365}
}

// Generator produces authentication events.
type Generator struct {
	cfg   Config
	rng   *rand.Rand
	start time.Time
}

// New creates a generator. Zero-valued fields fall back to DefaultConfig.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.Records <= 0 {
		cfg.Records = def.Records
	}
	if cfg.Days <= 0 {
		cfg.Days = def.Days
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	return &Generator{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)), //nolint:gosec // synthetic data, not security sensitive
		start: cfg.Now.AddDate(0, 0, -cfg.Days).Truncate(time.Second),
	}
}

// Generate produces cfg.Records events. It returns early with ctx.Err() if
// the context is cancelled.
func (g *Generator) Generate(ctx context.Context) ([]models.AuthEvent, error) {
	events := make([]models.AuthEvent, 0, g.cfg.Records)
	for i := 0; i < g.cfg.Records; i++ {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		events = append(events, g.Event())
	}
	return events, nil
}

// Event draws a single event.
func (g *Generator) Event() models.AuthEvent {
	ts := g.start.
		AddDate(0, 0, g.rng.Intn(g.cfg.Days+1)).
		Add(time.Duration(g.rng.Intn(24)) * time.Hour)

	state := models.States[g.rng.Intn(len(models.States))]
	districts := models.StateDistricts[state]
	district := districts[g.rng.Intn(len(districts))]

	age := models.AgeGroups[g.weighted(ageWeights)]
	gender := models.Genders[g.rng.Intn(len(models.Genders))]

	var bio string
	if age == models.AgeElderly {
		bio = models.BiometricTypes[g.weighted(elderlyBiometricWeights)]
	} else {
		bio = models.BiometricTypes[g.rng.Intn(len(models.BiometricTypes))]
	}

	device := models.DeviceModels[g.rng.Intn(len(models.DeviceModels))]

	e := models.AuthEvent{
		Timestamp:     ts,
		State:         state,
		District:      district,
		AgeGroup:      age,
		Gender:        gender,
		BiometricType: bio,
		DeviceModel:   device,
		Result:        models.ResultSuccess,
		AttemptCount:  1,
	}

	p := FailureProbability(age, bio, device, int(ts.Month()), state)
	if g.rng.Float64() < p {
		e.Result = models.ResultFailure
		e.FailureReason = models.FailureReasons[g.rng.Intn(len(models.FailureReasons))]
		if g.rng.Float64() < retryProbability {
			e.AttemptCount = 2 + g.rng.Intn(3)
		}
	}
	return e
}

// weighted returns an index drawn according to weights (which sum to 1).
func (g *Generator) weighted(weights []float64) int {
	r := g.rng.Float64()
	var acc float64
	for i, w := range weights {
		acc += w
		if r < acc {
			return i
		}
	}
	return len(weights) - 1
}

// FailureProbability returns the probability that an attempt with the given
// attributes fails. month is 1-12.
func FailureProbability(ageGroup, biometricType, deviceModel string, month int, state string) float64 {
	p := baseFailureProbability

	switch ageGroup {
	case models.AgeElderly:
		p += 0.10
	case models.AgeYoung:
		p -= 0.02
	}
	if biometricType == models.BiometricFingerprint {
		p += 0.05
	}
	if slices.Contains(highFailureDevices, deviceModel) {
		p += 0.08
	}
	if models.IsWinter(month) {
		p += 0.05
	}
	if slices.Contains(highFailureStates, state) {
		p += 0.05
	}
	return p
}
