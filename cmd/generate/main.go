// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

// Command generate writes a synthetic biometric authentication dataset.
//
// Usage:
//
//	generate [-n records] [-out path] [-seed n]
//
// Flags override GENERATOR_RECORDS, DATA_PATH and GENERATOR_SEED. The model
// directory is created alongside so the trainer can write into it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/tomtom215/authpulse/internal/config"
	"github.com/tomtom215/authpulse/internal/dataset"
	"github.com/tomtom215/authpulse/internal/generator"
	"github.com/tomtom215/authpulse/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	records := flag.Int("n", cfg.Generator.Records, "number of records to generate")
	out := flag.String("out", cfg.Data.Path, "output CSV path")
	seed := flag.Int64("seed", cfg.Generator.Seed, "random seed (0 = time-based)")
	flag.Parse()

	if *records <= 0 {
		logging.Fatal().Int("records", *records).Msg("-n must be positive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, generator.Config{Records: *records, Days: cfg.Generator.Days, Seed: *seed}, *out, cfg.Data.ModelPath); err != nil {
		logging.Error().Err(err).Msg("Generation failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, genCfg generator.Config, out, modelPath string) error {
	if err := os.MkdirAll(filepath.Dir(modelPath), 0o750); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}

	logging.Info().Int("records", genCfg.Records).Msg("Generating authentication events")
	events, err := generator.New(genCfg).Generate(ctx)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	if err := dataset.WriteFile(out, events); err != nil {
		return err
	}

	s := generator.Summarize(events)
	logging.Info().
		Str("path", out).
		Int("records", s.Total).
		Int("failures", s.Failures).
		Float64("failure_rate", s.FailureRate).
		Msg("Dataset written")
	for group, rate := range s.ByAgeGroup {
		logging.Info().Str("age_group", group).Float64("failure_rate", rate).Msg("Failure rate by age group")
	}
	for bio, rate := range s.ByBiometricType {
		logging.Info().Str("biometric_type", bio).Float64("failure_rate", rate).Msg("Failure rate by biometric type")
	}
	return nil
}
