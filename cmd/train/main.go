// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

// Command train fits the failure classifier on the generated dataset and
// writes the model and label encoder artifacts.
//
// Usage:
//
//	train [-data path] [-model path] [-encoders path]
//
// Hyperparameters come from the TRAIN_* settings in internal/config.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/authpulse/internal/config"
	"github.com/tomtom215/authpulse/internal/logging"
	"github.com/tomtom215/authpulse/internal/trainer"
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

	opts := trainer.OptionsFromConfig(cfg)
	flag.StringVar(&opts.DataPath, "data", opts.DataPath, "training dataset CSV")
	flag.StringVar(&opts.ModelPath, "model", opts.ModelPath, "model artifact output path")
	flag.StringVar(&opts.EncodersPath, "encoders", opts.EncodersPath, "encoder artifact output path")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := trainer.New(opts, logging.Logger()).Run(ctx)
	if err != nil {
		if errors.Is(err, trainer.ErrNoData) {
			logging.Error().Str("path", opts.DataPath).Msg("Training data not found, run the generate command first")
		} else {
			logging.Error().Err(err).Msg("Training failed")
		}
		stop()
		os.Exit(1)
	}
	logging.Info().
		Int("rows", report.Rows).
		Float64("test_accuracy", report.TestAccuracy).
		Msg("Model trained")
}
