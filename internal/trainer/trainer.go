// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

// Package trainer runs the offline training pipeline: it loads the event
// dataset, encodes features, fits the gradient-boosted classifier, evaluates
// it on a held-out split and writes the model and encoder artifacts.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/authpulse/internal/config"
	"github.com/tomtom215/authpulse/internal/dataset"
	"github.com/tomtom215/authpulse/internal/ml"
)

// ErrNoData is returned when the training dataset does not exist.
var ErrNoData = errors.New("training data not found: run the generate command first")

// Options configures one training run.
type Options struct {
	DataPath     string
	ModelPath    string
	EncodersPath string

	Model    ml.Config
	TestSize float64
	Seed     int64
}

// OptionsFromConfig builds Options from application configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DataPath:     cfg.Data.Path,
		ModelPath:    cfg.Data.ModelPath,
		EncodersPath: cfg.Data.EncodersPath,
		Model: ml.Config{
			NumEstimators:  cfg.Training.Estimators,
			MaxDepth:       cfg.Training.MaxDepth,
			LearningRate:   cfg.Training.LearningRate,
			Lambda:         cfg.Training.Lambda,
			MinChildWeight: cfg.Training.MinChildWeight,
		},
		TestSize: cfg.Training.TestSize,
		Seed:     cfg.Training.Seed,
	}
}

// Importance is one feature's share of the model's split gain.
type Importance struct {
	Feature    string
	Label      string
	Importance float64
}

// Report summarises a completed training run.
type Report struct {
	Rows          int
	TrainRows     int
	TestRows      int
	TrainAccuracy float64
	TestAccuracy  float64
	Duration      time.Duration

	// Importances are sorted by descending importance.
	Importances []Importance
}

// Top returns at most n of the most important features.
func (r *Report) Top(n int) []Importance {
	if n > len(r.Importances) {
		n = len(r.Importances)
	}
	return r.Importances[:n]
}

// Trainer executes the training pipeline.
type Trainer struct {
	opts   Options
	logger zerolog.Logger
}

// New creates a Trainer.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(opts Options, logger zerolog.Logger) *Trainer {
	if opts.TestSize == 0 {
		opts.TestSize = 0.2
	}
	if opts.Seed == 0 {
		opts.Seed = 42
	}
	return &Trainer{
		opts:   opts,
		logger: logger.With().Str("component", "trainer").Logger(),
	}
}

// Run trains and persists the model. Artifacts are only written after the
// model has been fitted and evaluated.
func (t *Trainer) Run(ctx context.Context) (*Report, error) {
	events, err := dataset.LoadFile(t.opts.DataPath)
	if err != nil {
		if errors.Is(err, dataset.ErrNotFound) {
			return nil, fmt.Errorf("%w (%s)", ErrNoData, t.opts.DataPath)
		}
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	t.logger.Info().Int("rows", len(events)).Str("path", t.opts.DataPath).Msg("loaded dataset")

	encoder := ml.FitFeatureEncoder(events)
	X, y, err := encoder.EncodeAll(events)
	if err != nil {
		return nil, fmt.Errorf("encode features: %w", err)
	}

	trainIdx, testIdx, err := ml.TrainTestSplit(len(X), t.opts.TestSize, t.opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("split dataset: %w", err)
	}
	Xtr, ytr := ml.Subset(X, y, trainIdx)
	Xte, yte := ml.Subset(X, y, testIdx)

	clf := ml.NewClassifier(t.opts.Model)
	cfg := clf.Config()
	t.logger.Info().
		Int("train_rows", len(Xtr)).
		Int("test_rows", len(Xte)).
		Int("estimators", cfg.NumEstimators).
		Int("max_depth", cfg.MaxDepth).
		Float64("learning_rate", cfg.LearningRate).
		Msg("training classifier")

	start := time.Now()
	if err := clf.Fit(ctx, Xtr, ytr); err != nil {
		return nil, fmt.Errorf("fit classifier: %w", err)
	}
	duration := time.Since(start)

	trainAcc, err := clf.Score(Xtr, ytr)
	if err != nil {
		return nil, fmt.Errorf("score train split: %w", err)
	}
	testAcc, err := clf.Score(Xte, yte)
	if err != nil {
		return nil, fmt.Errorf("score test split: %w", err)
	}

	report := &Report{
		Rows:          len(X),
		TrainRows:     len(Xtr),
		TestRows:      len(Xte),
		TrainAccuracy: trainAcc,
		TestAccuracy:  testAcc,
		Duration:      duration,
		Importances:   rankImportances(clf.FeatureImportances()),
	}

	meta := ml.Metadata{
		TrainingRows:       len(Xtr),
		TrainAccuracy:      trainAcc,
		TestAccuracy:       testAcc,
		TrainingDurationMS: duration.Milliseconds(),
	}
	if err := ml.SaveClassifier(t.opts.ModelPath, clf, meta); err != nil {
		return nil, fmt.Errorf("save model: %w", err)
	}
	if err := ml.SaveEncoders(t.opts.EncodersPath, encoder, meta); err != nil {
		return nil, fmt.Errorf("save encoders: %w", err)
	}

	t.logger.Info().
		Float64("train_accuracy", trainAcc).
		Float64("test_accuracy", testAcc).
		Dur("duration", duration).
		Str("model_path", t.opts.ModelPath).
		Str("encoders_path", t.opts.EncodersPath).
		Msg("training complete")
	for _, imp := range report.Top(5) {
		t.logger.Info().
			Str("feature", imp.Feature).
			Float64("importance", imp.Importance).
			Msg("feature importance")
	}
	return report, nil
}

func rankImportances(values []float64) []Importance {
	out := make([]Importance, 0, len(values))
	for i, v := range values {
		if i >= len(ml.FeatureNames) {
			break
		}
		out = append(out, Importance{
			Feature:    ml.FeatureNames[i],
			Label:      ml.FeatureLabels[i],
			Importance: v,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Importance > out[j].Importance
	})
	return out
}
