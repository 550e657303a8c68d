// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

package main

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/tomtom215/authpulse/internal/analytics"
	"github.com/tomtom215/authpulse/internal/config"
	"github.com/tomtom215/authpulse/internal/database"
	"github.com/tomtom215/authpulse/internal/dataset"
	"github.com/tomtom215/authpulse/internal/logging"
	"github.com/tomtom215/authpulse/internal/ml"
)

// artifactLoader attaches the dataset and model artifacts to the analytics
// service. With the duckdb engine one database is held open for the life of
// the process and every load re-imports the CSV into it.
type artifactLoader struct {
	cfg *config.Config
	svc *analytics.Service
	db  *database.DB
}

func newArtifactLoader(cfg *config.Config, svc *analytics.Service) (*artifactLoader, error) {
	l := &artifactLoader{cfg: cfg, svc: svc}
	if cfg.Database.Engine == "duckdb" {
		db, err := database.New(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open duckdb: %w", err)
		}
		l.db = db
	}
	return l, nil
}

// Close releases the DuckDB engine if one is open.
func (l *artifactLoader) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// LoadAll attaches whatever artifacts are available. Failures are logged
// and leave the service on its defaults.
func (l *artifactLoader) LoadAll(ctx context.Context) {
	if err := l.LoadDataset(ctx); err != nil {
		logging.Warn().Err(err).Str("path", l.cfg.Data.Path).Msg("Dataset not loaded, serving defaults")
	}
	if err := l.LoadModel(ctx); err != nil {
		logging.Warn().Err(err).Str("model_path", l.cfg.Data.ModelPath).Msg("Model not loaded, serving mock predictions")
	}
}

// LoadDataset reads the CSV into the configured engine and attaches it.
// A missing file detaches any previously loaded dataset.
func (l *artifactLoader) LoadDataset(ctx context.Context) error {
	path := l.cfg.Data.Path

	var src analytics.Source
	if l.db != nil {
		n, err := l.db.ImportCSV(ctx, path)
		if err != nil {
			return l.detachOnMissing(ctx, err)
		}
		logging.Info().Int("rows", n).Str("path", path).Msg("Imported dataset into DuckDB")
		src = l.db
	} else {
		events, err := dataset.LoadFile(path)
		if err != nil {
			return l.detachOnMissing(ctx, err)
		}
		src = dataset.NewFrame(events)
	}
	return l.svc.SetSource(ctx, src)
}

func (l *artifactLoader) detachOnMissing(ctx context.Context, err error) error {
	if errors.Is(err, dataset.ErrNotFound) && l.svc.DataLoaded() {
		if detachErr := l.svc.SetSource(ctx, nil); detachErr != nil {
			return errors.Join(err, detachErr)
		}
	}
	return err
}

// LoadModel reads the classifier and encoders and attaches them. A missing
// artifact detaches any previously loaded model.
func (l *artifactLoader) LoadModel(ctx context.Context) error {
	m, err := analytics.LoadModel(l.cfg.Data.ModelPath, l.cfg.Data.EncodersPath)
	if err != nil {
		if errors.Is(err, ml.ErrArtifactNotFound) {
			l.svc.SetModel(nil)
		}
		return err
	}
	l.svc.SetModel(m)
	logging.Ctx(ctx).Info().
		Int("training_rows", m.Metadata.TrainingRows).
		Int("trees", m.Classifier.NumTrees()).
		Float64("test_accuracy", m.Metadata.TestAccuracy).
		Msg("Model loaded")
	return nil
}

// WatchedPaths lists the files whose changes trigger Reload.
func (l *artifactLoader) WatchedPaths() []string {
	return []string{l.cfg.Data.Path, l.cfg.Data.ModelPath, l.cfg.Data.EncodersPath}
}

// Reload re-reads the artifacts among changed. Model and encoders are always
// reloaded together. A deleted artifact is detached and not reported as a
// failure; any other error is returned so the watcher retries.
func (l *artifactLoader) Reload(ctx context.Context, changed []string) error {
	var errs []error
	if slices.Contains(changed, l.cfg.Data.Path) {
		if err := l.LoadDataset(ctx); err != nil {
			if !errors.Is(err, dataset.ErrNotFound) {
				errs = append(errs, fmt.Errorf("reload dataset: %w", err))
			} else {
				logging.Warn().Str("path", l.cfg.Data.Path).Msg("Dataset removed, serving defaults")
			}
		}
	}
	if slices.Contains(changed, l.cfg.Data.ModelPath) || slices.Contains(changed, l.cfg.Data.EncodersPath) {
		if err := l.LoadModel(ctx); err != nil {
			if !errors.Is(err, ml.ErrArtifactNotFound) {
				errs = append(errs, fmt.Errorf("reload model: %w", err))
			} else {
				logging.Warn().Str("model_path", l.cfg.Data.ModelPath).Msg("Model removed, serving mock predictions")
			}
		}
	}
	return errors.Join(errs...)
}
