// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomtom215/authpulse/internal/analytics"
	"github.com/tomtom215/authpulse/internal/config"
	"github.com/tomtom215/authpulse/internal/dataset"
	"github.com/tomtom215/authpulse/internal/logging"
	"github.com/tomtom215/authpulse/internal/ml"
	"github.com/tomtom215/authpulse/internal/testinfra"
	"github.com/tomtom215/authpulse/internal/trainer"
)

func testConfig(t *testing.T, engine string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Data: config.DataConfig{
			Path:         filepath.Join(dir, "data", "events.csv"),
			ModelPath:    filepath.Join(dir, "models", "model.json"),
			EncodersPath: filepath.Join(dir, "models", "encoders.json"),
		},
		Database: config.DatabaseConfig{
			Engine:    engine,
			MaxMemory: "256MB",
			Threads:   1,
		},
	}
}

// writeArtifacts writes the fixture dataset and, if withModel, trains a
// small model from it.
func writeArtifacts(t *testing.T, cfg *config.Config, withModel bool) {
	t.Helper()
	if err := dataset.WriteFile(cfg.Data.Path, testinfra.Events()); err != nil {
		t.Fatal(err)
	}
	if !withModel {
		return
	}
	_, err := trainer.New(trainer.Options{
		DataPath:     cfg.Data.Path,
		ModelPath:    cfg.Data.ModelPath,
		EncodersPath: cfg.Data.EncodersPath,
		Model:        ml.Config{NumEstimators: 3, MaxDepth: 2, LearningRate: 0.3, Lambda: 0.1, MinChildWeight: 0.01},
		TestSize:     0.25,
	}, logging.NewTestLogger(io.Discard)).Run(context.Background())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
}

func newTestLoader(t *testing.T, cfg *config.Config) (*artifactLoader, *analytics.Service) {
	t.Helper()
	svc := analytics.NewService(analytics.Options{Engine: cfg.Database.Engine})
	l, err := newArtifactLoader(cfg, svc)
	if err != nil {
		t.Fatalf("newArtifactLoader: %v", err)
	}
	t.Cleanup(func() {
		if err := l.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return l, svc
}

func TestLoadAllAttachesArtifacts(t *testing.T) {
	for _, engine := range []string{"memory", "duckdb"} {
		t.Run(engine, func(t *testing.T) {
			cfg := testConfig(t, engine)
			writeArtifacts(t, cfg, true)
			l, svc := newTestLoader(t, cfg)

			l.LoadAll(context.Background())

			h := svc.Health()
			if !h.DataLoaded || !h.ModelLoaded {
				t.Fatalf("health = %+v, want data and model loaded", h)
			}
			kpis, err := svc.KPIs(context.Background())
			if err != nil {
				t.Fatalf("KPIs: %v", err)
			}
			if kpis.OverallFailureRate != 37.5 {
				t.Errorf("overall failure rate = %v, want 37.5", kpis.OverallFailureRate)
			}
		})
	}
}

func TestLoadAllDegradesOnMissingFiles(t *testing.T) {
	for _, engine := range []string{"memory", "duckdb"} {
		t.Run(engine, func(t *testing.T) {
			cfg := testConfig(t, engine)
			l, svc := newTestLoader(t, cfg)

			l.LoadAll(context.Background())

			if svc.DataLoaded() || svc.ModelLoaded() {
				t.Errorf("health = %+v, want nothing loaded", svc.Health())
			}
		})
	}
}

func TestLoadAllDegradesOnCorruptModel(t *testing.T) {
	cfg := testConfig(t, "memory")
	writeArtifacts(t, cfg, true)
	if err := os.WriteFile(cfg.Data.ModelPath, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	l, svc := newTestLoader(t, cfg)

	l.LoadAll(context.Background())

	if !svc.DataLoaded() {
		t.Error("dataset should load despite a corrupt model")
	}
	if svc.ModelLoaded() {
		t.Error("corrupt model must not be attached")
	}
}

func TestReload(t *testing.T) {
	cfg := testConfig(t, "memory")
	writeArtifacts(t, cfg, true)
	l, svc := newTestLoader(t, cfg)
	ctx := context.Background()
	l.LoadAll(ctx)

	t.Run("removed dataset detaches without error", func(t *testing.T) {
		if err := os.Remove(cfg.Data.Path); err != nil {
			t.Fatal(err)
		}
		if err := l.Reload(ctx, []string{cfg.Data.Path}); err != nil {
			t.Fatalf("Reload: %v", err)
		}
		if svc.DataLoaded() {
			t.Error("dataset still attached after removal")
		}
		if !svc.ModelLoaded() {
			t.Error("model should be untouched by a dataset change")
		}
	})

	t.Run("restored dataset attaches", func(t *testing.T) {
		writeArtifacts(t, cfg, false)
		if err := l.Reload(ctx, []string{cfg.Data.Path}); err != nil {
			t.Fatalf("Reload: %v", err)
		}
		if !svc.DataLoaded() {
			t.Error("dataset not attached after restore")
		}
	})

	t.Run("half-written model is reported", func(t *testing.T) {
		if err := os.WriteFile(cfg.Data.EncodersPath, []byte("{"), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := l.Reload(ctx, []string{cfg.Data.EncodersPath}); err == nil {
			t.Fatal("expected an error for a corrupt encoders file")
		}
		if !svc.ModelLoaded() {
			t.Error("previous model should stay attached after a failed reload")
		}
	})
}

func TestWatchedPaths(t *testing.T) {
	cfg := testConfig(t, "memory")
	l, _ := newTestLoader(t, cfg)
	got := l.WatchedPaths()
	want := []string{cfg.Data.Path, cfg.Data.ModelPath, cfg.Data.EncodersPath}
	if len(got) != len(want) {
		t.Fatalf("WatchedPaths = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("WatchedPaths[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
