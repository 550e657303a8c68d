// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

// Package analytics computes the dashboard views (KPIs, risk zones, trends,
// insights, failure reasons and predictions) over an aggregation Source.
//
// The service starts empty. Until a dataset is attached every view returns
// the documented default (zeros, "N/A" or empty lists), and until a model
// is attached predictions are mocked. Both may be attached or replaced at
// any time; cached responses are dropped on every change.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/tomtom215/authpulse/internal/cache"
	"github.com/tomtom215/authpulse/internal/dataset"
	"github.com/tomtom215/authpulse/internal/logging"
	"github.com/tomtom215/authpulse/internal/metrics"
	"github.com/tomtom215/authpulse/internal/ml"
	"github.com/tomtom215/authpulse/internal/models"
)

// ErrNoData is returned internally when no dataset is attached.
var ErrNoData = errors.New("no dataset loaded")

// Source answers grouped failure counts. dataset.Frame and database.DB
// implement it.
type Source interface {
	Aggregate(ctx context.Context, filter dataset.Filter, dims ...dataset.Dimension) ([]dataset.Group, error)
	Len(ctx context.Context) (int, error)
}

// Model bundles a trained classifier with the encoders it was trained with.
type Model struct {
	Classifier *ml.Classifier
	Encoder    *ml.FeatureEncoder
	Metadata   ml.Metadata
}

// Options configures a Service.
type Options struct {
	// Engine labels query metrics ("memory" or "duckdb").
	Engine string

	// CacheSize is the number of memoized responses; 0 disables caching.
	CacheSize int
	CacheTTL  time.Duration

	// Now returns the current time for prediction timestamps.
	Now func() time.Time
}

// Service is safe for concurrent use.
type Service struct {
	mu     sync.RWMutex
	source Source
	model  *Model
	// generation increments on every dataset or model swap and is part of
	// every cache key, so a response computed from a replaced snapshot is
	// stored under a key no later request asks for.
	generation uint64

	engine string
	cache  *cache.LRU[any]
	now    func() time.Time
}

// NewService creates a Service with no dataset and no model.
func NewService(opts Options) *Service {
	s := &Service{
		engine: opts.Engine,
		now:    opts.Now,
	}
	if s.engine == "" {
		s.engine = "memory"
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.CacheSize > 0 {
		s.cache = cache.NewLRU[any](opts.CacheSize, opts.CacheTTL)
	}
	metrics.SetModelLoaded(false)
	return s
}

// SetSource attaches (or with nil detaches) the dataset.
func (s *Service) SetSource(ctx context.Context, src Source) error {
	rows := 0
	if src != nil {
		n, err := src.Len(ctx)
		if err != nil {
			return fmt.Errorf("count rows: %w", err)
		}
		rows = n
	}

	s.mu.Lock()
	s.source = src
	s.generation++
	s.mu.Unlock()
	s.invalidate()

	metrics.SetDatasetRows(rows)
	logging.Ctx(ctx).Info().Int("rows", rows).Str("engine", s.engine).Msg("dataset attached")
	return nil
}

// SetModel attaches (or with nil detaches) the trained model.
func (s *Service) SetModel(m *Model) {
	if m != nil && (m.Classifier == nil || m.Encoder == nil) {
		m = nil
	}
	s.mu.Lock()
	s.model = m
	s.generation++
	s.mu.Unlock()
	s.invalidate()
	metrics.SetModelLoaded(m != nil)
}

// DataLoaded reports whether a dataset is attached.
func (s *Service) DataLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source != nil
}

// ModelLoaded reports whether a trained model is attached.
func (s *Service) ModelLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model != nil
}

// Health reports which resources are loaded.
func (s *Service) Health() models.HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.HealthStatus{
		Status:      "healthy",
		DataLoaded:  s.source != nil,
		ModelLoaded: s.model != nil,
	}
}

// view is a consistent snapshot of the attached resources.
type view struct {
	source     Source
	model      *Model
	generation uint64
}

func (s *Service) snapshot() view {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{source: s.source, model: s.model, generation: s.generation}
}

func (s *Service) requireSource() (view, error) {
	v := s.snapshot()
	if v.source == nil {
		return v, ErrNoData
	}
	return v, nil
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.Clear()
	}
}

// cached memoizes compute under op, params and the snapshot generation when
// caching is enabled.
func cached[T any](s *Service, snap view, op string, params any, compute func() (T, error)) (T, error) {
	if s.cache == nil {
		return compute()
	}
	key := fmt.Sprintf("%d:%s", snap.generation, cache.GenerateKey(op, params))
	out, err := s.cache.GetOrCompute(key, func() (any, error) {
		v, err := compute()
		return v, err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out.(T), nil
}

// aggregate runs one query against src and records its latency.
func (s *Service) aggregate(ctx context.Context, src Source, op string, filter dataset.Filter, dims ...dataset.Dimension) ([]dataset.Group, error) {
	start := time.Now()
	groups, err := src.Aggregate(ctx, filter, dims...)
	metrics.RecordAnalyticsQuery(op, s.engine, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return groups, nil
}

// total aggregates without grouping and returns the single group.
func (s *Service) total(ctx context.Context, src Source, op string, filter dataset.Filter) (dataset.Group, error) {
	groups, err := s.aggregate(ctx, src, op, filter)
	if err != nil {
		return dataset.Group{}, err
	}
	if len(groups) == 0 {
		return dataset.Group{}, nil
	}
	return groups[0], nil
}

// round2 rounds the exact binary value of v to two decimals. Exact ties
// such as 0.125 go to the even digit.
func round2(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return r
}
