// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

// Package ml implements the authentication failure classifier: label
// encoding of categorical attributes, a gradient-boosted tree ensemble with
// logistic loss, evaluation helpers and on-disk artifacts.
//
// # Model
//
// Each boosting round fits a depth-limited regression tree to the gradient
// and hessian of the log loss. Splits maximise the second-order gain
//
//	gain = 1/2 * (GL²/(HL+λ) + GR²/(HR+λ) - G²/(H+λ))
//
// and leaves output -G/(H+λ) scaled by the learning rate. Candidate
// thresholds are the distinct feature values (at most 256 per feature).
//
// # Thread Safety
//
// Fit acquires an exclusive lock while prediction uses a shared lock, so a
// loaded classifier may serve concurrent HTTP requests.
package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// ErrNotFitted is returned when predicting with an untrained classifier.
var ErrNotFitted = errors.New("classifier is not fitted")

// Config contains configuration for the gradient-boosted classifier.
type Config struct {
	// NumEstimators is the number of boosting rounds.
	NumEstimators int `json:"n_estimators"`

	// MaxDepth limits each tree's depth.
	MaxDepth int `json:"max_depth"`

	// LearningRate shrinks each tree's contribution.
	LearningRate float64 `json:"learning_rate"`

	// Lambda is the L2 regularization on leaf weights.
	Lambda float64 `json:"lambda"`

	// MinChildWeight is the minimum hessian sum per child.
	MinChildWeight float64 `json:"min_child_weight"`
}

// DefaultConfig returns the default classifier configuration.
func DefaultConfig() Config {
	return Config{
		NumEstimators:  100,
		MaxDepth:       6,
		LearningRate:   0.1,
		Lambda:         1,
		MinChildWeight: 1,
	}
}

// Classifier is a binary gradient-boosted tree classifier.
type Classifier struct {
	mu sync.RWMutex

	config        Config
	baseScore     float64
	trees         []Tree
	gains         []float64
	splits        []int
	numFeatures   int
	trained       bool
	lastTrainedAt time.Time
}

// NewClassifier creates a classifier. Non-positive fields use defaults.
func NewClassifier(cfg Config) *Classifier {
	def := DefaultConfig()
	if cfg.NumEstimators <= 0 {
		cfg.NumEstimators = def.NumEstimators
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = def.LearningRate
	}
	if cfg.Lambda <= 0 {
		cfg.Lambda = def.Lambda
	}
	if cfg.MinChildWeight <= 0 {
		cfg.MinChildWeight = def.MinChildWeight
	}
	return &Classifier{config: cfg}
}

// Config returns the classifier configuration.
func (c *Classifier) Config() Config {
	return c.config
}

func (c *Classifier) isTrained() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.trained
}

// Fit trains the ensemble on X (rows of equal length) and binary labels y.
// It returns ctx.Err() if cancelled between rounds.
func (c *Classifier) Fit(ctx context.Context, X [][]float64, y []float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(X) == 0 {
		return errors.New("no training rows")
	}
	if len(X) != len(y) {
		return fmt.Errorf("X has %d rows but y has %d labels", len(X), len(y))
	}
	numFeatures := len(X[0])
	for i, x := range X {
		if len(x) != numFeatures {
			return fmt.Errorf("row %d has %d features, want %d", i, len(x), numFeatures)
		}
	}

	var pos float64
	for _, v := range y {
		if v != 0 && v != 1 {
			return fmt.Errorf("labels must be 0 or 1, got %v", v)
		}
		pos += v
	}
	p := clamp(pos/float64(len(y)), 1e-6, 1-1e-6)
	base := math.Log(p / (1 - p))

	bins := newBinning(X, numFeatures)
	n := len(X)
	margin := make([]float64, n)
	for i := range margin {
		margin[i] = base
	}
	grad := make([]float64, n)
	hess := make([]float64, n)
	rows := make([]int, n)
	gains := make([]float64, numFeatures)
	splits := make([]int, numFeatures)
	params := treeParams{
		maxDepth:       c.config.MaxDepth,
		minChildWeight: c.config.MinChildWeight,
		lambda:         c.config.Lambda,
		learningRate:   c.config.LearningRate,
	}

	trees := make([]Tree, 0, c.config.NumEstimators)
	for round := 0; round < c.config.NumEstimators; round++ {
		if ContextCancelled(ctx) {
			return ctx.Err()
		}
		for i := range margin {
			pr := sigmoid(margin[i])
			grad[i] = pr - y[i]
			hess[i] = math.Max(pr*(1-pr), 1e-16)
			rows[i] = i
		}
		b := &treeBuilder{
			params: params,
			bins:   bins,
			grad:   grad,
			hess:   hess,
			margin: margin,
			gains:  gains,
			splits: splits,
		}
		b.build(rows, 0)
		trees = append(trees, b.tree)
	}

	c.baseScore = base
	c.trees = trees
	c.gains = gains
	c.splits = splits
	c.numFeatures = numFeatures
	c.trained = true
	c.lastTrainedAt = time.Now()
	return nil
}

// PredictProba returns the failure probability of x.
func (c *Classifier) PredictProba(x []float64) (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.trained {
		return 0, ErrNotFitted
	}
	if len(x) != c.numFeatures {
		return 0, fmt.Errorf("got %d features, want %d", len(x), c.numFeatures)
	}
	return sigmoid(c.marginLocked(x)), nil
}

func (c *Classifier) marginLocked(x []float64) float64 {
	m := c.baseScore
	for i := range c.trees {
		m += c.trees[i].predict(x)
	}
	return m
}

// Score returns the accuracy of thresholding predictions at 0.5.
func (c *Classifier) Score(X [][]float64, y []float64) (float64, error) {
	if len(X) != len(y) {
		return 0, fmt.Errorf("X has %d rows but y has %d labels", len(X), len(y))
	}
	if len(X) == 0 {
		return 0, errors.New("no rows to score")
	}
	correct := 0
	for i, x := range X {
		p, err := c.PredictProba(x)
		if err != nil {
			return 0, err
		}
		pred := 0.0
		if p >= 0.5 {
			pred = 1
		}
		if pred == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(X)), nil
}

// FeatureImportances returns each feature's average gain per split,
// normalized to sum to 1. A feature that was never split on scores 0, and
// all values are 0 when no split was ever made.
func (c *Classifier) FeatureImportances() []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]float64, len(c.gains))
	var total float64
	for i, g := range c.gains {
		if i < len(c.splits) && c.splits[i] > 0 {
			out[i] = g / float64(c.splits[i])
			total += out[i]
		}
	}
	if total == 0 {
		return make([]float64, len(c.gains))
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

// NumTrees returns the number of fitted trees.
func (c *Classifier) NumTrees() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.trees)
}

// ContextCancelled checks if the context has been cancelled.
func ContextCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
