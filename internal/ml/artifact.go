// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

package ml

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

// Artifact kinds.
const (
	KindClassifier = "gbdt_classifier"
	KindEncoders   = "label_encoders"
)

var (
	// ErrArtifactNotFound is returned when an artifact file does not exist.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrChecksumMismatch is returned when a payload does not match its checksum.
	ErrChecksumMismatch = errors.New("artifact checksum mismatch")
)

// Metadata describes a stored artifact.
type Metadata struct {
	// Kind is KindClassifier or KindEncoders.
	Kind string `json:"kind"`

	// TrainedAt is when the model was trained.
	TrainedAt time.Time `json:"trained_at"`

	// SavedAt is when the artifact was written.
	SavedAt time.Time `json:"saved_at"`

	// TrainingRows is the number of rows the model was fitted on.
	TrainingRows int `json:"training_rows,omitempty"`

	// TrainAccuracy and TestAccuracy are fractions in [0, 1].
	TrainAccuracy float64 `json:"train_accuracy,omitempty"`
	TestAccuracy  float64 `json:"test_accuracy,omitempty"`

	// TrainingDurationMS is how long fitting took.
	TrainingDurationMS int64 `json:"training_duration_ms,omitempty"`

	// Checksum is the hex SHA-256 of the payload bytes.
	Checksum string `json:"checksum"`
}

type envelope struct {
	Metadata Metadata        `json:"metadata"`
	Payload  json.RawMessage `json:"payload"`
}

type classifierState struct {
	Config       Config    `json:"config"`
	BaseScore    float64   `json:"base_score"`
	NumFeatures  int       `json:"num_features"`
	FeatureNames []string  `json:"feature_names"`
	Gains        []float64 `json:"gains"`
	Splits       []int     `json:"splits"`
	Trees        []Tree    `json:"trees"`
}

// SaveClassifier writes c to path with meta. Kind, SavedAt and Checksum are
// filled in.
func SaveClassifier(path string, c *Classifier, meta Metadata) error {
	c.mu.RLock()
	if !c.trained {
		c.mu.RUnlock()
		return ErrNotFitted
	}
	state := classifierState{
		Config:       c.config,
		BaseScore:    c.baseScore,
		NumFeatures:  c.numFeatures,
		FeatureNames: FeatureNames,
		Gains:        c.gains,
		Splits:       c.splits,
		Trees:        c.trees,
	}
	if meta.TrainedAt.IsZero() {
		meta.TrainedAt = c.lastTrainedAt
	}
	payload, err := json.Marshal(state)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal classifier: %w", err)
	}

	meta.Kind = KindClassifier
	return writeEnvelope(path, meta, payload)
}

// LoadClassifier reads a classifier written by SaveClassifier.
func LoadClassifier(path string) (*Classifier, Metadata, error) {
	meta, payload, err := readEnvelope(path, KindClassifier)
	if err != nil {
		return nil, Metadata{}, err
	}

	var state classifierState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, Metadata{}, fmt.Errorf("decode classifier: %w", err)
	}
	if len(state.Trees) == 0 || state.NumFeatures == 0 {
		return nil, Metadata{}, fmt.Errorf("classifier artifact %s has no trees", path)
	}
	for t := range state.Trees {
		if err := validateTree(&state.Trees[t], state.NumFeatures); err != nil {
			return nil, Metadata{}, fmt.Errorf("tree %d: %w", t, err)
		}
	}
	if len(state.Gains) != state.NumFeatures {
		state.Gains = make([]float64, state.NumFeatures)
	}
	if len(state.Splits) != state.NumFeatures {
		state.Splits = countSplits(state.Trees, state.NumFeatures)
	}

	c := NewClassifier(state.Config)
	c.baseScore = state.BaseScore
	c.numFeatures = state.NumFeatures
	c.gains = state.Gains
	c.splits = state.Splits
	c.trees = state.Trees
	c.trained = true
	c.lastTrainedAt = meta.TrainedAt
	return c, meta, nil
}

// validateTree rejects node references that would make predict loop or
// index out of range.
func validateTree(t *Tree, numFeatures int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Left < 0 {
			continue
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has invalid children %d/%d", i, n.Left, n.Right)
		}
		if n.Feature < 0 || n.Feature >= numFeatures {
			return fmt.Errorf("node %d splits on feature %d", i, n.Feature)
		}
	}
	return nil
}

// SaveEncoders writes fe to path.
func SaveEncoders(path string, fe *FeatureEncoder, meta Metadata) error {
	payload, err := json.Marshal(fe)
	if err != nil {
		return fmt.Errorf("marshal encoders: %w", err)
	}
	meta.Kind = KindEncoders
	return writeEnvelope(path, meta, payload)
}

// LoadEncoders reads encoders written by SaveEncoders.
func LoadEncoders(path string) (*FeatureEncoder, Metadata, error) {
	meta, payload, err := readEnvelope(path, KindEncoders)
	if err != nil {
		return nil, Metadata{}, err
	}
	var fe FeatureEncoder
	if err := json.Unmarshal(payload, &fe); err != nil {
		return nil, Metadata{}, fmt.Errorf("decode encoders: %w", err)
	}
	for _, col := range categoricalColumns {
		if le, ok := fe.Encoders[col]; !ok || le == nil || len(le.Classes) == 0 {
			return nil, Metadata{}, fmt.Errorf("encoders artifact %s lacks column %s", path, col)
		}
	}
	return &fe, meta, nil
}

func checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func writeEnvelope(path string, meta Metadata, payload []byte) error {
	meta.SavedAt = time.Now()
	meta.Checksum = checksum(payload)

	data, err := json.Marshal(envelope{Metadata: meta, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for model storage
		return fmt.Errorf("create artifact directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename artifact: %w", err)
	}
	return nil
}

func readEnvelope(path, kind string) (Metadata, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Metadata{}, nil, fmt.Errorf("%w: %w", ErrArtifactNotFound, err)
		}
		return Metadata{}, nil, fmt.Errorf("read artifact: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Metadata{}, nil, fmt.Errorf("decode artifact %s: %w", path, err)
	}
	if env.Metadata.Kind != kind {
		return Metadata{}, nil, fmt.Errorf("artifact %s has kind %q, want %q", path, env.Metadata.Kind, kind)
	}
	if checksum(env.Payload) != env.Metadata.Checksum {
		return Metadata{}, nil, fmt.Errorf("%w: %s", ErrChecksumMismatch, path)
	}
	return env.Metadata, env.Payload, nil
}

// countSplits rebuilds per-feature split counts from the trees of an
// artifact saved without them.
func countSplits(trees []Tree, numFeatures int) []int {
	splits := make([]int, numFeatures)
	for t := range trees {
		for _, n := range trees[t].Nodes {
			if n.Left >= 0 {
				splits[n.Feature]++
			}
		}
	}
	return splits
}
