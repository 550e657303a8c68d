// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

package analytics

import (
	"fmt"

	"github.com/tomtom215/authpulse/internal/ml"
)

// LoadModel reads the classifier and encoder artifacts. A missing file
// yields an error wrapping ml.ErrArtifactNotFound.
func LoadModel(modelPath, encodersPath string) (*Model, error) {
	clf, meta, err := ml.LoadClassifier(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", modelPath, err)
	}
	enc, _, err := ml.LoadEncoders(encodersPath)
	if err != nil {
		return nil, fmt.Errorf("load encoders %s: %w", encodersPath, err)
	}
	return &Model{Classifier: clf, Encoder: enc, Metadata: meta}, nil
}
