// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// TrainTestSplit shuffles row indices 0..n-1 with seed and returns disjoint
// train and test index sets. The test set holds ceil(testSize*n) rows.
func TrainTestSplit(n int, testSize float64, seed int64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be in (0, 1), got %v", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	if n < 2 || nTest >= n {
		return nil, nil, fmt.Errorf("cannot split %d rows with test size %v", n, testSize)
	}

	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible shuffling, not security sensitive
	perm := rng.Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// Subset returns the rows of X and y at idx.
func Subset(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	xs := make([][]float64, len(idx))
	ys := make([]float64, len(idx))
	for i, j := range idx {
		xs[i] = X[j]
		ys[i] = y[j]
	}
	return xs, ys
}
