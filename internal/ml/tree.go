// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

package ml

import (
	"sort"
)

// maxBins caps the number of candidate thresholds per feature.
const maxBins = 256

// Node is one node of a regression tree stored in a flat slice. Leaves have
// Left == -1.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"` // leaf output, already scaled by the learning rate
}

// Tree is a regression tree. Rows with x[Feature] <= Threshold go left.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Left < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// binning holds per-feature candidate thresholds and each row's bin.
type binning struct {
	edges [][]float64 // edges[f][b] is the upper bound of bin b
	bins  [][]uint16  // bins[f][row]
}

func newBinning(X [][]float64, numFeatures int) *binning {
	b := &binning{
		edges: make([][]float64, numFeatures),
		bins:  make([][]uint16, numFeatures),
	}
	col := make([]float64, len(X))
	for f := 0; f < numFeatures; f++ {
		for i, x := range X {
			col[i] = x[f]
		}
		b.edges[f] = binEdges(col)
		rowBins := make([]uint16, len(X))
		for i, v := range col {
			k := sort.SearchFloat64s(b.edges[f], v)
			if k >= len(b.edges[f]) {
				k = len(b.edges[f]) - 1
			}
			rowBins[i] = uint16(k)
		}
		b.bins[f] = rowBins
	}
	return b
}

// binEdges returns the sorted distinct values of col, thinned to at most
// maxBins quantile edges.
func binEdges(col []float64) []float64 {
	sorted := append([]float64(nil), col...)
	sort.Float64s(sorted)
	uniq := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != uniq[len(uniq)-1] {
			uniq = append(uniq, v)
		}
	}
	if len(uniq) <= maxBins {
		return append([]float64(nil), uniq...)
	}
	edges := make([]float64, 0, maxBins)
	for k := 1; k <= maxBins; k++ {
		v := uniq[k*(len(uniq)-1)/maxBins]
		if len(edges) == 0 || v != edges[len(edges)-1] {
			edges = append(edges, v)
		}
	}
	return edges
}

type treeParams struct {
	maxDepth       int
	minChildWeight float64
	lambda         float64
	learningRate   float64
}

// treeBuilder grows one tree on gradients and hessians using histogram
// split finding.
type treeBuilder struct {
	params treeParams
	bins   *binning
	grad   []float64
	hess   []float64
	margin []float64 // updated in place with each leaf's output
	gains  []float64 // accumulated split gain per feature
	splits []int     // number of splits per feature
	tree   Tree
}

type histBin struct {
	g, h float64
}

func (b *treeBuilder) build(rows []int, depth int) int {
	var G, H float64
	for _, r := range rows {
		G += b.grad[r]
		H += b.hess[r]
	}

	idx := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{Left: -1, Right: -1})

	if depth < b.params.maxDepth && len(rows) >= 2 && H >= 2*b.params.minChildWeight {
		if feat, bin, gain, ok := b.bestSplit(rows, G, H); ok {
			threshold := b.bins.edges[feat][bin]
			left, right := partition(rows, b.bins.bins[feat], uint16(bin))
			b.gains[feat] += gain
			b.splits[feat]++

			l := b.build(left, depth+1)
			r := b.build(right, depth+1)
			b.tree.Nodes[idx] = Node{Feature: feat, Threshold: threshold, Left: l, Right: r}
			return idx
		}
	}

	value := -G / (H + b.params.lambda) * b.params.learningRate
	b.tree.Nodes[idx].Value = value
	for _, r := range rows {
		b.margin[r] += value
	}
	return idx
}

// bestSplit scans every feature histogram for the split with the largest
// second-order gain.
func (b *treeBuilder) bestSplit(rows []int, G, H float64) (feature, bin int, gain float64, ok bool) {
	lambda := b.params.lambda
	mcw := b.params.minChildWeight
	parent := G * G / (H + lambda)

	for f, edges := range b.bins.edges {
		if len(edges) < 2 {
			continue
		}
		hist := make([]histBin, len(edges))
		rowBins := b.bins.bins[f]
		for _, r := range rows {
			hb := &hist[rowBins[r]]
			hb.g += b.grad[r]
			hb.h += b.hess[r]
		}

		var GL, HL float64
		for k := 0; k < len(edges)-1; k++ {
			GL += hist[k].g
			HL += hist[k].h
			GR, HR := G-GL, H-HL
			if HL < mcw || HR < mcw {
				continue
			}
			g := 0.5 * (GL*GL/(HL+lambda) + GR*GR/(HR+lambda) - parent)
			if g > gain+1e-12 {
				feature, bin, gain, ok = f, k, g, true
			}
		}
	}
	return feature, bin, gain, ok
}

// partition splits rows in place into bins <= split and bins > split.
func partition(rows []int, rowBins []uint16, split uint16) (left, right []int) {
	i, j := 0, len(rows)-1
	for i <= j {
		if rowBins[rows[i]] <= split {
			i++
			continue
		}
		rows[i], rows[j] = rows[j], rows[i]
		j--
	}
	return rows[:i], rows[i:]
}
