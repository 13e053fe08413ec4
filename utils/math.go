package utils

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Matrix helpers shared by the model and the orchestration loops.

// RandomArray fills a slice with uniform values in [-1/sqrt(v), 1/sqrt(v)],
// the usual scale for a layer with v inputs.
func RandomArray(rng *rand.Rand, size int, v float64) []float64 {
	min := -1.0 / math.Sqrt(v+1e-12)
	max := 1.0 / math.Sqrt(v+1e-12)
	out := make([]float64, size)
	for i := range out {
		out[i] = min + (max-min)*rng.Float64()
	}
	return out
}

// ColArgmax returns the row index of the largest value in column j.
// Greedy decoding reads one token per logit column this way.
func ColArgmax(m *mat.Dense, j int) int {
	rows, _ := m.Dims()
	best := 0
	bestVal := m.At(0, j)
	for i := 1; i < rows; i++ {
		if v := m.At(i, j); v > bestVal {
			best = i
			bestVal = v
		}
	}
	return best
}
