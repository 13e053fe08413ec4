package optimizations

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ClipByGlobalNorm rescales every gradient in place so their joint L2 norm
// does not exceed maxNorm, and returns the norm measured before clipping.
// A maxNorm <= 0 disables clipping but still reports the norm.
func ClipByGlobalNorm(maxNorm float64, grads []*mat.Dense) float64 {
	sumsq := 0.0
	for _, g := range grads {
		for _, v := range g.RawMatrix().Data {
			sumsq += v * v
		}
	}
	norm := math.Sqrt(sumsq)
	if maxNorm > 0 && norm > maxNorm {
		scale := maxNorm / norm
		for _, g := range grads {
			data := g.RawMatrix().Data
			for i := range data {
				data[i] *= scale
			}
		}
	}
	return norm
}

// SGDUpdateInPlace applies p -= lr * g.
func SGDUpdateInPlace(p, g *mat.Dense, lr float64) {
	pr, pc := p.Dims()
	if gr, gc := g.Dims(); gr != pr || gc != pc {
		panic("SGDUpdateInPlace: grad shape mismatch")
	}
	pd := p.RawMatrix().Data
	gd := g.RawMatrix().Data
	for i := range pd {
		pd[i] -= lr * gd[i]
	}
}
