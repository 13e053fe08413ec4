package optimizations

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// AdamUpdateInPlace applies one Adam step with bias correction:
// p -= lr * mhat / (sqrt(vhat) + eps). The running moments m and v are
// updated in place alongside p; t is the 1-based step count.
func AdamUpdateInPlace(p, g, m, v *mat.Dense, t int, lr, beta1, beta2, eps float64) {
	pr, pc := p.Dims()
	for _, x := range []*mat.Dense{g, m, v} {
		if r, c := x.Dims(); r != pr || c != pc {
			panic("AdamUpdateInPlace: shape mismatch")
		}
	}
	c1 := 1.0 / (1.0 - math.Pow(beta1, float64(t)))
	c2 := 1.0 / (1.0 - math.Pow(beta2, float64(t)))
	pd := p.RawMatrix().Data
	gd := g.RawMatrix().Data
	md := m.RawMatrix().Data
	vd := v.RawMatrix().Data
	for i := range pd {
		md[i] = beta1*md[i] + (1.0-beta1)*gd[i]
		vd[i] = beta2*vd[i] + (1.0-beta2)*gd[i]*gd[i]
		pd[i] -= lr * (md[i] * c1) / (math.Sqrt(vd[i]*c2) + eps)
	}
}
