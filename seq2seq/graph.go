// Package seq2seq implements a GRU encoder-decoder over token IDs with a
// small tape-based reverse-mode gradient. Forward operations record their
// backward closures on a Graph; Backward replays them in reverse.
package seq2seq

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/manningwu07/shigen/utils"
)

// Node is one tape entry: a value matrix and the gradient flowing back
// into it.
type Node struct {
	W  *mat.Dense
	DW *mat.Dense
}

// NewNode returns a zero-valued node of the given shape.
func NewNode(r, c int) *Node {
	return &Node{W: mat.NewDense(r, c, nil), DW: mat.NewDense(r, c, nil)}
}

// NewNodeUniform returns a node initialized uniformly at the 1/sqrt(fanIn)
// scale.
func NewNodeUniform(rng *rand.Rand, r, c, fanIn int) *Node {
	return &Node{
		W:  mat.NewDense(r, c, utils.RandomArray(rng, r*c, float64(fanIn))),
		DW: mat.NewDense(r, c, nil),
	}
}

// ZeroGrad clears the accumulated gradient.
func (n *Node) ZeroGrad() { n.DW.Zero() }

// Graph records forward operations and replays their backward closures in
// reverse. A fresh graph is built per step; parameter nodes outlive it and
// keep accumulating into DW until the optimizer consumes them.
type Graph struct {
	NeedsBackprop bool
	backprop      []func()
}

func (g *Graph) addBackward(f func()) {
	if g.NeedsBackprop {
		g.backprop = append(g.backprop, f)
	}
}

// Backward runs the recorded tape in reverse order.
func (g *Graph) Backward() {
	for i := len(g.backprop) - 1; i >= 0; i-- {
		g.backprop[i]()
	}
}

// Mul multiplies a (r×k) by b (k×c).
func (g *Graph) Mul(a, b *Node) *Node {
	ar, _ := a.W.Dims()
	_, bc := b.W.Dims()
	out := NewNode(ar, bc)
	out.W.Mul(a.W, b.W)
	g.addBackward(func() {
		var da, db mat.Dense
		da.Mul(out.DW, b.W.T())
		a.DW.Add(a.DW, &da)
		db.Mul(a.W.T(), out.DW)
		b.DW.Add(b.DW, &db)
	})
	return out
}

// Add sums two nodes of identical shape.
func (g *Graph) Add(a, b *Node) *Node {
	r, c := a.W.Dims()
	out := NewNode(r, c)
	out.W.Add(a.W, b.W)
	g.addBackward(func() {
		a.DW.Add(a.DW, out.DW)
		b.DW.Add(b.DW, out.DW)
	})
	return out
}

// AddBias adds a (d×1) bias column to every column of a.
func (g *Graph) AddBias(a, bias *Node) *Node {
	r, c := a.W.Dims()
	out := NewNode(r, c)
	for i := 0; i < r; i++ {
		bv := bias.W.At(i, 0)
		for j := 0; j < c; j++ {
			out.W.Set(i, j, a.W.At(i, j)+bv)
		}
	}
	g.addBackward(func() {
		a.DW.Add(a.DW, out.DW)
		for i := 0; i < r; i++ {
			sum := bias.DW.At(i, 0)
			for j := 0; j < c; j++ {
				sum += out.DW.At(i, j)
			}
			bias.DW.Set(i, 0, sum)
		}
	})
	return out
}

// Eltmul multiplies two nodes elementwise.
func (g *Graph) Eltmul(a, b *Node) *Node {
	r, c := a.W.Dims()
	out := NewNode(r, c)
	out.W.MulElem(a.W, b.W)
	g.addBackward(func() {
		var da, db mat.Dense
		da.MulElem(out.DW, b.W)
		a.DW.Add(a.DW, &da)
		db.MulElem(out.DW, a.W)
		b.DW.Add(b.DW, &db)
	})
	return out
}

// Sigmoid applies 1/(1+e^-x) elementwise.
func (g *Graph) Sigmoid(a *Node) *Node {
	r, c := a.W.Dims()
	out := NewNode(r, c)
	out.W.Apply(func(_, _ int, v float64) float64 {
		return 1.0 / (1.0 + math.Exp(-v))
	}, a.W)
	g.addBackward(func() {
		ad := a.DW.RawMatrix().Data
		od := out.DW.RawMatrix().Data
		ow := out.W.RawMatrix().Data
		for i := range ad {
			ad[i] += od[i] * ow[i] * (1.0 - ow[i])
		}
	})
	return out
}

// Tanh applies tanh elementwise.
func (g *Graph) Tanh(a *Node) *Node {
	r, c := a.W.Dims()
	out := NewNode(r, c)
	out.W.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, a.W)
	g.addBackward(func() {
		ad := a.DW.RawMatrix().Data
		od := out.DW.RawMatrix().Data
		ow := out.W.RawMatrix().Data
		for i := range ad {
			ad[i] += od[i] * (1.0 - ow[i]*ow[i])
		}
	})
	return out
}

// OneMinus computes 1 - a elementwise.
func (g *Graph) OneMinus(a *Node) *Node {
	r, c := a.W.Dims()
	out := NewNode(r, c)
	out.W.Apply(func(_, _ int, v float64) float64 { return 1.0 - v }, a.W)
	g.addBackward(func() {
		a.DW.Sub(a.DW, out.DW)
	})
	return out
}

// Lookup gathers embedding columns for ids into a (d × len(ids)) node.
// The backward pass scatters gradients into the selected columns, so a
// token drawn twice in one batch accumulates twice.
func (g *Graph) Lookup(emb *Node, ids []int) *Node {
	d, _ := emb.W.Dims()
	out := NewNode(d, len(ids))
	for j, id := range ids {
		for i := 0; i < d; i++ {
			out.W.Set(i, j, emb.W.At(i, id))
		}
	}
	g.addBackward(func() {
		for j, id := range ids {
			for i := 0; i < d; i++ {
				emb.DW.Set(i, id, emb.DW.At(i, id)+out.DW.At(i, j))
			}
		}
	})
	return out
}
