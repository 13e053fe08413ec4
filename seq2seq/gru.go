package seq2seq

import "math/rand"

// GRUCell is one gated recurrent layer. W* weights consume the timestep
// input, U* the previous hidden state.
type GRUCell struct {
	Wr, Ur, Br *Node // reset gate
	Wu, Uu, Bu *Node // update gate
	Wc, Uc, Bc *Node // candidate state
}

// NewGRUCell allocates a cell mapping inDim inputs to size hidden units.
func NewGRUCell(rng *rand.Rand, inDim, size int) *GRUCell {
	return &GRUCell{
		Wr: NewNodeUniform(rng, size, inDim, inDim),
		Ur: NewNodeUniform(rng, size, size, size),
		Br: NewNode(size, 1),
		Wu: NewNodeUniform(rng, size, inDim, inDim),
		Uu: NewNodeUniform(rng, size, size, size),
		Bu: NewNode(size, 1),
		Wc: NewNodeUniform(rng, size, inDim, inDim),
		Uc: NewNodeUniform(rng, size, size, size),
		Bc: NewNode(size, 1),
	}
}

// Step advances the cell one timestep. x is (inDim × batch), h the previous
// hidden state (size × batch). The update gate interpolates between keeping
// h and taking the fresh candidate.
func (c *GRUCell) Step(g *Graph, x, h *Node) *Node {
	r := g.Sigmoid(g.AddBias(g.Add(g.Mul(c.Wr, x), g.Mul(c.Ur, h)), c.Br))
	u := g.Sigmoid(g.AddBias(g.Add(g.Mul(c.Wu, x), g.Mul(c.Uu, h)), c.Bu))
	cand := g.Tanh(g.AddBias(g.Add(g.Mul(c.Wc, x), g.Mul(c.Uc, g.Eltmul(r, h))), c.Bc))
	return g.Add(g.Eltmul(u, h), g.Eltmul(g.OneMinus(u), cand))
}

// Params lists the cell's trainable nodes.
func (c *GRUCell) Params() []*Node {
	return []*Node{c.Wr, c.Ur, c.Br, c.Wu, c.Uu, c.Bu, c.Wc, c.Uc, c.Bc}
}
