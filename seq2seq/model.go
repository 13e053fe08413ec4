package seq2seq

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/manningwu07/shigen/bucket"
	"github.com/manningwu07/shigen/optimizations"
	"github.com/manningwu07/shigen/params"
	"github.com/manningwu07/shigen/utils"
)

// Model is a GRU encoder-decoder over token IDs. The encoder folds the
// reversed, left-padded source into its hidden states; the decoder starts
// from those states and emits one logit matrix per output step through a
// shared output projection.
type Model struct {
	SrcVocab  int
	TgtVocab  int
	Size      int
	NumLayers int

	LearningRate float64
	DecayFactor  float64
	MaxGradNorm  float64
	GlobalStep   int
	Optimizer    string
	UseFP16      bool

	encEmb *Node
	decEmb *Node
	enc    []*GRUCell
	dec    []*GRUCell
	projW  *Node
	projB  *Node

	adamM, adamV                  []*mat.Dense
	adamStep                      int
	adamBeta1, adamBeta2, adamEps float64
}

// NewModel builds a fresh model from cfg, initialized from rng.
func NewModel(cfg params.Config, rng *rand.Rand) *Model {
	m := &Model{
		SrcVocab:     cfg.FromVocabSize,
		TgtVocab:     cfg.ToVocabSize,
		Size:         cfg.Size,
		NumLayers:    cfg.NumLayers,
		LearningRate: cfg.LearningRate,
		DecayFactor:  cfg.DecayFactor,
		MaxGradNorm:  cfg.MaxGradNorm,
		Optimizer:    cfg.Optimizer,
		UseFP16:      cfg.UseFP16,
		adamBeta1:    cfg.AdamBeta1,
		adamBeta2:    cfg.AdamBeta2,
		adamEps:      cfg.AdamEps,
	}
	if m.Optimizer == "" {
		m.Optimizer = "sgd"
	}
	m.encEmb = NewNodeUniform(rng, cfg.Size, cfg.FromVocabSize, cfg.Size)
	m.decEmb = NewNodeUniform(rng, cfg.Size, cfg.ToVocabSize, cfg.Size)
	for l := 0; l < cfg.NumLayers; l++ {
		m.enc = append(m.enc, NewGRUCell(rng, cfg.Size, cfg.Size))
		m.dec = append(m.dec, NewGRUCell(rng, cfg.Size, cfg.Size))
	}
	m.projW = NewNodeUniform(rng, cfg.ToVocabSize, cfg.Size, cfg.Size)
	m.projB = NewNode(cfg.ToVocabSize, 1)
	return m
}

// Step runs one batch through the model. With forwardOnly false it
// backpropagates, clips gradients by global norm, applies the optimizer,
// and advances GlobalStep; the returned norm is measured before clipping.
// With forwardOnly true parameters stay untouched, the decoder feeds its
// own argmax back as the next input, and the norm is zero. Either way it
// returns the weighted sequence loss and the per-step logits, each
// (TgtVocab × batch).
func (m *Model) Step(b *bucket.Batch, forwardOnly bool) (float64, float64, []*mat.Dense) {
	g := &Graph{NeedsBackprop: !forwardOnly}
	loss, logits := m.run(g, b, !forwardOnly)
	if forwardOnly {
		return 0, loss, logits
	}
	g.Backward()
	norm := m.applyGradients()
	m.GlobalStep++
	return norm, loss, logits
}

// DecayLearningRate multiplies the learning rate by the decay factor once.
func (m *Model) DecayLearningRate() {
	m.LearningRate *= m.DecayFactor
}

// run executes the encoder and decoder over b. With teacherForce the
// decoder consumes the batch's decoder rows; otherwise it starts from the
// GO row and feeds back its own argmax. Loss is always scored against the
// batch targets and weights.
func (m *Model) run(g *Graph, b *bucket.Batch, teacherForce bool) (float64, []*mat.Dense) {
	batchSize := len(b.Encoder[0])

	hidden := make([]*Node, m.NumLayers)
	for l := range hidden {
		hidden[l] = NewNode(m.Size, batchSize)
	}
	for t := range b.Encoder {
		x := g.Lookup(m.encEmb, b.Encoder[t])
		for l, cell := range m.enc {
			x = cell.Step(g, x, hidden[l])
			hidden[l] = x
		}
	}

	steps := len(b.Weights)
	wsum := make([]float64, batchSize)
	for t := 0; t < steps; t++ {
		for j, w := range b.Weights[t] {
			wsum[j] += w
		}
	}

	var loss float64
	logits := make([]*mat.Dense, steps)
	input := b.Decoder[0]
	for t := 0; t < steps; t++ {
		x := g.Lookup(m.decEmb, input)
		for l, cell := range m.dec {
			x = cell.Step(g, x, hidden[l])
			hidden[l] = x
		}
		out := g.AddBias(g.Mul(m.projW, x), m.projB)
		loss += m.scoreStep(g, out, b.Decoder[t+1], b.Weights[t], wsum)
		logits[t] = mat.DenseCopyOf(out.W)

		if teacherForce {
			input = b.Decoder[t+1]
		} else {
			next := make([]int, batchSize)
			for j := range next {
				next[j] = utils.ColArgmax(out.W, j)
			}
			input = next
		}
	}
	return loss, logits
}

// scoreStep adds the weighted cross-entropy for one decoder step and, when
// the graph records gradients, seeds the matching gradient into the
// logits. Per example the loss is sum_t w*CE / (sum_t w + 1e-12), averaged
// over the batch; the gradient carries the same scaling.
func (m *Model) scoreStep(g *Graph, out *Node, targets []int, weights []float64, wsum []float64) float64 {
	rows, cols := out.W.Dims()
	total := 0.0
	for j := 0; j < cols; j++ {
		w := weights[j]
		if w == 0 {
			continue
		}
		scale := w / ((wsum[j] + 1e-12) * float64(cols))

		maxv := out.W.At(0, j)
		for i := 1; i < rows; i++ {
			if v := out.W.At(i, j); v > maxv {
				maxv = v
			}
		}
		sum := 0.0
		for i := 0; i < rows; i++ {
			sum += math.Exp(out.W.At(i, j) - maxv)
		}
		logZ := maxv + math.Log(sum)
		total += scale * (logZ - out.W.At(targets[j], j))

		if g.NeedsBackprop {
			for i := 0; i < rows; i++ {
				d := scale * math.Exp(out.W.At(i, j)-maxv) / sum
				if i == targets[j] {
					d -= scale
				}
				out.DW.Set(i, j, out.DW.At(i, j)+d)
			}
		}
	}
	return total
}

func (m *Model) applyGradients() float64 {
	ps := m.params()
	grads := make([]*mat.Dense, len(ps))
	for i, p := range ps {
		grads[i] = p.DW
	}
	norm := optimizations.ClipByGlobalNorm(m.MaxGradNorm, grads)

	if m.Optimizer == "adam" {
		m.initAdamIfNeeded(ps)
		m.adamStep++
		for i, p := range ps {
			optimizations.AdamUpdateInPlace(p.W, p.DW, m.adamM[i], m.adamV[i],
				m.adamStep, m.LearningRate, m.adamBeta1, m.adamBeta2, m.adamEps)
		}
	} else {
		for _, p := range ps {
			optimizations.SGDUpdateInPlace(p.W, p.DW, m.LearningRate)
		}
	}
	for _, p := range ps {
		p.ZeroGrad()
	}
	return norm
}

func (m *Model) initAdamIfNeeded(ps []*Node) {
	if m.adamM != nil {
		return
	}
	m.adamM = make([]*mat.Dense, len(ps))
	m.adamV = make([]*mat.Dense, len(ps))
	for i, p := range ps {
		r, c := p.W.Dims()
		m.adamM[i] = mat.NewDense(r, c, nil)
		m.adamV[i] = mat.NewDense(r, c, nil)
	}
}

// params returns every trainable node in a fixed order; checkpoints rely
// on this ordering.
func (m *Model) params() []*Node {
	ps := []*Node{m.encEmb, m.decEmb}
	for _, c := range m.enc {
		ps = append(ps, c.Params()...)
	}
	for _, c := range m.dec {
		ps = append(ps, c.Params()...)
	}
	return append(ps, m.projW, m.projB)
}
