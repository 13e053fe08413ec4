package bucket

// Batch is one padded batch in time-major layout: row t spans the whole
// batch at timestep t. Encoder has Bucket.In rows holding left-padded,
// reversed sources. Decoder has Bucket.Out+1 rows: a leading GO row, then
// target tokens, then PAD. Weights has Bucket.Out rows masking the loss;
// Weights[t] belongs to the prediction of Decoder[t+1].
//
// Sources and Targets keep the raw unpadded sequences per batch position
// and are filled by Eval only.
type Batch struct {
	Encoder [][]int
	Decoder [][]int
	Weights [][]float64

	Sources [][]int
	Targets [][]int
}

// Sampler builds batches over a dataset. Pad and Go are the reserved
// padding and decoder-start token IDs.
type Sampler struct {
	Pad       int
	Go        int
	BatchSize int
}

// Training draws BatchSize examples uniformly with replacement from bucket
// b and pads them to the bucket's capacities.
func (s Sampler) Training(rng Rand, d *Dataset, b int) *Batch {
	bk := d.buckets[b]
	batch := s.newBatch(bk, false)
	for j := 0; j < s.BatchSize; j++ {
		s.fill(batch, bk, j, d.examples[b][rng.Intn(len(d.examples[b]))])
	}
	s.maskWeights(batch, bk)
	return batch
}

// Eval walks bucket b in stored order, wrapping around when the bucket
// holds fewer than BatchSize examples, and keeps the raw sequences for
// reporting. The decode path stages one example via Put and calls Eval
// with batch size 1.
func (s Sampler) Eval(d *Dataset, b int) *Batch {
	bk := d.buckets[b]
	batch := s.newBatch(bk, true)
	n := len(d.examples[b])
	for j := 0; j < s.BatchSize; j++ {
		ex := d.examples[b][j%n]
		s.fill(batch, bk, j, ex)
		batch.Sources[j] = ex.Source
		batch.Targets[j] = ex.Target
	}
	s.maskWeights(batch, bk)
	return batch
}

func (s Sampler) newBatch(bk Bucket, raw bool) *Batch {
	batch := &Batch{
		Encoder: make([][]int, bk.In),
		Decoder: make([][]int, bk.Out+1),
		Weights: make([][]float64, bk.Out),
	}
	for t := range batch.Encoder {
		batch.Encoder[t] = make([]int, s.BatchSize)
	}
	for t := range batch.Decoder {
		batch.Decoder[t] = make([]int, s.BatchSize)
	}
	for t := range batch.Weights {
		batch.Weights[t] = make([]float64, s.BatchSize)
	}
	if raw {
		batch.Sources = make([][]int, s.BatchSize)
		batch.Targets = make([][]int, s.BatchSize)
	}
	return batch
}

// fill writes example ex into batch column j. Oversized sequences are cut
// to capacity silently. The source is left-padded and reversed so its last
// real token sits adjacent to the encoder's final step.
func (s Sampler) fill(batch *Batch, bk Bucket, j int, ex Example) {
	src := ex.Source
	if len(src) > bk.In {
		src = src[:bk.In]
	}
	tgt := ex.Target
	if len(tgt) > bk.Out {
		tgt = tgt[:bk.Out]
	}

	pad := bk.In - len(src)
	for t := 0; t < pad; t++ {
		batch.Encoder[t][j] = s.Pad
	}
	for t, tok := range src {
		batch.Encoder[pad+len(src)-1-t][j] = tok
	}

	batch.Decoder[0][j] = s.Go
	for t, tok := range tgt {
		batch.Decoder[1+t][j] = tok
	}
	for t := 1 + len(tgt); t <= bk.Out; t++ {
		batch.Decoder[t][j] = s.Pad
	}
}

// maskWeights zeroes the loss wherever the shifted target is PAD, and
// unconditionally at the final step.
func (s Sampler) maskWeights(batch *Batch, bk Bucket) {
	for t := 0; t < bk.Out; t++ {
		for j := range batch.Weights[t] {
			if t == bk.Out-1 || batch.Decoder[t+1][j] == s.Pad {
				batch.Weights[t][j] = 0
			} else {
				batch.Weights[t][j] = 1
			}
		}
	}
}
