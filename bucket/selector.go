package bucket

// Rand is the pseudo-random surface selection and sampling draw from.
// *rand.Rand satisfies it; tests inject fixed sources.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// Choose picks a bucket with probability equal to its share of the total
// example count: a uniform draw in [0,1) lands in the cumulative-scale
// interval belonging to exactly one bucket. Panics on an empty dataset;
// callers must check Size before training.
func (d *Dataset) Choose(rng Rand) int {
	total := d.Size()
	if total == 0 {
		panic("bucket: Choose on empty dataset")
	}
	u := rng.Float64()
	cum := 0
	for i, exs := range d.examples {
		cum += len(exs)
		if float64(cum)/float64(total) > u {
			return i
		}
	}
	return len(d.examples) - 1
}

// Fit returns the first bucket whose input capacity holds n tokens. When
// none does it falls back to the last (largest) bucket and reports false;
// the sampler then truncates the input to that capacity while padding.
func Fit(buckets []Bucket, n int) (int, bool) {
	for i, b := range buckets {
		if b.In >= n {
			return i, true
		}
	}
	return len(buckets) - 1, false
}
