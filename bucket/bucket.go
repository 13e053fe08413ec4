// Package bucket groups variable-length (source, target) examples into
// fixed-capacity length bins and builds padded, time-major batches from
// them. Binning keeps padding waste small: a sequence only ever pays for
// the capacity of the smallest bin it fits in.
package bucket

// Bucket is one (input, output) capacity bin.
type Bucket struct {
	In  int // max source tokens
	Out int // max target tokens
}

// Example is one (source, target) pair of token IDs.
type Example struct {
	Source []int
	Target []int
}

// Dataset owns an ordered bucket index plus one example list per bucket.
// It is passed explicitly wherever selection or sampling happens; there is
// no ambient dataset state.
type Dataset struct {
	buckets  []Bucket
	examples [][]Example
}

// NewDataset returns an empty dataset over the given bucket index. The
// index must be ordered by ascending capacity and stays fixed for the
// dataset's lifetime.
func NewDataset(buckets []Bucket) *Dataset {
	return &Dataset{
		buckets:  buckets,
		examples: make([][]Example, len(buckets)),
	}
}

// Buckets returns the bucket index.
func (d *Dataset) Buckets() []Bucket { return d.buckets }

// Add places ex into the first bucket whose capacities strictly exceed both
// sequence lengths. It reports false when no bucket fits; the example is
// dropped in that case.
func (d *Dataset) Add(ex Example) bool {
	for i, b := range d.buckets {
		if len(ex.Source) < b.In && len(ex.Target) < b.Out {
			d.examples[i] = append(d.examples[i], ex)
			return true
		}
	}
	return false
}

// Put appends ex to bucket i without length checks. The decode path uses it
// to stage a single, possibly oversized example in a chosen bucket.
func (d *Dataset) Put(i int, ex Example) {
	d.examples[i] = append(d.examples[i], ex)
}

// Len reports how many examples bucket i holds.
func (d *Dataset) Len(i int) int { return len(d.examples[i]) }

// Size is the total example count across all buckets.
func (d *Dataset) Size() int {
	n := 0
	for _, exs := range d.examples {
		n += len(exs)
	}
	return n
}

// Sizes returns the per-bucket example counts.
func (d *Dataset) Sizes() []int {
	sizes := make([]int, len(d.examples))
	for i, exs := range d.examples {
		sizes[i] = len(exs)
	}
	return sizes
}
