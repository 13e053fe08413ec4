package main

import (
	"fmt"
	"math/rand"

	"github.com/manningwu07/shigen/IO"
	"github.com/manningwu07/shigen/bucket"
	"github.com/manningwu07/shigen/params"
	"github.com/manningwu07/shigen/seq2seq"
)

// selfTest trains a tiny model on fake data for a few steps to prove the
// whole step path runs.
func selfTest(rng *rand.Rand) error {
	fmt.Println("Self-test for neural translation model.")
	cfg := params.Defaults()
	cfg.Size = 32
	cfg.NumLayers = 2
	cfg.FromVocabSize = 10
	cfg.ToVocabSize = 10
	cfg.BatchSize = 32
	cfg.LearningRate = 0.3
	cfg.DecayFactor = 0.99
	cfg.MaxGradNorm = 5.0
	model := seq2seq.NewModel(cfg, rng)

	testBuckets := []bucket.Bucket{{In: 3, Out: 3}, {In: 6, Out: 6}}
	data := bucket.NewDataset(testBuckets)
	pairs := []bucket.Example{
		{Source: []int{1, 1}, Target: []int{2, 2}},
		{Source: []int{3, 3}, Target: []int{4}},
		{Source: []int{5}, Target: []int{6}},
		{Source: []int{1, 1, 1, 1, 1}, Target: []int{2, 2, 2, 2, 2}},
		{Source: []int{3, 3, 3}, Target: []int{5, 6}},
	}
	for _, p := range pairs {
		data.Add(p)
	}

	sampler := bucket.Sampler{Pad: IO.PadID, Go: IO.GoID, BatchSize: cfg.BatchSize}
	for i := 0; i < 5; i++ {
		bucketID := rng.Intn(len(testBuckets))
		b := sampler.Training(rng, data, bucketID)
		model.Step(b, false)
	}
	return nil
}
