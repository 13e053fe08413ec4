package main

import (
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/manningwu07/shigen/IO"
	"github.com/manningwu07/shigen/bucket"
	"github.com/manningwu07/shigen/params"
	"github.com/manningwu07/shigen/seq2seq"
	"github.com/manningwu07/shigen/utils"
)

// showExampleNum is how many random dev pairs print per bucket at each
// checkpoint.
const showExampleNum = 5

// lossRing remembers the last three checkpoint losses for the decay rule.
type lossRing struct {
	vals [3]float64
	n    int
}

func (r *lossRing) push(v float64) {
	r.vals[r.n%len(r.vals)] = v
	r.n++
}

// shouldDecay reports whether loss tops every remembered value. It stays
// false until three checkpoints have been recorded.
func (r *lossRing) shouldDecay(loss float64) bool {
	if r.n < len(r.vals) {
		return false
	}
	worst := r.vals[0]
	for _, v := range r.vals[1:] {
		if v > worst {
			worst = v
		}
	}
	return loss > worst
}

// perplexity is exp(loss), clamped to +Inf where exp would overflow.
func perplexity(loss float64) float64 {
	if loss < 300 {
		return math.Exp(loss)
	}
	return math.Inf(1)
}

// createModel restores the newest checkpoint in cfg.TrainDir, or starts a
// fresh model when there is none.
func createModel(cfg params.Config, rng *rand.Rand) (*seq2seq.Model, error) {
	model, restoredFrom, err := seq2seq.Restore(cfg, rng, cfg.TrainDir)
	if err != nil {
		return nil, err
	}
	if restoredFrom != "" {
		fmt.Printf("Reading model parameters from %s\n", restoredFrom)
	} else {
		fmt.Println("Created model with fresh parameters.")
	}
	return model, nil
}

func dataPath(override, dir, name string) string {
	if override != "" {
		return override
	}
	return filepath.Join(dir, name)
}

// train runs the main loop: pick a bucket by occupancy, step the model,
// and every cfg.StepsPerCheckpoint steps print stats, checkpoint, and run
// the dev evals.
func train(cfg params.Config, rng *rand.Rand) error {
	fmt.Printf("Creating %d layers of %d units.\n", cfg.NumLayers, cfg.Size)
	model, err := createModel(cfg, rng)
	if err != nil {
		return err
	}

	fmt.Println("Reading development and training data.")
	devSet, err := IO.ReadData(
		dataPath(cfg.FromDevData, cfg.DataDir, "dev.src.ids"),
		dataPath(cfg.ToDevData, cfg.DataDir, "dev.tgt.ids"),
		buckets, 0)
	if err != nil {
		return err
	}
	trainSet, err := IO.ReadData(
		dataPath(cfg.FromTrainData, cfg.DataDir, "train.src.ids"),
		dataPath(cfg.ToTrainData, cfg.DataDir, "train.tgt.ids"),
		buckets, cfg.MaxTrainDataSize)
	if err != nil {
		return err
	}
	if trainSet.Size() == 0 {
		return fmt.Errorf("no training pairs fit any bucket")
	}

	vocab, err := IO.LoadVocab(filepath.Join(cfg.DataDir, "vocab.txt"))
	if err != nil {
		return err
	}

	sampler := bucket.Sampler{Pad: IO.PadID, Go: IO.GoID, BatchSize: cfg.BatchSize}
	interval := float64(cfg.StepsPerCheckpoint)
	var stepTime, loss float64
	var previous lossRing
	currentStep := 0
	for {
		bucketID := trainSet.Choose(rng)

		start := time.Now()
		b := sampler.Training(rng, trainSet, bucketID)
		_, stepLoss, _ := model.Step(b, false)
		stepTime += time.Since(start).Seconds() / interval
		loss += stepLoss / interval
		currentStep++

		if currentStep%cfg.StepsPerCheckpoint == 0 {
			fmt.Printf("global step %d learning rate %.4f step-time %.2f perplexity %.2f\n",
				model.GlobalStep, model.LearningRate, stepTime, perplexity(loss))
			if previous.shouldDecay(loss) {
				model.DecayLearningRate()
			}
			previous.push(loss)
			if _, err := model.Save(cfg.TrainDir); err != nil {
				return fmt.Errorf("save checkpoint: %w", err)
			}
			stepTime, loss = 0.0, 0.0
			runEvals(model, sampler, devSet, vocab, rng)
		}
		if cfg.MaxSteps > 0 && currentStep >= cfg.MaxSteps {
			return nil
		}
	}
}

// runEvals prints dev perplexity per bucket plus a few sampled generations
// next to their sources and targets. Model state is untouched.
func runEvals(m *seq2seq.Model, sampler bucket.Sampler, devSet *bucket.Dataset, vocab params.Vocabulary, rng *rand.Rand) {
	for bucketID := range devSet.Buckets() {
		if devSet.Len(bucketID) == 0 {
			fmt.Printf("  eval: empty bucket %d\n", bucketID)
			continue
		}
		b := sampler.Eval(devSet, bucketID)
		_, evalLoss, logits := m.Step(b, true)
		fmt.Printf("  eval: bucket %d perplexity %.2f\n", bucketID, perplexity(evalLoss))

		for i := 0; i < showExampleNum; i++ {
			pos := rng.Intn(sampler.BatchSize)
			generated := make([]int, len(logits))
			for t, logit := range logits {
				generated[t] = utils.ColArgmax(logit, pos)
			}
			fmt.Println("Original / generated / target text: ")
			fmt.Println(IO.Sentence(vocab, cutAtEOS(b.Sources[pos])))
			fmt.Println(IO.Sentence(vocab, cutAtEOS(generated)))
			fmt.Println(IO.Sentence(vocab, cutAtEOS(b.Targets[pos])))
		}
	}
}

// cutAtEOS returns ids up to the first end-of-sequence marker.
func cutAtEOS(ids []int) []int {
	for i, id := range ids {
		if id == IO.EosID {
			return ids[:i]
		}
	}
	return ids
}
