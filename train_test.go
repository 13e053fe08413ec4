package main

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/manningwu07/shigen/params"
)

func TestLossRingDecayRule(t *testing.T) {
	var r lossRing
	if r.shouldDecay(100) {
		t.Fatalf("fresh ring must not decay")
	}
	r.push(1.0)
	r.push(0.9)
	if r.shouldDecay(100) {
		t.Fatalf("two recorded losses are not enough to decay")
	}
	r.push(0.95)

	if !r.shouldDecay(1.2) {
		t.Fatalf("1.2 tops max(1.0, 0.9, 0.95), want decay")
	}
	if r.shouldDecay(0.5) {
		t.Fatalf("0.5 is an improvement, decay must not fire")
	}
	if r.shouldDecay(1.0) {
		t.Fatalf("matching the worst recorded loss must not decay")
	}

	// Oldest value (1.0) falls out of the window.
	r.push(0.2)
	if !r.shouldDecay(0.96) {
		t.Fatalf("0.96 tops max(0.9, 0.95, 0.2), want decay")
	}
	if r.shouldDecay(0.95) {
		t.Fatalf("matching the worst of the window must not decay")
	}
}

func TestPerplexityOverflowGuard(t *testing.T) {
	if got, want := perplexity(1.0), math.Exp(1.0); math.Abs(got-want) > 1e-12 {
		t.Fatalf("perplexity(1.0) = %v, want %v", got, want)
	}
	if math.IsInf(perplexity(299.99), 1) {
		t.Fatalf("perplexity just under the guard must stay finite")
	}
	if !math.IsInf(perplexity(300), 1) {
		t.Fatalf("perplexity(300) = %v, want +Inf", perplexity(300))
	}
	if !math.IsInf(perplexity(1e6), 1) {
		t.Fatalf("huge losses must report +Inf")
	}
}

func TestCutAtEOS(t *testing.T) {
	got := cutAtEOS([]int{5, 6, 2, 7})
	if len(got) != 2 || got[0] != 5 || got[1] != 6 {
		t.Fatalf("cutAtEOS = %v, want [5 6]", got)
	}
	if got := cutAtEOS([]int{2, 5}); len(got) != 0 {
		t.Fatalf("leading EOS must cut everything, got %v", got)
	}
	if got := cutAtEOS([]int{5, 6}); len(got) != 2 {
		t.Fatalf("no EOS must keep the sequence whole, got %v", got)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestTrainShortRunCheckpoints(t *testing.T) {
	dataDir := t.TempDir()
	trainDir := t.TempDir()

	writeFile(t, filepath.Join(dataDir, "train.src.ids"), "5 6\n7 8\n")
	writeFile(t, filepath.Join(dataDir, "train.tgt.ids"), "9\n5 6\n")
	writeFile(t, filepath.Join(dataDir, "dev.src.ids"), "5\n")
	writeFile(t, filepath.Join(dataDir, "dev.tgt.ids"), "6\n")
	writeFile(t, filepath.Join(dataDir, "vocab.txt"),
		"<pad>\n<go>\n<eos>\n<unk>\na\nb\nc\nd\ne\nf\n")

	cfg := params.Defaults()
	cfg.Size = 4
	cfg.NumLayers = 2
	cfg.FromVocabSize = 10
	cfg.ToVocabSize = 10
	cfg.BatchSize = 2
	cfg.StepsPerCheckpoint = 1
	cfg.MaxSteps = 2
	cfg.DataDir = dataDir
	cfg.TrainDir = trainDir

	rng := rand.New(rand.NewSource(7))
	if err := train(cfg, rng); err != nil {
		t.Fatalf("train: %v", err)
	}

	for _, name := range []string{"shi_rnn.ckp-1", "shi_rnn.ckp-2", "checkpoint"} {
		if _, err := os.Stat(filepath.Join(trainDir, name)); err != nil {
			t.Fatalf("missing %s after training: %v", name, err)
		}
	}
}
