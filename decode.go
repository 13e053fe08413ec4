package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"math/rand"
	"path/filepath"

	tk "github.com/sugarme/tokenizer"

	"github.com/manningwu07/shigen/IO"
	"github.com/manningwu07/shigen/bucket"
	"github.com/manningwu07/shigen/params"
	"github.com/manningwu07/shigen/seq2seq"
	"github.com/manningwu07/shigen/utils"
)

// encodeFn turns one line of input into token IDs.
type encodeFn func(string) ([]int, error)

// decode loads the newest checkpoint and answers lines from in on out,
// one generated quatrain line per input line.
func decode(cfg params.Config, rng *rand.Rand, in io.Reader, out io.Writer) error {
	model, err := createModel(cfg, rng)
	if err != nil {
		return err
	}
	vocab, err := IO.LoadVocab(filepath.Join(cfg.DataDir, "vocab.txt"))
	if err != nil {
		return err
	}

	enc := wordEncoder(vocab)
	tokPath := filepath.Join(cfg.DataDir, "tokenizer.json")
	if fileExists(tokPath) {
		t, err := tk.FromFile(tokPath)
		if err != nil {
			return err
		}
		enc = bpeEncoder(t)
	}
	return decodeLoop(model, vocab, enc, in, out)
}

func wordEncoder(v params.Vocabulary) encodeFn {
	return func(line string) ([]int, error) {
		return IO.SentenceToIDs(v, line), nil
	}
}

func bpeEncoder(t *tk.Tokenizer) encodeFn {
	return func(line string) ([]int, error) {
		return IO.EncodeLine(t, line)
	}
}

// decodeLoop prompts, reads one sentence at a time, and prints the greedy
// decoding. An exhausted input stream ends the loop.
func decodeLoop(m *seq2seq.Model, vocab params.Vocabulary, enc encodeFn, in io.Reader, out io.Writer) error {
	sampler := bucket.Sampler{Pad: IO.PadID, Go: IO.GoID, BatchSize: 1}
	sc := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for sc.Scan() {
		sentence := sc.Text()
		ids, err := enc(sentence)
		if err != nil {
			return err
		}

		bucketID, ok := bucket.Fit(buckets, len(ids))
		if !ok {
			log.Printf("Sentence truncated: %s", sentence)
		}

		d := bucket.NewDataset(buckets)
		d.Put(bucketID, bucket.Example{Source: ids})
		b := sampler.Eval(d, bucketID)
		_, _, logits := m.Step(b, true)

		outputs := make([]int, len(logits))
		for t, logit := range logits {
			outputs[t] = utils.ColArgmax(logit, 0)
		}
		fmt.Fprintln(out, IO.Sentence(vocab, cutAtEOS(outputs)))
		fmt.Fprint(out, "> ")
	}
	return sc.Err()
}
