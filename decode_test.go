package main

import (
	"bytes"
	"math/rand"
	"regexp"
	"strings"
	"testing"

	"github.com/manningwu07/shigen/params"
	"github.com/manningwu07/shigen/seq2seq"
)

func decodeFixture(t *testing.T) (*seq2seq.Model, params.Vocabulary) {
	t.Helper()
	cfg := params.Defaults()
	cfg.Size = 4
	cfg.NumLayers = 2
	cfg.FromVocabSize = 7
	cfg.ToVocabSize = 7
	model := seq2seq.NewModel(cfg, rand.New(rand.NewSource(3)))

	tokens := []string{"<pad>", "<go>", "<eos>", "<unk>", "x", "y", "z"}
	v := params.Vocabulary{TokenToID: make(map[string]int), IDToToken: tokens}
	for id, tok := range tokens {
		v.TokenToID[tok] = id
	}
	return model, v
}

var decodeTurn = regexp.MustCompile(`^> ([^\n]*)\n> $`)

func TestDecodeLoopAnswersEachLine(t *testing.T) {
	model, vocab := decodeFixture(t)
	var out bytes.Buffer
	err := decodeLoop(model, vocab, wordEncoder(vocab), strings.NewReader("x y\n"), &out)
	if err != nil {
		t.Fatalf("decodeLoop: %v", err)
	}
	m := decodeTurn.FindStringSubmatch(out.String())
	if m == nil {
		t.Fatalf("output %q does not look like one prompt/answer turn", out.String())
	}
	for _, tok := range strings.Fields(m[1]) {
		if _, ok := vocab.TokenToID[tok]; !ok {
			t.Fatalf("generated token %q is not in the vocabulary", tok)
		}
	}
}

func TestDecodeLoopEndsOnEOF(t *testing.T) {
	model, vocab := decodeFixture(t)
	var out bytes.Buffer
	err := decodeLoop(model, vocab, wordEncoder(vocab), strings.NewReader(""), &out)
	if err != nil {
		t.Fatalf("decodeLoop: %v", err)
	}
	if out.String() != "> " {
		t.Fatalf("empty input must leave just the prompt, got %q", out.String())
	}
}

func TestDecodeLoopHandlesOversizedSentence(t *testing.T) {
	model, vocab := decodeFixture(t)
	long := strings.TrimSpace(strings.Repeat("x ", 20))
	var out bytes.Buffer
	err := decodeLoop(model, vocab, wordEncoder(vocab), strings.NewReader(long+"\n"), &out)
	if err != nil {
		t.Fatalf("decodeLoop: %v", err)
	}
	if decodeTurn.FindStringSubmatch(out.String()) == nil {
		t.Fatalf("oversized sentence must still produce an answer, got %q", out.String())
	}
}

func TestDecodeLoopIsStateless(t *testing.T) {
	model, vocab := decodeFixture(t)
	step := model.GlobalStep

	var out bytes.Buffer
	err := decodeLoop(model, vocab, wordEncoder(vocab), strings.NewReader("x\ny z\n"), &out)
	if err != nil {
		t.Fatalf("decodeLoop: %v", err)
	}
	if model.GlobalStep != step {
		t.Fatalf("decoding must not advance the global step")
	}
	if got := strings.Count(out.String(), "> "); got != 3 {
		t.Fatalf("two inputs want three prompts, got %d in %q", got, out.String())
	}
}
