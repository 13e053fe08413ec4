package IO

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/models"
	"github.com/sugarme/tokenizer/normalizers"
	"github.com/sugarme/tokenizer/pretokenizers"
	"github.com/sugarme/tokenizer/trainers"

	"github.com/manningwu07/shigen/params"
)

// TrainOrLoadBPE loads the tokenizer at tokPath, or trains a BPE model
// over corpusPaths and saves it there. The reserved tokens claim the
// lowest IDs. Encodings carry no GO or EOS markers; the batcher and the
// data loader add those themselves.
func TrainOrLoadBPE(tokPath string, vocabSize int, corpusPaths []string) (*tk.Tokenizer, error) {
	if fileExists(tokPath) {
		return tk.FromFile(tokPath)
	}

	bpe := models.NewBPE()
	t := tk.NewTokenizer(bpe)
	t.WithNormalizer(normalizers.NewSequence(
		normalizers.NewNFKC(),
		normalizers.NewLowercase(),
	))
	t.WithPreTokenizer(pretokenizers.NewWhitespaceSplit())

	tr := trainers.NewBpeTrainer()
	tr.VocabSize = vocabSize
	tr.SpecialTokens = append([]string(nil), StartVocab...)

	if err := t.Train(tr, corpusPaths); err != nil {
		return nil, fmt.Errorf("train tokenizer: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(tokPath), 0o755); err != nil {
		return nil, err
	}
	if err := t.Save(tokPath); err != nil {
		return nil, fmt.Errorf("save tokenizer: %w", err)
	}
	return t, nil
}

// VocabFromTokenizer flattens the tokenizer's vocabulary into ID order and
// checks that the reserved tokens sit at the lowest IDs.
func VocabFromTokenizer(t *tk.Tokenizer) (params.Vocabulary, error) {
	raw := t.GetVocab(true)
	id2tok := make([]string, len(raw))
	tok2id := make(map[string]int, len(raw))
	for tok, id := range raw {
		if id < 0 || id >= len(id2tok) {
			return params.Vocabulary{}, fmt.Errorf("tokenizer vocabulary is not contiguous at id %d", id)
		}
		id2tok[id] = tok
		tok2id[tok] = id
	}
	for i, want := range StartVocab {
		if i >= len(id2tok) || id2tok[i] != want {
			return params.Vocabulary{}, fmt.Errorf("tokenizer must reserve id %d for %q", i, want)
		}
	}
	return params.Vocabulary{TokenToID: tok2id, IDToToken: id2tok}, nil
}

// EncodeLine tokenizes one line of raw text into token IDs.
func EncodeLine(t *tk.Tokenizer, line string) ([]int, error) {
	enc, err := t.EncodeSingle(line)
	if err != nil {
		return nil, err
	}
	ids := enc.Ids
	out := make([]int, len(ids))
	for i, v := range ids {
		out[i] = int(v)
	}
	return out, nil
}

// EncodeFile tokenizes inPath line by line into outPath, one line of
// space-separated token IDs per input line.
func EncodeFile(t *tk.Tokenizer, inPath, outPath string) error {
	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("open corpus: %w", err)
	}
	defer in.Close()
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create ids file: %w", err)
	}
	w := bufio.NewWriter(out)

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		if n%100000 == 0 {
			fmt.Printf("  tokenizing %s line %d\n", inPath, n)
		}
		ids, err := EncodeLine(t, sc.Text())
		if err != nil {
			out.Close()
			return fmt.Errorf("%s:%d: %w", inPath, n, err)
		}
		for i, id := range ids {
			if i > 0 {
				w.WriteByte(' ')
			}
			w.WriteString(strconv.Itoa(id))
		}
		w.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		out.Close()
		return fmt.Errorf("read %s: %w", inPath, err)
	}
	if err := w.Flush(); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	return out.Close()
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
