// Package IO loads vocabularies and bucketed token-ID corpora, and
// prepares raw text into both with a trained BPE tokenizer.
package IO

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/manningwu07/shigen/params"
)

// Reserved token IDs. They occupy the lowest slots of every vocabulary
// this system reads or writes.
const (
	PadID = 0
	GoID  = 1
	EosID = 2
	UnkID = 3
)

// StartVocab lists the reserved surface forms in ID order.
var StartVocab = []string{"<pad>", "<go>", "<eos>", "<unk>"}

// LoadVocab reads a vocabulary file: one token per line, line number = ID.
// The reserved tokens must fill the first four lines.
func LoadVocab(path string) (params.Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return params.Vocabulary{}, fmt.Errorf("open vocabulary: %w", err)
	}
	defer f.Close()

	v := params.Vocabulary{TokenToID: make(map[string]int)}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		tok := strings.TrimSuffix(sc.Text(), "\r")
		v.TokenToID[tok] = len(v.IDToToken)
		v.IDToToken = append(v.IDToToken, tok)
	}
	if err := sc.Err(); err != nil {
		return params.Vocabulary{}, fmt.Errorf("read vocabulary %s: %w", path, err)
	}
	for i, want := range StartVocab {
		if i >= len(v.IDToToken) || v.IDToToken[i] != want {
			return params.Vocabulary{}, fmt.Errorf("vocabulary %s must start with %v", path, StartVocab)
		}
	}
	return v, nil
}

// SaveVocab writes v in ID order, one token per line.
func SaveVocab(path string, v params.Vocabulary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create vocabulary: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, tok := range v.IDToToken {
		fmt.Fprintln(w, tok)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write vocabulary: %w", err)
	}
	return f.Close()
}

// VocabLookup resolves tok to its ID, falling back to the unknown token.
func VocabLookup(v params.Vocabulary, tok string) int {
	if id, ok := v.TokenToID[tok]; ok {
		return id
	}
	return UnkID
}

// SentenceToIDs maps whitespace-separated surface tokens to IDs.
func SentenceToIDs(v params.Vocabulary, line string) []int {
	fields := strings.Fields(line)
	ids := make([]int, len(fields))
	for i, tok := range fields {
		ids[i] = VocabLookup(v, tok)
	}
	return ids
}

// Sentence renders token IDs back to a space-joined line. IDs outside the
// vocabulary render as the unknown token.
func Sentence(v params.Vocabulary, ids []int) string {
	var sb strings.Builder
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if id >= 0 && id < len(v.IDToToken) {
			sb.WriteString(v.IDToToken[id])
		} else {
			sb.WriteString(StartVocab[UnkID])
		}
	}
	return sb.String()
}
