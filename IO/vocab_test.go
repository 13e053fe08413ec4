package IO

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/manningwu07/shigen/params"
)

func testVocab() params.Vocabulary {
	tokens := append(append([]string(nil), StartVocab...), "moon", "river", "pine")
	v := params.Vocabulary{TokenToID: make(map[string]int), IDToToken: tokens}
	for id, tok := range tokens {
		v.TokenToID[tok] = id
	}
	return v
}

func TestVocabSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	want := testVocab()
	if err := SaveVocab(path, want); err != nil {
		t.Fatalf("SaveVocab: %v", err)
	}
	got, err := LoadVocab(path)
	if err != nil {
		t.Fatalf("LoadVocab: %v", err)
	}
	if len(got.IDToToken) != len(want.IDToToken) {
		t.Fatalf("loaded %d tokens, want %d", len(got.IDToToken), len(want.IDToToken))
	}
	for id, tok := range want.IDToToken {
		if got.IDToToken[id] != tok {
			t.Fatalf("id %d loaded as %q, want %q", id, got.IDToToken[id], tok)
		}
		if got.TokenToID[tok] != id {
			t.Fatalf("token %q loaded as id %d, want %d", tok, got.TokenToID[tok], id)
		}
	}
}

func TestLoadVocabRejectsMissingReservedTokens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	if err := os.WriteFile(path, []byte("moon\nriver\npine\nsnow\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadVocab(path); err == nil {
		t.Fatalf("vocabulary without reserved tokens must be rejected")
	}
}

func TestVocabLookupFallsBackToUnk(t *testing.T) {
	v := testVocab()
	if got := VocabLookup(v, "moon"); got != 4 {
		t.Fatalf("VocabLookup(moon) = %d, want 4", got)
	}
	if got := VocabLookup(v, "nosuchword"); got != UnkID {
		t.Fatalf("VocabLookup(nosuchword) = %d, want %d", got, UnkID)
	}
}

func TestSentenceToIDs(t *testing.T) {
	v := testVocab()
	got := SentenceToIDs(v, "  moon   nosuchword river ")
	want := []int{4, UnkID, 5}
	if len(got) != len(want) {
		t.Fatalf("SentenceToIDs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SentenceToIDs = %v, want %v", got, want)
		}
	}
}

func TestSentenceRendersIDs(t *testing.T) {
	v := testVocab()
	if got := Sentence(v, []int{4, 5}); got != "moon river" {
		t.Fatalf("Sentence = %q, want %q", got, "moon river")
	}
	if got := Sentence(v, []int{4, 999}); got != "moon <unk>" {
		t.Fatalf("out-of-range id must render as <unk>, got %q", got)
	}
	if got := Sentence(v, nil); got != "" {
		t.Fatalf("empty ids must render empty, got %q", got)
	}
}
