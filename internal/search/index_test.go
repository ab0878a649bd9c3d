package search

import (
	"fmt"
	"testing"
)

func catalog() []Doc {
	return []Doc{
		{ID: "beach-1", Text: "Beach day. Avery building a sand castle with Grandpa."},
		{ID: "beach-2", Text: "Beach day. Ice cream on the boardwalk."},
		{ID: "college", Text: "College graduation, friends throwing caps."},
		{ID: "empty", Text: "the of and"},
	}
}

func TestOptionsAndDefaults(t *testing.T) {
	def := defaultConfig()
	if _, ok := def.stopwords["the"]; !ok {
		t.Fatalf("default stopwords should include 'the'")
	}
	if def.maxDocs != 0 || def.minScore != 0 {
		t.Fatalf("defaultConfig unexpected: %#v", def)
	}

	cfg := def
	WithStopwords([]string{"  Beach ", ""})(&cfg)
	if _, ok := cfg.stopwords["beach"]; !ok || len(cfg.stopwords) != 1 {
		t.Fatalf("WithStopwords failed: %#v", cfg.stopwords)
	}
	WithStopwords(nil)(&cfg)
	if cfg.stopwords != nil {
		t.Fatalf("empty stopwords should disable removal")
	}

	WithMaxDocs(2)(&cfg)
	WithMaxDocs(0)(&cfg) // no-op
	if cfg.maxDocs != 2 {
		t.Fatalf("WithMaxDocs failed: %d", cfg.maxDocs)
	}
	WithMinScore(0.2)(&cfg)
	WithMinScore(-1)(&cfg) // no-op
	if cfg.minScore != 0.2 {
		t.Fatalf("WithMinScore failed: %v", cfg.minScore)
	}
}

func TestNew_SkipsTokenlessDocsAndCaps(t *testing.T) {
	if n := New(catalog()).Len(); n != 3 {
		t.Fatalf("Len=%d; want 3 (stop-word-only doc skipped)", n)
	}
	if n := New(catalog(), WithMaxDocs(2)).Len(); n != 2 {
		t.Fatalf("Len=%d; want 2 with cap", n)
	}
	if n := New(nil).Len(); n != 0 {
		t.Fatalf("Len=%d; want 0", n)
	}
}

func TestTopK_RanksAndBreaksTies(t *testing.T) {
	idx := New(catalog())

	res := idx.TopK("beach", 0)
	if len(res) != 2 {
		t.Fatalf("len=%d; want 2: %+v", len(res), res)
	}
	// beach-2 has fewer tokens, so a higher Jaccard score
	if res[0].ID != "beach-2" || res[1].ID != "beach-1" {
		t.Fatalf("unexpected order: %+v", res)
	}
	if !(res[0].Score > res[1].Score) {
		t.Fatalf("scores not descending: %+v", res)
	}

	res = idx.TopK("Avery at the beach", 1)
	if len(res) != 1 || res[0].ID != "beach-1" {
		t.Fatalf("expected beach-1 first for named person: %+v", res)
	}
}

func TestTopK_EqualScoresOrderByID(t *testing.T) {
	idx := New([]Doc{{ID: "b", Text: "lake trip"}, {ID: "a", Text: "lake walk"}})
	res := idx.TopK("lake", 5)
	if len(res) != 2 || res[0].ID != "a" || res[1].ID != "b" {
		t.Fatalf("expected id tie-break, got %+v", res)
	}
}

func TestTopK_EmptyCases(t *testing.T) {
	idx := New(catalog())
	for _, q := range []string{"", "   ", "the of", "zebra"} {
		if res := idx.TopK(q, 3); res != nil {
			t.Fatalf("query %q: expected nil, got %+v", q, res)
		}
	}
	if res := New(nil).TopK("beach", 3); res != nil {
		t.Fatalf("empty index should return nil")
	}
}

func TestTopK_MinScore(t *testing.T) {
	idx := New(catalog(), WithMinScore(0.5))
	if res := idx.TopK("beach", 5); res != nil {
		t.Fatalf("expected all results under floor, got %+v", res)
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("Trip 2019: Zoë & Max42!", nil)
	for _, w := range []string{"trip", "2019", "zoë", "max42"} {
		if _, ok := got[w]; !ok {
			t.Fatalf("missing token %q in %v", w, got)
		}
	}
	if len(got) != 4 {
		t.Fatalf("unexpected tokens: %v", fmt.Sprint(got))
	}
}
