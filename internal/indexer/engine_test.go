package indexer

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/errors"
)

var corpus = []string{
	"Rust and Go are systems programming languages",
	"Python is popular for data science and machine learning",
	"Go has goroutines and channels for concurrency",
	"JavaScript runs in the browser",
	"Go Go Go: concurrency in Go with goroutines",
	"Machine learning models in Python and Go",
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(corpus, opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return e
}

func TestNewValidatesParameters(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"negative k1", []Option{WithK1(-1)}},
		{"b above one", []Option{WithB(1.5)}},
		{"negative b", []Option{WithB(-0.1)}},
		{"unknown formula", []Option{WithFormula("tfidf")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(corpus, tt.opts...)
			if !errors.Is(err, apperrors.ErrInvalidParameter) {
				t.Errorf("New() error = %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestNewDefaults(t *testing.T) {
	e := newEngine(t)
	stats := e.Stats()
	if stats.K1 != 1.5 || stats.B != 0.75 {
		t.Errorf("defaults k1=%v b=%v, want 1.5 and 0.75", stats.K1, stats.B)
	}
	if stats.Formula != "okapi" || stats.Analyzer != "simple" {
		t.Errorf("formula=%q analyzer=%q", stats.Formula, stats.Analyzer)
	}
	if stats.Documents != len(corpus) {
		t.Errorf("documents = %d, want %d", stats.Documents, len(corpus))
	}
}

func TestAvgDocLengthConcreteCase(t *testing.T) {
	e, err := New([]string{"the quick brown fox", "the lazy dog", "quick brown"})
	if err != nil {
		t.Fatal(err)
	}
	if e.AvgDocLength() != 3.0 {
		t.Errorf("AvgDocLength() = %v, want 3.0", e.AvgDocLength())
	}
}

func TestScoreOutOfRange(t *testing.T) {
	e := newEngine(t)
	for _, docID := range []int{-1, len(corpus), 1000} {
		if _, err := e.Score("go", docID); !errors.Is(err, apperrors.ErrOutOfRange) {
			t.Errorf("Score(go, %d) error = %v, want ErrOutOfRange", docID, err)
		}
		if _, err := e.Explain("go", docID); !errors.Is(err, apperrors.ErrOutOfRange) {
			t.Errorf("Explain(go, %d) error = %v, want ErrOutOfRange", docID, err)
		}
	}
}

func TestScoreUnknownTermIsZero(t *testing.T) {
	e, err := New([]string{"python java", "go haskell", "c cpp"})
	if err != nil {
		t.Fatal(err)
	}
	for docID := 0; docID < e.DocCount(); docID++ {
		score, err := e.Score("rust", docID)
		if err != nil {
			t.Fatal(err)
		}
		if score != 0.0 {
			t.Errorf("Score(rust, %d) = %v, want 0", docID, score)
		}
	}
}

func TestScoreIsCaseInsensitive(t *testing.T) {
	e := newEngine(t)
	lower, _ := e.Score("goroutines", 2)
	upper, _ := e.Score("GOROUTINES!", 2)
	if lower != upper || lower <= 0 {
		t.Errorf("lower=%v upper=%v", lower, upper)
	}
}

func TestScoreAdditivity(t *testing.T) {
	e := newEngine(t)
	for docID := 0; docID < e.DocCount(); docID++ {
		both, _ := e.Score("python goroutines", docID)
		a, _ := e.Score("python", docID)
		b, _ := e.Score("goroutines", docID)
		if both != a+b {
			t.Errorf("doc %d: %v != %v + %v", docID, both, a, b)
		}
	}
}

func TestSearch(t *testing.T) {
	e := newEngine(t)
	results, err := e.Search("goroutines concurrency", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	top := map[int]bool{results[0].DocID: true, results[1].DocID: true}
	if !top[2] || !top[4] {
		t.Errorf("expected docs 2 and 4 on top, got %+v", results)
	}
	for _, r := range results {
		score, _ := e.Score("goroutines concurrency", r.DocID)
		if score != r.Score {
			t.Errorf("doc %d: search score %v != Score %v", r.DocID, r.Score, score)
		}
	}
}

func TestSearchLimits(t *testing.T) {
	e := newEngine(t)
	if _, err := e.Search("go", -1); !errors.Is(err, apperrors.ErrInvalidParameter) {
		t.Errorf("Search(-1) error = %v, want ErrInvalidParameter", err)
	}
	results, err := e.Search("go", 0)
	if err != nil || len(results) != 0 {
		t.Errorf("Search(0) = %v, %v; want empty", results, err)
	}
	results, err = e.Search("go", 100)
	if err != nil || len(results) != len(corpus) {
		t.Errorf("Search(100) returned %d results, want %d", len(results), len(corpus))
	}
}

func TestEmptyCorpus(t *testing.T) {
	e, err := New(nil)
	if err != nil {
		t.Fatalf("empty corpus should not fail: %v", err)
	}
	results, err := e.Search("anything", 10)
	if err != nil || len(results) != 0 {
		t.Errorf("Search on empty corpus = %v, %v", results, err)
	}
	if e.AvgDocLength() != 0 {
		t.Errorf("avgdl = %v, want 0", e.AvgDocLength())
	}
	if _, err := e.Score("anything", 0); !errors.Is(err, apperrors.ErrOutOfRange) {
		t.Errorf("Score on empty corpus error = %v, want ErrOutOfRange", err)
	}
	if e.TermInfo("anything") != nil {
		t.Error("TermInfo on empty corpus should be nil")
	}
}

func TestTermInfo(t *testing.T) {
	e := newEngine(t)
	info := e.TermInfo("Python")
	if info == nil {
		t.Fatal("TermInfo(Python) = nil")
	}
	if info.Term != "python" || info.DocumentFrequency != 2 {
		t.Errorf("info = %+v", info)
	}
	if len(info.Postings) != 2 || info.Postings[0].DocID != 1 || info.Postings[1].DocID != 5 {
		t.Errorf("postings = %+v", info.Postings)
	}
	if info.RarityWeight <= 0 {
		t.Errorf("rarity = %v, want > 0", info.RarityWeight)
	}
	if e.TermInfo("cobol") != nil {
		t.Error("TermInfo(cobol) should be nil")
	}
}

func TestTermInfoCommonTermClamped(t *testing.T) {
	e, err := New([]string{"go fast", "go slow", "go home"})
	if err != nil {
		t.Fatal(err)
	}
	info := e.TermInfo("go")
	if info == nil || info.RarityWeight != 0 {
		t.Errorf("TermInfo(go) = %+v, want rarity clamped to 0", info)
	}
}

func TestExplain(t *testing.T) {
	e := newEngine(t)
	exp, err := e.Explain("go go concurrency missing", 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(exp.Terms) != 3 {
		t.Fatalf("len(Terms) = %d, want 3", len(exp.Terms))
	}
	score, _ := e.Score("go go concurrency missing", 4)
	if math.Abs(score-exp.TotalScore) > 1e-9 {
		t.Errorf("TotalScore = %v, Score = %v", exp.TotalScore, score)
	}
	if exp.DocLength != 8 {
		t.Errorf("DocLength = %d, want 8", exp.DocLength)
	}
	if exp.K1 != 1.5 || exp.B != 0.75 || exp.Formula != "okapi" {
		t.Errorf("parameters not reported: %+v", exp)
	}
}

func TestExplainExcerpt(t *testing.T) {
	long := strings.Repeat("word ", 50)
	e, err := New([]string{long})
	if err != nil {
		t.Fatal(err)
	}
	exp, err := e.Explain("word", 0)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(exp.Document, "...") || len([]rune(exp.Document)) != excerptLen+3 {
		t.Errorf("excerpt = %q", exp.Document)
	}
}

func TestPlusFormula(t *testing.T) {
	okapi := newEngine(t)
	plus := newEngine(t, WithFormula("plus"), WithDelta(0.5))
	o, _ := okapi.Score("python", 1)
	p, _ := plus.Score("python", 1)
	if p <= o {
		t.Errorf("plus score %v should exceed okapi %v", p, o)
	}
	zero, _ := plus.Score("python", 0)
	if zero != 0 {
		t.Errorf("plus score for non-matching doc = %v, want 0", zero)
	}
}

func TestEnglishAnalyzer(t *testing.T) {
	e := newEngine(t, WithAnalyzer(tokenizer.English))
	score, err := e.Score("learn", 1)
	if err != nil {
		t.Fatal(err)
	}
	if score <= 0 {
		t.Errorf("stemmed query should match 'learning', got %v", score)
	}
	if info := e.TermInfo("learning"); info == nil || info.Term != "learn" {
		t.Errorf("TermInfo(learning) = %+v", info)
	}
}

func TestFingerprint(t *testing.T) {
	a := newEngine(t)
	b := newEngine(t)
	c := newEngine(t, WithK1(1.2))
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("identical engines should share a fingerprint")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different parameters should change the fingerprint")
	}
}

func TestEngineDoesNotAliasCorpus(t *testing.T) {
	docs := []string{"alpha", "beta"}
	e, err := New(docs)
	if err != nil {
		t.Fatal(err)
	}
	docs[0] = "mutated"
	doc, _ := e.Document(0)
	if doc != "alpha" {
		t.Errorf("Document(0) = %q, want alpha", doc)
	}
}

func TestConcurrentReaders(t *testing.T) {
	e := newEngine(t)
	want, _ := e.Search("go python machine", 5)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got, err := e.Search("go python machine", 5)
				if err != nil {
					t.Error(err)
					return
				}
				for k := range got {
					if got[k] != want[k] {
						t.Errorf("concurrent search diverged at %d", k)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}

func TestMatchCount(t *testing.T) {
	e := newEngine(t)
	query := "goroutines python go"
	want := 0
	for docID := 0; docID < e.DocCount(); docID++ {
		if score, _ := e.Score(query, docID); score > 0 {
			want++
		}
	}
	if got := e.MatchCount(query); got != want {
		t.Errorf("MatchCount() = %d, want %d", got, want)
	}
	if got := e.MatchCount("cobol"); got != 0 {
		t.Errorf("MatchCount(cobol) = %d", got)
	}
}
