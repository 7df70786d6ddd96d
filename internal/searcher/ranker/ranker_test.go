package ranker

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/errors"
)

const tolerance = 1e-9

var sampleCorpus = []string{
	"the quick brown fox jumps over the lazy dog",
	"the lazy dog sleeps",
	"quick grey rabbits",
	"a fox and a rabbit",
	"dogs and foxes are not the same animal",
	"brown brown brown bread",
}

func newOkapi(t testing.TB, corpus []string, params Params) (*index.Index, *Okapi) {
	t.Helper()
	idx := index.Build(corpus, tokenizer.Default)
	return idx, NewOkapi(idx, NewRarity(idx), params)
}

func TestRarityWeightSingletonDocs(t *testing.T) {
	idx := index.Build([]string{"a", "b", "c", "d", "e"}, tokenizer.Default)
	r := NewRarity(idx)
	got := r.Weight("a")
	want := math.Log(3)
	if math.Abs(got-want) > 1e-3 {
		t.Errorf("Weight(a) = %v, want %v", got, want)
	}
	if r.Len() != idx.TermCount() {
		t.Errorf("rarity cache has %d entries, want %d", r.Len(), idx.TermCount())
	}
}

func TestRarityWeightClampedAndUnknown(t *testing.T) {
	idx := index.Build([]string{"common x", "common y", "common z"}, tokenizer.Default)
	r := NewRarity(idx)
	if got := r.Weight("common"); got != 0 {
		t.Errorf("Weight(common) = %v, want clamped 0", got)
	}
	if got := r.Weight("missing"); got != 0 {
		t.Errorf("Weight(missing) = %v, want 0", got)
	}
	for i := 0; i < 3; i++ {
		if r.Weight("x") != r.Weight("x") {
			t.Fatal("rarity weight changed between lookups")
		}
	}
}

func TestRarityWeightFormula(t *testing.T) {
	tests := []struct {
		n, df int
		want  float64
	}{
		{10, 1, math.Log(9.5 / 1.5)},
		{10, 5, 0},
		{10, 9, 0},
		{10, 0, 0},
		{0, 0, 0},
		{100, 10, math.Log(90.5 / 10.5)},
	}
	for _, tt := range tests {
		got := RarityWeight(tt.n, tt.df)
		if math.Abs(got-tt.want) > tolerance {
			t.Errorf("RarityWeight(%d, %d) = %v, want %v", tt.n, tt.df, got, tt.want)
		}
		if got < 0 {
			t.Errorf("RarityWeight(%d, %d) is negative", tt.n, tt.df)
		}
	}
}

func TestFrequencyWeightSaturation(t *testing.T) {
	k1 := 1.5
	var prev, prevDelta float64
	for f := 1; f <= 4; f++ {
		w := FrequencyWeight(f, 7, 10, k1, 0)
		if w > k1+1 {
			t.Errorf("f=%d: weight %v exceeds asymptote %v", f, w, k1+1)
		}
		if f > 1 {
			delta := w - prev
			if delta <= 0 {
				t.Errorf("f=%d: weight did not increase", f)
			}
			if f > 2 && delta >= prevDelta {
				t.Errorf("f=%d: increment %v not smaller than previous %v", f, delta, prevDelta)
			}
			prevDelta = delta
		}
		prev = w
	}
}

func TestFrequencyWeightLengthPenalty(t *testing.T) {
	avgdl := 10.0
	short := FrequencyWeight(2, 5, avgdl, 1.5, 0.75)
	atAvg := FrequencyWeight(2, 10, avgdl, 1.5, 0.75)
	long := FrequencyWeight(2, 20, avgdl, 1.5, 0.75)
	if !(short > long) || !(atAvg > long) {
		t.Errorf("expected shorter docs to weigh more: short=%v avg=%v long=%v", short, atAvg, long)
	}
}

func TestFrequencyWeightLengthIndependentWhenBZero(t *testing.T) {
	a := FrequencyWeight(3, 2, 10, 1.5, 0)
	b := FrequencyWeight(3, 200, 10, 1.5, 0)
	if a != b {
		t.Errorf("b=0 should ignore length: %v != %v", a, b)
	}
}

func TestFrequencyWeightZeroCases(t *testing.T) {
	if got := FrequencyWeight(0, 10, 5, 1.5, 0.75); got != 0 {
		t.Errorf("f=0 weight = %v, want 0", got)
	}
	if got := FrequencyWeight(3, 0, 0, 1.5, 0.75); got != 0 {
		t.Errorf("avgdl=0 weight = %v, want 0", got)
	}
}

func TestOkapiAbsentTermWeighsZero(t *testing.T) {
	idx, okapi := newOkapi(t, sampleCorpus, DefaultParams())
	for docID := 0; docID < idx.DocCount(); docID++ {
		w := okapi.Weigh("rust", docID)
		if w.Rarity != 0 || w.FrequencyWeight != 0 || w.Product() != 0 {
			t.Errorf("doc %d: absent term weight = %+v", docID, w)
		}
	}
}

func TestScoreNonNegativeAndZeroOnNoOverlap(t *testing.T) {
	idx, okapi := newOkapi(t, sampleCorpus, DefaultParams())
	scorer := NewScorer(okapi)
	for docID := 0; docID < idx.DocCount(); docID++ {
		if got := scorer.Score([]string{"rust"}, docID); got != 0 {
			t.Errorf("Score(rust, %d) = %v, want 0", docID, got)
		}
		if got := scorer.Score(tokenizer.Terms("the quick lazy fox"), docID); got < 0 {
			t.Errorf("Score(..., %d) = %v, want >= 0", docID, got)
		}
	}
}

func TestScoreAdditivity(t *testing.T) {
	idx, okapi := newOkapi(t, sampleCorpus, DefaultParams())
	scorer := NewScorer(okapi)
	pairs := [][2]string{{"quick", "fox"}, {"lazy", "brown"}, {"rabbit", "missing"}, {"brown", "brown"}}
	for _, pair := range pairs {
		for docID := 0; docID < idx.DocCount(); docID++ {
			both := scorer.Score([]string{pair[0], pair[1]}, docID)
			sum := scorer.Score([]string{pair[0]}, docID) + scorer.Score([]string{pair[1]}, docID)
			if both != sum {
				t.Errorf("doc %d %v: score(t1 t2)=%v, score(t1)+score(t2)=%v", docID, pair, both, sum)
			}
		}
	}
}

func TestScoreRepeatedQueryTermsCountTwice(t *testing.T) {
	_, okapi := newOkapi(t, sampleCorpus, DefaultParams())
	scorer := NewScorer(okapi)
	once := scorer.Score([]string{"rabbits"}, 2)
	twice := scorer.Score([]string{"rabbits", "rabbits"}, 2)
	if once <= 0 {
		t.Fatalf("expected positive score, got %v", once)
	}
	if math.Abs(twice-2*once) > tolerance {
		t.Errorf("repeated term score = %v, want %v", twice, 2*once)
	}
}

func TestRankOrderingAndTies(t *testing.T) {
	idx, okapi := newOkapi(t, sampleCorpus, DefaultParams())
	scorer := NewScorer(okapi)
	results := Rank(scorer, tokenizer.Terms("brown fox"), idx.DocCount(), 10)
	if len(results) != idx.DocCount() {
		t.Fatalf("len(results) = %d, want %d", len(results), idx.DocCount())
	}
	for i := 1; i < len(results); i++ {
		prev, cur := results[i-1], results[i]
		if prev.Score < cur.Score {
			t.Errorf("results not sorted by score at %d: %v < %v", i, prev.Score, cur.Score)
		}
		if prev.Score == cur.Score && prev.DocID > cur.DocID {
			t.Errorf("tie at %d not broken by ascending doc id: %d > %d", i, prev.DocID, cur.DocID)
		}
	}
	if results[0].DocID != 5 {
		t.Errorf("top result = %d, want doc 5 (brown x3)", results[0].DocID)
	}
}

func TestRankZeroScoresKeepDocIDOrder(t *testing.T) {
	idx, okapi := newOkapi(t, sampleCorpus, DefaultParams())
	results := Rank(NewScorer(okapi), []string{"nothing"}, idx.DocCount(), 3)
	for i, r := range results {
		if r.DocID != i || r.Score != 0 {
			t.Errorf("results[%d] = %+v, want doc %d with score 0", i, r, i)
		}
	}
}

func TestRankLimits(t *testing.T) {
	idx, okapi := newOkapi(t, sampleCorpus, DefaultParams())
	scorer := NewScorer(okapi)
	terms := tokenizer.Terms("lazy dog")
	tests := []struct {
		limit int
		want  int
	}{
		{-1, 0},
		{0, 0},
		{1, 1},
		{3, 3},
		{idx.DocCount(), idx.DocCount()},
		{100, idx.DocCount()},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("limit_%d", tt.limit), func(t *testing.T) {
			got := Rank(scorer, terms, idx.DocCount(), tt.limit)
			if got == nil {
				t.Fatal("Rank returned nil slice")
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestRankHeapMatchesFullSort(t *testing.T) {
	corpus := make([]string, 40)
	for i := range corpus {
		text := "alpha beta "
		if i%6 == 0 {
			text += repeat("gamma", i%4+1)
		}
		if i%9 == 0 {
			text += "omega"
		}
		corpus[i] = text
	}
	idx, okapi := newOkapi(t, corpus, DefaultParams())
	scorer := NewScorer(okapi)
	terms := []string{"gamma", "omega", "alpha"}
	full := Rank(scorer, terms, idx.DocCount(), idx.DocCount())
	for k := 1; k < idx.DocCount(); k++ {
		partial := Rank(scorer, terms, idx.DocCount(), k)
		for i := range partial {
			if partial[i] != full[i] {
				t.Fatalf("k=%d: partial[%d] = %+v, full[%d] = %+v", k, i, partial[i], i, full[i])
			}
		}
	}
}

func TestRankEmptyCorpus(t *testing.T) {
	idx, okapi := newOkapi(t, nil, DefaultParams())
	got := Rank(NewScorer(okapi), []string{"anything"}, idx.DocCount(), 5)
	if len(got) != 0 {
		t.Errorf("empty corpus returned %d results", len(got))
	}
}

func TestExplainDeduplicatesAndMatchesScore(t *testing.T) {
	_, okapi := newOkapi(t, sampleCorpus, DefaultParams())
	scorer := NewScorer(okapi)
	terms := tokenizer.Terms("brown bread brown unknown")
	breakdown := Explain(okapi, terms, 5)

	if len(breakdown.Terms) != 3 {
		t.Fatalf("len(Terms) = %d, want 3 distinct rows", len(breakdown.Terms))
	}
	var sum float64
	for i, row := range breakdown.Terms {
		sum += row.Contribution
		if i > 0 && breakdown.Terms[i-1].Contribution < row.Contribution {
			t.Errorf("rows not sorted by contribution at %d", i)
		}
		if math.Abs(row.Product-row.Rarity*row.FrequencyWeight) > tolerance {
			t.Errorf("row %q product mismatch", row.Term)
		}
		if row.Term == "brown" && (row.Occurrences != 2 || row.Frequency != 3) {
			t.Errorf("brown row = %+v, want occurrences 2, tf 3", row)
		}
	}
	if math.Abs(sum-breakdown.Total) > tolerance {
		t.Errorf("Total = %v, sum of rows = %v", breakdown.Total, sum)
	}
	if score := scorer.Score(terms, 5); math.Abs(score-breakdown.Total) > tolerance {
		t.Errorf("Total = %v, Score = %v", breakdown.Total, score)
	}
	last := breakdown.Terms[len(breakdown.Terms)-1]
	if last.Term != "unknown" || last.Contribution != 0 {
		t.Errorf("last row = %+v, want unknown with 0", last)
	}
}

func TestPlusAddsDeltaOnlyForMatches(t *testing.T) {
	idx := index.Build(sampleCorpus, tokenizer.Default)
	rarity := NewRarity(idx)
	okapi := NewOkapi(idx, rarity, DefaultParams())
	plus := NewPlus(idx, rarity, DefaultParams(), 1.0)

	o := okapi.Weigh("rabbits", 2)
	p := plus.Weigh("rabbits", 2)
	if math.Abs(p.FrequencyWeight-(o.FrequencyWeight+1.0)) > tolerance {
		t.Errorf("plus weight = %v, want okapi %v + 1", p.FrequencyWeight, o.FrequencyWeight)
	}
	if got := plus.Weigh("rabbits", 0); got.FrequencyWeight != 0 {
		t.Errorf("non-matching doc got delta: %+v", got)
	}
}

func TestNewFormula(t *testing.T) {
	idx := index.Build(sampleCorpus, tokenizer.Default)
	rarity := NewRarity(idx)
	for _, name := range []string{"", "okapi", "PLUS"} {
		if _, err := NewFormula(name, idx, rarity, DefaultParams(), DefaultDelta); err != nil {
			t.Errorf("NewFormula(%q) error: %v", name, err)
		}
	}
	_, err := NewFormula("tfidf", idx, rarity, DefaultParams(), DefaultDelta)
	if !errors.Is(err, apperrors.ErrInvalidParameter) {
		t.Errorf("NewFormula(tfidf) error = %v, want ErrInvalidParameter", err)
	}
	_, err = NewFormula("plus", idx, rarity, DefaultParams(), -1)
	if !errors.Is(err, apperrors.ErrInvalidParameter) {
		t.Errorf("negative delta error = %v, want ErrInvalidParameter", err)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"defaults", DefaultParams(), false},
		{"zero k1", Params{K1: 0, B: 0.5}, false},
		{"b bounds", Params{K1: 1.2, B: 1}, false},
		{"negative k1", Params{K1: -0.1, B: 0.75}, true},
		{"b above one", Params{K1: 1.5, B: 1.01}, true},
		{"negative b", Params{K1: 1.5, B: -0.01}, true},
		{"nan b", Params{K1: 1.5, B: math.NaN()}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, apperrors.ErrInvalidParameter) {
				t.Errorf("error %v is not ErrInvalidParameter", err)
			}
		})
	}
}

func repeat(word string, n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += word + " "
	}
	return s
}

func BenchmarkRank(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	terms := []string{"distributed", "search", "analytics", "platform", "indexing", "query", "engine", "ranking"}
	for _, numDocs := range sizes {
		b.Run(fmt.Sprintf("docs_%d", numDocs), func(b *testing.B) {
			corpus := make([]string, numDocs)
			for i := range corpus {
				corpus[i] = fmt.Sprintf("document about %s and %s covering %s",
					terms[i%len(terms)], terms[(i+1)%len(terms)], terms[(i+3)%len(terms)])
			}
			_, okapi := newOkapi(b, corpus, DefaultParams())
			scorer := NewScorer(okapi)
			query := []string{"search", "ranking"}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = Rank(scorer, query, numDocs, 10)
			}
		})
	}
}
