package indexer

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/errors"
	"github.com/zeebo/blake3"
)

const excerptLen = 100

// Engine ranks a fixed corpus. Every structure is built in New and only
// read afterwards, so an Engine is safe for concurrent use.
type Engine struct {
	documents   []string
	idx         *index.Index
	rarity      *ranker.Rarity
	formula     ranker.Formula
	scorer      *ranker.Scorer
	analyzer    tokenizer.Analyzer
	params      ranker.Params
	formulaName string
	delta       float64
	fingerprint string
	logger      *slog.Logger
}

type options struct {
	params   ranker.Params
	formula  string
	delta    float64
	analyzer tokenizer.Analyzer
}

type Option func(*options)

func WithK1(k1 float64) Option {
	return func(o *options) { o.params.K1 = k1 }
}

func WithB(b float64) Option {
	return func(o *options) { o.params.B = b }
}

// WithFormula selects "okapi" (default) or "plus".
func WithFormula(name string) Option {
	return func(o *options) { o.formula = name }
}

// WithDelta sets the BM25+ lower bound added to matching terms.
func WithDelta(delta float64) Option {
	return func(o *options) { o.delta = delta }
}

func WithAnalyzer(a tokenizer.Analyzer) Option {
	return func(o *options) { o.analyzer = a }
}

// TermInfo describes a single indexed term.
type TermInfo struct {
	Term              string            `json:"term"`
	DocumentFrequency int               `json:"document_frequency"`
	RarityWeight      float64           `json:"idf"`
	Postings          index.PostingList `json:"postings"`
}

// Explanation is a per-term breakdown of one document's score.
type Explanation struct {
	DocID        int                    `json:"doc_id"`
	Document     string                 `json:"document"`
	DocLength    int                    `json:"doc_length"`
	Query        string                 `json:"query"`
	AvgDocLength float64                `json:"avgdl"`
	K1           float64                `json:"k1"`
	B            float64                `json:"b"`
	Formula      string                 `json:"formula"`
	Terms        []ranker.TermBreakdown `json:"terms"`
	TotalScore   float64                `json:"total_score"`
}

type Stats struct {
	Documents    int     `json:"documents"`
	Terms        int     `json:"terms"`
	TotalTokens  int64   `json:"total_tokens"`
	AvgDocLength float64 `json:"avgdl"`
	K1           float64 `json:"k1"`
	B            float64 `json:"b"`
	Formula      string  `json:"formula"`
	Analyzer     string  `json:"analyzer"`
	Fingerprint  string  `json:"fingerprint"`
}

// New indexes documents and precomputes every term's rarity weight. It
// fails with ErrInvalidParameter when k1 < 0 or b is outside [0, 1]. An
// empty corpus is valid: every score is 0 and every search is empty.
func New(documents []string, opts ...Option) (*Engine, error) {
	o := options{
		params:   ranker.DefaultParams(),
		formula:  ranker.FormulaOkapi,
		delta:    ranker.DefaultDelta,
		analyzer: tokenizer.Default,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.params.Validate(); err != nil {
		return nil, err
	}
	o.formula = strings.ToLower(o.formula)
	if o.formula == "" {
		o.formula = ranker.FormulaOkapi
	}

	start := time.Now()
	docs := make([]string, len(documents))
	copy(docs, documents)

	idx := index.Build(docs, o.analyzer)
	rarity := ranker.NewRarity(idx)
	formula, err := ranker.NewFormula(o.formula, idx, rarity, o.params, o.delta)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		documents:   docs,
		idx:         idx,
		rarity:      rarity,
		formula:     formula,
		scorer:      ranker.NewScorer(formula),
		analyzer:    o.analyzer,
		params:      o.params,
		formulaName: o.formula,
		delta:       o.delta,
		logger:      slog.Default().With("component", "ranking-engine"),
	}
	e.fingerprint = e.computeFingerprint()
	e.logger.Info("corpus indexed",
		"documents", idx.DocCount(),
		"terms", idx.TermCount(),
		"total_tokens", idx.TotalTokens(),
		"avgdl", idx.AvgDocLength(),
		"k1", o.params.K1,
		"b", o.params.B,
		"formula", o.formula,
		"analyzer", o.analyzer.Name,
		"duration", time.Since(start),
	)
	return e, nil
}

// Score returns the BM25 score of query against docID.
func (e *Engine) Score(query string, docID int) (float64, error) {
	if err := e.checkDocID(docID); err != nil {
		return 0, err
	}
	return e.scorer.Score(e.analyzer.Terms(query), docID), nil
}

// Search returns the topK best documents for query. topK == 0 yields an
// empty result; a negative topK is an error.
func (e *Engine) Search(query string, topK int) ([]ranker.ScoredDoc, error) {
	if topK < 0 {
		return nil, fmt.Errorf("%w: top_k must be >= 0, got %d", apperrors.ErrInvalidParameter, topK)
	}
	terms := e.analyzer.Terms(query)
	results := ranker.Rank(e.scorer, terms, e.idx.DocCount(), topK)
	e.logger.Debug("search ranked",
		"query", query,
		"terms", len(terms),
		"top_k", topK,
		"returned", len(results),
	)
	return results, nil
}

// MatchCount is the number of documents whose score for query is positive:
// those containing at least one query term with a positive rarity weight.
func (e *Engine) MatchCount(query string) int {
	seen := make(map[int]struct{})
	for _, term := range e.analyzer.Terms(query) {
		if e.rarity.Weight(term) <= 0 {
			continue
		}
		for _, p := range e.idx.Postings(term) {
			seen[p.DocID] = struct{}{}
		}
	}
	return len(seen)
}

// TermInfo reports postings and rarity for term, or nil when the term was
// never indexed.
func (e *Engine) TermInfo(term string) *TermInfo {
	normalized := e.analyzer.Normalize(term)
	if normalized == "" || !e.idx.Contains(normalized) {
		return nil
	}
	return &TermInfo{
		Term:              normalized,
		DocumentFrequency: e.idx.DocFrequency(normalized),
		RarityWeight:      e.rarity.Weight(normalized),
		Postings:          e.idx.Postings(normalized),
	}
}

// Explain breaks the score of query against docID down by distinct term.
func (e *Engine) Explain(query string, docID int) (*Explanation, error) {
	if err := e.checkDocID(docID); err != nil {
		return nil, err
	}
	breakdown := ranker.Explain(e.formula, e.analyzer.Terms(query), docID)
	return &Explanation{
		DocID:        docID,
		Document:     excerpt(e.documents[docID]),
		DocLength:    e.idx.DocLength(docID),
		Query:        query,
		AvgDocLength: e.idx.AvgDocLength(),
		K1:           e.params.K1,
		B:            e.params.B,
		Formula:      e.formulaName,
		Terms:        breakdown.Terms,
		TotalScore:   breakdown.Total,
	}, nil
}

// Document returns the raw text of docID.
func (e *Engine) Document(docID int) (string, error) {
	if err := e.checkDocID(docID); err != nil {
		return "", err
	}
	return e.documents[docID], nil
}

// DocFrequency is the number of documents containing the normalized term.
func (e *Engine) DocFrequency(term string) int {
	return e.idx.DocFrequency(term)
}

// Terms normalizes query text exactly as Score and Search do.
func (e *Engine) Terms(query string) []string {
	return e.analyzer.Terms(query)
}

func (e *Engine) DocCount() int {
	return e.idx.DocCount()
}

func (e *Engine) AvgDocLength() float64 {
	return e.idx.AvgDocLength()
}

func (e *Engine) Stats() Stats {
	return Stats{
		Documents:    e.idx.DocCount(),
		Terms:        e.idx.TermCount(),
		TotalTokens:  e.idx.TotalTokens(),
		AvgDocLength: e.idx.AvgDocLength(),
		K1:           e.params.K1,
		B:            e.params.B,
		Formula:      e.formulaName,
		Analyzer:     e.analyzer.Name,
		Fingerprint:  e.fingerprint,
	}
}

// Fingerprint identifies the corpus and ranking parameters. Two engines
// with the same fingerprint return identical results for every query.
func (e *Engine) Fingerprint() string {
	return e.fingerprint
}

func (e *Engine) checkDocID(docID int) error {
	if docID < 0 || docID >= e.idx.DocCount() {
		return fmt.Errorf("%w: doc id %d not in [0, %d)", apperrors.ErrOutOfRange, docID, e.idx.DocCount())
	}
	return nil
}

func (e *Engine) computeFingerprint() string {
	h := blake3.New()
	fmt.Fprintf(h, "k1=%v;b=%v;formula=%s;delta=%v;analyzer=%s;", e.params.K1, e.params.B, e.formulaName, e.delta, e.analyzer.Name)
	var lenBuf [8]byte
	for _, doc := range e.documents {
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(doc)))
		h.Write(lenBuf[:])
		h.Write([]byte(doc))
	}
	return fmt.Sprintf("%x", h.Sum(nil)[:16])
}

func excerpt(doc string) string {
	runes := []rune(doc)
	if len(runes) <= excerptLen {
		return doc
	}
	return string(runes[:excerptLen]) + "..."
}
