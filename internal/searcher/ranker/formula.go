package ranker

import (
	"fmt"
	"math"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/errors"
)

const (
	DefaultK1    = 1.5
	DefaultB     = 0.75
	DefaultDelta = 1.0

	FormulaOkapi = "okapi"
	FormulaPlus  = "plus"
)

// Corpus is the read-only view of the index the ranking formulas need.
type Corpus interface {
	DocCount() int
	DocLength(docID int) int
	AvgDocLength() float64
	Frequency(term string, docID int) int
	DocFrequency(term string) int
	Terms() []string
}

// Params are the BM25 tuning constants, fixed for an engine's lifetime.
type Params struct {
	K1 float64 `json:"k1"`
	B  float64 `json:"b"`
}

func DefaultParams() Params {
	return Params{K1: DefaultK1, B: DefaultB}
}

// Validate rejects k1 < 0 and b outside [0, 1].
func (p Params) Validate() error {
	if math.IsNaN(p.K1) || math.IsInf(p.K1, 0) || p.K1 < 0 {
		return fmt.Errorf("%w: k1 must be a finite value >= 0, got %v", apperrors.ErrInvalidParameter, p.K1)
	}
	if math.IsNaN(p.B) || p.B < 0 || p.B > 1 {
		return fmt.Errorf("%w: b must be within [0, 1], got %v", apperrors.ErrInvalidParameter, p.B)
	}
	return nil
}

// TermWeight is the decomposition of one term's contribution to one
// document.
type TermWeight struct {
	Frequency       int
	Rarity          float64
	FrequencyWeight float64
}

func (w TermWeight) Product() float64 {
	return w.Rarity * w.FrequencyWeight
}

// Formula weighs a single term against a single document. The Scorer,
// Ranker and Explainer only depend on this capability.
type Formula interface {
	Weigh(term string, docID int) TermWeight
}

// Okapi is classic BM25 with IDF clamped at zero.
type Okapi struct {
	corpus Corpus
	rarity *Rarity
	params Params
}

func NewOkapi(c Corpus, rarity *Rarity, params Params) *Okapi {
	return &Okapi{corpus: c, rarity: rarity, params: params}
}

func (o *Okapi) Weigh(term string, docID int) TermWeight {
	f := o.corpus.Frequency(term, docID)
	w := TermWeight{
		Frequency: f,
		Rarity:    o.rarity.Weight(term),
	}
	if f == 0 {
		return w
	}
	w.FrequencyWeight = FrequencyWeight(f, o.corpus.DocLength(docID), o.corpus.AvgDocLength(), o.params.K1, o.params.B)
	return w
}

// Plus is BM25+: every matching term gains a constant Delta on top of its
// saturated frequency weight, so long documents are never pushed to zero.
type Plus struct {
	*Okapi
	Delta float64
}

func NewPlus(c Corpus, rarity *Rarity, params Params, delta float64) *Plus {
	return &Plus{Okapi: NewOkapi(c, rarity, params), Delta: delta}
}

func (p *Plus) Weigh(term string, docID int) TermWeight {
	w := p.Okapi.Weigh(term, docID)
	if w.Frequency > 0 && p.corpus.AvgDocLength() > 0 {
		w.FrequencyWeight += p.Delta
	}
	return w
}

// NewFormula selects a formula by name. An empty name selects Okapi.
func NewFormula(name string, c Corpus, rarity *Rarity, params Params, delta float64) (Formula, error) {
	switch strings.ToLower(name) {
	case "", FormulaOkapi:
		return NewOkapi(c, rarity, params), nil
	case FormulaPlus:
		if math.IsNaN(delta) || delta < 0 {
			return nil, fmt.Errorf("%w: delta must be >= 0, got %v", apperrors.ErrInvalidParameter, delta)
		}
		return NewPlus(c, rarity, params, delta), nil
	default:
		return nil, fmt.Errorf("%w: unknown formula %q", apperrors.ErrInvalidParameter, name)
	}
}

// ValidFormula reports whether name selects a known formula.
func ValidFormula(name string) error {
	switch strings.ToLower(name) {
	case "", FormulaOkapi, FormulaPlus:
		return nil
	}
	return fmt.Errorf("%w: unknown formula %q", apperrors.ErrInvalidParameter, name)
}
