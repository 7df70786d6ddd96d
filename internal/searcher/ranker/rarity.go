package ranker

import "math"

// Rarity holds the IDF weight of every indexed term. All weights are
// computed in NewRarity, so the cache is read-only afterwards and safe for
// concurrent lookups.
type Rarity struct {
	weights map[string]float64
}

// NewRarity precomputes the weight of every term in the corpus.
func NewRarity(c Corpus) *Rarity {
	terms := c.Terms()
	r := &Rarity{weights: make(map[string]float64, len(terms))}
	n := c.DocCount()
	for _, term := range terms {
		r.weights[term] = RarityWeight(n, c.DocFrequency(term))
	}
	return r
}

// Weight returns the cached IDF for term. Terms that were never indexed
// weigh 0.
func (r *Rarity) Weight(term string) float64 {
	return r.weights[term]
}

func (r *Rarity) Len() int {
	return len(r.weights)
}

// RarityWeight computes ln((N - n + 0.5) / (n + 0.5)) clamped at 0, where
// N is the corpus size and n the number of documents containing the term.
// A term found nowhere (n == 0) weighs 0.
func RarityWeight(docCount, docFreq int) float64 {
	if docFreq <= 0 || docCount <= 0 {
		return 0
	}
	numerator := float64(docCount) - float64(docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	idf := math.Log(numerator / denominator)
	if idf < 0 {
		return 0
	}
	return idf
}
