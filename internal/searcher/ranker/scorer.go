package ranker

// Scorer sums per-term weights for one document.
type Scorer struct {
	formula Formula
}

func NewScorer(formula Formula) *Scorer {
	return &Scorer{formula: formula}
}

// Score adds rarity × frequency weight for every query term occurrence.
// Repeated query terms are not deduplicated: each occurrence contributes.
func (s *Scorer) Score(terms []string, docID int) float64 {
	var score float64
	for _, term := range terms {
		score += s.formula.Weigh(term, docID).Product()
	}
	return score
}
