package ranker

import "sort"

// TermBreakdown is one row of an explanation: a distinct query term and
// how much it contributed to the document's score.
type TermBreakdown struct {
	Term            string  `json:"term"`
	Occurrences     int     `json:"occurrences"`
	Frequency       int     `json:"tf_in_doc"`
	Rarity          float64 `json:"idf"`
	FrequencyWeight float64 `json:"tf_component"`
	Product         float64 `json:"term_score"`
	Contribution    float64 `json:"contribution"`
}

type Breakdown struct {
	Terms []TermBreakdown `json:"terms"`
	Total float64         `json:"total_score"`
}

// Explain decomposes a score into one row per distinct query term. Each
// row carries the number of times the term occurs in the query, and its
// Contribution is Product × Occurrences, so Total matches Scorer.Score for
// the same terms (up to float summation order).
func Explain(formula Formula, terms []string, docID int) Breakdown {
	counts := make(map[string]int, len(terms))
	order := make([]string, 0, len(terms))
	for _, term := range terms {
		if counts[term] == 0 {
			order = append(order, term)
		}
		counts[term]++
	}

	rows := make([]TermBreakdown, 0, len(order))
	var total float64
	for _, term := range order {
		w := formula.Weigh(term, docID)
		row := TermBreakdown{
			Term:            term,
			Occurrences:     counts[term],
			Frequency:       w.Frequency,
			Rarity:          w.Rarity,
			FrequencyWeight: w.FrequencyWeight,
			Product:         w.Product(),
		}
		row.Contribution = row.Product * float64(row.Occurrences)
		total += row.Contribution
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Contribution != rows[j].Contribution {
			return rows[i].Contribution > rows[j].Contribution
		}
		return rows[i].Term < rows[j].Term
	})
	return Breakdown{Terms: rows, Total: total}
}
