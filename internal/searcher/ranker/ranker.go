// Package ranker implements BM25 scoring: the cached IDF, the saturated
// frequency weight, per-document scoring, top-k ranking and score
// explanations.
package ranker

import (
	"container/heap"
	"sort"
)

type ScoredDoc struct {
	DocID int     `json:"doc_id"`
	Score float64 `json:"score"`
}

// Rank scores every document 0..docCount-1 and returns the best limit of
// them, ordered by score descending with ties broken by ascending doc id.
// Zero-score documents are ranked like any other. A non-positive limit
// yields an empty result.
func Rank(scorer *Scorer, terms []string, docCount int, limit int) []ScoredDoc {
	if limit <= 0 || docCount <= 0 {
		return []ScoredDoc{}
	}
	if limit >= docCount {
		result := make([]ScoredDoc, docCount)
		for docID := 0; docID < docCount; docID++ {
			result[docID] = ScoredDoc{DocID: docID, Score: scorer.Score(terms, docID)}
		}
		sort.Slice(result, func(i, j int) bool {
			return better(result[i], result[j])
		})
		return result
	}

	h := make(scoredDocHeap, 0, limit+1)
	for docID := 0; docID < docCount; docID++ {
		heap.Push(&h, ScoredDoc{DocID: docID, Score: scorer.Score(terms, docID)})
		if h.Len() > limit {
			heap.Pop(&h)
		}
	}
	result := make([]ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(ScoredDoc)
	}
	return result
}

func better(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// scoredDocHeap keeps the worst retained document at the root.
type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool { return better(h[j], h[i]) }

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x interface{}) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
