// Package index builds the immutable inverted index and document length
// statistics for a fixed corpus. Document ids are corpus positions.
package index

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/indexer/tokenizer"
)

// Index maps term -> doc id -> raw frequency. It is never mutated after
// Build returns, so concurrent readers need no locking.
type Index struct {
	postings    map[string]map[int]int
	docLengths  []int
	totalTokens int64
	avgDocLen   float64
}

// Build tokenizes every document with the analyzer and records term
// frequencies and lengths. An empty corpus yields an empty index with an
// average document length of 0.
func Build(corpus []string, analyzer tokenizer.Analyzer) *Index {
	idx := &Index{
		postings:   make(map[string]map[int]int),
		docLengths: make([]int, len(corpus)),
	}
	for docID, text := range corpus {
		tokens := analyzer.Tokenize(text)
		for _, token := range tokens {
			docs, exists := idx.postings[token.Term]
			if !exists {
				docs = make(map[int]int)
				idx.postings[token.Term] = docs
			}
			docs[docID]++
		}
		idx.docLengths[docID] = len(tokens)
		idx.totalTokens += int64(len(tokens))
	}
	if len(corpus) > 0 {
		idx.avgDocLen = float64(idx.totalTokens) / float64(len(corpus))
	}
	return idx
}

func (idx *Index) DocCount() int {
	return len(idx.docLengths)
}

// DocLength returns the token count of docID, or 0 for an unknown id.
func (idx *Index) DocLength(docID int) int {
	if docID < 0 || docID >= len(idx.docLengths) {
		return 0
	}
	return idx.docLengths[docID]
}

func (idx *Index) AvgDocLength() float64 {
	return idx.avgDocLen
}

func (idx *Index) TotalTokens() int64 {
	return idx.totalTokens
}

// Frequency returns the raw count of term in docID; 0 when absent.
func (idx *Index) Frequency(term string, docID int) int {
	return idx.postings[term][docID]
}

// DocFrequency returns the number of distinct documents containing term.
func (idx *Index) DocFrequency(term string) int {
	return len(idx.postings[term])
}

func (idx *Index) Contains(term string) bool {
	_, ok := idx.postings[term]
	return ok
}

// Postings returns the postings for term ordered by doc id, or nil if the
// term was never indexed.
func (idx *Index) Postings(term string) PostingList {
	docs, exists := idx.postings[term]
	if !exists {
		return nil
	}
	result := make(PostingList, 0, len(docs))
	for docID, freq := range docs {
		result = append(result, Posting{DocID: docID, Frequency: freq})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

// Terms returns every indexed term in lexical order.
func (idx *Index) Terms() []string {
	terms := make([]string, 0, len(idx.postings))
	for term := range idx.postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

func (idx *Index) TermCount() int {
	return len(idx.postings)
}
