// Package executor runs a search against the ranking engine and assembles
// the response served by the HTTP API and stored in the query cache.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/tracing"
)

const snippetLen = 160

// Hit is one ranked document.
type Hit struct {
	DocID   int     `json:"doc_id" cbor:"1,keyasint"`
	Score   float64 `json:"score" cbor:"2,keyasint"`
	Snippet string  `json:"snippet" cbor:"3,keyasint"`
}

// SearchResult is the full answer to one query. TotalHits counts every
// document with a positive score, not just the returned page.
type SearchResult struct {
	Query     string         `json:"query" cbor:"1,keyasint"`
	Terms     []string       `json:"terms" cbor:"2,keyasint"`
	TotalHits int            `json:"total_hits" cbor:"3,keyasint"`
	Results   []Hit          `json:"results" cbor:"4,keyasint"`
	TermStats map[string]int `json:"term_stats" cbor:"5,keyasint"`
}

type Executor struct {
	engine *indexer.Engine
	tracer *tracing.Tracer
	logger *slog.Logger
}

// New builds an Executor. tracer may be nil.
func New(engine *indexer.Engine, tracer *tracing.Tracer) *Executor {
	return &Executor{
		engine: engine,
		tracer: tracer,
		logger: slog.Default().With("component", "query-executor"),
	}
}

// Execute ranks the corpus for query and returns the top limit documents.
// A negative limit fails with ErrInvalidParameter; zero returns no results
// but still reports TotalHits and TermStats.
func (e *Executor) Execute(ctx context.Context, query string, limit int) (*SearchResult, error) {
	if e.tracer != nil {
		var root *tracing.Span
		ctx, root = e.tracer.Start(ctx, "search", logger.RequestID(ctx))
		root.SetAttr("query", query)
		root.SetAttr("limit", limit)
		defer e.tracer.Finish(root)
	}

	_, analyze := tracing.StartChildSpan(ctx, "analyze")
	terms := e.engine.Terms(query)
	analyze.SetAttr("terms", len(terms))
	analyze.End()

	result := &SearchResult{
		Query:     query,
		Terms:     terms,
		Results:   []Hit{},
		TermStats: make(map[string]int, len(terms)),
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must be >= 0, got %d", apperrors.ErrInvalidParameter, limit)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	_, rank := tracing.StartChildSpan(ctx, "rank")
	ranked, err := e.engine.Search(query, limit)
	rank.End()
	if err != nil {
		return nil, err
	}

	for _, term := range terms {
		result.TermStats[term] = e.engine.DocFrequency(term)
	}
	result.TotalHits = e.engine.MatchCount(query)
	result.Results = make([]Hit, 0, len(ranked))
	for _, r := range ranked {
		doc, _ := e.engine.Document(r.DocID)
		result.Results = append(result.Results, Hit{
			DocID:   r.DocID,
			Score:   r.Score,
			Snippet: snippet(doc),
		})
	}
	rank.SetAttr("returned", len(result.Results))

	logger.FromContext(ctx).Debug("query executed",
		"query", query,
		"terms", terms,
		"total_hits", result.TotalHits,
		"results", len(result.Results),
	)
	return result, nil
}

// NormalizedTerms returns the analyzed query terms in a canonical order.
// Scores are sums over terms, so two queries with the same multiset of terms
// rank identically; repeated terms are kept because they count twice.
func (e *Executor) NormalizedTerms(query string) []string {
	terms := e.engine.Terms(query)
	sort.Strings(terms)
	return terms
}

func snippet(doc string) string {
	runes := []rune(doc)
	if len(runes) <= snippetLen {
		return doc
	}
	return string(runes[:snippetLen]) + "..."
}
