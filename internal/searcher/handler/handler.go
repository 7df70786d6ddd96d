package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/middleware"
)

type SearchExecutor interface {
	Execute(ctx context.Context, query string, limit int) (*executor.SearchResult, error)
	NormalizedTerms(query string) []string
}

// Engine is the read side of *indexer.Engine used by the scoring endpoints.
type Engine interface {
	Score(query string, docID int) (float64, error)
	Explain(query string, docID int) (*indexer.Explanation, error)
	TermInfo(term string) *indexer.TermInfo
	Terms(query string) []string
	Stats() indexer.Stats
	Fingerprint() string
}

// Handler serves the ranking API. cache, collector and metrics are optional.
type Handler struct {
	engine       Engine
	executor     SearchExecutor
	cache        *cache.QueryCache
	collector    *analytics.Collector
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

func New(
	engine Engine,
	exec SearchExecutor,
	queryCache *cache.QueryCache,
	collector *analytics.Collector,
	m *metrics.Metrics,
	cfg config.SearchConfig,
) *Handler {
	return &Handler{
		engine:       engine,
		executor:     exec,
		cache:        queryCache,
		collector:    collector,
		metrics:      m,
		defaultLimit: cfg.DefaultLimit,
		maxResults:   cfg.MaxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/score", h.Score)
	mux.HandleFunc("GET /api/v1/explain", h.Explain)
	mux.HandleFunc("GET /api/v1/terms/{term}", h.Term)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if parsed > h.maxResults {
			parsed = h.maxResults
		}
		limit = parsed
	}

	terms := h.executor.NormalizedTerms(query)
	var result *executor.SearchResult
	var err error
	cacheHit := false

	if h.cache != nil && len(terms) > 0 {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, query, limit, func() (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, query, limit)
		})
		if err == nil {
			// The entry may have been stored, or shared through singleflight,
			// by a request that spelled the query differently.
			own := *result
			own.Query = query
			own.Terms = h.engine.Terms(query)
			result = &own
		}
	} else {
		result, err = h.executor.Execute(ctx, query, limit)
	}

	elapsed := time.Since(start)
	if err != nil {
		if h.metrics != nil {
			h.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		}
		log.Error("search execution failed", "query", query, "error", err)
		h.writeAppError(w, err)
		return
	}

	eventType := analytics.Classify(result.TotalHits, cacheHit)
	if h.metrics != nil {
		resultType := "hit"
		if eventType == analytics.EventZeroResult {
			resultType = "zero_result"
		}
		cacheStatus := "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
		h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(elapsed.Seconds())
		h.metrics.SearchResultsCount.Observe(float64(len(result.Results)))
	}

	log.Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_us", elapsed.Microseconds(),
	)

	if h.collector != nil {
		event := analytics.SearchEvent{
			Type:        eventType,
			Query:       query,
			Terms:       terms,
			TotalHits:   result.TotalHits,
			Returned:    len(result.Results),
			LatencyUs:   elapsed.Microseconds(),
			CacheHit:    cacheHit,
			Fingerprint: h.engine.Fingerprint(),
			Timestamp:   time.Now().UTC(),
			RequestID:   middleware.GetRequestID(ctx),
		}
		if len(result.Results) > 0 {
			event.TopDocID = result.Results[0].DocID
			event.TopScore = result.Results[0].Score
		}
		h.collector.Track(event)
	}

	h.writeJSON(w, http.StatusOK, result)
}

type scoreResponse struct {
	Query string  `json:"query"`
	DocID int     `json:"doc_id"`
	Score float64 `json:"score"`
}

func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	query, docID, err := queryAndDoc(r)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	score, err := h.engine.Score(query, docID)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, scoreResponse{Query: query, DocID: docID, Score: score})
}

func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	query, docID, err := queryAndDoc(r)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	exp, err := h.engine.Explain(query, docID)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, exp)
}

func (h *Handler) Term(w http.ResponseWriter, r *http.Request) {
	term := r.PathValue("term")
	info := h.engine.TermInfo(term)
	if info == nil {
		h.writeError(w, http.StatusNotFound, "term "+strconv.Quote(term)+" is not indexed")
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Stats())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func queryAndDoc(r *http.Request) (string, int, error) {
	query := r.URL.Query().Get("q")
	if query == "" {
		return "", 0, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required")
	}
	docStr := r.URL.Query().Get("doc")
	if docStr == "" {
		return "", 0, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'doc' is required")
	}
	docID, err := strconv.Atoi(docStr)
	if err != nil {
		return "", 0, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "doc must be an integer, got %q", docStr)
	}
	return query, docID, nil
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status, msg := apperrors.Response(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "status", status, "error", err)
	}
	h.writeError(w, status, msg)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
