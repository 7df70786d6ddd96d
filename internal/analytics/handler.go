package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// Handler serves the aggregated search analytics as JSON.
type Handler struct {
	aggregator *Aggregator
	logger     *slog.Logger
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{
		aggregator: aggregator,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

// Stats writes the current aggregate. The optional top parameter (1 to 10)
// shortens the ranked lists.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.aggregator == nil {
		h.write(w, http.StatusServiceUnavailable, map[string]string{"error": "analytics disabled"})
		return
	}
	top := topLimit
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > topLimit {
			h.write(w, http.StatusBadRequest, map[string]string{"error": "top must be an integer in [1, 10]"})
			return
		}
		top = n
	}
	stats := h.aggregator.Stats()
	stats.TopQueries = head(stats.TopQueries, top)
	stats.TopTerms = head(stats.TopTerms, top)
	stats.ZeroResultQueries = head(stats.ZeroResultQueries, top)
	stats.TopDocuments = head(stats.TopDocuments, top)
	h.write(w, http.StatusOK, stats)
}

func (h *Handler) write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("writing analytics response", "error", err)
	}
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
