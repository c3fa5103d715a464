// Package handlers provides HTTP handlers for price queries, forced
// refreshes and symbol search.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/portfoyapp/portfoy/internal/domain"
	"github.com/portfoyapp/portfoy/internal/prices"
	"github.com/rs/zerolog"
)

// PriceCache is the slice of the price cache the handlers need.
type PriceCache interface {
	GetOrRefresh(ctx context.Context, symbols []string) (prices.Result, error)
	ForceRefresh(ctx context.Context, symbols []string) (prices.Result, error)
}

// Searcher looks up instruments by free-text query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]domain.SearchResult, error)
}

// Handler handles price HTTP requests
type Handler struct {
	cache    PriceCache
	searcher Searcher
	log      zerolog.Logger
}

// NewHandler creates a new prices handler
func NewHandler(cache PriceCache, searcher Searcher, log zerolog.Logger) *Handler {
	return &Handler{
		cache:    cache,
		searcher: searcher,
		log:      log.With().Str("handler", "prices").Logger(),
	}
}

// RefreshRequest is the body of a forced refresh.
type RefreshRequest struct {
	Symbols []string `json:"symbols"`
}

// HandleGetPrices handles GET /api/prices?symbols=AAPL,BTC
//
// Without symbols it serves (or builds) the full cached table; with symbols
// it serves the cache when every symbol is covered, refreshing otherwise.
func (h *Handler) HandleGetPrices(w http.ResponseWriter, r *http.Request) {
	symbols := splitSymbols(r.URL.Query().Get("symbols"))

	result, err := h.cache.GetOrRefresh(r.Context(), symbols)
	if err != nil {
		// Only reachable when no table has ever been built.
		h.log.Error().Err(err).Msg("Price request failed with no cached table")
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to fetch prices",
		})
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleRefreshPrices handles POST /api/prices/refresh
// It always performs a refresh, bypassing cache-hit checks.
func (h *Handler) HandleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.cache.ForceRefresh(r.Context(), req.Symbols)
	if err != nil {
		h.log.Error().Err(err).Msg("Forced refresh failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to refresh prices",
		})
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleSearch handles GET /api/search?q=apple
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	results, err := h.searcher.Search(r.Context(), query)
	if err != nil {
		h.log.Warn().Err(err).Str("query", query).Msg("Symbol search failed")
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"results": []domain.SearchResult{},
			"error":   "Search failed",
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
	})
}

// splitSymbols parses a comma-separated symbol list, dropping empties.
func splitSymbols(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
