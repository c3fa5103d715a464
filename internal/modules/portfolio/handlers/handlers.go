// Package handlers provides HTTP handlers for position management and
// portfolio valuation.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/portfoyapp/portfoy/internal/domain"
	"github.com/portfoyapp/portfoy/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	positionRepo *portfolio.PositionRepository
	service      *portfolio.Service
	log          zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(positionRepo *portfolio.PositionRepository, service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		positionRepo: positionRepo,
		service:      service,
		log:          log.With().Str("handler", "portfolio").Logger(),
	}
}

// ownerParam extracts the owner query parameter, defaulting to "default" for
// the single-user deployment.
func ownerParam(r *http.Request) string {
	if owner := r.URL.Query().Get("owner"); owner != "" {
		return owner
	}
	return "default"
}

// HandleListPositions handles GET /api/portfolio/positions
func (h *Handler) HandleListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.positionRepo.GetByOwner(ownerParam(r))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list positions")
		http.Error(w, "Failed to list positions", http.StatusInternalServerError)
		return
	}
	if positions == nil {
		positions = []domain.Position{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": positions,
	})
}

// HandleCreatePosition handles POST /api/portfolio/positions
func (h *Handler) HandleCreatePosition(w http.ResponseWriter, r *http.Request) {
	var pos domain.Position
	if err := json.NewDecoder(r.Body).Decode(&pos); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if pos.Owner == "" {
		pos.Owner = ownerParam(r)
	}
	if err := validatePosition(&pos); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.positionRepo.Insert(&pos); err != nil {
		h.log.Error().Err(err).Str("symbol", pos.Symbol).Msg("Failed to insert position")
		http.Error(w, "Failed to create position", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": pos,
	})
}

// HandleUpdatePosition handles PUT /api/portfolio/positions/{id}
func (h *Handler) HandleUpdatePosition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var pos domain.Position
	if err := json.NewDecoder(r.Body).Decode(&pos); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	pos.ID = id

	if err := validatePosition(&pos); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.positionRepo.Update(&pos); err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to update position")
		http.Error(w, "Failed to update position", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": pos,
	})
}

// HandleDeletePosition handles DELETE /api/portfolio/positions/{id}
func (h *Handler) HandleDeletePosition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.positionRepo.Delete(id); err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to delete position")
		http.Error(w, "Failed to delete position", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleValuation handles GET /api/portfolio/valuation
func (h *Handler) HandleValuation(w http.ResponseWriter, r *http.Request) {
	valuation, err := h.service.Valuation(r.Context(), ownerParam(r))
	if err != nil {
		h.log.Error().Err(err).Msg("Valuation failed")
		http.Error(w, "Failed to compute valuation", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": valuation,
	})
}

// HandleAnalytics handles GET /api/portfolio/analytics
func (h *Handler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.service.Analytics(r.Context(), ownerParam(r))
	if err != nil {
		h.log.Error().Err(err).Msg("Analytics derivation failed")
		http.Error(w, "Failed to compute analytics", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": metrics,
	})
}

func validatePosition(pos *domain.Position) error {
	switch {
	case pos.Symbol == "":
		return errBadPosition("symbol is required")
	case pos.Quantity < 0:
		return errBadPosition("quantity must not be negative")
	case pos.AverageCost < 0:
		return errBadPosition("average cost must not be negative")
	case pos.Currency != domain.CurrencyTRY && pos.Currency != domain.CurrencyUSD:
		return errBadPosition("currency must be TRY or USD")
	}
	return nil
}

type errBadPosition string

func (e errBadPosition) Error() string { return string(e) }

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
