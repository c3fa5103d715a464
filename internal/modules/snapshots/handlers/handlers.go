// Package handlers provides HTTP handlers for snapshot history and the
// manual snapshot trigger.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/portfoyapp/portfoy/internal/domain"
	"github.com/portfoyapp/portfoy/internal/modules/snapshots"
	"github.com/portfoyapp/portfoy/internal/scheduler"
	"github.com/rs/zerolog"
)

// Handler handles snapshot HTTP requests
type Handler struct {
	repo        *snapshots.Repository
	snapshotJob scheduler.Job
	log         zerolog.Logger
}

// NewHandler creates a new snapshot handler
func NewHandler(repo *snapshots.Repository, snapshotJob scheduler.Job, log zerolog.Logger) *Handler {
	return &Handler{
		repo:        repo,
		snapshotJob: snapshotJob,
		log:         log.With().Str("handler", "snapshots").Logger(),
	}
}

// HandleList handles GET /api/snapshots?owner=...
// Snapshots are returned oldest first, ready for charting.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		owner = "default"
	}

	snaps, err := h.repo.GetByOwner(owner)
	if err != nil {
		h.log.Error().Err(err).Str("owner", owner).Msg("Failed to list snapshots")
		http.Error(w, "Failed to list snapshots", http.StatusInternalServerError)
		return
	}
	if snaps == nil {
		snaps = []domain.Snapshot{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": snaps,
	})
}

// HandleRun handles POST /api/snapshots/run
// It triggers the weekly snapshot job out of schedule. Re-running within the
// same week updates existing snapshots rather than duplicating them.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	if err := h.snapshotJob.Run(); err != nil {
		h.log.Error().Err(err).Msg("Snapshot job failed")
		http.Error(w, "Snapshot job failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"job":    h.snapshotJob.Name(),
			"status": "completed",
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
