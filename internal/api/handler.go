// Package api implements the SGPD REST API: intake, prioritization and
// sprint planning endpoints over the configured store.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/core/services"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

// Handler is the top-level API handler.
type Handler struct {
	store   db.Store
	tickets services.TicketCreator
	cadence *services.SprintCadence
	logger  *zap.Logger
}

// NewHandler creates a new API handler. tickets and cadence may be nil when
// the ticketing integration or sprint cadence is not configured.
func NewHandler(store db.Store, tickets services.TicketCreator, cadence *services.SprintCadence, logger *zap.Logger) *Handler {
	return &Handler{
		store:   store,
		tickets: tickets,
		cadence: cadence,
		logger:  logger,
	}
}

// RegisterRoutes registers all API routes on the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/projects", h.handleCreateProject)
	mux.HandleFunc("GET /api/projects", h.handleListProjects)
	mux.HandleFunc("GET /api/projects/{projectID}", h.handleGetProject)
	mux.HandleFunc("PATCH /api/projects/{projectID}/status", h.handleUpdateProjectStatus)
	mux.HandleFunc("PATCH /api/projects/{projectID}/review", h.handleReviewProject)

	mux.HandleFunc("GET /api/weights", h.handleGetWeights)
	mux.HandleFunc("PUT /api/weights", h.handleUpdateWeights)

	mux.HandleFunc("POST /api/sprints", h.handleCreateSprint)
	mux.HandleFunc("GET /api/sprints", h.handleListSprints)
	mux.HandleFunc("GET /api/sprints/{sprintID}", h.handleGetSprintDetail)
	mux.HandleFunc("PATCH /api/sprints/{sprintID}", h.handleUpdateSprint)
	mux.HandleFunc("DELETE /api/sprints/{sprintID}", h.handleDeleteSprint)
	mux.HandleFunc("POST /api/sprints/generate", h.handleGenerateSprints)

	mux.HandleFunc("POST /api/allocations", h.handleAllocatePoints)
	mux.HandleFunc("PATCH /api/allocations/{allocationID}", h.handleUpdateAllocation)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var verr *db.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
		return
	}
	switch {
	case errors.Is(err, db.ErrInvalidEnum):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, db.ErrDuplicateAllocation):
		writeError(w, http.StatusConflict, "project is already allocated to this sprint")
	case errors.Is(err, db.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, "sprint capacity exceeded")
	case errors.Is(err, db.ErrHasDependents):
		writeError(w, http.StatusConflict, "sprint still has allocations")
	case errors.Is(err, db.ErrConflict):
		writeError(w, http.StatusConflict, "resource was modified concurrently")
	case errors.Is(err, db.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "priority weights are not configured")
	default:
		h.logger.Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
