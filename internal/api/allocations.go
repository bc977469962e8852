package api

import (
	"net/http"
	"time"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/core/services"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

type allocationResponse struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	SprintID        string    `json:"sprintId"`
	ProjectID       string    `json:"projectId"`
	AllocatedPoints int       `json:"allocatedPoints"`
	Status          string    `json:"status"`
	Comments        *string   `json:"comments,omitempty"`
}

func allocationToResponse(a *db.Allocation) allocationResponse {
	return allocationResponse{
		ID:              a.ID,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
		SprintID:        a.SprintID,
		ProjectID:       a.ProjectID,
		AllocatedPoints: a.AllocatedPoints,
		Status:          string(a.Status),
		Comments:        a.Comments,
	}
}

type allocatePointsRequest struct {
	SprintID        string `json:"sprintId"`
	ProjectID       string `json:"projectId"`
	AllocatedPoints int    `json:"allocatedPoints"`
	Status          string `json:"status"`
	Comments        string `json:"comments"`
}

func (h *Handler) handleAllocatePoints(w http.ResponseWriter, r *http.Request) {
	var req allocatePointsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	allocation, err := services.AllocatePoints(r.Context(), h.store, h.logger, services.AllocatePointsInput{
		SprintID:        req.SprintID,
		ProjectID:       req.ProjectID,
		AllocatedPoints: req.AllocatedPoints,
		Status:          req.Status,
		Comments:        req.Comments,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, allocationToResponse(allocation))
}

// Comments accepts explicit null as "clear": the service treats an empty
// string the same way.
type updateAllocationRequest struct {
	AllocatedPoints *int                 `json:"allocatedPoints"`
	Status          *string              `json:"status"`
	Comments        jsonOptional[string] `json:"comments"`
}

func (h *Handler) handleUpdateAllocation(w http.ResponseWriter, r *http.Request) {
	var req updateAllocationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := services.UpdateAllocationInput{
		AllocationID:    r.PathValue("allocationID"),
		AllocatedPoints: req.AllocatedPoints,
		Status:          req.Status,
	}
	if req.Comments.Set {
		comments := ""
		if req.Comments.Value != nil {
			comments = *req.Comments.Value
		}
		input.Comments = &comments
	}

	allocation, err := services.UpdateAllocation(r.Context(), h.store, h.logger, input)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, allocationToResponse(allocation))
}
