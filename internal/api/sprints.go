package api

import (
	"net/http"
	"time"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/core/services"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

type sprintResponse struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Name           string    `json:"name"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	CapacityPoints int       `json:"capacityPoints"`
	Notes          *string   `json:"notes,omitempty"`
	Status         string    `json:"status"`
}

type sprintSummaryResponse struct {
	sprintResponse
	AllocatedPoints int `json:"allocatedPoints"`
	AvailablePoints int `json:"availablePoints"`
}

type allocationWithProjectResponse struct {
	allocationResponse
	Project *projectResponse `json:"project,omitempty"`
}

type sprintDetailResponse struct {
	sprintSummaryResponse
	Allocations []allocationWithProjectResponse `json:"allocations"`
	Backlog     []projectResponse               `json:"backlog"`
}

func sprintToResponse(s *db.Sprint) sprintResponse {
	return sprintResponse{
		ID:             s.ID,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		Name:           s.Name,
		StartDate:      s.StartDate,
		EndDate:        s.EndDate,
		CapacityPoints: s.CapacityPoints,
		Notes:          s.Notes,
		Status:         string(s.Status),
	}
}

func summaryToResponse(s *services.SprintSummary) sprintSummaryResponse {
	return sprintSummaryResponse{
		sprintResponse:  sprintToResponse(&s.Sprint),
		AllocatedPoints: s.AllocatedPoints,
		AvailablePoints: s.AvailablePoints,
	}
}

type createSprintRequest struct {
	Name           string    `json:"name"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	CapacityPoints int       `json:"capacityPoints"`
	Notes          string    `json:"notes"`
	Status         string    `json:"status"`
}

func (h *Handler) handleCreateSprint(w http.ResponseWriter, r *http.Request) {
	var req createSprintRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sprint, err := services.CreateSprint(r.Context(), h.store, h.logger, services.CreateSprintInput{
		Name:           req.Name,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		CapacityPoints: req.CapacityPoints,
		Notes:          req.Notes,
		Status:         req.Status,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sprintToResponse(sprint))
}

func (h *Handler) handleListSprints(w http.ResponseWriter, r *http.Request) {
	summaries, err := services.ListSprintSummaries(r.Context(), h.store)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	result := make([]sprintSummaryResponse, 0, len(summaries))
	for i := range summaries {
		result = append(result, summaryToResponse(&summaries[i]))
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGetSprintDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := services.GetSprintDetail(r.Context(), h.store, r.PathValue("sprintID"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := sprintDetailResponse{
		sprintSummaryResponse: summaryToResponse(&detail.Summary),
		Allocations:           make([]allocationWithProjectResponse, 0, len(detail.Allocations)),
		Backlog:               make([]projectResponse, 0, len(detail.Backlog)),
	}
	for i := range detail.Allocations {
		item := allocationWithProjectResponse{
			allocationResponse: allocationToResponse(&detail.Allocations[i].Allocation),
		}
		if detail.Allocations[i].Project != nil {
			p := projectToResponse(detail.Allocations[i].Project)
			item.Project = &p
		}
		resp.Allocations = append(resp.Allocations, item)
	}
	for i := range detail.Backlog {
		resp.Backlog = append(resp.Backlog, projectToResponse(&detail.Backlog[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

type updateSprintRequest struct {
	Name           *string              `json:"name"`
	StartDate      *time.Time           `json:"startDate"`
	EndDate        *time.Time           `json:"endDate"`
	CapacityPoints *int                 `json:"capacityPoints"`
	Notes          jsonOptional[string] `json:"notes"`
	Status         *string              `json:"status"`
}

func (h *Handler) handleUpdateSprint(w http.ResponseWriter, r *http.Request) {
	var req updateSprintRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	update := db.SprintUpdate{
		Name:           req.Name,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		CapacityPoints: req.CapacityPoints,
		Notes:          req.Notes.override(),
	}
	if req.Status != nil {
		status, err := db.ParseSprintStatus(*req.Status)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		update.Status = &status
	}

	sprint, err := services.UpdateSprint(r.Context(), h.store, h.logger, r.PathValue("sprintID"), update)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sprintToResponse(sprint))
}

func (h *Handler) handleDeleteSprint(w http.ResponseWriter, r *http.Request) {
	if err := services.DeleteSprint(r.Context(), h.store, h.logger, r.PathValue("sprintID")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type generateSprintsRequest struct {
	Count int `json:"count"`
}

func (h *Handler) handleGenerateSprints(w http.ResponseWriter, r *http.Request) {
	if h.cadence == nil {
		writeError(w, http.StatusServiceUnavailable, "sprint cadence is not configured")
		return
	}
	var req generateSprintsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sprints, err := services.GenerateSprints(r.Context(), h.store, h.logger, *h.cadence, req.Count)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	result := make([]sprintResponse, 0, len(sprints))
	for i := range sprints {
		result = append(result, sprintToResponse(&sprints[i]))
	}
	writeJSON(w, http.StatusCreated, result)
}
