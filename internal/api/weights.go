package api

import (
	"net/http"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/core/services"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

type weightsResponse struct {
	ImpactWeight    float64 `json:"impactWeight"`
	FrequencyWeight float64 `json:"frequencyWeight"`
	UrgencyWeight   float64 `json:"urgencyWeight"`
}

type recalcFailureResponse struct {
	ProjectID string `json:"projectId"`
	Error     string `json:"error"`
}

type updateWeightsResponse struct {
	Weights  weightsResponse         `json:"weights"`
	Projects []projectResponse       `json:"projects"`
	Failures []recalcFailureResponse `json:"failures,omitempty"`
}

func weightsToResponse(w db.PriorityWeights) weightsResponse {
	return weightsResponse{
		ImpactWeight:    w.ImpactWeight,
		FrequencyWeight: w.FrequencyWeight,
		UrgencyWeight:   w.UrgencyWeight,
	}
}

func (h *Handler) handleGetWeights(w http.ResponseWriter, r *http.Request) {
	weights, err := h.store.GetActiveWeights(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weightsToResponse(weights))
}

func (h *Handler) handleUpdateWeights(w http.ResponseWriter, r *http.Request) {
	var req weightsResponse
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := services.UpdateWeights(r.Context(), h.store, h.logger, db.PriorityWeights{
		ImpactWeight:    req.ImpactWeight,
		FrequencyWeight: req.FrequencyWeight,
		UrgencyWeight:   req.UrgencyWeight,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := updateWeightsResponse{
		Weights:  weightsToResponse(result.Weights),
		Projects: make([]projectResponse, 0, len(result.Projects)),
	}
	for i := range result.Projects {
		resp.Projects = append(resp.Projects, projectToResponse(&result.Projects[i]))
	}
	for _, f := range result.Failures {
		resp.Failures = append(resp.Failures, recalcFailureResponse{
			ProjectID: f.ProjectID,
			Error:     f.Err.Error(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
