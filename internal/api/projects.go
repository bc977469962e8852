package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/core/services"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

type projectResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	RequestingDepartment string   `json:"requestingDepartment"`
	Title                string   `json:"title"`
	ShortDescription     *string  `json:"shortDescription,omitempty"`
	ProblemDescription   string   `json:"problemDescription"`
	Context              *string  `json:"context,omitempty"`
	ImpactCategories     []string `json:"impactCategories,omitempty"`
	ImpactDescription    *string  `json:"impactDescription,omitempty"`
	ImpactScore          int      `json:"impactScore"`
	FrequencyDescription *string  `json:"frequencyDescription,omitempty"`
	FrequencyNumber      *float64 `json:"frequencyNumber,omitempty"`
	FrequencyUnit        *string  `json:"frequencyUnit,omitempty"`
	FrequencyScore       int      `json:"frequencyScore"`
	UrgencyLevel         string   `json:"urgencyLevel"`
	UrgencyScore         int      `json:"urgencyScore"`
	ScoreRaw             int      `json:"scoreRaw"`
	ScoreWeighted        float64  `json:"scoreWeighted"`

	ImpactScoreConsidered    *int     `json:"impactScoreConsidered,omitempty"`
	FrequencyScoreConsidered *int     `json:"frequencyScoreConsidered,omitempty"`
	UrgencyLevelConsidered   *string  `json:"urgencyLevelConsidered,omitempty"`
	ImpactWeightCustom       *float64 `json:"impactWeightCustom,omitempty"`
	FrequencyWeightCustom    *float64 `json:"frequencyWeightCustom,omitempty"`
	UrgencyWeightCustom      *float64 `json:"urgencyWeightCustom,omitempty"`

	HasExternalDependencies  bool    `json:"hasExternalDependencies"`
	DependenciesDetail       *string `json:"dependenciesDetail,omitempty"`
	OtherDepartmentsInvolved *string `json:"otherDepartmentsInvolved,omitempty"`

	ContactName       string  `json:"contactName"`
	ContactDepartment *string `json:"contactDepartment,omitempty"`
	ContactEmail      *string `json:"contactEmail,omitempty"`
	ContactPhone      *string `json:"contactPhone,omitempty"`

	Status               string     `json:"status"`
	AnalysisStartedAt    *time.Time `json:"analysisStartedAt,omitempty"`
	DevelopmentStartedAt *time.Time `json:"developmentStartedAt,omitempty"`
	ImplementedAt        *time.Time `json:"implementedAt,omitempty"`
	ClosedAt             *time.Time `json:"closedAt,omitempty"`

	DevelopmentPoints *int   `json:"developmentPoints,omitempty"`
	FunctionalPoints  *int   `json:"functionalPoints,omitempty"`
	UserPoints        *int   `json:"userPoints,omitempty"`
	TotalPoints       *int   `json:"totalPoints,omitempty"`
	EstimatedTime     string `json:"estimatedTime"`

	IsReviewedByTeam   bool       `json:"isReviewedByTeam"`
	ReviewedAt         *time.Time `json:"reviewedAt,omitempty"`
	ManagementComments *string    `json:"managementComments,omitempty"`
}

func projectToResponse(p *db.Project) projectResponse {
	resp := projectResponse{
		ID:        p.ID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,

		RequestingDepartment: p.RequestingDepartment,
		Title:                p.Title,
		ShortDescription:     p.ShortDescription,
		ProblemDescription:   p.ProblemDescription,
		Context:              p.Context,
		ImpactCategories:     p.ImpactCategories,
		ImpactDescription:    p.ImpactDescription,
		ImpactScore:          p.ImpactScore,
		FrequencyDescription: p.FrequencyDescription,
		FrequencyNumber:      p.FrequencyNumber,
		FrequencyScore:       p.FrequencyScore,
		UrgencyLevel:         string(p.UrgencyLevel),
		UrgencyScore:         p.UrgencyScore,
		ScoreRaw:             p.ScoreRaw,
		ScoreWeighted:        p.ScoreWeighted,

		ImpactScoreConsidered:    p.ImpactScoreConsidered,
		FrequencyScoreConsidered: p.FrequencyScoreConsidered,
		ImpactWeightCustom:       p.ImpactWeightCustom,
		FrequencyWeightCustom:    p.FrequencyWeightCustom,
		UrgencyWeightCustom:      p.UrgencyWeightCustom,

		HasExternalDependencies:  p.HasExternalDependencies,
		DependenciesDetail:       p.DependenciesDetail,
		OtherDepartmentsInvolved: p.OtherDepartmentsInvolved,

		ContactName:       p.ContactName,
		ContactDepartment: p.ContactDepartment,
		ContactEmail:      p.ContactEmail,
		ContactPhone:      p.ContactPhone,

		Status:               string(p.Status),
		AnalysisStartedAt:    p.AnalysisStartedAt,
		DevelopmentStartedAt: p.DevelopmentStartedAt,
		ImplementedAt:        p.ImplementedAt,
		ClosedAt:             p.ClosedAt,

		DevelopmentPoints: p.DevelopmentPoints,
		FunctionalPoints:  p.FunctionalPoints,
		UserPoints:        p.UserPoints,

		IsReviewedByTeam:   p.IsReviewedByTeam,
		ReviewedAt:         p.ReviewedAt,
		ManagementComments: p.ManagementComments,
	}
	if p.FrequencyUnit != nil {
		unit := string(*p.FrequencyUnit)
		resp.FrequencyUnit = &unit
	}
	if p.UrgencyLevelConsidered != nil {
		level := string(*p.UrgencyLevelConsidered)
		resp.UrgencyLevelConsidered = &level
	}
	if total, ok := scoringTotalPoints(p); ok {
		resp.TotalPoints = &total
	}
	resp.EstimatedTime = scoringEstimatedTime(p)
	return resp
}

type createProjectRequest struct {
	RequestingDepartment string   `json:"requestingDepartment"`
	Title                string   `json:"title"`
	ShortDescription     string   `json:"shortDescription"`
	ProblemDescription   string   `json:"problemDescription"`
	Context              string   `json:"context"`
	ImpactCategories     []string `json:"impactCategories"`
	ImpactDescription    string   `json:"impactDescription"`
	ImpactScore          int      `json:"impactScore"`
	FrequencyDescription string   `json:"frequencyDescription"`
	FrequencyNumber      float64  `json:"frequencyNumber"`
	FrequencyUnit        string   `json:"frequencyUnit"`
	FrequencyScore       int      `json:"frequencyScore"`
	UrgencyLevel         string   `json:"urgencyLevel"`

	HasExternalDependencies  bool   `json:"hasExternalDependencies"`
	DependenciesDetail       string `json:"dependenciesDetail"`
	OtherDepartmentsInvolved string `json:"otherDepartmentsInvolved"`

	ContactName       string `json:"contactName"`
	ContactDepartment string `json:"contactDepartment"`
	ContactEmail      string `json:"contactEmail"`
	ContactPhone      string `json:"contactPhone"`
}

func (h *Handler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	project, err := services.CreateProject(r.Context(), h.store, h.tickets, h.logger, services.CreateProjectInput{
		RequestingDepartment: req.RequestingDepartment,
		Title:                req.Title,
		ShortDescription:     req.ShortDescription,
		ProblemDescription:   req.ProblemDescription,
		Context:              req.Context,
		ImpactCategories:     req.ImpactCategories,
		ImpactDescription:    req.ImpactDescription,
		ImpactScore:          req.ImpactScore,
		FrequencyDescription: req.FrequencyDescription,
		FrequencyNumber:      req.FrequencyNumber,
		FrequencyUnit:        req.FrequencyUnit,
		FrequencyScore:       req.FrequencyScore,
		UrgencyLevel:         req.UrgencyLevel,

		HasExternalDependencies:  req.HasExternalDependencies,
		DependenciesDetail:       req.DependenciesDetail,
		OtherDepartmentsInvolved: req.OtherDepartmentsInvolved,

		ContactName:       req.ContactName,
		ContactDepartment: req.ContactDepartment,
		ContactEmail:      req.ContactEmail,
		ContactPhone:      req.ContactPhone,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, projectToResponse(project))
}

func (h *Handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := db.ProjectFilters{
		RequestingDepartment: q.Get("department"),
		Search:               q.Get("search"),
	}
	for _, raw := range strings.Split(q.Get("status"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		status, err := db.ParseProjectStatus(raw)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		filters.Statuses = append(filters.Statuses, status)
	}
	if raw := q.Get("minScore"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid minScore")
			return
		}
		filters.MinScoreWeighted = &v
	}
	if raw := q.Get("maxScore"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid maxScore")
			return
		}
		filters.MaxScoreWeighted = &v
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filters.Limit = v
	}
	if raw := q.Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filters.Offset = &v
	}
	switch q.Get("sort") {
	case "", "score_weighted":
		filters.SortField = db.SortByScoreWeighted
	case "score_raw":
		filters.SortField = db.SortByScoreRaw
	case "created_at":
		filters.SortField = db.SortByCreatedAt
	default:
		writeError(w, http.StatusBadRequest, "invalid sort field")
		return
	}
	if q.Get("direction") == "asc" {
		filters.SortDirection = db.SortAsc
	} else {
		filters.SortDirection = db.SortDesc
	}

	projects, err := services.ListProjects(r.Context(), h.store, filters)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	result := make([]projectResponse, 0, len(projects))
	for i := range projects {
		result = append(result, projectToResponse(&projects[i]))
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.store.GetProjectByID(r.Context(), r.PathValue("projectID"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projectToResponse(project))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleUpdateProjectStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, err := db.ParseProjectStatus(req.Status)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	project, err := services.UpdateProjectStatus(r.Context(), h.store, h.logger, r.PathValue("projectID"), status)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projectToResponse(project))
}

// reviewProjectRequest distinguishes an absent field (leave unchanged) from
// an explicit null (clear the override) by whether the key is present.
type reviewProjectRequest struct {
	ImpactScoreConsidered    jsonOptional[int]     `json:"impactScoreConsidered"`
	FrequencyScoreConsidered jsonOptional[int]     `json:"frequencyScoreConsidered"`
	UrgencyLevelConsidered   jsonOptional[string]  `json:"urgencyLevelConsidered"`
	ImpactWeightCustom       jsonOptional[float64] `json:"impactWeightCustom"`
	FrequencyWeightCustom    jsonOptional[float64] `json:"frequencyWeightCustom"`
	UrgencyWeightCustom      jsonOptional[float64] `json:"urgencyWeightCustom"`
	FrequencyNumber          jsonOptional[float64] `json:"frequencyNumber"`
	FrequencyUnit            jsonOptional[string]  `json:"frequencyUnit"`
	DevelopmentPoints        jsonOptional[int]     `json:"developmentPoints"`
	FunctionalPoints         jsonOptional[int]     `json:"functionalPoints"`
	UserPoints               jsonOptional[int]     `json:"userPoints"`
	ManagementComments       jsonOptional[string]  `json:"managementComments"`
}

func (h *Handler) handleReviewProject(w http.ResponseWriter, r *http.Request) {
	var req reviewProjectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := services.ReviewProjectInput{
		ImpactScoreConsidered:    req.ImpactScoreConsidered.override(),
		FrequencyScoreConsidered: req.FrequencyScoreConsidered.override(),
		ImpactWeightCustom:       req.ImpactWeightCustom.override(),
		FrequencyWeightCustom:    req.FrequencyWeightCustom.override(),
		UrgencyWeightCustom:      req.UrgencyWeightCustom.override(),
		DevelopmentPoints:        req.DevelopmentPoints.override(),
		FunctionalPoints:         req.FunctionalPoints.override(),
		UserPoints:               req.UserPoints.override(),
		ManagementComments:       req.ManagementComments.override(),
	}
	if req.FrequencyNumber.Set && req.FrequencyNumber.Value != nil {
		input.FrequencyNumber = req.FrequencyNumber.Value
	}
	if req.FrequencyUnit.Set && req.FrequencyUnit.Value != nil {
		unit, err := db.ParseFrequencyUnit(*req.FrequencyUnit.Value)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		input.FrequencyUnit = &unit
	}
	if req.UrgencyLevelConsidered.Set {
		var override *db.UrgencyLevel
		if req.UrgencyLevelConsidered.Value != nil {
			level, err := db.ParseUrgencyLevel(*req.UrgencyLevelConsidered.Value)
			if err != nil {
				h.writeServiceError(w, err)
				return
			}
			override = &level
		}
		input.UrgencyLevelConsidered = &override
	}

	project, err := services.ReviewProject(r.Context(), h.store, h.logger, r.PathValue("projectID"), input)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projectToResponse(project))
}
