package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/core/services"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/memstore"
)

func newTestServer(t *testing.T) (*httptest.Server, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	_, err := store.SeedWeights(context.Background(), db.PriorityWeights{
		ImpactWeight:    0.4,
		FrequencyWeight: 0.4,
		UrgencyWeight:   0.2,
	})
	require.NoError(t, err)

	cadence := &services.SprintCadence{
		RRule:          "FREQ=WEEKLY;BYDAY=MO",
		CapacityPoints: 100,
		LengthDays:     5,
		NamePrefix:     "Sprint",
	}
	mux := http.NewServeMux()
	NewHandler(store, nil, cadence, zap.NewNop()).RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, store
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func validProjectBody() map[string]any {
	return map[string]any{
		"requestingDepartment": "Afiliaciones",
		"title":                "Automate enrollment forms",
		"problemDescription":   "Forms are retyped by hand and errors are frequent",
		"impactScore":          5,
		"frequencyNumber":      1,
		"frequencyUnit":        "day",
		"urgencyLevel":         "high",
		"contactName":          "Ana Pérez",
		"contactEmail":         "ana@example.com",
	}
}

func createProject(t *testing.T, server *httptest.Server, body map[string]any) projectResponse {
	t.Helper()
	resp := doJSON(t, http.MethodPost, server.URL+"/api/projects", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created projectResponse
	decodeInto(t, resp, &created)
	return created
}

func createSprint(t *testing.T, server *httptest.Server, name string, capacity int) sprintResponse {
	t.Helper()
	resp := doJSON(t, http.MethodPost, server.URL+"/api/sprints", map[string]any{
		"name":           name,
		"startDate":      time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		"endDate":        time.Date(2026, 9, 11, 0, 0, 0, 0, time.UTC),
		"capacityPoints": capacity,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created sprintResponse
	decodeInto(t, resp, &created)
	return created
}

func TestCreateProjectEndpoint(t *testing.T) {
	server, store := newTestServer(t)

	created := createProject(t, server, validProjectBody())
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "new", created.Status)
	assert.Equal(t, 4, created.FrequencyScore)
	assert.Equal(t, 12, created.ScoreRaw)
	assert.InDelta(t, 4.2, created.ScoreWeighted, 1e-9)

	saved, err := store.GetProjectByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, saved.Title)
}

func TestCreateProjectEndpoint_ValidationFields(t *testing.T) {
	server, _ := newTestServer(t)

	body := validProjectBody()
	body["title"] = ""
	body["impactScore"] = 9
	resp := doJSON(t, http.MethodPost, server.URL+"/api/projects", body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp struct {
		Error  string              `json:"error"`
		Fields map[string][]string `json:"fields"`
	}
	decodeInto(t, resp, &errResp)
	assert.Equal(t, "validation failed", errResp.Error)
	assert.Contains(t, errResp.Fields, "title")
	assert.Contains(t, errResp.Fields, "impactScore")
}

func TestCreateProjectEndpoint_UnknownField(t *testing.T) {
	server, _ := newTestServer(t)

	body := validProjectBody()
	body["surpriseField"] = true
	resp := doJSON(t, http.MethodPost, server.URL+"/api/projects", body)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetProjectEndpoint_NotFound(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/projects/no-such-id", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListProjectsEndpoint_FilterAndSort(t *testing.T) {
	server, _ := newTestServer(t)

	high := validProjectBody()
	createProject(t, server, high)

	low := validProjectBody()
	low["title"] = "Archive old records"
	low["impactScore"] = 1
	low["urgencyLevel"] = "low"
	low["frequencyNumber"] = 1
	low["frequencyUnit"] = "month"
	createProject(t, server, low)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/projects?sort=score_weighted", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var projects []projectResponse
	decodeInto(t, resp, &projects)
	require.Len(t, projects, 2)
	assert.Equal(t, "Automate enrollment forms", projects[0].Title)
	assert.Equal(t, "Archive old records", projects[1].Title)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/projects?search=archive", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &projects)
	require.Len(t, projects, 1)
	assert.Equal(t, "Archive old records", projects[0].Title)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/projects?status=bogus", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateProjectStatusEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	created := createProject(t, server, validProjectBody())

	resp := doJSON(t, http.MethodPatch, server.URL+"/api/projects/"+created.ID+"/status", map[string]any{
		"status": "under_analysis",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated projectResponse
	decodeInto(t, resp, &updated)
	assert.Equal(t, "under_analysis", updated.Status)
	require.NotNil(t, updated.AnalysisStartedAt)

	resp = doJSON(t, http.MethodPatch, server.URL+"/api/projects/"+created.ID+"/status", map[string]any{
		"status": "not_a_status",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReviewProjectEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	created := createProject(t, server, validProjectBody())

	resp := doJSON(t, http.MethodPatch, server.URL+"/api/projects/"+created.ID+"/review", map[string]any{
		"impactScoreConsidered": 3,
		"developmentPoints":     8,
		"functionalPoints":      4,
		"userPoints":            3,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reviewed projectResponse
	decodeInto(t, resp, &reviewed)

	require.NotNil(t, reviewed.ImpactScoreConsidered)
	assert.Equal(t, 3, *reviewed.ImpactScoreConsidered)
	assert.True(t, reviewed.IsReviewedByTeam)
	// considered impact 3 supersedes the submitted 5
	assert.Equal(t, 10, reviewed.ScoreRaw)
	require.NotNil(t, reviewed.TotalPoints)
	assert.Equal(t, 15, *reviewed.TotalPoints)
	assert.Equal(t, "2.0 weeks", reviewed.EstimatedTime)

	// explicit null clears the override again
	resp = doJSON(t, http.MethodPatch, server.URL+"/api/projects/"+created.ID+"/review", map[string]any{
		"impactScoreConsidered": nil,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reviewed = projectResponse{}
	decodeInto(t, resp, &reviewed)
	assert.Nil(t, reviewed.ImpactScoreConsidered)
	assert.Equal(t, 12, reviewed.ScoreRaw)
}

func TestWeightsEndpoints(t *testing.T) {
	server, _ := newTestServer(t)
	createProject(t, server, validProjectBody())

	resp := doJSON(t, http.MethodGet, server.URL+"/api/weights", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var weights weightsResponse
	decodeInto(t, resp, &weights)
	assert.InDelta(t, 0.4, weights.ImpactWeight, 1e-9)

	resp = doJSON(t, http.MethodPut, server.URL+"/api/weights", map[string]any{
		"impactWeight":    0.5,
		"frequencyWeight": 0.3,
		"urgencyWeight":   0.2,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated updateWeightsResponse
	decodeInto(t, resp, &updated)
	assert.InDelta(t, 0.5, updated.Weights.ImpactWeight, 1e-9)
	require.Len(t, updated.Projects, 1)
	// 5*0.5 + 4*0.3 + 3*0.2
	assert.InDelta(t, 4.3, updated.Projects[0].ScoreWeighted, 1e-9)
	assert.Empty(t, updated.Failures)

	resp = doJSON(t, http.MethodPut, server.URL+"/api/weights", map[string]any{
		"impactWeight":    0.9,
		"frequencyWeight": 0.9,
		"urgencyWeight":   0.9,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSprintEndpoints(t *testing.T) {
	server, _ := newTestServer(t)
	sprint := createSprint(t, server, "Sprint 2026-37", 100)
	assert.Equal(t, "planned", sprint.Status)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/sprints", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summaries []sprintSummaryResponse
	decodeInto(t, resp, &summaries)
	require.Len(t, summaries, 1)
	assert.Equal(t, 0, summaries[0].AllocatedPoints)
	assert.Equal(t, 100, summaries[0].AvailablePoints)

	resp = doJSON(t, http.MethodPatch, server.URL+"/api/sprints/"+sprint.ID, map[string]any{
		"status": "ongoing",
		"notes":  "kickoff done",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated sprintResponse
	decodeInto(t, resp, &updated)
	assert.Equal(t, "ongoing", updated.Status)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "kickoff done", *updated.Notes)

	resp = doJSON(t, http.MethodDelete, server.URL+"/api/sprints/"+sprint.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/sprints/"+sprint.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSprintDetailEndpoint(t *testing.T) {
	server, store := newTestServer(t)
	sprint := createSprint(t, server, "Sprint 2026-37", 100)

	assigned := createProject(t, server, validProjectBody())
	backlogBody := validProjectBody()
	backlogBody["title"] = "Digitize paper archive"
	backlog := createProject(t, server, backlogBody)

	for _, id := range []string{assigned.ID, backlog.ID} {
		resp := doJSON(t, http.MethodPatch, server.URL+"/api/projects/"+id+"/status", map[string]any{
			"status": "prioritized",
		})
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := doJSON(t, http.MethodPost, server.URL+"/api/allocations", map[string]any{
		"sprintId":        sprint.ID,
		"projectId":       assigned.ID,
		"allocatedPoints": 30,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/sprints/"+sprint.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail sprintDetailResponse
	decodeInto(t, resp, &detail)

	assert.Equal(t, 30, detail.AllocatedPoints)
	assert.Equal(t, 70, detail.AvailablePoints)
	require.Len(t, detail.Allocations, 1)
	require.NotNil(t, detail.Allocations[0].Project)
	assert.Equal(t, assigned.ID, detail.Allocations[0].Project.ID)
	require.Len(t, detail.Backlog, 1)
	assert.Equal(t, backlog.ID, detail.Backlog[0].ID)

	// the store still holds both projects as prioritized
	p, err := store.GetProjectByID(context.Background(), assigned.ID)
	require.NoError(t, err)
	assert.Equal(t, db.ProjectPrioritized, p.Status)
}

func TestAllocationEndpoints_CapacityAndDuplicates(t *testing.T) {
	server, _ := newTestServer(t)
	sprint := createSprint(t, server, "Sprint 2026-37", 50)
	project := createProject(t, server, validProjectBody())

	resp := doJSON(t, http.MethodPost, server.URL+"/api/allocations", map[string]any{
		"sprintId":        sprint.ID,
		"projectId":       project.ID,
		"allocatedPoints": 40,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var allocation allocationResponse
	decodeInto(t, resp, &allocation)
	assert.Equal(t, "planned", allocation.Status)

	// the pair is already allocated
	resp = doJSON(t, http.MethodPost, server.URL+"/api/allocations", map[string]any{
		"sprintId":        sprint.ID,
		"projectId":       project.ID,
		"allocatedPoints": 5,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	other := validProjectBody()
	other["title"] = "Another request"
	otherProject := createProject(t, server, other)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/allocations", map[string]any{
		"sprintId":        sprint.ID,
		"projectId":       otherProject.ID,
		"allocatedPoints": 11,
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	var errResp struct {
		Error string `json:"error"`
	}
	decodeInto(t, resp, &errResp)
	assert.Equal(t, "sprint capacity exceeded", errResp.Error)

	resp = doJSON(t, http.MethodPatch, server.URL+"/api/allocations/"+allocation.ID, map[string]any{
		"allocatedPoints": 50,
		"status":          "in_progress",
		"comments":        "pulled forward",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated allocationResponse
	decodeInto(t, resp, &updated)
	assert.Equal(t, 50, updated.AllocatedPoints)
	assert.Equal(t, "in_progress", updated.Status)
	require.NotNil(t, updated.Comments)
	assert.Equal(t, "pulled forward", *updated.Comments)

	resp = doJSON(t, http.MethodPatch, server.URL+"/api/allocations/"+allocation.ID, map[string]any{
		"comments": nil,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated = allocationResponse{}
	decodeInto(t, resp, &updated)
	assert.Nil(t, updated.Comments)
}

func TestDeleteSprintEndpoint_WithAllocations(t *testing.T) {
	server, _ := newTestServer(t)
	sprint := createSprint(t, server, "Sprint 2026-37", 100)
	project := createProject(t, server, validProjectBody())

	resp := doJSON(t, http.MethodPost, server.URL+"/api/allocations", map[string]any{
		"sprintId":        sprint.ID,
		"projectId":       project.ID,
		"allocatedPoints": 20,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, server.URL+"/api/sprints/"+sprint.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGenerateSprintsEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/sprints/generate", map[string]any{"count": 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sprints []sprintResponse
	decodeInto(t, resp, &sprints)
	require.Len(t, sprints, 2)
	for i, s := range sprints {
		assert.Equal(t, time.Monday, s.StartDate.Weekday(), fmt.Sprintf("sprint %d", i))
		assert.Equal(t, 100, s.CapacityPoints)
		assert.Equal(t, "planned", s.Status)
	}
	assert.True(t, sprints[1].StartDate.After(sprints[0].StartDate))
}

func TestGenerateSprintsEndpoint_NotConfigured(t *testing.T) {
	store := memstore.New()
	mux := http.NewServeMux()
	NewHandler(store, nil, nil, zap.NewNop()).RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/sprints/generate", map[string]any{"count": 2})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestGetWeightsEndpoint_NotConfigured(t *testing.T) {
	store := memstore.New()
	mux := http.NewServeMux()
	NewHandler(store, nil, nil, zap.NewNop()).RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/weights", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
