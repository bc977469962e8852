package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/memstore"
)

func TestCreateSprint(t *testing.T) {
	store := memstore.New()
	logger := zap.NewNop()

	sprint, err := CreateSprint(context.Background(), store, logger, CreateSprintInput{
		Name:           "Sprint 2026-03",
		StartDate:      time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC),
		CapacityPoints: 120,
		Notes:          "first sprint of the quarter",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, sprint.ID)
	assert.Equal(t, db.SprintPlanned, sprint.Status)
	require.NotNil(t, sprint.Notes)
	assert.Equal(t, "first sprint of the quarter", *sprint.Notes)
}

func TestCreateSprint_DateValidation(t *testing.T) {
	store := memstore.New()
	logger := zap.NewNop()

	_, err := CreateSprint(context.Background(), store, logger, CreateSprintInput{
		Name:      "Backwards",
		StartDate: time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	var verr *db.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "endDate")

	_, err = CreateSprint(context.Background(), store, logger, CreateSprintInput{Name: "No dates"})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "startDate")
	assert.Contains(t, verr.Fields, "endDate")
}

func TestUpdateSprint_NegativeCapacity(t *testing.T) {
	store := memstore.New()
	sprint := newSprint(t, store, 100)
	logger := zap.NewNop()

	negative := -10
	_, err := UpdateSprint(context.Background(), store, logger, sprint.ID, db.SprintUpdate{
		CapacityPoints: &negative,
	})
	var verr *db.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "capacityPoints")
}

func TestDeleteSprint_GuardedByAllocations(t *testing.T) {
	store := memstore.New()
	sprint := newSprint(t, store, 100)
	logger := zap.NewNop()
	ctx := context.Background()

	allocation := &db.Allocation{
		SprintID:        sprint.ID,
		ProjectID:       "11111111-1111-1111-1111-111111111111",
		AllocatedPoints: 10,
		Status:          db.AllocationPlanned,
	}
	require.NoError(t, store.InsertAllocationChecked(ctx, allocation))

	err := DeleteSprint(ctx, store, logger, sprint.ID)
	assert.ErrorIs(t, err, db.ErrHasDependents)

	// still there
	_, err = store.GetSprintByID(ctx, sprint.ID)
	assert.NoError(t, err)
}

func TestDeleteSprint_Empty(t *testing.T) {
	store := memstore.New()
	sprint := newSprint(t, store, 100)
	logger := zap.NewNop()
	ctx := context.Background()

	require.NoError(t, DeleteSprint(ctx, store, logger, sprint.ID))

	_, err := store.GetSprintByID(ctx, sprint.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestGetSprintSummary(t *testing.T) {
	store := memstore.New()
	sprint := newSprint(t, store, 100)
	logger := zap.NewNop()
	ctx := context.Background()

	_, err := AllocatePoints(ctx, store, logger, AllocatePointsInput{
		SprintID:        sprint.ID,
		ProjectID:       "11111111-1111-1111-1111-111111111111",
		AllocatedPoints: 30,
	})
	require.NoError(t, err)

	summary, err := GetSprintSummary(ctx, store, sprint.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, summary.AllocatedPoints)
	assert.Equal(t, 70, summary.AvailablePoints)
}

func TestGetSprintSummary_AvailableNeverNegative(t *testing.T) {
	store := memstore.New()
	sprint := newSprint(t, store, 100)
	logger := zap.NewNop()
	ctx := context.Background()

	_, err := AllocatePoints(ctx, store, logger, AllocatePointsInput{
		SprintID:        sprint.ID,
		ProjectID:       "11111111-1111-1111-1111-111111111111",
		AllocatedPoints: 80,
	})
	require.NoError(t, err)

	// capacity lowered under the existing allocation
	smaller := 50
	_, err = store.UpdateSprint(ctx, sprint.ID, db.SprintUpdate{CapacityPoints: &smaller})
	require.NoError(t, err)

	summary, err := GetSprintSummary(ctx, store, sprint.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, summary.AllocatedPoints)
	assert.Equal(t, 0, summary.AvailablePoints)
}

func TestGetSprintDetail_BacklogExcludesAssigned(t *testing.T) {
	store := memstore.New()
	_, err := store.SeedWeights(context.Background(), db.PriorityWeights{
		ImpactWeight:    0.4,
		FrequencyWeight: 0.3,
		UrgencyWeight:   0.3,
	})
	require.NoError(t, err)

	sprint := newSprint(t, store, 100)
	logger := zap.NewNop()
	ctx := context.Background()

	makeProject := func(title string, weighted float64, status db.ProjectStatus) *db.Project {
		p := &db.Project{
			RequestingDepartment: "Sistemas",
			Title:                title,
			ProblemDescription:   "problem",
			ImpactScore:          3,
			FrequencyScore:       3,
			UrgencyLevel:         db.UrgencyMedium,
			UrgencyScore:         2,
			ScoreRaw:             8,
			ScoreWeighted:        weighted,
			ContactName:          "Contact",
			Status:               status,
		}
		require.NoError(t, store.CreateProject(ctx, p))
		return p
	}

	assignedProject := makeProject("Assigned", 4.0, db.ProjectPrioritized)
	topProject := makeProject("Top of backlog", 4.5, db.ProjectPrioritized)
	makeProject("Lower", 2.0, db.ProjectPrioritized)
	makeProject("Still new", 5.0, db.ProjectNew)

	_, err = AllocatePoints(ctx, store, logger, AllocatePointsInput{
		SprintID:        sprint.ID,
		ProjectID:       assignedProject.ID,
		AllocatedPoints: 40,
	})
	require.NoError(t, err)

	detail, err := GetSprintDetail(ctx, store, sprint.ID)
	require.NoError(t, err)

	assert.Equal(t, 40, detail.Summary.AllocatedPoints)
	require.Len(t, detail.Allocations, 1)
	require.NotNil(t, detail.Allocations[0].Project)
	assert.Equal(t, "Assigned", detail.Allocations[0].Project.Title)

	// backlog: prioritized only, assigned excluded, weighted descending
	require.Len(t, detail.Backlog, 2)
	assert.Equal(t, topProject.ID, detail.Backlog[0].ID)
	assert.Equal(t, "Lower", detail.Backlog[1].Title)
}

// flakyProjectStore injects per-project errors into the project fetch.
type flakyProjectStore struct {
	*memstore.Store
	projectErrs map[string]error
}

func (s *flakyProjectStore) GetProjectByID(ctx context.Context, id string) (*db.Project, error) {
	if err, ok := s.projectErrs[id]; ok {
		return nil, err
	}
	return s.Store.GetProjectByID(ctx, id)
}

func TestGetSprintDetail_ProjectFetchErrorSurfaces(t *testing.T) {
	store := memstore.New()
	sprint := newSprint(t, store, 100)
	project := newProject(t, store)
	logger := zap.NewNop()
	ctx := context.Background()

	_, err := AllocatePoints(ctx, store, logger, AllocatePointsInput{
		SprintID:        sprint.ID,
		ProjectID:       project.ID,
		AllocatedPoints: 40,
	})
	require.NoError(t, err)

	flaky := &flakyProjectStore{
		Store:       store,
		projectErrs: map[string]error{project.ID: errors.New("connection reset")},
	}
	_, err = GetSprintDetail(ctx, flaky, sprint.ID)
	var serr *db.StorageError
	require.ErrorAs(t, err, &serr)
}

func TestGetSprintDetail_AllocationAloneExcludesFromBacklog(t *testing.T) {
	store := memstore.New()
	sprint := newSprint(t, store, 100)
	project := newProject(t, store)
	logger := zap.NewNop()
	ctx := context.Background()

	_, err := UpdateProjectStatus(ctx, store, logger, project.ID, db.ProjectPrioritized)
	require.NoError(t, err)

	_, err = AllocatePoints(ctx, store, logger, AllocatePointsInput{
		SprintID:        sprint.ID,
		ProjectID:       project.ID,
		AllocatedPoints: 40,
	})
	require.NoError(t, err)

	// the project record is unreadable but its allocation still keeps it
	// out of the backlog candidates
	flaky := &flakyProjectStore{
		Store:       store,
		projectErrs: map[string]error{project.ID: db.ErrNotFound},
	}
	detail, err := GetSprintDetail(ctx, flaky, sprint.ID)
	require.NoError(t, err)

	require.Len(t, detail.Allocations, 1)
	assert.Nil(t, detail.Allocations[0].Project)
	assert.Empty(t, detail.Backlog)
}
