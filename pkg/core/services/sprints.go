package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

// BacklogLimit caps the candidate projects shown for a sprint.
const BacklogLimit = 100

// SprintsStore defines the database operations needed for sprint management
// and the sprint detail view.
type SprintsStore interface {
	CreateSprint(ctx context.Context, s *db.Sprint) error
	GetSprintByID(ctx context.Context, id string) (*db.Sprint, error)
	ListSprints(ctx context.Context) ([]db.Sprint, error)
	UpdateSprint(ctx context.Context, id string, u db.SprintUpdate) (*db.Sprint, error)
	DeleteSprint(ctx context.Context, id string) error
	ListAllocationsBySprint(ctx context.Context, sprintID string) ([]db.Allocation, error)
	TotalAllocatedPoints(ctx context.Context, sprintID string) (int, error)
	GetProjectByID(ctx context.Context, id string) (*db.Project, error)
	ListProjects(ctx context.Context, f db.ProjectFilters) ([]db.Project, error)
}

// SprintSummary is the capacity view of one sprint.
type SprintSummary struct {
	Sprint          db.Sprint
	AllocatedPoints int
	AvailablePoints int
}

// AllocationWithProject pairs an allocation with its project for display.
type AllocationWithProject struct {
	Allocation db.Allocation
	Project    *db.Project
}

// SprintDetail is the full planning view of a sprint: its capacity summary,
// its allocations, and the backlog of assignable projects.
type SprintDetail struct {
	Summary     SprintSummary
	Allocations []AllocationWithProject
	Backlog     []db.Project
}

// CreateSprintInput creates a new sprint.
type CreateSprintInput struct {
	Name           string `validate:"required"`
	StartDate      time.Time
	EndDate        time.Time
	CapacityPoints int `validate:"min=0"`
	Notes          string
	Status         string `validate:"omitempty,oneof=planned ongoing closed"`
}

// CreateSprint validates and persists a sprint, defaulting status to planned.
func CreateSprint(ctx context.Context, store SprintsStore, logger *zap.Logger, input CreateSprintInput) (*db.Sprint, error) {
	if err := structValidationError(validate.Struct(input)); err != nil {
		return nil, err
	}
	verr := db.NewValidationError()
	if input.StartDate.IsZero() {
		verr.Add("startDate", "is required")
	}
	if input.EndDate.IsZero() {
		verr.Add("endDate", "is required")
	}
	if !input.StartDate.IsZero() && !input.EndDate.IsZero() && input.EndDate.Before(input.StartDate) {
		verr.Add("endDate", "must not be before the start date")
	}
	if !verr.Empty() {
		return nil, verr
	}

	status := db.SprintPlanned
	if input.Status != "" {
		parsed, err := db.ParseSprintStatus(input.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}

	sprint := &db.Sprint{
		Name:           input.Name,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		CapacityPoints: input.CapacityPoints,
		Notes:          optionalString(input.Notes),
		Status:         status,
	}
	if err := store.CreateSprint(ctx, sprint); err != nil {
		return nil, db.WrapStorage("create sprint", err)
	}
	logger.Info("Sprint created",
		zap.String("sprint_id", sprint.ID),
		zap.String("name", sprint.Name),
		zap.Int("capacity_points", sprint.CapacityPoints))
	return sprint, nil
}

// UpdateSprint applies a partial update to a sprint.
func UpdateSprint(ctx context.Context, store SprintsStore, logger *zap.Logger, id string, update db.SprintUpdate) (*db.Sprint, error) {
	if update.CapacityPoints != nil && *update.CapacityPoints < 0 {
		verr := db.NewValidationError()
		verr.Add("capacityPoints", "must not be negative")
		return nil, verr
	}
	sprint, err := store.UpdateSprint(ctx, id, update)
	if err != nil {
		return nil, db.WrapStorage("update sprint", err)
	}
	logger.Info("Sprint updated", zap.String("sprint_id", sprint.ID))
	return sprint, nil
}

// DeleteSprint removes a sprint. It fails with ErrHasDependents while any
// allocation still references it.
func DeleteSprint(ctx context.Context, store SprintsStore, logger *zap.Logger, id string) error {
	if err := store.DeleteSprint(ctx, id); err != nil {
		return db.WrapStorage("delete sprint", err)
	}
	logger.Info("Sprint deleted", zap.String("sprint_id", id))
	return nil
}

// GetSprintSummary computes the allocated and available points of a sprint.
// Available points never go below zero even if capacity was lowered under
// existing allocations.
func GetSprintSummary(ctx context.Context, store SprintsStore, sprintID string) (*SprintSummary, error) {
	sprint, err := store.GetSprintByID(ctx, sprintID)
	if err != nil {
		return nil, db.WrapStorage("get sprint", err)
	}
	allocated, err := store.TotalAllocatedPoints(ctx, sprintID)
	if err != nil {
		return nil, db.WrapStorage("total allocated points", err)
	}
	available := sprint.CapacityPoints - allocated
	if available < 0 {
		available = 0
	}
	return &SprintSummary{
		Sprint:          *sprint,
		AllocatedPoints: allocated,
		AvailablePoints: available,
	}, nil
}

// ListSprintSummaries returns every sprint with its capacity summary,
// ordered by start date.
func ListSprintSummaries(ctx context.Context, store SprintsStore) ([]SprintSummary, error) {
	sprints, err := store.ListSprints(ctx)
	if err != nil {
		return nil, db.WrapStorage("list sprints", err)
	}
	summaries := make([]SprintSummary, 0, len(sprints))
	for _, sprint := range sprints {
		allocated, err := store.TotalAllocatedPoints(ctx, sprint.ID)
		if err != nil {
			return nil, db.WrapStorage("total allocated points", err)
		}
		available := sprint.CapacityPoints - allocated
		if available < 0 {
			available = 0
		}
		summaries = append(summaries, SprintSummary{
			Sprint:          sprint,
			AllocatedPoints: allocated,
			AvailablePoints: available,
		})
	}
	return summaries, nil
}

// GetSprintDetail builds the planning view of a sprint. The backlog contains
// the highest-ranked prioritized projects that do not already have an
// allocation in this sprint, by weighted score descending.
func GetSprintDetail(ctx context.Context, store SprintsStore, sprintID string) (*SprintDetail, error) {
	summary, err := GetSprintSummary(ctx, store, sprintID)
	if err != nil {
		return nil, err
	}

	allocations, err := store.ListAllocationsBySprint(ctx, sprintID)
	if err != nil {
		return nil, db.WrapStorage("list sprint allocations", err)
	}

	withProjects := make([]AllocationWithProject, 0, len(allocations))
	assigned := make(map[string]bool, len(allocations))
	for _, allocation := range allocations {
		// the allocation alone keeps the project out of the backlog,
		// whatever happens to the project fetch
		assigned[allocation.ProjectID] = true
		entry := AllocationWithProject{Allocation: allocation}
		project, err := store.GetProjectByID(ctx, allocation.ProjectID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return nil, db.WrapStorage("load allocated project", err)
		}
		if err == nil {
			entry.Project = project
		}
		withProjects = append(withProjects, entry)
	}

	candidates, err := store.ListProjects(ctx, db.ProjectFilters{
		Statuses:      []db.ProjectStatus{db.ProjectPrioritized},
		Limit:         BacklogLimit,
		SortField:     db.SortByScoreWeighted,
		SortDirection: db.SortDesc,
	})
	if err != nil {
		return nil, db.WrapStorage("list backlog projects", err)
	}
	backlog := make([]db.Project, 0, len(candidates))
	for _, project := range candidates {
		if !assigned[project.ID] {
			backlog = append(backlog, project)
		}
	}

	return &SprintDetail{
		Summary:     *summary,
		Allocations: withProjects,
		Backlog:     backlog,
	}, nil
}
