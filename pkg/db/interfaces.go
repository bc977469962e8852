package db

import (
	"context"
	"time"
)

// SortDirection orders list results.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ProjectSortField selects the project list ordering key.
type ProjectSortField string

const (
	SortByScoreWeighted ProjectSortField = "score_weighted"
	SortByScoreRaw      ProjectSortField = "score_raw"
	SortByCreatedAt     ProjectSortField = "created_at"
)

// DefaultListLimit caps project listings when a limit is not supplied
// together with an offset.
const DefaultListLimit = 100

// ProjectFilters narrows and orders a project listing.
type ProjectFilters struct {
	RequestingDepartment string
	Statuses             []ProjectStatus
	// Search matches title and short description case-insensitively.
	Search           string
	MinScoreWeighted *float64
	MaxScoreWeighted *float64
	Limit            int
	Offset           *int
	SortField        ProjectSortField
	SortDirection    SortDirection
}

// ProjectUpdate applies partial changes to a project. Nil fields are left
// unchanged; double pointers distinguish "clear" from "leave alone".
type ProjectUpdate struct {
	Status               *ProjectStatus
	AnalysisStartedAt    **time.Time
	DevelopmentStartedAt **time.Time
	ImplementedAt        **time.Time
	ClosedAt             **time.Time

	ImpactScoreConsidered    **int
	FrequencyScoreConsidered **int
	UrgencyLevelConsidered   **UrgencyLevel

	ImpactWeightCustom    **float64
	FrequencyWeightCustom **float64
	UrgencyWeightCustom   **float64

	FrequencyNumber *float64
	FrequencyUnit   *FrequencyUnit
	FrequencyScore  *int

	ScoreRaw      *int
	ScoreWeighted *float64

	DevelopmentPoints **int
	FunctionalPoints  **int
	UserPoints        **int

	IsReviewedByTeam   *bool
	ReviewedAt         **time.Time
	ManagementComments **string
}

// SprintUpdate applies partial changes to a sprint.
type SprintUpdate struct {
	Name           *string
	StartDate      *time.Time
	EndDate        *time.Time
	CapacityPoints *int
	Notes          **string
	Status         *SprintStatus
}

// AllocationUpdate applies partial changes to an allocation. The capacity
// check on a points change excludes the allocation's previous points.
type AllocationUpdate struct {
	AllocatedPoints *int
	Status          *AllocationStatus
	Comments        **string
}

// WeightsStore owns the single active priority weights configuration.
type WeightsStore interface {
	// GetActiveWeights returns ErrNotConfigured when no configuration exists.
	GetActiveWeights(ctx context.Context) (PriorityWeights, error)
	// UpdateActiveWeights replaces the active configuration atomically: no
	// reader ever observes a partially updated set.
	UpdateActiveWeights(ctx context.Context, w PriorityWeights) (PriorityWeights, error)
	// SeedWeights installs an active configuration when none exists yet.
	SeedWeights(ctx context.Context, w PriorityWeights) (PriorityWeights, error)
}

// ProjectStore persists development requests.
type ProjectStore interface {
	CreateProject(ctx context.Context, p *Project) error
	// GetProjectByID returns ErrNotFound when the project does not exist.
	GetProjectByID(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context, f ProjectFilters) ([]Project, error)
	// UpdateProject returns ErrNotFound when the project does not exist.
	UpdateProject(ctx context.Context, id string, u ProjectUpdate) (*Project, error)
	// UpdateProjectWeightedScore writes a recalculated score only when the
	// project is still at expectedUpdatedAt; otherwise it returns ErrConflict
	// so the caller can re-read and retry.
	UpdateProjectWeightedScore(ctx context.Context, id string, score float64, expectedUpdatedAt time.Time) error
}

// SprintStore persists sprints.
type SprintStore interface {
	CreateSprint(ctx context.Context, s *Sprint) error
	// GetSprintByID returns ErrNotFound when the sprint does not exist.
	GetSprintByID(ctx context.Context, id string) (*Sprint, error)
	ListSprints(ctx context.Context) ([]Sprint, error)
	UpdateSprint(ctx context.Context, id string, u SprintUpdate) (*Sprint, error)
	// DeleteSprint returns ErrHasDependents while any allocation references
	// the sprint, and ErrNotFound when it does not exist.
	DeleteSprint(ctx context.Context, id string) error
}

// AllocationStore persists sprint allocations. The check-then-write of the
// capacity invariant happens inside the store so each backend can serialize
// it with its strongest primitive (a row lock in postgres, a mutex in the
// in-memory fallback).
type AllocationStore interface {
	// InsertAllocationChecked creates the allocation after verifying, inside
	// one critical section per sprint, that the sprint exists (ErrNotFound),
	// the (sprint, project) pair is unallocated (ErrDuplicateAllocation) and
	// the sprint's total stays within capacity (ErrCapacityExceeded).
	InsertAllocationChecked(ctx context.Context, a *Allocation) error
	// UpdateAllocationChecked applies a partial update; a points change is
	// capacity-checked with the allocation's previous points excluded from
	// the total.
	UpdateAllocationChecked(ctx context.Context, id string, u AllocationUpdate) (*Allocation, error)
	GetAllocationByID(ctx context.Context, id string) (*Allocation, error)
	GetAllocationBySprintAndProject(ctx context.Context, sprintID, projectID string) (*Allocation, error)
	ListAllocationsBySprint(ctx context.Context, sprintID string) ([]Allocation, error)
	ListAllocationsByProject(ctx context.Context, projectID string) ([]Allocation, error)
	TotalAllocatedPoints(ctx context.Context, sprintID string) (int, error)
}

// Store is the full persistence contract. Two implementations exist:
// pkg/postgres for a configured database and pkg/memstore as the
// process-lifetime fallback. The choice is made once at startup.
type Store interface {
	WeightsStore
	ProjectStore
	SprintStore
	AllocationStore
}
