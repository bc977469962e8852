package db

import "time"

// UrgencyLevel classifies how urgent a development request is.
// The set is closed: values enter the system through ParseUrgencyLevel only.
type UrgencyLevel string

const (
	UrgencyHigh   UrgencyLevel = "high"
	UrgencyMedium UrgencyLevel = "medium"
	UrgencyLow    UrgencyLevel = "low"
)

// ParseUrgencyLevel validates a raw urgency value.
func ParseUrgencyLevel(raw string) (UrgencyLevel, error) {
	switch UrgencyLevel(raw) {
	case UrgencyHigh, UrgencyMedium, UrgencyLow:
		return UrgencyLevel(raw), nil
	}
	return "", invalidEnum("urgency level", raw)
}

// ProjectStatus tracks a request through its lifecycle.
type ProjectStatus string

const (
	ProjectNew           ProjectStatus = "new"
	ProjectUnderAnalysis ProjectStatus = "under_analysis"
	ProjectPrioritized   ProjectStatus = "prioritized"
	ProjectInDevelopment ProjectStatus = "in_development"
	ProjectInTesting     ProjectStatus = "in_testing"
	ProjectImplemented   ProjectStatus = "implemented"
	ProjectMaintenance   ProjectStatus = "maintenance"
	ProjectClosed        ProjectStatus = "closed"
	ProjectRejected      ProjectStatus = "rejected"
)

// ParseProjectStatus validates a raw project status value.
func ParseProjectStatus(raw string) (ProjectStatus, error) {
	switch ProjectStatus(raw) {
	case ProjectNew, ProjectUnderAnalysis, ProjectPrioritized, ProjectInDevelopment,
		ProjectInTesting, ProjectImplemented, ProjectMaintenance, ProjectClosed, ProjectRejected:
		return ProjectStatus(raw), nil
	}
	return "", invalidEnum("project status", raw)
}

// SprintStatus is display-only; it never gates allocation operations.
type SprintStatus string

const (
	SprintPlanned SprintStatus = "planned"
	SprintOngoing SprintStatus = "ongoing"
	SprintClosed  SprintStatus = "closed"
)

// ParseSprintStatus validates a raw sprint status value.
func ParseSprintStatus(raw string) (SprintStatus, error) {
	switch SprintStatus(raw) {
	case SprintPlanned, SprintOngoing, SprintClosed:
		return SprintStatus(raw), nil
	}
	return "", invalidEnum("sprint status", raw)
}

// AllocationStatus tracks an allocation within a sprint.
type AllocationStatus string

const (
	AllocationPlanned     AllocationStatus = "planned"
	AllocationInProgress  AllocationStatus = "in_progress"
	AllocationDone        AllocationStatus = "done"
	AllocationCarriedOver AllocationStatus = "carried_over"
)

// ParseAllocationStatus validates a raw allocation status value.
func ParseAllocationStatus(raw string) (AllocationStatus, error) {
	switch AllocationStatus(raw) {
	case AllocationPlanned, AllocationInProgress, AllocationDone, AllocationCarriedOver:
		return AllocationStatus(raw), nil
	}
	return "", invalidEnum("allocation status", raw)
}

// FrequencyUnit is the unit of a structured frequency ("N times per unit").
type FrequencyUnit string

const (
	FrequencyPerDay   FrequencyUnit = "day"
	FrequencyPerWeek  FrequencyUnit = "week"
	FrequencyPerMonth FrequencyUnit = "month"
)

// ParseFrequencyUnit validates a raw frequency unit value.
func ParseFrequencyUnit(raw string) (FrequencyUnit, error) {
	switch FrequencyUnit(raw) {
	case FrequencyPerDay, FrequencyPerWeek, FrequencyPerMonth:
		return FrequencyUnit(raw), nil
	}
	return "", invalidEnum("frequency unit", raw)
}

// PriorityWeights is the weight configuration applied to the three priority
// criteria. Exactly one configuration is active at a time and the three
// components must sum to 1 within WeightSumEpsilon.
type PriorityWeights struct {
	ImpactWeight    float64
	FrequencyWeight float64
	UrgencyWeight   float64
}

// WeightSumEpsilon is the tolerance for the weights-sum-to-one invariant and
// for skipping redundant weighted score writes during recalculation.
const WeightSumEpsilon = 1e-6

// Project is a development request in the backlog.
type Project struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	RequestingDepartment string
	Title                string
	ShortDescription     *string
	ProblemDescription   string
	Context              *string

	ImpactCategories  []string
	ImpactDescription *string
	ImpactScore       int

	FrequencyDescription *string
	FrequencyNumber      *float64
	FrequencyUnit        *FrequencyUnit
	FrequencyScore       int

	UrgencyLevel UrgencyLevel
	UrgencyScore int

	ScoreRaw      int
	ScoreWeighted float64

	// Considered values are team-reviewed replacements for the submitter's
	// scores. When set they supersede the original input, field by field.
	ImpactScoreConsidered    *int
	FrequencyScoreConsidered *int
	UrgencyLevelConsidered   *UrgencyLevel

	// Custom weights override the global weight for a single criterion.
	ImpactWeightCustom    *float64
	FrequencyWeightCustom *float64
	UrgencyWeightCustom   *float64

	HasExternalDependencies  bool
	DependenciesDetail       *string
	OtherDepartmentsInvolved *string

	ContactName       string
	ContactDepartment *string
	ContactEmail      *string
	ContactPhone      *string

	Status                ProjectStatus
	AnalysisStartedAt     *time.Time
	DevelopmentStartedAt  *time.Time
	ImplementedAt         *time.Time
	ClosedAt              *time.Time

	DevelopmentPoints *int
	FunctionalPoints  *int
	UserPoints        *int

	IsReviewedByTeam   bool
	ReviewedAt         *time.Time
	ManagementComments *string
}

// Sprint is a time-boxed iteration with a fixed point budget.
type Sprint struct {
	ID             string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Name           string
	StartDate      time.Time
	EndDate        time.Time
	CapacityPoints int
	Notes          *string
	Status         SprintStatus
}

// Allocation assigns a point quantity from a sprint's capacity to a project.
// At most one allocation exists per (sprint, project) pair.
type Allocation struct {
	ID              string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	SprintID        string
	ProjectID       string
	AllocatedPoints int
	Status          AllocationStatus
	Comments        *string
}
