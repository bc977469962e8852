package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/core/scoring"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

// ProjectsStore defines the database operations needed for project listing,
// status transitions and team review.
type ProjectsStore interface {
	GetActiveWeights(ctx context.Context) (db.PriorityWeights, error)
	GetProjectByID(ctx context.Context, id string) (*db.Project, error)
	ListProjects(ctx context.Context, f db.ProjectFilters) ([]db.Project, error)
	UpdateProject(ctx context.Context, id string, u db.ProjectUpdate) (*db.Project, error)
}

// ListProjects lists the backlog with the store's filters, defaulting to
// weighted score descending.
func ListProjects(ctx context.Context, store ProjectsStore, filters db.ProjectFilters) ([]db.Project, error) {
	if filters.SortField == "" {
		filters.SortField = db.SortByScoreWeighted
	}
	if filters.SortDirection == "" {
		filters.SortDirection = db.SortDesc
	}
	projects, err := store.ListProjects(ctx, filters)
	if err != nil {
		return nil, db.WrapStorage("list projects", err)
	}
	return projects, nil
}

// UpdateProjectStatus moves a project to a new lifecycle status, stamping
// the matching milestone timestamp the first time each stage is reached.
func UpdateProjectStatus(
	ctx context.Context,
	store ProjectsStore,
	logger *zap.Logger,
	projectID string,
	newStatus db.ProjectStatus,
) (*db.Project, error) {
	project, err := store.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, db.WrapStorage("get project", err)
	}

	now := time.Now()
	update := db.ProjectUpdate{Status: &newStatus}
	switch newStatus {
	case db.ProjectUnderAnalysis:
		if project.AnalysisStartedAt == nil {
			stamp := &now
			update.AnalysisStartedAt = &stamp
		}
	case db.ProjectInDevelopment:
		if project.DevelopmentStartedAt == nil {
			stamp := &now
			update.DevelopmentStartedAt = &stamp
		}
	case db.ProjectImplemented:
		if project.ImplementedAt == nil {
			stamp := &now
			update.ImplementedAt = &stamp
		}
	case db.ProjectClosed, db.ProjectRejected:
		if project.ClosedAt == nil {
			stamp := &now
			update.ClosedAt = &stamp
		}
	}

	updated, err := store.UpdateProject(ctx, projectID, update)
	if err != nil {
		return nil, db.WrapStorage("update project status", err)
	}
	logger.Info("Project status updated",
		zap.String("project_id", projectID),
		zap.String("status", string(newStatus)))
	return updated, nil
}

// ReviewProjectInput carries the team review of a project: considered
// replacement values for the submitted scores and optional per-project
// weight overrides. A nil field leaves the stored value unchanged; an inner
// nil clears the override.
type ReviewProjectInput struct {
	ImpactScoreConsidered    **int
	FrequencyScoreConsidered **int
	UrgencyLevelConsidered   **db.UrgencyLevel

	ImpactWeightCustom    **float64
	FrequencyWeightCustom **float64
	UrgencyWeightCustom   **float64

	FrequencyNumber *float64
	FrequencyUnit   *db.FrequencyUnit

	DevelopmentPoints  **int
	FunctionalPoints   **int
	UserPoints         **int
	ManagementComments **string
}

// ReviewProject applies a team review and recomputes the raw and weighted
// scores under the effective-input/effective-weight rule. The project is
// marked reviewed whenever any considered value is in effect afterwards.
func ReviewProject(
	ctx context.Context,
	store ProjectsStore,
	logger *zap.Logger,
	projectID string,
	input ReviewProjectInput,
) (*db.Project, error) {
	project, err := store.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, db.WrapStorage("get project", err)
	}

	verr := db.NewValidationError()
	checkScore := func(field string, v **int) {
		if v != nil && *v != nil && (**v < 1 || **v > 5) {
			verr.Add(field, "must be between 1 and 5")
		}
	}
	checkScore("impactScoreConsidered", input.ImpactScoreConsidered)
	checkScore("frequencyScoreConsidered", input.FrequencyScoreConsidered)
	checkWeight := func(field string, v **float64) {
		if v != nil && *v != nil && (**v < 0 || **v > 1) {
			verr.Add(field, "must be between 0 and 1")
		}
	}
	checkWeight("impactWeightCustom", input.ImpactWeightCustom)
	checkWeight("frequencyWeightCustom", input.FrequencyWeightCustom)
	checkWeight("urgencyWeightCustom", input.UrgencyWeightCustom)
	if !verr.Empty() {
		return nil, verr
	}

	// Apply the review onto a working copy so the recomputed scores reflect
	// exactly what will be stored.
	if input.ImpactScoreConsidered != nil {
		project.ImpactScoreConsidered = *input.ImpactScoreConsidered
	}
	if input.FrequencyScoreConsidered != nil {
		project.FrequencyScoreConsidered = *input.FrequencyScoreConsidered
	}
	if input.UrgencyLevelConsidered != nil {
		project.UrgencyLevelConsidered = *input.UrgencyLevelConsidered
	}
	if input.ImpactWeightCustom != nil {
		project.ImpactWeightCustom = *input.ImpactWeightCustom
	}
	if input.FrequencyWeightCustom != nil {
		project.FrequencyWeightCustom = *input.FrequencyWeightCustom
	}
	if input.UrgencyWeightCustom != nil {
		project.UrgencyWeightCustom = *input.UrgencyWeightCustom
	}
	if input.FrequencyNumber != nil && input.FrequencyUnit != nil {
		project.FrequencyNumber = input.FrequencyNumber
		project.FrequencyUnit = input.FrequencyUnit
		score := scoring.DeriveFrequencyScore(*input.FrequencyNumber, *input.FrequencyUnit)
		project.FrequencyScore = score
	}

	weights, err := store.GetActiveWeights(ctx)
	if err != nil {
		return nil, db.WrapStorage("get active weights", err)
	}
	scoreRaw, err := scoring.ProjectRawScore(project)
	if err != nil {
		return nil, err
	}
	scoreWeighted, err := scoring.ProjectWeightedScore(project, weights)
	if err != nil {
		return nil, err
	}

	reviewed := project.ImpactScoreConsidered != nil ||
		project.FrequencyScoreConsidered != nil ||
		project.UrgencyLevelConsidered != nil

	update := db.ProjectUpdate{
		ImpactScoreConsidered:    input.ImpactScoreConsidered,
		FrequencyScoreConsidered: input.FrequencyScoreConsidered,
		UrgencyLevelConsidered:   input.UrgencyLevelConsidered,
		ImpactWeightCustom:       input.ImpactWeightCustom,
		FrequencyWeightCustom:    input.FrequencyWeightCustom,
		UrgencyWeightCustom:      input.UrgencyWeightCustom,
		FrequencyNumber:          input.FrequencyNumber,
		FrequencyUnit:            input.FrequencyUnit,
		ScoreRaw:                 &scoreRaw,
		ScoreWeighted:            &scoreWeighted,
		DevelopmentPoints:        input.DevelopmentPoints,
		FunctionalPoints:         input.FunctionalPoints,
		UserPoints:               input.UserPoints,
		ManagementComments:       input.ManagementComments,
		IsReviewedByTeam:         &reviewed,
	}
	if input.FrequencyNumber != nil && input.FrequencyUnit != nil {
		update.FrequencyScore = &project.FrequencyScore
	}
	if reviewed {
		now := time.Now()
		stamp := &now
		update.ReviewedAt = &stamp
	} else {
		var cleared *time.Time
		update.ReviewedAt = &cleared
	}

	updated, err := store.UpdateProject(ctx, projectID, update)
	if err != nil {
		return nil, db.WrapStorage("apply project review", err)
	}
	logger.Info("Project review applied",
		zap.String("project_id", projectID),
		zap.Int("score_raw", updated.ScoreRaw),
		zap.Float64("score_weighted", updated.ScoreWeighted))
	return updated, nil
}
