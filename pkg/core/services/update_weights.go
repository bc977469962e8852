package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/core/scoring"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

// UpdateWeightsStore defines the database operations needed to update the
// active weights and recalculate the backlog.
type UpdateWeightsStore interface {
	UpdateActiveWeights(ctx context.Context, w db.PriorityWeights) (db.PriorityWeights, error)
	ListProjects(ctx context.Context, f db.ProjectFilters) ([]db.Project, error)
	GetProjectByID(ctx context.Context, id string) (*db.Project, error)
	UpdateProjectWeightedScore(ctx context.Context, id string, score float64, expectedUpdatedAt time.Time) error
}

// RecalcFailure reports one project the bulk recalculation could not refresh.
type RecalcFailure struct {
	ProjectID string
	Err       error
}

// UpdateWeightsResult is the outcome of a successful weight update: the new
// active weights, the refreshed backlog sorted by weighted score descending,
// and any per-project recalculation failures (the batch is best-effort).
type UpdateWeightsResult struct {
	Weights  db.PriorityWeights
	Projects []db.Project
	Failures []RecalcFailure
}

// ValidateWeights checks each component is within [0,1] and that the three
// sum to 1 within db.WeightSumEpsilon. Every offending field is reported.
func ValidateWeights(w db.PriorityWeights) error {
	verr := db.NewValidationError()
	components := []struct {
		field string
		value float64
	}{
		{"impactWeight", w.ImpactWeight},
		{"frequencyWeight", w.FrequencyWeight},
		{"urgencyWeight", w.UrgencyWeight},
	}
	for _, c := range components {
		if c.value < 0 {
			verr.Add(c.field, "must not be negative")
		}
		if c.value > 1 {
			verr.Add(c.field, "must not exceed 1")
		}
	}
	sum := w.ImpactWeight + w.FrequencyWeight + w.UrgencyWeight
	if math.Abs(sum-1) > db.WeightSumEpsilon {
		for _, c := range components {
			verr.Add(c.field, "the three weights must sum to 1")
		}
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

// UpdateWeights validates and atomically swaps the active weight
// configuration, then recomputes every project's weighted score under the
// effective-input/effective-weight rule. Scores are persisted only when they
// move by more than db.WeightSumEpsilon, a compare-and-set conflict is
// retried once per project, and a failure on one project never aborts the
// rest of the batch.
func UpdateWeights(
	ctx context.Context,
	store UpdateWeightsStore,
	logger *zap.Logger,
	newWeights db.PriorityWeights,
) (*UpdateWeightsResult, error) {
	if err := ValidateWeights(newWeights); err != nil {
		return nil, err
	}

	active, err := store.UpdateActiveWeights(ctx, newWeights)
	if err != nil {
		return nil, db.WrapStorage("update active weights", err)
	}
	logger.Info("Active priority weights updated",
		zap.Float64("impact", active.ImpactWeight),
		zap.Float64("frequency", active.FrequencyWeight),
		zap.Float64("urgency", active.UrgencyWeight))

	// The full backlog, not a page: any project's rank can change.
	projects, err := store.ListProjects(ctx, db.ProjectFilters{
		SortField:     db.SortByScoreWeighted,
		SortDirection: db.SortDesc,
	})
	if err != nil {
		return nil, db.WrapStorage("list projects for recalculation", err)
	}

	var failures []RecalcFailure
	recalculated := 0
	for i := range projects {
		if err := recalcProject(ctx, store, active, &projects[i]); err != nil {
			logger.Warn("Failed to recalculate project score",
				zap.String("project_id", projects[i].ID),
				zap.Error(err))
			failures = append(failures, RecalcFailure{ProjectID: projects[i].ID, Err: err})
			continue
		}
		recalculated++
	}
	logger.Info("Backlog recalculated",
		zap.Int("projects", len(projects)),
		zap.Int("ok", recalculated),
		zap.Int("failed", len(failures)))

	refreshed, err := store.ListProjects(ctx, db.ProjectFilters{
		SortField:     db.SortByScoreWeighted,
		SortDirection: db.SortDesc,
	})
	if err != nil {
		return nil, db.WrapStorage("list projects after recalculation", err)
	}

	return &UpdateWeightsResult{
		Weights:  active,
		Projects: refreshed,
		Failures: failures,
	}, nil
}

// recalcProject recomputes one project's weighted score and persists it when
// it moved beyond the epsilon. A lost-update conflict is retried once on a
// fresh read before being reported.
func recalcProject(ctx context.Context, store UpdateWeightsStore, weights db.PriorityWeights, p *db.Project) error {
	newScore, err := scoring.ProjectWeightedScore(p, weights)
	if err != nil {
		return err
	}
	if math.Abs(newScore-p.ScoreWeighted) <= db.WeightSumEpsilon {
		return nil
	}

	err = store.UpdateProjectWeightedScore(ctx, p.ID, newScore, p.UpdatedAt)
	if !errors.Is(err, db.ErrConflict) {
		return db.WrapStorage("persist weighted score", err)
	}

	fresh, err := store.GetProjectByID(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("re-reading project after conflict: %w", db.WrapStorage("get project", err))
	}
	newScore, err = scoring.ProjectWeightedScore(fresh, weights)
	if err != nil {
		return err
	}
	if math.Abs(newScore-fresh.ScoreWeighted) <= db.WeightSumEpsilon {
		return nil
	}
	return db.WrapStorage("persist weighted score",
		store.UpdateProjectWeightedScore(ctx, fresh.ID, newScore, fresh.UpdatedAt))
}
