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
)

// mockWeightsStore implements a test double for UpdateWeightsStore
type mockWeightsStore struct {
	weights     db.PriorityWeights
	projects    []db.Project
	scoreWrites map[string]float64

	updateWeightsErr error
	scoreErrs        map[string]error
	conflictOnce     map[string]bool
}

func (m *mockWeightsStore) UpdateActiveWeights(ctx context.Context, w db.PriorityWeights) (db.PriorityWeights, error) {
	if m.updateWeightsErr != nil {
		return db.PriorityWeights{}, m.updateWeightsErr
	}
	m.weights = w
	return w, nil
}

func (m *mockWeightsStore) ListProjects(ctx context.Context, f db.ProjectFilters) ([]db.Project, error) {
	out := make([]db.Project, len(m.projects))
	copy(out, m.projects)
	return out, nil
}

func (m *mockWeightsStore) GetProjectByID(ctx context.Context, id string) (*db.Project, error) {
	for i := range m.projects {
		if m.projects[i].ID == id {
			p := m.projects[i]
			return &p, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *mockWeightsStore) UpdateProjectWeightedScore(ctx context.Context, id string, score float64, expectedUpdatedAt time.Time) error {
	if err := m.scoreErrs[id]; err != nil {
		return err
	}
	if m.conflictOnce[id] {
		m.conflictOnce[id] = false
		return db.ErrConflict
	}
	if m.scoreWrites == nil {
		m.scoreWrites = make(map[string]float64)
	}
	m.scoreWrites[id] = score
	for i := range m.projects {
		if m.projects[i].ID == id {
			m.projects[i].ScoreWeighted = score
		}
	}
	return nil
}

func TestValidateWeights(t *testing.T) {
	err := ValidateWeights(db.PriorityWeights{ImpactWeight: 0.4, FrequencyWeight: 0.3, UrgencyWeight: 0.3})
	assert.NoError(t, err)
}

func TestValidateWeights_CollectsAllProblems(t *testing.T) {
	err := ValidateWeights(db.PriorityWeights{ImpactWeight: -0.1, FrequencyWeight: 1.5, UrgencyWeight: 0.3})
	var verr *db.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "impactWeight")
	assert.Contains(t, verr.Fields, "frequencyWeight")
	// the sum problem is reported against all three fields
	assert.Contains(t, verr.Fields, "urgencyWeight")
}

func TestValidateWeights_SumEpsilon(t *testing.T) {
	// within epsilon of 1 passes
	err := ValidateWeights(db.PriorityWeights{ImpactWeight: 0.4, FrequencyWeight: 0.3, UrgencyWeight: 0.2999999995})
	assert.NoError(t, err)

	err = ValidateWeights(db.PriorityWeights{ImpactWeight: 0.5, FrequencyWeight: 0.5, UrgencyWeight: 0.5})
	assert.Error(t, err)
}

func TestUpdateWeights_RecalculatesBacklog(t *testing.T) {
	mock := &mockWeightsStore{
		projects: []db.Project{
			{
				ID:             "p1",
				ImpactScore:    5,
				FrequencyScore: 4,
				UrgencyLevel:   db.UrgencyHigh,
				ScoreWeighted:  4.0,
			},
			{
				ID:             "p2",
				ImpactScore:    2,
				FrequencyScore: 1,
				UrgencyLevel:   db.UrgencyLow,
				ScoreWeighted:  1.3,
			},
		},
	}
	logger := zap.NewNop()

	result, err := UpdateWeights(context.Background(), mock, logger, db.PriorityWeights{
		ImpactWeight:    0.4,
		FrequencyWeight: 0.4,
		UrgencyWeight:   0.2,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Empty(t, result.Failures)

	// p1: 5*0.4 + 4*0.4 + 3*0.2 = 4.2
	assert.InDelta(t, 4.2, mock.scoreWrites["p1"], 1e-9)
	// p2: 2*0.4 + 1*0.4 + 1*0.2 = 1.4
	assert.InDelta(t, 1.4, mock.scoreWrites["p2"], 1e-9)
	assert.Len(t, result.Projects, 2)
}

func TestUpdateWeights_SkipsUnchangedScores(t *testing.T) {
	mock := &mockWeightsStore{
		projects: []db.Project{
			{
				ID:             "p1",
				ImpactScore:    5,
				FrequencyScore: 4,
				UrgencyLevel:   db.UrgencyHigh,
				ScoreWeighted:  4.2, // already the new value
			},
		},
	}
	logger := zap.NewNop()

	result, err := UpdateWeights(context.Background(), mock, logger, db.PriorityWeights{
		ImpactWeight:    0.4,
		FrequencyWeight: 0.4,
		UrgencyWeight:   0.2,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Failures)
	assert.NotContains(t, mock.scoreWrites, "p1")
}

func TestUpdateWeights_RetriesConflictOnce(t *testing.T) {
	mock := &mockWeightsStore{
		projects: []db.Project{
			{
				ID:             "p1",
				ImpactScore:    3,
				FrequencyScore: 3,
				UrgencyLevel:   db.UrgencyMedium,
				ScoreWeighted:  1.0,
			},
		},
		conflictOnce: map[string]bool{"p1": true},
	}
	logger := zap.NewNop()

	result, err := UpdateWeights(context.Background(), mock, logger, db.PriorityWeights{
		ImpactWeight:    0.4,
		FrequencyWeight: 0.3,
		UrgencyWeight:   0.3,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Failures)

	// the retry on the fresh read succeeded: 3*0.4 + 3*0.3 + 2*0.3 = 2.7
	assert.InDelta(t, 2.7, mock.scoreWrites["p1"], 1e-9)
}

func TestUpdateWeights_FailureIsBestEffort(t *testing.T) {
	mock := &mockWeightsStore{
		projects: []db.Project{
			{ID: "p1", ImpactScore: 5, FrequencyScore: 4, UrgencyLevel: db.UrgencyHigh, ScoreWeighted: 1.0},
			{ID: "p2", ImpactScore: 2, FrequencyScore: 1, UrgencyLevel: db.UrgencyLow, ScoreWeighted: 1.0},
		},
		scoreErrs: map[string]error{"p1": errors.New("write timeout")},
	}
	logger := zap.NewNop()

	result, err := UpdateWeights(context.Background(), mock, logger, db.PriorityWeights{
		ImpactWeight:    0.4,
		FrequencyWeight: 0.4,
		UrgencyWeight:   0.2,
	})
	require.NoError(t, err)

	// p1 failed but p2 was still recalculated
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "p1", result.Failures[0].ProjectID)
	assert.Contains(t, mock.scoreWrites, "p2")
}

func TestUpdateWeights_InvalidWeightsDoNotTouchStore(t *testing.T) {
	mock := &mockWeightsStore{}
	logger := zap.NewNop()

	_, err := UpdateWeights(context.Background(), mock, logger, db.PriorityWeights{
		ImpactWeight:    0.9,
		FrequencyWeight: 0.9,
		UrgencyWeight:   0.9,
	})
	var verr *db.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, mock.weights)
}
