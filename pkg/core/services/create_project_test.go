package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/clients/jiraclient"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/memstore"
)

// mockTickets implements a test double for TicketCreator
type mockTickets struct {
	requests  []jiraclient.TicketRequest
	createErr error
}

func (m *mockTickets) CreateTicket(ctx context.Context, req jiraclient.TicketRequest) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	m.requests = append(m.requests, req)
	return "SGPD-42", nil
}

func seededStore(t *testing.T, w db.PriorityWeights) *memstore.Store {
	t.Helper()
	store := memstore.New()
	_, err := store.SeedWeights(context.Background(), w)
	require.NoError(t, err)
	return store
}

func validInput() CreateProjectInput {
	return CreateProjectInput{
		RequestingDepartment: "Afiliaciones",
		Title:                "Automate enrollment forms",
		ProblemDescription:   "Forms are retyped by hand and errors are frequent",
		ImpactScore:          5,
		FrequencyNumber:      1,
		FrequencyUnit:        "day",
		UrgencyLevel:         "high",
		ContactName:          "Ana Pérez",
		ContactEmail:         "ana@example.com",
	}
}

func TestCreateProject_ComputesScores(t *testing.T) {
	store := seededStore(t, db.PriorityWeights{
		ImpactWeight:    0.4,
		FrequencyWeight: 0.4,
		UrgencyWeight:   0.2,
	})
	tickets := &mockTickets{}
	logger := zap.NewNop()
	ctx := context.Background()

	project, err := CreateProject(ctx, store, tickets, logger, validInput())
	require.NoError(t, err)
	require.NotNil(t, project)

	assert.NotEmpty(t, project.ID)
	assert.Equal(t, db.ProjectNew, project.Status)

	// once per day derives frequency score 4
	assert.Equal(t, 4, project.FrequencyScore)
	assert.Equal(t, 3, project.UrgencyScore)
	assert.Equal(t, 12, project.ScoreRaw)
	assert.InDelta(t, 4.2, project.ScoreWeighted, 1e-9)

	// persisted
	saved, err := store.GetProjectByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, project.ScoreRaw, saved.ScoreRaw)

	// ticket fired with the project's data
	require.Len(t, tickets.requests, 1)
	assert.Equal(t, "Automate enrollment forms", tickets.requests[0].Title)
	assert.Equal(t, "high", tickets.requests[0].Urgency)
}

func TestCreateProject_DirectFrequencyScore(t *testing.T) {
	store := seededStore(t, db.PriorityWeights{ImpactWeight: 0.4, FrequencyWeight: 0.3, UrgencyWeight: 0.3})
	logger := zap.NewNop()

	input := validInput()
	input.FrequencyNumber = 0
	input.FrequencyUnit = ""
	input.FrequencyScore = 2

	project, err := CreateProject(context.Background(), store, nil, logger, input)
	require.NoError(t, err)
	assert.Equal(t, 2, project.FrequencyScore)
	assert.Nil(t, project.FrequencyNumber)
	assert.Nil(t, project.FrequencyUnit)
}

func TestCreateProject_MissingFrequency(t *testing.T) {
	store := seededStore(t, db.PriorityWeights{ImpactWeight: 0.4, FrequencyWeight: 0.3, UrgencyWeight: 0.3})
	logger := zap.NewNop()

	input := validInput()
	input.FrequencyNumber = 0
	input.FrequencyUnit = ""
	input.FrequencyScore = 0

	_, err := CreateProject(context.Background(), store, nil, logger, input)
	var verr *db.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "frequencyScore")
}

func TestCreateProject_ValidationCollectsFields(t *testing.T) {
	store := seededStore(t, db.PriorityWeights{ImpactWeight: 0.4, FrequencyWeight: 0.3, UrgencyWeight: 0.3})
	logger := zap.NewNop()

	input := validInput()
	input.Title = ""
	input.ImpactScore = 9
	input.ContactEmail = "not-an-email"

	_, err := CreateProject(context.Background(), store, nil, logger, input)
	var verr *db.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "title")
	assert.Contains(t, verr.Fields, "impactScore")
	assert.Contains(t, verr.Fields, "contactEmail")
}

func TestCreateProject_TicketFailureDoesNotFailProject(t *testing.T) {
	store := seededStore(t, db.PriorityWeights{ImpactWeight: 0.4, FrequencyWeight: 0.3, UrgencyWeight: 0.3})
	tickets := &mockTickets{createErr: errors.New("jira is down")}
	logger := zap.NewNop()
	ctx := context.Background()

	project, err := CreateProject(ctx, store, tickets, logger, validInput())
	require.NoError(t, err)

	// the project survived the ticket failure
	saved, err := store.GetProjectByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, project.ID, saved.ID)
}

func TestCreateProject_NoWeightsConfigured(t *testing.T) {
	store := memstore.New()
	logger := zap.NewNop()

	_, err := CreateProject(context.Background(), store, nil, logger, validInput())
	assert.ErrorIs(t, err, db.ErrNotConfigured)
}
