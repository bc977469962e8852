package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/memstore"
)

func newSprint(t *testing.T, store *memstore.Store, capacity int) *db.Sprint {
	t.Helper()
	sprint := &db.Sprint{
		Name:           "Sprint 1",
		StartDate:      time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC),
		CapacityPoints: capacity,
		Status:         db.SprintPlanned,
	}
	require.NoError(t, store.CreateSprint(context.Background(), sprint))
	return sprint
}

func TestAllocatePoints_CapacityIsEnforced(t *testing.T) {
	store := memstore.New()
	sprint := newSprint(t, store, 120)
	logger := zap.NewNop()
	ctx := context.Background()

	// 40 + 90 would exceed 120; 40 + 70 fits exactly within the remainder
	first, err := AllocatePoints(ctx, store, logger, AllocatePointsInput{
		SprintID:        sprint.ID,
		ProjectID:       uuid.NewString(),
		AllocatedPoints: 40,
	})
	require.NoError(t, err)
	assert.Equal(t, db.AllocationPlanned, first.Status)

	_, err = AllocatePoints(ctx, store, logger, AllocatePointsInput{
		SprintID:        sprint.ID,
		ProjectID:       uuid.NewString(),
		AllocatedPoints: 90,
	})
	assert.ErrorIs(t, err, db.ErrCapacityExceeded)

	_, err = AllocatePoints(ctx, store, logger, AllocatePointsInput{
		SprintID:        sprint.ID,
		ProjectID:       uuid.NewString(),
		AllocatedPoints: 70,
	})
	require.NoError(t, err)

	total, err := store.TotalAllocatedPoints(ctx, sprint.ID)
	require.NoError(t, err)
	assert.Equal(t, 110, total)
}

func TestAllocatePoints_DuplicatePair(t *testing.T) {
	store := memstore.New()
	sprint := newSprint(t, store, 100)
	logger := zap.NewNop()
	ctx := context.Background()
	projectID := uuid.NewString()

	_, err := AllocatePoints(ctx, store, logger, AllocatePointsInput{
		SprintID:        sprint.ID,
		ProjectID:       projectID,
		AllocatedPoints: 10,
	})
	require.NoError(t, err)

	_, err = AllocatePoints(ctx, store, logger, AllocatePointsInput{
		SprintID:        sprint.ID,
		ProjectID:       projectID,
		AllocatedPoints: 20,
	})
	assert.ErrorIs(t, err, db.ErrDuplicateAllocation)
}

func TestAllocatePoints_UnknownSprint(t *testing.T) {
	store := memstore.New()
	logger := zap.NewNop()

	_, err := AllocatePoints(context.Background(), store, logger, AllocatePointsInput{
		SprintID:        uuid.NewString(),
		ProjectID:       uuid.NewString(),
		AllocatedPoints: 10,
	})
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestAllocatePoints_NegativePoints(t *testing.T) {
	store := memstore.New()
	sprint := newSprint(t, store, 100)
	logger := zap.NewNop()

	_, err := AllocatePoints(context.Background(), store, logger, AllocatePointsInput{
		SprintID:        sprint.ID,
		ProjectID:       uuid.NewString(),
		AllocatedPoints: -5,
	})
	var verr *db.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "allocatedPoints")
}

func TestAllocatePoints_ZeroIsReserving(t *testing.T) {
	store := memstore.New()
	sprint := newSprint(t, store, 100)
	logger := zap.NewNop()

	// zero points marks the project for the sprint without consuming capacity
	allocation, err := AllocatePoints(context.Background(), store, logger, AllocatePointsInput{
		SprintID:        sprint.ID,
		ProjectID:       uuid.NewString(),
		AllocatedPoints: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, allocation.AllocatedPoints)
}

func TestUpdateAllocation_ExcludesOwnPointsFromCheck(t *testing.T) {
	store := memstore.New()
	sprint := newSprint(t, store, 110)
	logger := zap.NewNop()
	ctx := context.Background()

	_, err := AllocatePoints(ctx, store, logger, AllocatePointsInput{
		SprintID:        sprint.ID,
		ProjectID:       uuid.NewString(),
		AllocatedPoints: 60,
	})
	require.NoError(t, err)

	target, err := AllocatePoints(ctx, store, logger, AllocatePointsInput{
		SprintID:        sprint.ID,
		ProjectID:       uuid.NewString(),
		AllocatedPoints: 40,
	})
	require.NoError(t, err)

	// raising 40 -> 50 leaves 60+50 = 110, exactly at capacity
	fifty := 50
	updated, err := UpdateAllocation(ctx, store, logger, UpdateAllocationInput{
		AllocationID:    target.ID,
		AllocatedPoints: &fifty,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, updated.AllocatedPoints)

	// one more point does not fit
	fiftyOne := 51
	_, err = UpdateAllocation(ctx, store, logger, UpdateAllocationInput{
		AllocationID:    target.ID,
		AllocatedPoints: &fiftyOne,
	})
	assert.ErrorIs(t, err, db.ErrCapacityExceeded)
}

func TestUpdateAllocation_StatusAndComments(t *testing.T) {
	store := memstore.New()
	sprint := newSprint(t, store, 100)
	logger := zap.NewNop()
	ctx := context.Background()

	allocation, err := AllocatePoints(ctx, store, logger, AllocatePointsInput{
		SprintID:        sprint.ID,
		ProjectID:       uuid.NewString(),
		AllocatedPoints: 30,
		Comments:        "kickoff pending",
	})
	require.NoError(t, err)

	status := "in_progress"
	cleared := ""
	updated, err := UpdateAllocation(ctx, store, logger, UpdateAllocationInput{
		AllocationID: allocation.ID,
		Status:       &status,
		Comments:     &cleared,
	})
	require.NoError(t, err)
	assert.Equal(t, db.AllocationInProgress, updated.Status)
	assert.Nil(t, updated.Comments)
	assert.Equal(t, 30, updated.AllocatedPoints)
}

func TestUpdateAllocation_UnknownStatus(t *testing.T) {
	store := memstore.New()
	sprint := newSprint(t, store, 100)
	logger := zap.NewNop()
	ctx := context.Background()

	allocation, err := AllocatePoints(ctx, store, logger, AllocatePointsInput{
		SprintID:        sprint.ID,
		ProjectID:       uuid.NewString(),
		AllocatedPoints: 10,
	})
	require.NoError(t, err)

	bogus := "paused"
	_, err = UpdateAllocation(ctx, store, logger, UpdateAllocationInput{
		AllocationID: allocation.ID,
		Status:       &bogus,
	})
	assert.ErrorIs(t, err, db.ErrInvalidEnum)
}
