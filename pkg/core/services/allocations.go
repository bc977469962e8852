package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

// AllocationsStore defines the database operations needed for allocation
// management. The capacity check-then-write lives inside the store so each
// backend serializes it per sprint.
type AllocationsStore interface {
	InsertAllocationChecked(ctx context.Context, a *db.Allocation) error
	UpdateAllocationChecked(ctx context.Context, id string, u db.AllocationUpdate) (*db.Allocation, error)
}

// AllocatePointsInput assigns points from a sprint's capacity to a project.
type AllocatePointsInput struct {
	SprintID        string `validate:"required,uuid"`
	ProjectID       string `validate:"required,uuid"`
	AllocatedPoints int
	// Status defaults to planned when empty.
	Status   string `validate:"omitempty,oneof=planned in_progress done carried_over"`
	Comments string
}

// AllocatePoints creates the allocation for a (sprint, project) pair. It
// fails with ErrNotFound when the sprint does not exist, with
// ErrDuplicateAllocation when the pair is already allocated, and with
// ErrCapacityExceeded when the sprint's total would pass its capacity.
func AllocatePoints(
	ctx context.Context,
	store AllocationsStore,
	logger *zap.Logger,
	input AllocatePointsInput,
) (*db.Allocation, error) {
	if err := structValidationError(validate.Struct(input)); err != nil {
		return nil, err
	}
	if input.AllocatedPoints < 0 {
		verr := db.NewValidationError()
		verr.Add("allocatedPoints", "must not be negative")
		return nil, verr
	}

	status := db.AllocationPlanned
	if input.Status != "" {
		parsed, err := db.ParseAllocationStatus(input.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}

	allocation := &db.Allocation{
		SprintID:        input.SprintID,
		ProjectID:       input.ProjectID,
		AllocatedPoints: input.AllocatedPoints,
		Status:          status,
		Comments:        optionalString(input.Comments),
	}

	if err := store.InsertAllocationChecked(ctx, allocation); err != nil {
		return nil, db.WrapStorage("insert allocation", err)
	}

	logger.Info("Points allocated",
		zap.String("sprint_id", input.SprintID),
		zap.String("project_id", input.ProjectID),
		zap.Int("points", input.AllocatedPoints))
	return allocation, nil
}

// UpdateAllocationInput applies a partial update to an allocation. Nil
// fields are left unchanged.
type UpdateAllocationInput struct {
	AllocationID    string `validate:"required,uuid"`
	AllocatedPoints *int
	Status          *string
	Comments        *string
}

// UpdateAllocation updates the supplied fields only. A points change is
// capacity-checked with the allocation's previous points excluded from the
// sprint total, so raising an allocation to the remaining headroom succeeds.
func UpdateAllocation(
	ctx context.Context,
	store AllocationsStore,
	logger *zap.Logger,
	input UpdateAllocationInput,
) (*db.Allocation, error) {
	if err := structValidationError(validate.Struct(input)); err != nil {
		return nil, err
	}

	update := db.AllocationUpdate{}
	if input.AllocatedPoints != nil {
		if *input.AllocatedPoints < 0 {
			verr := db.NewValidationError()
			verr.Add("allocatedPoints", "must not be negative")
			return nil, verr
		}
		update.AllocatedPoints = input.AllocatedPoints
	}
	if input.Status != nil {
		status, err := db.ParseAllocationStatus(*input.Status)
		if err != nil {
			return nil, err
		}
		update.Status = &status
	}
	if input.Comments != nil {
		comments := optionalString(*input.Comments)
		update.Comments = &comments
	}

	allocation, err := store.UpdateAllocationChecked(ctx, input.AllocationID, update)
	if err != nil {
		return nil, db.WrapStorage("update allocation", err)
	}

	logger.Info("Allocation updated",
		zap.String("allocation_id", allocation.ID),
		zap.Int("points", allocation.AllocatedPoints),
		zap.String("status", string(allocation.Status)))
	return allocation, nil
}
