package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

const allocationColumns = `id, created_at, updated_at, sprint_id, project_id, allocated_points, status, comments`

func scanAllocation(row pgx.Row) (*db.Allocation, error) {
	var a db.Allocation
	var status string
	err := row.Scan(
		&a.ID, &a.CreatedAt, &a.UpdatedAt,
		&a.SprintID, &a.ProjectID, &a.AllocatedPoints, &status, &a.Comments,
	)
	if err != nil {
		return nil, err
	}
	a.Status = db.AllocationStatus(status)
	return &a, nil
}

// lockSprintCapacity takes the sprint's row lock and returns its capacity.
// Every capacity check runs behind this lock so concurrent allocations to
// the same sprint serialize instead of both passing the check.
func lockSprintCapacity(ctx context.Context, tx pgx.Tx, sprintID string) (int, error) {
	var capacity int
	err := tx.QueryRow(ctx, `SELECT capacity_points FROM sprints WHERE id = $1 FOR UPDATE`, sprintID).Scan(&capacity)
	if noRows(err) {
		return 0, db.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock sprint %s: %w", sprintID, err)
	}
	return capacity, nil
}

// InsertAllocationChecked creates the allocation inside one transaction that
// holds the sprint's row lock across the capacity check and the insert.
func (d *DB) InsertAllocationChecked(ctx context.Context, a *db.Allocation) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	capacity, err := lockSprintCapacity(ctx, tx, a.SprintID)
	if err != nil {
		return err
	}

	// The pair check runs before the capacity check: an already-allocated
	// pair fails with ErrDuplicateAllocation even when the sprint is full.
	// The unique constraint on (sprint_id, project_id) stays as backstop.
	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM sprint_allocations WHERE sprint_id = $1 AND project_id = $2)
	`, a.SprintID, a.ProjectID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check allocation pair: %w", err)
	}
	if exists {
		return db.ErrDuplicateAllocation
	}

	var total int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(allocated_points), 0) FROM sprint_allocations WHERE sprint_id = $1
	`, a.SprintID).Scan(&total)
	if err != nil {
		return fmt.Errorf("failed to sum allocations for sprint %s: %w", a.SprintID, err)
	}
	if total+a.AllocatedPoints > capacity {
		return db.ErrCapacityExceeded
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO sprint_allocations (id, sprint_id, project_id, allocated_points, status, comments)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, a.ID, a.SprintID, a.ProjectID, a.AllocatedPoints, string(a.Status), a.Comments).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	if isPgCode(err, pgUniqueViolation) {
		return db.ErrDuplicateAllocation
	}
	if isPgCode(err, pgForeignKeyViolation) {
		return db.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to insert allocation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit allocation: %w", err)
	}
	return nil
}

// UpdateAllocationChecked applies a partial update. A points change re-runs
// the capacity check under the sprint's row lock, with this allocation's
// previous points excluded from the total.
func (d *DB) UpdateAllocationChecked(ctx context.Context, id string, u db.AllocationUpdate) (*db.Allocation, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanAllocation(tx.QueryRow(ctx, `SELECT `+allocationColumns+` FROM sprint_allocations WHERE id = $1 FOR UPDATE`, id))
	if noRows(err) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query allocation %s: %w", id, err)
	}

	points := current.AllocatedPoints
	if u.AllocatedPoints != nil {
		points = *u.AllocatedPoints

		capacity, err := lockSprintCapacity(ctx, tx, current.SprintID)
		if err != nil {
			return nil, err
		}
		var others int
		err = tx.QueryRow(ctx, `
			SELECT COALESCE(SUM(allocated_points), 0)
			FROM sprint_allocations
			WHERE sprint_id = $1 AND id <> $2
		`, current.SprintID, id).Scan(&others)
		if err != nil {
			return nil, fmt.Errorf("failed to sum allocations for sprint %s: %w", current.SprintID, err)
		}
		if others+points > capacity {
			return nil, db.ErrCapacityExceeded
		}
	}

	status := current.Status
	if u.Status != nil {
		status = *u.Status
	}
	comments := current.Comments
	if u.Comments != nil {
		comments = *u.Comments
	}

	updated, err := scanAllocation(tx.QueryRow(ctx, `
		UPDATE sprint_allocations
		SET allocated_points = $2, status = $3, comments = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+allocationColumns,
		id, points, string(status), comments))
	if err != nil {
		return nil, fmt.Errorf("failed to update allocation %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit allocation update: %w", err)
	}
	return updated, nil
}

// GetAllocationByID retrieves one allocation.
func (d *DB) GetAllocationByID(ctx context.Context, id string) (*db.Allocation, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+allocationColumns+` FROM sprint_allocations WHERE id = $1`, id)
	a, err := scanAllocation(row)
	if noRows(err) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query allocation %s: %w", id, err)
	}
	return a, nil
}

// GetAllocationBySprintAndProject retrieves the allocation for one project
// within one sprint.
func (d *DB) GetAllocationBySprintAndProject(ctx context.Context, sprintID, projectID string) (*db.Allocation, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT `+allocationColumns+` FROM sprint_allocations WHERE sprint_id = $1 AND project_id = $2
	`, sprintID, projectID)
	a, err := scanAllocation(row)
	if noRows(err) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query allocation for sprint %s project %s: %w", sprintID, projectID, err)
	}
	return a, nil
}

func (d *DB) listAllocations(ctx context.Context, query string, args ...any) ([]db.Allocation, error) {
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var allocations []db.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		allocations = append(allocations, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocations: %w", err)
	}
	return allocations, nil
}

// ListAllocationsBySprint retrieves a sprint's allocations, oldest first.
func (d *DB) ListAllocationsBySprint(ctx context.Context, sprintID string) ([]db.Allocation, error) {
	return d.listAllocations(ctx, `
		SELECT `+allocationColumns+` FROM sprint_allocations WHERE sprint_id = $1 ORDER BY created_at ASC
	`, sprintID)
}

// ListAllocationsByProject retrieves every sprint assignment of one project.
func (d *DB) ListAllocationsByProject(ctx context.Context, projectID string) ([]db.Allocation, error) {
	return d.listAllocations(ctx, `
		SELECT `+allocationColumns+` FROM sprint_allocations WHERE project_id = $1 ORDER BY created_at ASC
	`, projectID)
}

// TotalAllocatedPoints sums the points already committed to a sprint.
func (d *DB) TotalAllocatedPoints(ctx context.Context, sprintID string) (int, error) {
	var total int
	err := d.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(allocated_points), 0) FROM sprint_allocations WHERE sprint_id = $1
	`, sprintID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum allocations for sprint %s: %w", sprintID, err)
	}
	return total, nil
}
