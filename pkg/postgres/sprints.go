package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

const sprintColumns = `id, created_at, updated_at, name, start_date, end_date, capacity_points, notes, status`

func scanSprint(row pgx.Row) (*db.Sprint, error) {
	var s db.Sprint
	var status string
	err := row.Scan(
		&s.ID, &s.CreatedAt, &s.UpdatedAt,
		&s.Name, &s.StartDate, &s.EndDate, &s.CapacityPoints, &s.Notes, &status,
	)
	if err != nil {
		return nil, err
	}
	s.Status = db.SprintStatus(status)
	return &s, nil
}

// CreateSprint inserts a sprint record, assigning its id and timestamps.
func (d *DB) CreateSprint(ctx context.Context, s *db.Sprint) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	err := d.pool.QueryRow(ctx, `
		INSERT INTO sprints (id, name, start_date, end_date, capacity_points, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, s.ID, s.Name, s.StartDate, s.EndDate, s.CapacityPoints, s.Notes, string(s.Status)).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert sprint: %w", err)
	}
	return nil
}

// GetSprintByID retrieves one sprint.
func (d *DB) GetSprintByID(ctx context.Context, id string) (*db.Sprint, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+sprintColumns+` FROM sprints WHERE id = $1`, id)
	s, err := scanSprint(row)
	if noRows(err) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sprint %s: %w", id, err)
	}
	return s, nil
}

// ListSprints retrieves all sprints ordered by start date, soonest first.
func (d *DB) ListSprints(ctx context.Context) ([]db.Sprint, error) {
	rows, err := d.pool.Query(ctx, `SELECT `+sprintColumns+` FROM sprints ORDER BY start_date ASC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sprints: %w", err)
	}
	defer rows.Close()

	var sprints []db.Sprint
	for rows.Next() {
		s, err := scanSprint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sprint: %w", err)
		}
		sprints = append(sprints, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sprints: %w", err)
	}
	return sprints, nil
}

// UpdateSprint applies a partial update and returns the fresh record.
func (d *DB) UpdateSprint(ctx context.Context, id string, u db.SprintUpdate) (*db.Sprint, error) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if u.Name != nil {
		set("name", *u.Name)
	}
	if u.StartDate != nil {
		set("start_date", *u.StartDate)
	}
	if u.EndDate != nil {
		set("end_date", *u.EndDate)
	}
	if u.CapacityPoints != nil {
		set("capacity_points", *u.CapacityPoints)
	}
	if u.Notes != nil {
		set("notes", *u.Notes)
	}
	if u.Status != nil {
		set("status", string(*u.Status))
	}

	if len(sets) == 0 {
		return d.GetSprintByID(ctx, id)
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE sprints SET %s WHERE id = $%d RETURNING `+sprintColumns,
		strings.Join(sets, ", "), len(args),
	)
	s, err := scanSprint(d.pool.QueryRow(ctx, query, args...))
	if noRows(err) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update sprint %s: %w", id, err)
	}
	return s, nil
}

// DeleteSprint removes a sprint. A sprint that still has allocations is
// protected by the foreign key and reported as ErrHasDependents.
func (d *DB) DeleteSprint(ctx context.Context, id string) error {
	tag, err := d.pool.Exec(ctx, `DELETE FROM sprints WHERE id = $1`, id)
	if isPgCode(err, pgForeignKeyViolation) {
		return db.ErrHasDependents
	}
	if err != nil {
		return fmt.Errorf("failed to delete sprint %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}
