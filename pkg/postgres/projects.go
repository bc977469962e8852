package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

const projectColumns = `
	id, created_at, updated_at,
	requesting_department, title, short_description, problem_description, context,
	impact_categories, impact_description, impact_score,
	frequency_description, frequency_number, frequency_unit, frequency_score,
	urgency_level, urgency_score, score_raw, score_weighted,
	impact_score_considered, frequency_score_considered, urgency_level_considered,
	impact_weight_custom, frequency_weight_custom, urgency_weight_custom,
	has_external_dependencies, dependencies_detail, other_departments_involved,
	contact_name, contact_department, contact_email, contact_phone,
	status, analysis_started_at, development_started_at, implemented_at, closed_at,
	development_points, functional_points, user_points,
	is_reviewed_by_team, reviewed_at, management_comments`

func scanProject(row pgx.Row) (*db.Project, error) {
	var p db.Project
	var urgency, status string
	var frequencyUnit, urgencyConsidered *string
	err := row.Scan(
		&p.ID, &p.CreatedAt, &p.UpdatedAt,
		&p.RequestingDepartment, &p.Title, &p.ShortDescription, &p.ProblemDescription, &p.Context,
		&p.ImpactCategories, &p.ImpactDescription, &p.ImpactScore,
		&p.FrequencyDescription, &p.FrequencyNumber, &frequencyUnit, &p.FrequencyScore,
		&urgency, &p.UrgencyScore, &p.ScoreRaw, &p.ScoreWeighted,
		&p.ImpactScoreConsidered, &p.FrequencyScoreConsidered, &urgencyConsidered,
		&p.ImpactWeightCustom, &p.FrequencyWeightCustom, &p.UrgencyWeightCustom,
		&p.HasExternalDependencies, &p.DependenciesDetail, &p.OtherDepartmentsInvolved,
		&p.ContactName, &p.ContactDepartment, &p.ContactEmail, &p.ContactPhone,
		&status, &p.AnalysisStartedAt, &p.DevelopmentStartedAt, &p.ImplementedAt, &p.ClosedAt,
		&p.DevelopmentPoints, &p.FunctionalPoints, &p.UserPoints,
		&p.IsReviewedByTeam, &p.ReviewedAt, &p.ManagementComments,
	)
	if err != nil {
		return nil, err
	}
	p.UrgencyLevel = db.UrgencyLevel(urgency)
	p.Status = db.ProjectStatus(status)
	if frequencyUnit != nil {
		unit := db.FrequencyUnit(*frequencyUnit)
		p.FrequencyUnit = &unit
	}
	if urgencyConsidered != nil {
		level := db.UrgencyLevel(*urgencyConsidered)
		p.UrgencyLevelConsidered = &level
	}
	return &p, nil
}

// CreateProject inserts a project record, assigning its id and timestamps.
func (d *DB) CreateProject(ctx context.Context, p *db.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	var frequencyUnit *string
	if p.FrequencyUnit != nil {
		unit := string(*p.FrequencyUnit)
		frequencyUnit = &unit
	}
	var urgencyConsidered *string
	if p.UrgencyLevelConsidered != nil {
		level := string(*p.UrgencyLevelConsidered)
		urgencyConsidered = &level
	}
	err := d.pool.QueryRow(ctx, `
		INSERT INTO projects (
			id,
			requesting_department, title, short_description, problem_description, context,
			impact_categories, impact_description, impact_score,
			frequency_description, frequency_number, frequency_unit, frequency_score,
			urgency_level, urgency_score, score_raw, score_weighted,
			impact_score_considered, frequency_score_considered, urgency_level_considered,
			impact_weight_custom, frequency_weight_custom, urgency_weight_custom,
			has_external_dependencies, dependencies_detail, other_departments_involved,
			contact_name, contact_department, contact_email, contact_phone,
			status, development_points, functional_points, user_points,
			is_reviewed_by_team, management_comments
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32,
			$33, $34, $35, $36
		)
		RETURNING created_at, updated_at
	`,
		p.ID,
		p.RequestingDepartment, p.Title, p.ShortDescription, p.ProblemDescription, p.Context,
		p.ImpactCategories, p.ImpactDescription, p.ImpactScore,
		p.FrequencyDescription, p.FrequencyNumber, frequencyUnit, p.FrequencyScore,
		string(p.UrgencyLevel), p.UrgencyScore, p.ScoreRaw, p.ScoreWeighted,
		p.ImpactScoreConsidered, p.FrequencyScoreConsidered, urgencyConsidered,
		p.ImpactWeightCustom, p.FrequencyWeightCustom, p.UrgencyWeightCustom,
		p.HasExternalDependencies, p.DependenciesDetail, p.OtherDepartmentsInvolved,
		p.ContactName, p.ContactDepartment, p.ContactEmail, p.ContactPhone,
		string(p.Status), p.DevelopmentPoints, p.FunctionalPoints, p.UserPoints,
		p.IsReviewedByTeam, p.ManagementComments,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// GetProjectByID retrieves one project.
func (d *DB) GetProjectByID(ctx context.Context, id string) (*db.Project, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	p, err := scanProject(row)
	if noRows(err) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query project %s: %w", id, err)
	}
	return p, nil
}

// ListProjects retrieves projects matching the filters, sorted and paged.
func (d *DB) ListProjects(ctx context.Context, f db.ProjectFilters) ([]db.Project, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + projectColumns + ` FROM projects`)

	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.RequestingDepartment != "" {
		conds = append(conds, "requesting_department = "+arg(f.RequestingDepartment))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		conds = append(conds, "status = ANY("+arg(statuses)+")")
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(f.Search) + "%"
		placeholder := arg(pattern)
		conds = append(conds, "(title ILIKE "+placeholder+" OR short_description ILIKE "+placeholder+")")
	}
	if f.MinScoreWeighted != nil {
		conds = append(conds, "score_weighted >= "+arg(*f.MinScoreWeighted))
	}
	if f.MaxScoreWeighted != nil {
		conds = append(conds, "score_weighted <= "+arg(*f.MaxScoreWeighted))
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	sortField := f.SortField
	switch sortField {
	case db.SortByScoreRaw, db.SortByCreatedAt, db.SortByScoreWeighted:
	default:
		sortField = db.SortByScoreWeighted
	}
	direction := "DESC"
	if f.SortDirection == db.SortAsc {
		direction = "ASC"
	}
	sb.WriteString(fmt.Sprintf(" ORDER BY %s %s, created_at ASC", sortField, direction))

	limit := f.Limit
	if f.Offset != nil {
		if limit <= 0 {
			limit = db.DefaultListLimit
		}
		sb.WriteString(" OFFSET " + arg(*f.Offset))
	}
	if limit > 0 {
		sb.WriteString(" LIMIT " + arg(limit))
	}

	rows, err := d.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []db.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

// UpdateProject applies a partial update and returns the fresh record.
func (d *DB) UpdateProject(ctx context.Context, id string, u db.ProjectUpdate) (*db.Project, error) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if u.Status != nil {
		set("status", string(*u.Status))
	}
	if u.AnalysisStartedAt != nil {
		set("analysis_started_at", *u.AnalysisStartedAt)
	}
	if u.DevelopmentStartedAt != nil {
		set("development_started_at", *u.DevelopmentStartedAt)
	}
	if u.ImplementedAt != nil {
		set("implemented_at", *u.ImplementedAt)
	}
	if u.ClosedAt != nil {
		set("closed_at", *u.ClosedAt)
	}
	if u.ImpactScoreConsidered != nil {
		set("impact_score_considered", *u.ImpactScoreConsidered)
	}
	if u.FrequencyScoreConsidered != nil {
		set("frequency_score_considered", *u.FrequencyScoreConsidered)
	}
	if u.UrgencyLevelConsidered != nil {
		var level *string
		if *u.UrgencyLevelConsidered != nil {
			v := string(**u.UrgencyLevelConsidered)
			level = &v
		}
		set("urgency_level_considered", level)
	}
	if u.ImpactWeightCustom != nil {
		set("impact_weight_custom", *u.ImpactWeightCustom)
	}
	if u.FrequencyWeightCustom != nil {
		set("frequency_weight_custom", *u.FrequencyWeightCustom)
	}
	if u.UrgencyWeightCustom != nil {
		set("urgency_weight_custom", *u.UrgencyWeightCustom)
	}
	if u.FrequencyNumber != nil {
		set("frequency_number", *u.FrequencyNumber)
	}
	if u.FrequencyUnit != nil {
		set("frequency_unit", string(*u.FrequencyUnit))
	}
	if u.FrequencyScore != nil {
		set("frequency_score", *u.FrequencyScore)
	}
	if u.ScoreRaw != nil {
		set("score_raw", *u.ScoreRaw)
	}
	if u.ScoreWeighted != nil {
		set("score_weighted", *u.ScoreWeighted)
	}
	if u.DevelopmentPoints != nil {
		set("development_points", *u.DevelopmentPoints)
	}
	if u.FunctionalPoints != nil {
		set("functional_points", *u.FunctionalPoints)
	}
	if u.UserPoints != nil {
		set("user_points", *u.UserPoints)
	}
	if u.IsReviewedByTeam != nil {
		set("is_reviewed_by_team", *u.IsReviewedByTeam)
	}
	if u.ReviewedAt != nil {
		set("reviewed_at", *u.ReviewedAt)
	}
	if u.ManagementComments != nil {
		set("management_comments", *u.ManagementComments)
	}

	if len(sets) == 0 {
		return d.GetProjectByID(ctx, id)
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE projects SET %s WHERE id = $%d RETURNING `+projectColumns,
		strings.Join(sets, ", "), len(args),
	)
	p, err := scanProject(d.pool.QueryRow(ctx, query, args...))
	if noRows(err) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update project %s: %w", id, err)
	}
	return p, nil
}

// UpdateProjectWeightedScore writes a recalculated score only when the row
// is unchanged since it was read; otherwise it reports ErrConflict so the
// recalculation can retry on a fresh read.
func (d *DB) UpdateProjectWeightedScore(ctx context.Context, id string, score float64, expectedUpdatedAt time.Time) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE projects
		SET score_weighted = $2, updated_at = NOW()
		WHERE id = $1 AND updated_at = $3
	`, id, score, expectedUpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update weighted score for project %s: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := d.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check project %s: %w", id, err)
	}
	if !exists {
		return db.ErrNotFound
	}
	return db.ErrConflict
}

func escapeLike(value string) string {
	value = strings.TrimSpace(value)
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `%`, `\%`)
	value = strings.ReplaceAll(value, `_`, `\_`)
	return value
}
