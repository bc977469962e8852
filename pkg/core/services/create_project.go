package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/clients/jiraclient"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/core/scoring"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

// CreateProjectStore defines the database operations needed to create a project.
type CreateProjectStore interface {
	GetActiveWeights(ctx context.Context) (db.PriorityWeights, error)
	CreateProject(ctx context.Context, p *db.Project) error
}

// TicketCreator creates a tracking issue for a new project. Failures are
// logged and never propagated to the caller.
type TicketCreator interface {
	CreateTicket(ctx context.Context, req jiraclient.TicketRequest) (string, error)
}

// CreateProjectInput carries the intake form for a new development request.
type CreateProjectInput struct {
	RequestingDepartment string `validate:"required"`
	Title                string `validate:"required"`
	ShortDescription     string
	ProblemDescription   string `validate:"required"`
	Context              string
	ImpactCategories     []string
	ImpactDescription    string
	ImpactScore          int `validate:"min=1,max=5"`
	FrequencyDescription string
	// Structured frequency: when both are set the frequency score is derived
	// from them, otherwise FrequencyScore must be supplied directly.
	FrequencyNumber float64 `validate:"omitempty,gt=0"`
	FrequencyUnit   string  `validate:"omitempty,oneof=day week month"`
	FrequencyScore  int     `validate:"omitempty,min=1,max=5"`
	UrgencyLevel    string  `validate:"required,oneof=high medium low"`

	HasExternalDependencies  bool
	DependenciesDetail       string
	OtherDepartmentsInvolved string

	ContactName       string `validate:"required"`
	ContactDepartment string
	ContactEmail      string `validate:"omitempty,email"`
	ContactPhone      string
}

// CreateProject validates the intake form, computes the raw and weighted
// priority scores from the active weights, persists the project and then
// fires the tracking ticket. A ticket failure never fails or rolls back the
// created project.
func CreateProject(
	ctx context.Context,
	store CreateProjectStore,
	tickets TicketCreator,
	logger *zap.Logger,
	input CreateProjectInput,
) (*db.Project, error) {
	if err := structValidationError(validate.Struct(input)); err != nil {
		return nil, err
	}

	urgency, err := db.ParseUrgencyLevel(input.UrgencyLevel)
	if err != nil {
		return nil, err
	}

	frequencyScore := input.FrequencyScore
	var frequencyNumber *float64
	var frequencyUnit *db.FrequencyUnit
	if input.FrequencyNumber > 0 && input.FrequencyUnit != "" {
		unit, err := db.ParseFrequencyUnit(input.FrequencyUnit)
		if err != nil {
			return nil, err
		}
		n := input.FrequencyNumber
		frequencyNumber = &n
		frequencyUnit = &unit
		frequencyScore = scoring.DeriveFrequencyScore(n, unit)
	}
	if frequencyScore < 1 || frequencyScore > 5 {
		verr := db.NewValidationError()
		verr.Add("frequencyScore", "supply a score between 1 and 5 or a structured frequency")
		return nil, verr
	}

	weights, err := store.GetActiveWeights(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active weights: %w", err)
	}

	urgencyScore, err := scoring.UrgencyScore(urgency)
	if err != nil {
		return nil, err
	}

	project := &db.Project{
		RequestingDepartment:     input.RequestingDepartment,
		Title:                    input.Title,
		ShortDescription:         optionalString(input.ShortDescription),
		ProblemDescription:       input.ProblemDescription,
		Context:                  optionalString(input.Context),
		ImpactCategories:         input.ImpactCategories,
		ImpactDescription:        optionalString(input.ImpactDescription),
		ImpactScore:              input.ImpactScore,
		FrequencyDescription:     optionalString(input.FrequencyDescription),
		FrequencyNumber:          frequencyNumber,
		FrequencyUnit:            frequencyUnit,
		FrequencyScore:           frequencyScore,
		UrgencyLevel:             urgency,
		UrgencyScore:             urgencyScore,
		HasExternalDependencies:  input.HasExternalDependencies,
		DependenciesDetail:       optionalString(input.DependenciesDetail),
		OtherDepartmentsInvolved: optionalString(input.OtherDepartmentsInvolved),
		ContactName:              input.ContactName,
		ContactDepartment:        optionalString(input.ContactDepartment),
		ContactEmail:             optionalString(input.ContactEmail),
		ContactPhone:             optionalString(input.ContactPhone),
		Status:                   db.ProjectNew,
	}

	project.ScoreRaw = scoring.RawScore(input.ImpactScore, frequencyScore, urgencyScore)
	weighted, err := scoring.ProjectWeightedScore(project, weights)
	if err != nil {
		return nil, err
	}
	project.ScoreWeighted = weighted

	if err := store.CreateProject(ctx, project); err != nil {
		return nil, db.WrapStorage("create project", err)
	}

	logger.Info("Project created",
		zap.String("project_id", project.ID),
		zap.Int("score_raw", project.ScoreRaw),
		zap.Float64("score_weighted", project.ScoreWeighted))

	if tickets != nil {
		key, err := tickets.CreateTicket(ctx, jiraclient.TicketRequest{
			Title:        input.Title,
			Description:  input.ProblemDescription,
			Urgency:      string(urgency),
			Department:   input.RequestingDepartment,
			ImpactScore:  input.ImpactScore,
			ContactName:  input.ContactName,
			ContactEmail: input.ContactEmail,
		})
		if err != nil {
			logger.Warn("Ticket creation failed, project is unaffected",
				zap.String("project_id", project.ID),
				zap.Error(err))
		} else {
			logger.Info("Tracking ticket created",
				zap.String("project_id", project.ID),
				zap.String("issue_key", key))
		}
	}

	return project, nil
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
