package services

import (
	"context"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

// SprintCadence describes the recurrence from which upcoming sprints are
// generated. The rule is syntax-checked at config load.
type SprintCadence struct {
	RRule          string
	CapacityPoints int
	LengthDays     int
	NamePrefix     string
}

// GenerateSprints expands the cadence rule into the next count planned
// sprints, starting after the latest existing sprint (or today when the
// store has none). Each occurrence becomes a sprint start; the end date is
// LengthDays-1 later.
func GenerateSprints(
	ctx context.Context,
	store SprintsStore,
	logger *zap.Logger,
	cadence SprintCadence,
	count int,
) ([]db.Sprint, error) {
	if count <= 0 {
		verr := db.NewValidationError()
		verr.Add("count", "must be positive")
		return nil, verr
	}
	rule, err := rrule.StrToRRule(cadence.RRule)
	if err != nil {
		return nil, fmt.Errorf("invalid sprint cadence rule: %w", err)
	}
	lengthDays := cadence.LengthDays
	if lengthDays < 1 {
		lengthDays = 1
	}
	prefix := cadence.NamePrefix
	if prefix == "" {
		prefix = "Sprint"
	}

	after := time.Now()
	existing, err := store.ListSprints(ctx)
	if err != nil {
		return nil, db.WrapStorage("list sprints", err)
	}
	for _, sprint := range existing {
		if sprint.EndDate.After(after) {
			after = sprint.EndDate
		}
	}

	created := make([]db.Sprint, 0, count)
	cursor := after
	for i := 0; i < count; i++ {
		start := rule.After(cursor, false)
		if start.IsZero() {
			logger.Warn("Sprint cadence rule exhausted",
				zap.Int("generated", len(created)),
				zap.Int("requested", count))
			break
		}
		sprint := &db.Sprint{
			Name:           fmt.Sprintf("%s %s", prefix, start.Format("2006-01-02")),
			StartDate:      start,
			EndDate:        start.AddDate(0, 0, lengthDays-1),
			CapacityPoints: cadence.CapacityPoints,
			Status:         db.SprintPlanned,
		}
		if err := store.CreateSprint(ctx, sprint); err != nil {
			return created, db.WrapStorage("create generated sprint", err)
		}
		created = append(created, *sprint)
		// step by occurrence, not by sprint end: a sprint longer than the
		// cadence interval must not swallow the next occurrence
		cursor = start
	}

	logger.Info("Sprints generated from cadence",
		zap.Int("count", len(created)),
		zap.String("rule", cadence.RRule))
	return created, nil
}
