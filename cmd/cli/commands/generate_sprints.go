package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/core/services"
)

// GenerateSprintsCmd creates the generateSprints command
func GenerateSprintsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "generateSprints <count>",
		Short: "Generate the next sprints from the configured cadence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("count must be a number: %w", err)
			}
			if app.Cfg.SprintCadence == nil {
				return errors.New("no sprintCadence configured in sgpd_config.yaml")
			}

			sprints, err := services.GenerateSprints(app.Ctx, app.Store, app.Logger, services.SprintCadence{
				RRule:          app.Cfg.SprintCadence.RRule,
				CapacityPoints: app.Cfg.SprintCadence.CapacityPoints,
				LengthDays:     app.Cfg.SprintCadence.LengthDays,
				NamePrefix:     app.Cfg.SprintCadence.NamePrefix,
			}, count)
			if err != nil {
				return err
			}

			fmt.Printf("\nGenerated %d sprints:\n\n", len(sprints))
			for _, s := range sprints {
				fmt.Printf("- %s  %s to %s  %d points\n",
					s.Name,
					s.StartDate.Format(dateLayout),
					s.EndDate.Format(dateLayout),
					s.CapacityPoints,
				)
			}
			fmt.Println()
			return nil
		},
	}
}
