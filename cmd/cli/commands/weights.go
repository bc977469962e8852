package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/core/services"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

// ShowWeightsCmd creates the showWeights command
func ShowWeightsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "showWeights",
		Short: "Show the active priority weights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			weights, err := app.Store.GetActiveWeights(app.Ctx)
			if err != nil {
				return err
			}

			fmt.Printf("\nActive priority weights:\n\n")
			fmt.Printf("Impact:    %.2f\n", weights.ImpactWeight)
			fmt.Printf("Frequency: %.2f\n", weights.FrequencyWeight)
			fmt.Printf("Urgency:   %.2f\n\n", weights.UrgencyWeight)
			return nil
		},
	}
}

// UpdateWeightsCmd creates the updateWeights command
func UpdateWeightsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "updateWeights <impact> <frequency> <urgency>",
		Short: "Replace the priority weights and recalculate every weighted score",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make([]float64, 3)
			for i, raw := range args {
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return fmt.Errorf("weights must be numbers: %w", err)
				}
				values[i] = v
			}

			result, err := services.UpdateWeights(app.Ctx, app.Store, app.Logger, db.PriorityWeights{
				ImpactWeight:    values[0],
				FrequencyWeight: values[1],
				UrgencyWeight:   values[2],
			})
			if err != nil {
				return err
			}

			fmt.Printf("\nWeights updated. %d projects rescored.\n\n", len(result.Projects))
			for _, p := range result.Projects {
				fmt.Printf("- %.2f %s\n", p.ScoreWeighted, p.Title)
			}
			if len(result.Failures) > 0 {
				fmt.Printf("\n%d projects could not be rescored:\n", len(result.Failures))
				for _, f := range result.Failures {
					fmt.Printf("- %s: %v\n", f.ProjectID, f.Err)
				}
			}
			fmt.Println()
			return nil
		},
	}
}
