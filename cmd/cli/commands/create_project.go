package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/core/services"
)

// CreateProjectCmd creates the createProject command
func CreateProjectCmd(app *AppContext) *cobra.Command {
	var input services.CreateProjectInput

	cmd := &cobra.Command{
		Use:   "createProject",
		Short: "Register a development request and compute its priority score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := services.CreateProject(app.Ctx, app.Store, app.Tickets, app.Logger, input)
			if err != nil {
				return err
			}

			fmt.Printf("\nProject created!\n\n")
			fmt.Printf("ID:             %s\n", project.ID)
			fmt.Printf("Title:          %s\n", project.Title)
			fmt.Printf("Department:     %s\n", project.RequestingDepartment)
			fmt.Printf("Impact:         %d\n", project.ImpactScore)
			fmt.Printf("Frequency:      %d\n", project.FrequencyScore)
			fmt.Printf("Urgency:        %s (%d)\n", project.UrgencyLevel, project.UrgencyScore)
			fmt.Printf("Raw score:      %d\n", project.ScoreRaw)
			fmt.Printf("Weighted score: %.2f\n\n", project.ScoreWeighted)
			return nil
		},
	}

	cmd.Flags().StringVar(&input.RequestingDepartment, "department", "", "Requesting department (required)")
	cmd.Flags().StringVar(&input.Title, "title", "", "Project title (required)")
	cmd.Flags().StringVar(&input.ShortDescription, "short-description", "", "One-line summary")
	cmd.Flags().StringVar(&input.ProblemDescription, "problem", "", "Problem description (required)")
	cmd.Flags().StringVar(&input.Context, "context", "", "Additional context")
	cmd.Flags().StringSliceVar(&input.ImpactCategories, "impact-categories", nil, "Impact categories (comma separated)")
	cmd.Flags().StringVar(&input.ImpactDescription, "impact-description", "", "Impact description")
	cmd.Flags().IntVar(&input.ImpactScore, "impact", 0, "Impact score 1-5 (required)")
	cmd.Flags().StringVar(&input.FrequencyDescription, "frequency-description", "", "Frequency description")
	cmd.Flags().Float64Var(&input.FrequencyNumber, "frequency-number", 0, "Occurrences per frequency unit")
	cmd.Flags().StringVar(&input.FrequencyUnit, "frequency-unit", "", "Frequency unit: day, week or month")
	cmd.Flags().IntVar(&input.FrequencyScore, "frequency", 0, "Frequency score 1-5 (when no structured frequency is given)")
	cmd.Flags().StringVar(&input.UrgencyLevel, "urgency", "", "Urgency: high, medium or low (required)")
	cmd.Flags().BoolVar(&input.HasExternalDependencies, "external-dependencies", false, "The project depends on external parties")
	cmd.Flags().StringVar(&input.DependenciesDetail, "dependencies-detail", "", "Detail of external dependencies")
	cmd.Flags().StringVar(&input.OtherDepartmentsInvolved, "other-departments", "", "Other departments involved")
	cmd.Flags().StringVar(&input.ContactName, "contact-name", "", "Contact name (required)")
	cmd.Flags().StringVar(&input.ContactDepartment, "contact-department", "", "Contact department")
	cmd.Flags().StringVar(&input.ContactEmail, "contact-email", "", "Contact email")
	cmd.Flags().StringVar(&input.ContactPhone, "contact-phone", "", "Contact phone")

	cmd.MarkFlagRequired("department")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("problem")
	cmd.MarkFlagRequired("impact")
	cmd.MarkFlagRequired("urgency")
	cmd.MarkFlagRequired("contact-name")
	return cmd
}
