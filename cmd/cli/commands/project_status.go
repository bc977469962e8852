package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/core/services"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

// SetProjectStatusCmd creates the setProjectStatus command
func SetProjectStatusCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "setProjectStatus <project_id> <status>",
		Short: "Move a project through its lifecycle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := db.ParseProjectStatus(args[1])
			if err != nil {
				return err
			}

			project, err := services.UpdateProjectStatus(app.Ctx, app.Store, app.Logger, args[0], status)
			if err != nil {
				return err
			}

			fmt.Printf("\nProject %s is now %s\n", project.ID, project.Status)
			if project.AnalysisStartedAt != nil {
				fmt.Printf("Analysis started:    %s\n", project.AnalysisStartedAt.Format("2006-01-02"))
			}
			if project.DevelopmentStartedAt != nil {
				fmt.Printf("Development started: %s\n", project.DevelopmentStartedAt.Format("2006-01-02"))
			}
			if project.ImplementedAt != nil {
				fmt.Printf("Implemented:         %s\n", project.ImplementedAt.Format("2006-01-02"))
			}
			if project.ClosedAt != nil {
				fmt.Printf("Closed:              %s\n", project.ClosedAt.Format("2006-01-02"))
			}
			fmt.Println()
			return nil
		},
	}
}
