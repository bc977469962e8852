package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/core/services"
)

const dateLayout = "2006-01-02"

// CreateSprintCmd creates the createSprint command
func CreateSprintCmd(app *AppContext) *cobra.Command {
	var (
		capacity int
		notes    string
	)

	cmd := &cobra.Command{
		Use:   "createSprint <name> <start_date> <end_date>",
		Short: "Create a sprint with a fixed point capacity (dates as YYYY-MM-DD)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := time.Parse(dateLayout, args[1])
			if err != nil {
				return fmt.Errorf("start_date must be YYYY-MM-DD: %w", err)
			}
			end, err := time.Parse(dateLayout, args[2])
			if err != nil {
				return fmt.Errorf("end_date must be YYYY-MM-DD: %w", err)
			}

			sprint, err := services.CreateSprint(app.Ctx, app.Store, app.Logger, services.CreateSprintInput{
				Name:           args[0],
				StartDate:      start,
				EndDate:        end,
				CapacityPoints: capacity,
				Notes:          notes,
			})
			if err != nil {
				return err
			}

			fmt.Printf("\nSprint created!\n\n")
			fmt.Printf("ID:       %s\n", sprint.ID)
			fmt.Printf("Name:     %s\n", sprint.Name)
			fmt.Printf("Dates:    %s to %s\n", sprint.StartDate.Format(dateLayout), sprint.EndDate.Format(dateLayout))
			fmt.Printf("Capacity: %d points\n\n", sprint.CapacityPoints)
			return nil
		},
	}

	cmd.Flags().IntVar(&capacity, "capacity", 0, "Sprint capacity in points")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	return cmd
}

// ListSprintsCmd creates the listSprints command
func ListSprintsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listSprints",
		Short: "List sprints with their capacity usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, err := services.ListSprintSummaries(app.Ctx, app.Store)
			if err != nil {
				return err
			}

			fmt.Printf("\nFound %d sprints:\n\n", len(summaries))
			for _, s := range summaries {
				fmt.Printf("- %s (%s)  %s to %s  %d/%d points used  [%s]\n",
					s.Sprint.Name,
					s.Sprint.ID,
					s.Sprint.StartDate.Format(dateLayout),
					s.Sprint.EndDate.Format(dateLayout),
					s.AllocatedPoints,
					s.Sprint.CapacityPoints,
					s.Sprint.Status,
				)
			}
			fmt.Println()
			return nil
		},
	}
}

// SprintDetailCmd creates the sprintDetail command
func SprintDetailCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sprintDetail <sprint_id>",
		Short: "Show a sprint's allocations and the assignable backlog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := services.GetSprintDetail(app.Ctx, app.Store, args[0])
			if err != nil {
				return err
			}

			s := detail.Summary
			fmt.Printf("\n%s  %s to %s\n", s.Sprint.Name, s.Sprint.StartDate.Format(dateLayout), s.Sprint.EndDate.Format(dateLayout))
			fmt.Printf("Capacity: %d points, allocated %d, available %d\n\n", s.Sprint.CapacityPoints, s.AllocatedPoints, s.AvailablePoints)

			fmt.Printf("Allocations (%d):\n", len(detail.Allocations))
			for _, a := range detail.Allocations {
				title := a.Allocation.ProjectID
				if a.Project != nil {
					title = a.Project.Title
				}
				fmt.Printf("  %3d pts  %-12s %s\n", a.Allocation.AllocatedPoints, a.Allocation.Status, title)
			}

			fmt.Printf("\nBacklog (%d):\n", len(detail.Backlog))
			for _, p := range detail.Backlog {
				fmt.Printf("  %.2f  %s\n", p.ScoreWeighted, p.Title)
			}
			fmt.Println()
			return nil
		},
	}
}

// DeleteSprintCmd creates the deleteSprint command
func DeleteSprintCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deleteSprint <sprint_id>",
		Short: "Delete a sprint that has no allocations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.DeleteSprint(app.Ctx, app.Store, app.Logger, args[0]); err != nil {
				return err
			}
			fmt.Printf("\nSprint %s deleted\n\n", args[0])
			return nil
		},
	}
}
