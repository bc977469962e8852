package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/core/services"
)

// AllocatePointsCmd creates the allocatePoints command
func AllocatePointsCmd(app *AppContext) *cobra.Command {
	var (
		status   string
		comments string
	)

	cmd := &cobra.Command{
		Use:   "allocatePoints <sprint_id> <project_id> <points>",
		Short: "Allocate points from a sprint's capacity to a project",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("points must be a number: %w", err)
			}

			allocation, err := services.AllocatePoints(app.Ctx, app.Store, app.Logger, services.AllocatePointsInput{
				SprintID:        args[0],
				ProjectID:       args[1],
				AllocatedPoints: points,
				Status:          status,
				Comments:        comments,
			})
			if err != nil {
				return err
			}

			fmt.Printf("\nAllocated %d points\n\n", allocation.AllocatedPoints)
			fmt.Printf("Allocation ID: %s\n", allocation.ID)
			fmt.Printf("Status:        %s\n\n", allocation.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Allocation status (defaults to planned)")
	cmd.Flags().StringVar(&comments, "comments", "", "Free-form comments")
	return cmd
}

// UpdateAllocationCmd creates the updateAllocation command
func UpdateAllocationCmd(app *AppContext) *cobra.Command {
	var (
		points   int
		status   string
		comments string
	)

	cmd := &cobra.Command{
		Use:   "updateAllocation <allocation_id>",
		Short: "Update an allocation's points, status or comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := services.UpdateAllocationInput{AllocationID: args[0]}
			if cmd.Flags().Changed("points") {
				input.AllocatedPoints = &points
			}
			if cmd.Flags().Changed("status") {
				input.Status = &status
			}
			if cmd.Flags().Changed("comments") {
				input.Comments = &comments
			}

			allocation, err := services.UpdateAllocation(app.Ctx, app.Store, app.Logger, input)
			if err != nil {
				return err
			}

			fmt.Printf("\nAllocation updated\n\n")
			fmt.Printf("Points: %d\n", allocation.AllocatedPoints)
			fmt.Printf("Status: %s\n\n", allocation.Status)
			return nil
		},
	}

	cmd.Flags().IntVar(&points, "points", 0, "New allocated points")
	cmd.Flags().StringVar(&status, "status", "", "New status: planned, in_progress, done or carried_over")
	cmd.Flags().StringVar(&comments, "comments", "", "New comments (empty clears them)")
	return cmd
}
