package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/core/services"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

// ListProjectsCmd creates the listProjects command
func ListProjectsCmd(app *AppContext) *cobra.Command {
	var (
		department string
		statuses   []string
		search     string
		sortField  string
		direction  string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "listProjects",
		Short: "List development requests ordered by priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters := db.ProjectFilters{
				RequestingDepartment: department,
				Search:               search,
				Limit:                limit,
			}
			for _, raw := range statuses {
				status, err := db.ParseProjectStatus(raw)
				if err != nil {
					return err
				}
				filters.Statuses = append(filters.Statuses, status)
			}
			switch sortField {
			case "weighted":
				filters.SortField = db.SortByScoreWeighted
			case "raw":
				filters.SortField = db.SortByScoreRaw
			case "created":
				filters.SortField = db.SortByCreatedAt
			default:
				return fmt.Errorf("unknown sort field %q (use weighted, raw or created)", sortField)
			}
			if direction == "asc" {
				filters.SortDirection = db.SortAsc
			} else {
				filters.SortDirection = db.SortDesc
			}

			projects, err := services.ListProjects(app.Ctx, app.Store, filters)
			if err != nil {
				return err
			}

			fmt.Printf("\nFound %d projects:\n\n", len(projects))
			for _, p := range projects {
				reviewed := ""
				if p.IsReviewedByTeam {
					reviewed = " [reviewed]"
				}
				fmt.Printf("- %.2f (raw %2d) %-14s %s (%s)%s\n",
					p.ScoreWeighted,
					p.ScoreRaw,
					p.Status,
					p.Title,
					p.RequestingDepartment,
					reviewed,
				)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVar(&department, "department", "", "Filter by requesting department")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, fmt.Sprintf("Filter by status (%s)", strings.Join([]string{
		"new", "under_analysis", "prioritized", "in_development", "in_testing", "implemented", "maintenance", "rejected", "closed",
	}, ", ")))
	cmd.Flags().StringVar(&search, "search", "", "Search in title and short description")
	cmd.Flags().StringVar(&sortField, "sort", "weighted", "Sort field: weighted, raw or created")
	cmd.Flags().StringVar(&direction, "direction", "desc", "Sort direction: asc or desc")
	cmd.Flags().IntVar(&limit, "limit", db.DefaultListLimit, "Maximum number of projects to return")
	return cmd
}
