package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/musterdev/muster/internal/ready"
	"github.com/musterdev/muster/internal/types"
)

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "Show plans ready to execute (dependencies done, tasks present)",
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		priorities, _ := cmd.Flags().GetStringSlice("priority")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		sortBy, _ := cmd.Flags().GetString("sort")

		all, _, err := planStore.LoadAll()
		if err != nil {
			fatalf("loading plans: %v", err)
		}

		filter := ready.Filter{
			Tags:  tags,
			Limit: limit,
			Sort:  types.SortField(sortBy),
		}
		for _, p := range priorities {
			filter.Priorities = append(filter.Priorities, types.Priority(p))
		}

		plans := ready.Plans(all, filter)
		if jsonOutput {
			printPlansJSON(plans)
			return
		}
		if len(plans) == 0 {
			fmt.Println("No ready plans.")
			return
		}
		for _, p := range plans {
			printPlanLine(p)
		}
	},
}

func init() {
	readyCmd.Flags().Int("limit", 0, "Maximum plans to show (0 = all)")
	readyCmd.Flags().StringSliceP("priority", "p", nil, "Keep only these priorities")
	readyCmd.Flags().StringSlice("tag", nil, "Keep plans carrying any of these tags")
	readyCmd.Flags().String("sort", "", "Sort order: priority, created, id, title")
	rootCmd.AddCommand(readyCmd)
}
