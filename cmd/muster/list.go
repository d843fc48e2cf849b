package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/musterdev/muster/internal/debug"
	"github.com/musterdev/muster/internal/ready"
	"github.com/musterdev/muster/internal/types"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List plans",
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")
		priorities, _ := cmd.Flags().GetStringSlice("priority")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		limit, _ := cmd.Flags().GetInt("limit")
		sortBy, _ := cmd.Flags().GetString("sort")
		pendingOnly, _ := cmd.Flags().GetBool("pending")

		all, summary, err := planStore.LoadAll()
		if err != nil {
			fatalf("loading plans: %v", err)
		}
		for _, skipped := range summary.Skipped {
			debug.Warnf("skipped %s: %s\n", skipped.File, skipped.Reason)
		}

		filter := ready.Filter{
			Tags:        tags,
			Limit:       limit,
			Sort:        types.SortField(sortBy),
			PendingOnly: pendingOnly,
		}
		for _, p := range priorities {
			filter.Priorities = append(filter.Priorities, types.Priority(p))
		}
		if cmd.Flags().Changed("epic") {
			epic, _ := cmd.Flags().GetInt("epic")
			filter.Epic = &epic
		}

		plans := ready.FilterAndSort(all, filter)
		if status != "" {
			kept := plans[:0]
			for _, p := range plans {
				if string(p.Status) == status {
					kept = append(kept, p)
				}
			}
			plans = kept
		}

		if jsonOutput {
			printPlansJSON(plans)
			return
		}
		if len(plans) == 0 {
			fmt.Println("No plans.")
			return
		}
		for _, p := range plans {
			printPlanLine(p)
		}
	},
}

func init() {
	listCmd.Flags().String("status", "", "Keep only plans with this status")
	listCmd.Flags().StringSliceP("priority", "p", nil, "Keep only these priorities")
	listCmd.Flags().StringSlice("tag", nil, "Keep plans carrying any of these tags")
	listCmd.Flags().Int("epic", 0, "Keep only plans under this epic")
	listCmd.Flags().Bool("pending", false, "Keep only pending plans")
	listCmd.Flags().Int("limit", 0, "Maximum plans to show (0 = all)")
	listCmd.Flags().String("sort", "", "Sort order: priority, created, id, title")
	rootCmd.AddCommand(listCmd)
}
