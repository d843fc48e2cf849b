package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/musterdev/muster/internal/types"
)

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a new plan file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		goal, _ := cmd.Flags().GetString("goal")
		priority, _ := cmd.Flags().GetString("priority")
		deps, _ := cmd.Flags().GetIntSlice("dep")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		epic, _ := cmd.Flags().GetBool("epic")
		taskTitles, _ := cmd.Flags().GetStringArray("task")

		id, err := planStore.NextID()
		if err != nil {
			fatalf("allocating plan id: %v", err)
		}

		plan := &types.Plan{
			ID:           id,
			UUID:         uuid.NewString(),
			Title:        args[0],
			Goal:         goal,
			Status:       types.StatusPending,
			Priority:     types.Priority(priority),
			Dependencies: deps,
			Tags:         tags,
			Epic:         epic,
		}
		if cmd.Flags().Changed("parent") {
			parent, _ := cmd.Flags().GetInt("parent")
			plan.Parent = &parent
		}
		for _, title := range taskTitles {
			plan.Tasks = append(plan.Tasks, types.Task{Title: title})
		}

		if err := planStore.Save(plan); err != nil {
			fatalf("saving plan: %v", err)
		}

		if jsonOutput {
			_ = json.NewEncoder(os.Stdout).Encode(plan)
			return
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Created plan %d: %s (%s)\n", green("✓"), plan.ID, plan.Title, plan.Path)
	},
}

func init() {
	addCmd.Flags().String("goal", "", "One-line goal for the plan")
	addCmd.Flags().StringP("priority", "p", "", "Priority: urgent, high, medium, low, maybe")
	addCmd.Flags().IntSlice("dep", nil, "Plan id this plan depends on (repeatable)")
	addCmd.Flags().StringSlice("tag", nil, "Tag (repeatable)")
	addCmd.Flags().Int("parent", 0, "Parent plan id")
	addCmd.Flags().Bool("epic", false, "Mark as an epic (completes when all children do)")
	addCmd.Flags().StringArray("task", nil, "Task title (repeatable)")
	rootCmd.AddCommand(addCmd)
}
