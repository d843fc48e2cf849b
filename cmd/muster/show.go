package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/musterdev/muster/internal/tasks"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one plan in full",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			fatalf("invalid plan id %q", args[0])
		}
		plan, err := planStore.Load(id)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(plan)
			return
		}

		bold := color.New(color.Bold).SprintFunc()
		dim := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("%s %s\n", bold(fmt.Sprintf("Plan %d:", plan.ID)), bold(plan.Title))
		fmt.Printf("  status: %s  priority: %s\n", statusLabel(plan.Status), priorityLabel(plan.Priority))
		if plan.Goal != "" {
			fmt.Printf("  goal: %s\n", plan.Goal)
		}
		if len(plan.Dependencies) > 0 {
			fmt.Printf("  depends on: %v\n", plan.Dependencies)
		}
		if plan.Parent != nil {
			fmt.Printf("  parent: %d\n", *plan.Parent)
		}
		if len(plan.Tags) > 0 {
			fmt.Printf("  tags: %s\n", strings.Join(plan.Tags, ", "))
		}
		if plan.Branch != "" {
			fmt.Printf("  branch: %s\n", plan.Branch)
		}

		next := tasks.NextActionableItem(plan)
		for ti, task := range plan.Tasks {
			mark := "[ ]"
			if task.IsComplete() {
				mark = color.GreenString("[x]")
			}
			cursor := "  "
			if next != nil && next.TaskIndex == ti {
				cursor = color.CyanString("> ")
			}
			fmt.Printf("%s%s %s\n", cursor, mark, task.Title)
			for si, step := range task.Steps {
				stepMark := "[ ]"
				if step.Done {
					stepMark = color.GreenString("[x]")
				}
				stepCursor := "    "
				if next != nil && next.Kind == tasks.KindStep && next.TaskIndex == ti && next.StepIndex == si {
					stepCursor = "  " + color.CyanString("> ")
				}
				fmt.Printf("%s%s %s\n", stepCursor, stepMark, step.Prompt)
			}
		}

		if plan.Details != "" {
			fmt.Printf("\n%s\n%s\n", dim("details:"), plan.Details)
		}
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
