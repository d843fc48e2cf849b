package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/musterdev/muster/internal/tasks"
)

var doneCmd = &cobra.Command{
	Use:   "done <plan-id> <task-index> [step-index]",
	Short: "Mark a task or step done by hand",
	Long: `Records completion outside an agent run. Completing the last item marks
the plan done and cascades to any parent epics.`,
	Args: cobra.RangeArgs(2, 3),
	Run: func(cmd *cobra.Command, args []string) {
		ids := make([]int, len(args))
		for i, arg := range args {
			n, err := strconv.Atoi(arg)
			if err != nil {
				fatalf("invalid number %q", arg)
			}
			ids[i] = n
		}

		plan, err := planStore.Load(ids[0])
		if err != nil {
			fatalf("%v", err)
		}

		machine := tasks.NewMachine(planStore)
		if len(ids) == 3 {
			err = machine.MarkStepDone(plan, ids[1], ids[2])
		} else {
			err = machine.MarkTaskDone(plan, ids[1])
		}
		if err != nil {
			fatalf("%v", err)
		}

		if tasks.NextActionableItem(plan) == nil {
			fmt.Printf("%s Plan %d complete\n", color.GreenString("✓"), plan.ID)
			return
		}
		fmt.Printf("%s Recorded\n", color.GreenString("✓"))
	},
}

func init() {
	rootCmd.AddCommand(doneCmd)
}
