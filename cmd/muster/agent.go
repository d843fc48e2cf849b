package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/musterdev/muster/internal/agent"
)

var agentCmd = &cobra.Command{
	Use:   "agent <plan-id>",
	Short: "Drive a plan to completion with an executor",
	Long: `Runs the plan's tasks through a coding-agent subprocess: one actionable
item at a time, or every remaining task per round with --batch. The workspace
is locked for the duration of the run.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		planID, err := strconv.Atoi(args[0])
		if err != nil {
			fatalf("invalid plan id %q", args[0])
		}
		batch, _ := cmd.Flags().GetBool("batch")
		keepOpen, _ := cmd.Flags().GetBool("keep-open")
		execName, _ := cmd.Flags().GetString("executor")
		wsDir, _ := cmd.Flags().GetString("workspace")

		if execName == "" {
			execName = cfg.Executor.Default
		}
		exec, err := executorRegistry().Get(execName)
		if err != nil {
			fatalf("%v", err)
		}

		runner := &agent.Runner{
			Store:             planStore,
			Workspaces:        workspaceManager(),
			Exec:              exec,
			InactivityTimeout: cfg.Executor.InactivityTimeout,
		}
		opts := agent.RunOptions{
			WorkspaceDir: wsDir,
			Batch:        batch,
			KeepOpen:     keepOpen,
		}
		if err := runner.Run(rootCtx, planID, opts); err != nil {
			fatalf("%v", err)
		}
	},
}

func init() {
	agentCmd.Flags().Bool("batch", false, "Hand the executor all remaining tasks per round")
	agentCmd.Flags().Bool("keep-open", false, "Keep an interactive session attached after the run")
	agentCmd.Flags().String("executor", "", "Executor: claude-code or codex-cli (default from config)")
	agentCmd.Flags().String("workspace", "", "Workspace directory (default: current directory)")
	rootCmd.AddCommand(agentCmd)
}
