package main

import (
	"github.com/spf13/cobra"

	"github.com/musterdev/muster/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve plan tools over the Model Context Protocol on stdio",
	Long: `Runs an MCP server exposing plan_list, plan_get, plan_update_status,
ready_plans, and next_action, so agents can work with plans through tool calls.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := mcp.New(planStore, Version).Run(rootCtx); err != nil {
			fatalf("mcp server: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
