package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/musterdev/muster/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review <plan-id>",
	Short: "Review a plan's implementation with one or more executors",
	Long: `Asks the selected executors to review the work done for a plan and merges
their findings into one report. With --executor both, reviews run concurrently
and a single failing executor degrades to a warning.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		planID, err := strconv.Atoi(args[0])
		if err != nil {
			fatalf("invalid plan id %q", args[0])
		}
		execName, _ := cmd.Flags().GetString("executor")
		taskArgs, _ := cmd.Flags().GetStringArray("task")
		printFlag, _ := cmd.Flags().GetBool("print")
		pretty, _ := cmd.Flags().GetBool("pretty")
		wsDir, _ := cmd.Flags().GetString("workspace")

		plan, err := planStore.Load(planID)
		if err != nil {
			fatalf("%v", err)
		}
		executors, err := executorRegistry().Select(execName)
		if err != nil {
			fatalf("%v", err)
		}

		filter := parseTaskFilter(taskArgs)
		result, err := review.Run(rootCtx, plan, executors, filter, review.Options{
			WorkspaceDir:      wsDir,
			InactivityTimeout: cfg.Executor.InactivityTimeout,
		})
		if err != nil {
			fatalf("%v", err)
		}

		for _, warning := range result.Warnings {
			fmt.Fprintf(os.Stderr, "%s %s\n", color.YellowString("Warning:"), warning)
		}

		if reviewWantsJSON(printFlag, pretty, jsonOutput) {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(result)
			return
		}
		printReview(result)
	},
}

// reviewWantsJSON selects the output form: JSON is the default, --pretty asks
// for the human listing, and --print or --json forces structured output even
// when --pretty is also given.
func reviewWantsJSON(printFlag, pretty, jsonFlag bool) bool {
	return printFlag || jsonFlag || !pretty
}

// parseTaskFilter splits --task values: integers select by index, everything
// else selects by title.
func parseTaskFilter(args []string) *review.TaskFilter {
	if len(args) == 0 {
		return nil
	}
	filter := &review.TaskFilter{}
	for _, arg := range args {
		if idx, err := strconv.Atoi(arg); err == nil {
			filter.Indices = append(filter.Indices, idx)
		} else {
			filter.Titles = append(filter.Titles, arg)
		}
	}
	return filter
}

func printReview(result *review.Result) {
	fmt.Println(color.New(color.Bold).Sprint(result.Summary))
	severityColor := map[string]func(format string, a ...interface{}) string{
		"error": color.RedString,
		"warn":  color.YellowString,
	}
	for _, issue := range result.Issues {
		loc := issue.File
		if issue.Line > 0 {
			loc = fmt.Sprintf("%s:%d", issue.File, issue.Line)
		}
		if loc == "" {
			loc = "(general)"
		}
		sev := issue.Severity
		if paint, ok := severityColor[sev]; ok {
			sev = paint("%s", sev)
		}
		fmt.Printf("%3d. %s %s [%s] %s\n", issue.ID, loc, sev, issue.Executor, issue.Title)
		if issue.Body != "" {
			fmt.Printf("     %s\n", issue.Body)
		}
	}
}

func init() {
	reviewCmd.Flags().String("executor", "both", "Executor: claude-code, codex-cli, or both")
	reviewCmd.Flags().StringArray("task", nil, "Limit to a task, by index or exact title (repeatable)")
	reviewCmd.Flags().Bool("print", false, "Non-interactive structured (JSON) output")
	reviewCmd.Flags().Bool("pretty", false, "Human-readable listing instead of JSON")
	reviewCmd.Flags().String("workspace", "", "Workspace directory the review runs in")
	rootCmd.AddCommand(reviewCmd)
}
