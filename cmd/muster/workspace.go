package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/musterdev/muster/internal/workspace"
)

var workspaceCmd = &cobra.Command{
	Use:     "workspace",
	Aliases: []string{"ws"},
	Short:   "Manage registered workspaces",
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered workspaces with live branch and lock state",
	Run: func(cmd *cobra.Command, args []string) {
		repo, _ := cmd.Flags().GetString("repo")
		planID, _ := cmd.Flags().GetInt("plan")

		entries, err := workspaceManager().ListEntries(workspace.ListOptions{
			RepoIdentity: repo,
			PlanID:       planID,
		})
		if err != nil {
			fatalf("listing workspaces: %v", err)
		}

		if jsonOutput {
			if entries == nil {
				entries = []workspace.ListEntry{}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(entries)
			return
		}
		if len(entries) == 0 {
			fmt.Println("No workspaces registered.")
			return
		}
		for _, e := range entries {
			line := e.Path
			if e.Name != "" {
				line = fmt.Sprintf("%s (%s)", e.Path, e.Name)
			}
			if e.Branch != "" {
				line += "  " + color.CyanString(e.Branch)
			}
			if e.Unknown {
				line += "  " + color.YellowString("[unreachable]")
			}
			if e.LockedBy != 0 {
				line += "  " + color.RedString(fmt.Sprintf("[locked by %d]", e.LockedBy))
			}
			fmt.Println(line)
			if e.PlanID != 0 {
				fmt.Printf("    plan %d: %s\n", e.PlanID, e.PlanTitle)
			}
		}
	},
}

var workspaceUpdateCmd = &cobra.Command{
	Use:   "update <path>",
	Short: "Update workspace metadata",
	Long: `Updates registry metadata for a workspace. Flags that are omitted leave
the field unchanged; passing an empty value clears the field.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var patch workspace.Patch
		patch.Name = stringField(cmd, "name")
		patch.Description = stringField(cmd, "description")
		if cmd.Flags().Changed("issue") {
			issues, _ := cmd.Flags().GetStringArray("issue")
			patch.Issues = issuesField(issues)
		}
		if cmd.Flags().Changed("plan") {
			id, _ := cmd.Flags().GetInt("plan")
			if id == 0 {
				patch.PlanID = workspace.Clear[int]()
				patch.PlanTitle = workspace.Clear[string]()
			} else {
				plan, err := planStore.Load(id)
				if err != nil {
					fatalf("%v", err)
				}
				patch.PlanID = workspace.Set(id)
				patch.PlanTitle = workspace.Set(plan.Title)
			}
		}

		if err := workspaceManager().Registry.PatchMetadata(args[0], patch); err != nil {
			fatalf("updating workspace: %v", err)
		}
		if !jsonOutput {
			fmt.Printf("%s Updated %s\n", color.GreenString("✓"), args[0])
		}
	},
}

// stringField maps a flag to a tri-state patch field: unchanged when the flag
// is absent, cleared when it is set to the empty string.
func stringField(cmd *cobra.Command, name string) workspace.Field[string] {
	if !cmd.Flags().Changed(name) {
		return workspace.Field[string]{}
	}
	value, _ := cmd.Flags().GetString(name)
	if value == "" {
		return workspace.Clear[string]()
	}
	return workspace.Set(value)
}

// issuesField maps repeated --issue values to the tri-state patch field. A
// single empty value clears the list, mirroring how --name and --description
// clear their fields.
func issuesField(values []string) workspace.Field[[]string] {
	if len(values) == 1 && values[0] == "" {
		return workspace.Clear[[]string]()
	}
	return workspace.Set(values)
}

var workspaceCreateCmd = &cobra.Command{
	Use:   "create <plan-id>",
	Short: "Provision a workspace for a plan",
	Long: `Provisions a working directory using the configured strategy: a managed
clone on a fresh branch, or a user-supplied script. The workspace is
registered for later agent runs.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		planID, err := strconv.Atoi(args[0])
		if err != nil {
			fatalf("invalid plan id %q", args[0])
		}
		plan, err := planStore.Load(planID)
		if err != nil {
			fatalf("%v", err)
		}

		ws, err := workspaceManager().Create(rootCtx, strconv.Itoa(plan.ID), plan.Path)
		if err != nil {
			fatalf("creating workspace: %v", err)
		}
		if ws == nil {
			fatalf("workspace script did not produce a usable directory")
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(ws)
			return
		}
		fmt.Printf("%s Workspace %s", color.GreenString("✓"), ws.Path)
		if ws.Branch != "" {
			fmt.Printf(" on branch %s", color.CyanString(ws.Branch))
		}
		fmt.Println()
	},
}

var workspaceLockCmd = &cobra.Command{
	Use:   "lock <path>",
	Short: "Lock a workspace so agent runs skip it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		// A lock taken from the CLI must outlive this process.
		if _, err := workspaceManager().Lock(args[0], true); err != nil {
			fatalf("%v", err)
		}
		if !jsonOutput {
			fmt.Printf("%s Locked %s\n", color.GreenString("✓"), args[0])
		}
	},
}

var workspaceUnlockCmd = &cobra.Command{
	Use:   "unlock <path>",
	Short: "Remove a workspace lock",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := workspaceManager().ForceUnlock(args[0]); err != nil {
			fatalf("%v", err)
		}
		if !jsonOutput {
			fmt.Printf("%s Unlocked %s\n", color.GreenString("✓"), args[0])
		}
	},
}

func init() {
	workspaceListCmd.Flags().String("repo", "", "Keep only workspaces of this repository identity")
	workspaceListCmd.Flags().Int("plan", 0, "Keep only workspaces associated with this plan")
	workspaceUpdateCmd.Flags().String("name", "", "Workspace display name (empty clears)")
	workspaceUpdateCmd.Flags().String("description", "", "Workspace description (empty clears)")
	workspaceUpdateCmd.Flags().Int("plan", 0, "Associated plan id (0 clears)")
	workspaceUpdateCmd.Flags().StringArray("issue", nil, "Tracked issue reference (repeatable, single empty value clears)")

	workspaceCmd.AddCommand(workspaceListCmd, workspaceCreateCmd, workspaceUpdateCmd, workspaceLockCmd, workspaceUnlockCmd)
	rootCmd.AddCommand(workspaceCmd)
}
