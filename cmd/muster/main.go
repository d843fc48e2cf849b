// muster is a plan orchestrator for coding agents: plans live as markdown
// files with YAML frontmatter, and muster decides what is ready, drives an
// executor through the work, and merges review findings.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/musterdev/muster/internal/config"
	"github.com/musterdev/muster/internal/debug"
	"github.com/musterdev/muster/internal/executor"
	"github.com/musterdev/muster/internal/store"
	"github.com/musterdev/muster/internal/workspace"
)

// Version is stamped by the release build; "dev" otherwise.
var Version = "dev"

var (
	dirFlag     string
	configFlag  string
	jsonOutput  bool
	verboseFlag bool
	quietFlag   bool

	cfg       *config.Config
	planStore *store.Store

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "muster",
	Short: "muster - Plan orchestrator for coding agents",
	Long:  `Plans as markdown files, dependencies between them, and an engine that hands the ready ones to a coding agent.`,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("muster version %s\n", Version)
			return
		}
		_ = cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug.SetVerbose(verboseFlag)
		debug.SetQuiet(quietFlag)
		setupSignalContext()

		var err error
		cfg, err = config.Load(configFlag)
		if err != nil {
			fatalf("loading config: %v", err)
		}
		if dirFlag != "" {
			cfg.PlansDir = dirFlag
		}

		planStore, err = store.New(cfg.PlansDir)
		if err != nil {
			fatalf("opening plan store %s: %v", cfg.PlansDir, err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if planStore != nil {
			_ = planStore.Close()
		}
		if rootCancel != nil {
			rootCancel()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dirFlag, "dir", "", "Plan directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.Flags().Bool("version", false, "Print version and exit")
}

// setupSignalContext cancels the root context on SIGINT/SIGTERM so running
// executors are killed instead of orphaned.
func setupSignalContext() {
	rootCtx, rootCancel = context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		debug.Warnf("interrupted, shutting down\n")
		rootCancel()
	}()
}

func workspaceManager() *workspace.Manager {
	return workspace.NewManager(cfg.Workspace)
}

func executorRegistry() *executor.Registry {
	return executor.NewRegistry(
		executor.NewClaude(cfg.Executor.ClaudeBin),
		executor.NewCodex(cfg.Executor.CodexBin),
	)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
