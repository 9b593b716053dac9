package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/loom/internal/logging"
)

var (
	verbose    bool
	jsonOutput bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Workspace lifecycle and safe teardown for parallel agent sessions",
	Long: `loom manages isolated git worktrees ("looms") so several coding-agent
sessions can work on different issues, pull requests or branches at once.

Each loom may own:
  - A git worktree and its branch
  - Versioned executables in the shared bin directory (<name>-<id>)
  - An ephemeral database branch
  - A metadata record naming its parent loom

Teardown checks for uncommitted, unpushed and unmerged work and refuses to
remove a loom that other looms depend on.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose, jsonOutput, os.Stderr)
	},
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results and logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.toml (default $XDG_CONFIG_HOME/loom/config.toml)")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
)
