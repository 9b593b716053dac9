package cmd

import (
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/loom/internal/app"
	"github.com/firefly-engineering/loom/internal/audit"
	"github.com/firefly-engineering/loom/internal/lifecycle"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup [identifier]",
	Short: "Tear down looms after safety checks",
	Long: `Tears down a loom: removes its worktree, deletes its branch, its database
branch and its versioned executables, then its metadata record.

The identifier may be an issue number (42 or #42), a tracker key (ENG-42),
a pull request number, or a branch name. Numeric identifiers are matched
against pull request workspaces first.

Before anything is removed the loom must have no uncommitted changes, no
unpushed commits and, when its branch is deleted, be merged into its parent
branch. --force waives those checks. The main workspace and looms that other
looms depend on are never torn down.`,
	Example: `  loom cleanup 42
  loom cleanup feat/new-parser --keep-branch
  loom cleanup --issue 25 --dry-run
  loom cleanup --all --force
  loom cleanup --list`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCleanup,
}

var (
	cleanupIssue        string
	cleanupList         bool
	cleanupAll          bool
	cleanupForce        bool
	cleanupDryRun       bool
	cleanupKeepBranch   bool
	cleanupKeepDatabase bool
	cleanupNoMergeCheck bool
)

func init() {
	cleanupCmd.Flags().StringVar(&cleanupIssue, "issue", "", "Tear down every loom for an issue or PR number")
	cleanupCmd.Flags().BoolVar(&cleanupList, "list", false, "List workspaces instead of tearing down")
	cleanupCmd.Flags().BoolVar(&cleanupAll, "all", false, "Tear down every loom except the main workspace")
	cleanupCmd.Flags().BoolVarP(&cleanupForce, "force", "f", false, "Skip confirmation and the uncommitted/unpushed/unmerged checks")
	cleanupCmd.Flags().BoolVarP(&cleanupDryRun, "dry-run", "n", false, "Show what would be removed without removing anything")
	cleanupCmd.Flags().BoolVar(&cleanupKeepBranch, "keep-branch", false, "Keep the loom's branch")
	cleanupCmd.Flags().BoolVar(&cleanupKeepDatabase, "keep-database", false, "Keep the loom's database branch")
	cleanupCmd.Flags().BoolVar(&cleanupNoMergeCheck, "no-merge-check", false, "Do not require the branch to be merged before deleting it")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	in := lifecycle.Input{
		Issue:  cleanupIssue,
		List:   cleanupList,
		All:    cleanupAll,
		Force:  cleanupForce,
		DryRun: cleanupDryRun,
	}
	if len(args) > 0 {
		in.Identifier = args[0]
	}
	if _, err := lifecycle.ParseMode(in); err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	in.DeleteBranch = a.Config.Teardown.DeleteBranch && !cleanupKeepBranch
	in.CheckMergeSafety = a.Config.Teardown.CheckMergeSafety && !cleanupNoMergeCheck
	in.KeepDatabase = cleanupKeepDatabase

	coord, err := a.Coordinator()
	if err != nil {
		return err
	}

	a.Logger.Debug("running cleanup", "identifier", in.Identifier, "issue", in.Issue, "all", in.All)
	out, runErr := coord.Run(cmd.Context(), in)
	recordTeardowns(a, out)
	if out != nil {
		if a.JSON {
			if err := lifecycle.RenderJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
		} else {
			lifecycle.Render(cmd.OutOrStdout(), out)
		}
	}
	if runErr != nil {
		return runErr
	}

	if out != nil && out.Mode != lifecycle.ModeList && !out.Cancelled && !out.DryRun && out.Summary != nil && out.Summary.Targets > 0 {
		logSuccess("Cleanup complete")
	}
	return nil
}

// recordTeardowns journals every teardown that got past resolution.
func recordTeardowns(a *app.App, out *lifecycle.Outcome) {
	if out == nil || out.DryRun {
		return
	}
	for _, res := range out.Results {
		if res == nil || res.Branch == "" {
			continue
		}
		a.Record(audit.Event{
			Type:    audit.EventTeardown,
			Loom:    res.Branch,
			State:   string(res.State),
			Details: res.Workspace,
			Errors:  res.Errors,
		})
	}
}
