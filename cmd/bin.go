package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/loom/internal/app"
	"github.com/firefly-engineering/loom/internal/audit"
	"github.com/firefly-engineering/loom/internal/binlink"
	"github.com/firefly-engineering/loom/internal/config"
	"github.com/firefly-engineering/loom/internal/errors"
)

var binCmd = &cobra.Command{
	Use:   "bin",
	Short: "Manage versioned executables in the shared bin directory",
}

var binLinkCmd = &cobra.Command{
	Use:   "link <workspace-path> <id>",
	Short: "Build a workspace and link its executables as <name>-<id>",
	Long: `Runs the project's build command in the workspace, then links every
executable listed under "bin" in .loom/settings.yaml into the bin directory
with an -<id> suffix. Nothing is linked unless every target exists and is
executable.`,
	Args: cobra.ExactArgs(2),
	RunE: runBinLink,
}

var binCleanupCmd = &cobra.Command{
	Use:   "cleanup <id>",
	Short: "Remove the versioned executables for an id",
	Args:  cobra.ExactArgs(1),
	RunE:  runBinCleanup,
}

var binGCCmd = &cobra.Command{
	Use:   "gc",
	Short: "Remove versioned executables whose workspace is gone",
	Args:  cobra.NoArgs,
	RunE:  runBinGC,
}

var (
	binLinkForce bool
	binGCDryRun  bool
)

func init() {
	binLinkCmd.Flags().BoolVarP(&binLinkForce, "force", "f", false, "Replace regular files that occupy a link name")
	binGCCmd.Flags().BoolVarP(&binGCDryRun, "dry-run", "n", false, "List orphaned links without removing them")
	binCmd.AddCommand(binLinkCmd, binCleanupCmd, binGCCmd)
	rootCmd.AddCommand(binCmd)
}

func runBinLink(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	if err := a.RequireRepo(); err != nil {
		return err
	}
	if len(a.Settings.Bin) == 0 {
		return errors.ConfigError(fmt.Sprintf("no executables configured in %s", config.SettingsPath(a.Repo.Dir())), nil)
	}

	workspacePath, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	id := args[1]

	entries := make([]binlink.BinEntry, 0, len(a.Settings.Bin))
	for _, b := range a.Settings.Bin {
		entries = append(entries, binlink.BinEntry{Name: b.Name, Target: b.Target})
	}

	linked, err := a.Bins.Setup(cmd.Context(), workspacePath, id, entries, binlink.SetupOptions{Force: binLinkForce})
	if err != nil {
		return err
	}
	recordExecutables(cmd, a, workspacePath, linked)

	if a.JSON {
		return writeJSON(cmd.OutOrStdout(), map[string]any{"binDir": a.Bins.BinDir(), "linked": linked})
	}
	for _, name := range linked {
		logSuccess("Linked %s", filepath.Join(a.Bins.BinDir(), name))
	}
	return nil
}

// recordExecutables journals the links and adds them to the workspace's
// metadata record, if it has one.
func recordExecutables(cmd *cobra.Command, a *app.App, workspacePath string, linked []string) {
	ws, err := a.Registry.FindByPath(cmd.Context(), workspacePath)
	if err != nil || ws == nil || ws.Branch == "" {
		return
	}
	a.Record(audit.Event{Type: audit.EventLink, Loom: ws.Branch, Details: strings.Join(linked, " ")})
	if !a.Metadata.Exists(ws.Branch) {
		return
	}
	meta, err := a.Metadata.Load(ws.Branch)
	if err != nil {
		a.Logger.Debug("failed to load loom metadata", "branch", ws.Branch, "error", err)
		return
	}

	seen := make(map[string]bool, len(meta.Executables))
	for _, name := range meta.Executables {
		seen[name] = true
	}
	for _, name := range linked {
		if !seen[name] {
			meta.Executables = append(meta.Executables, name)
		}
	}
	if err := a.Metadata.Save(meta); err != nil {
		logWarning("Could not record executables for %s: %v", ws.Branch, err)
	}
}

func runBinCleanup(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	removed := a.Bins.CleanupVersionedExecutables(args[0])

	if a.JSON {
		return writeJSON(cmd.OutOrStdout(), map[string]any{"removed": removed})
	}
	if len(removed) == 0 {
		logInfo("No executables ending in -%s", args[0])
		return nil
	}
	for _, name := range removed {
		logSuccess("Removed %s", name)
	}
	return nil
}

func runBinGC(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	orphans, err := a.Bins.FindOrphanedSymlinks()
	if err != nil {
		return err
	}

	removed := 0
	if !binGCDryRun && len(orphans) > 0 {
		removed, err = a.Bins.CleanupOrphanedSymlinks()
		if err != nil {
			return err
		}
	}

	if a.JSON {
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"dryRun":  binGCDryRun,
			"orphans": orphans,
			"removed": removed,
		})
	}

	if len(orphans) == 0 {
		logInfo("No orphaned executables in %s", a.Bins.BinDir())
		return nil
	}
	for _, o := range orphans {
		if binGCDryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "Would remove %s -> %s\n", o.Name, o.BrokenTarget)
		}
	}
	if !binGCDryRun {
		logSuccess("Removed %d orphaned executable(s)", removed)
	}
	return nil
}
