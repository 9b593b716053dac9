package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/loom/internal/app"
	"github.com/firefly-engineering/loom/internal/audit"
	"github.com/firefly-engineering/loom/internal/database"
	"github.com/firefly-engineering/loom/internal/errors"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage ephemeral database branches",
}

var dbCreateCmd = &cobra.Command{
	Use:   "create <branch>",
	Short: "Create a database branch from the configured source",
	Args:  cobra.ExactArgs(1),
	RunE:  runDBCreate,
}

var dbDeleteCmd = &cobra.Command{
	Use:   "delete <branch>",
	Short: "Delete a database branch",
	Args:  cobra.ExactArgs(1),
	RunE:  runDBDelete,
}

var dbExistsCmd = &cobra.Command{
	Use:   "exists <branch>",
	Short: "Report whether a database branch exists",
	Args:  cobra.ExactArgs(1),
	RunE:  runDBExists,
}

func init() {
	dbCmd.AddCommand(dbCreateCmd, dbDeleteCmd, dbExistsCmd)
	rootCmd.AddCommand(dbCmd)
}

func databaseProvider(cmd *cobra.Command) (*app.App, database.Provider, error) {
	a, err := newApp(cmd)
	if err != nil {
		return nil, nil, err
	}
	if a.Database == nil {
		return nil, nil, errors.ConfigError("no database provider configured (set database.provider in config.toml or .loom/settings.yaml)", nil)
	}
	return a, a.Database, nil
}

func runDBCreate(cmd *cobra.Command, args []string) error {
	a, db, err := databaseProvider(cmd)
	if err != nil {
		return err
	}

	name, err := db.CreateBranch(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	a.Record(audit.Event{Type: audit.EventDBCreate, Loom: args[0], Details: name})

	if a.JSON {
		return writeJSON(cmd.OutOrStdout(), map[string]any{"provider": db.Name(), "branch": args[0], "name": name})
	}
	logSuccess("Created %s database branch %s", db.Name(), name)
	return nil
}

func runDBDelete(cmd *cobra.Command, args []string) error {
	a, db, err := databaseProvider(cmd)
	if err != nil {
		return err
	}

	exists, err := db.BranchExists(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if exists {
		if err := db.DeleteBranch(cmd.Context(), args[0]); err != nil {
			return err
		}
		a.Record(audit.Event{Type: audit.EventDBDelete, Loom: args[0], Details: db.Name()})
	}

	if a.JSON {
		return writeJSON(cmd.OutOrStdout(), map[string]any{"provider": db.Name(), "branch": args[0], "deleted": exists})
	}
	if !exists {
		logInfo("Database branch %s does not exist", args[0])
		return nil
	}
	logSuccess("Deleted %s database branch %s", db.Name(), args[0])
	return nil
}

func runDBExists(cmd *cobra.Command, args []string) error {
	a, db, err := databaseProvider(cmd)
	if err != nil {
		return err
	}

	exists, err := db.BranchExists(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if a.JSON {
		return writeJSON(cmd.OutOrStdout(), map[string]any{"provider": db.Name(), "branch": args[0], "exists": exists})
	}
	fmt.Fprintln(cmd.OutOrStdout(), exists)
	return nil
}
