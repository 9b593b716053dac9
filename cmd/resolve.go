package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/loom/internal/identifier"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <identifier>",
	Short: "Show how an identifier resolves against the current workspaces",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

type resolveOutput struct {
	Identifier identifier.Description `json:"identifier"`
	LoomID     string                 `json:"loomId"`
	Workspace  string                 `json:"workspace,omitempty"`
	Branch     string                 `json:"branch,omitempty"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	if err := a.RequireRepo(); err != nil {
		return err
	}

	workspaces, err := a.Registry.ListWorkspaces(cmd.Context())
	if err != nil {
		return err
	}
	id, err := identifier.Resolve(args[0], workspaces)
	if err != nil {
		return err
	}

	out := resolveOutput{
		Identifier: identifier.Describe(id),
		LoomID:     identifier.LoomID(id),
	}
	if ws := identifier.Locate(id, workspaces); ws != nil {
		out.Workspace = ws.Path
		out.Branch = ws.Branch
	}

	if a.JSON {
		return writeJSON(cmd.OutOrStdout(), out)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s\n", identifier.String(id))
	fmt.Fprintf(w, "  Loom ID:   %s\n", out.LoomID)
	if out.Workspace != "" {
		fmt.Fprintf(w, "  Workspace: %s\n", out.Workspace)
	}
	if out.Branch != "" {
		fmt.Fprintf(w, "  Branch:    %s\n", out.Branch)
	}
	return nil
}
