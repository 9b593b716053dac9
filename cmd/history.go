package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/loom/internal/audit"
)

var historyCmd = &cobra.Command{
	Use:   "history <branch>",
	Short: "Show the journal of actions loom took on a branch's loom",
	Long: `Shows what loom recorded for a loom branch: executable links, database
branches and teardown attempts with their outcome. The journal is kept after
the loom is gone.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	events, err := a.Audit.Events(args[0])
	if err != nil {
		return err
	}
	if events == nil {
		events = []audit.Event{}
	}

	if a.JSON {
		return writeJSON(cmd.OutOrStdout(), events)
	}
	if len(events) == 0 {
		logInfo("No history for %s", args[0])
		return nil
	}

	w := cmd.OutOrStdout()
	for _, e := range events {
		line := fmt.Sprintf("%s  %-9s", e.Timestamp.Local().Format(time.DateTime), e.Type)
		if e.State != "" {
			line += " " + e.State
		}
		if e.Details != "" {
			line += " " + e.Details
		}
		fmt.Fprintln(w, line)
		for _, msg := range e.Errors {
			fmt.Fprintf(w, "    %s\n", strings.TrimSpace(msg))
		}
	}
	return nil
}
