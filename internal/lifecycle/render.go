package lifecycle

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/firefly-engineering/loom/internal/teardown"
	"github.com/firefly-engineering/loom/internal/tui"
)

// RenderJSON writes out as indented JSON.
func RenderJSON(w io.Writer, out *Outcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Render writes a human-readable report of out.
func Render(w io.Writer, out *Outcome) {
	if out == nil {
		return
	}

	if out.Mode == ModeList {
		renderList(w, out.Workspaces)
		return
	}

	if out.Cancelled && len(out.Results) == 0 {
		fmt.Fprintln(w, tui.MutedStyle.Render("Cancelled, nothing was removed"))
		return
	}

	for _, res := range out.Results {
		renderResult(w, res)
	}

	if out.Summary != nil && (out.Mode == ModeIssue || out.Mode == ModeAll) {
		fmt.Fprintln(w)
		fmt.Fprintln(w, renderSummary(out.Summary, out.DryRun))
	}
}

func renderList(w io.Writer, entries []WorkspaceEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, tui.MutedStyle.Render("No workspaces found"))
		return
	}
	rows := make([]tui.WorkspaceRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, tui.WorkspaceRow{
			Name:       e.Name,
			Branch:     e.Branch,
			Identifier: e.Identifier.String(),
			Path:       e.Path,
			Main:       e.Main,
		})
	}
	fmt.Fprintln(w, tui.WorkspaceTable(rows))
}

func renderResult(w io.Writer, res *teardown.Result) {
	title := res.Identifier.String()
	if res.Workspace != "" {
		title += " " + tui.MutedStyle.Render("("+res.Workspace+")")
	}
	fmt.Fprintln(w, tui.TitleStyle.Render(title))

	switch res.State {
	case teardown.StateCancelled:
		fmt.Fprintln(w, "  "+tui.MutedStyle.Render("Cancelled"))
		return
	case teardown.StateRefused, teardown.StateFailed:
		for _, e := range res.Errors {
			fmt.Fprintln(w, "  "+tui.FailureStyle.Render("✗ "+e))
		}
		return
	}

	for _, op := range res.Operations {
		fmt.Fprintln(w, "  "+renderOperation(op))
	}
}

func renderOperation(op teardown.Operation) string {
	switch {
	case !op.Success:
		return tui.FailureStyle.Render(fmt.Sprintf("✗ %s: %s", op.Message, op.Error))
	case op.Deleted == nil:
		return tui.WarningStyle.Render("• " + op.Message)
	case *op.Deleted:
		return tui.SuccessStyle.Render("✓ " + op.Message)
	default:
		return tui.MutedStyle.Render("○ " + op.Message)
	}
}

func renderSummary(s *Summary, dryRun bool) string {
	parts := []string{
		fmt.Sprintf("%d loom(s)", s.Targets),
		fmt.Sprintf("%d workspace(s) removed", s.WorkspacesRemoved),
		fmt.Sprintf("%d branch(es) deleted", s.BranchesDeleted),
		fmt.Sprintf("%d database(s) deleted", s.DatabasesDeleted),
	}
	line := "Summary: " + strings.Join(parts, ", ")
	if dryRun {
		line = "[DRY RUN] " + line
	}
	if s.Failed > 0 {
		return tui.FailureStyle.Render(fmt.Sprintf("%s, %d failed", line, s.Failed))
	}
	return tui.SuccessStyle.Render(line)
}
