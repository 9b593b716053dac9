package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// WorkspaceRow is one line of the workspace table.
type WorkspaceRow struct {
	Name       string
	Branch     string
	Identifier string
	Path       string
	Main       bool
}

// WorkspaceTable renders rows as a static table.
func WorkspaceTable(rows []WorkspaceRow) string {
	headers := []string{"NAME", "BRANCH", "IDENTIFIER", "PATH"}
	cells := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		name := r.Name
		if r.Main {
			name += " (main)"
		}
		branch := r.Branch
		if branch == "" {
			branch = "(detached)"
		}
		cells = append(cells, table.Row{name, branch, r.Identifier, r.Path})
	}

	columns := make([]table.Column, len(headers))
	for i, h := range headers {
		width := runewidth.StringWidth(h)
		for _, row := range cells {
			if w := runewidth.StringWidth(row[i]); w > width {
				width = w
			}
		}
		columns[i] = table.Column{Title: h, Width: width}
	}

	styles := table.DefaultStyles()
	styles.Header = styles.Header.Foreground(lipgloss.Color("39"))
	styles.Selected = lipgloss.NewStyle()

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(cells),
		table.WithFocused(false),
		table.WithHeight(len(cells)+1),
		table.WithStyles(styles),
	)
	return t.View()
}
