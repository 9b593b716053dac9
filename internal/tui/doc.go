// Package tui provides terminal user interface components for loom.
//
// This package uses the Bubble Tea framework for the interactive pieces of
// the CLI: the yes/no confirmation shown before a teardown and the workspace
// table printed by `loom cleanup --list`.
//
// # Confirmation
//
// TerminalPrompter implements the teardown prompter on top of a small
// Bubble Tea model. Only y or Y confirms; enter, n, esc and ctrl+c decline.
//
//	p := tui.NewTerminalPrompter(os.Stdin, os.Stdout)
//	ok, err := p.Confirm("Tear down issue #42?")
//
// # Workspace Table
//
//	fmt.Println(tui.WorkspaceTable(rows))
//
// # Dependencies
//
// Uses the Charm libraries:
//   - github.com/charmbracelet/bubbletea - TUI framework
//   - github.com/charmbracelet/bubbles - table component
//   - github.com/charmbracelet/lipgloss - Styling
package tui
