package tui

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// ConfirmModel is a single yes/no question. It defaults to no.
type ConfirmModel struct {
	message   string
	confirmed bool
	done      bool
}

// NewConfirm creates a confirmation model for message.
func NewConfirm(message string) ConfirmModel {
	return ConfirmModel{message: message}
}

func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "y", "Y":
		m.confirmed = true
		m.done = true
		return m, tea.Quit
	case "n", "N", "enter", "esc", "q", "ctrl+c":
		m.confirmed = false
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m ConfirmModel) View() string {
	if m.done {
		answer := "no"
		if m.confirmed {
			answer = "yes"
		}
		return promptStyle.Render(m.message) + " " + answer + "\n"
	}
	return promptStyle.Render(m.message) + " " + helpStyle.Render("[y/N]") + " "
}

// Confirmed reports whether the user answered yes.
func (m ConfirmModel) Confirmed() bool {
	return m.confirmed
}

// TerminalPrompter asks yes/no questions on a terminal.
type TerminalPrompter struct {
	in  io.Reader
	out io.Writer
}

// NewTerminalPrompter returns a prompter reading keys from in and drawing on out.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: in, out: out}
}

// Confirm shows message and waits for an answer.
func (p *TerminalPrompter) Confirm(message string) (bool, error) {
	prog := tea.NewProgram(NewConfirm(message), tea.WithInput(p.in), tea.WithOutput(p.out))

	finalModel, err := prog.Run()
	if err != nil {
		return false, err
	}

	return finalModel.(ConfirmModel).Confirmed(), nil
}
