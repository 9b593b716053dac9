package binlink

import (
	"context"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/loom/internal/system"
)

// Builder prepares a workspace's executables before they are linked.
type Builder interface {
	Build(ctx context.Context, workspacePath string) error
}

// CommandBuilder runs a shell-style build command in the workspace.
type CommandBuilder struct {
	Command string
	Exec    system.CommandExecutor
}

// NewCommandBuilder returns a builder for command. A nil executor uses the
// OS executor.
func NewCommandBuilder(command string, exec system.CommandExecutor) *CommandBuilder {
	if exec == nil {
		exec = system.DefaultExecutor()
	}
	return &CommandBuilder{Command: command, Exec: exec}
}

// Build runs the command with the workspace as working directory. An empty
// command does nothing.
func (b *CommandBuilder) Build(ctx context.Context, workspacePath string) error {
	if strings.TrimSpace(b.Command) == "" {
		return nil
	}

	args, err := shellquote.Split(b.Command)
	if err != nil {
		return fmt.Errorf("invalid build command %q: %w", b.Command, err)
	}

	output, err := b.Exec.ExecuteInDir(ctx, workspacePath, args[0], args[1:]...)
	if err != nil {
		return fmt.Errorf("%s: %w (output: %s)", b.Command, err, strings.TrimSpace(string(output)))
	}
	return nil
}
