package lifecycle

import (
	"strings"

	"github.com/firefly-engineering/loom/internal/errors"
)

// Mode is the kind of cleanup an invocation performs.
type Mode string

const (
	ModeList   Mode = "list"
	ModeSingle Mode = "single"
	ModeIssue  Mode = "issue"
	ModeAll    Mode = "all"
)

// Input is the raw cleanup request as given on the command line.
type Input struct {
	Identifier       string
	Issue            string
	List             bool
	All              bool
	Force            bool
	DryRun           bool
	DeleteBranch     bool
	KeepDatabase     bool
	CheckMergeSafety bool
}

// ParseMode classifies in, rejecting conflicting flag combinations.
func ParseMode(in Input) (Mode, error) {
	identifier := strings.TrimSpace(in.Identifier)
	issue := normalizeIssue(in.Issue)

	switch {
	case in.List:
		if identifier != "" {
			return "", errors.ValidationError("--list cannot be combined with an identifier")
		}
		if in.Force || in.All || issue != "" || in.DryRun {
			return "", errors.ValidationError("--list cannot be combined with --force, --all, --issue or --dry-run")
		}
		return ModeList, nil

	case in.All:
		if identifier != "" || issue != "" {
			return "", errors.ValidationError("--all cannot be combined with an identifier or --issue")
		}
		return ModeAll, nil

	case identifier != "" && issue != "":
		return "", errors.ValidationError("use either an identifier or --issue, not both")

	case issue != "":
		return ModeIssue, nil

	case identifier != "":
		return ModeSingle, nil
	}

	return "", errors.ValidationError("specify an identifier, --issue, --all or --list")
}

func normalizeIssue(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "#")
}
